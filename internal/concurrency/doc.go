// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency provides the pinned-thread primitive every core
// thread is created through, the foreign-thread adoption path, and the
// wait-til-zero startup barrier. A managed thread is a goroutine locked to
// its OS thread with affinity, scheduling policy and name applied before
// the body runs; its record is reachable from inside the thread the way a
// pthread TLS slot would be, keyed by the OS thread id.
package concurrency
