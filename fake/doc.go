// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development: an in-memory relay
// with kernel-like wait/break semantics, a recording thread pinner, and a
// counting stub back-end. Predictable, controllable behavior for every
// core interface.
package fake
