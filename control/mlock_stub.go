//go:build !linux

// File: control/mlock_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

// ApplyMlock is a no-op off Linux.
func ApplyMlock(*Config) error { return nil }
