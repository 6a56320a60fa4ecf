// File: relay/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package relay is the Linux implementation of api.Relay over the zuf
// control device: anonymous O_TMPFILE handles on the zuf root, ioctls for
// registration and blocking waits, and shared-writable mappings for the
// app region, op buffer and pmem windows.
package relay
