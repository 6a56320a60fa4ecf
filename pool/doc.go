// File: pool/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package pool allocates the buffers the runtime shares with the kernel
// or keeps per thread: kernel-shared exec buffers carved out of a relay
// handle, and plain anonymous page-aligned scratch buffers.
package pool
