// File: zuf/errno.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package zuf

// ErrnoToKernel converts a user-space result to the kernel sign
// convention: positive errno values become negative, everything else
// passes through. Idempotent.
func ErrnoToKernel(err int32) int32 {
	if err < 0 {
		return err
	}
	return -err
}
