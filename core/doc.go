// File: core/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package core owns the runtime: the mount controller thread, the
// two-dimensional (channel, cpu) grid of dispatcher threads, and the
// token table the kernel uses to name filesystems, superblocks and
// inodes. One Runtime instance serves one process; tests instantiate
// their own against a fake relay.
package core
