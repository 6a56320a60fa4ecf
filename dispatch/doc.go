// File: dispatch/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package dispatch routes relayed operations to the per-superblock and
// per-inode vtables of the target filesystem. It is a pure function of
// (op code, header, app pointer); the default policies for absent vtable
// entries live here, not in the back-ends.
package dispatch
