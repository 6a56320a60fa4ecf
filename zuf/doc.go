// File: zuf/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package zuf defines the wire protocol spoken over the zuf kernel relay:
// operation codes, the per-operation request structures that live inside a
// worker's mapped op buffer, and the fixed size constants of the mapping
// contract. Every structure here is a plain fixed-layout record so it can
// be overlaid in place on shared memory without copies.
package zuf
