//go:build !linux

// File: relay/relay_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package relay

import "github.com/momentics/zus-go/api"

type stubRelay struct{}

// New returns a relay whose Open always fails; the zuf shim is Linux-only.
func New(string) api.Relay { return stubRelay{} }

func (stubRelay) Open() (api.Conn, error) { return nil, api.ErrNotSupported }
