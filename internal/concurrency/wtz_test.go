// File: internal/concurrency/wtz_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitTilZeroCountsDown(t *testing.T) {
	const n = 8

	var w WaitTilZero
	w.Arm(n)

	var released atomic.Int32
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	for i := 0; i < n-1; i++ {
		released.Add(1)
		w.Release()
	}

	// Not zero yet; the waiter must still be blocked.
	select {
	case <-done:
		t.Fatal("Wait returned before the last release")
	case <-time.After(20 * time.Millisecond):
	}

	released.Add(1)
	w.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the last release")
	}
	require.Equal(t, int32(n), released.Load())
}

func TestWaitTilZeroConcurrentReleasers(t *testing.T) {
	const n = 32

	var w WaitTilZero
	w.Arm(n)
	for i := 0; i < n; i++ {
		go w.Release()
	}

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait hung with concurrent releasers")
	}
}

func TestWaitTilZeroReuse(t *testing.T) {
	var w WaitTilZero
	w.Arm(1)
	w.Release()
	w.Wait()

	// A drained barrier re-arms cleanly.
	w.Arm(2)
	w.Release()
	w.Release()
	w.Wait()
}
