//go:build linux || darwin

package poller

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPollset(t *testing.T) Pollset {
	t.Helper()
	p, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestWorkDeadline(t *testing.T) {
	p := newPollset(t)
	start := time.Now()
	require.NoError(t, p.Work(start.Add(50*time.Millisecond)))
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestKickWakesWork(t *testing.T) {
	p := newPollset(t)
	done := make(chan error, 1)
	go func() {
		done <- p.Work(time.Now().Add(10 * time.Second))
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Kick())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("kick did not wake a blocked Work")
	}
}

func TestRegisterReadDispatch(t *testing.T) {
	p := newPollset(t)
	rd, wr := socketPair(t)

	var fired atomic.Int32
	h, err := p.RegisterRead(rd, func() { fired.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, rd, h.FD())

	_, err = unix.Write(wr, []byte("x"))
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		require.NoError(t, p.Work(time.Now().Add(20*time.Millisecond)))
	}
	assert.GreaterOrEqual(t, fired.Load(), int32(1))
}

func TestUnregisterStopsDispatch(t *testing.T) {
	p := newPollset(t)
	rd, wr := socketPair(t)

	var fired atomic.Int32
	h, err := p.RegisterRead(rd, func() {
		fired.Add(1)
		// 读空，边缘触发下避免事件残留
		buf := make([]byte, 16)
		for {
			if _, rerr := unix.Read(rd, buf); rerr != nil {
				return
			}
		}
	})
	require.NoError(t, err)

	_, err = unix.Write(wr, []byte("x"))
	require.NoError(t, err)
	deadline := time.Now().Add(5 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		require.NoError(t, p.Work(time.Now().Add(20*time.Millisecond)))
	}
	require.GreaterOrEqual(t, fired.Load(), int32(1))

	require.NoError(t, p.Unregister(h))
	before := fired.Load()
	_, err = unix.Write(wr, []byte("y"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Work(time.Now().Add(20*time.Millisecond)))
	}
	assert.Equal(t, before, fired.Load())

	// 再次撤销同一 handle 报错
	assert.ErrorIs(t, p.Unregister(h), ErrBadHandle)
}

func TestClosedPollset(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Work(time.Now().Add(time.Millisecond)), ErrClosed)
	_, err = p.RegisterRead(0, func() {})
	assert.ErrorIs(t, err, ErrClosed)
}
