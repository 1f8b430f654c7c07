//go:build unix

package interrupt

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHandler_Request(t *testing.T) {
	t.Run("starts unrequested", func(t *testing.T) {
		h := newHandler(t)
		assert.False(t, h.Requested())
	})

	t.Run("sets the flag and wakes the pipe once", func(t *testing.T) {
		h := newHandler(t)

		h.Request()
		h.Request()
		assert.True(t, h.Requested())

		require.NoError(t, h.WakeFile().SetReadDeadline(time.Now().Add(time.Second)))
		buf := make([]byte, 8)
		n, err := h.WakeFile().Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, h.WakeFile().SetReadDeadline(time.Now().Add(50*time.Millisecond)))
		_, err = h.WakeFile().Read(buf)
		assert.Error(t, err, "a second request must not write again")
	})

	t.Run("concurrent requests are safe", func(t *testing.T) {
		h := newHandler(t)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.Request()
			}()
		}
		wg.Wait()

		assert.True(t, h.Requested())
	})
}

func TestHandler_Watch(t *testing.T) {
	t.Run("signal delivery requests cancellation", func(t *testing.T) {
		h := newHandler(t)
		stop := h.Watch(syscall.SIGUSR1)
		defer stop()

		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

		assert.Eventually(t, h.Requested, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		h := newHandler(t)
		stop := h.Watch(syscall.SIGUSR2)

		assert.NotPanics(t, func() {
			stop()
			stop()
		})
		assert.False(t, h.Requested())
	})
}

func TestHandler_Context(t *testing.T) {
	t.Run("cancelled by request", func(t *testing.T) {
		h := newHandler(t)
		ctx, cancel := h.Context(context.Background())
		defer cancel()

		assert.NoError(t, ctx.Err())

		h.Request()
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("context not cancelled after request")
		}
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("already requested", func(t *testing.T) {
		h := newHandler(t)
		h.Request()

		ctx, cancel := h.Context(context.Background())
		defer cancel()

		assert.Eventually(t, func() bool { return ctx.Err() != nil }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("follows its parent", func(t *testing.T) {
		h := newHandler(t)
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := h.Context(parent)
		defer cancel()

		cancelParent()
		<-ctx.Done()
		assert.False(t, h.Requested())
	})

	t.Run("release leaves the handler usable", func(t *testing.T) {
		h := newHandler(t)
		ctx, cancel := h.Context(context.Background())
		cancel()
		assert.Error(t, ctx.Err())

		h.Request()
		assert.True(t, h.Requested())
	})
}

func TestHandler_Close(t *testing.T) {
	h, err := New()
	require.NoError(t, err)

	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
}
