// Package interrupt records asynchronous cancellation requests. Requesting
// cancellation only sets a flag and makes a wake descriptor readable; all
// teardown is left to whoever polls the flag.
package interrupt

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Handler is a one-way cancellation flag with a self-pipe that becomes
// readable once cancellation was requested. Request and Requested are safe
// for concurrent use.
type Handler struct {
	requested atomic.Bool
	r, w      *os.File
	closeOnce sync.Once

	done     context.Context
	markDone context.CancelFunc
}

// New returns a Handler with a fresh wake pipe.
func New() (*Handler, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create wake pipe: %w", err)
	}

	done, markDone := context.WithCancel(context.Background())
	return &Handler{r: r, w: w, done: done, markDone: markDone}, nil
}

// Request records that cancellation was requested and wakes any poller
// waiting on WakeFile. Only the first call has an effect.
func (h *Handler) Request() {
	if !h.requested.CompareAndSwap(false, true) {
		return
	}

	h.markDone()
	_, _ = h.w.Write([]byte{1})
}

// Requested reports whether Request has been called.
func (h *Handler) Requested() bool {
	return h.requested.Load()
}

// Context returns a child of parent that is also cancelled once
// cancellation is requested, for bounding blocking calls such as a dial.
// The returned cancel function must be called to release it.
func (h *Handler) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(h.done, cancel)

	return ctx, func() {
		stop()
		cancel()
	}
}

// WakeFile returns the read end of the wake pipe. It becomes readable after
// the first Request and stays readable; nothing ever drains it.
func (h *Handler) WakeFile() *os.File {
	return h.r
}

// Watch turns each delivery of the given signals into Request until the
// returned stop function is called. Stop restores default signal handling.
func (h *Handler) Watch(signals ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ch:
				h.Request()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
			wg.Wait()
		})
	}
}

// Close releases the wake pipe.
func (h *Handler) Close() error {
	var err error
	h.closeOnce.Do(func() {
		err = h.w.Close()
		if rerr := h.r.Close(); err == nil {
			err = rerr
		}
	})

	return err
}
