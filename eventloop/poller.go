package eventloop

import (
	"fmt"
	"syscall"
)

// Ready reports which sources may be read without blocking.
type Ready struct {
	Input bool // Keyboard
	Conn  bool // Server connection
	Wake  bool // Cancellation wake pipe
}

// Any reports whether at least one source is ready.
func (r Ready) Any() bool {
	return r.Input || r.Conn || r.Wake
}

// Poller waits for readiness on the loop's sources.
type Poller interface {
	// Wait blocks until at least one source is ready, or only samples
	// readiness when immediate is set. A wait cut short by a signal returns
	// an empty Ready and no error.
	Wait(immediate bool) (Ready, error)
}

// descriptor extracts the file descriptor of c without changing its
// blocking mode.
func descriptor(c syscall.Conn) (int, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("access descriptor: %w", err)
	}

	fd := -1
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, fmt.Errorf("access descriptor: %w", err)
	}

	return fd, nil
}
