//go:build unix

package eventloop

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// A hung-up or failed descriptor counts as readable so the next read
// surfaces the condition.
const readable = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

// FDPoller waits on the keyboard, connection and wake descriptors with poll(2).
type FDPoller struct {
	fds [3]unix.PollFd
}

// NewFDPoller builds a poller over the three sources. The caller keeps
// ownership of all of them and must keep them open while the poller is used.
func NewFDPoller(input, conn, wake syscall.Conn) (*FDPoller, error) {
	p := &FDPoller{}

	for i, c := range []syscall.Conn{input, conn, wake} {
		fd, err := descriptor(c)
		if err != nil {
			return nil, err
		}

		p.fds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	return p, nil
}

// Wait implements Poller.
func (p *FDPoller) Wait(immediate bool) (Ready, error) {
	timeout := -1
	if immediate {
		timeout = 0
	}

	for i := range p.fds {
		p.fds[i].Revents = 0
	}

	if _, err := unix.Poll(p.fds[:], timeout); err != nil {
		if errors.Is(err, unix.EINTR) {
			return Ready{}, nil
		}

		return Ready{}, fmt.Errorf("poll: %w", err)
	}

	return Ready{
		Input: p.fds[0].Revents&readable != 0,
		Conn:  p.fds[1].Revents&readable != 0,
		Wake:  p.fds[2].Revents&readable != 0,
	}, nil
}
