//go:build !unix

package eventloop

import (
	"errors"
	"syscall"
)

// FDPoller is only available on unix systems.
type FDPoller struct{}

// NewFDPoller reports that descriptor polling is unsupported here.
func NewFDPoller(input, conn, wake syscall.Conn) (*FDPoller, error) {
	return nil, errors.ErrUnsupported
}

// Wait implements Poller.
func (p *FDPoller) Wait(bool) (Ready, error) {
	return Ready{}, errors.ErrUnsupported
}
