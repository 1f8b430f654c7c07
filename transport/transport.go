// Package transport opens the client's stream connection to the chat server
// and performs the one-shot handshake: one welcome frame in, one username
// frame out.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/cyberinferno/chatclient/frame"
	"github.com/cyberinferno/chatclient/utils"
)

// Unprivileged port range accepted for the server.
const (
	MinPort = 1024
	MaxPort = 65535
)

var (
	// ErrArgument marks a malformed server address or port.
	ErrArgument = errors.New("invalid argument")

	// ErrConnect marks a failed connect or handshake.
	ErrConnect = errors.New("connect failed")
)

// ParseAddress validates a dotted-decimal IPv4 literal and a decimal port in
// [MinPort, MaxPort].
//
// Parameters:
//   - host: Server address such as "127.0.0.1"; host names are not resolved
//   - port: Server port such as "5000"
//
// Returns:
//   - The combined address
//   - ErrArgument (wrapped) if either part is invalid
func ParseAddress(host, port string) (netip.AddrPort, error) {
	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is4() {
		return netip.AddrPort{}, fmt.Errorf("%w: invalid address '%s'", ErrArgument, host)
	}

	p, err := strconv.ParseUint(port, 10, 64)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: invalid port '%s', must be an integer", ErrArgument, port)
	}

	if p < MinPort || p > MaxPort {
		return netip.AddrPort{}, fmt.Errorf("%w: port '%d' out of range [%d, %d]", ErrArgument, p, MinPort, MaxPort)
	}

	return netip.AddrPortFrom(addr, uint16(p)), nil
}

// Dial opens a TCP connection to addr, giving up after timeout (0 means no
// limit beyond ctx).
//
// Returns:
//   - The connection, or ErrConnect (wrapped) on failure
func Dial(ctx context.Context, addr netip.AddrPort, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp4", addr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	return conn, nil
}

// Handshake receives the server's welcome frame into buf and answers with
// the username as a NUL-terminated frame. The server gives no acknowledgment
// of the username.
//
// Parameters:
//   - rw: The freshly connected transport
//   - codec: Codec bounding the username frame
//   - buf: Receive buffer; its length bounds the welcome frame
//   - username: Identity sent to the server
//
// Returns:
//   - The welcome text, up to its first NUL
//   - ErrConnect (wrapped) if the server closes, sends a bad frame, or the send fails
func Handshake(rw io.ReadWriter, codec frame.Codec, buf []byte, username string) (string, error) {
	n, err := frame.Read(rw, buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: server closed the connection before the welcome message", ErrConnect)
		}

		return "", fmt.Errorf("%w: receive welcome message: %w", ErrConnect, err)
	}

	welcome := utils.ReadStringFromBytes(buf[:n])

	if err := codec.Write(rw, utils.NULTerminated(username)); err != nil {
		return "", fmt.Errorf("%w: send username: %w", ErrConnect, err)
	}

	return welcome, nil
}
