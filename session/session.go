// Package session holds the client side of one chat session: the
// connection, the user's identity and the lifecycle
// Connecting → Handshaking → Active → Terminating → Closed.
//
// Every trigger that ends a session goes through Terminate, and Close runs
// the Terminating → Closed cleanup exactly once. A Session is driven from a
// single goroutine and is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/cyberinferno/chatclient/console"
	"github.com/cyberinferno/chatclient/frame"
	"github.com/cyberinferno/chatclient/logger"
	"github.com/cyberinferno/chatclient/transport"
	"github.com/cyberinferno/chatclient/utils"
)

// Sentinel is the message text either side sends to end the session.
const Sentinel = "bye"

// ErrInvalidUsername is returned for empty, overlong or unprintable usernames.
var ErrInvalidUsername = errors.New("invalid username")

// Output is where the session writes what the user sees: the conversation
// on Out and problems on Err.
type Output struct {
	Out io.Writer
	Err io.Writer
}

// Session is the per-run client state.
type Session struct {
	config Config
	codec  frame.Codec
	output Output
	log    logger.Logger

	username string
	conn     net.Conn
	recvBuf  []byte

	state        State
	reason       Reason
	err          error
	sentinelSent bool
}

// Connect dials addr, performs the handshake and returns an Active session.
// On failure nothing is left open.
//
// Parameters:
//   - ctx: Bounds the dial and the handshake; cancelling it aborts either
//   - addr: Server address from transport.ParseAddress
//   - username: Identity sent in the handshake
//   - config: Limits and timeouts
//   - output: Where the welcome message and conversation go
//   - log: Diagnostics
//
// Returns:
//   - The Active session
//   - ErrInvalidUsername, or transport.ErrConnect (wrapped) on connect or handshake failure
func Connect(ctx context.Context, addr netip.AddrPort, username string, config Config, output Output, log logger.Logger) (*Session, error) {
	if err := ValidateUsername(username, config.MaxNameLen); err != nil {
		return nil, err
	}

	s := newSession(username, config, output, log.With(logger.Field{Key: "server", Value: addr.String()}))
	s.log.Debug("connecting")

	conn, err := transport.Dial(ctx, addr, config.ConnectTimeout)
	if err != nil {
		s.log.Error("connect failed", logger.Field{Key: "error", Value: err})
		return nil, err
	}

	s.attach(conn)

	// Expire the deadline so a cancelled ctx unblocks a stalled handshake.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	err = s.Handshake()
	stop()

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", err, context.Cause(ctx))
		}

		return nil, err
	}

	return s, nil
}

// New wraps an already connected conn in a session in the Handshaking state.
// Call Handshake next.
func New(conn net.Conn, username string, config Config, output Output, log logger.Logger) (*Session, error) {
	if err := ValidateUsername(username, config.MaxNameLen); err != nil {
		return nil, err
	}

	s := newSession(username, config, output, log)
	s.attach(conn)
	return s, nil
}

func newSession(username string, config Config, output Output, log logger.Logger) *Session {
	return &Session{
		config:   config,
		codec:    frame.NewCodec(config.MaxMessageLen - 1),
		output:   output,
		log:      log.With(logger.Field{Key: "user", Value: username}),
		username: username,
		recvBuf:  make([]byte, config.ReceiveBufferSize),
		state:    Connecting,
	}
}

// ValidateUsername checks name against the length limit and rejects names
// that could not travel as one NUL-terminated line.
func ValidateUsername(name string, maxLen int) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidUsername)
	case len(name) > maxLen:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidUsername, maxLen)
	case strings.ContainsAny(name, "\x00\r\n"):
		return fmt.Errorf("%w: contains control characters", ErrInvalidUsername)
	}

	return nil
}

func (s *Session) attach(conn net.Conn) {
	s.conn = conn
	s.setState(Handshaking)
}

// Handshake receives and displays the welcome message, then sends the
// username. On failure the connection is closed and the session is Closed
// without notifying the server.
func (s *Session) Handshake() error {
	if s.state != Handshaking {
		return fmt.Errorf("handshake not allowed in state %s", s.state)
	}

	if s.config.ConnectTimeout > 0 {
		_ = s.conn.SetDeadline(time.Now().Add(s.config.ConnectTimeout))
	}

	welcome, err := transport.Handshake(s.conn, s.codec, s.recvBuf, s.username)
	if err != nil {
		s.log.Error("handshake failed", logger.Field{Key: "error", Value: err})
		s.err = err
		_ = s.conn.Close()
		s.setState(Closed)
		return err
	}

	_ = s.conn.SetDeadline(time.Time{})

	fmt.Fprintf(s.output.Out, "\n%s\n\n", welcome)
	s.setState(Active)
	return nil
}

// HandleInput sends one keyboard line. Empty lines are ignored; a line that
// does not fit in a message is reported and dropped. Sending the sentinel
// starts termination.
func (s *Session) HandleInput(line string) {
	if s.state != Active || line == "" {
		return
	}

	if err := s.send(utils.NULTerminated(line)); err != nil {
		if errors.Is(err, frame.ErrFrameTooLarge) {
			s.reportOverflow()
			return
		}

		s.Terminate(ReasonIOFailure, fmt.Errorf("send message: %w", err))
		return
	}

	if line == Sentinel {
		s.sentinelSent = true
		s.Terminate(ReasonLocalSentinel, nil)
	}
}

// HandleInputError reacts to a failed keyboard read: overflow is reported
// and the session continues, end of input and other errors start
// termination.
func (s *Session) HandleInputError(err error) {
	if s.state != Active {
		return
	}

	switch {
	case errors.Is(err, console.ErrInputOverflow):
		s.reportOverflow()
	case errors.Is(err, io.EOF):
		s.Terminate(ReasonEndOfInput, nil)
	default:
		s.Terminate(ReasonIOFailure, fmt.Errorf("read input: %w", err))
	}
}

// HandleIncoming reads exactly one frame from the server and displays it.
// A closed connection, a bad frame or the sentinel starts termination.
func (s *Session) HandleIncoming() {
	if s.state != Active {
		return
	}

	if s.config.FrameReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.config.FrameReadTimeout))
		defer func() {
			_ = s.conn.SetReadDeadline(time.Time{})
		}()
	}

	n, err := frame.Read(s.conn, s.recvBuf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.Terminate(ReasonPeerClosed, nil)
		return
	case errors.Is(err, frame.ErrProtocol):
		s.Terminate(ReasonProtocolFailure, err)
		return
	default:
		s.Terminate(ReasonIOFailure, err)
		return
	}

	text := utils.ReadStringFromBytes(s.recvBuf[:n])
	fmt.Fprintln(s.output.Out, text)

	if text == Sentinel {
		s.Terminate(ReasonPeerSentinel, nil)
	}
}

// Terminate moves the session to Terminating. The first trigger wins; later
// calls, and calls once Terminating or Closed, have no effect.
func (s *Session) Terminate(reason Reason, err error) {
	if s.state >= Terminating {
		return
	}

	s.reason = reason
	s.err = err
	s.setState(Terminating)
	s.announce()
}

func (s *Session) announce() {
	switch s.reason {
	case ReasonLocalSentinel:
		fmt.Fprintln(s.output.Out, "Goodbye.")
	case ReasonPeerSentinel:
		fmt.Fprintln(s.output.Out, "\nServer initiated shutdown.")
	case ReasonEndOfInput:
		fmt.Fprintln(s.output.Out, "End of input detected. Exiting.")
	case ReasonCancelled:
		fmt.Fprintln(s.output.Out, "\nInterrupt received. Closing connection.")
	case ReasonPeerClosed:
		fmt.Fprintln(s.output.Err, "Error: Server closed the connection.")
	case ReasonProtocolFailure:
		fmt.Fprintf(s.output.Err, "Error: Failed to receive incoming message. %v.\n", s.err)
	case ReasonIOFailure:
		fmt.Fprintf(s.output.Err, "Error: %v.\n", s.err)
	}

	if s.reason.Graceful() {
		s.log.Info("session terminating", logger.Field{Key: "reason", Value: s.reason.String()})
		return
	}

	s.log.Error("session terminating",
		logger.Field{Key: "reason", Value: s.reason.String()},
		logger.Field{Key: "error", Value: s.err},
	)
}

// Close performs the Terminating → Closed transition: a best-effort "bye" to
// the server, unless one was already sent, then closing the connection.
// Calling Close on an Active session terminates it first. Repeated calls
// return nil.
//
// Returns:
//   - The error from closing the connection, if any
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}

	s.Terminate(ReasonNone, nil)

	if s.conn == nil {
		s.setState(Closed)
		return nil
	}

	if !s.sentinelSent {
		if err := s.send(utils.NULTerminated(Sentinel)); err != nil {
			s.log.Debug("termination message not delivered", logger.Field{Key: "error", Value: err})
		} else {
			s.sentinelSent = true
		}
	}

	err := s.conn.Close()
	s.setState(Closed)
	return err
}

func (s *Session) send(payload []byte) error {
	if s.config.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = s.conn.SetWriteDeadline(time.Time{})
		}()
	}

	return s.codec.Write(s.conn, payload)
}

func (s *Session) reportOverflow() {
	fmt.Fprintf(s.output.Err, "Sorry, limit your message to 1 line of at most %d characters.\n", s.config.MaxMessageLen)
	s.log.Warn("input line discarded", logger.Field{Key: "limit", Value: s.config.MaxMessageLen})
}

func (s *Session) setState(state State) {
	s.log.Debug("session state changed",
		logger.Field{Key: "from", Value: s.state.String()},
		logger.Field{Key: "to", Value: state.String()},
	)
	s.state = state
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Reason returns why the session is terminating, or ReasonNone while Active.
func (s *Session) Reason() Reason { return s.reason }

// Err returns the error behind a failed handshake or a failure reason.
func (s *Session) Err() error { return s.err }

// Username returns the identity sent in the handshake.
func (s *Session) Username() string { return s.username }

// Conn returns the underlying connection, for readiness polling only.
func (s *Session) Conn() net.Conn { return s.conn }

// Config returns the session's limits and timeouts.
func (s *Session) Config() Config { return s.config }
