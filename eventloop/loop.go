// Package eventloop multiplexes keyboard input and the server connection on
// a single goroutine. Each iteration waits for readiness, then services the
// keyboard before the connection, reading at most one line and one frame.
package eventloop

import (
	"fmt"

	"github.com/cyberinferno/chatclient/console"
	"github.com/cyberinferno/chatclient/logger"
	"github.com/cyberinferno/chatclient/session"
)

// Canceller reports whether cancellation was requested from outside the loop.
type Canceller interface {
	Requested() bool
}

// Loop drives an Active session until it terminates.
type Loop struct {
	session *session.Session
	input   *console.LineReader
	poller  Poller
	cancel  Canceller
	log     logger.Logger
}

// New returns a Loop over s. input must read from the descriptor the poller
// reports as Input.
func New(s *session.Session, input *console.LineReader, poller Poller, cancel Canceller, log logger.Logger) *Loop {
	return &Loop{
		session: s,
		input:   input,
		poller:  poller,
		cancel:  cancel,
		log:     log,
	}
}

// Run services both sources until the session leaves Active, then closes the
// session and returns why it ended.
func (l *Loop) Run() session.Reason {
	for l.session.State() == session.Active {
		if l.cancelled() {
			break
		}

		// Lines already buffered by the reader are invisible to the poller.
		buffered := l.input.Buffered() > 0

		ready, err := l.poller.Wait(buffered)
		if err != nil {
			l.session.Terminate(session.ReasonIOFailure, fmt.Errorf("wait for input: %w", err))
			break
		}

		if l.cancelled() {
			break
		}

		if ready.Input || buffered {
			l.readInput()
		}

		if ready.Conn {
			l.session.HandleIncoming()
		}
	}

	if err := l.session.Close(); err != nil {
		l.log.Warn("closing connection failed", logger.Field{Key: "error", Value: err})
	}

	return l.session.Reason()
}

func (l *Loop) readInput() {
	line, err := l.input.ReadLine(l.session.Config().MaxLineLen())
	if err != nil {
		l.session.HandleInputError(err)
		return
	}

	l.session.HandleInput(line)
}

func (l *Loop) cancelled() bool {
	if !l.cancel.Requested() {
		return false
	}

	l.session.Terminate(session.ReasonCancelled, nil)
	return true
}
