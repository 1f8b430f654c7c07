package chattest

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/chatclient/frame"
	"github.com/cyberinferno/chatclient/utils"
)

// Peer is the server side of one client connection.
type Peer struct {
	id       uint32
	username string
	conn     net.Conn
	codec    frame.Codec
	buf      []byte
	timeout  time.Duration

	closeOnce sync.Once
}

// ID returns the connection's sequence number, starting at 1.
func (p *Peer) ID() uint32 { return p.id }

// Username returns the name the client sent in the handshake.
func (p *Peer) Username() string { return p.username }

// Send writes text as one NUL-terminated frame.
func (p *Peer) Send(text string) error {
	return p.codec.Write(p.conn, utils.NULTerminated(text))
}

// SendRaw writes b unframed, for feeding clients malformed input.
func (p *Peer) SendRaw(b []byte) error {
	_, err := p.conn.Write(b)
	return err
}

// Receive reads one frame and returns its text up to the first NUL. It
// returns io.EOF once the client has closed the connection or the peer was
// closed locally, for example by Server.Close.
func (p *Peer) Receive() (string, error) {
	if p.timeout > 0 {
		_ = p.conn.SetReadDeadline(time.Now().Add(p.timeout))
	}

	n, err := frame.Read(p.conn, p.buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return "", io.EOF
		}

		return "", err
	}

	return utils.ReadStringFromBytes(p.buf[:n]), nil
}

// ReceiveAll forwards every received text to ch until the client closes the
// connection, then closes ch.
func (p *Peer) ReceiveAll(ch chan<- string) error {
	defer close(ch)

	for {
		text, err := p.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("chattest: peer %d: %w", p.id, err)
		}

		ch <- text
	}
}

// Close closes the connection. Safe to call more than once.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.conn.Close()
	})

	return err
}

// Echo is a Script answering every message with "<username>: <text>" until
// the client sends "bye" or disconnects.
func Echo(p *Peer) error {
	for {
		text, err := p.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if text == "bye" {
			return nil
		}

		if err := p.Send(fmt.Sprintf("%s: %s", p.username, text)); err != nil {
			return err
		}
	}
}
