// Package frame implements the length-prefixed framing used on the chat
// connection. A frame is a 2-byte unsigned length in network byte order
// followed by exactly that many payload bytes. Readers either get a whole
// frame or an error; partial frames are never handed to callers.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cyberinferno/chatclient/utils"
)

// HeaderSize is the size of the length prefix in bytes.
const HeaderSize = 2

// MaxPayloadSize is the largest payload the length prefix can describe.
const MaxPayloadSize = math.MaxUint16

var (
	// ErrFrameTooLarge is returned when a payload exceeds the codec's maximum.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrProtocol is returned for truncated frames and for declared lengths
	// the receiving buffer cannot hold.
	ErrProtocol = errors.New("protocol error")
)

// Codec encodes payloads into frames bounded by MaxPayload bytes.
type Codec struct {
	// MaxPayload is the largest payload Encode accepts. Values outside
	// (0, MaxPayloadSize] are treated as MaxPayloadSize.
	MaxPayload int
}

// NewCodec returns a Codec that rejects payloads longer than maxPayload.
func NewCodec(maxPayload int) Codec {
	return Codec{MaxPayload: maxPayload}
}

func (c Codec) limit() int {
	if c.MaxPayload <= 0 || c.MaxPayload > MaxPayloadSize {
		return MaxPayloadSize
	}

	return c.MaxPayload
}

// Encode builds the frame [len:2][payload] for payload.
//
// Parameters:
//   - payload: The bytes to frame; not modified
//
// Returns:
//   - The encoded frame
//   - ErrFrameTooLarge (wrapped) if payload is longer than the codec allows
func (c Codec) Encode(payload []byte) ([]byte, error) {
	if len(payload) > c.limit() {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, len(payload), c.limit())
	}

	var header [HeaderSize]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(payload)))

	return utils.JoinBytes(header[:], payload), nil
}

// Write encodes payload and writes the whole frame to w, retrying short
// writes until every byte is out or w reports an error.
//
// Parameters:
//   - w: The transport to write to
//   - payload: The bytes to frame and send
//
// Returns:
//   - nil once the full frame was written; otherwise the encode or write error
func (c Codec) Write(w io.Writer, payload []byte) error {
	buf, err := c.Encode(payload)
	if err != nil {
		return err
	}

	return writeFull(w, buf)
}

func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		buf = buf[n:]
		if err != nil {
			return fmt.Errorf("write frame: %w", err)
		}

		if n == 0 {
			return fmt.Errorf("write frame: %w", io.ErrShortWrite)
		}
	}

	return nil
}

// Read decodes exactly one frame from r into buf and returns the payload size.
// The declared length is checked against len(buf) before any payload byte is
// read.
//
// Parameters:
//   - r: The transport to read from
//   - buf: Destination for the payload; its length is the receive capacity
//
// Returns:
//   - The number of payload bytes written to buf
//   - io.EOF, unwrapped, if r ended before any byte of the frame arrived
//   - ErrProtocol (wrapped) if r ended mid-frame or the length exceeds len(buf)
//   - Any other transport error, wrapped
func Read(r io.Reader, buf []byte) (int, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return 0, fmt.Errorf("%w: connection closed inside length prefix", ErrProtocol)
		case errors.Is(err, io.EOF):
			return 0, io.EOF
		default:
			return 0, fmt.Errorf("read frame header: %w", err)
		}
	}

	size := int(binary.BigEndian.Uint16(header[:]))
	if size > len(buf) {
		return 0, fmt.Errorf("%w: declared length %d exceeds receive capacity %d", ErrProtocol, size, len(buf))
	}

	if _, err := io.ReadFull(r, buf[:size]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: connection closed inside %d-byte payload", ErrProtocol, size)
		}

		return 0, fmt.Errorf("read frame payload: %w", err)
	}

	return size, nil
}
