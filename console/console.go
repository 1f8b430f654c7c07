// Package console reads the keyboard side of the chat: bounded lines for
// outgoing messages and the interactive username prompt.
package console

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInputOverflow is returned for a line longer than the caller's limit.
	// The rest of that line has already been discarded.
	ErrInputOverflow = errors.New("input line too long")

	// ErrNoUsername is returned when input ends before a username was entered.
	ErrNoUsername = errors.New("no username entered")
)

const readBufferSize = 4096

// LineReader reads newline-delimited input with a per-line length limit.
// It buffers, so callers multiplexing on the underlying descriptor must
// consult Buffered before waiting for readiness.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Buffered returns the number of bytes already read from the source but not
// yet consumed.
func (l *LineReader) Buffered() int {
	return l.r.Buffered()
}

// ReadLine returns the next line without its "\n" or "\r\n" ending. A final
// line without a newline is returned as is.
//
// Parameters:
//   - limit: Maximum line length in bytes, line ending excluded
//
// Returns:
//   - The line
//   - ErrInputOverflow if the line was longer than limit; the remainder up to
//     and including the next newline has been consumed
//   - io.EOF when the input is exhausted
func (l *LineReader) ReadLine(limit int) (string, error) {
	var (
		line     []byte
		consumed int
		overflow bool
	)

	for {
		chunk, err := l.r.ReadSlice('\n')
		consumed += len(chunk)

		if !overflow {
			line = append(line, chunk...)
			if len(trimLineEnding(line)) > limit {
				overflow = true
				line = nil
			}
		}

		switch {
		case err == nil:
			if overflow {
				return "", ErrInputOverflow
			}
			return string(trimLineEnding(line)), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if overflow {
				return "", ErrInputOverflow
			}
			if consumed == 0 {
				return "", io.EOF
			}
			return string(trimLineEnding(line)), nil
		default:
			return "", fmt.Errorf("read input: %w", err)
		}
	}
}

func trimLineEnding(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}

// PromptUsername asks for a username until a non-empty one of at most
// maxLen characters is entered.
//
// Parameters:
//   - in: Keyboard input
//   - out: Where the prompt is printed
//   - errOut: Where rejections are reported
//   - maxLen: Maximum username length
//
// Returns:
//   - The username
//   - ErrNoUsername if input ends first, or the read error
func PromptUsername(in *LineReader, out, errOut io.Writer, maxLen int) (string, error) {
	for {
		fmt.Fprint(out, "Enter username: ")

		name, err := in.ReadLine(maxLen)
		switch {
		case errors.Is(err, ErrInputOverflow):
			fmt.Fprintf(errOut, "Sorry, limit your username to %d characters.\n", maxLen)
			continue
		case errors.Is(err, io.EOF):
			return "", ErrNoUsername
		case err != nil:
			return "", err
		}

		if name != "" {
			return name, nil
		}
	}
}
