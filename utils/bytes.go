// Package utils holds the small byte and string helpers shared by the framing
// and session layers. Chat payloads travel as NUL-terminated text.
package utils

import "bytes"

// JoinBytes concatenates the given byte slices into a single newly allocated slice.
//
// Parameters:
//   - s: Zero or more byte slices to concatenate
//
// Returns:
//   - A new byte slice containing all input slices in order
func JoinBytes(s ...[]byte) []byte {
	n := 0
	for _, v := range s {
		n += len(v)
	}

	b, i := make([]byte, n), 0
	for _, v := range s {
		i += copy(b[i:], v)
	}

	return b
}

// ReadStringFromBytes interprets buffer as NUL-terminated text and returns the
// bytes before the first NUL, or the whole buffer when it carries no NUL.
func ReadStringFromBytes(buffer []byte) string {
	nullIndex := bytes.IndexByte(buffer, 0)
	if nullIndex == -1 {
		return string(buffer)
	}

	return string(buffer[:nullIndex])
}

// NULTerminated returns the bytes of s followed by a single NUL, the form in
// which chat text is carried as a frame payload.
func NULTerminated(s string) []byte {
	return JoinBytes([]byte(s), []byte{0})
}
