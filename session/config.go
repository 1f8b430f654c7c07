package session

import "time"

// Config holds the limits and timeouts of a session. The size limits must
// match the server's.
type Config struct {
	// MaxMessageLen bounds an outgoing payload, terminator included. Lines
	// whose payload would reach this length are rejected locally.
	MaxMessageLen int
	// MaxNameLen is the longest accepted username, terminator excluded.
	MaxNameLen int
	// ReceiveBufferSize bounds incoming payloads, welcome frame included.
	ReceiveBufferSize int
	// ConnectTimeout limits dialing and, separately, the handshake.
	ConnectTimeout time.Duration
	// WriteTimeout limits each frame write, including the final "bye"; 0 means no limit.
	WriteTimeout time.Duration
	// FrameReadTimeout limits a frame read once the socket was reported
	// readable; 0 means no limit.
	FrameReadTimeout time.Duration
}

// DefaultConfig returns the limits shared with the reference chat server:
// 1024-byte messages, 20-character usernames and a receive buffer sized for
// "[name]: message" lines.
func DefaultConfig() Config {
	return Config{
		MaxMessageLen:     1024,
		MaxNameLen:        20,
		ReceiveBufferSize: 1024 + 20 + 4,
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      10 * time.Second,
		FrameReadTimeout:  10 * time.Second,
	}
}

// MaxLineLen is the longest keyboard line that fits in a message once its
// terminator is added, staying strictly below MaxMessageLen.
func (c Config) MaxLineLen() int {
	return c.MaxMessageLen - 2
}
