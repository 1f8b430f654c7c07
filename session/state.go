package session

// State is a phase of the session lifecycle. States only move forward.
type State int

const (
	Connecting  State = iota // Dialing the server
	Handshaking              // Connected, exchanging welcome and username
	Active                   // Chatting
	Terminating              // A termination trigger fired; cleanup pending
	Closed                   // Connection released; terminal
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Handshaking:
		return "Handshaking"
	case Active:
		return "Active"
	case Terminating:
		return "Terminating"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Reason records which trigger moved the session to Terminating.
type Reason int

const (
	ReasonNone            Reason = iota // Closed without a trigger
	ReasonLocalSentinel                 // The user sent "bye"
	ReasonPeerSentinel                  // The server sent "bye"
	ReasonEndOfInput                    // Keyboard input ended
	ReasonPeerClosed                    // The server closed the connection between frames
	ReasonCancelled                     // An interrupt requested cancellation
	ReasonProtocolFailure               // A malformed or truncated frame arrived
	ReasonIOFailure                     // Reading or writing failed
)

// String returns a short identifier for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonLocalSentinel:
		return "local-bye"
	case ReasonPeerSentinel:
		return "peer-bye"
	case ReasonEndOfInput:
		return "end-of-input"
	case ReasonPeerClosed:
		return "peer-closed"
	case ReasonCancelled:
		return "cancelled"
	case ReasonProtocolFailure:
		return "protocol-failure"
	case ReasonIOFailure:
		return "io-failure"
	default:
		return "unknown"
	}
}

// Graceful reports whether a session ending for r counts as a normal exit.
func (r Reason) Graceful() bool {
	switch r {
	case ReasonLocalSentinel, ReasonPeerSentinel, ReasonEndOfInput, ReasonPeerClosed, ReasonCancelled:
		return true
	default:
		return false
	}
}
