package node

// Role identifies which side of the session a node plays.
type Role uint8

const (
	// Initiator actively connects outward to a fixed remote endpoint and drives
	// the exchange by sending the payload.
	Initiator Role = iota
	// Responder listens for a single inbound connection and echoes received data.
	Responder
)

// IsInitiator returns true if the role is Initiator.
func (r Role) IsInitiator() bool { return r == Initiator }

// IsResponder returns true if the role is Responder.
func (r Role) IsResponder() bool { return r == Responder }

// String returns string representation of the role.
func (r Role) String() string {
	switch r {
	case Initiator:
		return "initiator"
	case Responder:
		return "responder"
	default:
		return "unknown"
	}
}
