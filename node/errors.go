package node

import "errors"

var (
	// ErrInvalidTransition is returned when an attempt is made to transition the link
	// state to an invalid state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrLinkDown indicates that the wireless link is not associated.
	ErrLinkDown = errors.New("link is not associated")

	// ErrRadioNil indicates that a nil radio driver was provided.
	ErrRadioNil = errors.New("radio driver is nil")

	// ErrStackNil indicates that a nil network stack handle was provided.
	ErrStackNil = errors.New("network stack handle is nil")

	// ErrConfigNil indicates that a nil configuration was provided.
	ErrConfigNil = errors.New("config is nil")
)

var (
	// ErrEstablishTimeout indicates that a connect or accept attempt exceeded the
	// establish timeout and was abandoned.
	ErrEstablishTimeout = errors.New("establish timeout")

	// ErrIdleTimeout indicates that a read or write on an established session
	// exceeded the idle timeout.
	ErrIdleTimeout = errors.New("idle timeout")

	// ErrSessionClosed indicates that the session was terminated by the remote
	// closing the connection.
	ErrSessionClosed = errors.New("session closed")
)
