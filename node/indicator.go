package node

import "sync/atomic"

// Indicator is a boolean on/off output reflecting link and session-establishment
// status. It is a side-channel status signal, not part of the wire protocol.
//
// Implementations must be safe for concurrent use; the link supervisor and the
// session loop both drive it.
type Indicator interface {
	// Set turns the indicator on or off.
	Set(on bool)
}

// BoolIndicator is an in-memory Indicator backed by an atomic bool. It is the
// default indicator and doubles as a test probe.
type BoolIndicator struct {
	on      atomic.Bool
	setOps  atomic.Uint64
	toggles atomic.Uint64
}

var _ Indicator = (*BoolIndicator)(nil)

// NewBoolIndicator creates a BoolIndicator in the off state.
func NewBoolIndicator() *BoolIndicator {
	return &BoolIndicator{}
}

// Set turns the indicator on or off.
func (i *BoolIndicator) Set(on bool) {
	prev := i.on.Swap(on)
	i.setOps.Add(1)
	if prev != on {
		i.toggles.Add(1)
	}
}

// On reports the current indicator state.
func (i *BoolIndicator) On() bool { return i.on.Load() }

// SetOps returns the total number of Set calls.
func (i *BoolIndicator) SetOps() uint64 { return i.setOps.Load() }

// Toggles returns the number of Set calls that changed the state.
func (i *BoolIndicator) Toggles() uint64 { return i.toggles.Load() }

// NopIndicator discards all updates.
type NopIndicator struct{}

var _ Indicator = NopIndicator{}

// Set implements Indicator.
func (NopIndicator) Set(bool) {}
