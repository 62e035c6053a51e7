package wifi

import (
	"context"
	"fmt"
)

// RadioConfig carries the association parameters handed to the radio driver on
// first start. The network name and passphrase are opaque external strings;
// the package never inspects their content.
type RadioConfig struct {
	// SSID is the target network name.
	SSID string
	// Passphrase is the network credential.
	Passphrase string
	// Channel optionally pins the wireless channel; zero lets the driver scan.
	Channel int
}

// JoinError is an association failure carrying the driver's numeric status
// code. The status values come from the driver's own table and are treated as
// opaque by this package apart from the silent-retry threshold comparison.
type JoinError struct {
	Status uint32
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join failed with status %d", e.Status)
}

// Radio is the wireless driver interface consumed by the Manager.
//
// All blocking operations take a context and must return promptly when it is
// done.
type Radio interface {
	// Started reports whether the radio has been brought into an active state.
	Started() bool

	// Start idempotently brings the radio up and applies the association
	// parameters. It does not associate.
	Start(ctx context.Context, cfg RadioConfig) error

	// Join performs one association attempt. Driver-level failures should be
	// returned as *JoinError so the manager can apply its status policy.
	Join(ctx context.Context) error

	// WaitDisconnect blocks while the link stays associated and returns when
	// the association is lost or the context is done.
	WaitDisconnect(ctx context.Context) error

	// SetPowerSave switches the radio power management mode.
	SetPowerSave(ctx context.Context, aggressive bool) error

	// Capabilities returns a human-readable driver capability summary.
	Capabilities() string
}
