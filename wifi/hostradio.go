package wifi

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/arloliu/linknode/internal/pool"
	"github.com/arloliu/linknode/node"
)

// HostRadio adapts an operating-system managed wireless interface to the Radio
// interface. Association is owned by the platform supplicant; Join succeeds
// when the interface reports up-and-running, and WaitDisconnect polls the same
// flags until they drop.
type HostRadio struct {
	iface        string
	pollInterval time.Duration
	started      atomic.Bool
	cfg          atomic.Pointer[RadioConfig]
}

var _ Radio = (*HostRadio)(nil)

// NewHostRadio creates a HostRadio watching the named interface. A
// non-positive pollInterval falls back to node.DefaultConfigPollInterval.
func NewHostRadio(iface string, pollInterval time.Duration) *HostRadio {
	if pollInterval <= 0 {
		pollInterval = node.DefaultConfigPollInterval
	}

	return &HostRadio{
		iface:        iface,
		pollInterval: pollInterval,
	}
}

// Started reports whether Start has completed.
func (r *HostRadio) Started() bool { return r.started.Load() }

// Start records the association parameters and marks the radio active. The
// credentials are not used; the platform supplicant owns the association.
func (r *HostRadio) Start(_ context.Context, cfg RadioConfig) error {
	r.cfg.Store(&cfg)
	r.started.Store(true)

	return nil
}

// Join reports success when the interface is up and running.
func (r *HostRadio) Join(_ context.Context) error {
	up, err := r.linkUp()
	if err != nil {
		return err
	}
	if !up {
		return fmt.Errorf("interface %s: %w", r.iface, node.ErrLinkDown)
	}

	return nil
}

// WaitDisconnect polls the interface flags until the link drops or the
// context is done.
func (r *HostRadio) WaitDisconnect(ctx context.Context) error {
	for {
		up, err := r.linkUp()
		if err != nil || !up {
			return nil
		}

		timer := pool.GetTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			pool.PutTimer(timer)
			return ctx.Err()
		case <-timer.C:
		}
		pool.PutTimer(timer)
	}
}

// SetPowerSave is a no-op; the platform owns radio power policy.
func (r *HostRadio) SetPowerSave(context.Context, bool) error { return nil }

// Capabilities returns the interface name and its current flags.
func (r *HostRadio) Capabilities() string {
	iface, err := net.InterfaceByName(r.iface)
	if err != nil {
		return fmt.Sprintf("%s (unavailable)", r.iface)
	}

	return fmt.Sprintf("%s (%s)", iface.Name, iface.Flags)
}

func (r *HostRadio) linkUp() (bool, error) {
	iface, err := net.InterfaceByName(r.iface)
	if err != nil {
		return false, fmt.Errorf("interface %s: %w", r.iface, err)
	}

	return iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0, nil
}
