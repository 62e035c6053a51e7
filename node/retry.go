package node

import "time"

// Retry policy constants. These are invariant timing parameters consumed by the
// link manager, the address resolver, and the session loop; they are not a
// component with behavior of their own.
const (
	// DefaultEstablishTimeout bounds a single connect or accept attempt.
	DefaultEstablishTimeout = 5000 * time.Millisecond

	// DefaultIdleTimeout bounds each individual read or write on an established
	// session. Exceeding it aborts that operation as if it failed.
	DefaultIdleTimeout = 5000 * time.Millisecond

	// DefaultEstablishRetryDelay is the wait the initiator takes after a connect
	// attempt fails with a transport error (not a timeout).
	DefaultEstablishRetryDelay = 1000 * time.Millisecond

	// DefaultLinkRetryDelay is the wait the link supervisor takes after an
	// association attempt fails or after an established link drops.
	DefaultLinkRetryDelay = 5000 * time.Millisecond

	// DefaultConfigPollInterval is the interval at which the address resolver
	// polls the stack for DHCP configuration readiness.
	DefaultConfigPollInterval = 100 * time.Millisecond

	// DefaultExchangeInterval is the pacing delay the initiator takes between
	// successive payload writes.
	DefaultExchangeInterval = 1000 * time.Millisecond
)

// JoinStatusSilentRetry is the driver status code threshold that splits join
// failures into two retry flavors: statuses below it are logged and toggle the
// indicator, statuses at or above it retry silently. The value comes from the
// radio driver's status-code table and carries no semantics of its own here.
const JoinStatusSilentRetry uint32 = 16
