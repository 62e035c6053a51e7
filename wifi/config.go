package wifi

import (
	"errors"
	"time"

	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/node"
)

// Config represents the configuration parameters for link supervision.
type Config struct {
	// ssid is the target network name, treated as an opaque string.
	ssid string

	// passphrase is the network credential, treated as an opaque string.
	passphrase string

	// channel optionally pins the wireless channel; zero lets the driver scan.
	channel int

	// role selects the failure-handling policy for association attempts.
	// Defaults to Initiator.
	role node.Role

	// joinBackoff is the wait after a failed association attempt (initiator
	// role) and after an association loss.
	// Defaults to node.DefaultLinkRetryDelay.
	joinBackoff time.Duration

	// silentThreshold splits responder join-failure statuses into loggable
	// (below) and silent (at or above) retries.
	// Defaults to node.JoinStatusSilentRetry.
	silentThreshold uint32

	// powerSave enables aggressive radio power management before joining.
	// Defaults to false.
	powerSave bool

	// indicator receives link status updates.
	indicator node.Indicator

	// logger provides a logger instance for link supervision events.
	logger logger.Logger
}

// NewConfig creates a link supervision configuration with the given network
// name, credential, and optional functional options.
//
// The ssid and passphrase are opaque build-time strings; they are stored and
// forwarded to the radio driver without inspection.
func NewConfig(ssid string, passphrase string, opts ...Option) (*Config, error) {
	cfg := &Config{
		ssid:            ssid,
		passphrase:      passphrase,
		role:            node.Initiator,
		joinBackoff:     node.DefaultLinkRetryDelay,
		silentThreshold: node.JoinStatusSilentRetry,
		indicator:       node.NewBoolIndicator(),
		logger:          logger.GetLogger(),
	}

	if ssid == "" {
		return cfg, errors.New("network name is empty")
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Option represents a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithRole selects the association failure policy by node role.
//
// The default role is Initiator.
func WithRole(role node.Role) Option {
	return newOptFunc("WithRole", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		cfg.role = role

		return nil
	})
}

// WithChannel pins the wireless channel for association.
// An error is returned if the channel is outside the valid range (1-14) or if
// the configuration is nil. Channel 0 lets the driver scan.
func WithChannel(channel int) Option {
	return newOptFunc("WithChannel", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if channel < 0 || channel > 14 {
			return errors.New("channel out of range [0, 14]")
		}
		cfg.channel = channel

		return nil
	})
}

// WithJoinBackoff sets the wait after a failed association attempt and after
// an association loss.
// An error is returned if the value is outside the valid range (0.01-240
// seconds) or if the configuration is nil.
//
// The default value is node.DefaultLinkRetryDelay.
func WithJoinBackoff(val time.Duration) Option {
	return newOptFunc("WithJoinBackoff", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if val < 10*time.Millisecond || val > 240*time.Second {
			return errors.New("join backoff out of range [0.01, 240]")
		}
		cfg.joinBackoff = val

		return nil
	})
}

// WithJoinSilentThreshold sets the driver status code threshold below which a
// responder join failure is logged with an indicator toggle. Statuses at or
// above the threshold retry silently.
//
// The value is an opaque external policy constant from the driver's status
// table; the default is node.JoinStatusSilentRetry.
func WithJoinSilentThreshold(val uint32) Option {
	return newOptFunc("WithJoinSilentThreshold", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		cfg.silentThreshold = val

		return nil
	})
}

// WithPowerSave enables aggressive radio power management before joining.
//
// The default value is false.
func WithPowerSave(val bool) Option {
	return newOptFunc("WithPowerSave", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		cfg.powerSave = val

		return nil
	})
}

// WithIndicator sets the indicator output driven by link status changes.
//
// The default is a fresh node.BoolIndicator.
func WithIndicator(ind node.Indicator) Option {
	return newOptFunc("WithIndicator", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}
		if ind == nil {
			return errors.New("indicator is nil")
		}

		cfg.indicator = ind

		return nil
	})
}

// WithLogger sets the logger for link supervision.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}

		cfg.logger = l

		return nil
	})
}
