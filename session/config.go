package session

import (
	"errors"
	"time"

	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/node"
)

const (
	// DefaultPort is the fixed TCP port both roles use.
	DefaultPort = 1234

	// DefaultListenAddress is the responder's listen address, all interfaces on
	// the fixed port.
	DefaultListenAddress = ":1234"

	// DefaultPayload is the literal the initiator writes on each exchange.
	DefaultPayload = "Hello"

	// DefaultBufferSize is the capacity of the receive and transmit buffers.
	DefaultBufferSize = 4096
)

// Config represents the configuration parameters for the session loop.
type Config struct {
	// role selects the establish and exchange behavior.
	role node.Role

	// remoteAddress is the endpoint the initiator dials, host:port.
	// Required for the initiator role, unused by the responder.
	remoteAddress string

	// listenAddress is the responder's listen address.
	// Defaults to DefaultListenAddress.
	listenAddress string

	// establishTimeout bounds a single connect or accept attempt.
	// Defaults to node.DefaultEstablishTimeout.
	establishTimeout time.Duration

	// idleTimeout bounds each read and write on an established session.
	// Defaults to node.DefaultIdleTimeout.
	idleTimeout time.Duration

	// establishRetryDelay is the initiator's wait after a connect attempt fails
	// with a transport error. Timeouts retry immediately.
	// Defaults to node.DefaultEstablishRetryDelay.
	establishRetryDelay time.Duration

	// exchangeInterval is the initiator's pacing delay between writes.
	// Defaults to node.DefaultExchangeInterval.
	exchangeInterval time.Duration

	// configPollInterval is the DHCP readiness poll interval.
	// Defaults to node.DefaultConfigPollInterval.
	configPollInterval time.Duration

	// payload is the bytes the initiator writes on each exchange.
	// Defaults to DefaultPayload.
	payload []byte

	// bufferSize is the capacity of the receive and transmit buffers, allocated
	// once and reused across every session.
	// Defaults to DefaultBufferSize.
	bufferSize int

	// indicator receives establishment status signals in the responder role.
	indicator node.Indicator

	// logger provides a logger instance for session events.
	logger logger.Logger
}

// NewConfig creates a session loop configuration for the given role with
// optional functional options.
//
// The initiator role requires a remote address via WithRemoteAddress.
func NewConfig(role node.Role, opts ...Option) (*Config, error) {
	cfg := &Config{
		role:                role,
		listenAddress:       DefaultListenAddress,
		establishTimeout:    node.DefaultEstablishTimeout,
		idleTimeout:         node.DefaultIdleTimeout,
		establishRetryDelay: node.DefaultEstablishRetryDelay,
		exchangeInterval:    node.DefaultExchangeInterval,
		configPollInterval:  node.DefaultConfigPollInterval,
		payload:             []byte(DefaultPayload),
		bufferSize:          DefaultBufferSize,
		indicator:           node.NewBoolIndicator(),
		logger:              logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.role.IsInitiator() && cfg.remoteAddress == "" {
		return cfg, errors.New("remote address is required for the initiator role")
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

// WithRemoteAddress sets the endpoint the initiator dials, in host:port form.
func WithRemoteAddress(addr string) Option {
	return newOptFunc("WithRemoteAddress", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}
		if addr == "" {
			return errors.New("remote address is empty")
		}

		cfg.remoteAddress = addr

		return nil
	})
}

// WithListenAddress sets the responder's listen address.
//
// The default is DefaultListenAddress.
func WithListenAddress(addr string) Option {
	return newOptFunc("WithListenAddress", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}
		if addr == "" {
			return errors.New("listen address is empty")
		}

		cfg.listenAddress = addr

		return nil
	})
}

// WithEstablishTimeout sets the bound on a single connect or accept attempt.
// An error is returned if the value is outside the valid range (0.001-240
// seconds) or if the configuration is nil.
//
// The default value is node.DefaultEstablishTimeout.
func WithEstablishTimeout(val time.Duration) Option {
	return newOptFunc("WithEstablishTimeout", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if val < time.Millisecond || val > 240*time.Second {
			return errors.New("establish timeout out of range [0.001, 240]")
		}
		cfg.establishTimeout = val

		return nil
	})
}

// WithIdleTimeout sets the bound on each read and write on an established
// session.
// An error is returned if the value is outside the valid range (0.001-240
// seconds) or if the configuration is nil.
//
// The default value is node.DefaultIdleTimeout.
func WithIdleTimeout(val time.Duration) Option {
	return newOptFunc("WithIdleTimeout", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if val < time.Millisecond || val > 240*time.Second {
			return errors.New("idle timeout out of range [0.001, 240]")
		}
		cfg.idleTimeout = val

		return nil
	})
}

// WithEstablishRetryDelay sets the initiator's wait after a connect attempt
// fails with a transport error.
// An error is returned if the value is outside the valid range (0-240 seconds)
// or if the configuration is nil.
//
// The default value is node.DefaultEstablishRetryDelay.
func WithEstablishRetryDelay(val time.Duration) Option {
	return newOptFunc("WithEstablishRetryDelay", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if val < 0 || val > 240*time.Second {
			return errors.New("establish retry delay out of range [0, 240]")
		}
		cfg.establishRetryDelay = val

		return nil
	})
}

// WithExchangeInterval sets the initiator's pacing delay between writes.
// An error is returned if the value is outside the valid range (0-240 seconds)
// or if the configuration is nil.
//
// The default value is node.DefaultExchangeInterval.
func WithExchangeInterval(val time.Duration) Option {
	return newOptFunc("WithExchangeInterval", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if val < 0 || val > 240*time.Second {
			return errors.New("exchange interval out of range [0, 240]")
		}
		cfg.exchangeInterval = val

		return nil
	})
}

// WithConfigPollInterval sets the DHCP readiness poll interval.
// An error is returned if the value is outside the valid range (0.001-60
// seconds) or if the configuration is nil.
//
// The default value is node.DefaultConfigPollInterval.
func WithConfigPollInterval(val time.Duration) Option {
	return newOptFunc("WithConfigPollInterval", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if val < time.Millisecond || val > 60*time.Second {
			return errors.New("config poll interval out of range [0.001, 60]")
		}
		cfg.configPollInterval = val

		return nil
	})
}

// WithPayload sets the bytes the initiator writes on each exchange.
// An error is returned if the payload is empty or exceeds the buffer size.
//
// The default payload is DefaultPayload.
func WithPayload(payload []byte) Option {
	return newOptFunc("WithPayload", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if len(payload) == 0 {
			return errors.New("payload is empty")
		}
		if len(payload) > cfg.bufferSize {
			return errors.New("payload exceeds buffer size")
		}
		cfg.payload = payload

		return nil
	})
}

// WithBufferSize sets the capacity of the receive and transmit buffers.
// An error is returned if the value is outside the valid range (16-1048576
// bytes) or if the configuration is nil.
//
// The default value is DefaultBufferSize.
func WithBufferSize(size int) Option {
	return newOptFunc("WithBufferSize", func(cfg *Config) error {
		if cfg == nil {
			return node.ErrConfigNil
		}

		if size < 16 || size > 1<<20 {
			return errors.New("buffer size out of range [16, 1048576]")
		}
		cfg.bufferSize = size

		return nil
	})
}

// WithIndicator sets the indicator output toggled on responder establish
// failures.
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

// WithLogger sets the logger for session events.
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
