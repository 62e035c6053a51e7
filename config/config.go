// Package config provides YAML-based configuration loading for the node.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/arloliu/linknode/node"
	"github.com/arloliu/linknode/session"
)

// Config is the root node configuration.
type Config struct {
	// Role selects the node variant: initiator or responder.
	Role string `mapstructure:"role"`

	// Wifi holds wireless association parameters.
	Wifi WifiConfig `mapstructure:"wifi"`

	// Net holds addressing and network stack options.
	Net NetConfig `mapstructure:"net"`

	// Session holds session loop timing and payload options.
	Session SessionConfig `mapstructure:"session"`

	// Log holds logging configuration.
	Log LogConfig `mapstructure:"log"`
}

// WifiConfig defines the wireless association parameters. The network name
// and passphrase are opaque deployment strings, never inspected.
type WifiConfig struct {
	SSID       string `mapstructure:"ssid"`
	Passphrase string `mapstructure:"passphrase"`
	// Channel optionally pins the wireless channel; zero lets the driver scan.
	Channel int `mapstructure:"channel"`
	// PowerSave enables aggressive radio power management.
	PowerSave bool `mapstructure:"power_save"`
	// JoinBackoffMS is the wait after a failed association attempt.
	JoinBackoffMS int `mapstructure:"join_backoff_ms"`
	// JoinSilentThreshold is the driver status code splitting loggable from
	// silent join-failure retries. An opaque driver policy value.
	JoinSilentThreshold uint32 `mapstructure:"join_silent_threshold"`
	// Interface restricts link supervision to the named OS interface.
	Interface string `mapstructure:"interface"`
}

// NetConfig contains addressing options.
type NetConfig struct {
	// Hostname is supplied to the DHCP client.
	Hostname string `mapstructure:"hostname"`
	// RemoteHost is the endpoint the initiator dials.
	RemoteHost string `mapstructure:"remote_host"`
	// RemotePort is the fixed TCP port the initiator dials.
	RemotePort int `mapstructure:"remote_port"`
	// ListenPort is the fixed TCP port the responder accepts on.
	ListenPort int `mapstructure:"listen_port"`
	// ConfigPollMS is the DHCP readiness poll interval.
	ConfigPollMS int `mapstructure:"config_poll_ms"`
}

// SessionConfig contains session loop timing and payload options.
type SessionConfig struct {
	EstablishTimeoutMS    int    `mapstructure:"establish_timeout_ms"`
	IdleTimeoutMS         int    `mapstructure:"idle_timeout_ms"`
	EstablishRetryDelayMS int    `mapstructure:"establish_retry_delay_ms"`
	ExchangeIntervalMS    int    `mapstructure:"exchange_interval_ms"`
	Payload               string `mapstructure:"payload"`
	BufferSize            int    `mapstructure:"buffer_size"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Backend: slog or zap
	Backend string `mapstructure:"backend"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`
	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with the node's fixed timing defaults.
func Default() *Config {
	return &Config{
		Role: "initiator",
		Wifi: WifiConfig{
			JoinBackoffMS:       int(node.DefaultLinkRetryDelay / time.Millisecond),
			JoinSilentThreshold: node.JoinStatusSilentRetry,
		},
		Net: NetConfig{
			Hostname:     "linknode",
			RemotePort:   session.DefaultPort,
			ListenPort:   session.DefaultPort,
			ConfigPollMS: int(node.DefaultConfigPollInterval / time.Millisecond),
		},
		Session: SessionConfig{
			EstablishTimeoutMS:    int(node.DefaultEstablishTimeout / time.Millisecond),
			IdleTimeoutMS:         int(node.DefaultIdleTimeout / time.Millisecond),
			EstablishRetryDelayMS: int(node.DefaultEstablishRetryDelay / time.Millisecond),
			ExchangeIntervalMS:    int(node.DefaultExchangeInterval / time.Millisecond),
			Payload:               session.DefaultPayload,
			BufferSize:            session.DefaultBufferSize,
		},
		Log: LogConfig{
			Level:   "info",
			Backend: "slog",
			Format:  "console",
			Outputs: []string{"stdout"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/linknode.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides.
// Environment variables use the prefix LINKNODE and `.`/`-` are replaced
// with `_`. Example: LINKNODE_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LINKNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("role", cfg.Role)
	v.SetDefault("wifi.ssid", cfg.Wifi.SSID)
	v.SetDefault("wifi.passphrase", cfg.Wifi.Passphrase)
	v.SetDefault("wifi.channel", cfg.Wifi.Channel)
	v.SetDefault("wifi.power_save", cfg.Wifi.PowerSave)
	v.SetDefault("wifi.join_backoff_ms", cfg.Wifi.JoinBackoffMS)
	v.SetDefault("wifi.join_silent_threshold", cfg.Wifi.JoinSilentThreshold)
	v.SetDefault("wifi.interface", cfg.Wifi.Interface)
	v.SetDefault("net.hostname", cfg.Net.Hostname)
	v.SetDefault("net.remote_host", cfg.Net.RemoteHost)
	v.SetDefault("net.remote_port", cfg.Net.RemotePort)
	v.SetDefault("net.listen_port", cfg.Net.ListenPort)
	v.SetDefault("net.config_poll_ms", cfg.Net.ConfigPollMS)
	v.SetDefault("session.establish_timeout_ms", cfg.Session.EstablishTimeoutMS)
	v.SetDefault("session.idle_timeout_ms", cfg.Session.IdleTimeoutMS)
	v.SetDefault("session.establish_retry_delay_ms", cfg.Session.EstablishRetryDelayMS)
	v.SetDefault("session.exchange_interval_ms", cfg.Session.ExchangeIntervalMS)
	v.SetDefault("session.payload", cfg.Session.Payload)
	v.SetDefault("session.buffer_size", cfg.Session.BufferSize)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.backend", cfg.Log.Backend)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("LINKNODE_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("linknode")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".linknode"))
		}
	}

	// read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) validate() error {
	role := strings.ToLower(strings.TrimSpace(c.Role))
	switch role {
	case "initiator", "responder":
		c.Role = role
	default:
		return fmt.Errorf("invalid role: %q", c.Role)
	}

	if c.Wifi.Channel < 0 || c.Wifi.Channel > 14 {
		return fmt.Errorf("invalid wifi.channel: %d", c.Wifi.Channel)
	}

	if c.Net.RemotePort < 1 || c.Net.RemotePort > 65535 {
		return fmt.Errorf("invalid net.remote_port: %d", c.Net.RemotePort)
	}
	if c.Net.ListenPort < 1 || c.Net.ListenPort > 65535 {
		return fmt.Errorf("invalid net.listen_port: %d", c.Net.ListenPort)
	}

	if role == "initiator" && strings.TrimSpace(c.Net.RemoteHost) == "" {
		return errors.New("net.remote_host is required for the initiator role")
	}

	if c.Session.Payload == "" {
		return errors.New("session.payload is empty")
	}

	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	backend := strings.ToLower(strings.TrimSpace(c.Log.Backend))
	switch backend {
	case "slog", "zap":
		c.Log.Backend = backend
	default:
		return fmt.Errorf("invalid log.backend: %q", c.Log.Backend)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	return nil
}

// NodeRole returns the typed role of the node.
func (c *Config) NodeRole() node.Role {
	if c.Role == "responder" {
		return node.Responder
	}

	return node.Initiator
}

// RemoteAddress returns the initiator's dial target in host:port form.
func (c *Config) RemoteAddress() string {
	return net.JoinHostPort(c.Net.RemoteHost, strconv.Itoa(c.Net.RemotePort))
}

// ListenAddress returns the responder's listen address on all interfaces.
func (c *Config) ListenAddress() string {
	return ":" + strconv.Itoa(c.Net.ListenPort)
}

// JoinBackoff returns the association retry backoff as a duration.
func (c *Config) JoinBackoff() time.Duration {
	return time.Duration(c.Wifi.JoinBackoffMS) * time.Millisecond
}

// ConfigPollInterval returns the DHCP readiness poll interval as a duration.
func (c *Config) ConfigPollInterval() time.Duration {
	return time.Duration(c.Net.ConfigPollMS) * time.Millisecond
}

// EstablishTimeout returns the connect/accept bound as a duration.
func (c *Config) EstablishTimeout() time.Duration {
	return time.Duration(c.Session.EstablishTimeoutMS) * time.Millisecond
}

// IdleTimeout returns the per-operation session bound as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMS) * time.Millisecond
}

// EstablishRetryDelay returns the initiator's connect retry delay as a duration.
func (c *Config) EstablishRetryDelay() time.Duration {
	return time.Duration(c.Session.EstablishRetryDelayMS) * time.Millisecond
}

// ExchangeInterval returns the initiator's pacing delay as a duration.
func (c *Config) ExchangeInterval() time.Duration {
	return time.Duration(c.Session.ExchangeIntervalMS) * time.Millisecond
}
