package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/node"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "linknode.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	require := require.New(t)

	path := writeConfigFile(t, `
role: responder
wifi:
  ssid: test-network
  passphrase: test-passphrase
`)

	cfg, err := Load(path)
	require.NoError(err)

	require.Equal(node.Responder, cfg.NodeRole())
	require.Equal("test-network", cfg.Wifi.SSID)
	require.Equal(node.JoinStatusSilentRetry, cfg.Wifi.JoinSilentThreshold)
	require.Equal(":1234", cfg.ListenAddress())
	require.Equal(5000*time.Millisecond, cfg.EstablishTimeout())
	require.Equal(5000*time.Millisecond, cfg.IdleTimeout())
	require.Equal(1000*time.Millisecond, cfg.EstablishRetryDelay())
	require.Equal(1000*time.Millisecond, cfg.ExchangeInterval())
	require.Equal(100*time.Millisecond, cfg.ConfigPollInterval())
	require.Equal(5000*time.Millisecond, cfg.JoinBackoff())
	require.Equal("Hello", cfg.Session.Payload)
	require.Equal(4096, cfg.Session.BufferSize)
	require.Equal("slog", cfg.Log.Backend)
}

func TestLoad_FileOverrides(t *testing.T) {
	require := require.New(t)

	path := writeConfigFile(t, `
role: initiator
wifi:
  ssid: test-network
  passphrase: test-passphrase
  channel: 6
  power_save: true
net:
  hostname: unit-node
  remote_host: 192.168.1.2
  remote_port: 4321
session:
  establish_timeout_ms: 1500
  payload: Ping
log:
  level: debug
  backend: zap
  format: json
  outputs: [stderr]
`)

	cfg, err := Load(path)
	require.NoError(err)

	require.Equal(node.Initiator, cfg.NodeRole())
	require.Equal(6, cfg.Wifi.Channel)
	require.True(cfg.Wifi.PowerSave)
	require.Equal("unit-node", cfg.Net.Hostname)
	require.Equal("192.168.1.2:4321", cfg.RemoteAddress())
	require.Equal(1500*time.Millisecond, cfg.EstablishTimeout())
	require.Equal("Ping", cfg.Session.Payload)
	require.Equal("zap", cfg.Log.Backend)
	require.Equal([]string{"stderr"}, cfg.Log.Outputs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	require := require.New(t)

	path := writeConfigFile(t, `
role: responder
wifi:
  ssid: test-network
`)

	t.Setenv("LINKNODE_LOG_LEVEL", "error")
	t.Setenv("LINKNODE_NET_LISTEN_PORT", "2345")

	cfg, err := Load(path)
	require.NoError(err)

	require.Equal("error", cfg.Log.Level)
	require.Equal(":2345", cfg.ListenAddress())
}

func TestLoad_Validation(t *testing.T) {
	require := require.New(t)

	// initiator requires a remote host
	_, err := Load(writeConfigFile(t, "role: initiator\n"))
	require.Error(err)

	_, err = Load(writeConfigFile(t, "role: gateway\n"))
	require.Error(err)

	_, err = Load(writeConfigFile(t, `
role: responder
net:
  listen_port: 0
`))
	require.Error(err)

	_, err = Load(writeConfigFile(t, `
role: responder
log:
  level: loud
`))
	require.Error(err)

	_, err = Load(writeConfigFile(t, `
role: responder
log:
  backend: logrus
`))
	require.Error(err)

	_, err = Load(writeConfigFile(t, `
role: responder
wifi:
  channel: 15
`))
	require.Error(err)
}

func TestNewLogger_Backends(t *testing.T) {
	require := require.New(t)

	cfg := Default()
	cfg.Log.Level = "debug"
	l := NewLogger(cfg)
	require.NotNil(l)
	require.Equal(logger.DebugLevel, l.Level())

	cfg.Log.Backend = "zap"
	cfg.Log.Level = "warn"
	l = NewLogger(cfg)
	require.NotNil(l)
	require.Equal(logger.WarnLevel, l.Level())
}
