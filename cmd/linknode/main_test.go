package main

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/linknode/config"
)

func freePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

// The link manager and the session loop must drive the same indicator: the
// link layer clears it when the radio starts, and the session layer toggles
// it on responder establish failures.
func TestBuildResources_SharedIndicator(t *testing.T) {
	require := require.New(t)

	cfg := config.Default()
	cfg.Role = "responder"
	cfg.Wifi.SSID = "test-network"
	cfg.Net.ListenPort = freePort(t)
	cfg.Session.EstablishTimeoutMS = 50
	cfg.Log.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := buildResources(ctx, cfg)
	require.NoError(err)
	defer res.loop.Close()

	// starting the radio clears the indicator through the link manager
	require.True(res.linkMgr.EnsureStarted(ctx))
	require.Equal(uint64(1), res.ind.SetOps())
	require.False(res.ind.On())

	// a timed-out accept toggles the same indicator through the session loop
	require.True(res.loop.Run(ctx))
	require.Equal(uint64(2), res.ind.SetOps())
	require.True(res.ind.On())
}
