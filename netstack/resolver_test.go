package netstack

import (
	"context"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStack reports its configuration up after a fixed number of readiness polls.
type fakeStack struct {
	polls     atomic.Int32
	readyAt   int32
	hostname  string
	config    *NetworkConfig
	configSet atomic.Bool
}

var _ Stack = (*fakeStack)(nil)

func newFakeStack(readyAt int32) *fakeStack {
	addr := netip.MustParseAddr("192.168.1.20")

	return &fakeStack{
		readyAt:  readyAt,
		hostname: "test-node",
		config: &NetworkConfig{
			Address:    netip.PrefixFrom(addr, 24),
			Gateway:    netip.MustParseAddr("192.168.1.1"),
			DNSServers: []netip.Addr{netip.MustParseAddr("192.168.1.1")},
		},
	}
}

func (s *fakeStack) RunPump(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeStack) IsConfigUp() bool {
	if s.polls.Add(1) > s.readyAt {
		s.configSet.Store(true)
		return true
	}

	return false
}

func (s *fakeStack) ConfigV4() *NetworkConfig {
	if !s.configSet.Load() {
		return nil
	}

	return s.config
}

func (s *fakeStack) Dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

func (s *fakeStack) Listen(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", address)
}

func (s *fakeStack) Hostname() string { return s.hostname }

func TestAddressResolver_WaitForConfig(t *testing.T) {
	require := require.New(t)

	const pendingPolls = 5
	const pollInterval = 20 * time.Millisecond

	stack := newFakeStack(pendingPolls)
	resolver := NewAddressResolver(stack, pollInterval, nil)

	require.Nil(resolver.Config())

	begin := time.Now()
	err := resolver.WaitForConfig(context.Background())
	require.NoError(err)

	// the resolver suspends one poll interval per pending readiness check
	require.WithinDuration(
		begin.Add(pendingPolls*pollInterval), time.Now(), pollInterval,
	)

	cfg := resolver.Config()
	require.NotNil(cfg)
	require.Equal("192.168.1.20/24", cfg.Address.String())
	require.Equal("192.168.1.1", cfg.Gateway.String())
	require.Len(cfg.DNSServers, 1)
}

func TestAddressResolver_WaitForConfig_ImmediateWhenUp(t *testing.T) {
	require := require.New(t)

	stack := newFakeStack(0)
	resolver := NewAddressResolver(stack, 50*time.Millisecond, nil)

	begin := time.Now()
	require.NoError(resolver.WaitForConfig(context.Background()))
	require.Less(time.Since(begin), 10*time.Millisecond)
}

func TestAddressResolver_WaitForConfig_ContextCancel(t *testing.T) {
	require := require.New(t)

	stack := newFakeStack(1 << 30) // never ready
	resolver := NewAddressResolver(stack, 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := resolver.WaitForConfig(ctx)
	require.ErrorIs(err, context.DeadlineExceeded)
}

func TestHostStack_DialListen(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	stack := NewHostStack("test-node", "", nil)

	listener, err := stack.Listen(ctx, "127.0.0.1:0")
	require.NoError(err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	conn, err := stack.Dial(ctx, listener.Addr().String())
	require.NoError(err)
	defer conn.Close()

	select {
	case srvConn := <-accepted:
		srvConn.Close()
	case <-time.After(time.Second):
		t.Fatal("accept did not complete")
	}

	require.Equal("test-node", stack.Hostname())
}
