package netstack

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/arloliu/linknode/logger"
)

// NetworkConfig is a snapshot of the assigned IPv4 network configuration.
// It may legitimately be absent while the device is still usable; callers must
// treat a nil snapshot as non-fatal.
type NetworkConfig struct {
	// Address is the assigned IPv4 address with its prefix length.
	Address netip.Prefix
	// Gateway is the default gateway, zero when the platform does not expose it.
	Gateway netip.Addr
	// DNSServers lists the assigned name-resolution servers, empty when the
	// platform does not expose them.
	DNSServers []netip.Addr
}

// Stack is the handle to the underlying network stack. It is shared between
// the packet pump task and the session task; implementations must synchronize
// internally, callers take no lock.
type Stack interface {
	// RunPump drives the stack's packet processing. It blocks until the context
	// is done and is intended to run as a dedicated task.
	RunPump(ctx context.Context) error

	// IsConfigUp reports whether the stack has acquired its network configuration.
	IsConfigUp() bool

	// ConfigV4 returns the current configuration snapshot, or nil when no
	// configuration has been assigned yet.
	ConfigV4() *NetworkConfig

	// Dial opens an outbound TCP connection to address, bounded by ctx.
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Listen creates a TCP listener on address.
	Listen(ctx context.Context, address string) (net.Listener, error)

	// Hostname returns the device hostname supplied to the DHCP client.
	Hostname() string
}

// HostStack implements Stack on top of the operating system network stack.
// The kernel moves packets and runs the DHCP client; RunPump only pins the
// stack's lifetime to the node context.
type HostStack struct {
	hostname string
	iface    string // restrict config lookup to this interface when non-empty
	logger   logger.Logger
	dialer   net.Dialer
}

var _ Stack = (*HostStack)(nil)

// NewHostStack creates a host-backed Stack with the given DHCP hostname.
// iface restricts configuration lookup to the named interface; pass an empty
// string to consider every non-loopback interface.
func NewHostStack(hostname string, iface string, l logger.Logger) *HostStack {
	if l == nil {
		l = logger.GetLogger()
	}

	return &HostStack{
		hostname: hostname,
		iface:    iface,
		logger:   l,
		dialer:   net.Dialer{KeepAlive: 30 * time.Second},
	}
}

// RunPump blocks until the context is done. The host kernel performs the
// actual packet processing.
func (s *HostStack) RunPump(ctx context.Context) error {
	s.logger.Debug("host stack pump started", "hostname", s.hostname)
	<-ctx.Done()

	return ctx.Err()
}

// IsConfigUp reports whether an IPv4 address is assigned on a usable interface.
func (s *HostStack) IsConfigUp() bool {
	return s.ConfigV4() != nil
}

// ConfigV4 scans the host interfaces for the first assigned global IPv4
// address and returns it as a snapshot. Gateway and DNS servers are zero
// valued; the host platform does not expose them portably.
func (s *HostStack) ConfigV4() *NetworkConfig {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if s.iface != "" && iface.Name != s.iface {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}

			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}

			nip, ok := netip.AddrFromSlice(ip4)
			if !ok {
				continue
			}

			ones, _ := ipNet.Mask.Size()

			return &NetworkConfig{Address: netip.PrefixFrom(nip, ones)}
		}
	}

	return nil
}

// Dial opens an outbound TCP connection bounded by ctx.
func (s *HostStack) Dial(ctx context.Context, address string) (net.Conn, error) {
	return s.dialer.DialContext(ctx, "tcp", address)
}

// Listen creates a TCP listener on address.
func (s *HostStack) Listen(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", address)
}

// Hostname returns the device hostname supplied to the DHCP client.
func (s *HostStack) Hostname() string { return s.hostname }
