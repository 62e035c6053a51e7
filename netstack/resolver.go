package netstack

import (
	"context"
	"time"

	"github.com/arloliu/linknode/internal/pool"
	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/node"
)

// AddressResolver surfaces the assigned network configuration once the stack
// reports it available. Waiting is cooperative: the calling task suspends on a
// timer between readiness polls instead of spinning.
type AddressResolver struct {
	stack        Stack
	logger       logger.Logger
	pollInterval time.Duration
}

// NewAddressResolver creates an AddressResolver polling the given stack.
// A non-positive pollInterval falls back to node.DefaultConfigPollInterval.
func NewAddressResolver(stack Stack, pollInterval time.Duration, l logger.Logger) *AddressResolver {
	if pollInterval <= 0 {
		pollInterval = node.DefaultConfigPollInterval
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &AddressResolver{
		stack:        stack,
		logger:       l,
		pollInterval: pollInterval,
	}
}

// WaitForConfig blocks until the stack reports its configuration up, polling
// on the resolver's interval, or until the context is done.
func (r *AddressResolver) WaitForConfig(ctx context.Context) error {
	for !r.stack.IsConfigUp() {
		timer := pool.GetTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			pool.PutTimer(timer)
			return ctx.Err()
		case <-timer.C:
		}
		pool.PutTimer(timer)
	}

	return nil
}

// Config returns the current configuration snapshot, or nil when no
// configuration is assigned. Absence is non-fatal by contract; callers proceed
// and let the subsequent connect or accept attempt fail and retry.
func (r *AddressResolver) Config() *NetworkConfig {
	return r.stack.ConfigV4()
}

// LogSnapshot logs the current configuration, or a warning when none is
// assigned yet.
func (r *AddressResolver) LogSnapshot() {
	cfg := r.stack.ConfigV4()
	if cfg == nil {
		r.logger.Warn("network configuration not assigned yet")
		return
	}

	r.logger.Info("network configuration",
		"address", cfg.Address,
		"gateway", cfg.Gateway,
		"dns_servers", cfg.DNSServers,
	)
}
