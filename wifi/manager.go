package wifi

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/arloliu/linknode/internal/pool"
	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/node"
)

// Manager keeps the wireless link associated with the target network, forever.
//
// It owns the link state machine and drives the indicator output: the
// indicator is set on association success and cleared on loss; responder-role
// join failures below the silent threshold toggle it.
//
// Run the supervision loop as a task body:
//
//	taskMgr.Start("linkTask", func() bool { return mgr.Supervise(ctx) })
type Manager struct {
	cfg      *Config
	radio    Radio
	stateMgr *node.LinkStateMgr
	logger   logger.Logger

	capsLogged atomic.Bool
	indOn      atomic.Bool

	metrics Metrics
}

// Metrics contains atomic metrics for link supervision.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// JoinRetryGauge indicates the number of consecutive failed association attempts.
	JoinRetryGauge atomic.Uint32
	// JoinFailCount indicates the total number of failed association attempts.
	JoinFailCount atomic.Uint64
	// DisconnectCount indicates the number of association losses.
	DisconnectCount atomic.Uint64
}

// NewManager creates a link Manager over the given radio driver.
// Returns an error if the configuration or the radio is nil.
func NewManager(ctx context.Context, cfg *Config, radio Radio) (*Manager, error) {
	if cfg == nil {
		return nil, node.ErrConfigNil
	}
	if radio == nil {
		return nil, node.ErrRadioNil
	}

	mgr := &Manager{
		cfg:    cfg,
		radio:  radio,
		logger: cfg.logger,
	}

	mgr.stateMgr = node.NewLinkStateMgr(ctx, cfg.logger, mgr.linkStateHandler)

	return mgr, nil
}

// StateMgr returns the link state machine owned by the manager.
func (m *Manager) StateMgr() *node.LinkStateMgr {
	return m.stateMgr
}

// GetMetrics returns the metrics associated with link supervision.
func (m *Manager) GetMetrics() *Metrics {
	return &m.metrics
}

// EnsureStarted idempotently brings the radio into an active state, applying
// the association parameters on the first call. It returns true when the
// radio is active, false when starting failed; failures are logged and left
// to the supervision loop to retry.
func (m *Manager) EnsureStarted(ctx context.Context) bool {
	if m.radio.Started() {
		return true
	}

	radioCfg := RadioConfig{
		SSID:       m.cfg.ssid,
		Passphrase: m.cfg.passphrase,
		Channel:    m.cfg.channel,
	}

	m.logger.Info("starting wifi")
	if err := m.radio.Start(ctx, radioCfg); err != nil {
		m.logger.Error("failed to start wifi", "error", err)
		return false
	}
	m.logger.Info("wifi started")

	if m.cfg.powerSave {
		if err := m.radio.SetPowerSave(ctx, true); err != nil {
			m.logger.Warn("failed to set radio power management", "error", err)
		}
	}

	if m.capsLogged.CompareAndSwap(false, true) {
		m.logger.Info("device capabilities", "capabilities", m.radio.Capabilities())
	}

	_ = m.stateMgr.ToStarting()

	return true
}

// Connect performs one association attempt and transitions the link state on
// success. The returned error is the radio driver's failure, possibly a
// *JoinError carrying a status code.
func (m *Manager) Connect(ctx context.Context) error {
	_ = m.stateMgr.ToStarting()

	if err := m.radio.Join(ctx); err != nil {
		m.metrics.JoinRetryGauge.Add(1)
		m.metrics.JoinFailCount.Add(1)

		return err
	}

	m.metrics.JoinRetryGauge.Store(0)
	_ = m.stateMgr.ToConnected()

	return nil
}

// Supervise runs one iteration of the link supervision loop and reports
// whether the loop should continue. It suspends on a disconnect notification
// while the link is associated and otherwise drives start and association
// attempts with the role's failure policy. It returns false only when the
// context is done.
func (m *Manager) Supervise(ctx context.Context) bool {
	if m.stateMgr.IsConnected() {
		if err := m.radio.WaitDisconnect(ctx); err != nil && ctx.Err() != nil {
			return false
		}

		m.metrics.DisconnectCount.Add(1)
		m.logger.Warn("wifi link lost")

		// hand the transition to the state manager's background goroutine and
		// wait for it to land before attempting to re-associate
		m.stateMgr.ToDisconnectedAsync()
		if err := m.stateMgr.WaitState(ctx, node.DisconnectedState); err != nil {
			return false
		}

		if !m.sleep(ctx, m.cfg.joinBackoff) {
			return false
		}
	}

	if ctx.Err() != nil {
		return false
	}

	if !m.EnsureStarted(ctx) {
		return m.sleep(ctx, m.cfg.joinBackoff)
	}

	m.logger.Info("about to connect", "ssid_len", len(m.cfg.ssid))

	err := m.Connect(ctx)
	if err == nil {
		m.logger.Info("wifi connected")
		return true
	}

	if ctx.Err() != nil {
		return false
	}

	if m.cfg.role.IsResponder() {
		var joinErr *JoinError
		if errors.As(err, &joinErr) && joinErr.Status >= m.cfg.silentThreshold {
			// routine driver status, retry without indicator or log noise
			return true
		}

		m.toggleIndicator()
		m.logger.Info("join failed", "error", err)

		return true
	}

	m.logger.Warn("failed to connect to wifi", "error", err)

	return m.sleep(ctx, m.cfg.joinBackoff)
}

// linkStateHandler drives the indicator from link state changes. The
// indicator starts cleared when joining begins, is set on association success
// and cleared again on loss.
func (m *Manager) linkStateHandler(prevState node.LinkState, newState node.LinkState) {
	switch newState {
	case node.ConnectedState:
		m.indOn.Store(true)
		m.cfg.indicator.Set(true)
	case node.DisconnectedState:
		m.indOn.Store(false)
		m.cfg.indicator.Set(false)
	case node.StartingState:
		if prevState.IsNotStarted() {
			m.indOn.Store(false)
			m.cfg.indicator.Set(false)
		}
	case node.NotStartedState:
		// no indicator change
	}
}

// toggleIndicator flips the indicator output, used for loggable join failures
// in the responder role.
func (m *Manager) toggleIndicator() {
	on := !m.indOn.Load()
	m.indOn.Store(on)
	m.cfg.indicator.Set(on)
}

// sleep suspends for d or until the context is done, returning false on
// context cancellation.
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
