package wifi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/linknode/logger"
	"github.com/arloliu/linknode/node"
)

// fakeRadio is a scripted Radio driver: Join consumes joinResults in order and
// keeps returning the last entry once the script is exhausted.
type fakeRadio struct {
	mu          sync.Mutex
	joinResults []error
	joinCalls   atomic.Int32
	startCalls  atomic.Int32
	started     atomic.Bool
	disconnect  chan struct{}
}

var _ Radio = (*fakeRadio)(nil)

func newFakeRadio(joinResults ...error) *fakeRadio {
	return &fakeRadio{
		joinResults: joinResults,
		disconnect:  make(chan struct{}, 1),
	}
}

func (r *fakeRadio) Started() bool { return r.started.Load() }

func (r *fakeRadio) Start(_ context.Context, _ RadioConfig) error {
	r.startCalls.Add(1)
	r.started.Store(true)

	return nil
}

func (r *fakeRadio) Join(_ context.Context) error {
	r.joinCalls.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.joinResults) == 0 {
		return nil
	}

	res := r.joinResults[0]
	if len(r.joinResults) > 1 {
		r.joinResults = r.joinResults[1:]
	}

	return res
}

func (r *fakeRadio) WaitDisconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.disconnect:
		return nil
	}
}

func (r *fakeRadio) SetPowerSave(context.Context, bool) error { return nil }

func (r *fakeRadio) Capabilities() string { return "fake-radio" }

// recordingIndicator records every Set call for precise assertions.
type recordingIndicator struct {
	mu   sync.Mutex
	sets []bool
}

var _ node.Indicator = (*recordingIndicator)(nil)

func (i *recordingIndicator) Set(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sets = append(i.sets, on)
}

func (i *recordingIndicator) Sets() []bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]bool, len(i.sets))
	copy(out, i.sets)

	return out
}

func quietLogger() logger.Logger {
	return logger.NewSlog(logger.ErrorLevel, false)
}

func newTestManager(t *testing.T, ctx context.Context, radio Radio, opts ...Option) *Manager {
	t.Helper()

	opts = append([]Option{
		WithLogger(quietLogger()),
		WithJoinBackoff(10 * time.Millisecond),
	}, opts...)

	cfg, err := NewConfig("test-network", "test-passphrase", opts...)
	require.NoError(t, err)

	mgr, err := NewManager(ctx, cfg, radio)
	require.NoError(t, err)

	return mgr
}

func TestNewConfig_Validation(t *testing.T) {
	require := require.New(t)

	_, err := NewConfig("", "pass")
	require.Error(err)

	_, err = NewConfig("ssid", "pass", WithChannel(15))
	require.Error(err)

	_, err = NewConfig("ssid", "pass", WithJoinBackoff(time.Millisecond))
	require.Error(err)

	cfg, err := NewConfig("ssid", "pass",
		WithRole(node.Responder),
		WithChannel(5),
		WithJoinSilentThreshold(16),
		WithPowerSave(true),
	)
	require.NoError(err)
	require.Equal(node.Responder, cfg.role)
	require.Equal(5, cfg.channel)
}

func TestManager_EnsureStarted_Idempotent(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	radio := newFakeRadio()
	mgr := newTestManager(t, ctx, radio)

	require.True(mgr.EnsureStarted(ctx))
	require.Equal(int32(1), radio.startCalls.Load())
	require.Equal(node.StartingState, mgr.StateMgr().State())

	// second call does not reconfigure the radio
	require.True(mgr.EnsureStarted(ctx))
	require.Equal(int32(1), radio.startCalls.Load())
}

func TestManager_ResponderJoinStatusPolicy(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	radio := newFakeRadio(
		&JoinError{Status: 5},  // loggable, toggles indicator
		&JoinError{Status: 20}, // silent retry
		&JoinError{Status: 3},  // loggable, toggles indicator
		nil,                    // success
	)

	ind := &recordingIndicator{}
	mgr := newTestManager(t, ctx, radio, WithRole(node.Responder), WithIndicator(ind))

	for !mgr.StateMgr().IsConnected() {
		require.True(mgr.Supervise(ctx))
	}

	require.Equal(int32(4), radio.joinCalls.Load())
	require.Equal(uint64(3), mgr.GetMetrics().JoinFailCount.Load())
	require.Equal(uint32(0), mgr.GetMetrics().JoinRetryGauge.Load())

	// cleared at join start, two failure toggles (on, off), set on success
	require.Equal([]bool{false, true, false, true}, ind.Sets())
}

func TestManager_ResponderSilentStatusesNeverAbandon(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	radio := newFakeRadio(
		&JoinError{Status: 16},
		&JoinError{Status: 100},
		&JoinError{Status: 16},
		nil,
	)

	ind := &recordingIndicator{}
	mgr := newTestManager(t, ctx, radio, WithRole(node.Responder), WithIndicator(ind))

	for !mgr.StateMgr().IsConnected() {
		require.True(mgr.Supervise(ctx))
	}

	// silent statuses retried with no indicator activity between the join-start
	// clear and the association-success set
	require.Equal([]bool{false, true}, ind.Sets())
	require.Equal(int32(4), radio.joinCalls.Load())
}

func TestManager_InitiatorBackoffOnFailure(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	radio := newFakeRadio(errors.New("association refused"), nil)
	mgr := newTestManager(t, ctx, radio, WithJoinBackoff(50*time.Millisecond))

	begin := time.Now()
	require.True(mgr.Supervise(ctx)) // fails, sleeps the backoff
	require.GreaterOrEqual(time.Since(begin), 50*time.Millisecond)

	require.True(mgr.Supervise(ctx))
	require.True(mgr.StateMgr().IsConnected())
}

func TestManager_DisconnectRecovery(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	radio := newFakeRadio()
	ind := &recordingIndicator{}
	mgr := newTestManager(t, ctx, radio, WithIndicator(ind))

	require.True(mgr.Supervise(ctx))
	require.True(mgr.StateMgr().IsConnected())

	// drop the link; the next supervision iteration re-associates
	radio.disconnect <- struct{}{}
	require.True(mgr.Supervise(ctx))
	require.True(mgr.StateMgr().IsConnected())
	require.Equal(uint64(1), mgr.GetMetrics().DisconnectCount.Load())

	// indicator followed the association: cleared at start, on, off on loss, on again
	require.Equal([]bool{false, true, false, true}, ind.Sets())
}

func TestManager_SuperviseStopsOnContextDone(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	radio := newFakeRadio()
	mgr := newTestManager(t, ctx, radio)

	require.True(mgr.Supervise(ctx))
	require.True(mgr.StateMgr().IsConnected())

	cancel()
	require.False(mgr.Supervise(ctx))
}
