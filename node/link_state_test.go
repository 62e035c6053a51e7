package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinkStateTransitions(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()

	t.Run("Initial State", func(t *testing.T) {
		m := NewLinkStateMgr(ctx, nil)
		require.Equal(NotStartedState, m.State())
		require.True(m.State().IsNotStarted())
	})

	t.Run("ToStarting", func(t *testing.T) {
		stateChangeCount := 0
		m := NewLinkStateMgr(ctx, nil)
		m.AddHandler(func(prevState LinkState, newState LinkState) { stateChangeCount++ })

		require.NoError(m.ToStarting())
		require.Equal(StartingState, m.State())
		require.Equal(1, stateChangeCount)
		require.True(m.State().IsStarting())

		// No-op transition when already in StartingState
		require.NoError(m.ToStarting())
		require.Equal(1, stateChangeCount)

		// Invalid transition from ConnectedState back to StartingState
		require.NoError(m.ToConnected())
		require.Equal(2, stateChangeCount)
		require.ErrorIs(m.ToStarting(), ErrInvalidTransition)

		// Allowed again after the link drops
		require.NoError(m.ToDisconnected())
		require.Equal(3, stateChangeCount)
		require.NoError(m.ToStarting())
		require.Equal(StartingState, m.State())
		require.Equal(4, stateChangeCount)
	})

	t.Run("ToConnected", func(t *testing.T) {
		stateChangeCount := 0
		m := NewLinkStateMgr(ctx, nil)
		m.AddHandler(func(prevState LinkState, newState LinkState) { stateChangeCount++ })

		// Invalid transition from NotStartedState to ConnectedState
		require.ErrorIs(m.ToConnected(), ErrInvalidTransition)
		require.Equal(0, stateChangeCount)

		require.NoError(m.ToStarting())
		require.Equal(1, stateChangeCount)

		require.NoError(m.ToConnected())
		require.Equal(ConnectedState, m.State())
		require.Equal(2, stateChangeCount)
		require.True(m.IsConnected())

		// No-op transition when already in ConnectedState
		require.NoError(m.ToConnected())
		require.Equal(2, stateChangeCount)
	})

	t.Run("ToDisconnected", func(t *testing.T) {
		stateChangeCount := 0
		m := NewLinkStateMgr(ctx, nil)
		m.AddHandler(func(prevState LinkState, newState LinkState) { stateChangeCount++ })

		// Invalid transition before the link ever associated
		require.ErrorIs(m.ToDisconnected(), ErrInvalidTransition)

		require.NoError(m.ToStarting())
		require.NoError(m.ToConnected())
		require.Equal(2, stateChangeCount)

		require.NoError(m.ToDisconnected())
		require.Equal(DisconnectedState, m.State())
		require.Equal(3, stateChangeCount)
		require.True(m.State().IsDisconnected())

		// No-op transition when already in DisconnectedState
		require.NoError(m.ToDisconnected())
		require.Equal(3, stateChangeCount)
	})

	t.Run("Handler Sees Prev And New", func(t *testing.T) {
		var gotPrev, gotNew LinkState
		m := NewLinkStateMgr(ctx, nil, func(prevState LinkState, newState LinkState) {
			gotPrev = prevState
			gotNew = newState
		})

		require.NoError(m.ToStarting())
		require.Equal(NotStartedState, gotPrev)
		require.Equal(StartingState, gotNew)
	})
}

func TestLinkStateString(t *testing.T) {
	require := require.New(t)

	require.Equal("not-started", NotStartedState.String())
	require.Equal("starting", StartingState.String())
	require.Equal("connected", ConnectedState.String())
	require.Equal("disconnected", DisconnectedState.String())
	require.Equal("unknown", LinkState(99).String())
}

func TestWaitLinkState(t *testing.T) {
	require := require.New(t)

	m := NewLinkStateMgr(context.Background(), nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = m.ToStarting()
	}()

	begin := time.Now()
	ctx, cancel := context.WithTimeout(context.TODO(), 100*time.Millisecond)
	defer cancel()

	err := m.WaitState(ctx, StartingState)
	require.NoError(err)

	// wait StartingState again
	err = m.WaitState(ctx, StartingState)
	require.NoError(err)

	err = m.WaitState(ctx, ConnectedState)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.WithinDuration(begin.Add(100*time.Millisecond), time.Now(), 20*time.Millisecond)
}

func TestLinkStateAsyncTransitions(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewLinkStateMgr(ctx, nil)

	require.NoError(m.ToStarting())
	require.NoError(m.ToConnected())

	// a disconnect notification resolves in the background
	m.ToDisconnectedAsync()
	require.NoError(m.WaitState(ctx, DisconnectedState))

	// a duplicate notification is a no-op
	m.ToDisconnectedAsync()
	require.Equal(DisconnectedState, m.State())

	// the link restarts and the next drop resolves the same way
	require.NoError(m.ToStarting())
	require.NoError(m.ToConnected())
	m.ToDisconnectedAsync()

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	require.NoError(m.WaitState(waitCtx, DisconnectedState))
}
