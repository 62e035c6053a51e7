package node

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/linknode/logger"
)

// LinkState represents the various stages of the wireless link.
type LinkState uint32

// Wireless link states.
const (
	// NotStartedState indicates that the radio has not been brought up.
	NotStartedState LinkState = iota
	// StartingState indicates that the radio is active and association is in progress.
	StartingState
	// ConnectedState indicates that the link is associated and usable.
	ConnectedState
	// DisconnectedState indicates that a previously associated link has been lost.
	DisconnectedState
)

// IsNotStarted returns if the current state is not started.
func (ls LinkState) IsNotStarted() bool { return ls == NotStartedState }

// IsStarting returns if the current state is starting.
func (ls LinkState) IsStarting() bool { return ls == StartingState }

// IsConnected returns if the current state is connected.
func (ls LinkState) IsConnected() bool { return ls == ConnectedState }

// IsDisconnected returns if the current state is disconnected.
func (ls LinkState) IsDisconnected() bool { return ls == DisconnectedState }

// String returns string representation of the current state.
func (ls LinkState) String() string {
	switch ls {
	case NotStartedState:
		return "not-started"
	case StartingState:
		return "starting"
	case ConnectedState:
		return "connected"
	case DisconnectedState:
		return "disconnected"
	default:
		return "unknown"
	}
}

// LinkStateChangeHandler is a function type that represents a handler for link state changes.
// It is invoked when the state of the wireless link changes.
//
// Note: the handler will be invoked in a blocking mode. Take care with long-running implementations.
//
// The handler function receives two arguments:
//   - prevState: The previous link state.
//   - newState: The current link state.
type LinkStateChangeHandler func(prevState LinkState, newState LinkState)

// LinkStateMgr manages the state of the wireless link.
//
// It provides methods for managing state transitions and notifying listeners of state changes.
// The state transitions are thread safe in concurrent environments.
type LinkStateMgr struct {
	mu               sync.Mutex
	ctx              context.Context
	cond             *sync.Cond
	state            atomic.Uint32
	logger           logger.Logger
	asyncStateChange chan LinkState
	handlers         []LinkStateChangeHandler
}

// NewLinkStateMgr creates a new LinkStateMgr instance, initializing it to the NotStartedState.
//
// It accepts optional LinkStateChangeHandler functions that will be invoked when the link state changes.
func NewLinkStateMgr(ctx context.Context, l logger.Logger, handlers ...LinkStateChangeHandler) *LinkStateMgr {
	mgr := &LinkStateMgr{
		ctx:              ctx,
		asyncStateChange: make(chan LinkState, 10),
		handlers:         make([]LinkStateChangeHandler, 0, len(handlers)),
	}

	mgr.handlers = append(mgr.handlers, handlers...)

	if l != nil {
		mgr.logger = l
	} else {
		mgr.logger = logger.GetLogger()
	}

	mgr.state.Store(uint32(NotStartedState))
	mgr.cond = sync.NewCond(&mgr.mu)

	go mgr.asyncStateChangeTask()

	return mgr
}

// State returns the current link state.
func (m *LinkStateMgr) State() LinkState {
	return LinkState(m.state.Load())
}

// AddHandler adds one or more LinkStateChangeHandler functions to be invoked on state changes.
func (m *LinkStateMgr) AddHandler(handlers ...LinkStateChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handlers...)
}

// WaitState waits for the link state to reach the specified state or until the context is done.
// It returns nil if the desired state is reached, or an error if the context is canceled or times out.
func (m *LinkStateMgr) WaitState(ctx context.Context, state LinkState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		m.cond.Broadcast()
	})
	defer stopFunc()

	for m.State() != state {
		select {
		case <-ctx.Done():
			m.logger.Debug("wait link state receive ctx done", "cur_state", m.State(), "desired_state", state)
			return ctx.Err()
		default:
			m.cond.Wait()
		}
	}

	return nil
}

// ToStarting transitions the link state to StartingState.
//
// This transition is allowed from the NotStartedState and the DisconnectedState.
// If the state is already StartingState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition if the link is currently connected.
func (m *LinkStateMgr) ToStarting() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	curState := m.State()

	if curState.IsStarting() {
		return nil // Already in StartingState, No-op
	}

	if curState.IsConnected() {
		return ErrInvalidTransition
	}

	m.invokeHandlers(curState, StartingState)
	// change state after all handlers finished
	m.setState(StartingState)

	return nil
}

// ToConnected transitions the link state to ConnectedState.
//
// This transition is only allowed from the StartingState and indicates that the
// link is associated and ready for socket traffic.
// If the state is already ConnectedState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition if the current state is not StartingState.
func (m *LinkStateMgr) ToConnected() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	curState := m.State()

	if curState.IsConnected() {
		return nil // Already in ConnectedState, No-op
	}

	if !curState.IsStarting() {
		return ErrInvalidTransition
	}

	m.invokeHandlers(curState, ConnectedState)
	// change state after all handlers finished
	m.setState(ConnectedState)

	return nil
}

// ToDisconnected transitions the link state to DisconnectedState.
//
// This transition is only allowed from the ConnectedState and represents the loss
// of an associated link.
// If the state is already DisconnectedState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition if the current state is not ConnectedState.
func (m *LinkStateMgr) ToDisconnected() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	curState := m.State()

	if curState.IsDisconnected() {
		return nil // Already in DisconnectedState, No-op
	}

	if !curState.IsConnected() {
		return ErrInvalidTransition
	}

	m.invokeHandlers(curState, DisconnectedState)
	m.setState(DisconnectedState)

	return nil
}

// ToDisconnectedAsync transitions the link state to DisconnectedState asynchronously.
//
// It notifies a background goroutine and returns immediately; pair it with
// WaitState to observe the completed transition. Disconnect is the only
// transition handed over asynchronously because it originates from the radio
// driver's notification rather than from the supervision loop itself.
//
// If the state is already DisconnectedState, the function is a no-op.
func (m *LinkStateMgr) ToDisconnectedAsync() {
	m.changeStateAsync(DisconnectedState)
}

// IsConnected returns if the current state is connected.
func (m *LinkStateMgr) IsConnected() bool {
	return m.State().IsConnected()
}

// setState atomically set current state to the newState. It also broadcasts a signal to any waiting goroutines.
func (m *LinkStateMgr) setState(newState LinkState) {
	m.state.Store(uint32(newState))
	m.cond.Broadcast()
}

// invokeHandlers invokes all registered LinkStateChangeHandler functions with the previous and new states.
func (m *LinkStateMgr) invokeHandlers(prevState LinkState, newState LinkState) {
	for _, handler := range m.handlers {
		if handler != nil {
			handler(prevState, newState)
		}
	}
}

// changeStateAsync transitions the desired link state asynchronously.
//
// If the state is the same as the current state, the function is a no-op.
func (m *LinkStateMgr) changeStateAsync(state LinkState) {
	if m.State() == state {
		return
	}

	m.asyncStateChange <- state
}

// asyncStateChangeTask handles state changing in the background.
func (m *LinkStateMgr) asyncStateChangeTask() {
	defer m.logger.Debug("asyncStateChangeTask terminated")

	for {
		select {
		case <-m.ctx.Done():
			return

		case desiredState := <-m.asyncStateChange:
			prevState := m.State()
			if desiredState == prevState {
				break
			}

			var err error
			switch desiredState {
			case DisconnectedState:
				err = m.ToDisconnected()
			case NotStartedState, StartingState, ConnectedState:
				// only disconnect notifications arrive asynchronously
				err = ErrInvalidTransition
			}

			if err != nil {
				m.logger.Error("async link state transition failed",
					"method", "asyncStateChangeTask",
					"prevState", prevState, "curState", m.State(), "desiredState", desiredState,
					"error", err,
				)
			}
		}
	}
}
