// Package node provides the core building blocks shared by the linknode components:
// the wireless link state machine, the task manager that owns the node's logical
// tasks, the retry policy constants, the role tag, and the indicator output.
//
// Link States:
// The package defines constants representing the stages of the wireless link:
//   - NotStartedState: the radio has not been brought up yet.
//   - StartingState: the radio is active and an association attempt is in progress.
//   - ConnectedState: the link is associated and usable.
//   - DisconnectedState: a previously associated link has been lost.
//
// LinkStateMgr:
// The LinkStateMgr tracks the current link state, validates transitions, notifies
// registered handlers on every change, and lets other tasks block until a desired
// state is reached (`WaitState`).
//
// TaskManager:
// The TaskManager owns the bounded set of long-running goroutines that make up a
// node (packet pump, link supervisor, session loop) and provides structured
// start/stop/wait semantics with panic protection.
package node
