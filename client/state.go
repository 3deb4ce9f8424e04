package client

import (
	"fmt"
	"sync"
	"time"
)

// ConnectionState is where a Session is in its connect/disconnect cycle.
type ConnectionState int

const (
	// DISCONNECTED holds no session id.
	DISCONNECTED ConnectionState = iota
	// CONNECTING has a connect() round trip in flight.
	CONNECTING
	// CONNECTED holds a server-issued session id.
	CONNECTED
	// DISCONNECTING has a disconnect() round trip in flight.
	DISCONNECTING
)

var stateNames = map[ConnectionState]string{
	DISCONNECTED:  "DISCONNECTED",
	CONNECTING:    "CONNECTING",
	CONNECTED:     "CONNECTED",
	DISCONNECTING: "DISCONNECTING",
}

func (cs ConnectionState) String() string {
	if name, ok := stateNames[cs]; ok {
		return name
	}
	return "UNKNOWN"
}

// legalTransitions lists the states reachable from each state. A failed
// connect falls back to DISCONNECTED and a disconnect that never reached
// the server returns to CONNECTED.
var legalTransitions = map[ConnectionState][]ConnectionState{
	DISCONNECTED:  {CONNECTING},
	CONNECTING:    {CONNECTED, DISCONNECTED},
	CONNECTED:     {DISCONNECTING},
	DISCONNECTING: {DISCONNECTED, CONNECTED},
}

func canTransition(from, to ConnectionState) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateTransition describes one state change of a Session.
//
// Sessions set the "reason" metadata key to one of user_initiated, error,
// rejected or rollback. Connect transitions also carry "url" and, once
// connected, the negotiated "timeout" in seconds.
type StateTransition struct {
	From      ConnectionState
	To        ConnectionState
	Timestamp time.Time
	// Error is set when a transport failure forced the change.
	Error error
	// Duration is how long From was held.
	Duration time.Duration
	Metadata map[string]interface{}
}

// StateChangeHandler observes state transitions.
type StateChangeHandler func(transition StateTransition)

// StateManager guards a ConnectionState and fans transitions out to
// registered handlers.
type StateManager struct {
	mu       sync.RWMutex
	last     StateTransition
	handlers []StateChangeHandler
}

// NewStateManager returns a manager in DISCONNECTED.
func NewStateManager() *StateManager {
	now := time.Now()
	return &StateManager{last: StateTransition{From: DISCONNECTED, To: DISCONNECTED, Timestamp: now}}
}

// TransitionTo moves to next, recording cause and metadata on the event.
// An illegal move returns an error and leaves the state unchanged.
// Handlers run on the calling goroutine after the lock is released.
func (sm *StateManager) TransitionTo(next ConnectionState, cause error, metadata map[string]interface{}) error {
	sm.mu.Lock()
	current := sm.last.To
	if !canTransition(current, next) {
		sm.mu.Unlock()
		return fmt.Errorf("illegal state transition: %s -> %s", current, next)
	}

	now := time.Now()
	tr := StateTransition{
		From:      current,
		To:        next,
		Timestamp: now,
		Error:     cause,
		Duration:  now.Sub(sm.last.Timestamp),
		Metadata:  metadata,
	}
	sm.last = tr
	handlers := append([]StateChangeHandler(nil), sm.handlers...)
	sm.mu.Unlock()

	for _, h := range handlers {
		h(tr)
	}
	return nil
}

// OnStateChange registers handler for every later transition.
func (sm *StateManager) OnStateChange(handler StateChangeHandler) {
	sm.mu.Lock()
	sm.handlers = append(sm.handlers, handler)
	sm.mu.Unlock()
}

func (sm *StateManager) GetState() ConnectionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.last.To
}

// GetLastTransition returns the most recent transition. Before the first
// one it reports DISCONNECTED since creation.
func (sm *StateManager) GetLastTransition() StateTransition {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.last
}
