package client

import (
	"context"
	"time"

	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
)

// Operation categories reported in HookContext.Kind.
const (
	KindSession  = "session"
	KindQuery    = "query"
	KindMutation = "mutation"
	KindCursor   = "cursor"
	KindCall     = "call"
)

// HookContext describes one dispatch. Response, Error and Duration are
// filled in before the After hooks run.
type HookContext struct {
	Target    string // Session, Table, Cursor, Call or Sql
	Operation string // invoke name, e.g. "select" or "keepalive()"
	Kind      string
	Source    string // table, view or procedure, if any
	Request   []byte

	// Fingerprint is the xxhash of Request. Identical requests share it.
	Fingerprint uint64
	StartTime   time.Time
	TraceID     string

	// Metadata carries hook state from Before to After.
	Metadata map[string]interface{}

	Response *protocol.Response
	Error    error
	Duration time.Duration
}

// Hook observes dispatches. An error from Before aborts the dispatch
// before anything is posted; an error from After replaces the result.
type Hook interface {
	Name() string
	Before(ctx context.Context, hookCtx *HookContext) error
	After(ctx context.Context, hookCtx *HookContext) error
}

// hookIndex returns the position of the hook called name, or -1.
// hooksMu must be held.
func (s *Session) hookIndex(name string) int {
	for i, h := range s.hooks {
		if h.Name() == name {
			return i
		}
	}
	return -1
}

// RegisterHook appends hook to the chain. A hook with the same name is
// replaced in place and keeps its position.
func (s *Session) RegisterHook(hook Hook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()

	// The slice is copied on every change so dispatches can run a
	// snapshot without holding the lock.
	hooks := append([]Hook(nil), s.hooks...)
	if i := s.hookIndex(hook.Name()); i >= 0 {
		hooks[i] = hook
		s.logger.Debug("hook replaced", String("hook", hook.Name()))
	} else {
		hooks = append(hooks, hook)
		s.logger.Debug("hook registered", String("hook", hook.Name()), Int("order", len(hooks)-1))
	}
	s.hooks = hooks
}

// UnregisterHook removes the hook called name and reports whether it was
// registered.
func (s *Session) UnregisterHook(name string) bool {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()

	i := s.hookIndex(name)
	if i < 0 {
		return false
	}
	hooks := make([]Hook, 0, len(s.hooks)-1)
	s.hooks = append(append(hooks, s.hooks[:i]...), s.hooks[i+1:]...)
	s.logger.Debug("hook unregistered", String("hook", name))
	return true
}

// GetHooks lists hook names in execution order.
func (s *Session) GetHooks() []string {
	hooks := s.snapshotHooks()
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.Name()
	}
	return names
}

func (s *Session) snapshotHooks() []Hook {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	return s.hooks
}

// executeBeforeHooks stops at the first hook that fails and returns its
// error.
func (s *Session) executeBeforeHooks(ctx context.Context, hc *HookContext) error {
	for _, h := range s.snapshotHooks() {
		if err := h.Before(ctx, hc); err != nil {
			s.logger.Debug("hook aborted dispatch",
				String("hook", h.Name()), String("operation", hc.Operation), Error("error", err))
			return err
		}
	}
	return nil
}

// executeAfterHooks runs every hook and returns the last error any of them
// reported.
func (s *Session) executeAfterHooks(ctx context.Context, hc *HookContext) error {
	var last error
	for _, h := range s.snapshotHooks() {
		if err := h.After(ctx, hc); err != nil {
			s.logger.Debug("hook failed after dispatch",
				String("hook", h.Name()), String("operation", hc.Operation), Error("error", err))
			last = err
		}
	}
	return last
}

// operationKind maps a request target and invoke name to a Kind.
func operationKind(target, invoke string) string {
	switch target {
	case "Session":
		return KindSession
	case "Cursor":
		return KindCursor
	case "Call":
		return KindCall
	}

	switch invoke {
	case protocol.InvokeSelect, protocol.InvokeDescribe:
		return KindQuery
	case protocol.InvokeInsert, protocol.InvokeUpdate, protocol.InvokeDelete:
		return KindMutation
	default:
		return "unknown"
	}
}
