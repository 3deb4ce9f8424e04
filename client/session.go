package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dan-strohschein/jsonwebdb-driver/messages"
	"github.com/dan-strohschein/jsonwebdb-driver/protocol"
	"github.com/dan-strohschein/jsonwebdb-driver/transport"
	httptransport "github.com/dan-strohschein/jsonwebdb-driver/transport/http"
)

// Session is the client side of a JsonWebDB session. It owns the session
// id, dispatches requests and keeps the server side session alive.
//
// A Session is safe for concurrent use. Objects created from it (tables,
// statements, cursors) are not.
type Session struct {
	opts      SessionOptions
	transport transport.Transport
	codec     protocol.Codec
	cache     *DefinitionCache
	catalog   *messages.Catalog
	logger    Logger
	state     *StateManager
	debugMode atomic.Bool

	mu         sync.RWMutex
	sessionID  string
	timeout    int
	interval   time.Duration
	vpd        []protocol.NameValue
	clientInfo []protocol.NameValue
	failed     bool
	message    string

	// keep-alive bookkeeping: only the timer armed with the latest
	// generation may fire a keepalive() request.
	keepAliveGen   uint64
	keepAliveTimer *time.Timer
	keepAliveUnit  time.Duration

	hooks   []Hook
	hooksMu sync.RWMutex
}

// NewSession creates a disconnected session. If opts is nil, default
// options are used.
func NewSession(opts *SessionOptions) (*Session, error) {
	if opts == nil {
		defaultOpts := DefaultOptions()
		opts = &defaultOpts
	}
	o := opts.withDefaults()

	logger := o.Logger
	if logger == nil {
		logger = NewLogger(o.LogLevel, nil)
	}

	tr := o.Transport
	if tr == nil {
		factory := o.TransportFactory
		if factory == nil {
			hc, err := httpClient(o)
			if err != nil {
				return nil, err
			}
			factory = httptransport.Factory(&httptransport.Options{Client: hc, Compress: o.Compress})
		}
		var err error
		if tr, err = factory(o.URL); err != nil {
			return nil, err
		}
	}

	cache := o.DefinitionCache
	if cache == nil {
		cache = NewDefinitionCache()
	}

	s := &Session{
		opts:          o,
		transport:     tr,
		codec:         protocol.NewCodec(),
		cache:         cache,
		catalog:       messages.New(o.Language),
		logger:        logger.WithFields(String("component", "session")),
		state:         NewStateManager(),
		keepAliveUnit: time.Second,
	}
	s.debugMode.Store(o.DebugMode)

	// Wire up lifecycle callbacks if provided
	if o.OnConnected != nil || o.OnDisconnected != nil {
		s.state.OnStateChange(func(transition StateTransition) {
			switch transition.To {
			case CONNECTED:
				if o.OnConnected != nil && transition.From == CONNECTING {
					o.OnConnected(transition)
				}
			case DISCONNECTED:
				if o.OnDisconnected != nil && transition.From == DISCONNECTING {
					o.OnDisconnected(transition)
				}
			}
		})
	}

	return s, nil
}

// SessionID returns the id issued by the server, or "" when disconnected.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Connected reports whether the session holds a session id.
func (s *Session) Connected() bool {
	return s.SessionID() != ""
}

// Timeout returns the negotiated session timeout in seconds.
func (s *Session) Timeout() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}

// URL returns the configured endpoint.
func (s *Session) URL() string {
	return s.opts.URL
}

// State returns the lifecycle state.
func (s *Session) State() ConnectionState {
	return s.state.GetState()
}

// OnStateChange registers a handler for lifecycle transitions.
func (s *Session) OnStateChange(handler StateChangeHandler) {
	s.state.OnStateChange(handler)
}

// Cache returns the definition cache used by tables on this session.
func (s *Session) Cache() *DefinitionCache {
	return s.cache
}

// Catalog returns the message catalog for the session's language.
func (s *Session) Catalog() *messages.Catalog {
	return s.catalog
}

// Logger returns the session logger.
func (s *Session) Logger() Logger {
	return s.logger
}

// Failed reports whether the last Connect or SetProperties was rejected.
func (s *Session) Failed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failed
}

// ErrorMessage returns the server message of the last rejected call.
func (s *Session) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// AddVPDContext queues a virtual private database entry. Pending entries
// are sent with the next Connect or SetProperties.
func (s *Session) AddVPDContext(name string, value interface{}) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vpd = append(s.vpd, protocol.NameValue{Name: name, Value: value})
	return s
}

// AddClientInfo queues a client-info entry. Pending entries are sent with
// the next Connect or SetProperties.
func (s *Session) AddClientInfo(name string, value interface{}) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientInfo = append(s.clientInfo, protocol.NameValue{Name: name, Value: value})
	return s
}

// Table returns a Table for source on this session.
func (s *Session) Table(source string) (*Table, error) {
	return NewTable(s, source)
}

// Connect opens a server side session. stateful requests a dedicated
// database connection.
//
// A rejected connect returns false with no error; see ErrorMessage. If the
// negotiated timeout is below KeepAliveMin, Connect returns a *UsageError.
// The session id is kept in that case so the caller can Disconnect, but no
// keep-alive is scheduled.
func (s *Session) Connect(ctx context.Context, username, password string, stateful bool) (bool, error) {
	if err := s.state.TransitionTo(CONNECTING, nil, map[string]interface{}{
		"reason": "user_initiated",
		"url":    s.opts.URL,
	}); err != nil {
		return false, ErrInvalidState("Connect", DISCONNECTED, s.state.GetState())
	}

	s.mu.RLock()
	args := &protocol.ConnectArgs{
		Username:   username,
		Password:   password,
		Stateful:   stateful,
		VPD:        append([]protocol.NameValue(nil), s.vpd...),
		ClientInfo: append([]protocol.NameValue(nil), s.clientInfo...),
	}
	s.mu.RUnlock()

	s.logger.Info("connecting",
		String("url", s.opts.URL),
		String("username", username),
		Bool("stateful", stateful))

	resp, err := s.Invoke(ctx, &protocol.SessionRequest{
		Session: protocol.SessionCall{
			Invoke:  protocol.InvokeConnect,
			Connect: args,
		},
	})
	if err != nil {
		s.state.TransitionTo(DISCONNECTED, err, map[string]interface{}{"reason": "error"})
		s.logger.Error("connect failed", Error("error", err))
		return false, err
	}

	s.mu.Lock()
	s.failed = !resp.Success
	s.message = resp.Message
	if !resp.Success {
		s.mu.Unlock()
		s.state.TransitionTo(DISCONNECTED, nil, map[string]interface{}{"reason": "rejected"})
		s.logger.Warn("connect rejected", String("server_message", resp.Message))
		return false, nil
	}

	s.vpd = nil
	s.clientInfo = nil
	s.sessionID = resp.Session
	s.timeout = resp.Timeout
	s.interval = 0
	belowMin := resp.Timeout < s.opts.KeepAliveMin
	if !belowMin {
		s.interval = time.Duration(resp.Timeout-s.opts.KeepAliveSlack) * s.keepAliveUnit
	}
	s.mu.Unlock()

	s.state.TransitionTo(CONNECTED, nil, map[string]interface{}{
		"reason":  "user_initiated",
		"url":     s.opts.URL,
		"timeout": resp.Timeout,
	})

	if belowMin {
		s.logger.Error("session timeout below keep-alive minimum",
			Int("timeout", resp.Timeout),
			Int("minimum", s.opts.KeepAliveMin))
		return false, newUsageError(s.catalog, messages.KeepAliveBelowMin, resp.Timeout, s.opts.KeepAliveMin)
	}

	s.scheduleKeepAlive()
	s.logger.Info("connected",
		String("session", resp.Session),
		Int("timeout", resp.Timeout),
		Duration("keepalive", s.keepAliveInterval()))
	return true, nil
}

// Disconnect closes the server side session. The session id is cleared
// before the round trip and restored if the transport fails, in which case
// Disconnect returns false and the error. It returns false without a round
// trip when the session is not connected.
func (s *Session) Disconnect(ctx context.Context) (bool, error) {
	s.mu.Lock()
	id := s.sessionID
	if id == "" {
		s.mu.Unlock()
		return false, nil
	}
	s.sessionID = ""
	s.cancelKeepAliveLocked()
	s.mu.Unlock()

	s.state.TransitionTo(DISCONNECTING, nil, map[string]interface{}{"reason": "user_initiated"})

	_, err := s.Invoke(ctx, &protocol.SessionRequest{
		Session: protocol.SessionCall{
			Session: id,
			Invoke:  protocol.InvokeDisconnect,
		},
	})
	if err != nil {
		s.mu.Lock()
		s.sessionID = id
		s.mu.Unlock()
		s.state.TransitionTo(CONNECTED, err, map[string]interface{}{"reason": "rollback"})
		s.scheduleKeepAlive()
		s.logger.Warn("disconnect failed, session restored", Error("error", err))
		return false, err
	}

	s.state.TransitionTo(DISCONNECTED, nil, map[string]interface{}{"reason": "user_initiated"})
	s.logger.Info("disconnected", String("session", id))
	return true, nil
}

// SetProperties sends pending VPD context and client-info entries to an
// open session. Pending entries are cleared when the server accepts them.
func (s *Session) SetProperties(ctx context.Context) (bool, error) {
	s.mu.RLock()
	req := &protocol.SessionRequest{
		Session: protocol.SessionCall{
			Session: s.sessionID,
			Invoke:  protocol.InvokeProperties,
			Properties: &protocol.PropertiesArgs{
				VPD:        append([]protocol.NameValue(nil), s.vpd...),
				ClientInfo: append([]protocol.NameValue(nil), s.clientInfo...),
			},
		},
	}
	s.mu.RUnlock()

	resp, err := s.Invoke(ctx, req)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = !resp.Success
	s.message = resp.Message
	if resp.Success {
		s.vpd = nil
		s.clientInfo = nil
	}
	return resp.Success, nil
}

// Invoke posts a request document to the service root and decodes the
// response. Transport failures are returned as *ConnectionError (wrapping
// the transport's error) and undecodable responses as *ProtocolError; a
// success:false response is not an error.
func (s *Session) Invoke(ctx context.Context, request interface{}) (*protocol.Response, error) {
	return s.InvokePath(ctx, "", request)
}

// InvokePath is Invoke for a path below the service root.
func (s *Session) InvokePath(ctx context.Context, path string, request interface{}) (*protocol.Response, error) {
	target, invoke, source := protocol.Target(request)

	body, err := s.codec.Encode(request)
	if err != nil {
		return nil, newProtocolError(invoke, err)
	}

	traceID, ok := TraceIDFromContext(ctx)
	if !ok {
		traceID = uuid.New().String()
	}

	hookCtx := &HookContext{
		Target:      target,
		Operation:   invoke,
		Kind:        operationKind(target, invoke),
		Source:      source,
		Request:     body,
		Fingerprint: xxhash.Sum64(body),
		StartTime:   time.Now(),
		Metadata:    make(map[string]interface{}),
		TraceID:     traceID,
	}

	if err := s.executeBeforeHooks(ctx, hookCtx); err != nil {
		return nil, err
	}

	resp, err := s.roundTrip(ctx, path, invoke, body)
	hookCtx.Response = resp
	hookCtx.Error = err
	hookCtx.Duration = time.Since(hookCtx.StartTime)

	if hookErr := s.executeAfterHooks(ctx, hookCtx); hookErr != nil {
		err = hookErr
	}
	if err != nil {
		return nil, err
	}

	if s.Connected() {
		s.scheduleKeepAlive()
	}
	return resp, nil
}

func (s *Session) roundTrip(ctx context.Context, path, invoke string, body []byte) (*protocol.Response, error) {
	data, err := s.transport.Post(ctx, path, body)
	if err != nil {
		if isTLSError(err) {
			return nil, parseTLSError(invoke, err)
		}
		return nil, newConnectionError(invoke, err, s.IsDebugMode())
	}

	resp, err := s.codec.Decode(data)
	if err != nil {
		return nil, newProtocolError(invoke, err)
	}
	return resp, nil
}

// Preload describes the given sources concurrently, filling the
// definition cache. It returns the first transport error or rejection.
func (s *Session) Preload(ctx context.Context, sources ...string) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, source := range sources {
		source := source
		g.Go(func() error {
			table, err := NewTable(s, source)
			if err != nil {
				return err
			}
			ok, err := table.Describe(gctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New(s.catalog.Resolve(messages.DescribeFailed, source, table.ErrorMessage()))
			}
			return nil
		})
	}

	return g.Wait()
}

// Close stops the keep-alive timer and releases the transport. It does not
// disconnect the server side session.
func (s *Session) Close() error {
	s.mu.Lock()
	s.cancelKeepAliveLocked()
	s.mu.Unlock()
	return s.transport.Close()
}

func (s *Session) keepAliveInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

// scheduleKeepAlive arms a new timer and supersedes any earlier one.
func (s *Session) scheduleKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == "" || s.interval <= 0 {
		return
	}

	if s.keepAliveTimer != nil {
		s.keepAliveTimer.Stop()
	}
	s.keepAliveGen++
	gen := s.keepAliveGen
	s.keepAliveTimer = time.AfterFunc(s.interval, func() {
		s.keepalive(gen)
	})
}

// cancelKeepAliveLocked invalidates any armed timer. Caller holds s.mu.
func (s *Session) cancelKeepAliveLocked() {
	if s.keepAliveTimer != nil {
		s.keepAliveTimer.Stop()
		s.keepAliveTimer = nil
	}
	s.keepAliveGen++
}

// keepalive pings the server unless the session is gone or gen has been
// superseded by a later schedule.
func (s *Session) keepalive(gen uint64) {
	s.mu.RLock()
	id := s.sessionID
	current := s.keepAliveGen
	s.mu.RUnlock()

	if id == "" || gen != current {
		return
	}

	s.logger.Debug("keepalive", String("session", id))

	resp, err := s.Invoke(context.Background(), &protocol.SessionRequest{
		Session: protocol.SessionCall{
			Session: id,
			Invoke:  protocol.InvokeKeepAlive,
		},
	})
	if err != nil {
		s.logger.Warn("keepalive failed", Error("error", err))
		return
	}
	if !resp.Success {
		s.logger.Warn("keepalive rejected", String("server_message", resp.Message))
	}
}
