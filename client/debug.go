package client

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// EnableDebugMode enables stack traces on transport errors.
func (s *Session) EnableDebugMode() {
	s.debugMode.Store(true)
	s.logger.Info("debug mode enabled")
}

// DisableDebugMode disables debug mode.
func (s *Session) DisableDebugMode() {
	s.debugMode.Store(false)
	s.logger.Info("debug mode disabled")
}

// IsDebugMode returns whether debug mode is currently enabled.
func (s *Session) IsDebugMode() bool {
	return s.debugMode.Load()
}

// DebugInfo returns a snapshot of session state for debugging.
// The session id is masked.
func (s *Session) DebugInfo() map[string]interface{} {
	s.mu.RLock()
	sessionID := s.sessionID
	timeout := s.timeout
	pendingVPD := len(s.vpd)
	pendingInfo := len(s.clientInfo)
	generation := s.keepAliveGen
	s.mu.RUnlock()

	info := map[string]interface{}{
		"version":   Version,
		"state":     s.state.GetState().String(),
		"debugMode": s.IsDebugMode(),
		"url":       s.opts.URL,
		"session":   maskSessionID(sessionID),
		"timeout":   timeout,
		"pending": map[string]interface{}{
			"vpd":        pendingVPD,
			"clientInfo": pendingInfo,
		},
		"keepAlive": map[string]interface{}{
			"generation": generation,
			"interval":   s.keepAliveInterval().String(),
		},
		"definitions": s.cache.Len(),
		"hooks":       s.GetHooks(),
	}

	metrics := s.transport.GetMetrics()
	info["transport"] = map[string]interface{}{
		"healthy":        s.transport.IsHealthy(),
		"totalRequests":  metrics.TotalRequests,
		"totalErrors":    metrics.TotalErrors,
		"averageLatency": metrics.AverageLatency.String(),
		"bytesSent":      metrics.BytesSent,
		"bytesReceived":  metrics.BytesReceived,
	}

	info["options"] = map[string]interface{}{
		"language":          s.opts.Language,
		"keepAliveMin":      s.opts.KeepAliveMin,
		"keepAliveSlack":    s.opts.KeepAliveSlack,
		"defaultArrayFetch": s.opts.DefaultArrayFetch,
		"compress":          s.opts.Compress,
	}

	lastTransition := s.state.GetLastTransition()
	info["lastTransition"] = map[string]interface{}{
		"from":      lastTransition.From.String(),
		"state":     lastTransition.To.String(),
		"timestamp": lastTransition.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		"inState":   time.Since(lastTransition.Timestamp).String(),
	}

	return info
}

// DumpDebugInfoJSON returns debug info as formatted JSON string.
func (s *Session) DumpDebugInfoJSON() string {
	info := s.DebugInfo()
	bytes, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal debug info: %s"}`, err.Error())
	}
	return string(bytes)
}
