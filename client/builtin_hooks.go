package client

import (
	"context"
	"strconv"
	"sync/atomic"
)

// LoggingHook writes one entry before and one after every dispatch.
type LoggingHook struct {
	logger        Logger
	logRequests   bool
	logDurations  bool
	logRejections bool
}

// NewLoggingHook returns a hook logging through logger. logRequests adds
// the encoded request body to the debug entry, logDurations adds the
// round-trip time, and logRejections raises success:false replies to warn.
func NewLoggingHook(logger Logger, logRequests, logDurations, logRejections bool) *LoggingHook {
	return &LoggingHook{
		logger:        logger,
		logRequests:   logRequests,
		logDurations:  logDurations,
		logRejections: logRejections,
	}
}

func (h *LoggingHook) Name() string { return "logging" }

func (h *LoggingHook) Before(_ context.Context, hc *HookContext) error {
	fields := []Field{
		String("target", hc.Target),
		String("operation", hc.Operation),
		String("source", hc.Source),
		String("trace_id", hc.TraceID),
		String("fingerprint", strconv.FormatUint(hc.Fingerprint, 16)),
	}
	if h.logRequests {
		fields = append(fields, String("request", string(hc.Request)))
	}
	h.logger.Debug("dispatching", fields...)
	return nil
}

func (h *LoggingHook) After(_ context.Context, hc *HookContext) error {
	log := h.logger.WithFields(
		String("operation", hc.Operation),
		String("kind", hc.Kind),
		String("trace_id", hc.TraceID),
	)
	var extra []Field
	if h.logDurations {
		extra = append(extra, Duration("duration", hc.Duration))
	}

	switch {
	case hc.Error != nil:
		log.Error("dispatch failed", append(extra, Error("error", hc.Error))...)
	case h.logRejections && rejected(hc):
		log.Warn("request rejected", append(extra, String("server_message", hc.Response.Message))...)
	default:
		log.Debug("dispatch completed", extra...)
	}
	return nil
}

func rejected(hc *HookContext) bool {
	return hc.Response != nil && !hc.Response.Success
}

// MetricsHook counts dispatches per kind and outcome.
type MetricsHook struct {
	TotalRequests   atomic.Uint64
	TotalQueries    atomic.Uint64
	TotalMutations  atomic.Uint64
	TotalFetches    atomic.Uint64
	TotalCalls      atomic.Uint64
	TotalErrors     atomic.Uint64
	TotalRejections atomic.Uint64
	TotalDurationNs atomic.Uint64
}

func NewMetricsHook() *MetricsHook {
	return &MetricsHook{}
}

func (h *MetricsHook) Name() string { return "metrics" }

func (h *MetricsHook) Before(context.Context, *HookContext) error { return nil }

func (h *MetricsHook) After(_ context.Context, hc *HookContext) error {
	h.TotalRequests.Add(1)
	h.TotalDurationNs.Add(uint64(hc.Duration.Nanoseconds()))
	if c := h.byKind(hc.Kind); c != nil {
		c.Add(1)
	}
	switch {
	case hc.Error != nil:
		h.TotalErrors.Add(1)
	case rejected(hc):
		h.TotalRejections.Add(1)
	}
	return nil
}

// byKind is the counter for kind. Session traffic has none of its own.
func (h *MetricsHook) byKind(kind string) *atomic.Uint64 {
	switch kind {
	case KindQuery:
		return &h.TotalQueries
	case KindMutation:
		return &h.TotalMutations
	case KindCursor:
		return &h.TotalFetches
	case KindCall:
		return &h.TotalCalls
	}
	return nil
}

func (h *MetricsHook) counters() map[string]*atomic.Uint64 {
	return map[string]*atomic.Uint64{
		"total_requests":    &h.TotalRequests,
		"total_queries":     &h.TotalQueries,
		"total_mutations":   &h.TotalMutations,
		"total_fetches":     &h.TotalFetches,
		"total_calls":       &h.TotalCalls,
		"total_errors":      &h.TotalErrors,
		"total_rejections":  &h.TotalRejections,
		"total_duration_ns": &h.TotalDurationNs,
	}
}

// GetStats snapshots the counters, keyed by snake_case name, plus the
// average duration in ns (int64) and ms (float64).
func (h *MetricsHook) GetStats() map[string]interface{} {
	stats := make(map[string]interface{}, 10)
	for name, c := range h.counters() {
		stats[name] = c.Load()
	}

	var avg int64
	if n := stats["total_requests"].(uint64); n > 0 {
		avg = int64(stats["total_duration_ns"].(uint64) / n)
	}
	stats["avg_duration_ns"] = avg
	stats["avg_duration_ms"] = float64(avg) / 1e6
	return stats
}

func (h *MetricsHook) Reset() {
	for _, c := range h.counters() {
		c.Store(0)
	}
}
