// Package metrics provides observability for the colony server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and policy metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Hemogen policy metrics
	Evaluations    int64
	BillsScheduled int64
	BillsCancelled int64
	BillsCompleted int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New creates an empty collector.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEvaluation counts one hemogen policy evaluation.
func (c *Collector) RecordEvaluation() {
	atomic.AddInt64(&c.Evaluations, 1)
}

func (c *Collector) RecordBillScheduled() {
	atomic.AddInt64(&c.BillsScheduled, 1)
}

func (c *Collector) RecordBillCancelled(n int) {
	atomic.AddInt64(&c.BillsCancelled, int64(n))
}

func (c *Collector) RecordBillCompleted() {
	atomic.AddInt64(&c.BillsCompleted, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"hemogen": map[string]interface{}{
			"evaluations":     atomic.LoadInt64(&c.Evaluations),
			"bills_scheduled": atomic.LoadInt64(&c.BillsScheduled),
			"bills_cancelled": atomic.LoadInt64(&c.BillsCancelled),
			"bills_completed": atomic.LoadInt64(&c.BillsCompleted),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(c *Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func PrometheusHandler(c *Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP hemofarm_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE hemofarm_tick_count counter\n")
		fmt.Fprintf(w, "hemofarm_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP hemofarm_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE hemofarm_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "hemofarm_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP hemofarm_policy_evaluations Total hemogen policy evaluations\n")
		fmt.Fprintf(w, "# TYPE hemofarm_policy_evaluations counter\n")
		fmt.Fprintf(w, "hemofarm_policy_evaluations %d\n\n", atomic.LoadInt64(&c.Evaluations))

		fmt.Fprintf(w, "# HELP hemofarm_bills_total Extract hemogen bills by outcome\n")
		fmt.Fprintf(w, "# TYPE hemofarm_bills_total counter\n")
		fmt.Fprintf(w, "hemofarm_bills_total{outcome=\"scheduled\"} %d\n", atomic.LoadInt64(&c.BillsScheduled))
		fmt.Fprintf(w, "hemofarm_bills_total{outcome=\"cancelled\"} %d\n", atomic.LoadInt64(&c.BillsCancelled))
		fmt.Fprintf(w, "hemofarm_bills_total{outcome=\"completed\"} %d\n\n", atomic.LoadInt64(&c.BillsCompleted))

		fmt.Fprintf(w, "# HELP hemofarm_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE hemofarm_events_written counter\n")
		fmt.Fprintf(w, "hemofarm_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP hemofarm_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE hemofarm_event_write_errors counter\n")
		fmt.Fprintf(w, "hemofarm_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP hemofarm_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE hemofarm_ws_connections gauge\n")
		fmt.Fprintf(w, "hemofarm_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP hemofarm_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE hemofarm_ws_messages_total counter\n")
		fmt.Fprintf(w, "hemofarm_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "hemofarm_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
