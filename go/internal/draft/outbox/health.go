package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
)

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastEventTime     time.Time `json:"last_event_time"`
	EventsProcessed   uint64    `json:"events_processed"`
	EventsFailed      uint64    `json:"events_failed"`
	PendingEvents     int       `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	Errors            []string  `json:"errors"`
}

// HealthChecker reports whether the relay is moving events.
type HealthChecker struct {
	db       *sql.DB
	store    Store
	natsConn *nats.Conn
	metrics  *CounterMetrics

	// threshold is how long the relay may sit idle with pending events
	// before it reads as stuck.
	threshold time.Duration
}

func NewHealthChecker(db *sql.DB, store Store, natsConn *nats.Conn, metrics *CounterMetrics, threshold time.Duration) *HealthChecker {
	return &HealthChecker{
		db:        db,
		store:     store,
		natsConn:  natsConn,
		metrics:   metrics,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	processed, failed, lag, lastEvent := h.metrics.Snapshot()
	status.EventsProcessed = processed
	status.EventsFailed = failed
	status.LastEventTime = lastEvent

	if err := h.db.PingContext(ctx); err != nil {
		status.DatabaseConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
		status.PendingEvents = lag
		if pending, err := h.store.CountUnsent(ctx); err == nil {
			status.PendingEvents = pending
		}
	}

	if h.natsConn != nil {
		status.NATSConnected = h.natsConn.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	// Pending rows with no recent delivery means the relay is stuck.
	if status.PendingEvents > 0 && !lastEvent.IsZero() && time.Since(lastEvent) > h.threshold {
		status.Healthy = false
		status.Errors = append(status.Errors,
			fmt.Sprintf("no events relayed for %s with %d pending", time.Since(lastEvent).Round(time.Second), status.PendingEvents))
	}

	return status
}

// Handler serves the health status as JSON. 503 when unhealthy.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}
