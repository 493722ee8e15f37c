// Package monitoring records run audit events and publishes quality alerts
// so operators can watch score trends across batch runs.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danjilab/integration-engine/internal/observability"
)

// AuditEvent is one timestamped entry in a run's audit trail.
type AuditEvent struct {
	RunID     uuid.UUID      `json:"run_id"`
	Phase     string         `json:"phase"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// QualityAlert is published when a run's overall score falls below the
// configured threshold.
type QualityAlert struct {
	RunID        uuid.UUID `json:"run_id"`
	OverallScore float64   `json:"overall_score"`
	Threshold    float64   `json:"threshold"`
	ErrorCount   int       `json:"error_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// Monitor writes audit events to the structured log and optionally publishes
// quality alerts to a Redis channel. A nil Monitor is a no-op, so callers
// never guard their calls.
type Monitor struct {
	logger  *observability.Logger
	redis   *redis.Client
	channel string
}

// NewMonitor creates a monitor. redisURL may be empty, in which case alerts
// are logged but not published.
func NewMonitor(ctx context.Context, logger *observability.Logger, redisURL, channel string) (*Monitor, error) {
	m := &Monitor{logger: logger, channel: channel}
	if redisURL == "" {
		return m, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	m.redis = client
	return m, nil
}

// Audit records one audit event for the run.
func (m *Monitor) Audit(runID uuid.UUID, phase, message string, fields map[string]any) {
	if m == nil || m.logger == nil {
		return
	}
	event := m.logger.Info().
		Str("run_id", runID.String()).
		Str("phase", phase).
		Str("audit", "run")
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(message)
}

// PublishQualityAlert emits an alert when the overall score breaches the
// threshold. Publish failures are logged, never fatal.
func (m *Monitor) PublishQualityAlert(ctx context.Context, alert QualityAlert) {
	if m == nil {
		return
	}
	alert.Timestamp = time.Now()

	if m.logger != nil {
		m.logger.Warn().
			Str("run_id", alert.RunID.String()).
			Float64("overall_score", alert.OverallScore).
			Float64("threshold", alert.Threshold).
			Int("error_count", alert.ErrorCount).
			Msg("quality score below threshold")
	}

	if m.redis == nil || m.channel == "" {
		return
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return
	}
	if err := m.redis.Publish(ctx, m.channel, payload).Err(); err != nil && m.logger != nil {
		m.logger.Error().Err(err).Str("channel", m.channel).Msg("failed to publish quality alert")
	}
}

// Close releases the Redis connection if one was opened.
func (m *Monitor) Close() error {
	if m == nil || m.redis == nil {
		return nil
	}
	return m.redis.Close()
}
