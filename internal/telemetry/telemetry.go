// Package telemetry emits dispatch outcome events to a Redis stream. What
// consumes the stream (dashboards, feedback loops) is someone else's problem;
// this is only the producing side of that boundary.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stream = "pipewise:dispatches"

// Event describes one completed dispatch.
type Event struct {
	RequestID  string    `json:"request_id"`
	Surface    string    `json:"surface"` // "api", "slack", "discord"
	SkillID    string    `json:"skill_id,omitempty"`
	OK         bool      `json:"ok"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// Recorder appends dispatch events to the stream. A nil Recorder is valid and
// drops events, so callers never branch on availability.
type Recorder struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRecorder creates a Recorder over an existing Redis client.
func NewRecorder(rdb *redis.Client, logger *zap.Logger) *Recorder {
	return &Recorder{rdb: rdb, logger: logger}
}

// Record appends one event. Failures are logged, never propagated — telemetry
// must not break a dispatch.
func (r *Recorder) Record(ctx context.Context, ev *Event) {
	if r == nil || r.rdb == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("telemetry encode failed", zap.Error(err))
		return
	}
	err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		r.logger.Warn("telemetry record failed",
			zap.String("request", ev.RequestID), zap.Error(err))
	}
}
