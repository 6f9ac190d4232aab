package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lynks/portal/internal/metrics"
)

const (
	// StreamKey is the Redis stream for aggregation jobs.
	StreamKey = "stream:aggregation_jobs"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:aggregation_jobs:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Publisher enqueues aggregation jobs to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new aggregation job publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "analytics.publisher"),
		metrics: recorder,
	}
}

// Publish adds an aggregation job to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, job AggregationJobPayload) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget). A dropped job only
// delays the next recompute; a later job for the same day repairs the row.
func (p *Publisher) PublishAsync(job AggregationJobPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, job)
		if err != nil {
			p.logger.Warn("failed to publish aggregation job",
				"scope", job.Scope,
				"business_id", job.BusinessID,
				"date", job.Date,
				"error", err,
			)
			p.metrics.IncAggregationJobPublished("dropped")
			return
		}

		p.logger.Debug("aggregation job published",
			"scope", job.Scope,
			"business_id", job.BusinessID,
			"date", job.Date,
			"stream_id", streamID,
		)
		p.metrics.IncAggregationJobPublished("success")
	}()
}

// NewBusinessJob builds a business-scope job for the given day.
func NewBusinessJob(businessID string, day time.Time) AggregationJobPayload {
	return AggregationJobPayload{
		Scope:      ScopeBusiness,
		BusinessID: businessID,
		Date:       day.UTC().Format("2006-01-02"),
		EnqueuedAt: time.Now().UnixMilli(),
	}
}

// NewPlatformJob builds a platform-scope job for the given day.
func NewPlatformJob(day time.Time) AggregationJobPayload {
	return AggregationJobPayload{
		Scope:      ScopePlatform,
		Date:       day.UTC().Format("2006-01-02"),
		EnqueuedAt: time.Now().UnixMilli(),
	}
}
