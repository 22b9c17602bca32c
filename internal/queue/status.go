/**
 * Job status tracking in Redis
 *
 * Key layout per queue name Q:
 *   Q:queued | Q:processing | Q:completed | Q:failed   sets of job ids
 *   Q:results | Q:errors                                 hashes job id -> JSON
 *   Q:events                                             pub/sub channel
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// lookupOrder is the order status sets are checked in by Get. Terminal
// states first so a stale membership never hides a finished job.
var lookupOrder = []Status{StatusCompleted, StatusFailed, StatusProcessing, StatusQueued}

// JobStatus is the externally visible state of a job
type JobStatus struct {
	JobID  string          `json:"job_id"`
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// StatusStore records job lifecycle transitions
type StatusStore interface {
	// Update moves a job to status. detail is stored as the job's result
	// when completed and as its error when failed.
	Update(ctx context.Context, jobID string, status Status, detail interface{}) error
	Get(ctx context.Context, jobID string) (*JobStatus, error)
}

// StatusClient is the subset of the go-redis client used by RedisStatusStore
type StatusClient interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisStatusStore keeps job status in Redis sets and hashes
type RedisStatusStore struct {
	client    StatusClient
	queueName string
	logger    *logging.Logger
}

// NewRedisStatusStore creates a status store for queueName
func NewRedisStatusStore(client StatusClient, queueName string, logger *logging.Logger) (*RedisStatusStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if queueName == "" {
		return nil, fmt.Errorf("queue name is required")
	}

	if logger == nil {
		logger = logging.NewLogger("status")
	}

	return &RedisStatusStore{
		client:    client,
		queueName: queueName,
		logger:    logger,
	}, nil
}

func (s *RedisStatusStore) key(suffix string) string {
	return fmt.Sprintf("%s:%s", s.queueName, suffix)
}

// Update moves jobID into the status set and publishes a job event
func (s *RedisStatusStore) Update(ctx context.Context, jobID string, status Status, detail interface{}) error {
	for _, other := range lookupOrder {
		if other == status {
			continue
		}
		if err := s.client.SRem(ctx, s.key(string(other)), jobID).Err(); err != nil {
			return fmt.Errorf("failed to clear %s status: %w", other, err)
		}
	}

	if err := s.client.SAdd(ctx, s.key(string(status)), jobID).Err(); err != nil {
		return fmt.Errorf("failed to set %s status: %w", status, err)
	}

	if detail != nil {
		var hash string
		switch status {
		case StatusCompleted:
			hash = s.key("results")
		case StatusFailed:
			hash = s.key("errors")
		}

		if hash != "" {
			data, err := json.Marshal(detail)
			if err != nil {
				return fmt.Errorf("failed to marshal %s detail: %w", status, err)
			}
			if err := s.client.HSet(ctx, hash, jobID, data).Err(); err != nil {
				return fmt.Errorf("failed to store %s detail: %w", status, err)
			}
		}
	}

	// Publish event for streaming subscribers; a lost event is not fatal
	event := map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", status),
		"jobId":     jobID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	eventData, _ := json.Marshal(event)
	if err := s.client.Publish(ctx, s.key("events"), eventData).Err(); err != nil {
		s.logger.Warn("Failed to publish job event", "job", jobID, "status", status, "error", err)
	}

	return nil
}

// Get returns the job's current status, or a JOB_NOT_FOUND error
func (s *RedisStatusStore) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	for _, status := range lookupOrder {
		member, err := s.client.SIsMember(ctx, s.key(string(status)), jobID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s status: %w", status, err)
		}
		if !member {
			continue
		}

		js := &JobStatus{JobID: jobID, Status: status}
		switch status {
		case StatusCompleted:
			js.Data, err = s.detail(ctx, "results", jobID)
		case StatusFailed:
			js.Error, err = s.detail(ctx, "errors", jobID)
		}
		if err != nil {
			return nil, err
		}
		return js, nil
	}

	return nil, errors.NewJobNotFoundError(jobID)
}

func (s *RedisStatusStore) detail(ctx context.Context, hash, jobID string) (json.RawMessage, error) {
	data, err := s.client.HGet(ctx, s.key(hash), jobID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", hash, err)
	}
	return json.RawMessage(data), nil
}
