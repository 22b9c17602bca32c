/**
 * Queue Consumer for the Lab Report Worker
 *
 * Consumes lab report jobs from Redis via Asynq, runs the processor and
 * records each job's lifecycle in the status store.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
	"github.com/adverant/nexus/labreport-worker/internal/processor"
)

const (
	defaultProcessingTimeout = 300000 // 5 minutes, in milliseconds
	maxRetryDelay            = 60 * time.Second
)

// Consumer handles job consumption from Redis queue
type Consumer struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.Processor
	status    StatusStore
	config    *ConsumerConfig
	timeout   time.Duration
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.Processor
	Status            StatusStore
	ProcessingTimeout int64 // milliseconds, default 300000
	Logger            *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("consumer")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10, // main queue
				"default":     1,  // fallback
			},
			RetryDelayFunc: RetryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		server:    server,
		mux:       mux,
		processor: cfg.Processor,
		status:    cfg.Status,
		config:    cfg,
		timeout:   processingTimeout(cfg.ProcessingTimeout),
		logger:    logger,
	}

	mux.HandleFunc(TaskTypeProcessLabReport, consumer.HandleTask)

	return consumer, nil
}

// RetryDelay is exponential backoff: 5s, 10s, 20s, ... capped at 60s
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 4 {
		return maxRetryDelay
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func processingTimeout(ms int64) time.Duration {
	if ms <= 0 {
		ms = defaultProcessingTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

// Start runs the asynq server in the background
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")
	c.server.Shutdown()
	c.logger.Info("Queue consumer stopped")
	return nil
}

// HandleTask processes one lab report job
func (c *Consumer) HandleTask(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var payload JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		c.logger.Error("Dropping undecodable job payload", "error", err)
		return fmt.Errorf("failed to unmarshal job payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.JobID == "" {
		if id, ok := asynq.GetTaskID(ctx); ok {
			payload.JobID = id
		}
	}
	jobID := payload.JobID

	c.logger.Info("Processing lab report", "job", jobID, "filename", payload.Filename, "bytes", len(payload.FileBuffer))
	c.updateStatus(ctx, jobID, StatusProcessing, nil)

	processCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.processor.Process(processCtx, &processor.ProcessRequest{
		JobID:      jobID,
		Filename:   payload.Filename,
		MimeType:   payload.MimeType,
		FileBuffer: payload.FileBuffer,
		Metadata:   payload.Metadata,
	})

	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded && errors.CodeOf(err) == "" {
			err = errors.NewProcessingTimeoutError(jobID, c.timeout, err)
		}

		retryable := isRetryable(err)
		if !retryable || isFinalAttempt(ctx) {
			c.logger.Error("Lab report failed", "job", jobID, "duration", duration, "error", err)
			c.updateStatus(ctx, jobID, StatusFailed, failureDetail(err, duration))
		} else {
			c.logger.Warn("Lab report attempt failed, will retry", "job", jobID, "duration", duration, "error", err)
			c.updateStatus(ctx, jobID, StatusQueued, nil)
		}

		if !retryable {
			return fmt.Errorf("lab report processing failed: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("lab report processing failed: %w", err)
	}

	if w := task.ResultWriter(); w != nil {
		if data, merr := json.Marshal(processor.Envelope(result.Tests)); merr == nil {
			if _, werr := w.Write(data); werr != nil {
				c.logger.Warn("Failed to write task result", "job", jobID, "error", werr)
			}
		}
	}

	c.logger.Info("Lab report completed", "job", jobID, "duration", duration, "layout", result.Layout, "tests", len(result.Tests))
	c.updateStatus(ctx, jobID, StatusCompleted, result)

	return nil
}

func (c *Consumer) updateStatus(ctx context.Context, jobID string, status Status, detail interface{}) {
	if c.status == nil {
		return
	}
	if err := c.status.Update(ctx, jobID, status, detail); err != nil {
		c.logger.Warn("Failed to update job status", "job", jobID, "status", status, "error", err)
	}
}

// isRetryable reports whether another attempt could succeed. Bad input
// fails the same way every time.
func isRetryable(err error) bool {
	switch errors.CodeOf(err) {
	case errors.ErrorUnsupportedFormat, errors.ErrorInvalidImage, errors.ErrorFileTooLarge:
		return false
	}
	return true
}

// isFinalAttempt is true when asynq will not retry the task again. Outside
// an asynq handler every attempt is final.
func isFinalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

func failureDetail(err error, duration time.Duration) map[string]interface{} {
	detail := map[string]interface{}{}

	if pe, ok := errors.AsProcessingError(err); ok {
		detail = pe.ToMap()
	}
	detail["error"] = processor.ErrorMessage(err)
	detail["processingTime"] = duration.Milliseconds()

	return detail
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
	}
}
