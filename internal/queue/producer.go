package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
)

const (
	defaultMaxRetry  = 3
	defaultRetention = 24 * time.Hour
)

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Enqueuer          TaskEnqueuer
	QueueName         string
	Status            StatusStore
	ProcessingTimeout int64 // milliseconds
	Logger            *logging.Logger
}

// Producer submits lab report jobs to the queue
type Producer struct {
	enqueuer  TaskEnqueuer
	queueName string
	status    StatusStore
	timeout   time.Duration
	logger    *logging.Logger
}

// NewProducer creates a new queue producer
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	if cfg.Enqueuer == nil {
		return nil, fmt.Errorf("Enqueuer is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("producer")
	}

	return &Producer{
		enqueuer:  cfg.Enqueuer,
		queueName: cfg.QueueName,
		status:    cfg.Status,
		timeout:   processingTimeout(cfg.ProcessingTimeout),
		logger:    logger,
	}, nil
}

// Enqueue submits a job and returns its id. A missing JobID is assigned.
func (p *Producer) Enqueue(ctx context.Context, payload *JobPayload) (string, error) {
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}
	jobID := payload.JobID

	task, err := NewProcessTask(payload)
	if err != nil {
		return "", errors.NewQueueFailedError(jobID, err)
	}

	// Mark queued before the task is visible so a fast worker's
	// processing update is never overwritten
	p.updateStatus(ctx, jobID, StatusQueued, nil)

	info, err := p.enqueuer.EnqueueContext(ctx, task,
		asynq.TaskID(jobID),
		asynq.Queue(p.queueName),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Timeout(p.timeout),
		asynq.Retention(defaultRetention),
	)
	if err != nil {
		qerr := errors.NewQueueFailedError(jobID, err)
		p.updateStatus(ctx, jobID, StatusFailed, qerr.ToMap())
		return "", qerr
	}

	queue := p.queueName
	if info != nil {
		queue = info.Queue
	}
	p.logger.Info("Job enqueued", "job", jobID, "queue", queue, "filename", payload.Filename, "bytes", len(payload.FileBuffer))

	return jobID, nil
}

func (p *Producer) updateStatus(ctx context.Context, jobID string, status Status, detail interface{}) {
	if p.status == nil {
		return
	}
	if err := p.status.Update(ctx, jobID, status, detail); err != nil {
		p.logger.Warn("Failed to update job status", "job", jobID, "status", status, "error", err)
	}
}
