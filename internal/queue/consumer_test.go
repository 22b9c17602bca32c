package queue

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/labreport"
	"github.com/adverant/nexus/labreport-worker/internal/processor"
)

func newTestConsumer(proc processor.Processor, store StatusStore) *Consumer {
	return &Consumer{
		processor: proc,
		status:    store,
		config:    &ConsumerConfig{QueueName: "labreport:jobs", Concurrency: 1},
		timeout:   time.Second,
		logger:    quietLogger(),
	}
}

func taskFor(t *testing.T, payload *JobPayload) *asynq.Task {
	t.Helper()
	task, err := NewProcessTask(payload)
	require.NoError(t, err)
	return task
}

func TestHandleTask_Success(t *testing.T) {
	proc := &fakeProcessor{result: &processor.ProcessResult{
		JobID:  "job-1",
		Layout: labreport.LayoutList,
		Tests:  []labreport.LabTest{{TestName: "Glucose", TestValue: "95", TestUnit: "mg/dL"}},
	}}
	store := &recordingStore{}
	c := newTestConsumer(proc, store)

	err := c.HandleTask(context.Background(), taskFor(t, &JobPayload{JobID: "job-1", Filename: "a.png", MimeType: "image/png", FileBuffer: []byte{1, 2}}))

	require.NoError(t, err)
	assert.Equal(t, []Status{StatusProcessing, StatusCompleted}, store.statuses())
	assert.Equal(t, "a.png", proc.got.Filename)
	assert.Equal(t, []byte{1, 2}, proc.got.FileBuffer)

	st, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Contains(t, string(st.Data), `"test_name":"Glucose"`)
}

func TestHandleTask_UndecodablePayloadSkipsRetry(t *testing.T) {
	store := &recordingStore{}
	c := newTestConsumer(&fakeProcessor{}, store)

	err := c.HandleTask(context.Background(), asynq.NewTask(TaskTypeProcessLabReport, []byte("{not json")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, store.statuses())
}

func TestHandleTask_BadInputFailsWithoutRetry(t *testing.T) {
	store := &recordingStore{}
	c := newTestConsumer(&fakeProcessor{err: errors.NewUnsupportedFormatError("job-2", "application/pdf")}, store)

	err := c.HandleTask(context.Background(), taskFor(t, &JobPayload{JobID: "job-2"}))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, []Status{StatusProcessing, StatusFailed}, store.statuses())

	detail := store.updates[1].detail.(map[string]interface{})
	assert.Equal(t, "File must be an image", detail["error"])
	assert.Equal(t, "UNSUPPORTED_FORMAT", detail["error_code"])
}

func TestHandleTask_OCRFailureIsRetryable(t *testing.T) {
	store := &recordingStore{}
	cause := errors.NewOCRFailedError("job-3", "tesseract", stderrors.New("crash"))
	c := newTestConsumer(&fakeProcessor{err: cause}, store)

	err := c.HandleTask(context.Background(), taskFor(t, &JobPayload{JobID: "job-3"}))

	require.Error(t, err)
	assert.False(t, stderrors.Is(err, asynq.SkipRetry))
	assert.Equal(t, errors.ErrorOCRFailed, errors.CodeOf(err))
	// outside an asynq server every attempt is the last one
	assert.Equal(t, []Status{StatusProcessing, StatusFailed}, store.statuses())
}

func TestHandleTask_StatusStoreErrorsAreNotFatal(t *testing.T) {
	store := &recordingStore{err: stderrors.New("redis down")}
	c := newTestConsumer(&fakeProcessor{result: &processor.ProcessResult{JobID: "job-4"}}, store)

	err := c.HandleTask(context.Background(), taskFor(t, &JobPayload{JobID: "job-4"}))

	assert.NoError(t, err)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryDelay(0, nil, nil))
	assert.Equal(t, 10*time.Second, RetryDelay(1, nil, nil))
	assert.Equal(t, 20*time.Second, RetryDelay(2, nil, nil))
	assert.Equal(t, 40*time.Second, RetryDelay(3, nil, nil))
	assert.Equal(t, 60*time.Second, RetryDelay(4, nil, nil))
	assert.Equal(t, 60*time.Second, RetryDelay(30, nil, nil))
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(&ConsumerConfig{QueueName: "q", Processor: &fakeProcessor{}})
	assert.ErrorContains(t, err, "RedisURL")

	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", Processor: &fakeProcessor{}})
	assert.ErrorContains(t, err, "QueueName")

	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"})
	assert.ErrorContains(t, err, "Processor")
}
