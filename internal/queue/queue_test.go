package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
	"github.com/adverant/nexus/labreport-worker/internal/processor"
)

func quietLogger() *logging.Logger {
	return logging.NewLoggerWithOutput("queue", logging.LevelError, &bytes.Buffer{})
}

// fakeRedis implements StatusClient over in-memory sets and hashes
type fakeRedis struct {
	mu        sync.Mutex
	sets      map[string]map[string]bool
	hashes    map[string]map[string]string
	published map[string][]string
	failSAdd  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		sets:      map[string]map[string]bool{},
		hashes:    map[string]map[string]string{},
		published: map[string][]string{},
	}
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSAdd != nil {
		return redis.NewIntResult(0, f.failSAdd)
	}
	if f.sets[key] == nil {
		f.sets[key] = map[string]bool{}
	}
	for _, m := range members {
		f.sets[key][m.(string)] = true
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range members {
		delete(f.sets[key], m.(string))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewBoolResult(f.sets[key][member.(string)], nil)
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		var v string
		switch val := values[i+1].(type) {
		case []byte:
			v = string(val)
		case string:
			v = val
		}
		f.hashes[key][values[i].(string)] = v
	}
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := message.([]byte); ok {
		f.published[channel] = append(f.published[channel], string(b))
	}
	return redis.NewIntResult(0, nil)
}

func (f *fakeRedis) members(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out
}

// statusUpdate records one StatusStore.Update call
type statusUpdate struct {
	jobID  string
	status Status
	detail interface{}
}

// recordingStore is an in-memory StatusStore
type recordingStore struct {
	mu      sync.Mutex
	updates []statusUpdate
	err     error
}

func (r *recordingStore) Update(ctx context.Context, jobID string, status Status, detail interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, statusUpdate{jobID: jobID, status: status, detail: detail})
	return r.err
}

func (r *recordingStore) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].jobID == jobID {
			js := &JobStatus{JobID: jobID, Status: r.updates[i].status}
			if r.updates[i].detail != nil {
				js.Data, _ = json.Marshal(r.updates[i].detail)
			}
			return js, nil
		}
	}
	return nil, errors.NewJobNotFoundError(jobID)
}

func (r *recordingStore) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.status
	}
	return out
}

// fakeProcessor returns a canned result or error
type fakeProcessor struct {
	result *processor.ProcessResult
	err    error
	got    *processor.ProcessRequest
}

func (f *fakeProcessor) Process(ctx context.Context, req *processor.ProcessRequest) (*processor.ProcessResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
