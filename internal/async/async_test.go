package async

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/pipeline"
)

func newJob() Job {
	return Job{
		JobID:      uuid.New(),
		DocumentID: uuid.New(),
		UserID:     uuid.New(),
		ImagePath:  "/data/receipt.png",
		RequestID:  "req-1",
	}
}

func TestProcessorQueue_RunsEveryJob(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[uuid.UUID]string{}
	)
	h := HandlerFunc(func(ctx context.Context, req pipeline.Request) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		mu.Lock()
		seen[req.JobID] = common.RequestIDFromContext(ctx)
		mu.Unlock()
		return nil
	})
	q := NewProcessorQueue(h, nil, WithWorkers(3), WithQueueSize(2), WithProcessTimeout(time.Second))

	var want []uuid.UUID
	for i := 0; i < 10; i++ {
		j := newJob()
		want = append(want, j.JobID)
		require.NoError(t, q.Enqueue(context.Background(), j))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, len(want))
	for _, id := range want {
		assert.Equal(t, "req-1", seen[id])
	}
}

func TestProcessorQueue_Enqueue(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr string
	}{
		{name: "missing job id", mutate: func(j *Job) { j.JobID = uuid.Nil }, wantErr: "missing an id"},
		{name: "missing path", mutate: func(j *Job) { j.ImagePath = "" }, wantErr: "missing image_path"},
	}
	q := NewProcessorQueue(HandlerFunc(func(context.Context, pipeline.Request) error { return nil }), nil)
	defer q.Shutdown(context.Background())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newJob()
			tt.mutate(&j)
			require.ErrorContains(t, q.Enqueue(context.Background(), j), tt.wantErr)
		})
	}
}

func TestProcessorQueue_ClosedAndBackpressure(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(context.Context, pipeline.Request) error {
		<-release
		return nil
	})
	q := NewProcessorQueue(h, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one in the buffer
	require.NoError(t, q.Enqueue(context.Background(), newJob()))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), newJob()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Enqueue(ctx, newJob()), context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
	require.ErrorIs(t, q.Enqueue(context.Background(), newJob()), ErrQueueClosed)
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   string
	qos        int
	published  []amqp.Publishing
	keys       []string
	deliveries chan amqp.Delivery
	publishErr error
	closed     bool
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	c.declared = name
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Qos(n, _ int, _ bool) error {
	c.qos = n
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type settled struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAck struct {
	mu  sync.Mutex
	out []settled
}

func (a *fakeAck) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out = append(a.out, settled{tag: tag, ack: true})
	return nil
}

func (a *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out = append(a.out, settled{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func (a *fakeAck) byTag() map[uint64]settled {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := make(map[uint64]settled, len(a.out))
	for _, s := range a.out {
		m[s.tag] = s
	}
	return m
}

func TestAMQPQueue_Enqueue(t *testing.T) {
	ch := &fakeChannel{}
	q, err := NewAMQPQueue(ch, AMQPConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "document_jobs", ch.declared)

	job := newJob()
	require.NoError(t, q.Enqueue(context.Background(), job))
	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "document_jobs", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, job.JobID.String(), msg.MessageId)
	assert.Equal(t, "req-1", msg.CorrelationId)

	var got Job
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, job.Request(), got.Request())
	assert.False(t, got.SubmittedAt.IsZero())

	ch.publishErr = errors.New("channel closed")
	require.ErrorContains(t, q.Enqueue(context.Background(), newJob()), "publish job")

	q.Shutdown(context.Background())
	assert.True(t, ch.closed)
	require.ErrorIs(t, q.Enqueue(context.Background(), newJob()), ErrQueueClosed)
}

func TestAMQPQueue_Consume(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 8)}
	q, err := NewAMQPQueue(ch, AMQPConfig{Queue: "jobs", JobTimeout: time.Second}, nil)
	require.NoError(t, err)

	ok, dbDown, gone := newJob(), newJob(), newJob()
	var calls atomic.Int32
	h := HandlerFunc(func(_ context.Context, req pipeline.Request) error {
		calls.Add(1)
		switch req.JobID {
		case dbDown.JobID:
			return common.ErrDatabase
		case gone.JobID:
			return common.ErrNotFound
		}
		return nil
	})

	ack := &fakeAck{}
	body := func(j Job) []byte {
		b, err := json.Marshal(j)
		require.NoError(t, err)
		return b
	}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body(ok)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: body(dbDown)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: body(gone)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: []byte("{not json")}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 5, Body: []byte(`{"job_id":"` + uuid.NewString() + `"}`)}
	close(ch.deliveries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Consume(ctx, "worker-1", 2, h))
	assert.Equal(t, 2, ch.qos)

	require.Eventually(t, func() bool { return len(ack.byTag()) == 5 }, 2*time.Second, 5*time.Millisecond)
	got := ack.byTag()
	assert.Equal(t, settled{tag: 1, ack: true}, got[1])
	assert.Equal(t, settled{tag: 2, requeue: true}, got[2])
	assert.Equal(t, settled{tag: 3, ack: true}, got[3])
	assert.Equal(t, settled{tag: 4}, got[4])
	assert.Equal(t, settled{tag: 5}, got[5])
	assert.EqualValues(t, 3, calls.Load())

	q.Shutdown(context.Background())
}
