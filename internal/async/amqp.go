package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
)

// AMQPConfig describes the broker queue jobs are published to.
type AMQPConfig struct {
	URL           string
	Queue         string
	Prefetch      int
	RetryAttempts int
	RetryInterval time.Duration
	JobTimeout    time.Duration
}

// Channel is the subset of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes job descriptors to RabbitMQ and consumes them on the worker side.
type AMQPQueue struct {
	cfg     AMQPConfig
	conn    *amqp.Connection
	channel Channel
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// DialAMQP connects with retries and declares the durable job queue.
func DialAMQP(cfg AMQPConfig, logger *slog.Logger) (*AMQPQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := max(cfg.RetryAttempts, 1)
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = amqp.DialConfig(cfg.URL, amqp.Config{Heartbeat: 10 * time.Second, Locale: "en_US"})
		if err == nil {
			break
		}
		logger.Error("amqp.connect.failed", "attempt", attempt, "max_attempts", attempts, "err", err)
		if attempt < attempts {
			time.Sleep(cfg.RetryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := NewAMQPQueue(ch, cfg, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	q.conn = conn
	return q, nil
}

// NewAMQPQueue declares the queue on an open channel.
func NewAMQPQueue(ch Channel, cfg AMQPConfig, logger *slog.Logger) (*AMQPQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Queue == "" {
		cfg.Queue = "document_jobs"
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if _, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // auto-delete
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		return nil, fmt.Errorf("declare queue %q: %w", cfg.Queue, err)
	}
	logger.Info("amqp.queue.ready", "queue", cfg.Queue)
	return &AMQPQueue{cfg: cfg, channel: ch, logger: logger}, nil
}

// Enqueue publishes the job as a persistent JSON message on the default exchange.
func (q *AMQPQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.validate(); err != nil {
		return err
	}
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	err = q.channel.PublishWithContext(ctx,
		"",          // exchange
		q.cfg.Queue, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     job.SubmittedAt,
			MessageId:     job.JobID.String(),
			CorrelationId: job.RequestID,
		},
	)
	if err != nil {
		q.logger.Error("amqp.publish.failed", "job_id", job.JobID, "err", err)
		return fmt.Errorf("publish job: %w", err)
	}
	q.logger.Info("amqp.job.published", "job_id", job.JobID, "body_size", len(body))
	return nil
}

// Consume runs workers goroutines that handle deliveries until ctx ends or the
// delivery channel closes. Messages are acknowledged once the job state is recorded.
func (q *AMQPQueue) Consume(ctx context.Context, consumerTag string, workers int, h Handler) error {
	workers = max(workers, 1)
	prefetch := q.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = workers
	}
	if err := q.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	deliveries, err := q.channel.Consume(
		q.cfg.Queue, // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	q.logger.Info("amqp.consumer.started", "queue", q.cfg.Queue, "consumer_tag", consumerTag, "workers", workers)

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					q.handle(ctx, d, h)
				}
			}
		}()
	}
	return nil
}

func (q *AMQPQueue) handle(ctx context.Context, d amqp.Delivery, h Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil || job.validate() != nil {
		q.logger.Error("amqp.message.malformed", "delivery_tag", d.DeliveryTag, "body_size", len(d.Body))
		q.settle(d, false, false)
		return
	}

	jctx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeout)
	defer cancel()
	if job.RequestID != "" {
		jctx = common.WithRequestID(jctx, job.RequestID)
	}
	err := h.ProcessDocumentJob(jctx, job.Request())
	switch {
	case err == nil:
		q.settle(d, true, false)
	case errors.Is(err, common.ErrDatabase):
		// the job row could not be written; let another consumer try
		q.logger.Warn("amqp.job.requeued", "job_id", job.JobID, "err", err)
		q.settle(d, false, true)
	default:
		q.logger.Error("amqp.job.dropped", "job_id", job.JobID, "err", err)
		q.settle(d, true, false)
	}
}

func (q *AMQPQueue) settle(d amqp.Delivery, ack, requeue bool) {
	var err error
	if ack {
		err = d.Ack(false)
	} else {
		err = d.Nack(false, requeue)
	}
	if err != nil {
		q.logger.Error("amqp.settle.failed", "delivery_tag", d.DeliveryTag, "ack", ack, "err", err)
	}
}

// Shutdown waits for running consumers and closes the channel and connection.
// Cancel the Consume context first so idle consumers return.
func (q *AMQPQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()
	select {
	case <-ctx.Done():
		q.logger.Warn("amqp.shutdown.interrupted")
	case <-done:
	}

	if err := q.channel.Close(); err != nil {
		q.logger.Error("amqp.channel.close_failed", "err", err)
	}
	if q.conn != nil {
		if err := q.conn.Close(); err != nil {
			q.logger.Error("amqp.connection.close_failed", "err", err)
		}
	}
	q.logger.Info("amqp.closed")
}
