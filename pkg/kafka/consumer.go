package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TopicBulkDLQ receives bulk jobs that could not be processed.
const TopicBulkDLQ = TopicBulk + ".dlq"

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher is satisfied by *Producer.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Consumer struct {
	reader      messageReader
	topic       string
	dlq         DeadLetterPublisher
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

func NewConsumer(topic string, opts Options, logger *zap.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  opts.Brokers,
		Topic:    topic,
		GroupID:  opts.GroupID,
		MaxBytes: 10e6, // 10MB
	}
	if opts.TLS != nil {
		cfg.Dialer = &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
			TLS:       opts.TLS,
		}
	}
	return newConsumer(kafka.NewReader(cfg), topic, logger)
}

func newConsumer(r messageReader, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:      r,
		topic:       topic,
		maxAttempts: 3,
		backoff:     2 * time.Second,
		logger:      logger,
	}
}

// WithDeadLetter sends jobs that fail permanently, or keep failing after
// every retry, to the DLQ topic before their offset is committed.
func (c *Consumer) WithDeadLetter(p DeadLetterPublisher) *Consumer {
	c.dlq = p
	return c
}

func (c *Consumer) ReadFromKafka(ctx context.Context) (*kafka.Message, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			metrics.KafkaSubscriberFailureTotal.WithLabelValues(c.topic).Inc()
		}
		return nil, err
	}
	return &m, nil
}

// ConsumeBulkJobs reads bulk jobs until ctx is done. An offset is committed
// only once its job was handled or dead-lettered. A job interrupted by
// shutdown stays uncommitted and is redelivered. The returned error means a
// message could neither be handled nor dead-lettered; the caller should stop
// and let the group redeliver it.
func (c *Consumer) ConsumeBulkJobs(ctx context.Context, handle func(context.Context, types.BulkJob) error) error {
	c.logger.Info("Starting Kafka consumer", zap.String("topic", c.topic))

	for {
		m, err := c.ReadFromKafka(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Shutting down consumer", zap.String("topic", c.topic))
				return nil
			}
			c.logger.Error("Error reading Kafka message", zap.String("topic", c.topic), zap.Error(err))
			continue
		}

		done, err := c.process(ctx, *m, handle)
		if err != nil {
			return err
		}
		if !done {
			c.logger.Info("Shutting down consumer, job left uncommitted",
				zap.String("topic", c.topic),
				zap.Int64("offset", m.Offset),
			)
			return nil
		}
		if err := c.reader.CommitMessages(ctx, *m); err != nil {
			metrics.KafkaSubscriberFailureTotal.WithLabelValues(c.topic).Inc()
			c.logger.Error("Failed to commit Kafka message",
				zap.String("topic", c.topic),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
	}
}

// process reports whether the message can be committed.
func (c *Consumer) process(ctx context.Context, m kafka.Message, handle func(context.Context, types.BulkJob) error) (bool, error) {
	var job types.BulkJob
	if err := json.Unmarshal(m.Value, &job); err != nil {
		c.logger.Error("Failed to unmarshal bulk job",
			zap.ByteString("raw", m.Value),
			zap.Error(err),
		)
		return true, c.deadLetter(ctx, m, "decode_error")
	}
	c.logger.Info("Kafka message received",
		zap.String("topic", c.topic),
		zap.ByteString("key", m.Key),
		zap.Int64("offset", m.Offset),
		zap.String("job_id", job.JobID),
	)

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = handle(ctx, job)
		if err == nil {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, nil
		}
		c.logger.Warn("Bulk job failed",
			zap.String("job_id", job.JobID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if permanent(err) || attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-time.After(c.backoff * time.Duration(1<<(attempt-1))):
		}
	}

	reason := "retries_exhausted"
	if permanent(err) {
		reason = "invalid_job"
	}
	c.logger.Error("Permanent bulk job failure - sending to DLQ",
		zap.String("job_id", job.JobID),
		zap.String("owner_id", job.OwnerID),
		zap.Error(err),
	)
	return true, c.deadLetter(ctx, m, reason)
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, reason string) error {
	if c.dlq == nil {
		return fmt.Errorf("no dead letter topic for message at offset %d", m.Offset)
	}
	if err := c.dlq.Publish(ctx, TopicBulkDLQ, m.Key, m.Value); err != nil {
		return fmt.Errorf("dead letter publish failed: %w", err)
	}
	metrics.ReminderDLQTotal.WithLabelValues(reason).Inc()
	return nil
}

// permanent errors come from jobs that no retry can fix.
func permanent(err error) bool {
	return errors.Is(err, models.ErrInvalidChannel) ||
		errors.Is(err, models.ErrInvalidReminderType) ||
		errors.Is(err, models.ErrMissingOwner)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
