package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TopicAttempts = "reminder.attempts"
	TopicBulk     = "reminder.bulk"
)

// Options selects the brokers. A non-nil TLS config switches to the managed
// (mTLS) cluster.
type Options struct {
	Brokers []string
	GroupID string
	TLS     *tls.Config
}

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(opts Options, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(opts.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	if opts.TLS != nil {
		w.Transport = &kafka.Transport{
			DialTimeout: 10 * time.Second,
			TLS:         opts.TLS,
		}
	}
	return &Producer{writer: w, logger: logger}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   key,
			Value: value,
		},
	)
	if err != nil {
		p.logger.Error("Failed to write Kafka message", zap.String("topic", topic), zap.Error(err))
		metrics.KafkaPublishFailureTotal.WithLabelValues(topic).Inc()
		return err
	}
	return nil
}

func (p *Producer) PublishJSON(ctx context.Context, topic, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte(key), value)
}

// PublishAttempt emits one event per recorded reminder attempt, keyed by
// owner so a consumer sees an owner's attempts in order.
func (p *Producer) PublishAttempt(ctx context.Context, attempt models.ReminderAttempt) error {
	return p.PublishJSON(ctx, TopicAttempts, attempt.OwnerID, types.AttemptEvent{
		Attempt:     attempt,
		PublishedAt: time.Now(),
	})
}

func (p *Producer) PublishBulkJob(ctx context.Context, job types.BulkJob) error {
	return p.PublishJSON(ctx, TopicBulk, job.OwnerID, job)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
