package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader serves its messages, then cancels the consumer context.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	next      int
	committed []int64
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.next < len(f.messages) {
		m := f.messages[f.next]
		f.next++
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	f.cancel()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeDLQ struct {
	topics []string
	err    error
}

func (f *fakeDLQ) Publish(ctx context.Context, topic string, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

func jobMessage(t *testing.T, offset int64, jobID string) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(types.BulkJob{JobID: jobID, OwnerID: "owner-1"})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte("owner-1"), Value: raw}
}

func newTestConsumer(messages ...kafka.Message) (*Consumer, *fakeReader, *fakeDLQ, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{messages: messages, cancel: cancel}
	dlq := &fakeDLQ{}
	c := newConsumer(reader, TopicBulk, zap.NewNop()).WithDeadLetter(dlq)
	c.backoff = 0
	return c, reader, dlq, ctx
}

func TestConsumeBulkJobs_CommitsHandledJobs(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(jobMessage(t, 1, "a"), jobMessage(t, 2, "b"))
	var seen []string

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		seen = append(seen, job.JobID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, reader.committed)
	assert.Empty(t, dlq.topics)
}

func TestConsumeBulkJobs_RetriesTransientFailure(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(jobMessage(t, 1, "a"))
	calls := 0

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		calls++
		if calls == 1 {
			return errors.New("redis unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{1}, reader.committed)
	assert.Empty(t, dlq.topics)
}

func TestConsumeBulkJobs_DeadLettersAfterRetries(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(jobMessage(t, 1, "a"))
	calls := 0

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		calls++
		return errors.New("redis unavailable")
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{TopicBulkDLQ}, dlq.topics)
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestConsumeBulkJobs_InvalidJobIsNotRetried(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(jobMessage(t, 1, "a"))
	calls := 0

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		calls++
		return models.ErrInvalidChannel
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{TopicBulkDLQ}, dlq.topics)
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestConsumeBulkJobs_UndecodableMessageIsDeadLettered(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(kafka.Message{Offset: 7, Value: []byte("{not json")})

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		t.Fatal("handler must not run")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{TopicBulkDLQ}, dlq.topics)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumeBulkJobs_InterruptedJobIsNotCommitted(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(jobMessage(t, 1, "a"), jobMessage(t, 2, "b"))

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		reader.cancel()
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.Empty(t, reader.committed)
	assert.Empty(t, dlq.topics)
}

func TestConsumeBulkJobs_StopsWhenDeadLetterFails(t *testing.T) {
	c, reader, dlq, ctx := newTestConsumer(jobMessage(t, 1, "a"), jobMessage(t, 2, "b"))
	dlq.err = errors.New("broker down")
	calls := 0

	err := c.ConsumeBulkJobs(ctx, func(ctx context.Context, job types.BulkJob) error {
		calls++
		return models.ErrInvalidReminderType
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, reader.committed)
}
