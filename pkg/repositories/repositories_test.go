package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenKV struct{}

func (brokenKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenKV) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("connection refused")
}
func (brokenKV) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestPolicyRepository_DefaultsWhenMissing(t *testing.T) {
	repo := NewPolicyRepository(NewMemoryKV(), zap.NewNop())

	policy := repo.Get(context.Background(), "owner-1")

	assert.Equal(t, "owner-1", policy.OwnerID)
	assert.True(t, policy.BeforeDueEnabled)
	assert.Equal(t, 5, policy.BeforeDueThresholdDays)
	assert.Equal(t, []models.Channel{models.ChannelEmail}, policy.BeforeDueChannels)
	assert.True(t, policy.AfterDueEnabled)
	assert.Equal(t, []int{3, 7, 14}, policy.AfterDueOffsets)
	assert.Equal(t, []models.Channel{models.ChannelWhatsApp, models.ChannelSMS}, policy.AfterDueChannels)
}

func TestPolicyRepository_DefaultsOnStorageError(t *testing.T) {
	repo := NewPolicyRepository(brokenKV{}, zap.NewNop())

	policy := repo.Get(context.Background(), "owner-1")
	assert.Equal(t, models.DefaultReminderPolicy("owner-1"), policy)
}

func TestPolicyRepository_SaveReplacesWholePolicy(t *testing.T) {
	ctx := context.Background()
	repo := NewPolicyRepository(NewMemoryKV(), zap.NewNop()).WithClock(fixedClock())

	policy := repo.Get(ctx, "owner-1")
	policy.BeforeDueThresholdDays = 2
	policy.AfterDueOffsets = nil
	require.NoError(t, repo.Save(ctx, &policy))

	got := repo.Get(ctx, "owner-1")
	assert.Equal(t, 2, got.BeforeDueThresholdDays)
	assert.Empty(t, got.AfterDueOffsets)
	assert.True(t, fixedClock()().Equal(got.UpdatedAt))
}

func TestPolicyRepository_SaveRequiresOwner(t *testing.T) {
	repo := NewPolicyRepository(NewMemoryKV(), zap.NewNop())
	err := repo.Save(context.Background(), &models.ReminderPolicy{})
	assert.ErrorIs(t, err, models.ErrMissingOwner)
}

func TestPolicyRepository_RecordOutcome(t *testing.T) {
	ctx := context.Background()
	repo := NewPolicyRepository(NewMemoryKV(), zap.NewNop())
	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordOutcome(ctx, "owner-1", models.AttemptSent, at))
	require.NoError(t, repo.RecordOutcome(ctx, "owner-1", models.AttemptFailed, at))
	require.NoError(t, repo.RecordOutcome(ctx, "owner-1", models.AttemptSent, at))

	policy := repo.Get(ctx, "owner-1")
	assert.Equal(t, 2, policy.TotalSent)
	assert.Equal(t, 1, policy.TotalFailed)
	require.NotNil(t, policy.LastSentAt)
	assert.True(t, policy.LastSentAt.Equal(at))
}

func TestPolicyRepository_ConcurrentOutcomesAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := NewPolicyRepository(NewMemoryKV(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.RecordOutcome(ctx, "owner-1", models.AttemptSent, time.Now())
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, repo.Get(ctx, "owner-1").TotalSent)
}

// hookKV runs hook once, on the first read.
type hookKV struct {
	KVStore
	once sync.Once
	hook func()
}

func (h *hookKV) Get(ctx context.Context, key string) ([]byte, error) {
	h.once.Do(h.hook)
	return h.KVStore.Get(ctx, key)
}

func TestPolicyRepository_ReplaceKeepsStoredCounters(t *testing.T) {
	ctx := context.Background()
	repo := NewPolicyRepository(NewMemoryKV(), zap.NewNop())
	require.NoError(t, repo.RecordOutcome(ctx, "owner-1", models.AttemptSent, time.Now()))

	policy := models.DefaultReminderPolicy("owner-1")
	policy.BeforeDueThresholdDays = 2
	policy.TotalSent = 40
	policy.TotalFailed = 9
	require.NoError(t, repo.Replace(ctx, &policy))

	got := repo.Get(ctx, "owner-1")
	assert.Equal(t, 2, got.BeforeDueThresholdDays)
	assert.Equal(t, 1, got.TotalSent)
	assert.Equal(t, 0, got.TotalFailed)
	assert.NotNil(t, got.LastSentAt)
}

func TestPolicyRepository_ReplaceDoesNotLoseConcurrentOutcome(t *testing.T) {
	ctx := context.Background()
	kv := &hookKV{KVStore: NewMemoryKV()}
	repo := NewPolicyRepository(kv, zap.NewNop())

	recorded := make(chan struct{})
	kv.hook = func() {
		go func() {
			defer close(recorded)
			_ = repo.RecordOutcome(ctx, "owner-1", models.AttemptSent, time.Now())
		}()
		time.Sleep(20 * time.Millisecond)
	}

	policy := models.DefaultReminderPolicy("owner-1")
	policy.AfterDueOffsets = []int{5}
	require.NoError(t, repo.Replace(ctx, &policy))
	<-recorded

	got := repo.Get(ctx, "owner-1")
	assert.Equal(t, 1, got.TotalSent)
	assert.Equal(t, []int{5}, got.AfterDueOffsets)
}

func newAttempt(owner, payment string) models.ReminderAttempt {
	return models.ReminderAttempt{
		OwnerID:   owner,
		PaymentID: payment,
		Channel:   models.ChannelEmail,
		Type:      models.ReminderBeforeDue,
		Status:    models.AttemptSent,
	}
}

func TestHistoryRepository_AppendAssignsIDAndOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(NewMemoryKV())

	first, err := repo.Append(ctx, newAttempt("owner-1", "p1"))
	require.NoError(t, err)
	second, err := repo.Append(ctx, newAttempt("owner-1", "p2"))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	entries, err := repo.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "p2", entries[0].PaymentID)
	assert.Equal(t, "p1", entries[1].PaymentID)
}

func TestHistoryRepository_CapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(NewMemoryKV())

	for i := 0; i < MaxHistoryEntries+1; i++ {
		_, err := repo.Append(ctx, newAttempt("owner-1", fmt.Sprintf("p%d", i)))
		require.NoError(t, err)
	}

	entries, err := repo.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, entries, MaxHistoryEntries)
	assert.Equal(t, fmt.Sprintf("p%d", MaxHistoryEntries), entries[0].PaymentID)
	assert.Equal(t, "p1", entries[len(entries)-1].PaymentID)
}

func TestHistoryRepository_ConcurrentAppendsKeepCap(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(NewMemoryKV())
	repo.limit = 20

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Append(ctx, newAttempt("owner-1", fmt.Sprintf("p%d", i)))
		}(i)
	}
	wg.Wait()

	entries, err := repo.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestHistoryRepository_OwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(NewMemoryKV())

	_, err := repo.Append(ctx, newAttempt("owner-1", "p1"))
	require.NoError(t, err)

	entries, err := repo.List(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryRepository_ClearAndListByPayment(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(NewMemoryKV())

	_, _ = repo.Append(ctx, newAttempt("owner-1", "p1"))
	_, _ = repo.Append(ctx, newAttempt("owner-1", "p2"))
	_, _ = repo.Append(ctx, newAttempt("owner-1", "p1"))

	byPayment, err := repo.ListByPayment(ctx, "owner-1", "p1")
	require.NoError(t, err)
	assert.Len(t, byPayment, 2)

	require.NoError(t, repo.Clear(ctx, "owner-1"))
	entries, err := repo.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryRepository_AppendPropagatesStorageError(t *testing.T) {
	repo := NewHistoryRepository(brokenKV{})
	_, err := repo.Append(context.Background(), newAttempt("owner-1", "p1"))
	assert.Error(t, err)
}

func TestReminderConfigRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewReminderConfigRepository(NewMemoryKV())

	cfg := &models.ReminderConfig{
		OwnerID:  "owner-1",
		Name:     "Relance ferme",
		Type:     models.ReminderAfterDue,
		Channels: []models.Channel{models.ChannelSMS},
		Template: "Bonjour {{.TenantName}}",
	}
	require.NoError(t, repo.Create(ctx, cfg))
	require.NotEmpty(t, cfg.ID)

	got, err := repo.GetByID(ctx, "owner-1", cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Relance ferme", got.Name)

	got.Name = "Relance douce"
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Relance douce", list[0].Name)
	assert.True(t, cfg.CreatedAt.Equal(list[0].CreatedAt))

	require.NoError(t, repo.Delete(ctx, "owner-1", cfg.ID))
	_, err = repo.GetByID(ctx, "owner-1", cfg.ID)
	assert.ErrorIs(t, err, models.ErrConfigNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "owner-1", "missing"), models.ErrConfigNotFound)
}

func TestMemoryKV_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
