package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gateway"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunner_SendsOnEveryBranchChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	notifier := &scriptedNotifier{steps: []*gateway.Result{ok("x")}}
	runner := NewRunner(f.policies, f.ledger, f.dispatcher(notifier), zap.NewNop())

	payments := []models.Payment{
		pendingPayment("soon", models.NewDate(2026, 10, 21)),
		pendingPayment("late", models.NewDate(2026, 10, 12)),
		pendingPayment("fine", models.NewDate(2026, 11, 30)),
	}

	report, err := runner.RunOnce(ctx, "owner-1", payments, f.now)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, 1, report.BeforeDue)
	assert.Equal(t, 1, report.AfterDue)
	// before-due goes by email, after-due by whatsapp and sms
	assert.Equal(t, 3, report.Sent)
	require.Len(t, notifier.calls, 3)
	for _, a := range report.Attempts {
		assert.Equal(t, models.TriggeredAutomatic, a.TriggeredBy)
	}
}

func TestRunner_DeduplicatesWithinTheSameDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	notifier := &scriptedNotifier{steps: []*gateway.Result{ok("x")}}
	runner := NewRunner(f.policies, f.ledger, f.dispatcher(notifier), zap.NewNop())
	payments := []models.Payment{pendingPayment("soon", models.NewDate(2026, 10, 21))}

	first, err := runner.RunOnce(ctx, "owner-1", payments, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	second, err := runner.RunOnce(ctx, "owner-1", payments, f.now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, notifier.calls, 1)
}

func TestRunner_RetriesFailedSendsOnTheSameDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	notifier := &scriptedNotifier{steps: []*gateway.Result{{Error: "down"}, ok("x")}}
	runner := NewRunner(f.policies, f.ledger, f.dispatcher(notifier), zap.NewNop())
	payments := []models.Payment{pendingPayment("soon", models.NewDate(2026, 10, 21))}

	first, err := runner.RunOnce(ctx, "owner-1", payments, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)

	second, err := runner.RunOnce(ctx, "owner-1", payments, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Sent)
}

func TestRunner_SkipsUnknownPolicyChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	policy := f.policies.Get(ctx, "owner-1")
	policy.BeforeDueChannels = []models.Channel{"fax", models.ChannelEmail}
	require.NoError(t, f.policies.Save(ctx, &policy))

	notifier := &scriptedNotifier{steps: []*gateway.Result{ok("x")}}
	runner := NewRunner(f.policies, f.ledger, f.dispatcher(notifier), zap.NewNop())

	report, err := runner.RunOnce(ctx, "owner-1", []models.Payment{pendingPayment("soon", models.NewDate(2026, 10, 21))}, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Sent)
}

func TestRunner_RequiresOwner(t *testing.T) {
	f := newFixture()
	runner := NewRunner(f.policies, f.ledger, f.dispatcher(&scriptedNotifier{}), zap.NewNop())

	_, err := runner.RunOnce(context.Background(), "", nil, f.now)
	assert.ErrorIs(t, err, models.ErrMissingOwner)
}
