package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"go.uber.org/zap"
)

type RunReport struct {
	Evaluated  int                      `json:"evaluated"`
	BeforeDue  int                      `json:"before_due"`
	AfterDue   int                      `json:"after_due"`
	Sent       int                      `json:"sent"`
	Failed     int                      `json:"failed"`
	Skipped    int                      `json:"skipped"`
	Duplicates int                      `json:"duplicates"`
	Attempts   []models.ReminderAttempt `json:"attempts"`
}

// Runner evaluates an owner's payments and sends the automatic reminders.
type Runner struct {
	policies   PolicyStore
	ledger     Ledger
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewRunner(policies PolicyStore, ledger Ledger, dispatcher *Dispatcher, logger *zap.Logger) *Runner {
	return &Runner{
		policies:   policies,
		ledger:     ledger,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RunOnce sends every matching reminder on every channel of its branch. A
// payment, type and channel already sent on the same calendar day as now is
// not sent again, so running several times a day is safe.
func (r *Runner) RunOnce(ctx context.Context, ownerID string, payments []models.Payment, now time.Time) (RunReport, error) {
	report := RunReport{
		Evaluated: len(payments),
		Attempts:  []models.ReminderAttempt{},
	}
	if ownerID == "" {
		return report, models.ErrMissingOwner
	}

	policy := r.policies.Get(ctx, ownerID)
	eval := Evaluate(policy, payments, now)
	report.BeforeDue = len(eval.BeforeDue)
	report.AfterDue = len(eval.AfterDue)

	history, err := r.ledger.List(ctx, ownerID)
	if err != nil {
		metrics.ReminderRunsTotal.WithLabelValues("error").Inc()
		return report, err
	}
	sentToday := make(map[string]struct{})
	for _, a := range history {
		if a.Status == models.AttemptSent && a.SentAt != nil && sameDay(*a.SentAt, now) {
			sentToday[dedupeKey(a.PaymentID, a.Type, a.Channel)] = struct{}{}
		}
	}

	branches := []struct {
		reminderType models.ReminderType
		candidates   []Candidate
	}{
		{models.ReminderBeforeDue, eval.BeforeDue},
		{models.ReminderAfterDue, eval.AfterDue},
	}
	for _, b := range branches {
		for _, c := range b.candidates {
			for _, channel := range policy.ChannelsFor(b.reminderType) {
				if err := ctx.Err(); err != nil {
					metrics.ReminderRunsTotal.WithLabelValues("cancelled").Inc()
					return report, err
				}
				key := dedupeKey(c.Payment.ID, b.reminderType, channel)
				if _, ok := sentToday[key]; ok {
					report.Duplicates++
					continue
				}

				attempt, err := r.dispatcher.SendReminder(ctx, SendRequest{
					OwnerID:     ownerID,
					Payment:     c.Payment,
					Channel:     channel,
					Type:        b.reminderType,
					TriggeredBy: models.TriggeredAutomatic,
				})
				if errors.Is(err, models.ErrInvalidChannel) {
					r.logger.Warn("Policy references an unknown channel",
						zap.String("owner_id", ownerID),
						zap.String("channel", string(channel)),
					)
					report.Skipped++
					continue
				}
				if err != nil {
					metrics.ReminderRunsTotal.WithLabelValues("error").Inc()
					return report, err
				}
				if attempt == nil {
					report.Skipped++
					continue
				}

				report.Attempts = append(report.Attempts, *attempt)
				if attempt.Status == models.AttemptSent {
					report.Sent++
					sentToday[key] = struct{}{}
				} else {
					report.Failed++
				}
			}
		}
	}

	metrics.ReminderRunsTotal.WithLabelValues("ok").Inc()
	r.logger.Info("Automatic reminder run finished",
		zap.String("owner_id", ownerID),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Int("duplicates", report.Duplicates),
	)
	return report, nil
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dedupeKey(paymentID string, t models.ReminderType, c models.Channel) string {
	return paymentID + "|" + string(t) + "|" + string(c)
}
