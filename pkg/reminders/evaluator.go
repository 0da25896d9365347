package reminders

import (
	"math"
	"slices"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
)

const day = 24 * time.Hour

// Candidate is a payment selected for a reminder. Days is the number of days
// until the due date for before-due candidates and days late for after-due.
type Candidate struct {
	Payment models.Payment `json:"payment"`
	Days    int            `json:"days"`
}

type Evaluation struct {
	BeforeDue []Candidate `json:"before_due"`
	AfterDue  []Candidate `json:"after_due"`
}

// DaysUntil returns ceil((to - from) / 24h).
func DaysUntil(from, to time.Time) int {
	return int(math.Ceil(float64(to.Sub(from)) / float64(day)))
}

// Evaluate selects before-due and after-due candidates. After-due reminders
// fire only on the exact offsets, so a payment 8 days late with offsets
// {3,7,14} is not selected. The due date itself selects nothing.
func Evaluate(policy models.ReminderPolicy, payments []models.Payment, now time.Time) Evaluation {
	out := Evaluation{
		BeforeDue: []Candidate{},
		AfterDue:  []Candidate{},
	}
	for _, p := range payments {
		if !p.IsCandidate() || p.DueDate.IsZero() {
			continue
		}

		if policy.BeforeDueEnabled {
			daysUntilDue := DaysUntil(now, p.DueDate.Time)
			if daysUntilDue > 0 && daysUntilDue <= policy.BeforeDueThresholdDays {
				out.BeforeDue = append(out.BeforeDue, Candidate{Payment: p, Days: daysUntilDue})
			}
		}

		if policy.AfterDueEnabled {
			daysLate := DaysUntil(p.DueDate.Time, now)
			if daysLate > 0 && slices.Contains(policy.AfterDueOffsets, daysLate) {
				out.AfterDue = append(out.AfterDue, Candidate{Payment: p, Days: daysLate})
			}
		}
	}
	return out
}
