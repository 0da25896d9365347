package reminders

import (
	"context"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
)

type ChannelStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Stats is derived from the ledger only. The policy counters may drift from
// it, e.g. after the history is cleared.
type Stats struct {
	TotalSent   int                             `json:"total_sent"`
	TotalFailed int                             `json:"total_failed"`
	ByChannel   map[models.Channel]ChannelStats `json:"by_channel"`
	ByType      map[models.ReminderType]int     `json:"by_type"`
}

// Aggregate folds ledger entries into stats. ByType counts sent attempts only.
func Aggregate(entries []models.ReminderAttempt) Stats {
	s := Stats{
		ByChannel: make(map[models.Channel]ChannelStats, len(models.Channels)),
		ByType: map[models.ReminderType]int{
			models.ReminderBeforeDue: 0,
			models.ReminderAfterDue:  0,
		},
	}
	for _, c := range models.Channels {
		s.ByChannel[c] = ChannelStats{}
	}

	for _, e := range entries {
		cs := s.ByChannel[e.Channel]
		switch e.Status {
		case models.AttemptSent:
			s.TotalSent++
			cs.Sent++
			s.ByType[e.Type]++
		case models.AttemptFailed:
			s.TotalFailed++
			cs.Failed++
		default:
			continue
		}
		s.ByChannel[e.Channel] = cs
	}
	return s
}

func GetStats(ctx context.Context, ledger Ledger, ownerID string) (Stats, error) {
	entries, err := ledger.List(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}
	return Aggregate(entries), nil
}
