package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentPartial   PaymentStatus = "partial"
	PaymentLate      PaymentStatus = "late"
	PaymentCancelled PaymentStatus = "cancelled"
)

const dateLayout = "2006-01-02"

// Date accepts both plain ISO dates ("2026-10-21") and RFC3339 timestamps.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// Payment is a rent payment as supplied by the payments source. It is only
// ever read by the reminder engine.
type Payment struct {
	ID           string        `json:"id"`
	DueDate      Date          `json:"due_date"`
	Status       PaymentStatus `json:"status"`
	Amount       float64       `json:"amount"`
	Currency     string        `json:"currency,omitempty"`
	TenantID     string        `json:"tenant_id"`
	TenantName   string        `json:"tenant_name"`
	TenantEmail  string        `json:"tenant_email,omitempty"`
	TenantPhone  string        `json:"tenant_phone,omitempty"`
	ContractID   string        `json:"contract_id,omitempty"`
	PropertyName string        `json:"property_name,omitempty"`
	PeriodStart  Date          `json:"period_start"`
	PeriodEnd    Date          `json:"period_end"`
}

// IsCandidate reports whether the payment can receive reminders at all.
func (p Payment) IsCandidate() bool {
	return p.Status != PaymentPaid
}
