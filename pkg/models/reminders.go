package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidChannel      = errors.New("invalid reminder channel")
	ErrInvalidReminderType = errors.New("invalid reminder type")
	ErrMissingOwner        = errors.New("owner ID is required")
	ErrConfigNotFound      = errors.New("reminder config not found")
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Channels lists every supported channel in display order.
var Channels = []Channel{ChannelEmail, ChannelWhatsApp, ChannelSMS}

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsApp, ChannelSMS:
		return true
	}
	return false
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", ErrInvalidChannel
	}
	return c, nil
}

type ReminderType string

const (
	ReminderBeforeDue ReminderType = "before_due"
	ReminderAfterDue  ReminderType = "after_due"
)

func (t ReminderType) Valid() bool {
	return t == ReminderBeforeDue || t == ReminderAfterDue
}

func ParseReminderType(s string) (ReminderType, error) {
	t := ReminderType(s)
	if !t.Valid() {
		return "", ErrInvalidReminderType
	}
	return t, nil
}

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptSent      AttemptStatus = "sent"
	AttemptFailed    AttemptStatus = "failed"
	AttemptCancelled AttemptStatus = "cancelled"
)

type TriggeredBy string

const (
	TriggeredAutomatic TriggeredBy = "automatic"
	TriggeredManual    TriggeredBy = "manual"
)

// ReminderPolicy is the per-owner reminder configuration. The counters are an
// informational view: they are not reset when the history is cleared, so the
// history ledger stays the source of truth for statistics.
type ReminderPolicy struct {
	OwnerID string `json:"owner_id"`

	BeforeDueEnabled       bool      `json:"before_due_enabled"`
	BeforeDueThresholdDays int       `json:"before_due_threshold_days"`
	BeforeDueChannels      []Channel `json:"before_due_channels"`

	AfterDueEnabled  bool      `json:"after_due_enabled"`
	AfterDueOffsets  []int     `json:"after_due_offsets"`
	AfterDueChannels []Channel `json:"after_due_channels"`

	MessageTemplateBeforeDue string `json:"message_template_before_due"`
	MessageTemplateAfterDue  string `json:"message_template_after_due"`

	TotalSent   int        `json:"total_sent"`
	TotalFailed int        `json:"total_failed"`
	LastSentAt  *time.Time `json:"last_sent_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const (
	DefaultTemplateBeforeDue = "Bonjour {{.TenantName}}, nous vous rappelons que votre loyer de {{.Amount}} pour la période du {{.PeriodStart}} au {{.PeriodEnd}} est à régler avant le {{.DueDate}}. Merci."
	DefaultTemplateAfterDue  = "Bonjour {{.TenantName}}, sauf erreur de notre part, votre loyer de {{.Amount}} dû le {{.DueDate}} (période du {{.PeriodStart}} au {{.PeriodEnd}}) reste impayé. Merci de régulariser votre situation rapidement."
)

func DefaultReminderPolicy(ownerID string) ReminderPolicy {
	return ReminderPolicy{
		OwnerID:                  ownerID,
		BeforeDueEnabled:         true,
		BeforeDueThresholdDays:   5,
		BeforeDueChannels:        []Channel{ChannelEmail},
		AfterDueEnabled:          true,
		AfterDueOffsets:          []int{3, 7, 14},
		AfterDueChannels:         []Channel{ChannelWhatsApp, ChannelSMS},
		MessageTemplateBeforeDue: DefaultTemplateBeforeDue,
		MessageTemplateAfterDue:  DefaultTemplateAfterDue,
	}
}

// Template returns the policy template used for reminders of type t.
func (p *ReminderPolicy) Template(t ReminderType) string {
	if t == ReminderAfterDue {
		return p.MessageTemplateAfterDue
	}
	return p.MessageTemplateBeforeDue
}

// ChannelsFor returns the channels configured for the given branch.
func (p *ReminderPolicy) ChannelsFor(t ReminderType) []Channel {
	if t == ReminderAfterDue {
		return p.AfterDueChannels
	}
	return p.BeforeDueChannels
}

// ReminderAttempt records one send call. Attempts are never edited once
// appended to the history; a correction is a new attempt.
type ReminderAttempt struct {
	ID                string        `json:"id"`
	OwnerID           string        `json:"owner_id"`
	PaymentID         string        `json:"payment_id"`
	TenantID          string        `json:"tenant_id"`
	TenantName        string        `json:"tenant_name"`
	TenantEmail       string        `json:"tenant_email,omitempty"`
	TenantPhone       string        `json:"tenant_phone,omitempty"`
	Channel           Channel       `json:"channel"`
	Type              ReminderType  `json:"type"`
	Status            AttemptStatus `json:"status"`
	Message           string        `json:"message"`
	Provider          string        `json:"provider,omitempty"`
	ProviderMessageID string        `json:"provider_message_id,omitempty"`
	Handoff           bool          `json:"handoff,omitempty"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	TriggeredBy       TriggeredBy   `json:"triggered_by"`
	LatencyMs         int64         `json:"latency_ms"`
	CreatedAt         time.Time     `json:"created_at"`
}

// NotificationPayload is what the channel gateway delivers.
type NotificationPayload struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject,omitempty"`
	Body      string  `json:"body"`
}

// ReminderConfig is a named, reusable message template.
type ReminderConfig struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Name      string       `json:"name" binding:"required"`
	Type      ReminderType `json:"type" binding:"required"`
	Channels  []Channel    `json:"channels"`
	Template  string       `json:"template" binding:"required"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
