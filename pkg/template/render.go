package template

import (
	"bytes"
	"fmt"
	"math"
	text "text/template"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const displayDate = "02/01/2006"

// MessageData holds the placeholders available to reminder templates.
type MessageData struct {
	TenantName   string
	Amount       string
	DueDate      string
	PeriodStart  string
	PeriodEnd    string
	PropertyName string
	DaysLate     int
	DaysUntilDue int
}

// DataFromPayment builds the placeholder set for a payment.
func DataFromPayment(p models.Payment, tenantName string, now time.Time) MessageData {
	if tenantName == "" {
		tenantName = p.TenantName
	}
	d := MessageData{
		TenantName:   tenantName,
		Amount:       FormatAmount(p.Amount, p.Currency),
		DueDate:      formatDate(p.DueDate.Time),
		PeriodStart:  formatDate(p.PeriodStart.Time),
		PeriodEnd:    formatDate(p.PeriodEnd.Time),
		PropertyName: p.PropertyName,
	}
	if !p.DueDate.IsZero() {
		days := int(math.Ceil(p.DueDate.Sub(now).Hours() / 24))
		if days >= 0 {
			d.DaysUntilDue = days
		} else {
			d.DaysLate = -days
		}
	}
	return d
}

// FormatAmount renders an amount with French digit grouping, e.g. "150 000 FCFA".
func FormatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = "FCFA"
	}
	p := message.NewPrinter(language.French)
	return p.Sprintf("%.0f %s", amount, currency)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayDate)
}

// Render resolves the placeholders of a reminder template.
func Render(tmpl string, data MessageData) (string, error) {
	t, err := text.New("reminder").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse reminder template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render reminder template: %w", err)
	}
	return buf.String(), nil
}
