package gomailer

import (
	"context"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
)

// Mailer is implemented by every email provider (SMTP, SendGrid).
type Mailer interface {
	Send(ctx context.Context, e Email) (*types.SendResponse, error)
}

type Email struct {
	From           string
	To             []string
	Subject        string
	Text           string
	HTML           string
	IdempotencyKey string
	Headers        map[string]string
}

type EmailOption func(*Email)

func NewEmail(from string, to []string, opts ...EmailOption) Email {
	e := Email{
		From: from,
		To:   to,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func WithSubject(sub string) EmailOption {
	return func(e *Email) {
		e.Subject = sub
	}
}

func WithText(text string) EmailOption {
	return func(e *Email) {
		e.Text = text
	}
}

func WithHTML(html string) EmailOption {
	return func(e *Email) {
		e.HTML = html
	}
}

func WithIdempotencyKey(key string) EmailOption {
	return func(e *Email) {
		e.IdempotencyKey = key
	}
}

func Header(key, value string) EmailOption {
	return func(e *Email) {
		if e.Headers == nil {
			e.Headers = make(map[string]string)
		}
		e.Headers[key] = value
	}
}
