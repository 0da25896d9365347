package gomailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const defaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

type SendGridMailer struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"timeout"`
	FromName string        `yaml:"fromName"`
	FromMail string        `yaml:"fromMail"`
	client   *http.Client
}

func NewSendGridMailer(apiKey, fromName, fromMail string) *SendGridMailer {
	return &SendGridMailer{
		APIKey:   apiKey,
		FromName: fromName,
		FromMail: fromMail,
		Timeout:  10 * time.Second,
	}
}

func (s *SendGridMailer) httpClient() *http.Client {
	if s.client == nil {
		timeout := s.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		s.client = &http.Client{Timeout: timeout}
	}
	return s.client
}

func (s *SendGridMailer) Send(ctx context.Context, e Email) (*types.SendResponse, error) {
	fromAddr := e.From
	if fromAddr == "" {
		fromAddr = s.FromMail
	}
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.FromName, fromAddr))
	message.Subject = e.Subject

	p := mail.NewPersonalization()
	for _, to := range e.To {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)

	if e.Text != "" {
		message.AddContent(mail.NewContent("text/plain", e.Text))
	}
	if e.HTML != "" {
		message.AddContent(mail.NewContent("text/html", e.HTML))
	}

	url := s.BaseURL
	if url == "" {
		url = defaultSendGridURL
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(mail.GetRequestBody(message)))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+s.APIKey)
	request.Header.Set("Content-Type", "application/json")
	for k, v := range e.Headers {
		request.Header.Set(k, v)
	}
	if e.IdempotencyKey != "" {
		request.Header.Set("Idempotency-Key", e.IdempotencyKey)
	}

	resp, err := s.httpClient().Do(request)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sendgrid API error: %d %s", resp.StatusCode, string(body))
	}

	return &types.SendResponse{
		Provider:    "sendgrid",
		ProviderID:  resp.Header.Get("X-Message-Id"),
		Status:      types.StatusAccepted,
		RawResponse: body,
		Timestamp:   time.Now(),
	}, nil
}
