package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gomailer"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gosms"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gowhatsapp"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"go.uber.org/zap"
)

var ErrProviderNotConfigured = errors.New("channel provider not configured")

// Result is what the gateway reports for a single send. Handoff is set when
// the provider only produced a compose link; it is not a delivery receipt.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Handoff   bool   `json:"handoff,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Options struct {
	EmailFrom     string
	DefaultRegion string
	MaxRetries    int
	Backoff       time.Duration
}

type Gateway struct {
	mailer   gomailer.Mailer
	sms      gosms.Sender
	whatsapp gowhatsapp.Sender
	opts     Options
	logger   *zap.Logger
}

func New(mailer gomailer.Mailer, sms gosms.Sender, whatsapp gowhatsapp.Sender, opts Options, logger *zap.Logger) *Gateway {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &Gateway{
		mailer:   mailer,
		sms:      sms,
		whatsapp: whatsapp,
		opts:     opts,
		logger:   logger,
	}
}

// Send routes the payload to the channel provider.
func (g *Gateway) Send(ctx context.Context, p models.NotificationPayload) Result {
	switch p.Channel {
	case models.ChannelEmail:
		return g.SendEmail(ctx, p.Recipient, p.Subject, p.Body)
	case models.ChannelWhatsApp:
		return g.SendWhatsApp(ctx, p.Recipient, p.Body)
	case models.ChannelSMS:
		return g.SendSms(ctx, p.Recipient, p.Body)
	}
	return Result{Error: models.ErrInvalidChannel.Error()}
}

func (g *Gateway) SendEmail(ctx context.Context, to, subject, body string) Result {
	if g.mailer == nil {
		return g.fail("", models.ChannelEmail, ErrProviderNotConfigured)
	}
	email := gomailer.NewEmail(g.opts.EmailFrom, []string{to},
		gomailer.WithSubject(subject),
		gomailer.WithText(body),
	)
	return g.withRetry(ctx, models.ChannelEmail, func(ctx context.Context) (*types.SendResponse, error) {
		return g.mailer.Send(ctx, email)
	})
}

func (g *Gateway) SendWhatsApp(ctx context.Context, to, body string) Result {
	if g.whatsapp == nil {
		return g.fail("", models.ChannelWhatsApp, ErrProviderNotConfigured)
	}
	num, err := gosms.Normalize(to, g.opts.DefaultRegion)
	if err != nil {
		return g.fail("", models.ChannelWhatsApp, fmt.Errorf("%w: %s", err, to))
	}
	msg := gowhatsapp.Message{To: num, Text: body}
	return g.withRetry(ctx, models.ChannelWhatsApp, func(ctx context.Context) (*types.SendResponse, error) {
		return g.whatsapp.Send(ctx, msg)
	})
}

func (g *Gateway) SendSms(ctx context.Context, to, body string) Result {
	if g.sms == nil {
		return g.fail("", models.ChannelSMS, ErrProviderNotConfigured)
	}
	num, err := gosms.Normalize(to, g.opts.DefaultRegion)
	if err != nil {
		return g.fail("", models.ChannelSMS, fmt.Errorf("%w: %s", err, to))
	}
	sms := gosms.NewSMS(num, body)
	return g.withRetry(ctx, models.ChannelSMS, func(ctx context.Context) (*types.SendResponse, error) {
		return g.sms.Send(ctx, sms)
	})
}

func (g *Gateway) withRetry(ctx context.Context, channel models.Channel, send func(context.Context) (*types.SendResponse, error)) Result {
	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxRetries; attempt++ {
		start := time.Now()
		resp, err := send(ctx)
		if err == nil && resp != nil {
			metrics.ReminderSendDuration.WithLabelValues(resp.Provider, string(channel)).Observe(time.Since(start).Seconds())
			metrics.ExternalAPISuccessTotal.WithLabelValues(resp.Provider, string(channel)).Inc()
			return Result{
				Success:   true,
				MessageID: resp.ProviderID,
				Provider:  resp.Provider,
				Handoff:   resp.Status == types.StatusHandoff,
			}
		}
		if err == nil {
			err = errors.New("provider returned no response")
		}
		lastErr = err
		if attempt == g.opts.MaxRetries || ctx.Err() != nil {
			break
		}

		backoffDelay := g.opts.Backoff * time.Duration(1<<(attempt-1))
		jitter := time.Duration(0)
		if g.opts.Backoff > 0 {
			jitter = time.Duration(rand.Int63n(int64(g.opts.Backoff)))
		}
		waitTime := backoffDelay + jitter
		g.logger.Warn("Reminder send failed, will retry",
			zap.String("channel", string(channel)),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", waitTime),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return g.fail("", channel, ctx.Err())
		case <-time.After(waitTime):
		}
	}
	return g.fail("", channel, lastErr)
}

func (g *Gateway) fail(provider string, channel models.Channel, err error) Result {
	metrics.ExternalAPIFailureTotal.WithLabelValues(provider, string(channel)).Inc()
	g.logger.Error("Reminder send failed",
		zap.String("channel", string(channel)),
		zap.Error(err),
	)
	return Result{Provider: provider, Error: err.Error()}
}
