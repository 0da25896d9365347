package gowhatsapp

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gosms"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
)

const defaultLinkBase = "https://wa.me/"

type Sender interface {
	Send(ctx context.Context, m Message) (*types.SendResponse, error)
}

type Message struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// LinkSender does not deliver anything. It builds a wa.me compose link that
// a human opens to send the message, and reports it as a handoff.
type LinkSender struct {
	BaseURL string `yaml:"baseURL"`
}

func NewLinkSender() *LinkSender {
	return &LinkSender{BaseURL: defaultLinkBase}
}

func (l *LinkSender) Send(ctx context.Context, m Message) (*types.SendResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	link := BuildLink(l.BaseURL, m.To, m.Text)
	return &types.SendResponse{
		Provider:    "wa.me",
		ProviderID:  link,
		Status:      types.StatusHandoff,
		RawResponse: []byte(link),
		Timestamp:   time.Now(),
	}, nil
}

// BuildLink returns base + the digits of the number + the url-encoded text.
func BuildLink(base, to, text string) string {
	if base == "" {
		base = defaultLinkBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, to)
	return base + digits + "?text=" + url.QueryEscape(text)
}

// TwilioSender delivers through the Twilio WhatsApp business API.
type TwilioSender struct {
	FromNumber string
	Client     gosms.MessageCreator
}

func NewTwilioSender(accountSid, authToken, fromNumber string) *TwilioSender {
	return &TwilioSender{
		FromNumber: fromNumber,
		Client:     gosms.NewTwilioClient(accountSid, authToken),
	}
}

func (t *TwilioSender) Send(ctx context.Context, m Message) (*types.SendResponse, error) {
	return gosms.CreateTwilioMessage(ctx, t.Client, whatsappAddr(t.FromNumber), whatsappAddr(m.To), m.Text)
}

func whatsappAddr(num string) string {
	if strings.HasPrefix(num, "whatsapp:") {
		return num
	}
	return "whatsapp:" + num
}
