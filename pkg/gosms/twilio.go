package gosms

import (
	"context"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the slice of the Twilio REST API the senders use.
type MessageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

type TwilioSender struct {
	FromNumber string
	Client     MessageCreator
}

func NewTwilioClient(accountSid, authToken string) MessageCreator {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return client.Api
}

func NewTwilioSender(accountSid, authToken, fromNumber string) *TwilioSender {
	return &TwilioSender{
		FromNumber: fromNumber,
		Client:     NewTwilioClient(accountSid, authToken),
	}
}

// Send posts the SMS through Twilio. The Twilio client has no context
// support, so ctx is only checked before the call.
func (t *TwilioSender) Send(ctx context.Context, s SMS) (*types.SendResponse, error) {
	return CreateTwilioMessage(ctx, t.Client, t.FromNumber, s.To, s.Text)
}

// CreateTwilioMessage is shared by the SMS and WhatsApp senders; WhatsApp
// callers pass "whatsapp:"-prefixed numbers.
func CreateTwilioMessage(ctx context.Context, client MessageCreator, from, to, body string) (*types.SendResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &api.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(from)
	params.SetTo(to)

	resp, err := client.CreateMessage(params)
	if err != nil {
		return nil, err
	}
	res := &types.SendResponse{
		Provider:  "twilio",
		Status:    types.StatusAccepted,
		Timestamp: time.Now(),
	}
	if resp != nil && resp.Sid != nil {
		res.ProviderID = *resp.Sid
	}
	return res, nil
}
