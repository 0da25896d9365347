package gosms

import (
	"context"

	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
)

type Sender interface {
	Send(ctx context.Context, s SMS) (*types.SendResponse, error)
}

type SMS struct {
	To   string `json:"to"`
	Text string `json:"text,omitempty"`
}

func NewSMS(to string, text string) SMS {
	return SMS{To: to, Text: text}
}
