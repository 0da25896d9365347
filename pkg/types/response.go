package types

import "time"

// SendResponse is what a provider reports back after accepting a message.
type SendResponse struct {
	Provider    string
	ProviderID  string
	Status      string
	RawResponse []byte
	Timestamp   time.Time
}

const (
	StatusAccepted = "accepted"
	// StatusHandoff means a compose link was produced for a human to send.
	// Nothing was delivered yet.
	StatusHandoff = "handoff"
)
