package mail

import (
	"context"
	"errors"
	"strings"
)

// Message is one outbound email
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	// IdempotencyKey makes retried sends deliver at most once
	IdempotencyKey string
}

// ErrNoRecipients is returned when a message has nobody to go to
var ErrNoRecipients = errors.New("message has no recipients")

// ErrRejected wraps a provider refusal of one message (4xx other than 429).
// It says nothing about the provider's health.
var ErrRejected = errors.New("message rejected")

// Sender delivers messages and returns the provider's message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("message subject is empty")
	}
	return nil
}
