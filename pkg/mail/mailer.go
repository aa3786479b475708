// Package mail sends transactional email.
//
// Mailer has an SMTP implementation built on go-mail and a logging
// implementation for development. ResetNotifier composes the password reset
// email on top of any Mailer.
package mail

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned when a message has no recipient
var ErrNoRecipient = errors.New("message has no recipient")

// Message is a multipart text and HTML email
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
