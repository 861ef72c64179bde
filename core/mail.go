package core

import (
	"net/mail"
	"strings"
)

type (
	// EmailMessage is a plain text email. Technical error reports about
	// misbehaving exercise services are the only mail this app sends.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0 || len(m.Bcc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return strings.TrimSpace(m.BodyStr) != ""
}

// AddRecipients appends the given addresses to To, skipping empties.
func (m *EmailMessage) AddRecipients(addrs ...string) {
	for _, addr := range addrs {
		if addr = CleanString(addr); addr != "" {
			m.To = append(m.To, mail.Address{Address: addr})
		}
	}
}
