package mail

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Mailer delivers magic-link emails. Delivery is an external collaborator;
// the server only hands over the address and the link.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// LogMailer writes the link to the log instead of sending mail. Used in
// development and as the default when no provider is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendMagicLink(ctx context.Context, email, link string) error {
	log.Info().
		Str("email", email).
		Str("link", link).
		Msg("magic link issued (log mailer, not delivered)")
	return nil
}
