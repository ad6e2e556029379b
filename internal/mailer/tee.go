package mailer

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobfinder/internal/model"
)

var _ model.MailSender = (*TeeSender)(nil)

// TeeSender delivers through primary and copies each message to mirrors.
// Only the primary's error is returned; mirror failures are logged.
type TeeSender struct {
	primary model.MailSender
	mirrors []model.MailSender
	logger  *slog.Logger
}

func NewTeeSender(logger *slog.Logger, primary model.MailSender, mirrors ...model.MailSender) *TeeSender {
	return &TeeSender{primary: primary, mirrors: mirrors, logger: logger}
}

func (t *TeeSender) Send(ctx context.Context, to, subject, body string) error {
	if err := t.primary.Send(ctx, to, subject, body); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Send(ctx, to, subject, body); err != nil {
			t.logger.Warn("mirror send failed", "to", to, "error", err)
		}
	}
	return nil
}
