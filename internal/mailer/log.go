package mailer

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobfinder/internal/model"
)

var _ model.MailSender = (*LogSender)(nil)

// LogSender writes messages to the logger instead of delivering them. It is
// the fallback when no mail provider is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender that logs each message via slog.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message. It never fails.
func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("mail (not delivered)", "to", to, "subject", subject, "body", body)
	return nil
}
