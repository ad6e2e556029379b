package mailer

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/retry"
)

var _ model.MailSender = (*RetrySender)(nil)

// RetrySender is a decorator that retries transient delivery failures.
type RetrySender struct {
	inner  model.MailSender
	policy retry.Policy
	logger *slog.Logger
}

func NewRetrySender(inner model.MailSender, policy retry.Policy, logger *slog.Logger) *RetrySender {
	return &RetrySender{inner: inner, policy: policy, logger: logger}
}

func (s *RetrySender) Send(ctx context.Context, to, subject, body string) error {
	return retry.Do(ctx, s.policy, s.logger.With("to", to), func(ctx context.Context) error {
		return s.inner.Send(ctx, to, subject, body)
	})
}
