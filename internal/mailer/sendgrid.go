package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/amishk599/jobfinder/internal/model"
)

const sendgridHost = "https://api.sendgrid.com"

var _ model.MailSender = (*SendGridSender)(nil)

// SendGridConfig holds the SendGrid API credentials and sender identity.
type SendGridConfig struct {
	APIKey      string
	FromName    string
	FromAddress string
	// Host overrides the API host; empty uses api.sendgrid.com.
	Host string
}

// SendGridSender delivers plain-text mail through the SendGrid v3 API.
type SendGridSender struct {
	cfg    SendGridConfig
	from   *mail.Email
	logger *slog.Logger
}

func NewSendGridSender(cfg SendGridConfig, logger *slog.Logger) *SendGridSender {
	if cfg.Host == "" {
		cfg.Host = sendgridHost
	}
	return &SendGridSender{
		cfg:    cfg,
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

// Send delivers one message. Any non-2xx status is returned as *model.HTTPError.
func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), body, "")

	request := sendgrid.GetRequest(s.cfg.APIKey, "/v3/mail/send", s.cfg.Host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", to, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("sendgrid rejected mail to %s: %s", to, resp.Body),
		}
	}
	s.logger.Debug("mail sent", "to", to, "status", resp.StatusCode)
	return nil
}
