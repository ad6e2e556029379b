package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
)

var _ model.MailSender = (*SlackSender)(nil)

// Slack rejects header text over 150 chars and section text over 3000.
const (
	slackHeaderLimit  = 150
	slackSectionLimit = 3000
)

// SlackSender posts each message to a Slack channel via Incoming Webhooks.
// It is used to mirror outgoing mail to a staging channel.
type SlackSender struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackSender returns a sender that posts to webhookURL.
func NewSlackSender(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send posts one Block Kit message. A non-200 response is returned as
// *model.HTTPError so RetrySender can honour Retry-After on 429.
func (s *SlackSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(buildPayload(to, subject, body))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		var retryAfter time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter,
			Err:        fmt.Errorf("slack webhook rejected message"),
		}
	}
	s.logger.Info("slack message sent", "to", to, "subject", subject)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func buildPayload(to, subject, body string) slackPayload {
	return slackPayload{
		Text: subject,
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: truncate(subject, slackHeaderLimit)},
			},
			{
				Type:     "context",
				Elements: []slackText{{Type: "mrkdwn", Text: "*To:* " + to}},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: truncate(body, slackSectionLimit)},
			},
			{Type: "divider"},
		},
	}
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

// SendTestMessage sends a sample message to verify the integration works.
func SendTestMessage(ctx context.Context, s model.MailSender, to string) error {
	return s.Send(ctx, to,
		"[JOB-FINDER] 연동 테스트",
		"메일 발송 설정이 정상적으로 동작합니다.\n"+time.Now().Format(time.RFC1123))
}
