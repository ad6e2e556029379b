package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMail struct {
	to, subject, body string
}

// mockSender records messages; failFor makes sends to that address fail.
type mockSender struct {
	mu      sync.Mutex
	sent    []sentMail
	failFor map[string]bool
}

func (m *mockSender) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var (
	seoul = time.FixedZone("KST", 9*60*60)
	now   = time.Date(2025, 11, 3, 13, 0, 0, 0, seoul)
)

func addJob(t *testing.T, s *store.MemoryStore, company, title, detail string, created time.Time) {
	t.Helper()
	if _, err := s.Insert(context.Background(), model.Job{
		Company: company, Title: title, Detail: detail, CreatedAt: created,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func addUser(t *testing.T, s *store.MemoryStore, email, keyword string, verified bool) {
	t.Helper()
	err := s.MutateUser(context.Background(), email, func(*model.User) (*model.User, error) {
		u := &model.User{Email: email, Verified: verified}
		if keyword != "" {
			u.Keyword = &keyword
		}
		return u, nil
	})
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
}

func newDispatcher(s *store.MemoryStore, mail model.MailSender) *Dispatcher {
	return NewDispatcher(s, s, mail, discardLogger(),
		WithClock(func() time.Time { return now }),
		WithLocation(seoul),
	)
}

func TestCompose(t *testing.T) {
	jobs := []model.Job{
		{Company: "ACME", Title: "보안 엔지니어", Detail: "https://jasoseol.com/recruit/1", CreatedAt: time.Date(2025, 11, 3, 0, 30, 0, 0, time.UTC)},
		{Company: "Beta", Title: "보안 관제", CreatedAt: time.Date(2025, 11, 2, 23, 0, 0, 0, time.UTC)},
	}
	subject, body := Compose("보안", jobs, seoul)

	if subject != "[취업 알림] '보안' 관련 신규 공고 2건 안내" {
		t.Errorf("subject = %q", subject)
	}
	want := "[보안] 최근 24시간 동안 추가된 공고 목록입니다.\n" +
		"\n" +
		"- ACME / 보안 엔지니어 / 등록일: 2025-11-03 09:30:00\n" +
		"  상세: https://jasoseol.com/recruit/1\n" +
		"\n" +
		"- Beta / 보안 관제 / 등록일: 2025-11-03 08:00:00\n"
	if body != want {
		t.Errorf("body mismatch\ngot:\n%q\nwant:\n%q", body, want)
	}
}

func TestRun_SendsMatchingJobsOnly(t *testing.T) {
	s := store.NewMemoryStore(nil)
	addJob(t, s, "ACME", "보안 엔지니어", "u1", now.Add(-time.Hour))
	// Outside the 24h window.
	addJob(t, s, "ACME", "보안 컨설턴트", "u2", now.Add(-25*time.Hour))
	addJob(t, s, "Beta", "백엔드 개발자", "u3", now.Add(-2*time.Hour))
	addUser(t, s, "a@x.com", "보안", true)
	// None of these should receive mail.
	addUser(t, s, "b@x.com", "프론트", true)
	addUser(t, s, "c@x.com", "보안", false)
	addUser(t, s, "d@x.com", "", true)

	mail := &mockSender{}
	sum, err := newDispatcher(s, mail).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum != (Summary{Subscribers: 2, Sent: 1, Skipped: 1}) {
		t.Errorf("summary = %+v", sum)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mail.sent))
	}
	msg := mail.sent[0]
	if msg.to != "a@x.com" {
		t.Errorf("to = %q", msg.to)
	}
	if !strings.Contains(msg.subject, "1건") {
		t.Errorf("subject = %q", msg.subject)
	}
	if !strings.Contains(msg.body, "보안 엔지니어") || strings.Contains(msg.body, "보안 컨설턴트") {
		t.Errorf("body has wrong jobs:\n%s", msg.body)
	}
}

func TestRun_KeywordIsCaseSensitive(t *testing.T) {
	s := store.NewMemoryStore(nil)
	addJob(t, s, "ACME", "Go Developer", "u1", now.Add(-time.Hour))
	addUser(t, s, "a@x.com", "go", true)

	mail := &mockSender{}
	sum, err := newDispatcher(s, mail).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Sent != 0 || sum.Skipped != 1 {
		t.Errorf("summary = %+v, want skipped", sum)
	}
}

func TestRun_RerunResends(t *testing.T) {
	s := store.NewMemoryStore(nil)
	addJob(t, s, "ACME", "보안 엔지니어", "u1", now.Add(-time.Hour))
	addUser(t, s, "a@x.com", "보안", true)

	mail := &mockSender{}
	d := newDispatcher(s, mail)
	for i := 0; i < 2; i++ {
		if _, err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	if len(mail.sent) != 2 {
		t.Fatalf("expected digest re-sent on second run, got %d mails", len(mail.sent))
	}
}

func TestRun_PartialFailureIsNotAnError(t *testing.T) {
	s := store.NewMemoryStore(nil)
	addJob(t, s, "ACME", "보안 엔지니어", "u1", now.Add(-time.Hour))
	addUser(t, s, "a@x.com", "보안", true)
	addUser(t, s, "b@x.com", "보안", true)

	mail := &mockSender{failFor: map[string]bool{"a@x.com": true}}
	sum, err := newDispatcher(s, mail).Run(context.Background())
	if err != nil {
		t.Fatalf("expected nil on partial failure, got %v", err)
	}
	if sum.Sent != 1 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_AllFail(t *testing.T) {
	s := store.NewMemoryStore(nil)
	addJob(t, s, "ACME", "보안 엔지니어", "u1", now.Add(-time.Hour))
	addUser(t, s, "a@x.com", "보안", true)

	mail := &mockSender{failFor: map[string]bool{"a@x.com": true}}
	if _, err := newDispatcher(s, mail).Run(context.Background()); err == nil {
		t.Fatal("expected error when every send fails")
	}
}

func TestRun_NoSubscribers(t *testing.T) {
	s := store.NewMemoryStore(nil)
	sum, err := newDispatcher(s, &mockSender{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("summary = %+v, want zero", sum)
	}
}

func TestSendTo(t *testing.T) {
	s := store.NewMemoryStore(nil)
	addJob(t, s, "ACME", "보안 엔지니어", "u1", now.Add(-time.Hour))

	mail := &mockSender{}
	d := newDispatcher(s, mail)

	n, err := d.SendTo(context.Background(), "ops@x.com", "보안")
	if err != nil || n != 1 {
		t.Fatalf("SendTo = %d, %v", n, err)
	}
	n, err = d.SendTo(context.Background(), "ops@x.com", "없는키워드")
	if err != nil || n != 0 {
		t.Fatalf("SendTo no match = %d, %v", n, err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mail.sent))
	}
}
