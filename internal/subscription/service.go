package subscription

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/amishk599/jobfinder/internal/lock"
	"github.com/amishk599/jobfinder/internal/model"
)

const (
	DefaultCodeLength = 6
	DefaultCodeTTL    = 10 * time.Minute

	pinLength = 4

	codeSubject = "[JOB-FINDER] 이메일 인증 코드 안내"
)

// Service runs the verification flow: request code, verify, set password,
// unsubscribe. Every transition is a single read-decide-write on the user row.
type Service struct {
	users      model.UserStore
	mail       model.MailSender
	locker     lock.Locker
	logger     *slog.Logger
	now        func() time.Time
	codeLength int
	codeTTL    time.Duration
	newCode    func(length int) (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLocker serializes transitions per email through l in addition to the
// store transaction.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

func WithCodeLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func(length int) (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

// NewService creates a Service backed by users and mail.
func NewService(users model.UserStore, mail model.MailSender, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:      users,
		mail:       mail,
		logger:     logger,
		now:        time.Now,
		codeLength: DefaultCodeLength,
		codeTTL:    DefaultCodeTTL,
		newCode:    RandomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RandomCode returns a zero-padded numeric code of the given length.
func RandomCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

// RequestCode starts (or restarts) verification for email. Any prior state
// is discarded: the keyword and code are overwritten, the row goes back to
// pending and any password is cleared. The code is mailed after the row is
// committed; a mail failure returns ErrDelivery with the row already updated.
func (s *Service) RequestCode(ctx context.Context, email, keyword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return &ValidationError{Field: "keyword", Reason: "required"}
	}

	code, err := s.newCode(s.codeLength)
	if err != nil {
		return err
	}
	expires := s.now().Add(s.codeTTL)

	err = s.mutate(ctx, email, func(current *model.User) (*model.User, error) {
		next := current
		if next == nil {
			next = &model.User{Email: email}
		}
		next.Keyword = &keyword
		next.AuthCode = &code
		next.AuthExpiresAt = &expires
		next.Verified = false
		next.Password = nil
		return next, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("verification code issued", "email", email, "expires_at", expires)

	body := fmt.Sprintf("인증 코드: %s\n%d분 이내에 입력해주세요.", code, int(s.codeTTL/time.Minute))
	if err := s.mail.Send(ctx, email, codeSubject, body); err != nil {
		s.logger.Error("sending verification code", "email", email, "error", err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// VerifyCode checks code against the pending request for email. Failures are
// reported in this order: ErrNotFound, ErrAlreadyVerified, ErrCodeMismatch,
// ErrCodeExpired. A code checked exactly at its expiry time is accepted.
func (s *Service) VerifyCode(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)

	return s.mutate(ctx, email, func(current *model.User) (*model.User, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		if current.Verified {
			return nil, ErrAlreadyVerified
		}
		if current.AuthCode == nil || !equal(*current.AuthCode, code) {
			return nil, ErrCodeMismatch
		}
		if current.AuthExpiresAt != nil && s.now().After(*current.AuthExpiresAt) {
			return nil, ErrCodeExpired
		}
		current.Verified = true
		current.AuthCode = nil
		current.AuthExpiresAt = nil
		return current, nil
	})
}

// SetPassword stores a 4-digit PIN for a verified email. It can be set once
// per verification cycle.
func (s *Service) SetPassword(ctx context.Context, email, password, confirm string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	password = strings.TrimSpace(password)
	if password != strings.TrimSpace(confirm) {
		return &ValidationError{Field: "password", Reason: "confirmation does not match"}
	}
	if err := validatePIN(password); err != nil {
		return err
	}

	return s.mutate(ctx, email, func(current *model.User) (*model.User, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		if !current.Verified {
			return nil, ErrNotVerified
		}
		if current.Password != nil {
			return nil, ErrPasswordAlreadySet
		}
		current.Password = &password
		return current, nil
	})
}

// Unsubscribe clears the keyword for email if password matches. The row and
// its verified flag are kept.
func (s *Service) Unsubscribe(ctx context.Context, email, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	password = strings.TrimSpace(password)
	if err := validatePIN(password); err != nil {
		return err
	}

	return s.mutate(ctx, email, func(current *model.User) (*model.User, error) {
		if current == nil || current.Password == nil || !equal(*current.Password, password) {
			return nil, ErrAuthFailure
		}
		current.Keyword = nil
		return current, nil
	})
}

// Lookup returns the user row and its derived state.
func (s *Service) Lookup(ctx context.Context, email string) (*model.User, State, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, Unregistered, err
	}
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, Unregistered, fmt.Errorf("looking up %s: %w", email, err)
	}
	return u, StateOf(u), nil
}

// mutate applies fn under the per-email lock and store transaction. Reported
// failures from fn come back unwrapped; store failures are wrapped.
func (s *Service) mutate(ctx context.Context, email string, fn model.UserMutation) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, lock.UserKey(email))
		if err != nil {
			return fmt.Errorf("locking %s: %w", email, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("releasing user lock", "email", email, "error", err)
			}
		}()
	}

	var reported error
	err := s.users.MutateUser(ctx, email, func(current *model.User) (*model.User, error) {
		next, err := fn(current)
		reported = err
		return next, err
	})
	if err == nil {
		return nil
	}
	if reported != nil && errors.Is(err, reported) {
		return reported
	}
	return fmt.Errorf("updating user %s: %w", email, err)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", &ValidationError{Field: "email", Reason: "required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ValidationError{Field: "email", Reason: "not a valid address"}
	}
	return email, nil
}

func validatePIN(pin string) error {
	if len(pin) != pinLength {
		return &ValidationError{Field: "password", Reason: "must be exactly 4 digits"}
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return &ValidationError{Field: "password", Reason: "must be exactly 4 digits"}
		}
	}
	return nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
