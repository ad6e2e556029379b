package model

import (
	"context"
	"time"
)

// User is a subscriber row keyed by email. Nil pointer fields are NULL.
type User struct {
	ID            int64
	Email         string
	Keyword       *string
	Password      *string
	AuthCode      *string
	AuthExpiresAt *time.Time
	Verified      bool
	CreatedAt     time.Time
}

// Subscribed reports whether the user should receive digests.
func (u User) Subscribed() bool {
	return u.Verified && u.Keyword != nil && *u.Keyword != ""
}

// KeywordValue returns the keyword or "" when unset.
func (u User) KeywordValue() string {
	if u.Keyword == nil {
		return ""
	}
	return *u.Keyword
}

// UserMutation decides the next state of a user row. current is nil when no
// row exists for the email. Returning a nil user leaves the row untouched;
// returning an error aborts without writing.
type UserMutation func(current *User) (*User, error)

// UserStore persists subscribers.
type UserStore interface {
	// GetUser returns the user for email, or nil if there is none.
	GetUser(ctx context.Context, email string) (*User, error)
	// MutateUser reads the row for email, applies fn, and writes the result
	// atomically with respect to other calls for the same email.
	MutateUser(ctx context.Context, email string, fn UserMutation) error
	// Subscribers returns verified users with a non-empty keyword.
	Subscribers(ctx context.Context) ([]User, error)
}
