package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
)

// newPostgresTestStore connects to JOBFINDER_TEST_POSTGRES_DSN and empties the
// tables. The test is skipped when the variable is unset.
func newPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("JOBFINDER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JOBFINDER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, PostgresConfig{DSN: dsn, DialTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	if _, err := s.pool.Exec(ctx, "TRUNCATE jobs, users RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	s.now = func() time.Time { return base }
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := newPostgresTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertBatch(ctx, []model.Job{
		{Company: "보안회사", Title: "Backend", Detail: "u1", CreatedAt: base.Add(-time.Hour)},
		{Company: "Acme", Title: "Security", Detail: "u2", CreatedAt: base.Add(-time.Hour)},
	}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	found, err := s.ExistingDetails(ctx, []string{"u1", "u3"})
	if err != nil {
		t.Fatalf("ExistingDetails: %v", err)
	}
	if !found["u1"] || found["u3"] {
		t.Errorf("found = %v", found)
	}

	jobs, err := s.JobsCreatedSince(ctx, base.Add(-24*time.Hour), "보안")
	if err != nil {
		t.Fatalf("JobsCreatedSince: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Detail != "u1" {
		t.Errorf("jobs = %+v", jobs)
	}

	err = s.MutateUser(ctx, "a@x.com", func(cur *model.User) (*model.User, error) {
		return &model.User{Keyword: strPtr("보안"), Verified: true}, nil
	})
	if err != nil {
		t.Fatalf("MutateUser: %v", err)
	}
	subs, err := s.Subscribers(ctx)
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].Email != "a@x.com" {
		t.Errorf("subscribers = %+v", subs)
	}
}
