package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amishk599/jobfinder/internal/filter"
	"github.com/amishk599/jobfinder/internal/model"
)

var (
	_ model.JobStore  = (*MemoryStore)(nil)
	_ model.UserStore = (*MemoryStore)(nil)
)

// MemoryStore keeps jobs and users in process memory. It backs the check
// command and tests.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   []model.Job
	users  map[string]*model.User
	nextID int64
	now    func() time.Time

	// FailInsertAfter makes InsertBatch fail once this many jobs are stored.
	// Zero disables it.
	FailInsertAfter int
}

// NewMemoryStore returns an empty store. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{users: make(map[string]*model.User), now: now}
}

func (s *MemoryStore) ExistingDetails(_ context.Context, details []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(details))
	for _, d := range details {
		want[d] = true
	}
	found := make(map[string]bool)
	for _, j := range s.jobs {
		if want[j.Detail] {
			found[j.Detail] = true
		}
	}
	return found, nil
}

func (s *MemoryStore) Insert(ctx context.Context, job model.Job) (model.Job, error) {
	out, err := s.InsertBatch(ctx, []model.Job{job})
	if err != nil {
		return model.Job{}, err
	}
	return out[0], nil
}

// InsertBatch stores all jobs or none.
func (s *MemoryStore) InsertBatch(_ context.Context, jobs []model.Job) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailInsertAfter > 0 && len(s.jobs)+len(jobs) > s.FailInsertAfter {
		return nil, fmt.Errorf("inserting %d jobs: store full", len(jobs))
	}

	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		s.nextID++
		j.ID = s.nextID
		if j.CreatedAt.IsZero() {
			j.CreatedAt = s.now()
		}
		out = append(out, j)
	}
	s.jobs = append(s.jobs, out...)
	return out, nil
}

func (s *MemoryStore) CompanyTitles(_ context.Context) ([]model.CompanyTitle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := make([]model.CompanyTitle, 0, len(s.jobs))
	for _, j := range s.jobs {
		pairs = append(pairs, j.Pair())
	}
	return pairs, nil
}

func (s *MemoryStore) JobsCreatedSince(_ context.Context, since time.Time, keyword string) ([]model.Job, error) {
	jobs := s.selectJobs(func(j model.Job) bool {
		return !j.CreatedAt.Before(since) && filter.ContainsKeyword(j, keyword)
	})
	sortNewestFirst(jobs)
	return jobs, nil
}

func (s *MemoryStore) SearchJobs(_ context.Context, keyword string, limit int) ([]model.Job, error) {
	jobs := s.selectJobs(func(j model.Job) bool { return filter.ContainsKeyword(j, keyword) })
	sort.SliceStable(jobs, func(a, b int) bool {
		ea, eb := jobs[a].EndAt, jobs[b].EndAt
		switch {
		case ea == nil:
			return false
		case eb == nil:
			return true
		default:
			return ea.Before(*eb)
		}
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, since time.Time) ([]model.Job, error) {
	jobs := s.selectJobs(func(j model.Job) bool { return !j.CreatedAt.Before(since) })
	sortNewestFirst(jobs)
	return jobs, nil
}

// Jobs returns a copy of every stored job in insertion order.
func (s *MemoryStore) Jobs() []model.Job {
	return s.selectJobs(func(model.Job) bool { return true })
}

func (s *MemoryStore) selectJobs(keep func(model.Job) bool) []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Job
	for _, j := range s.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	return out
}

func sortNewestFirst(jobs []model.Job) {
	sort.SliceStable(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].ID > jobs[b].ID
		}
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
}

func (s *MemoryStore) GetUser(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.users[email]), nil
}

// MutateUser holds the store lock for the whole read-decide-write sequence.
func (s *MemoryStore) MutateUser(_ context.Context, email string, fn model.UserMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.users[email]
	next, err := fn(cloneUser(current))
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	stored := cloneUser(next)
	stored.Email = email
	if current == nil {
		s.nextID++
		stored.ID = s.nextID
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = s.now()
		}
	} else {
		stored.ID = current.ID
		stored.CreatedAt = current.CreatedAt
	}
	s.users[email] = stored
	return nil
}

func (s *MemoryStore) Subscribers(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []model.User
	for _, u := range s.users {
		if u.Subscribed() {
			users = append(users, *cloneUser(u))
		}
	}
	sort.Slice(users, func(a, b int) bool { return users[a].ID < users[b].ID })
	return users, nil
}

// cloneUser deep-copies u so callers cannot alias stored pointers.
func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Keyword = cloneString(u.Keyword)
	c.Password = cloneString(u.Password)
	c.AuthCode = cloneString(u.AuthCode)
	if u.AuthExpiresAt != nil {
		t := *u.AuthExpiresAt
		c.AuthExpiresAt = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
