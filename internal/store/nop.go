package store

import (
	"context"
	"time"

	"github.com/amishk599/jobfinder/internal/model"
)

var _ model.JobStore = (*NopStore)(nil)

// NopStore is a no-op job store used in dry-run mode. Nothing is ever stored,
// so every fetched posting looks new on each crawl.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) ExistingDetails(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (s *NopStore) Insert(_ context.Context, job model.Job) (model.Job, error) { return job, nil }
func (s *NopStore) InsertBatch(_ context.Context, jobs []model.Job) ([]model.Job, error) {
	return jobs, nil
}
func (s *NopStore) CompanyTitles(context.Context) ([]model.CompanyTitle, error) { return nil, nil }
func (s *NopStore) JobsCreatedSince(context.Context, time.Time, string) ([]model.Job, error) {
	return nil, nil
}
func (s *NopStore) SearchJobs(context.Context, string, int) ([]model.Job, error) { return nil, nil }
func (s *NopStore) ListJobs(context.Context, time.Time) ([]model.Job, error)     { return nil, nil }
