package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobfinder/internal/model"
)

var (
	_ model.JobStore  = (*PostgresStore)(nil)
	_ model.UserStore = (*PostgresStore)(nil)
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           BIGSERIAL PRIMARY KEY,
	company_name TEXT NOT NULL,
	title        TEXT NOT NULL,
	start_time   TIMESTAMPTZ,
	end_time     TIMESTAMPTZ,
	detail       TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_jobs_detail ON jobs(detail);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE TABLE IF NOT EXISTS users (
	id              BIGSERIAL PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	keyword         TEXT,
	password        TEXT,
	auth_code       TEXT,
	auth_expires_at TIMESTAMPTZ,
	is_verified     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresConfig tunes the connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// PostgresStore persists jobs and users in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects, verifies the connection, and ensures the schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "jobfinder"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) ExistingDetails(ctx context.Context, details []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(details) == 0 {
		return found, nil
	}
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT detail FROM jobs WHERE detail = ANY($1)", details)
	if err != nil {
		return nil, fmt.Errorf("querying existing details: %w", err)
	}
	ds, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning details: %w", err)
	}
	for _, d := range ds {
		found[d] = true
	}
	return found, nil
}

func (s *PostgresStore) Insert(ctx context.Context, job model.Job) (model.Job, error) {
	out, err := s.InsertBatch(ctx, []model.Job{job})
	if err != nil {
		return model.Job{}, err
	}
	return out[0], nil
}

// InsertBatch stores jobs in one transaction. A failure rolls back the batch.
func (s *PostgresStore) InsertBatch(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	out := make([]model.Job, 0, len(jobs))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, j := range jobs {
			if j.CreatedAt.IsZero() {
				j.CreatedAt = s.now()
			}
			err := tx.QueryRow(ctx, `INSERT INTO jobs (company_name, title, start_time, end_time, detail, created_at)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
				j.Company, j.Title, j.StartAt, j.EndAt, j.Detail, j.CreatedAt,
			).Scan(&j.ID, &j.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting job %q: %w", j.Detail, err)
			}
			out = append(out, j)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CompanyTitles(ctx context.Context) ([]model.CompanyTitle, error) {
	rows, err := s.pool.Query(ctx, "SELECT company_name, title FROM jobs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying company titles: %w", err)
	}
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CompanyTitle, error) {
		var p model.CompanyTitle
		err := row.Scan(&p.Company, &p.Title)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning company titles: %w", err)
	}
	return pairs, nil
}

const postgresJobColumns = "id, company_name, title, start_time, end_time, detail, created_at"

// keywordClause matches the nth parameter case-sensitively; an empty keyword
// matches every row.
func keywordClause(n int) string {
	p := fmt.Sprintf("$%d", n)
	return "(" + p + " = '' OR strpos(title, " + p + ") > 0 OR strpos(detail, " + p + ") > 0 OR strpos(company_name, " + p + ") > 0)"
}

func (s *PostgresStore) JobsCreatedSince(ctx context.Context, since time.Time, keyword string) ([]model.Job, error) {
	query := "SELECT " + postgresJobColumns + " FROM jobs WHERE created_at >= $1 AND " + keywordClause(2) +
		" ORDER BY created_at DESC, id DESC"
	return s.queryJobs(ctx, query, since, keyword)
}

func (s *PostgresStore) SearchJobs(ctx context.Context, keyword string, limit int) ([]model.Job, error) {
	query := "SELECT " + postgresJobColumns + " FROM jobs WHERE " + keywordClause(1) +
		" ORDER BY end_time ASC NULLS LAST, id ASC LIMIT $2"
	return s.queryJobs(ctx, query, keyword, limit)
}

func (s *PostgresStore) ListJobs(ctx context.Context, since time.Time) ([]model.Job, error) {
	return s.queryJobs(ctx, "SELECT "+postgresJobColumns+" FROM jobs WHERE created_at >= $1 ORDER BY created_at DESC, id DESC", since)
}

func (s *PostgresStore) queryJobs(ctx context.Context, query string, args ...any) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Job, error) {
		var j model.Job
		err := row.Scan(&j.ID, &j.Company, &j.Title, &j.StartAt, &j.EndAt, &j.Detail, &j.CreatedAt)
		return j, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning jobs: %w", err)
	}
	return jobs, nil
}

const postgresUserColumns = "id, email, keyword, password, auth_code, auth_expires_at, is_verified, created_at"

func (s *PostgresStore) GetUser(ctx context.Context, email string) (*model.User, error) {
	u, err := scanPgUser(s.pool.QueryRow(ctx, "SELECT "+postgresUserColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", email, err)
	}
	return u, nil
}

// MutateUser serializes callers for the same email with a transaction-scoped
// advisory lock, so first-time inserts cannot race either.
func (s *PostgresStore) MutateUser(ctx context.Context, email string, fn model.UserMutation) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", email); err != nil {
			return fmt.Errorf("locking user %s: %w", email, err)
		}
		current, err := scanPgUser(tx.QueryRow(ctx, "SELECT "+postgresUserColumns+" FROM users WHERE email = $1 FOR UPDATE", email))
		if err != nil {
			return fmt.Errorf("reading user %s: %w", email, err)
		}

		next, err := fn(cloneUser(current))
		if err != nil || next == nil {
			return err
		}

		if current == nil {
			created := next.CreatedAt
			if created.IsZero() {
				created = s.now()
			}
			_, err = tx.Exec(ctx, `INSERT INTO users (email, keyword, password, auth_code, auth_expires_at, is_verified, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				email, next.Keyword, next.Password, next.AuthCode, next.AuthExpiresAt, next.Verified, created)
		} else {
			_, err = tx.Exec(ctx, `UPDATE users SET keyword = $1, password = $2, auth_code = $3, auth_expires_at = $4, is_verified = $5
				WHERE id = $6`,
				next.Keyword, next.Password, next.AuthCode, next.AuthExpiresAt, next.Verified, current.ID)
		}
		if err != nil {
			return fmt.Errorf("writing user %s: %w", email, err)
		}
		return nil
	})
}

func (s *PostgresStore) Subscribers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+postgresUserColumns+
		" FROM users WHERE is_verified AND keyword IS NOT NULL AND keyword <> '' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.User, error) {
		u, err := scanPgUser(row)
		if err != nil {
			return model.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning subscribers: %w", err)
	}
	return users, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Keyword, &u.Password, &u.AuthCode, &u.AuthExpiresAt, &u.Verified, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
