package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobfinder/internal/model"
)

var (
	_ model.JobStore  = (*SQLiteStore)(nil)
	_ model.UserStore = (*SQLiteStore)(nil)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name TEXT NOT NULL,
	title        TEXT NOT NULL,
	start_time   DATETIME,
	end_time     DATETIME,
	detail       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_detail ON jobs(detail);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	email           TEXT NOT NULL UNIQUE,
	keyword         TEXT,
	password        TEXT,
	auth_code       TEXT,
	auth_expires_at DATETIME,
	is_verified     INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);`

// SQLiteStore persists jobs and users in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// jobs and users tables exist. Transactions take the write lock when they begin
// so read-decide-write sequences on a user row cannot interleave.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// ExistingDetails returns the subset of details already stored.
func (s *SQLiteStore) ExistingDetails(ctx context.Context, details []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for _, chunk := range chunks(details, 500) {
		query := "SELECT DISTINCT detail FROM jobs WHERE detail IN (" + placeholders(len(chunk), func(int) string { return "?" }) + ")"
		rows, err := s.db.QueryContext(ctx, query, anySlice(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("querying existing details: %w", err)
		}
		for rows.Next() {
			var d string
			if err := rows.Scan(&d); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning detail: %w", err)
			}
			found[d] = true
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("querying existing details: %w", err)
		}
	}
	return found, nil
}

// Insert stores a single job.
func (s *SQLiteStore) Insert(ctx context.Context, job model.Job) (model.Job, error) {
	inserted, err := s.InsertBatch(ctx, []model.Job{job})
	if err != nil {
		return model.Job{}, err
	}
	return inserted[0], nil
}

// InsertBatch stores jobs in one transaction. A failure rolls back the batch.
func (s *SQLiteStore) InsertBatch(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (company_name, title, start_time, end_time, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.CreatedAt.IsZero() {
			j.CreatedAt = s.now()
		}
		j.CreatedAt = dbTime(j.CreatedAt)
		res, err := stmt.ExecContext(ctx, j.Company, j.Title, nullTime(j.StartAt), nullTime(j.EndAt), j.Detail, j.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting job %q: %w", j.Detail, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading job id: %w", err)
		}
		j.ID = id
		out = append(out, j)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert batch: %w", err)
	}
	return out, nil
}

// CompanyTitles returns every stored (company, title) pair in insertion order.
func (s *SQLiteStore) CompanyTitles(ctx context.Context) ([]model.CompanyTitle, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT company_name, title FROM jobs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying company titles: %w", err)
	}
	defer rows.Close()

	var pairs []model.CompanyTitle
	for rows.Next() {
		var p model.CompanyTitle
		if err := rows.Scan(&p.Company, &p.Title); err != nil {
			return nil, fmt.Errorf("scanning company title: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

const sqliteJobColumns = "id, company_name, title, start_time, end_time, detail, created_at"

// instr matches case-sensitively, unlike LIKE.
const sqliteKeywordClause = "(instr(title, ?) > 0 OR instr(detail, ?) > 0 OR instr(company_name, ?) > 0)"

// JobsCreatedSince returns jobs created at or after since containing keyword.
func (s *SQLiteStore) JobsCreatedSince(ctx context.Context, since time.Time, keyword string) ([]model.Job, error) {
	query := "SELECT " + sqliteJobColumns + " FROM jobs WHERE created_at >= ?"
	args := []any{dbTime(since)}
	if keyword != "" {
		query += " AND " + sqliteKeywordClause
		args = append(args, keyword, keyword, keyword)
	}
	query += " ORDER BY created_at DESC, id DESC"
	return s.queryJobs(ctx, query, args...)
}

// SearchJobs returns up to limit jobs containing keyword, earliest deadline
// first with undated postings last.
func (s *SQLiteStore) SearchJobs(ctx context.Context, keyword string, limit int) ([]model.Job, error) {
	query := "SELECT " + sqliteJobColumns + " FROM jobs"
	var args []any
	if keyword != "" {
		query += " WHERE " + sqliteKeywordClause
		args = append(args, keyword, keyword, keyword)
	}
	query += " ORDER BY end_time IS NULL, end_time ASC, id ASC LIMIT ?"
	args = append(args, limit)
	return s.queryJobs(ctx, query, args...)
}

// ListJobs returns jobs created at or after since, newest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, since time.Time) ([]model.Job, error) {
	return s.queryJobs(ctx, "SELECT "+sqliteJobColumns+" FROM jobs WHERE created_at >= ? ORDER BY created_at DESC, id DESC", dbTime(since))
}

func (s *SQLiteStore) queryJobs(ctx context.Context, query string, args ...any) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var (
			j          model.Job
			start, end sql.NullTime
		)
		if err := rows.Scan(&j.ID, &j.Company, &j.Title, &start, &end, &j.Detail, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		j.StartAt = timePtr(start)
		j.EndAt = timePtr(end)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

const sqliteUserColumns = "id, email, keyword, password, auth_code, auth_expires_at, is_verified, created_at"

// GetUser returns the user for email, or nil if none exists.
func (s *SQLiteStore) GetUser(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteUserColumns+" FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", email, err)
	}
	return u, nil
}

// MutateUser applies fn to the row for email inside an immediate transaction.
func (s *SQLiteStore) MutateUser(ctx context.Context, email string, fn model.UserMutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user update: %w", err)
	}
	defer tx.Rollback()

	current, err := scanUser(tx.QueryRowContext(ctx, "SELECT "+sqliteUserColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		return fmt.Errorf("reading user %s: %w", email, err)
	}

	next, err := fn(cloneUser(current))
	if err != nil {
		return err
	}
	if next == nil {
		return tx.Commit()
	}

	if current == nil {
		created := next.CreatedAt
		if created.IsZero() {
			created = s.now()
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO users (email, keyword, password, auth_code, auth_expires_at, is_verified, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			email, nullString(next.Keyword), nullString(next.Password), nullString(next.AuthCode),
			expiryTime(next.AuthExpiresAt), next.Verified, dbTime(created))
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE users SET keyword = ?, password = ?, auth_code = ?, auth_expires_at = ?, is_verified = ?
			WHERE id = ?`,
			nullString(next.Keyword), nullString(next.Password), nullString(next.AuthCode),
			expiryTime(next.AuthExpiresAt), next.Verified, current.ID)
	}
	if err != nil {
		return fmt.Errorf("writing user %s: %w", email, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user update: %w", err)
	}
	return nil
}

// Subscribers returns verified users with a non-empty keyword.
func (s *SQLiteStore) Subscribers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sqliteUserColumns+
		" FROM users WHERE is_verified = 1 AND keyword IS NOT NULL AND keyword <> '' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser returns nil, nil when the row does not exist.
func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                       model.User
		keyword, password, code sql.NullString
		expires                 sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &keyword, &password, &code, &expires, &u.Verified, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Keyword = stringPtr(keyword)
	u.Password = stringPtr(password)
	u.AuthCode = stringPtr(code)
	u.AuthExpiresAt = timePtr(expires)
	return &u, nil
}

// dbTime stores instants in UTC at second precision so text comparison in
// SQLite orders them correctly.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dbTime(*t), Valid: true}
}

// expiryTime keeps sub-second precision. Expiry is only compared in Go,
// and truncating would end a code's lifetime early.
func expiryTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func placeholders(n int, mark func(i int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = mark(i)
	}
	return strings.Join(parts, ", ")
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func chunks(ss []string, size int) [][]string {
	var out [][]string
	for len(ss) > size {
		out = append(out, ss[:size])
		ss = ss[size:]
	}
	if len(ss) > 0 {
		out = append(out, ss)
	}
	return out
}
