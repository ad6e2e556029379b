package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobfinder/internal/scheduler"
)

// Config is the root configuration for jobfinder.
type Config struct {
	Location     *time.Location
	Database     DatabaseConfig
	Crawl        CrawlConfig
	RateLimit    RateLimitConfig
	Filters      FilterConfig
	Dedup        DedupConfig
	Verification VerificationConfig
	Digest       DigestConfig
	Mail         MailConfig
}

// DatabaseConfig selects the job and user store.
type DatabaseConfig struct {
	Driver          string // "sqlite" or "postgres"
	Path            string // sqlite file
	DSN             string // postgres connection string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// CrawlConfig controls the ingest cycle.
type CrawlConfig struct {
	Schedule    string
	RunOnStart  bool
	HTTPTimeout time.Duration
	Retry       RetryConfig
	Sources     []SourceConfig
}

// RetryConfig controls backoff for transient HTTP failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// SourceConfig describes one job board to crawl. Only the fields relevant
// to the named source are read.
type SourceConfig struct {
	Name            string   `yaml:"name"`
	Enabled         bool     `yaml:"enabled"`
	MaxPages        int      `yaml:"max_pages"`
	FuzzyDedup      bool     `yaml:"fuzzy_dedup"`
	StopOnKnownPage bool     `yaml:"stop_on_known_page"`
	DutyGroupIDs    []string `yaml:"duty_group_ids"` // jasoseol
	Keyword         string   `yaml:"keyword"`        // saramin
	PageSize        int      `yaml:"page_size"`      // linkareer
}

// RateLimitConfig controls per-source request pacing.
type RateLimitConfig struct {
	MinDelay        time.Duration
	SourceOverrides map[string]time.Duration
}

// MinDelayFor returns the configured delay for the given source, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(source string) time.Duration {
	if d, ok := r.SourceOverrides[source]; ok {
		return d
	}
	return r.MinDelay
}

// FilterConfig holds title keyword filters applied before dedup.
type FilterConfig struct {
	TitleKeywords        []string `yaml:"title_keywords"`
	TitleExcludeKeywords []string `yaml:"title_exclude_keywords"`
}

type DedupConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// VerificationConfig controls email verification codes and per-email locking.
type VerificationConfig struct {
	CodeLength int
	CodeTTL    time.Duration
	Lock       LockConfig
}

type LockConfig struct {
	Type     string // "local" or "redis"
	RedisURL string
	TTL      time.Duration
}

type DigestConfig struct {
	Schedule string
	Window   time.Duration
}

// MailConfig selects the mail provider.
type MailConfig struct {
	Type        string // "log" or "sendgrid"
	APIKey      string
	FromName    string
	FromAddress string
	// SlackWebhookURL, when set, mirrors every outgoing mail to a Slack channel.
	SlackWebhookURL string
	Retry           RetryConfig
}

const (
	DefaultTimezone       = "Asia/Seoul"
	DefaultCrawlSchedule  = "@every 6h"
	DefaultDigestSchedule = "0 13 * * *"
	slackWebhookPrefix    = "https://hooks.slack.com/"
)

// Sources recognised by the crawler.
var knownSources = map[string]bool{"jasoseol": true, "saramin": true, "linkareer": true}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Timezone     string            `yaml:"timezone"`
	Database     rawDatabaseConfig `yaml:"database"`
	Crawl        rawCrawlConfig    `yaml:"crawl"`
	RateLimit    rawRateLimit      `yaml:"rate_limit"`
	Filters      FilterConfig      `yaml:"filters"`
	Dedup        DedupConfig       `yaml:"dedup"`
	Verification rawVerification   `yaml:"verification"`
	Digest       rawDigest         `yaml:"digest"`
	Mail         rawMail           `yaml:"mail"`
}

type rawDatabaseConfig struct {
	Driver          string `yaml:"driver"`
	Path            string `yaml:"path"`
	DSN             string `yaml:"dsn"`
	MaxConns        int32  `yaml:"max_conns"`
	MaxConnLifetime string `yaml:"max_conn_lifetime"`
}

type rawRetry struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawCrawlConfig struct {
	Schedule    string         `yaml:"schedule"`
	RunOnStart  *bool          `yaml:"run_on_start"`
	HTTPTimeout string         `yaml:"http_timeout"`
	Retry       rawRetry       `yaml:"retry"`
	Sources     []SourceConfig `yaml:"sources"`
}

type rawRateLimit struct {
	MinDelay        string            `yaml:"min_delay"`
	SourceOverrides map[string]string `yaml:"source_overrides"`
}

type rawVerification struct {
	CodeLength int    `yaml:"code_length"`
	CodeTTL    string `yaml:"code_ttl"`
	Lock       struct {
		Type     string `yaml:"type"`
		RedisURL string `yaml:"redis_url"`
		TTL      string `yaml:"ttl"`
	} `yaml:"lock"`
}

type rawDigest struct {
	Schedule string `yaml:"schedule"`
	Window   string `yaml:"window"`
}

type rawMail struct {
	Type            string   `yaml:"type"`
	APIKey          string   `yaml:"api_key"`
	FromName        string   `yaml:"from_name"`
	FromAddress     string   `yaml:"from_address"`
	SlackWebhookURL string   `yaml:"slack_webhook_url"`
	Retry           rawRetry `yaml:"retry"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// ${VAR} references are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	p := durationParser{}
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(orDefault(raw.Database.Driver, "sqlite")),
			Path:            orDefault(raw.Database.Path, "jobfinder.db"),
			DSN:             raw.Database.DSN,
			MaxConns:        raw.Database.MaxConns,
			MaxConnLifetime: p.parse("database.max_conn_lifetime", raw.Database.MaxConnLifetime, time.Hour),
		},
		Crawl: CrawlConfig{
			Schedule:    orDefault(raw.Crawl.Schedule, DefaultCrawlSchedule),
			RunOnStart:  raw.Crawl.RunOnStart == nil || *raw.Crawl.RunOnStart,
			HTTPTimeout: p.parse("crawl.http_timeout", raw.Crawl.HTTPTimeout, 30*time.Second),
			Retry:       p.retry("crawl.retry", raw.Crawl.Retry, 0),
			Sources:     raw.Crawl.Sources,
		},
		RateLimit: RateLimitConfig{
			MinDelay:        p.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, 2*time.Second),
			SourceOverrides: make(map[string]time.Duration),
		},
		Filters: raw.Filters,
		Dedup:   raw.Dedup,
		Verification: VerificationConfig{
			CodeLength: raw.Verification.CodeLength,
			CodeTTL:    p.parse("verification.code_ttl", raw.Verification.CodeTTL, 10*time.Minute),
			Lock: LockConfig{
				Type:     strings.ToLower(orDefault(raw.Verification.Lock.Type, "local")),
				RedisURL: raw.Verification.Lock.RedisURL,
				TTL:      p.parse("verification.lock.ttl", raw.Verification.Lock.TTL, 10*time.Second),
			},
		},
		Digest: DigestConfig{
			Schedule: orDefault(raw.Digest.Schedule, DefaultDigestSchedule),
			Window:   p.parse("digest.window", raw.Digest.Window, 24*time.Hour),
		},
		Mail: MailConfig{
			Type:            strings.ToLower(orDefault(raw.Mail.Type, "log")),
			APIKey:          raw.Mail.APIKey,
			FromName:        orDefault(raw.Mail.FromName, "JOB-FINDER"),
			FromAddress:     raw.Mail.FromAddress,
			SlackWebhookURL: raw.Mail.SlackWebhookURL,
			Retry:           p.retry("mail.retry", raw.Mail.Retry, 2),
		},
	}
	for name, d := range raw.RateLimit.SourceOverrides {
		cfg.RateLimit.SourceOverrides[name] = p.parse(fmt.Sprintf("rate_limit.source_overrides[%q]", name), d, 0)
	}
	if cfg.Verification.CodeLength == 0 {
		cfg.Verification.CodeLength = 6
	}
	if cfg.Dedup.Threshold == 0 {
		cfg.Dedup.Threshold = 0.85
	}
	if p.err != nil {
		return nil, p.err
	}

	loc, err := time.LoadLocation(orDefault(raw.Timezone, DefaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("parse timezone %q: %w", raw.Timezone, err)
	}
	cfg.Location = loc

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnabledSources returns the sources with enabled: true.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Crawl.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// durationParser keeps the first parse error so Parse can report it once.
type durationParser struct {
	err error
}

func (p *durationParser) parse(field, value string, def time.Duration) time.Duration {
	if value == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.err = fmt.Errorf("parse %s %q: %w", field, value, err)
		return def
	}
	return d
}

// retry reads a retry block. Crawls default to no retries: a failed page
// ends the run.
func (p *durationParser) retry(field string, r rawRetry, defRetries int) RetryConfig {
	out := RetryConfig{MaxRetries: defRetries, BaseDelay: p.parse(field+".base_delay", r.BaseDelay, 5*time.Second)}
	if r.MaxRetries != nil {
		out.MaxRetries = *r.MaxRetries
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Database.Driver)
	}

	enabled := 0
	for _, s := range cfg.Crawl.Sources {
		if !knownSources[s.Name] {
			return fmt.Errorf("crawl.sources: unknown source %q", s.Name)
		}
		if s.MaxPages < 0 {
			return fmt.Errorf("crawl.sources[%s].max_pages must not be negative", s.Name)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one crawl source must be enabled")
	}

	if err := scheduler.Validate(cfg.Crawl.Schedule); err != nil {
		return fmt.Errorf("crawl.schedule: %w", err)
	}
	if err := scheduler.Validate(cfg.Digest.Schedule); err != nil {
		return fmt.Errorf("digest.schedule: %w", err)
	}
	if cfg.Crawl.Retry.MaxRetries < 0 || cfg.Mail.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}

	if cfg.Dedup.Threshold <= 0 || cfg.Dedup.Threshold > 1 {
		return fmt.Errorf("dedup.threshold must be in (0, 1], got %v", cfg.Dedup.Threshold)
	}

	if cfg.Verification.CodeLength < 4 || cfg.Verification.CodeLength > 10 {
		return fmt.Errorf("verification.code_length must be between 4 and 10, got %d", cfg.Verification.CodeLength)
	}
	if cfg.Verification.CodeTTL <= 0 {
		return fmt.Errorf("verification.code_ttl must be positive, got %v", cfg.Verification.CodeTTL)
	}
	switch cfg.Verification.Lock.Type {
	case "local":
	case "redis":
		if cfg.Verification.Lock.RedisURL == "" {
			return fmt.Errorf("verification.lock.redis_url is required when type is \"redis\"")
		}
	default:
		return fmt.Errorf("verification.lock.type must be \"local\" or \"redis\", got %q", cfg.Verification.Lock.Type)
	}

	if cfg.Digest.Window <= 0 {
		return fmt.Errorf("digest.window must be positive, got %v", cfg.Digest.Window)
	}

	switch cfg.Mail.Type {
	case "log":
	case "sendgrid":
		if cfg.Mail.APIKey == "" {
			return fmt.Errorf("mail.api_key is required when type is \"sendgrid\"")
		}
		if cfg.Mail.FromAddress == "" {
			return fmt.Errorf("mail.from_address is required when type is \"sendgrid\"")
		}
	default:
		return fmt.Errorf("mail.type must be \"log\" or \"sendgrid\", got %q", cfg.Mail.Type)
	}
	if cfg.Mail.SlackWebhookURL != "" && !strings.HasPrefix(cfg.Mail.SlackWebhookURL, slackWebhookPrefix) {
		return fmt.Errorf("mail.slack_webhook_url must start with %s", slackWebhookPrefix)
	}

	return nil
}
