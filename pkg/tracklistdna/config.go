package tracklistdna

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/TracklistDNA/internal/acrcloud"
	"github.com/himanishpuri/TracklistDNA/internal/dispatch"
	"github.com/himanishpuri/TracklistDNA/internal/merge"
	"github.com/himanishpuri/TracklistDNA/internal/segment"
	"github.com/himanishpuri/TracklistDNA/internal/storage"
	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAccessKey    = "ACR_ACCESS_KEY"
	EnvAccessSecret = "ACR_ACCESS_SECRET"
	EnvHost         = "ACR_HOST"
	EnvDBPath       = "TRACKLIST_DB_PATH"
	EnvTempDir      = "TRACKLIST_TEMP_DIR"
	EnvWorkers      = "TRACKLIST_WORKERS"
)

type Config struct {
	DBPath  string
	TempDir string

	AccessKey    string
	AccessSecret string
	Host         string

	WindowMs  int
	OverlapMs int
	Workers   int

	Attempts   int
	RetryDelay time.Duration

	// Timeout bounds a whole run; zero means no limit.
	Timeout time.Duration

	MatchThreshold int

	Logger     *logger.Logger
	Storage    Storage
	Recognizer Recognizer
	Acquirer   Acquirer
	Progress   func(done, total int)
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithCredentials(accessKey, accessSecret string) Option {
	return func(c *Config) {
		c.AccessKey = accessKey
		c.AccessSecret = accessSecret
	}
}

func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithWindow sets the segment length and the overlap between consecutive
// segments, both in milliseconds.
func WithWindow(windowMs, overlapMs int) Option {
	return func(c *Config) {
		c.WindowMs = windowMs
		c.OverlapMs = overlapMs
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithRetry sets the total attempts per segment and the fixed delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Config) {
		c.Attempts = attempts
		c.RetryDelay = delay
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithMatchThreshold(threshold int) Option {
	return func(c *Config) {
		c.MatchThreshold = threshold
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(store Storage) Option {
	return func(c *Config) {
		c.Storage = store
	}
}

// WithRecognizer replaces the ACRCloud client, e.g. with a fake in tests.
// Credentials are not required when a recognizer is supplied.
func WithRecognizer(r Recognizer) Option {
	return func(c *Config) {
		c.Recognizer = r
	}
}

func WithAcquirer(a Acquirer) Option {
	return func(c *Config) {
		c.Acquirer = a
	}
}

func WithProgress(p func(done, total int)) Option {
	return func(c *Config) {
		c.Progress = p
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:         storage.DefaultDBFile,
		TempDir:        filepath.Join(os.TempDir(), "tracklistdna"),
		Host:           acrcloud.DefaultHost,
		WindowMs:       segment.DefaultWindowMs,
		OverlapMs:      segment.DefaultOverlapMs,
		Workers:        dispatch.DefaultWorkers,
		Attempts:       acrcloud.DefaultAttempts,
		RetryDelay:     acrcloud.DefaultRetryDelay,
		MatchThreshold: merge.DefaultThreshold,
	}
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate reports the first setting that would make a run fail. It never
// touches the network.
func (c *Config) Validate() error {
	if err := segment.Validate(c.WindowMs, c.OverlapMs); err != nil {
		return &ConfigurationError{Field: "window", Err: err}
	}
	if c.Workers <= 0 {
		return &ConfigurationError{Field: "workers", Err: errors.New("must be at least 1")}
	}
	if c.Attempts <= 0 {
		return &ConfigurationError{Field: "attempts", Err: errors.New("must be at least 1")}
	}
	if c.RetryDelay < 0 {
		return &ConfigurationError{Field: "retry delay", Err: errors.New("must not be negative")}
	}
	if c.Timeout < 0 {
		return &ConfigurationError{Field: "timeout", Err: errors.New("must not be negative")}
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return &ConfigurationError{Field: "match threshold", Err: errors.New("must be within 0-100")}
	}
	if c.Recognizer == nil {
		if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.AccessSecret) == "" {
			return &ConfigurationError{Field: "credentials", Err: models.ErrMissingCredentials}
		}
		if strings.TrimSpace(c.Host) == "" {
			return &ConfigurationError{Field: "host", Err: errors.New("must not be empty")}
		}
	}
	if c.Storage == nil && strings.TrimSpace(c.DBPath) == "" {
		return &ConfigurationError{Field: "db path", Err: errors.New("must not be empty")}
	}
	return nil
}

// ConfigFromEnv loads the given .env files (".env" when none are named,
// skipped if absent) and turns the environment into options. Variables that
// are already set win over the files.
func ConfigFromEnv(files ...string) ([]Option, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return nil, &ConfigurationError{Field: "env file", Err: err}
		}
	}

	opts := []Option{
		WithCredentials(os.Getenv(EnvAccessKey), os.Getenv(EnvAccessSecret)),
	}
	if v := os.Getenv(EnvHost); v != "" {
		opts = append(opts, WithHost(v))
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		opts = append(opts, WithDBPath(v))
	}
	if v := os.Getenv(EnvTempDir); v != "" {
		opts = append(opts, WithTempDir(v))
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ConfigurationError{Field: EnvWorkers, Err: err}
		}
		opts = append(opts, WithWorkers(n))
	}
	return opts, nil
}
