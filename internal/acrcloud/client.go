// Package acrcloud implements the signed, retrying client for the ACRCloud
// /v1/identify recognition endpoint.
package acrcloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

const (
	DefaultHost       = "identify-us-west-2.acrcloud.com"
	DefaultAttempts   = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultTimeout    = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// SampleEncoder turns a segment into the audio payload uploaded to the service.
type SampleEncoder interface {
	Encode(seg models.Segment) ([]byte, error)
}

// Config holds the connection settings and retry policy.
type Config struct {
	Host         string
	AccessKey    string
	AccessSecret string

	// Endpoint overrides https://{Host}/v1/identify, e.g. for a local stub.
	Endpoint string

	Attempts   int           // Total attempts per segment, including the first
	RetryDelay time.Duration // Fixed delay between attempts
	Timeout    time.Duration // Per-request HTTP timeout
}

// Client queries the recognition service for one segment at a time.
// It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	encoder SampleEncoder
	log     *logger.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithClock replaces the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(cfg Config, encoder SampleEncoder, opts ...Option) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:     cfg,
		encoder: encoder,
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.log == nil {
		c.log = logger.GetLogger().WithPrefix("[acrcloud]")
	}
	return c
}

// Validate reports missing credentials or an unusable client.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.cfg.AccessKey) == "" || strings.TrimSpace(c.cfg.AccessSecret) == "" {
		return models.ErrMissingCredentials
	}
	if c.encoder == nil {
		return errors.New("acrcloud: no sample encoder configured")
	}
	return nil
}

func (c *Client) endpoint() string {
	if c.cfg.Endpoint != "" {
		return c.cfg.Endpoint
	}
	return "https://" + c.cfg.Host + identifyPath
}

// Recognize queries the service for seg, retrying transient failures.
//
// Transient failures that outlast the retry budget come back as an
// OutcomeServiceError outcome with a nil error. A non-nil error is always
// terminal for the run: missing credentials, a segment that cannot be
// encoded, a fatal service error, or context cancellation.
func (c *Client) Recognize(ctx context.Context, seg models.Segment) (models.Outcome, error) {
	if err := c.Validate(); err != nil {
		return models.Outcome{}, err
	}

	sample, err := c.encoder.Encode(seg)
	if err != nil {
		return models.Outcome{}, &models.SegmentationError{Index: seg.Index, Err: err}
	}

	var last *models.ServiceError
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return models.Outcome{}, err
			}
		}

		out, serr := c.identify(ctx, seg.Index, sample)
		if serr == nil {
			c.log.Debugf("segment %d [%d-%dms]: %s on attempt %d", seg.Index, seg.StartMs, seg.EndMs, out.Kind, attempt)
			return out, nil
		}
		if serr.Kind == models.Fatal {
			return models.Outcome{}, serr
		}
		if err := ctx.Err(); err != nil {
			return models.Outcome{}, err
		}
		last = serr
		c.log.Warnf("segment %d: attempt %d/%d failed: %v", seg.Index, attempt, c.cfg.Attempts, serr)
	}

	c.log.Warnf("segment %d: giving up after %d attempts", seg.Index, c.cfg.Attempts)
	return models.Failed(seg.Index, last), nil
}

// identify performs one signed POST and classifies the reply.
func (c *Client) identify(ctx context.Context, index int, sample []byte) (models.Outcome, *models.ServiceError) {
	body, contentType, err := c.buildForm(index, sample)
	if err != nil {
		return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Message: fmt.Sprintf("building request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), body)
	if err != nil {
		return models.Outcome{}, &models.ServiceError{Kind: models.Fatal, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Outcome{}, httpStatusError(resp.StatusCode, data)
	}
	return classify(index, data)
}

func (c *Client) buildForm(index int, sample []byte) (*bytes.Buffer, string, error) {
	timestamp := c.now().Unix()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"access_key", c.cfg.AccessKey},
		{"data_type", dataType},
		{"signature_version", signatureVersion},
		{"signature", Sign(c.cfg.AccessKey, c.cfg.AccessSecret, timestamp)},
		{"timestamp", strconv.FormatInt(timestamp, 10)},
		{"sample_bytes", strconv.Itoa(len(sample))},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("sample", fmt.Sprintf("segment_%d.wav", index))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(sample); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
