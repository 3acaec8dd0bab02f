package acrcloud

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

const matchedBody = `{
  "status": {"msg": "Success", "code": 0, "version": "1.0"},
  "metadata": {
    "music": [
      {
        "title": "Strobe",
        "artists": [{"name": "deadmau5"}],
        "score": 70,
        "external_metadata": {
          "spotify": {"track": {"id": "2sNvitW3TxiTeC9xT9f2ZZ"}},
          "deezer": {"track": {"id": 3135556}},
          "youtube": {"vid": "tKi9Z-f6qX4"}
        }
      },
      {
        "title": "Strobe (Radio Edit)",
        "artists": [{"name": "deadmau5"}],
        "score": 95
      }
    ]
  }
}`

type staticEncoder struct {
	payload []byte
	err     error
}

func (e staticEncoder) Encode(models.Segment) ([]byte, error) {
	return e.payload, e.err
}

var fixedNow = time.Unix(1700000000, 0)

func newTestClient(t *testing.T, endpoint string, cfg Config) *Client {
	t.Helper()
	cfg.Endpoint = endpoint
	if cfg.AccessKey == "" {
		cfg.AccessKey = "test-access-key"
	}
	if cfg.AccessSecret == "" {
		cfg.AccessSecret = "test-secret"
	}
	return New(cfg, staticEncoder{payload: []byte("RIFF....WAVEfake")},
		WithLogger(logger.Discard()),
		WithClock(func() time.Time { return fixedNow }),
	)
}

// scriptedServer replies with the given responses in order, repeating the last one.
func scriptedServer(t *testing.T, replies ...func(w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		replies[n](w)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func reply(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestRecognizeMatched(t *testing.T) {
	srv, calls := scriptedServer(t, reply(http.StatusOK, matchedBody))
	client := newTestClient(t, srv.URL+identifyPath, Config{})

	out, err := client.Recognize(context.Background(), models.Segment{Index: 4})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if out.Kind != models.OutcomeMatched || out.Index != 4 {
		t.Fatalf("Expected matched outcome for index 4, got %+v", out)
	}
	if len(out.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(out.Candidates))
	}

	first := out.Candidates[0]
	want := models.RawHit{
		Title:  "Strobe",
		Artist: "deadmau5",
		Score:  70,
		Links: models.ExternalLinks{
			Spotify: "https://open.spotify.com/track/2sNvitW3TxiTeC9xT9f2ZZ",
			Deezer:  "https://www.deezer.com/track/3135556",
			YouTube: "https://www.youtube.com/watch?v=tKi9Z-f6qX4",
		},
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("Expected %+v, got %+v", want, first)
	}
	if out.Candidates[1].Links != (models.ExternalLinks{}) {
		t.Errorf("Expected no links for second candidate, got %+v", out.Candidates[1].Links)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}
}

func TestRecognizeSendsSignedForm(t *testing.T) {
	payload := []byte("RIFF....WAVEfake")
	var seen map[string]string
	var sample []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != identifyPath {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		seen = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			seen[k] = v[0]
		}
		f, _, err := r.FormFile("sample")
		if err != nil {
			t.Errorf("Missing sample part: %v", err)
			return
		}
		sample, _ = io.ReadAll(f)
		io.WriteString(w, `{"status":{"code":1001,"msg":"No result"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+identifyPath, Config{})
	out, err := client.Recognize(context.Background(), models.Segment{Index: 0})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if out.Kind != models.OutcomeNoMatch {
		t.Errorf("Expected no match, got %s", out.Kind)
	}

	want := map[string]string{
		"access_key":        "test-access-key",
		"data_type":         "audio",
		"signature_version": "1",
		"signature":         "IjmzrgGYwWx1Lj51CER1fsfwfVY=",
		"timestamp":         "1700000000",
		"sample_bytes":      strconv.Itoa(len(payload)),
	}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("Form fields:\n got %v\nwant %v", seen, want)
	}
	if string(sample) != string(payload) {
		t.Errorf("Expected sample payload %q, got %q", payload, sample)
	}
}

func TestRecognizeClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  models.OutcomeKind
		wantFatal bool
		wantCalls int32
	}{
		{"empty music", http.StatusOK, `{"status":{"code":0,"msg":"Success"},"metadata":{"music":[]}}`, models.OutcomeNoMatch, false, 1},
		{"no result", http.StatusOK, `{"status":{"code":1001,"msg":"No result"}}`, models.OutcomeNoMatch, false, 1},
		{"no fingerprint", http.StatusOK, `{"status":{"code":2004,"msg":"Can't generate fingerprint"}}`, models.OutcomeNoMatch, false, 1},
		{"malformed json", http.StatusOK, `{"status":`, models.OutcomeServiceError, false, 3},
		{"empty object", http.StatusOK, `{}`, models.OutcomeServiceError, false, 3},
		{"music not an array", http.StatusOK, `{"metadata":{"music":{"title":"x"}}}`, models.OutcomeServiceError, false, 3},
		{"candidate without score", http.StatusOK, `{"metadata":{"music":[{"title":"x"}]}}`, models.OutcomeServiceError, false, 3},
		{"server error", http.StatusInternalServerError, `oops`, models.OutcomeServiceError, false, 3},
		{"rate limited status", http.StatusOK, `{"status":{"code":3015,"msg":"QpS limit exceeded"}}`, models.OutcomeServiceError, false, 3},
		{"invalid key", http.StatusOK, `{"status":{"code":3001,"msg":"Missing/Invalid Access Key"}}`, 0, true, 1},
		{"invalid signature", http.StatusOK, `{"status":{"code":3014,"msg":"Invalid signature"}}`, 0, true, 1},
		{"limit exceeded", http.StatusOK, `{"status":{"code":3003,"msg":"Limit exceeded"}}`, 0, true, 1},
		{"forbidden", http.StatusForbidden, ``, 0, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, reply(tt.status, tt.body))
			client := newTestClient(t, srv.URL+identifyPath, Config{RetryDelay: time.Millisecond})

			out, err := client.Recognize(context.Background(), models.Segment{Index: 2})

			if tt.wantFatal {
				if !models.IsFatal(err) {
					t.Fatalf("Expected fatal service error, got outcome %+v err %v", out, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if out.Kind != tt.wantKind {
					t.Errorf("Expected %s, got %s", tt.wantKind, out.Kind)
				}
				if out.Kind == models.OutcomeServiceError && (out.Err == nil || out.Err.Kind != models.Transient) {
					t.Errorf("Expected terminal transient error, got %+v", out.Err)
				}
				if out.Index != 2 {
					t.Errorf("Expected index 2, got %d", out.Index)
				}
			}
			if got := atomic.LoadInt32(calls); got != tt.wantCalls {
				t.Errorf("Expected %d requests, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestRecognizeRecoversFromTransientFailures(t *testing.T) {
	direct, _ := scriptedServer(t, reply(http.StatusOK, matchedBody))
	flaky, calls := scriptedServer(t,
		reply(http.StatusBadGateway, "bad gateway"),
		reply(http.StatusOK, `not json`),
		reply(http.StatusOK, matchedBody),
	)

	cfg := Config{RetryDelay: time.Millisecond}
	want, err := newTestClient(t, direct.URL+identifyPath, cfg).Recognize(context.Background(), models.Segment{Index: 1})
	if err != nil {
		t.Fatalf("Direct recognize failed: %v", err)
	}
	got, err := newTestClient(t, flaky.URL+identifyPath, cfg).Recognize(context.Background(), models.Segment{Index: 1})
	if err != nil {
		t.Fatalf("Flaky recognize failed: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Recovered outcome differs from first-try outcome:\n got %+v\nwant %+v", got, want)
	}
	if n := atomic.LoadInt32(calls); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
}

func TestRecognizeWaitsBetweenAttempts(t *testing.T) {
	srv, _ := scriptedServer(t, reply(http.StatusServiceUnavailable, ""))
	client := newTestClient(t, srv.URL+identifyPath, Config{RetryDelay: 2 * time.Second})

	var delays []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	out, err := client.Recognize(context.Background(), models.Segment{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Kind != models.OutcomeServiceError {
		t.Errorf("Expected service error outcome, got %s", out.Kind)
	}
	want := []time.Duration{2 * time.Second, 2 * time.Second}
	if !reflect.DeepEqual(delays, want) {
		t.Errorf("Expected delays %v, got %v", want, delays)
	}
}

func TestRecognizeMissingCredentials(t *testing.T) {
	srv, calls := scriptedServer(t, reply(http.StatusOK, matchedBody))
	client := New(Config{Endpoint: srv.URL + identifyPath, AccessKey: "key"}, staticEncoder{payload: []byte("x")},
		WithLogger(logger.Discard()))

	_, err := client.Recognize(context.Background(), models.Segment{})
	if !errors.Is(err, models.ErrMissingCredentials) {
		t.Fatalf("Expected ErrMissingCredentials, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 0 {
		t.Errorf("Expected no network calls, got %d", got)
	}
}

func TestRecognizeEncodeFailure(t *testing.T) {
	srv, calls := scriptedServer(t, reply(http.StatusOK, matchedBody))
	client := New(Config{Endpoint: srv.URL + identifyPath, AccessKey: "key", AccessSecret: "secret"},
		staticEncoder{err: errors.New("disk full")}, WithLogger(logger.Discard()))

	_, err := client.Recognize(context.Background(), models.Segment{Index: 7})
	var segErr *models.SegmentationError
	if !errors.As(err, &segErr) || segErr.Index != 7 {
		t.Fatalf("Expected SegmentationError for segment 7, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 0 {
		t.Errorf("Expected no network calls, got %d", got)
	}
}

func TestRecognizeCancelledDuringBackoff(t *testing.T) {
	srv, calls := scriptedServer(t, reply(http.StatusInternalServerError, ""))
	client := newTestClient(t, srv.URL+identifyPath, Config{RetryDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.Recognize(ctx, models.Segment{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("Expected 1 request before cancellation, got %d", got)
	}
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		in   string
		want flexID
	}{
		{`"abc"`, "abc"},
		{`12345`, "12345"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id flexID
		if err := id.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", tt.in, err)
		}
		if id != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, id, tt.want)
		}
	}
	var id flexID
	if err := id.UnmarshalJSON([]byte(`{"x":1}`)); err == nil {
		t.Error("Expected error for object id")
	}
}
