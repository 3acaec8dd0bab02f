package acrcloud

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

// Service status codes with a meaning for classification.
const (
	codeSuccess        = 0
	codeNoResult       = 1001
	codeNoFingerprint  = 2004
	codeInvalidKey     = 3001
	codeLimitExceeded  = 3003
	codeInvalidSigning = 3014
)

const (
	unknownTitle  = "Unknown Title"
	unknownArtist = "Unknown Artist"
)

// identifyResponse is the subset of the /v1/identify body we rely on.
// Every block is optional; presence is checked explicitly.
type identifyResponse struct {
	Status   *responseStatus `json:"status"`
	Metadata *struct {
		Music []musicEntry `json:"music"`
	} `json:"metadata"`
}

type responseStatus struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type musicEntry struct {
	Title   string `json:"title"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Score            *float64 `json:"score"`
	ExternalMetadata struct {
		Spotify *struct {
			Track *struct {
				ID flexID `json:"id"`
			} `json:"track"`
		} `json:"spotify"`
		Deezer *struct {
			Track *struct {
				ID flexID `json:"id"`
			} `json:"track"`
		} `json:"deezer"`
		YouTube *struct {
			Vid flexID `json:"vid"`
		} `json:"youtube"`
	} `json:"external_metadata"`
}

// flexID accepts identifiers encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

// classify turns a 2xx response body into an outcome for segment index.
// A non-nil ServiceError means the body reported a failure or was malformed.
func classify(index int, body []byte) (models.Outcome, *models.ServiceError) {
	var resp identifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if resp.Status == nil && resp.Metadata == nil {
		return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Message: "malformed response: neither status nor metadata present"}
	}

	if resp.Status != nil {
		switch code := resp.Status.Code; code {
		case codeSuccess:
		case codeNoResult, codeNoFingerprint:
			return models.NoMatch(index), nil
		case codeInvalidKey, codeLimitExceeded, codeInvalidSigning:
			return models.Outcome{}, &models.ServiceError{Kind: models.Fatal, Code: code, Message: resp.Status.Msg}
		default:
			return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Code: code, Message: resp.Status.Msg}
		}
	}

	if resp.Metadata == nil || len(resp.Metadata.Music) == 0 {
		return models.NoMatch(index), nil
	}

	hits := make([]models.RawHit, 0, len(resp.Metadata.Music))
	for i, m := range resp.Metadata.Music {
		hit, err := m.toRawHit()
		if err != nil {
			return models.Outcome{}, &models.ServiceError{Kind: models.Transient, Message: fmt.Sprintf("malformed candidate %d: %v", i, err)}
		}
		hits = append(hits, hit)
	}
	return models.Matched(index, hits), nil
}

func (m musicEntry) toRawHit() (models.RawHit, error) {
	if m.Score == nil {
		return models.RawHit{}, errors.New("missing score")
	}

	hit := models.RawHit{
		Title:  strings.TrimSpace(m.Title),
		Artist: unknownArtist,
		Score:  *m.Score,
	}
	if hit.Title == "" {
		hit.Title = unknownTitle
	}
	if len(m.Artists) > 0 && strings.TrimSpace(m.Artists[0].Name) != "" {
		hit.Artist = strings.TrimSpace(m.Artists[0].Name)
	}

	ext := m.ExternalMetadata
	if ext.Spotify != nil && ext.Spotify.Track != nil && ext.Spotify.Track.ID != "" {
		hit.Links.Spotify = SpotifyURL(string(ext.Spotify.Track.ID))
	}
	if ext.Deezer != nil && ext.Deezer.Track != nil && ext.Deezer.Track.ID != "" {
		hit.Links.Deezer = DeezerURL(string(ext.Deezer.Track.ID))
	}
	if ext.YouTube != nil && ext.YouTube.Vid != "" {
		hit.Links.YouTube = YouTubeURL(string(ext.YouTube.Vid))
	}
	return hit, nil
}

func SpotifyURL(id string) string { return "https://open.spotify.com/track/" + id }
func DeezerURL(id string) string  { return "https://www.deezer.com/track/" + id }
func YouTubeURL(id string) string { return "https://www.youtube.com/watch?v=" + id }

// httpStatusError classifies a non-2xx HTTP response.
func httpStatusError(status int, body []byte) *models.ServiceError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "HTTP " + strconv.Itoa(status)
	}
	kind := models.Transient
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = models.Fatal
	}
	return &models.ServiceError{Kind: kind, Code: status, Message: msg}
}
