package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
	"github.com/himanishpuri/TracklistDNA/pkg/utils"
)

// IdentifyRequest is the request body for POST /identify
type IdentifyRequest struct {
	// YouTubeURL is the recording to identify (required)
	YouTubeURL string `json:"youtube_url"`
}

// Validate checks if the request is valid
func (r *IdentifyRequest) Validate() error {
	if strings.TrimSpace(r.YouTubeURL) == "" {
		return fmt.Errorf("youtube_url is required")
	}
	if !utils.IsRemoteURL(r.YouTubeURL) {
		return fmt.Errorf("youtube_url must be an http(s) URL")
	}
	return nil
}

// IdentifyResponse is the response for a completed recognition run
type IdentifyResponse struct {
	Message   string         `json:"message"`
	SourceKey string         `json:"source_key"`
	Tracklist []models.Track `json:"tracklist"`
}

// TracklistDTO represents a stored tracklist in API responses
type TracklistDTO struct {
	SourceKey  string         `json:"source_key"`
	Tracks     []models.Track `json:"tracks"`
	TrackCount int            `json:"track_count"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func toDTO(tl models.Tracklist) TracklistDTO {
	tracks := tl.Tracks
	if tracks == nil {
		tracks = []models.Track{}
	}
	return TracklistDTO{
		SourceKey:  tl.SourceKey,
		Tracks:     tracks,
		TrackCount: len(tracks),
		UpdatedAt:  tl.UpdatedAt,
	}
}

// ListTracklistsResponse is the response for GET /api/tracklists
type ListTracklistsResponse struct {
	Tracklists []TracklistDTO `json:"tracklists"`
	Count      int            `json:"count"`
}

// DeleteTracklistResponse is the response for DELETE /api/tracklists/{key}
type DeleteTracklistResponse struct {
	Message   string `json:"message"`
	SourceKey string `json:"source_key"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Stage   string `json:"stage,omitempty"`
}
