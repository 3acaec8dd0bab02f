package models

import "time"

// AudioSource is a decoded waveform of a full recording.
// Samples are interleaved 16-bit PCM frames.
type AudioSource struct {
	Samples    []int16 // Interleaved PCM samples
	SampleRate int     // Frames per second, e.g. 44100
	Channels   int     // 1 = mono, 2 = stereo
}

// Frames returns the number of sample frames in the source.
func (s *AudioSource) Frames() int {
	if s == nil || s.Channels <= 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// DurationMs returns the total source duration in milliseconds.
func (s *AudioSource) DurationMs() int {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return int(int64(s.Frames()) * 1000 / int64(s.SampleRate))
}

// Segment is one time window of an AudioSource submitted as a recognition unit.
type Segment struct {
	Index      int     // Position in the segment sequence, starting at 0
	StartMs    int     // Inclusive start offset in the source
	EndMs      int     // Exclusive end offset in the source
	Samples    []int16 // Interleaved PCM samples of the window (shares the source array)
	SampleRate int
	Channels   int
}

// DurationMs returns the window length in milliseconds.
func (s Segment) DurationMs() int {
	return s.EndMs - s.StartMs
}

// ExternalLinks holds full platform URLs for a recognized track.
type ExternalLinks struct {
	Spotify string `json:"spotify,omitempty"`
	Deezer  string `json:"deezer,omitempty"`
	YouTube string `json:"youtube,omitempty"`
}

// RawHit is one candidate reported by the recognition service for a segment.
type RawHit struct {
	Title  string
	Artist string
	Score  float64
	Links  ExternalLinks
}

// Track is a cleaned, deduplicated tracklist entry.
type Track struct {
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Confidence float64       `json:"confidence"`
	Links      ExternalLinks `json:"external_links"`
}

// Tracklist is the ordered result of one pipeline run.
type Tracklist struct {
	SourceKey string    `json:"source_key"`
	Tracks    []Track   `json:"tracks"`
	UpdatedAt time.Time `json:"updated_at"`
}
