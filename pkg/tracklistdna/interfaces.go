package tracklistdna

import (
	"context"

	"github.com/himanishpuri/TracklistDNA/internal/dispatch"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

type Service interface {
	// Identify acquires the recording behind ref (a URL or a local audio
	// file), recognizes it and stores the tracklist under its source key.
	Identify(ctx context.Context, ref string) (*models.Tracklist, error)
	// Recognize runs segmentation, recognition and merging on a decoded source.
	Recognize(ctx context.Context, src *models.AudioSource) ([]models.Track, error)
	GetTracklist(sourceKey string) (*models.Tracklist, error)
	ListTracklists() ([]models.Tracklist, error)
	DeleteTracklist(sourceKey string) error
	Close() error
}

type Storage interface {
	UpsertTracklist(tl models.Tracklist, runID string) error
	GetTracklist(sourceKey string) (*models.Tracklist, error)
	ListTracklists() ([]models.Tracklist, error)
	DeleteTracklist(sourceKey string) error
	Close() error
}

// Acquirer turns a recording reference into a decoded source.
type Acquirer interface {
	Acquire(ctx context.Context, ref string) (*models.AudioSource, error)
}

// Recognizer queries the recognition service for one segment.
type Recognizer = dispatch.Recognizer
