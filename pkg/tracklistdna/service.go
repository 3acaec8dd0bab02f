package tracklistdna

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/himanishpuri/TracklistDNA/internal/acrcloud"
	"github.com/himanishpuri/TracklistDNA/internal/audio"
	"github.com/himanishpuri/TracklistDNA/internal/dispatch"
	"github.com/himanishpuri/TracklistDNA/internal/merge"
	"github.com/himanishpuri/TracklistDNA/internal/segment"
	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
	"github.com/himanishpuri/TracklistDNA/pkg/utils"
)

// tracklistService is the default implementation of the Service interface.
type tracklistService struct {
	config     *Config
	storage    Storage
	acquirer   Acquirer
	recognizer Recognizer
	log        *logger.Logger
}

func NewService(opts ...Option) (Service, error) {
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, &StageError{Stage: StageConfigure, Err: err}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	recognizer := cfg.Recognizer
	if recognizer == nil {
		recognizer = acrcloud.New(acrcloud.Config{
			Host:         cfg.Host,
			AccessKey:    cfg.AccessKey,
			AccessSecret: cfg.AccessSecret,
			Attempts:     cfg.Attempts,
			RetryDelay:   cfg.RetryDelay,
		}, audio.WAVEncoder{TempDir: cfg.TempDir}, acrcloud.WithLogger(log.WithPrefix("[acrcloud]")))
	}

	acquirer := cfg.Acquirer
	if acquirer == nil {
		acquirer = audio.NewAcquirer(cfg.TempDir, log.WithPrefix("[audio]"))
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, &StageError{Stage: StageConfigure, Err: fmt.Errorf("failed to create storage: %w", err)}
		}
	}

	return &tracklistService{
		config:     cfg,
		storage:    stor,
		acquirer:   acquirer,
		recognizer: recognizer,
		log:        log,
	}, nil
}

func (s *tracklistService) Identify(ctx context.Context, ref string) (*models.Tracklist, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &StageError{Stage: StageAcquire, Err: errors.New("empty recording reference")}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	runID := utils.GenerateUUID()
	log := s.runLogger(runID)
	key := utils.SourceKey(ref)
	log.Infof("Identifying %s (source key %s)", ref, key)

	src, err := s.acquirer.Acquire(ctx, ref)
	if err != nil {
		return nil, &StageError{Stage: StageAcquire, Err: err}
	}

	tracks, err := s.recognize(ctx, src, log)
	if err != nil {
		return nil, err
	}

	tl := models.Tracklist{SourceKey: key, Tracks: tracks, UpdatedAt: time.Now().UTC()}
	if err := s.storage.UpsertTracklist(tl, runID); err != nil {
		return nil, &StageError{Stage: StagePersist, Err: err}
	}

	log.Infof("Stored %d tracks for %s", len(tracks), key)
	return &tl, nil
}

func (s *tracklistService) Recognize(ctx context.Context, src *models.AudioSource) ([]models.Track, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.recognize(ctx, src, s.runLogger(utils.GenerateUUID()))
}

// recognize is the core pipeline: segment, dispatch, merge.
func (s *tracklistService) recognize(ctx context.Context, src *models.AudioSource, log *logger.Logger) ([]models.Track, error) {
	seq, err := segment.Split(src, s.config.WindowMs, s.config.OverlapMs)
	if err != nil {
		return nil, &StageError{Stage: StageSegment, Err: err}
	}
	segments := slices.Collect(seq)
	log.Infof("Split %d ms of audio into %d segments (window %d ms, overlap %d ms)",
		src.DurationMs(), len(segments), s.config.WindowMs, s.config.OverlapMs)

	d := dispatch.New(s.recognizer,
		dispatch.WithWorkers(s.config.Workers),
		dispatch.WithLogger(log.WithPrefix("[dispatch]")),
		dispatch.WithProgress(s.config.Progress),
	)
	outcomes, err := d.Dispatch(ctx, segments)
	if err != nil {
		return nil, &StageError{Stage: stageOf(err), Err: err}
	}

	matched, noMatch, failed := tally(outcomes)
	log.Infof("Recognition finished: %d matched, %d without match, %d failed", matched, noMatch, failed)

	tracks := merge.Merger{Threshold: s.config.MatchThreshold}.Merge(outcomes)
	log.Infof("Merged into %d tracks", len(tracks))
	return tracks, nil
}

// stageOf attributes a dispatch error to the step that produced it.
func stageOf(err error) Stage {
	var segErr *models.SegmentationError
	switch {
	case errors.As(err, &segErr):
		return StageSegment
	case errors.Is(err, models.ErrMissingCredentials):
		return StageConfigure
	default:
		return StageRecognize
	}
}

func tally(outcomes []models.Outcome) (matched, noMatch, failed int) {
	for _, out := range outcomes {
		switch out.Kind {
		case models.OutcomeMatched:
			matched++
		case models.OutcomeNoMatch:
			noMatch++
		case models.OutcomeServiceError:
			failed++
		}
	}
	return matched, noMatch, failed
}

func (s *tracklistService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *tracklistService) runLogger(runID string) *logger.Logger {
	return s.log.WithPrefix("[run " + runID[:8] + "]")
}

// GetTracklist returns the stored tracklist for a source key.
func (s *tracklistService) GetTracklist(sourceKey string) (*models.Tracklist, error) {
	return s.storage.GetTracklist(sourceKey)
}

// ListTracklists returns all stored tracklists, newest first.
func (s *tracklistService) ListTracklists() ([]models.Tracklist, error) {
	return s.storage.ListTracklists()
}

func (s *tracklistService) DeleteTracklist(sourceKey string) error {
	return s.storage.DeleteTracklist(sourceKey)
}

// Close releases all resources held by the service.
func (s *tracklistService) Close() error {
	return s.storage.Close()
}
