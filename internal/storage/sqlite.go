// Package storage persists tracklists in sqlite, one row per source recording.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

// DefaultDBFile is used when no database path is configured.
const DefaultDBFile = "tracklistdna.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// TracklistRecord is the stored form of a tracklist. Tracks holds the JSON
// encoded []models.Track in order.
type TracklistRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	SourceKey  string `gorm:"uniqueIndex:idx_source_key;not null"`
	RunID      string `gorm:"type:varchar(36)"`
	Tracks     string `gorm:"type:text;not null"`
	TrackCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index:idx_updated_at"`
}

func (TracklistRecord) TableName() string { return "tracklists" }

// NewDBClientWithPath opens (creating when missing) the database at dbPath
// and migrates the tracklist table.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&TracklistRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// UpsertTracklist stores tl under its source key, replacing any earlier run.
func (c *DBClient) UpsertTracklist(tl models.Tracklist, runID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if tl.SourceKey == "" {
		return errors.New("tracklist has no source key")
	}

	tracks := tl.Tracks
	if tracks == nil {
		tracks = []models.Track{}
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("encoding tracks: %w", err)
	}

	updated := tl.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	rec := TracklistRecord{
		SourceKey:  tl.SourceKey,
		RunID:      runID,
		Tracks:     string(data),
		TrackCount: len(tracks),
		UpdatedAt:  updated.UTC(),
	}
	err = c.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"run_id", "tracks", "track_count", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upserting tracklist %s: %w", tl.SourceKey, err)
	}
	return nil
}

func (c *DBClient) GetTracklist(sourceKey string) (*models.Tracklist, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rec TracklistRecord
	err := c.DB.Where("source_key = ?", sourceKey).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTracklistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying tracklist: %w", err)
	}
	return rec.toModel()
}

// ListTracklists returns every stored tracklist, most recently updated first.
func (c *DBClient) ListTracklists() ([]models.Tracklist, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []TracklistRecord
	if err := c.DB.Order("updated_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tracklists: %w", err)
	}

	out := make([]models.Tracklist, 0, len(rows))
	for _, r := range rows {
		tl, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *tl)
	}
	return out, nil
}

func (c *DBClient) DeleteTracklist(sourceKey string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	res := c.DB.Where("source_key = ?", sourceKey).Delete(&TracklistRecord{})
	if res.Error != nil {
		return fmt.Errorf("deleting tracklist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrTracklistNotFound
	}
	return nil
}

func (r TracklistRecord) toModel() (*models.Tracklist, error) {
	tracks := []models.Track{}
	if err := json.Unmarshal([]byte(r.Tracks), &tracks); err != nil {
		return nil, fmt.Errorf("decoding tracks of %s: %w", r.SourceKey, err)
	}
	return &models.Tracklist{
		SourceKey: r.SourceKey,
		Tracks:    tracks,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
