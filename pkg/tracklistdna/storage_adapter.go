package tracklistdna

import (
	"github.com/himanishpuri/TracklistDNA/internal/storage"
)

// NewSQLiteStorage opens the sqlite tracklist store at dbPath, creating the
// file and schema when missing.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}
