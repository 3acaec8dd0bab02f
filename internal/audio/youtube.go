package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/TracklistDNA/pkg/utils"
)

const downloadTimeout = 30 * time.Minute

// DownloadAudio fetches the best audio stream of a single video as MP3 into
// outputDir and returns the file path. Files are named by a fresh UUID so
// concurrent downloads never collide.
func DownloadAudio(ctx context.Context, url string, outputDir string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, downloadTimeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := utils.GenerateUUID()
	dl := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		NoPlaylist().
		Quiet().
		Output(filepath.Join(outputDir, name+".%(ext)s"))

	if _, err := dl.Run(ctx, url); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	return findDownloaded(outputDir, name)
}

// findDownloaded locates the file yt-dlp wrote for name, preferring the
// extracted mp3 over any intermediate stream left behind.
func findDownloaded(dir, name string) (string, error) {
	mp3 := filepath.Join(dir, name+".mp3")
	if utils.FileExists(mp3) {
		return mp3, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if filepath.Ext(m) != ".part" {
			return m, nil
		}
	}
	return "", fmt.Errorf("downloaded audio file not found for %s in %s", name, dir)
}
