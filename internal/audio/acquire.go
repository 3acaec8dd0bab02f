package audio

import (
	"context"
	"fmt"
	"os"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
	"github.com/himanishpuri/TracklistDNA/pkg/utils"
)

// Acquirer turns a remote URL or a local audio file into a decoded source.
// Intermediate files live in a per-call work directory under TempDir and are
// removed before Acquire returns.
type Acquirer struct {
	TempDir string
	Convert ConvertWAVConfig
	Log     *logger.Logger
}

func NewAcquirer(tempDir string, log *logger.Logger) *Acquirer {
	if log == nil {
		log = logger.GetLogger().WithPrefix("[audio]")
	}
	return &Acquirer{TempDir: tempDir, Log: log}
}

func (a *Acquirer) Acquire(ctx context.Context, ref string) (*models.AudioSource, error) {
	if a.TempDir != "" {
		if err := utils.MakeDir(a.TempDir); err != nil {
			return nil, err
		}
	}
	workDir, err := os.MkdirTemp(a.TempDir, "acquire-")
	if err != nil {
		return nil, err
	}
	defer utils.DeleteDir(workDir)

	input := ref
	if utils.IsRemoteURL(ref) {
		a.Log.Infof("downloading %s", ref)
		if input, err = DownloadAudio(ctx, ref, workDir); err != nil {
			return nil, err
		}
	} else if !utils.FileExists(ref) {
		return nil, fmt.Errorf("audio file not found: %s", ref)
	}

	a.Log.Debugf("converting %s to PCM WAV", input)
	wavPath, err := ConvertToStereoWAV(ctx, input, workDir, a.Convert)
	if err != nil {
		return nil, err
	}

	src, err := ReadSource(wavPath)
	if err != nil {
		return nil, err
	}
	a.Log.Infof("acquired %s: %d ms, %d Hz, %d channels", ref, src.DurationMs(), src.SampleRate, src.Channels)
	return src, nil
}
