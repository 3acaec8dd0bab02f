package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

// WAVEncoder renders segments as 16-bit PCM WAV payloads. The wav encoder
// needs a seekable writer, so each payload goes through a temporary file in
// TempDir (the OS default when empty).
type WAVEncoder struct {
	TempDir string
}

func (e WAVEncoder) Encode(seg models.Segment) ([]byte, error) {
	if seg.SampleRate <= 0 || seg.Channels <= 0 {
		return nil, fmt.Errorf("segment %d: invalid format %d Hz x %d channels", seg.Index, seg.SampleRate, seg.Channels)
	}
	if len(seg.Samples) == 0 {
		return nil, fmt.Errorf("segment %d: no samples", seg.Index)
	}

	if e.TempDir != "" {
		if err := os.MkdirAll(e.TempDir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.CreateTemp(e.TempDir, fmt.Sprintf("segment_%d_*.wav", seg.Index))
	if err != nil {
		return nil, err
	}
	path := f.Name()
	defer os.Remove(path)

	if err := writeWAV(f, seg); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func writeWAV(f *os.File, seg models.Segment) error {
	enc := wav.NewEncoder(f, seg.SampleRate, 16, seg.Channels, pcmFormat)

	data := make([]int, len(seg.Samples))
	for i, s := range seg.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: seg.Channels,
			SampleRate:  seg.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	return errors.Join(enc.Write(buf), enc.Close())
}
