package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

const pcmFormat = 1

// ReadSource decodes a 16-bit PCM WAV file into an interleaved AudioSource.
func ReadSource(path string) (*models.AudioSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := DecodeSource(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return src, nil
}

// DecodeSource reads a WAV stream. Chunks other than fmt and data are skipped.
func DecodeSource(r io.ReadSeeker) (*models.AudioSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a WAV/RIFF file")
	}
	if dec.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("unsupported WAV audio format %d: only PCM (1) supported", dec.WavAudioFormat)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bits per sample %d: only 16-bit supported", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}

	return &models.AudioSource{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}
