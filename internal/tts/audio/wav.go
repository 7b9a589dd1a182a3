package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Resample converts 16-bit mono samples from srcRate to dstRate using linear
// interpolation.
func Resample(samples []int, srcRate, dstRate int) []int {
	if srcRate == dstRate || len(samples) < 2 {
		out := make([]int, len(samples))
		copy(out, samples)

		return out
	}

	outLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	out := make([]int, outLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range outLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := sampleAt(samples, srcIdx)
		s1 := sampleAt(samples, srcIdx+1)

		out[i] = clamp16(int(math.Round(float64(s0) + frac*float64(s1-s0))))
	}

	return out
}

func sampleAt(samples []int, idx int) int {
	if idx >= len(samples) {
		return samples[len(samples)-1]
	}

	return samples[idx]
}

func clamp16(sample int) int {
	if sample > math.MaxInt16 {
		return math.MaxInt16
	}

	if sample < math.MinInt16 {
		return math.MinInt16
	}

	return sample
}

// EncodeWAV encodes interleaved 16-bit samples as a PCM WAV file. The encoder
// needs a seekable writer to patch the header, so the file is built in a
// temporary file and read back.
func EncodeWAV(samples []int, sampleRate, channels int) (data []byte, err error) {
	tempFile, err := os.CreateTemp("", "voice-cloner-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for wav encoding: %w", err)
	}

	defer func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = fmt.Errorf("failed to remove temp file %s: %w", tempFile.Name(), removeErr)
		}
	}()

	writeErr := WriteWAV(tempFile, samples, sampleRate, channels)

	closeErr := tempFile.Close()
	if writeErr != nil {
		return nil, writeErr
	}

	if closeErr != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	data, err = os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded wav: %w", err)
	}

	return data, nil
}

// WriteWAV encodes interleaved 16-bit samples into file.
func WriteWAV(file *os.File, samples []int, sampleRate, channels int) error {
	encoder := wav.NewEncoder(file, sampleRate, OutputBitDepth, channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: OutputBitDepth,
	}

	writeErr := encoder.Write(buf)
	if writeErr != nil {
		return fmt.Errorf("failed to write pcm data: %w", writeErr)
	}

	closeErr := encoder.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to finalize wav header: %w", closeErr)
	}

	return nil
}
