// Package audiotest builds WAV fixtures for tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/voice-cloner/internal/tts/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const (
	toneFrequency = 220.0
	toneAmplitude = 0.4
)

// WAV format tags.
const (
	FormatPCM        = 1
	FormatFloat      = 3
	FormatExtensible = 0xFFFE
)

// Tone returns interleaved 16-bit samples of a sine tone.
func Tone(duration time.Duration, sampleRate, channels int) []int {
	return scaledTone(duration, sampleRate, channels, func(value float64) int {
		return int(toneAmplitude * math.MaxInt16 * value)
	})
}

// ScaledTone returns interleaved integer samples of a sine tone peaking at
// amplitude times the full scale of bitDepth. 8-bit samples are unsigned.
func ScaledTone(duration time.Duration, sampleRate, channels, bitDepth int, amplitude float64) []int {
	fullScale := float64(int(1)<<(bitDepth-1) - 1)

	return scaledTone(duration, sampleRate, channels, func(value float64) int {
		sample := int(amplitude * fullScale * value)
		if bitDepth == 8 {
			sample += 128
		}

		return sample
	})
}

// FloatTone returns interleaved 32-bit float samples of a sine tone peaking at
// amplitude, stored as their IEEE bit patterns.
func FloatTone(duration time.Duration, sampleRate, channels int, amplitude float64) []int {
	return scaledTone(duration, sampleRate, channels, func(value float64) int {
		return int(int32(math.Float32bits(float32(amplitude * value))))
	})
}

func scaledTone(duration time.Duration, sampleRate, channels int, convert func(float64) int) []int {
	frames := int(duration.Seconds() * float64(sampleRate))
	samples := make([]int, 0, frames*channels)

	for frame := range frames {
		value := convert(math.Sin(2 * math.Pi * toneFrequency * float64(frame) / float64(sampleRate)))
		for range channels {
			samples = append(samples, value)
		}
	}

	return samples
}

// WAV returns an encoded 16-bit PCM WAV file containing a sine tone.
func WAV(t *testing.T, duration time.Duration, sampleRate, channels int) []byte {
	t.Helper()

	data, err := audio.EncodeWAV(Tone(duration, sampleRate, channels), sampleRate, channels)
	require.NoError(t, err)

	return data
}

// Encode writes samples as a WAV file with the given bit depth and format tag.
func Encode(t *testing.T, samples []int, sampleRate, bitDepth, channels, format int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")

	file, err := os.Create(path)
	require.NoError(t, err)

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, channels, format)
	require.NoError(t, encoder.Write(&goaudio.IntBuffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, encoder.Close())
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return data
}

// Extensible returns a WAVE_FORMAT_EXTENSIBLE file whose SubFormat GUID carries
// subFormat. samples are written as 32-bit little-endian words.
func Extensible(t *testing.T, samples []int, sampleRate, channels, subFormat int) []byte {
	t.Helper()

	const (
		bitDepth     = 32
		fmtChunkSize = 40
		extraSize    = 22
	)

	blockAlign := channels * bitDepth / 8
	dataSize := len(samples) * bitDepth / 8

	var buf bytes.Buffer

	write := func(value any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, value))
	}

	buf.WriteString("RIFF")
	write(uint32(4 + 8 + fmtChunkSize + 8 + dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	write(uint32(fmtChunkSize))
	write(uint16(FormatExtensible))
	write(uint16(channels))
	write(uint32(sampleRate))
	write(uint32(sampleRate * blockAlign))
	write(uint16(blockAlign))
	write(uint16(bitDepth))
	write(uint16(extraSize))
	write(uint16(bitDepth))
	write(uint32(0))
	write(uint16(subFormat))
	// Remainder of the KSDATAFORMAT GUID.
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71})

	buf.WriteString("data")
	write(uint32(dataSize))

	for _, sample := range samples {
		write(uint32(int32(sample)))
	}

	return buf.Bytes()
}
