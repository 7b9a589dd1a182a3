package audio_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/book-expert/voice-cloner/internal/tts/audio"
	"github.com/book-expert/voice-cloner/internal/tts/audio/audiotest"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV(t, 2*time.Second, 16000, 2)

	info, err := audio.Inspect(data)
	require.NoError(t, err)

	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, 32000, info.Frames)
	assert.Equal(t, 2*time.Second, info.Duration)
}

func TestInspect_NotWAV(t *testing.T) {
	t.Parallel()

	_, err := audio.Inspect([]byte("definitely not a riff file"))
	require.ErrorIs(t, err, audio.ErrNotWAV)
}

func TestNormalize_ResamplesTo24kMono(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{name: "already 24k mono", sampleRate: 24000, channels: 1},
		{name: "22.05k mono", sampleRate: 22050, channels: 1},
		{name: "44.1k stereo", sampleRate: 44100, channels: 2},
		{name: "16k stereo", sampleRate: 16000, channels: 2},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			source := audiotest.WAV(t, time.Second, testCase.sampleRate, testCase.channels)

			encoded, info, err := audio.Normalize(source)
			require.NoError(t, err)

			assert.Equal(t, audio.OutputSampleRate, info.SampleRate)
			assert.Equal(t, audio.OutputChannels, info.Channels)
			assert.Equal(t, 24000, info.Frames)
			assert.Equal(t, time.Second, info.Duration)

			decoded, err := audio.Inspect(encoded)
			require.NoError(t, err)
			assert.Equal(t, 24000, decoded.SampleRate)
			assert.Equal(t, 1, decoded.Channels)
			assert.Equal(t, 16, decoded.BitDepth)
			assert.Equal(t, 24000, decoded.Frames)
		})
	}
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := audio.Normalize([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, audio.ErrNotWAV)
}

func TestResample(t *testing.T) {
	t.Parallel()

	same := audio.Resample([]int{1, 2, 3}, 24000, 24000)
	assert.Equal(t, []int{1, 2, 3}, same)

	up := audio.Resample([]int{0, 100}, 12000, 24000)
	assert.Equal(t, []int{0, 50, 100, 100}, up)

	down := audio.Resample([]int{0, 10, 20, 30}, 48000, 24000)
	assert.Equal(t, []int{0, 20}, down)
}

func TestSampleWarnings(t *testing.T) {
	t.Parallel()

	bounds := audio.DurationBounds{Min: 6 * time.Second, Max: 10 * time.Second}
	samples := [][]byte{
		audiotest.WAV(t, 8*time.Second, 8000, 1),
		audiotest.WAV(t, 2*time.Second, 8000, 1),
		audiotest.WAV(t, 12*time.Second, 8000, 1),
		[]byte("garbage"),
	}
	names := []string{"ok.wav", "short.wav", "long.wav", "bad.wav"}

	warnings := audio.SampleWarnings(names, samples, bounds)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "short.wav")
	assert.Contains(t, warnings[1], "long.wav")
	assert.Contains(t, warnings[2], "bad.wav")
}

// peak returns the largest absolute sample in a 16-bit WAV.
func peak(t *testing.T, data []byte) int {
	t.Helper()

	decoder := wav.NewDecoder(bytes.NewReader(data))
	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)

	largest := 0

	for _, sample := range buf.Data {
		if sample < 0 {
			sample = -sample
		}

		largest = max(largest, sample)
	}

	return largest
}

func TestNormalize_SampleFormats(t *testing.T) {
	t.Parallel()

	const (
		sampleRate = 24000
		amplitude  = 0.1
	)

	// A tenth of 16-bit full scale.
	expectedPeak := int(amplitude * math.MaxInt16)

	tests := []struct {
		name  string
		build func(t *testing.T) []byte
	}{
		{
			name: "32-bit float",
			build: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.FloatTone(time.Second, sampleRate, 1, amplitude),
					sampleRate, 32, 1, audiotest.FormatFloat)
			},
		},
		{
			name: "32-bit float stereo",
			build: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.FloatTone(time.Second, sampleRate, 2, amplitude),
					sampleRate, 32, 2, audiotest.FormatFloat)
			},
		},
		{
			name: "extensible 32-bit float",
			build: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Extensible(t, audiotest.FloatTone(time.Second, sampleRate, 1, amplitude),
					sampleRate, 1, audiotest.FormatFloat)
			},
		},
		{
			name: "8-bit unsigned",
			build: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.ScaledTone(time.Second, sampleRate, 1, 8, amplitude),
					sampleRate, 8, 1, audiotest.FormatPCM)
			},
		},
		{
			name: "24-bit",
			build: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.ScaledTone(time.Second, sampleRate, 1, 24, amplitude),
					sampleRate, 24, 1, audiotest.FormatPCM)
			},
		},
		{
			name: "32-bit integer",
			build: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.ScaledTone(time.Second, sampleRate, 1, 32, amplitude),
					sampleRate, 32, 1, audiotest.FormatPCM)
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			encoded, info, err := audio.Normalize(testCase.build(t))
			require.NoError(t, err)
			assert.Equal(t, audio.OutputSampleRate, info.SampleRate)
			assert.Equal(t, 24000, info.Frames)

			// 8-bit quantisation is coarse; allow one 8-bit step.
			assert.InDelta(t, expectedPeak, peak(t, encoded), 300)
		})
	}
}

func TestNormalize_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	const sampleRate = 8000

	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		wantErr error
	}{
		{
			name: "mu-law tag",
			data: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.ScaledTone(time.Second, sampleRate, 1, 16, 0.1),
					sampleRate, 16, 1, 7)
			},
			wantErr: audio.ErrUnsupportedFormat,
		},
		{
			name: "extensible with unknown subformat",
			data: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Extensible(t, audiotest.ScaledTone(time.Second, sampleRate, 1, 32, 0.1),
					sampleRate, 1, 0x55)
			},
			wantErr: audio.ErrUnsupportedFormat,
		},
		{
			name: "16-bit float",
			data: func(t *testing.T) []byte {
				t.Helper()

				return audiotest.Encode(t, audiotest.ScaledTone(time.Second, sampleRate, 1, 16, 0.1),
					sampleRate, 16, 1, audiotest.FormatFloat)
			},
			wantErr: audio.ErrUnsupportedBitDepth,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := audio.Normalize(testCase.data(t))
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestInspect_FloatSample(t *testing.T) {
	t.Parallel()

	data := audiotest.Encode(t, audiotest.FloatTone(2*time.Second, 22050, 1, 0.5), 22050, 32, 1, audiotest.FormatFloat)

	info, err := audio.Inspect(data)
	require.NoError(t, err)
	assert.True(t, info.Float)
	assert.Equal(t, 32, info.BitDepth)
	assert.Equal(t, 2*time.Second, info.Duration)
}
