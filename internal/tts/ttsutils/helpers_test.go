package ttsutils_test

import (
	"strings"
	"testing"

	"github.com/book-expert/voice-cloner/internal/tts/ttsutils"
	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		expected string
		seconds  float64
	}{
		{name: "Zero seconds", seconds: 0, expected: "0.0s"},
		{name: "Short clip", seconds: 8.04, expected: "8.0s"},
		{name: "Just under a minute", seconds: 59.9, expected: "59.9s"},
		{name: "Exactly one minute", seconds: 60, expected: "1m 0.0s"},
		{name: "Minutes and seconds", seconds: 90.5, expected: "1m 30.5s"},
		{name: "Exactly one hour", seconds: 3600, expected: "1h 0m"},
		{name: "Hours and minutes", seconds: 3725, expected: "1h 2m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ttsutils.FormatDuration(tc.seconds))
		})
	}
}

func TestIsWAVFile(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		filename string
		expected bool
	}{
		{filename: "speaker.wav", expected: true},
		{filename: "SPEAKER.WAV", expected: true},
		{filename: "take.2.Wav", expected: true},
		{filename: "speaker.mp3", expected: false},
		{filename: "speaker.wav.txt", expected: false},
		{filename: "wav", expected: false},
		{filename: "", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ttsutils.IsWAVFile(tc.filename))
		})
	}
}

func TestGetFileExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wav", ttsutils.GetFileExtension("sample.WAV"))
	assert.Equal(t, "gz", ttsutils.GetFileExtension("archive.tar.gz"))
	assert.Empty(t, ttsutils.GetFileExtension("no_extension"))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "No invalid characters", input: "valid_filename.wav", expected: "valid_filename.wav"},
		{name: "Path separators", input: `../voices\bob.wav`, expected: ".._voices_bob.wav"},
		{name: "Reserved characters", input: `a<b>c:d"e|f?g*.wav`, expected: "a_b_c_d_e_f_g_.wav"},
		{name: "Control characters", input: "take\x00one\n.wav", expected: "takeone.wav"},
		{name: "Surrounding spaces", input: "  clip.wav ", expected: "clip.wav"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ttsutils.SanitizeFilename(tc.input))
		})
	}
}

func TestSanitizeFilename_CapsLengthKeepingExtension(t *testing.T) {
	t.Parallel()

	sanitized := ttsutils.SanitizeFilename(strings.Repeat("a", 300) + ".wav")

	assert.Len(t, []rune(sanitized), 128)
	assert.True(t, ttsutils.IsWAVFile(sanitized))
}
