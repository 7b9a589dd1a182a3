// Package audio inspects uploaded voice samples and normalises engine output
// into the service's fixed delivery format: 24 kHz, mono, 16-bit PCM WAV.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Output format of every generated clip.
const (
	OutputSampleRate = 24000
	OutputBitDepth   = 16
	OutputChannels   = 1
)

// WAV format tags.
const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

// Layout of a fmt chunk.
const (
	chunkHeaderSize       = 8
	riffHeaderSize        = 12
	extensibleSubFormatAt = 24
)

// Supported bit depths.
const (
	bitDepth8  = 8
	bitDepth16 = 16
	bitDepth24 = 24
	bitDepth32 = 32
)

// Error messages.
const (
	errFmtDurationTooShort = "sample %d (%s) is %.1fs long; %.0f-%.0f seconds works best"
	errFmtDurationTooLong  = "sample %d (%s) is %.1fs long; %.0f-%.0f seconds works best"
	errFmtUnreadable       = "sample %d (%s) could not be read as WAV: %v"
)

// Common errors for the audio package.
var (
	ErrNotWAV              = errors.New("data is not a valid WAV file")
	ErrEmptyAudio          = errors.New("audio contains no samples")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrUnsupportedFormat   = errors.New("unsupported WAV sample format")
	ErrInvalidSampleRate   = errors.New("invalid sample rate")
)

// Info describes a decoded WAV stream.
type Info struct {
	Float      bool
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
	Duration   time.Duration
}

// DurationBounds is the recommended length range for a voice sample.
type DurationBounds struct {
	Min time.Duration
	Max time.Duration
}

// Inspect decodes the header and PCM data of a WAV file.
func Inspect(data []byte) (Info, error) {
	_, info, err := decode(data)

	return info, err
}

// SampleWarnings inspects each sample and reports, without rejecting, anything
// outside the recommended range or unreadable as WAV.
func SampleWarnings(names []string, samples [][]byte, bounds DurationBounds) []string {
	var warnings []string

	for index, data := range samples {
		name := ""
		if index < len(names) {
			name = names[index]
		}

		info, err := Inspect(data)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf(errFmtUnreadable, index, name, err))

			continue
		}

		seconds := info.Duration.Seconds()

		switch {
		case bounds.Min > 0 && info.Duration < bounds.Min:
			warnings = append(warnings, fmt.Sprintf(errFmtDurationTooShort,
				index, name, seconds, bounds.Min.Seconds(), bounds.Max.Seconds()))
		case bounds.Max > 0 && info.Duration > bounds.Max:
			warnings = append(warnings, fmt.Sprintf(errFmtDurationTooLong,
				index, name, seconds, bounds.Min.Seconds(), bounds.Max.Seconds()))
		}
	}

	return warnings
}

// Normalize converts any integer PCM or 32-bit float WAV into a 24 kHz mono 16-bit WAV and returns the
// encoded bytes together with a description of the result.
func Normalize(data []byte) ([]byte, Info, error) {
	buf, info, err := decode(data)
	if err != nil {
		return nil, Info{}, err
	}

	mono := mixDown(buf.Data, info)
	resampled := Resample(mono, info.SampleRate, OutputSampleRate)

	encoded, encodeErr := EncodeWAV(resampled, OutputSampleRate, OutputChannels)
	if encodeErr != nil {
		return nil, Info{}, encodeErr
	}

	outInfo := Info{
		SampleRate: OutputSampleRate,
		Channels:   OutputChannels,
		BitDepth:   OutputBitDepth,
		Frames:     len(resampled),
		Duration:   framesToDuration(len(resampled), OutputSampleRate),
	}

	return encoded, outInfo, nil
}

func decode(data []byte) (*goaudio.IntBuffer, Info, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, Info{}, ErrNotWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to decode PCM data: %w", err)
	}

	format := int(decoder.WavAudioFormat)
	if format == formatExtensible {
		format = extensibleSubFormat(data)
	}

	bitDepth := int(decoder.BitDepth)

	switch format {
	case formatPCM:
		switch bitDepth {
		case bitDepth8, bitDepth16, bitDepth24, bitDepth32:
		default:
			return nil, Info{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
		}
	case formatFloat:
		if bitDepth != bitDepth32 {
			return nil, Info{}, fmt.Errorf("%w: %d-bit float", ErrUnsupportedBitDepth, bitDepth)
		}
	default:
		return nil, Info{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, format)
	}

	sampleRate := int(decoder.SampleRate)
	if sampleRate <= 0 {
		return nil, Info{}, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	channels := int(decoder.NumChans)
	if channels <= 0 {
		channels = 1
	}

	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, Info{}, ErrEmptyAudio
	}

	info := Info{
		Float:      format == formatFloat,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		Frames:     frames,
		Duration:   framesToDuration(frames, sampleRate),
	}

	return buf, info, nil
}

// extensibleSubFormat returns the format tag carried in the SubFormat GUID of a
// WAVE_FORMAT_EXTENSIBLE fmt chunk, or 0 if it cannot be found.
func extensibleSubFormat(data []byte) int {
	offset := riffHeaderSize

	for offset+chunkHeaderSize <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+chunkHeaderSize]))
		body := offset + chunkHeaderSize

		if id == "fmt " {
			if size < extensibleSubFormatAt+2 || body+extensibleSubFormatAt+2 > len(data) {
				return 0
			}

			return int(binary.LittleEndian.Uint16(data[body+extensibleSubFormatAt:]))
		}

		offset = body + size + size%2
	}

	return 0
}

// mixDown averages interleaved channels into one and rescales to 16-bit.
func mixDown(data []int, info Info) []int {
	channels := info.Channels
	frames := len(data) / channels
	mono := make([]int, frames)

	for frame := range frames {
		sum := 0
		for channel := range channels {
			sum += to16Bit(data[frame*channels+channel], info)
		}

		mono[frame] = sum / channels
	}

	return mono
}

func to16Bit(sample int, info Info) int {
	if info.Float {
		return floatTo16Bit(math.Float32frombits(uint32(int32(sample))))
	}

	switch info.BitDepth {
	case bitDepth8:
		return (sample - 128) << 8
	case bitDepth24:
		return sample >> 8
	case bitDepth32:
		return sample >> 16
	default:
		return sample
	}
}

func floatTo16Bit(value float32) int {
	if math.IsNaN(float64(value)) {
		return 0
	}

	return clamp16(int(math.Round(float64(value) * math.MaxInt16)))
}

func framesToDuration(frames, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
