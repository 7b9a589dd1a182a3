// Package ttsutils provides small filename and formatting helpers shared by the
// service and its web surface.
package ttsutils

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	extWAV                 = ".wav"
	dot                    = "."
	invalidCharReplacement = "_"
	maxFilenameRunes       = 128
)

// Time formatting constants.
const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
)

var filenameReplacer = strings.NewReplacer(
	"<", invalidCharReplacement,
	">", invalidCharReplacement,
	":", invalidCharReplacement,
	"\"", invalidCharReplacement,
	"/", invalidCharReplacement,
	"\\", invalidCharReplacement,
	"|", invalidCharReplacement,
	"?", invalidCharReplacement,
	"*", invalidCharReplacement,
)

// FormatDuration formats a duration in a human-readable string (e.g., "1h 15m", "5m
// 30.5s", "45.2s").
func FormatDuration(seconds float64) string {
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)
		remainingSeconds := seconds - float64(minutes*secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, remainingSeconds)
	}

	hours := int(seconds / secondsInHour)
	remainingSeconds := seconds - float64(hours*secondsInHour)
	remainingMinutes := int(remainingSeconds / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, remainingMinutes)
}

// IsWAVFile reports whether filename carries a .wav extension in any case.
func IsWAVFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), extWAV)
}

// GetFileExtension returns the lower-cased file extension without the leading dot.
func GetFileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), dot))
}

// SanitizeFilename replaces characters that are invalid in most filesystems,
// drops control characters and caps the length. Browsers send whatever the
// user's file was called, so uploaded names pass through here before they are
// logged or shown.
func SanitizeFilename(filename string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}

		return r
	}, filenameReplacer.Replace(filename))

	runes := []rune(strings.TrimSpace(cleaned))
	if len(runes) > maxFilenameRunes {
		ext := []rune(filepath.Ext(string(runes)))
		if len(ext) >= maxFilenameRunes {
			ext = nil
		}

		runes = append(runes[:maxFilenameRunes-len(ext)], ext...)
	}

	return string(runes)
}
