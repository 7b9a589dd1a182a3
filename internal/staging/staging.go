// Package staging persists uploaded voice samples where the cloning engine can
// discover them. Each voice lives in its own directory named after the voice
// identifier, and samples are named by their zero-based upload index.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750
	sampleExt       = ".wav"
)

// Static errors.
var (
	ErrRootEmpty      = errors.New("staging root cannot be empty")
	ErrVoiceIDEmpty   = errors.New("voice id cannot be empty")
	ErrVoiceIDInvalid = errors.New("voice id contains path elements")
	ErrNoSamples      = errors.New("no samples to stage")
)

// Stager writes voice samples into <root>/<voiceID>/<index>.wav.
type Stager struct {
	root string
}

// New creates a Stager rooted at root, creating the directory if needed.
func New(root string) (*Stager, error) {
	if root == "" {
		return nil, ErrRootEmpty
	}

	absRoot, absErr := filepath.Abs(root)
	if absErr != nil {
		return nil, fmt.Errorf("could not resolve absolute path for %q: %w", root, absErr)
	}

	mkdirErr := os.MkdirAll(absRoot, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create staging root %s: %w", absRoot, mkdirErr)
	}

	return &Stager{root: absRoot}, nil
}

// Root returns the absolute directory holding all voices.
func (s *Stager) Root() string {
	return s.root
}

// Dir returns the directory for voiceID.
func (s *Stager) Dir(voiceID string) (string, error) {
	validateErr := validateVoiceID(voiceID)
	if validateErr != nil {
		return "", validateErr
	}

	return filepath.Join(s.root, voiceID), nil
}

// SampleName returns the file name used for the sample at index.
func SampleName(index int) string {
	return strconv.Itoa(index) + sampleExt
}

// Stage writes samples byte-for-byte as 0.wav … (N-1).wav under the voice
// directory and returns the written paths in order. Anything previously staged
// for the same voice is removed first.
func (s *Stager) Stage(voiceID string, samples [][]byte) ([]string, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	dir, dirErr := s.Dir(voiceID)
	if dirErr != nil {
		return nil, dirErr
	}

	removeErr := os.RemoveAll(dir)
	if removeErr != nil {
		return nil, fmt.Errorf("failed to clear voice directory %s: %w", dir, removeErr)
	}

	mkdirErr := os.MkdirAll(dir, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create voice directory %s: %w", dir, mkdirErr)
	}

	paths := make([]string, 0, len(samples))

	for index, data := range samples {
		path := filepath.Join(dir, SampleName(index))

		writeErr := os.WriteFile(path, data, filePermissions)
		if writeErr != nil {
			return nil, fmt.Errorf("failed to write sample %d to %s: %w", index, path, writeErr)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// Remove deletes the voice directory and everything in it. Removing a voice
// that was never staged is not an error.
func (s *Stager) Remove(voiceID string) error {
	dir, dirErr := s.Dir(voiceID)
	if dirErr != nil {
		return dirErr
	}

	removeErr := os.RemoveAll(dir)
	if removeErr != nil {
		return fmt.Errorf("failed to remove voice directory %s: %w", dir, removeErr)
	}

	return nil
}

func validateVoiceID(voiceID string) error {
	if voiceID == "" {
		return ErrVoiceIDEmpty
	}

	if voiceID == "." || voiceID == ".." ||
		strings.ContainsAny(voiceID, `/\`) || voiceID != filepath.Base(voiceID) {
		return fmt.Errorf("%w: %q", ErrVoiceIDInvalid, voiceID)
	}

	return nil
}
