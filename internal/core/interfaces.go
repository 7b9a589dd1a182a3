// Package core defines the core types and interfaces for the voice cloning service.
package core

import (
	"context"
	"time"
)

// ClipStore defines the interface for interacting with a key-value blob store
// holding voice samples and generated clips.
type ClipStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Stager places uploaded samples where the engine expects them.
type Stager interface {
	Stage(voiceID string, samples [][]byte) ([]string, error)
	Remove(voiceID string) error
	Root() string
}

// SynthesisRequest is a single generation job handed to an external engine.
// The engine discovers the staged samples by convention: every WAV file under
// VoicesDir/VoiceID belongs to the voice.
type SynthesisRequest struct {
	VoiceID   string
	VoicesDir string
	Text      string
	Preset    Preset
}

// Engine defines the interface for an external voice cloning engine.
type Engine interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
	HealthCheck(ctx context.Context) error
	Name() string
}

// Sample is one uploaded voice recording.
type Sample struct {
	Filename string
	Data     []byte
}

// CloneRequest carries everything needed to clone a voice for one utterance.
type CloneRequest struct {
	Samples []Sample
	Text    string
	Preset  Preset
}

// Clip describes a generated audio clip persisted in the clip store.
type Clip struct {
	ID         string
	Key        string
	Size       int64
	Duration   time.Duration
	SampleRate int
	Warnings   []string
}
