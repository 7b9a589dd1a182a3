// Package cloning runs one voice cloning request end to end: it validates the
// upload, stages the samples for the engine, generates the clip, normalises it
// to 24 kHz and stores it.
package cloning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-cloner/internal/core"
	"github.com/book-expert/voice-cloner/internal/tts"
	"github.com/book-expert/voice-cloner/internal/tts/audio"
	"github.com/book-expert/voice-cloner/internal/tts/text"
	"github.com/book-expert/voice-cloner/internal/tts/ttsutils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultText is offered to users who have not typed anything yet.
const DefaultText = "Let's strive to make the world a better place, one code block at a time."

const (
	clipExt = ".wav"

	opValidate   = "validate request"
	opStage      = "stage samples"
	opAcquire    = "acquire generation slot"
	opHealth     = "engine health check"
	opSynthesize = "synthesize"
	opNormalize  = "normalize output"
	opStore      = "store clip"
	opOpenClip   = "open clip"

	msgFmtTooFewSamples = "Please upload at least %d voice sample audio files."
)

// Validation and lifecycle errors.
var (
	ErrTooFewSamples     = errors.New("too few voice samples")
	ErrTooManySamples    = errors.New("too many voice samples")
	ErrNotWAVFile        = errors.New("voice samples must be .wav files")
	ErrEmptySample       = errors.New("voice sample is empty")
	ErrTextEmpty         = errors.New("text cannot be empty")
	ErrGenerationBusy    = errors.New("no generation slot became free before the deadline")
	ErrInvalidClipID     = errors.New("invalid clip id")
	ErrEngineOutputEmpty = errors.New("engine produced no audio")
)

// Options tunes validation and resource limits.
type Options struct {
	MinSamples    int
	MaxSamples    int
	SampleBounds  audio.DurationBounds
	MaxConcurrent int
	Timeout       time.Duration
}

// Service clones voices with an external engine.
type Service struct {
	engine       core.Engine
	stager       core.Stager
	store        core.ClipStore
	preprocessor *text.Preprocessor
	log          *logger.Logger
	opts         Options
	slots        chan struct{}
}

// New creates a Service. MaxConcurrent below one is treated as one.
func New(
	engine core.Engine,
	stager core.Stager,
	store core.ClipStore,
	log *logger.Logger,
	opts Options,
) *Service {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}

	return &Service{
		engine:       engine,
		stager:       stager,
		store:        store,
		preprocessor: text.NewPreprocessor(),
		log:          log,
		opts:         opts,
		slots:        make(chan struct{}, opts.MaxConcurrent),
	}
}

// MinSamples returns the smallest accepted upload.
func (s *Service) MinSamples() int {
	return s.opts.MinSamples
}

// MaxSamples returns the largest accepted upload.
func (s *Service) MaxSamples() int {
	return s.opts.MaxSamples
}

// TooFewSamplesMessage is the warning shown when fewer than minSamples files
// were uploaded.
func TooFewSamplesMessage(minSamples int) string {
	return fmt.Sprintf(msgFmtTooFewSamples, minSamples)
}

// ClipKey returns the store key for a clip id.
func ClipKey(clipID string) string {
	return clipID + clipExt
}

// Validate checks a request without touching the disk or the engine.
func (s *Service) Validate(req core.CloneRequest) error {
	if len(req.Samples) < s.opts.MinSamples {
		return fmt.Errorf("%w: got %d, need at least %d", ErrTooFewSamples, len(req.Samples), s.opts.MinSamples)
	}

	if s.opts.MaxSamples > 0 && len(req.Samples) > s.opts.MaxSamples {
		return fmt.Errorf("%w: got %d, at most %d allowed", ErrTooManySamples, len(req.Samples), s.opts.MaxSamples)
	}

	for index, sample := range req.Samples {
		if !ttsutils.IsWAVFile(sample.Filename) {
			return fmt.Errorf("%w: sample %d is %q", ErrNotWAVFile, index, sample.Filename)
		}

		if len(sample.Data) == 0 {
			return fmt.Errorf("%w: sample %d (%s)", ErrEmptySample, index, sample.Filename)
		}
	}

	if strings.TrimSpace(req.Text) == "" {
		return ErrTextEmpty
	}

	_, presetErr := core.ParsePreset(req.Preset.String())
	if presetErr != nil {
		return presetErr
	}

	return nil
}

// Clone generates a clip of req.Text spoken in the voice of req.Samples.
// Every failure is a *core.Error carrying its kind. The staged samples are
// removed before Clone returns.
func (s *Service) Clone(ctx context.Context, req core.CloneRequest) (*core.Clip, error) {
	validateErr := s.Validate(req)
	if validateErr != nil {
		s.log.Warn("Rejected clone request: %v", validateErr)

		return nil, core.NewError(core.KindInvalidInput, opValidate, validateErr)
	}

	preset, _ := core.ParsePreset(req.Preset.String())
	voiceID := uuid.NewString()

	names := make([]string, len(req.Samples))
	buffers := make([][]byte, len(req.Samples))

	for index, sample := range req.Samples {
		names[index] = sample.Filename
		buffers[index] = sample.Data
	}

	_, stageErr := s.stager.Stage(voiceID, buffers)
	defer s.removeStaged(voiceID)

	if stageErr != nil {
		s.log.Error("Failed to stage samples for voice %s: %v", voiceID, stageErr)

		return nil, core.NewError(core.KindResourceUnavailable, opStage, stageErr)
	}

	s.log.Info("Staged %d samples for voice %s (preset %s)", len(buffers), voiceID, preset)

	warnings := audio.SampleWarnings(names, buffers, s.opts.SampleBounds)
	for _, warning := range warnings {
		s.log.Warn("Voice %s: %s", voiceID, warning)
	}

	genCtx := ctx

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc

		genCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	release, acquireErr := s.acquire(genCtx)
	if acquireErr != nil {
		s.log.Warn("Voice %s: %v", voiceID, acquireErr)

		return nil, core.NewError(core.KindResourceUnavailable, opAcquire, acquireErr)
	}
	defer release()

	healthErr := s.engine.HealthCheck(genCtx)
	if healthErr != nil {
		s.log.Error("Engine %s is unavailable: %v", s.engine.Name(), healthErr)

		return nil, core.NewError(core.KindResourceUnavailable, opHealth, healthErr)
	}

	start := time.Now()

	raw, synthErr := s.engine.Synthesize(genCtx, core.SynthesisRequest{
		VoiceID:   voiceID,
		VoicesDir: s.stager.Root(),
		Text:      s.preprocessor.PreprocessText(req.Text),
		Preset:    preset,
	})
	if synthErr != nil {
		kind := synthesisKind(synthErr)
		s.log.Error("Generation for voice %s failed (%s): %v", voiceID, kind, synthErr)

		return nil, core.NewError(kind, opSynthesize, synthErr)
	}

	if len(raw) == 0 {
		return nil, core.NewError(core.KindGenerationFailed, opSynthesize, ErrEngineOutputEmpty)
	}

	normalized, info, normalizeErr := audio.Normalize(raw)
	if normalizeErr != nil {
		s.log.Error("Engine output for voice %s is not usable audio: %v", voiceID, normalizeErr)

		return nil, core.NewError(core.KindGenerationFailed, opNormalize, normalizeErr)
	}

	clipID := uuid.NewString()
	key := ClipKey(clipID)

	uploadErr := s.store.Upload(ctx, key, normalized)
	if uploadErr != nil {
		s.log.Error("Failed to store clip %s: %v", key, uploadErr)

		return nil, core.NewError(core.KindResourceUnavailable, opStore, uploadErr)
	}

	s.log.Info("Generated clip %s for voice %s: %s, %s of audio in %s",
		clipID, voiceID, humanize.Bytes(uint64(len(normalized))),
		info.Duration.Round(time.Millisecond), time.Since(start).Round(time.Millisecond))

	return &core.Clip{
		ID:         clipID,
		Key:        key,
		Size:       int64(len(normalized)),
		Duration:   info.Duration,
		SampleRate: info.SampleRate,
		Warnings:   warnings,
	}, nil
}

// OpenClip returns the stored WAV for clipID.
func (s *Service) OpenClip(ctx context.Context, clipID string) ([]byte, error) {
	_, parseErr := uuid.Parse(clipID)
	if parseErr != nil {
		return nil, core.NewError(core.KindInvalidInput, opOpenClip,
			fmt.Errorf("%w: %q", ErrInvalidClipID, clipID))
	}

	data, err := s.store.Download(ctx, ClipKey(clipID))
	if err != nil {
		if errors.Is(err, core.ErrClipNotFound) {
			return nil, core.NewError(core.KindInvalidInput, opOpenClip, err)
		}

		return nil, core.NewError(core.KindResourceUnavailable, opOpenClip, err)
	}

	return data, nil
}

// Health reports whether the engine can take requests.
func (s *Service) Health(ctx context.Context) error {
	return core.NewError(core.KindResourceUnavailable, opHealth, s.engine.HealthCheck(ctx))
}

// EngineName identifies the configured engine backend.
func (s *Service) EngineName() string {
	return s.engine.Name()
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrGenerationBusy, ctx.Err())
	}
}

func (s *Service) removeStaged(voiceID string) {
	removeErr := s.stager.Remove(voiceID)
	if removeErr != nil {
		s.log.Warn("Failed to remove staged samples for voice %s: %v", voiceID, removeErr)
	}
}

func synthesisKind(err error) core.Kind {
	if errors.Is(err, tts.ErrServiceOverloaded) {
		return core.KindResourceUnavailable
	}

	return core.KindGenerationFailed
}
