package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-cloner/internal/core"
	"github.com/dustin/go-humanize"
)

// HealthCheckTimeout defines the timeout for health check operations.
const HealthCheckTimeout = 10 * time.Second

const (
	engineNameHTTP       = "http"
	logFmtRequestingClip = "Requesting clone for voice %s (preset %s) from %s"
	logFmtGeneratedAudio = "Engine returned %s of audio for voice %s in %s"
)

// HTTPEngine implements core.Engine against a standalone HTTP voice cloning service.
type HTTPEngine struct {
	client *HTTPClient
	logger *logger.Logger
}

// NewHTTPEngine creates an HTTP-based engine talking to serviceURL.
func NewHTTPEngine(serviceURL string, timeout time.Duration, log *logger.Logger) *HTTPEngine {
	return NewHTTPEngineWithClient(NewHTTPClient(serviceURL, timeout), log)
}

// NewHTTPEngineWithClient creates an HTTP-based engine with a custom client.
func NewHTTPEngineWithClient(client *HTTPClient, log *logger.Logger) *HTTPEngine {
	return &HTTPEngine{
		client: client,
		logger: log,
	}
}

// Name identifies the backend in logs.
func (e *HTTPEngine) Name() string {
	return engineNameHTTP
}

// Synthesize implements core.Engine.
func (e *HTTPEngine) Synthesize(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	e.logger.Info(logFmtRequestingClip, req.VoiceID, req.Preset, e.client.BaseURL())

	start := time.Now()

	audioData, err := e.client.GenerateClone(ctx, CloneRequest{
		Text:      req.Text,
		Voice:     req.VoiceID,
		VoicesDir: req.VoicesDir,
		Preset:    req.Preset.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}

	e.logger.Info(logFmtGeneratedAudio,
		humanize.Bytes(uint64(len(audioData))), req.VoiceID, time.Since(start).Round(time.Millisecond))

	return audioData, nil
}

// HealthCheck implements core.Engine.
func (e *HTTPEngine) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	healthErr := e.client.HealthCheck(ctx)
	if healthErr != nil {
		return fmt.Errorf("TTS service health check failed: %w", healthErr)
	}

	return nil
}
