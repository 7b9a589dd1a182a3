package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-cloner/internal/core"
)

const engineNameCommand = "command"

// ErrBinaryPathEmpty is returned when no engine binary is configured.
var ErrBinaryPathEmpty = errors.New("engine binary path cannot be empty")

// CommandEngine implements core.Engine by running a voice cloning CLI once per
// request. The binary must accept:
//
//	--voice <id> --extra_voices_dir <dir> --preset <preset> --text <text> --output <file.wav>
type CommandEngine struct {
	binaryPath string
	log        *logger.Logger
}

// NewCommandEngine creates a CommandEngine for binaryPath.
func NewCommandEngine(binaryPath string, log *logger.Logger) (*CommandEngine, error) {
	if binaryPath == "" {
		return nil, ErrBinaryPathEmpty
	}

	return &CommandEngine{
		binaryPath: binaryPath,
		log:        log,
	}, nil
}

// Name identifies the backend in logs.
func (p *CommandEngine) Name() string {
	return engineNameCommand
}

// HealthCheck reports whether the binary can be found.
func (p *CommandEngine) HealthCheck(_ context.Context) error {
	_, err := exec.LookPath(p.binaryPath)
	if err != nil {
		return fmt.Errorf("engine binary %q not available: %w", p.binaryPath, err)
	}

	return nil
}

// Synthesize runs the engine binary and returns the WAV it wrote.
func (p *CommandEngine) Synthesize(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	validateErr := validateCloneRequest(CloneRequest{
		Text:      req.Text,
		Voice:     req.VoiceID,
		VoicesDir: req.VoicesDir,
	})
	if validateErr != nil {
		return nil, validateErr
	}

	outputDir, err := os.MkdirTemp("", "voice-cloner-output-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for engine output: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(outputDir)
		if removeErr != nil {
			p.log.Warn("Failed to remove temp dir '%s': %v", outputDir, removeErr)
		}
	}()

	outputPath := filepath.Join(outputDir, "generated.wav")

	args := []string{
		"--voice", req.VoiceID,
		"--extra_voices_dir", req.VoicesDir,
		"--preset", req.Preset.String(),
		"--text", req.Text,
		"--output", outputPath,
	}

	// #nosec G204 -- binary comes from configuration, arguments are passed without a shell
	cmd := exec.CommandContext(ctx, p.binaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("engine binary execution failed: %w - output: %s", err, string(output))
	}

	audioData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data from engine output: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}
