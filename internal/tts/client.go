// Package tts provides the clients that drive an external voice cloning engine.
//
// The engine owns all model work: loading the staged samples, computing
// conditioning latents and generating the waveform. This package only speaks
// its HTTP or command-line contract.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API endpoints and paths.
const (
	apiCloneSpeech = "/v1/clone/speech"
	apiHealth      = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
	contentTypeXWAV   = "audio/x-wav"
)

// Error messages.
const (
	errFmtServiceErrorWithCode = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "TTS service returned non-OK status: %s, body: %s"
)

// Static errors.
var (
	ErrTextEmpty              = errors.New("text cannot be empty")
	ErrVoiceEmpty             = errors.New("voice cannot be empty")
	ErrVoicesDirEmpty         = errors.New("voices directory cannot be empty")
	ErrUnexpectedContentType  = errors.New("unexpected content type")
	ErrReceivedEmptyAudio     = errors.New("received empty audio data")
	ErrServiceOverloaded      = errors.New("TTS service is overloaded")
	ErrServiceRejectedRequest = errors.New("TTS service rejected the request")
	ErrServiceFailed          = errors.New("TTS service failed")
)

// HTTPClient represents a client for the standalone voice cloning service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// CloneRequest defines the JSON payload for a voice cloning generation.
type CloneRequest struct {
	// Text is the sentence to speak.
	Text string `json:"text"`

	// Voice names the directory under VoicesDir holding the samples.
	Voice string `json:"voice"`

	// VoicesDir is the server-side directory that holds one sub-directory per voice.
	VoicesDir string `json:"voices_dir"`

	// Preset selects the quality/speed tradeoff.
	Preset string `json:"preset"`
}

// ErrorResponse represents a structured error response from the TTS service.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates and configures an HTTP client for the TTS service.
// The baseURL should include the protocol and port (e.g., "http://localhost:8000").
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the service address the client talks to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// GenerateClone asks the service to speak req.Text in the voice staged under
// req.VoicesDir/req.Voice and returns the WAV it produced.
func (c *HTTPClient) GenerateClone(ctx context.Context, req CloneRequest) ([]byte, error) {
	validateErr := validateCloneRequest(req)
	if validateErr != nil {
		return nil, validateErr
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiCloneSpeech,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !isWAVContentType(contentType) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedContentType, contentTypeWAV, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the TTS service is running and operational.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

func validateCloneRequest(req CloneRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrTextEmpty
	}

	if req.Voice == "" {
		return ErrVoiceEmpty
	}

	if req.VoicesDir == "" {
		return ErrVoicesDirEmpty
	}

	return nil
}

func isWAVContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(mediaType)

	return mediaType == contentTypeWAV || mediaType == contentTypeXWAV
}

// parseErrorResponse decodes a structured JSON error from the service, falling
// back to the raw body. The returned error wraps a sentinel matching the status
// class so callers can tell overload from rejection from failure.
func parseErrorResponse(resp *http.Response) error {
	sentinel := statusSentinel(resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("%w: "+errFmtServiceNonOKStatus, sentinel, resp.Status, readErr.Error())
	}

	var errorResp ErrorResponse

	parseErr := json.Unmarshal(body, &errorResp)
	if parseErr == nil && errorResp.Detail != "" {
		return fmt.Errorf("%w: "+errFmtServiceErrorWithCode,
			sentinel, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf("%w: "+errFmtServiceNonOKStatus, sentinel, resp.Status, string(body))
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		return ErrServiceOverloaded
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return ErrServiceRejectedRequest
	default:
		return ErrServiceFailed
	}
}
