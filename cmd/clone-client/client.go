package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/voice-cloner/internal/web"
)

const (
	apiClones  = "/api/v1/clones"
	apiHealth  = "/healthz"
	outputPerm = 0o644
)

// Static errors.
var (
	ErrCloneFailed   = errors.New("clone request failed")
	ErrUnhealthy     = errors.New("voice cloner is not healthy")
	ErrDownloadClip  = errors.New("failed to download clip")
	ErrNoSamplePaths = errors.New("at least one --sample is required")
)

type cloneInput struct {
	SamplePaths []string
	Text        string
	Preset      string
	OutputPath  string
}

// serviceClient talks to the voice cloner HTTP API.
type serviceClient struct {
	httpClient *http.Client
	baseURL    string
}

func newServiceClient(baseURL string, timeout time.Duration) *serviceClient {
	return &serviceClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// clone uploads the samples, waits for generation and writes the clip to
// input.OutputPath.
func (c *serviceClient) clone(ctx context.Context, input cloneInput) (*web.CloneResponse, error) {
	if len(input.SamplePaths) == 0 {
		return nil, ErrNoSamplePaths
	}

	body, contentType, err := buildUpload(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiClones, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach voice cloner at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var created web.CloneResponse

	err = json.NewDecoder(resp.Body).Decode(&created)
	if err != nil {
		return nil, fmt.Errorf("failed to decode clone response: %w", err)
	}

	err = c.download(ctx, created.DownloadURL, input.OutputPath)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *serviceClient) download(ctx context.Context, path, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadClip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrDownloadClip, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadClip, err)
	}

	err = os.WriteFile(outputPath, data, outputPerm)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	return nil
}

func (c *serviceClient) health(ctx context.Context) (*web.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var health web.HealthResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&health)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnhealthy, resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnhealthy, health.Error)
	}

	return &health, nil
}

func buildUpload(input cloneInput) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{web.FieldText: input.Text, web.FieldPreset: input.Preset}
	for name, value := range fields {
		err := writer.WriteField(name, value)
		if err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	for _, path := range input.SamplePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read sample %s: %w", path, err)
		}

		part, err := writer.CreateFormFile(web.FieldSamples, filepath.Base(path))
		if err != nil {
			return nil, "", fmt.Errorf("failed to add sample %s: %w", path, err)
		}

		_, err = part.Write(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to add sample %s: %w", path, err)
		}
	}

	err := writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to finish upload: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

func decodeError(resp *http.Response) error {
	var errResp web.ErrorResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&errResp)
	if decodeErr != nil || errResp.Error == "" {
		return fmt.Errorf("%w: %s", ErrCloneFailed, resp.Status)
	}

	if errResp.Detail != "" {
		return fmt.Errorf("%w (%s): %s (%s)", ErrCloneFailed, errResp.Kind, errResp.Error, errResp.Detail)
	}

	return fmt.Errorf("%w (%s): %s", ErrCloneFailed, errResp.Kind, errResp.Error)
}
