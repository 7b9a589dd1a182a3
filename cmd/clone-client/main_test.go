package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/voice-cloner/internal/cloning"
	"github.com/book-expert/voice-cloner/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClipData = "RIFF-cloned-clip"

func writeSamples(t *testing.T, count int) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, count)

	for index := range paths {
		paths[index] = filepath.Join(dir, []string{"a.wav", "b.wav", "c.wav"}[index])
		require.NoError(t, os.WriteFile(paths[index], []byte("RIFF-sample"), 0o600))
	}

	return paths
}

func newFakeService(t *testing.T, cloneStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/clones", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File[web.FieldSamples], 2)
		assert.Equal(t, cloning.DefaultText, r.FormValue(web.FieldText))
		assert.Equal(t, "fast", r.FormValue(web.FieldPreset))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(cloneStatus)

		if cloneStatus != http.StatusCreated {
			_ = json.NewEncoder(w).Encode(web.ErrorResponse{
				Error: "Voice generation failed.",
				Kind:  "generation_failed",
			})

			return
		}

		_ = json.NewEncoder(w).Encode(web.CloneResponse{
			ID:              "abc",
			AudioURL:        "/clips/abc",
			DownloadURL:     "/clips/abc/download",
			DurationSeconds: 2.5,
			SampleRate:      24000,
			Size:            int64(len(testClipData)),
			Warnings:        []string{"sample 0 is short"},
		})
	})

	mux.HandleFunc("GET /clips/abc/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte(testClipData))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(web.HealthResponse{Status: "ok", Engine: "http"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestCloneCommand(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusCreated)
	samples := writeSamples(t, 2)
	output := filepath.Join(t.TempDir(), "out.wav")

	stdout, stderr, err := execute(t, "clone", "--server", server.URL,
		"--sample", samples[0], "--sample", samples[1], "--preset", "fast", "--output", output)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Wrote "+output)
	assert.Contains(t, stdout, "24000 Hz")
	assert.Contains(t, stderr, "warning: sample 0 is short")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, testClipData, string(data))
}

func TestCloneCommand_ServiceError(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusBadGateway)
	samples := writeSamples(t, 2)

	_, _, err := execute(t, "clone", "--server", server.URL,
		"--sample", samples[0], "--sample", samples[1], "--preset", "fast",
		"--output", filepath.Join(t.TempDir(), "out.wav"))
	require.ErrorIs(t, err, ErrCloneFailed)
	assert.Contains(t, err.Error(), "generation_failed")
}

func TestCloneCommand_RequiresSamples(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "clone", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), flagSample)
}

func TestHealthCommand(t *testing.T) {
	t.Parallel()

	server := newFakeService(t, http.StatusCreated)

	stdout, _, err := execute(t, "health", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "healthy (engine: http)")
}
