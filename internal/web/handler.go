// Package web serves the voice cloning form, the JSON API and the generated clips.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-cloner/internal/cloning"
	"github.com/book-expert/voice-cloner/internal/core"
	"github.com/book-expert/voice-cloner/internal/tts/ttsutils"
	"github.com/dustin/go-humanize"
)

// Form fields.
const (
	FieldSamples = "samples"
	FieldText    = "text"
	FieldPreset  = "preset"
)

// DownloadFilename is the name browsers save a clip under.
const DownloadFilename = "cloned_voice.wav"

const (
	multipartMemory = 32 << 20
	contentTypeWAV  = "audio/wav"
	contentTypeJSON = "application/json"
	clipsPath       = "/clips/"
	statusOK        = "ok"
	statusDown      = "unavailable"

	msgUploadTooLarge = "The uploaded files are too large."
	msgBadForm        = "The upload could not be read."
	msgClipNotFound   = "clip not found"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Handler serves the web UI and the API.
type Handler struct {
	service        *cloning.Service
	log            *logger.Logger
	maxUploadBytes int64
}

// NewHandler creates a Handler. maxUploadBytes bounds each multipart request.
func NewHandler(service *cloning.Service, log *logger.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers all routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /clone", h.CloneForm)
	mux.HandleFunc("POST /api/v1/clones", h.CloneAPI)
	mux.HandleFunc("GET /clips/{id}", h.StreamClip)
	mux.HandleFunc("GET /clips/{id}/download", h.DownloadClip)
	mux.HandleFunc("GET /healthz", h.Health)
}

// Routes returns a mux with every route registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return mux
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, h.newPage(cloning.DefaultText, core.DefaultPreset))
}

// CloneForm handles POST /clone and renders the result into the page.
func (h *Handler) CloneForm(w http.ResponseWriter, r *http.Request) {
	req, status, parseErr := h.parseCloneRequest(w, r)
	if parseErr != nil {
		page := h.newPage(cloning.DefaultText, core.DefaultPreset)
		page.Error = parseErr.Error()
		h.render(w, status, page)

		return
	}

	page := h.newPage(req.Text, req.Preset)

	if len(req.Samples) < h.service.MinSamples() {
		page.Warning = cloning.TooFewSamplesMessage(h.service.MinSamples())
		h.render(w, http.StatusBadRequest, page)

		return
	}

	clip, err := h.service.Clone(r.Context(), req)
	if err != nil {
		status, message, detail := h.describeError(err)
		page.Error = message
		page.Detail = detail
		h.render(w, status, page)

		return
	}

	page.Clip = newClipView(clip)
	h.render(w, http.StatusOK, page)
}

// CloneAPI handles POST /api/v1/clones
func (h *Handler) CloneAPI(w http.ResponseWriter, r *http.Request) {
	req, status, parseErr := h.parseCloneRequest(w, r)
	if parseErr != nil {
		writeJSON(w, status, ErrorResponse{Error: parseErr.Error(), Kind: string(core.KindInvalidInput)})

		return
	}

	clip, err := h.service.Clone(r.Context(), req)
	if err != nil {
		status, message, detail := h.describeError(err)
		writeJSON(w, status, ErrorResponse{Error: message, Kind: string(core.KindOf(err)), Detail: detail})

		return
	}

	view := newClipView(clip)

	writeJSON(w, http.StatusCreated, CloneResponse{
		ID:              clip.ID,
		AudioURL:        view.AudioURL,
		DownloadURL:     view.DownloadURL,
		DurationSeconds: clip.Duration.Seconds(),
		SampleRate:      clip.SampleRate,
		Size:            clip.Size,
		Warnings:        clip.Warnings,
	})
}

// StreamClip handles GET /clips/{id}
func (h *Handler) StreamClip(w http.ResponseWriter, r *http.Request) {
	h.serveClip(w, r, false)
}

// DownloadClip handles GET /clips/{id}/download
func (h *Handler) DownloadClip(w http.ResponseWriter, r *http.Request) {
	h.serveClip(w, r, true)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	err := h.service.Health(r.Context())
	if err != nil {
		h.log.Warn("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: statusDown,
			Engine: h.service.EngineName(),
			Error:  err.Error(),
		})

		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: statusOK, Engine: h.service.EngineName()})
}

func (h *Handler) serveClip(w http.ResponseWriter, r *http.Request, attachment bool) {
	data, err := h.service.OpenClip(r.Context(), r.PathValue("id"))
	if err != nil {
		if core.KindOf(err) == core.KindInvalidInput {
			http.Error(w, msgClipNotFound, http.StatusNotFound)

			return
		}

		h.log.Error("Failed to open clip %s: %v", r.PathValue("id"), err)
		http.Error(w, core.KindOf(err).UserMessage(), statusForKind(core.KindOf(err)))

		return
	}

	w.Header().Set("Content-Type", contentTypeWAV)

	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadFilename))
	}

	http.ServeContent(w, r, DownloadFilename, time.Time{}, bytes.NewReader(data))
}

// parseCloneRequest reads the multipart upload. On failure it returns the
// status to answer with.
func (h *Handler) parseCloneRequest(w http.ResponseWriter, r *http.Request) (core.CloneRequest, int, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return core.CloneRequest{}, http.StatusRequestEntityTooLarge, errors.New(msgUploadTooLarge)
		}

		h.log.Warn("Failed to parse upload: %v", err)

		return core.CloneRequest{}, http.StatusBadRequest, errors.New(msgBadForm)
	}

	text := cloning.DefaultText
	if values, ok := r.MultipartForm.Value[FieldText]; ok && len(values) > 0 {
		text = values[0]
	}

	samples, err := readSamples(r.MultipartForm.File[FieldSamples])
	if err != nil {
		h.log.Warn("Failed to read uploaded sample: %v", err)

		return core.CloneRequest{}, http.StatusBadRequest, errors.New(msgBadForm)
	}

	h.log.Info("%s %s: %d samples, preset %q", r.Method, r.URL.Path, len(samples), r.FormValue(FieldPreset))

	return core.CloneRequest{
		Samples: samples,
		Text:    text,
		Preset:  core.Preset(r.FormValue(FieldPreset)),
	}, http.StatusOK, nil
}

func readSamples(headers []*multipart.FileHeader) ([]core.Sample, error) {
	samples := make([]core.Sample, 0, len(headers))

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", header.Filename, err)
		}

		data, readErr := io.ReadAll(file)
		closeErr := file.Close()

		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Filename, readErr)
		}

		if closeErr != nil {
			return nil, fmt.Errorf("failed to close %s: %w", header.Filename, closeErr)
		}

		samples = append(samples, core.Sample{Filename: ttsutils.SanitizeFilename(header.Filename), Data: data})
	}

	return samples, nil
}

// describeError maps a pipeline error to a status, a user message and, for
// invalid input, a detail the user can act on.
func (h *Handler) describeError(err error) (int, string, string) {
	kind := core.KindOf(err)

	if errors.Is(err, cloning.ErrTooFewSamples) {
		return http.StatusBadRequest, cloning.TooFewSamplesMessage(h.service.MinSamples()), ""
	}

	detail := ""
	if kind == core.KindInvalidInput {
		detail = err.Error()
	}

	return statusForKind(kind), kind.UserMessage(), detail
}

func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindResourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) newPage(text string, selected core.Preset) *pageData {
	if selected == "" {
		selected = core.DefaultPreset
	}

	options := make([]presetOption, 0, len(core.Presets()))
	for _, preset := range core.Presets() {
		options = append(options, presetOption{Value: preset.String(), Selected: preset == selected})
	}

	return &pageData{
		Text:       text,
		Presets:    options,
		MinSamples: h.service.MinSamples(),
		MaxSamples: h.service.MaxSamples(),
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, page *pageData) {
	var buf bytes.Buffer

	err := pageTemplate.Execute(&buf, page)
	if err != nil {
		h.log.Error("Failed to render page: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func newClipView(clip *core.Clip) *clipView {
	return &clipView{
		ID:          clip.ID,
		AudioURL:    clipsPath + clip.ID,
		DownloadURL: clipsPath + clip.ID + "/download",
		Size:        humanize.Bytes(uint64(clip.Size)),
		Duration:    ttsutils.FormatDuration(clip.Duration.Seconds()),
		Warnings:    clip.Warnings,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
