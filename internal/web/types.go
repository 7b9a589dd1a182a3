package web

// CloneResponse is returned by POST /api/v1/clones on success.
type CloneResponse struct {
	ID              string   `json:"id"`
	AudioURL        string   `json:"audio_url"`
	DownloadURL     string   `json:"download_url"`
	DurationSeconds float64  `json:"duration_seconds"`
	SampleRate      int      `json:"sample_rate"`
	Size            int64    `json:"size"`
	Warnings        []string `json:"warnings,omitempty"`
}

// ErrorResponse is returned by the API on failure.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	Error  string `json:"error,omitempty"`
}

type presetOption struct {
	Value    string
	Selected bool
}

type clipView struct {
	ID          string
	AudioURL    string
	DownloadURL string
	Size        string
	Duration    string
	Warnings    []string
}

type pageData struct {
	Text       string
	Presets    []presetOption
	MinSamples int
	MaxSamples int
	Warning    string
	Error      string
	Detail     string
	Clip       *clipView
}
