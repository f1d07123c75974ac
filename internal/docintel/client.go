package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

// HTTPError carries the backend's status code so callers can distinguish
// transient failures (retry) from permanent ones (fail the job).
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("document intelligence backend failed: %d %s", e.StatusCode, e.Body)
}

// HTTPStatusCode feeds the shared retry classification in pkg/httpx.
func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// Client posts an uploaded file to the external document intelligence backend
// and returns its raw JSON analysis verbatim, so it can be cached and archived
// before any normalization touches it.
type Client interface {
	Analyze(ctx context.Context, filename string, file io.Reader) (json.RawMessage, error)
	Model() string
	BackendVersion() string
}

type client struct {
	log            *logger.Logger
	httpClient     *http.Client
	baseURL        string
	model          string
	backendVersion string
}

func NewClient(log *logger.Logger) (Client, error) {
	clientLog := log.With("client", "DocIntelClient")

	baseURL := strings.TrimSpace(utils.GetEnv("DI_BACKEND_URL", "", log))
	if baseURL == "" {
		return nil, fmt.Errorf("missing env var DI_BACKEND_URL")
	}
	model := utils.GetEnv("DI_MODEL", "prebuilt-layout", log)
	backendVersion := utils.GetEnv("DI_BACKEND_VERSION", "v1", log)
	timeoutSec := utils.GetEnvAsInt("DI_TIMEOUT_SECONDS", 300, log)

	return &client{
		log:            clientLog,
		httpClient:     &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		baseURL:        baseURL,
		model:          model,
		backendVersion: backendVersion,
	}, nil
}

func (c *client) Model() string          { return c.model }
func (c *client) BackendVersion() string { return c.backendVersion }

func (c *client) Analyze(ctx context.Context, filename string, file io.Reader) (json.RawMessage, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." {
		name = "file.pdf"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, fmt.Errorf("copy file into form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document intelligence request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document intelligence response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	c.log.Info("document intelligence analysis done",
		"filename", name,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds())

	if !json.Valid(raw) {
		return nil, fmt.Errorf("document intelligence returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
