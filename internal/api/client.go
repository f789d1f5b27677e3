package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"phylo/internal/tree"
)

const (
	defaultHTTPTimeout = 10 * time.Minute
	httpTimeoutEnvKey  = "PHYLO_HTTP_TIMEOUT"
	requestIDHeader    = "X-Request-ID"

	// maxResponseBytes caps JSON bodies and tree documents read into memory.
	maxResponseBytes = 64 << 20
)

// Client is a simple HTTP client for the phylogenetics pipeline service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends a FASTA file as multipart form field "file".
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = form.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", pr)
	if err != nil {
		_ = pr.Close()
		return "", NetworkError(StepUpload, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp UploadResponse
	status, err := c.send(req, StepUpload, &resp)
	if err != nil {
		return "", err
	}
	if resp.Filepath != "" {
		return resp.Filepath, nil
	}
	return "", stepFailure(StepUpload, status, resp.ErrorResponse)
}

// Align asks the service to align a previously uploaded file.
func (c *Client) Align(ctx context.Context, filepath string) (string, error) {
	var resp AlignResponse
	status, err := c.postJSON(ctx, StepAlign, "/align", AlignRequest{Filepath: filepath}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AlignedFilepath != "" {
		return resp.AlignedFilepath, nil
	}
	return "", stepFailure(StepAlign, status, resp.ErrorResponse)
}

// BuildTree asks the service to infer a tree from an aligned file and returns
// the path of the tree JSON document.
func (c *Client) BuildTree(ctx context.Context, alignedFilepath string) (BuildTreeResponse, error) {
	var resp BuildTreeResponse
	status, err := c.postJSON(ctx, StepTreeBuild, "/build_tree", BuildTreeRequest{AlignedFilepath: alignedFilepath}, &resp)
	if err != nil {
		return resp, err
	}
	if resp.JSONTreeFilepath != "" {
		return resp, nil
	}
	return resp, stepFailure(StepTreeBuild, status, resp.ErrorResponse)
}

// FetchTreeData retrieves and parses the tree JSON published at jsonPath.
func (c *Client) FetchTreeData(ctx context.Context, jsonPath string) (*tree.Node, error) {
	req, err := c.newRequest(ctx, http.MethodGet, jsonPath, nil)
	if err != nil {
		return nil, NetworkError(StepFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.roundTrip(req, StepFetch)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &StepError{Step: StepFetch, Status: status, Message: fmt.Sprintf("GET %s: %s", jsonPath, http.StatusText(status))}
	}
	root, err := tree.ParseJSON(body)
	if err != nil {
		return nil, FetchError(err)
	}
	return root, nil
}

// SaveTree uploads a serialized SVG for the given request id.
func (c *Client) SaveTree(ctx context.Context, req SaveTreeRequest) (string, error) {
	var resp SaveTreeResponse
	status, err := c.postJSON(ctx, StepSave, "/save_tree", req, &resp)
	if err != nil {
		return "", err
	}
	if resp.Filepath != "" {
		return resp.Filepath, nil
	}
	return "", stepFailure(StepSave, status, resp.ErrorResponse)
}

// Download streams a published artifact into w.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, NetworkError(StepDownload, err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, NetworkError(StepDownload, err)
	}
	defer resp.Body.Close()
	c.trace(req, resp.StatusCode, start)

	if resp.StatusCode >= 400 {
		return 0, NetworkError(StepDownload, fmt.Errorf("GET %s: %s", path, resp.Status))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, NetworkError(StepDownload, err)
	}
	return n, nil
}

func (c *Client) postJSON(ctx context.Context, step Step, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, &StepError{Step: step, Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return 0, NetworkError(step, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, step, out)
}

// send performs req and decodes the JSON body into out whatever the status:
// the service reports failures as {"error": ...} with a 4xx/5xx code.
func (c *Client) send(req *http.Request, step Step, out any) (int, error) {
	body, status, err := c.roundTrip(req, step)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		if status >= 400 {
			return status, &StepError{Step: step, Status: status, Message: fmt.Sprintf("api error: %d %s", status, http.StatusText(status))}
		}
		return status, NetworkError(step, fmt.Errorf("decode response: %w", err))
	}
	return status, nil
}

func (c *Client) roundTrip(req *http.Request, step Step) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, NetworkError(step, err)
	}
	defer resp.Body.Close()
	c.trace(req, resp.StatusCode, start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, NetworkError(step, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

// resolve maps a service path to an absolute URL. Absolute URLs pass through;
// relative artifact paths such as "results/x/tree.json" are rooted at baseURL.
func (c *Client) resolve(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) trace(req *http.Request, status int, start time.Time) {
	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", req.Header.Get(requestIDHeader),
	)
}

func stepFailure(step Step, status int, errResp ErrorResponse) error {
	msg := errResp.Error
	if msg == "" {
		if status >= 400 {
			msg = fmt.Sprintf("api error: %d %s", status, http.StatusText(status))
		} else {
			msg = "response carried neither a result nor an error"
		}
	}
	return &StepError{Step: step, Message: msg, Details: errResp.Details, Status: status}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
