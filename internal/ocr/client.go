package ocr

// Sarvam Document Intelligence job API:
// 1. Create job      -> POST {base}
// 2. Get upload URL  -> POST {base}/upload-files
// 3. Upload payload  -> PUT  <presigned_url>   (no api key, BlockBlob)
// 4. Start job       -> POST {base}/{job_id}/start
// 5. Poll status     -> GET  {base}/{job_id}/status
// 6. Download        -> POST {base}/{job_id}/download-files, then GET <presigned_url>

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"notescan/internal/config"
	"notescan/internal/extractor"
	"notescan/internal/lang"
)

// OutputFormat is requested for every job; the result bundle then holds
// markdown and/or JSON block files.
const OutputFormat = "md"

// KeyFunc returns the subscription key, or an error when it is not configured.
type KeyFunc func() (string, error)

// Options configures a Client. Zero values take the documented defaults.
type Options struct {
	BaseURL         string        // default config.DefaultOCRBaseURL
	APIKey          KeyFunc       // required
	HTTPTimeout     time.Duration // job API calls, default 30s
	TransferTimeout time.Duration // presigned PUT/GET, default 120s
	PollInterval    time.Duration // default 2s
	MaxWait         time.Duration // default 90s
	HTTPClient      *http.Client  // overrides HTTPTimeout
	TransferClient  *http.Client  // overrides TransferTimeout
	Clock           Clock         // default SystemClock
}

// Client drives OCR jobs against the remote API. It holds no per-job state
// and is safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       KeyFunc
	api          *http.Client
	transfer     *http.Client
	pollInterval time.Duration
	maxWait      time.Duration
	clock        Clock
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		api:          opts.HTTPClient,
		transfer:     opts.TransferClient,
		pollInterval: opts.PollInterval,
		maxWait:      opts.MaxWait,
		clock:        opts.Clock,
	}
	if c.baseURL == "" {
		c.baseURL = config.DefaultOCRBaseURL
	}
	if c.apiKey == nil {
		c.apiKey = func() (string, error) { return "", config.ErrMissingAPIKey }
	}
	if c.api == nil {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.api = &http.Client{Timeout: timeout}
	}
	if c.transfer == nil {
		timeout := opts.TransferTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		c.transfer = &http.Client{Timeout: timeout}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	if c.maxWait <= 0 {
		c.maxWait = 90 * time.Second
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	return c
}

// NewClientFromConfig wires a Client to the environment configuration.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(Options{
		BaseURL:         cfg.OCRBaseURL,
		APIKey:          cfg.APIKey,
		HTTPTimeout:     cfg.HTTPTimeout,
		TransferTimeout: cfg.TransferTimeout,
		PollInterval:    cfg.PollInterval,
		MaxWait:         cfg.MaxWait,
	})
}

// --- job API helpers ---

func (c *Client) apiRequest(ctx context.Context, step, method, endpoint string, body interface{}) ([]byte, error) {
	key, err := c.apiKey()
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", step, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	req.Header.Set("api-subscription-key", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", step, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Step: step, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func (c *Client) jobURL(jobID, action string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(jobID), action)
}

// CreateJob opens a new job for language with the fixed markdown output format.
func (c *Client) CreateJob(ctx context.Context, language lang.Code) (string, error) {
	body, err := c.apiRequest(ctx, "createJob", http.MethodPost, c.baseURL, map[string]interface{}{
		"job_parameters": map[string]string{
			"language":      string(language),
			"output_format": OutputFormat,
		},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		JobID    string `json:"job_id"`
		JobState string `json:"job_state"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse create job response: %w", err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("create job response has no job_id (body: %s)", string(body))
	}
	return result.JobID, nil
}

// UploadURL asks for a presigned upload location for fileName under jobID.
func (c *Client) UploadURL(ctx context.Context, jobID, fileName string) (string, error) {
	body, err := c.apiRequest(ctx, "getUploadUrl", http.MethodPost, c.baseURL+"/upload-files", map[string]interface{}{
		"job_id": jobID,
		"files":  []string{fileName},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		UploadURLs map[string]json.RawMessage `json:"upload_urls"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse upload response: %w (body: %s)", err, string(body))
	}
	u := fileURL(result.UploadURLs[fileName])
	if u == "" {
		log.Printf("Sarvam upload_urls raw response: %s", string(body))
		return "", fmt.Errorf("%w for %s", ErrNoUploadURL, fileName)
	}
	return u, nil
}

// UploadFile PUTs data to a presigned URL. The URL carries its own
// authorization: the api key must not be sent, and blob storage requires the
// BlockBlob marker.
func (c *Client) UploadFile(ctx context.Context, presignedURL string, data []byte, mimeType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("uploadFile: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := c.transfer.Do(req)
	if err != nil {
		return fmt.Errorf("uploadFile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &TransferError{Step: "uploadFile", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// StartJob moves an uploaded job into processing.
func (c *Client) StartJob(ctx context.Context, jobID string) error {
	_, err := c.apiRequest(ctx, "startJob", http.MethodPost, c.jobURL(jobID, "start"), nil)
	return err
}

// Status fetches one status snapshot.
func (c *Client) Status(ctx context.Context, jobID string) (Snapshot, error) {
	body, err := c.apiRequest(ctx, "pollStatus", http.MethodGet, c.jobURL(jobID, "status"), nil)
	if err != nil {
		return Snapshot{}, err
	}
	return parseSnapshot(jobID, body)
}

// PollStatus waits for the job to finish using the client's interval and
// deadline. See Poll for the exact semantics.
func (c *Client) PollStatus(ctx context.Context, jobID string) (Snapshot, error) {
	return c.pollStatus(ctx, jobID, nil)
}

func (c *Client) pollStatus(ctx context.Context, jobID string, onSnapshot func(Snapshot)) (Snapshot, error) {
	return Poll(ctx, c.clock, c.pollInterval, c.maxWait, func(ctx context.Context) (Snapshot, error) {
		snap, err := c.Status(ctx, jobID)
		if err != nil {
			return snap, err
		}
		if !snap.State.Terminal() && snap.State != StateAccepted && snap.State != StatePending && snap.State != StateRunning {
			log.Printf("Sarvam: job %s reported unexpected state %q, still waiting", jobID, snap.State)
		}
		if onSnapshot != nil {
			onSnapshot(snap)
		}
		return snap, nil
	})
}

// DownloadURL asks for the presigned URL of the result bundle.
func (c *Client) DownloadURL(ctx context.Context, jobID string) (string, error) {
	body, err := c.apiRequest(ctx, "downloadFiles", http.MethodPost, c.jobURL(jobID, "download-files"), nil)
	if err != nil {
		return "", err
	}

	var result struct {
		DownloadURLs map[string]json.RawMessage `json:"download_urls"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse download response: %w (body: %s)", err, string(body))
	}

	// One bundle per job is expected; sort so the pick is deterministic if not.
	names := make([]string, 0, len(result.DownloadURLs))
	for name := range result.DownloadURLs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if u := fileURL(result.DownloadURLs[name]); u != "" {
			return u, nil
		}
	}
	log.Printf("Sarvam download_urls raw response: %s", string(body))
	return "", ErrNoDownloadURL
}

// DownloadBundle fetches the result bundle without credentials.
func (c *Client) DownloadBundle(ctx context.Context, bundleURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("downloadBundle: %w", err)
	}
	resp, err := c.transfer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloadBundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransferError{Step: "ZIP download", StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloadBundle: read: %w", err)
	}
	return data, nil
}

// DownloadAndExtractText downloads the result bundle of a finished job and
// assembles its text. Returns extractor.ErrNoTextDetected if the bundle holds
// no text.
func (c *Client) DownloadAndExtractText(ctx context.Context, jobID string) (string, error) {
	bundleURL, err := c.DownloadURL(ctx, jobID)
	if err != nil {
		return "", err
	}
	bundle, err := c.DownloadBundle(ctx, bundleURL)
	if err != nil {
		return "", err
	}
	return extractor.ExtractBundle(bundle)
}

// fileURL reads a presigned URL out of an upload_urls/download_urls value,
// which is either {"file_url": "...", "file_metadata": ...} or a bare string.
func fileURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var entry struct {
		FileURL string `json:"file_url"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return ""
	}
	if entry.FileURL != "" {
		return entry.FileURL
	}
	return entry.URL
}
