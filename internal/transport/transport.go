// Package transport moves file bytes to a receiver and probes receiver
// health. It never decides what to upload; callers hand it a fully
// validated target and signed headers.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/portside/shipper/internal/sigkey"
)

// Result is the receiver's response to an upload.
type Result struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	PathKey    string `json:"pathKey"`
	Filename   string `json:"filename"`
	Extracted  bool   `json:"extracted"`
	ExtractDir string `json:"extractDir"`
	Error      string `json:"error"`
}

type Client struct {
	rc *resty.Client
}

// NewClient builds a transport client. Probes use a short timeout; uploads
// get a generous one since archives can be large.
func NewClient() *Client {
	rc := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "shipper-agent")
	return &Client{rc: rc}
}

// progressReader reports bytes as they leave for the wire.
type progressReader struct {
	reader     io.Reader
	total      int64
	sent       int64
	onProgress func(sent, total int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.sent += int64(n)
	if pr.onProgress != nil && n > 0 {
		pr.onProgress(pr.sent, pr.total)
	}
	return n, err
}

// Upload POSTs the contents of filePath to serverURL under
// /upload/{pathKey}/{filename} with the signed headers attached. filename
// is explicit because the local path may be a temporary archive while the
// signature covers the URL path the receiver sees. The body streams through
// a progress reader so callers see genuine send progress. A non-nil error
// means the transfer itself failed; a Result with Success=false means the
// receiver rejected it.
//
// The raw octet-stream POST goes through resty's underlying http.Client:
// resty buffers io.Reader bodies, which would report 100% before the first
// byte hits the network.
func (c *Client) Upload(ctx context.Context, serverURL, pathKey, filename, filePath string, extract bool,
	hdr *sigkey.Headers, onProgress func(sent, total int64)) (*Result, error) {

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open source: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat source: %w", err)
	}

	urlPath := fmt.Sprintf("/upload/%s/%s", pathKey, filename)

	fullURL := strings.TrimRight(serverURL, "/") + urlPath
	if extract {
		fullURL += "?extract=true"
	}

	pr := &progressReader{reader: f, total: fi.Size(), onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = fi.Size()
	if hdr != nil {
		req.Header.Set("X-Timestamp", hdr.Timestamp)
		req.Header.Set("X-Nonce", hdr.Nonce)
		req.Header.Set("X-Signature", hdr.Signature)
	}

	httpClient := *c.rc.GetClient()
	httpClient.Timeout = 30 * time.Minute

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}

	result.Success = resp.StatusCode == http.StatusOK && result.Status == "ok"
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("upload rejected: %s", result.Status)
	}
	return &result, nil
}

// TestConnection probes serverURL's health endpoint. It mutates nothing.
func (c *Client) TestConnection(ctx context.Context, serverURL string) error {
	var health struct {
		Status string `json:"status"`
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&health).
		Get(strings.TrimRight(serverURL, "/") + "/health")
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if health.Status != "ok" {
		return fmt.Errorf("receiver unhealthy: %q", health.Status)
	}
	return nil
}

// ServerInfo fetches the receiver's root info document.
func (c *Client) ServerInfo(ctx context.Context, serverURL string) (map[string]interface{}, error) {
	var info map[string]interface{}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&info).
		Get(strings.TrimRight(serverURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return info, nil
}
