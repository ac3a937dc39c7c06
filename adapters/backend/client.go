package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

const (
	// maxAttempts bounds retries for every backend operation.
	maxAttempts = 5

	requestTimeout = 30 * time.Second
)

// Endpoint reports the current backend base URL (scheme://host:port/api/v1)
// and bearer token. Both can change at runtime when the agent is paired.
type Endpoint func() (baseURL string, token string)

// Client talks to the recording service HTTP API. Transport errors and
// non-success statuses are retried with exponential backoff: after each
// failed attempt the client waits 2^attempt seconds (2s, 4s, 8s, 16s, 32s)
// before giving up for good after the fifth attempt.
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
	clock      clock.Clock
	logger     *zap.Logger
}

var _ repositories.RecordingBackend = (*Client)(nil)

// NewClient creates a backend client. The backend typically runs on
// localhost with a self-signed certificate, so certificate verification is
// disabled like the desktop clients do.
func NewClient(endpoint Endpoint, clk clock.Clock, logger *zap.Logger) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: transport, Timeout: requestTimeout},
		clock:      clk,
		logger:     logger,
	}
}

// CreateRecording registers a new recording under the given name and
// returns the identifier issued by the backend.
func (c *Client) CreateRecording(ctx context.Context, name string) (int64, error) {
	baseURL, token := c.endpoint()
	url := fmt.Sprintf("%s/recordings/init?name=%s", baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("create recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("create recording: unexpected status %s", resp.Status)
	}

	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("create recording: decode response: %w", err)
	}
	if body.ID == 0 {
		return 0, fmt.Errorf("create recording: backend returned no id")
	}
	return body.ID, nil
}

// UploadSegment reads the segment file into memory and posts it as
// multipart form data. On confirmed success the local file is deleted; on
// permanent failure it is preserved so the user can retry by hand.
func (c *Client) UploadSegment(ctx context.Context, segment entities.Segment) error {
	data, err := os.ReadFile(segment.Path)
	if err != nil {
		return fmt.Errorf("read segment file: %w", err)
	}

	err = c.withRetry(ctx, "segment upload", func() error {
		return c.postSegment(ctx, segment, data)
	})
	if err != nil {
		return err
	}

	c.logger.Info("Segment uploaded",
		zap.Int64("recording_id", segment.RecordingID),
		zap.Int64("sequence", segment.Sequence))
	if err := os.Remove(segment.Path); err != nil {
		c.logger.Error("Failed to delete uploaded segment file",
			zap.String("path", segment.Path), zap.Error(err))
	}
	return nil
}

func (c *Client) postSegment(ctx context.Context, segment entities.Segment, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "segment.wav")
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	baseURL, token := c.endpoint()
	url := fmt.Sprintf("%s/recordings/%d/segment?sequence=%d", baseURL, segment.RecordingID, segment.Sequence)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Finalize marks the remote recording complete.
func (c *Client) Finalize(ctx context.Context, recordingID int64) error {
	return c.withRetry(ctx, "finalize", func() error {
		return c.request(ctx, http.MethodPost, fmt.Sprintf("/recordings/%d/finalize", recordingID))
	})
}

// Delete discards a recording that fell below the minimum meeting length.
func (c *Client) Delete(ctx context.Context, recordingID int64) error {
	return c.withRetry(ctx, "delete", func() error {
		return c.request(ctx, http.MethodDelete, fmt.Sprintf("/recordings/%d", recordingID))
	})
}

func (c *Client) request(ctx context.Context, method string, path string) error {
	baseURL, token := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Ping checks backend reachability for the health loop.
func (c *Client) Ping(ctx context.Context) error {
	baseURL, _ := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/system/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// withRetry runs fn up to maxAttempts times. Backoff waits happen on the
// injected clock so they never block a real-time thread and tests can run
// the schedule instantly.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		wait := time.Duration(1<<uint(attempt)) * time.Second
		c.logger.Warn("Backend request failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(wait):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxAttempts, lastErr)
}
