// Package jobcontrol talks to the poller service that runs project jobs.
package jobcontrol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/discovery/subscription-controller/internal/domain/subscription"
	"github.com/discovery/subscription-controller/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of an error response is kept for logs
const maxErrorBody = 4 << 10

// ErrHaltRejected is returned when job control answers a stop request
// with an unexpected status.
var ErrHaltRejected = errors.New("jobcontrol: halt rejected")

// Config holds job control connection settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements subscription.JobController over HTTP
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a job control client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.ParseRequestURI(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("jobcontrol: invalid base url: %w", err)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("jobcontrol"),
	}, nil
}

// IsReachable reports whether GET /health answers 2xx
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("health"), nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Health check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// HaltJob asks job control to stop the project's job. 200 means stopped
// now; 404 and 409 mean there was nothing running. Anything else, and any
// transport error or timeout, is a failure.
func (c *Client) HaltJob(ctx context.Context, snetID string) (subscription.HaltOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "jobcontrol", "halt",
		telemetry.AttrSnetID.String(snetID),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("jobs", snetID, "stop"), nil)
	if err != nil {
		return subscription.HaltFailed, fmt.Errorf("jobcontrol: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return subscription.HaltFailed, fmt.Errorf("jobcontrol: stop %s: %w", snetID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return subscription.HaltSucceeded, nil
	case http.StatusNotFound, http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return subscription.HaltAlreadyStopped, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err = fmt.Errorf("%w: HTTP %d: %s", ErrHaltRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	telemetry.RecordError(span, err)
	return subscription.HaltFailed, err
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL.JoinPath(escaped...).String()
}

var _ subscription.JobController = (*Client)(nil)
