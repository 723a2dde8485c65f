// Package trigger fires the scrape endpoint of a running engine. The cron
// command uses it to drive scheduled runs from outside the server process.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"internhub-engine/internal/logging"
)

// ErrSkipped is returned when the engine reports a run already in progress.
var ErrSkipped = errors.New("run already in progress")

// Response is the part of the trigger reply the cron loop reports on.
type Response struct {
	Success     bool   `json:"success"`
	Internships int    `json:"internships"`
	Duration    string `json:"duration"`
	Error       string `json:"error"`
	Details     string `json:"details"`
}

type Client struct {
	url    string
	secret string
	hc     *http.Client
	log    *zap.Logger
}

// New builds a client for url. A full run can take minutes, so hc should not
// carry a short timeout.
func New(url, secret string, hc *http.Client, logger *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Minute}
	}
	return &Client{
		url:    url,
		secret: secret,
		hc:     hc,
		log:    logging.OrNop(logger).Named("trigger"),
	}
}

// Fire POSTs the trigger once and waits for the run to finish.
func (c *Client) Fire(ctx context.Context) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("trigger %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	var out Response
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("trigger %s: status %d, reading body: %w", c.url, resp.StatusCode, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return Response{}, fmt.Errorf("trigger %s: status %d, undecodable body: %w", c.url, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		c.log.Info("run already in progress, skipping")
		return out, ErrSkipped
	case resp.StatusCode >= 300:
		return out, fmt.Errorf("trigger %s: status %d: %s %s", c.url, resp.StatusCode, out.Error, out.Details)
	}

	c.log.Info("scrape run finished",
		zap.Int("internships", out.Internships),
		zap.String("duration", out.Duration),
	)
	return out, nil
}
