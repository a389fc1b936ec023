package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"guardline-hq/bastion/pkg/detector"
)

// remoteRequest is the JSON body posted to a remote detector endpoint.
type remoteRequest struct {
	Input     string          `json:"input"`
	Threshold float64         `json:"threshold"`
	Config    detector.Config `json:"config,omitempty"`
}

// remoteResponse is the JSON body a remote detector endpoint returns.
// Score is a pointer so a missing field is distinguishable from zero.
type remoteResponse struct {
	Score       *float64               `json:"score"`
	CheckResult bool                   `json:"check_result"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Remote invokes an HTTP detector service: model-backed scorers (language
// identification, perplexity, content safety) run out of process and expose
// this one endpoint contract.
type Remote struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewRemote creates a remote detector client for the given endpoint.
// timeout bounds each call; zero means 10s.
func NewRemote(endpoint string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   slog.Default().With("component", "detector.remote", "endpoint", endpoint),
	}
}

// Detect implements detector.Detector. Transport errors, non-2xx statuses,
// and responses without a numeric score are all returned as errors; the rule
// executor treats them as fail-closed.
func (d *Remote) Detect(ctx context.Context, text string, threshold float64, cfg detector.Config) (*detector.Result, error) {
	body, err := json.Marshal(remoteRequest{
		Input:     text,
		Threshold: threshold,
		Config:    cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detector request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a little of the body for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, snippet)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}
	if parsed.Score == nil {
		return nil, fmt.Errorf("detector response has no score field")
	}

	d.logger.Debug("remote detector call completed",
		"score", *parsed.Score,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &detector.Result{
		Score:       *parsed.Score,
		CheckResult: parsed.CheckResult,
		Details:     parsed.Details,
	}, nil
}
