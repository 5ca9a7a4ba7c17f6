// remote.go - HTTP backend for a prover daemon.
//
// POST {base}/api/prove/{kind}  -> 202 {job_id}
// GET  {base}/api/status/{id}   -> 200 {job_id, status, result?, error?}
//
// Transport errors and 5xx answers are ProverUnavailableError; 4xx answers are
// RejectedError, except 404 on status which is ErrJobNotFound.

package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shieldedactions/internal/transactions"
)

const maxResponseBytes = 4 << 20

// RemoteProver submits jobs to a prover daemon.
type RemoteProver struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewRemoteProver creates a backend for the daemon at baseURL.
func NewRemoteProver(baseURL string, timeout time.Duration, logger zerolog.Logger) *RemoteProver {
	return &RemoteProver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name implements Backend.
func (p *RemoteProver) Name() string { return "remote" }

// BaseURL returns the daemon address.
func (p *RemoteProver) BaseURL() string { return p.baseURL }

// Submit implements Backend.
func (p *RemoteProver) Submit(ctx context.Context, req transactions.Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := p.baseURL + "/api/prove/" + string(req.Kind())
	p.logger.Debug().Str("endpoint", endpoint).Msg("submitting proof request")

	var out SubmitResponse
	if err := p.do(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", &ProverUnavailableError{Endpoint: endpoint, Err: fmt.Errorf("response carries no job_id")}
	}
	return out.JobID, nil
}

// Status implements Backend.
func (p *RemoteProver) Status(ctx context.Context, jobID string) (*Job, error) {
	endpoint := p.baseURL + "/api/status/" + url.PathEscape(jobID)
	var job Job
	if err := p.do(ctx, http.MethodGet, endpoint, nil, &job); err != nil {
		var rej *RejectedError
		if errors.As(err, &rej) && rej.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, err
	}
	return &job, nil
}

func (p *RemoteProver) do(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ProverUnavailableError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &ProverUnavailableError{Endpoint: endpoint, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return &ProverUnavailableError{Endpoint: endpoint, Err: fmt.Errorf("server returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		msg := strings.TrimSpace(string(data))
		var er ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return &RejectedError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProverUnavailableError{Endpoint: endpoint, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}
