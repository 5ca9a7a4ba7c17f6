// client.go - Proof job client: submit, then observe until terminal.
//
// Submit never waits for a proof. When the primary backend is unreachable the client
// falls back to the mock backend; the ticket and every result from it are marked mock.
//
// AwaitCompletion is a pure observer. It reports pending first, then polls every
// interval up to a fixed number of attempts and reports each observed status. Statuses
// that would move backwards are ignored so the reported sequence never regresses.
// Cancelling ctx stops the polling only; the remote job keeps running.

package prover

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"shieldedactions/internal/transactions"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 300
)

// Ticket identifies a submitted job and the backend that owns it.
type Ticket struct {
	JobID   string `json:"job_id"`
	Backend string `json:"backend"`
	Mock    bool   `json:"mock"`
}

// StatusFunc observes status changes.
type StatusFunc func(Status)

// JobClient submits proof jobs and waits for them.
type JobClient struct {
	primary     Backend
	fallback    Backend
	interval    time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

// ClientOption configures a JobClient.
type ClientOption func(*JobClient)

// WithFallback sets the backend used when the primary is unavailable.
func WithFallback(b Backend) ClientOption {
	return func(c *JobClient) { c.fallback = b }
}

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *JobClient) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxAttempts sets how many status checks are made before giving up.
func WithMaxAttempts(n int) ClientOption {
	return func(c *JobClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *JobClient) { c.logger = l }
}

// NewJobClient creates a client over primary.
func NewJobClient(primary Backend, opts ...ClientOption) *JobClient {
	c := &JobClient{
		primary:     primary,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxAttempts,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit hands req to the primary backend, or to the fallback when the primary is unavailable.
func (c *JobClient) Submit(ctx context.Context, req transactions.Request) (Ticket, error) {
	id, err := c.primary.Submit(ctx, req)
	if err == nil {
		c.logger.Info().Str("job_id", id).Str("backend", c.primary.Name()).Msg("job submitted")
		return Ticket{JobID: id, Backend: c.primary.Name()}, nil
	}

	var unavailable *ProverUnavailableError
	if !errors.As(err, &unavailable) || c.fallback == nil {
		return Ticket{}, err
	}
	c.logger.Warn().Err(err).Msg("prover unavailable, falling back to mock proof")
	id, err = c.fallback.Submit(ctx, req)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{JobID: id, Backend: c.fallback.Name(), Mock: true}, nil
}

func (c *JobClient) backendFor(t Ticket) Backend {
	if t.Mock && c.fallback != nil {
		return c.fallback
	}
	return c.primary
}

// AwaitCompletion polls the job until it is terminal, the attempts run out or ctx ends.
// onStatus, when set, sees pending first and then every observed status.
func (c *JobClient) AwaitCompletion(ctx context.Context, t Ticket, onStatus StatusFunc) (*Result, error) {
	backend := c.backendFor(t)
	last := StatusPending
	report := func(s Status) {
		if onStatus != nil {
			onStatus(s)
		}
	}
	report(last)

	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		// 1. Wait one interval
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		// 2. Observe
		job, err := backend.Status(ctx, t.JobID)
		switch {
		case err == nil:
		case errors.Is(err, ErrJobNotFound):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			c.logger.Warn().Err(err).Str("job_id", t.JobID).Int("attempt", attempt).Msg("status check failed")
			timer.Reset(c.interval)
			continue
		}

		// 3. Report, never backwards
		if job.Status.rank() >= last.rank() {
			last = job.Status
			report(last)
		}

		switch last {
		case StatusCompleted:
			if job.Result == nil {
				return nil, &ProofFailedError{JobID: t.JobID, Reason: "completed without a result"}
			}
			res := *job.Result
			if t.Mock {
				res.Mock = true
			}
			return &res, nil
		case StatusFailed:
			return nil, &ProofFailedError{JobID: t.JobID, Reason: job.Error}
		}
		timer.Reset(c.interval)
	}

	return nil, &ProofTimeoutError{JobID: t.JobID, Attempts: c.maxAttempts, LastStatus: last}
}

// Prove submits req and waits for its result.
func (c *JobClient) Prove(ctx context.Context, req transactions.Request, onStatus StatusFunc) (*Result, Ticket, error) {
	t, err := c.Submit(ctx, req)
	if err != nil {
		return nil, t, err
	}
	res, err := c.AwaitCompletion(ctx, t, onStatus)
	return res, t, err
}
