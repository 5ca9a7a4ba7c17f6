// backend.go - Prover backends: where proof jobs are submitted and observed.
//
// JobClient depends only on Backend. RemoteProver talks to a prover daemon over HTTP;
// MockProver proves in-process with MockEngine and completes at once.

package prover

import (
	"context"

	"github.com/rs/zerolog"

	"shieldedactions/internal/transactions"
)

// Backend submits proof jobs and reports their status.
type Backend interface {
	Name() string
	// Submit hands req to the prover and returns the job id without waiting for the proof.
	Submit(ctx context.Context, req transactions.Request) (string, error)
	// Status returns the prover's current view of the job.
	Status(ctx context.Context, jobID string) (*Job, error)
}

// SubmitResponse is the body answering a prove request.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	JobID string `json:"job_id,omitempty"`
}

// MockProver is the in-process fallback backend.
type MockProver struct {
	builder *transactions.Builder
	store   *JobStore
	engine  *MockEngine
	logger  zerolog.Logger
}

// NewMockProver creates a mock backend. builder may be nil when every request carries a skeleton.
func NewMockProver(builder *transactions.Builder, logger zerolog.Logger) *MockProver {
	return &MockProver{
		builder: builder,
		store:   NewJobStore(),
		engine:  NewMockEngine(logger),
		logger:  logger,
	}
}

// Name implements Backend.
func (m *MockProver) Name() string { return "mock" }

// Submit implements Backend. The job is already terminal when Submit returns.
func (m *MockProver) Submit(ctx context.Context, req transactions.Request) (string, error) {
	p, err := Prepare(m.builder, req)
	if err != nil {
		return "", err
	}
	job := m.store.Create(p.Kind)
	if err := m.store.MarkGenerating(job.ID); err != nil {
		return "", err
	}
	res, err := m.engine.Prove(ctx, p)
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("mock proof failed")
		return job.ID, m.store.Fail(job.ID, err.Error())
	}
	m.logger.Warn().Str("job_id", job.ID).Msg("using mock proof; result is not a genuine proof")
	return job.ID, m.store.Complete(job.ID, res)
}

// Status implements Backend.
func (m *MockProver) Status(_ context.Context, jobID string) (*Job, error) {
	return m.store.Get(jobID)
}
