// job.go - Proof jobs and the in-memory job store.
//
// A job moves pending -> generating -> completed | failed. A job rejected before work
// starts may go straight from pending to failed. Terminal jobs never change again.

package prover

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"shieldedactions/internal/resource"
	"shieldedactions/internal/transactions"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the lifecycle; unknown statuses rank below pending.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusGenerating:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrTerminalJob    = errors.New("job is already terminal")
	ErrBadTransition  = errors.New("invalid job status transition")
	ErrServiceStopped = errors.New("prover service stopped")
)

// Result is the payload of a completed job.
type Result struct {
	ProofType   string                      `json:"proof_type"`
	Mock        bool                        `json:"mock"`
	ImageID     string                      `json:"image_id"`
	Journal     hexutil.Bytes               `json:"journal"`
	Seal        hexutil.Bytes               `json:"seal"`
	Transaction hexutil.Bytes               `json:"transaction"`
	Calldata    hexutil.Bytes               `json:"calldata"`
	Resource    *resource.Resource          `json:"resource,omitempty"`
	Call        *transactions.ForwarderCall `json:"call,omitempty"`
}

// DecodeTransaction returns the proved transaction carried by the result.
func (r *Result) DecodeTransaction() (*transactions.Transaction, error) {
	return transactions.DecodeTransaction(r.Transaction)
}

// Job is the status view of a proof job.
type Job struct {
	ID        string            `json:"job_id"`
	Kind      transactions.Kind `json:"kind,omitempty"`
	Status    Status            `json:"status"`
	Result    *Result           `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// JobStore holds jobs in memory and enforces status transitions.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job), now: time.Now}
}

// Create registers a new pending job and returns a copy of it.
func (s *JobStore) Create(kind transactions.Kind) *Job {
	now := s.now()
	j := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	cp := *j
	return &cp
}

// Get returns a copy of the job with the given id.
func (s *JobStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	cp := *j
	if j.Result != nil {
		res := *j.Result
		cp.Result = &res
	}
	return &cp, nil
}

// Len returns the number of jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Counts returns the number of jobs per status.
func (s *JobStore) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Status]int, 4)
	for _, j := range s.jobs {
		out[j.Status]++
	}
	return out
}

// MarkGenerating moves a pending job to generating.
func (s *JobStore) MarkGenerating(id string) error {
	return s.transition(id, StatusGenerating, func(j *Job) {})
}

// Complete moves a generating job to completed with its result.
func (s *JobStore) Complete(id string, res *Result) error {
	return s.transition(id, StatusCompleted, func(j *Job) { j.Result = res })
}

// Fail moves a pending or generating job to failed.
func (s *JobStore) Fail(id, reason string) error {
	return s.transition(id, StatusFailed, func(j *Job) { j.Error = reason })
}

func (s *JobStore) transition(id string, to Status, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminalJob, id, j.Status)
	}
	if !allowed(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = s.now()
	apply(j)
	return nil
}

func allowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusGenerating || to == StatusFailed
	case StatusGenerating:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}
