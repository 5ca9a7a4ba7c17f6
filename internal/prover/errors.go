package prover

import "fmt"

// ProverUnavailableError means the prover endpoint could not be reached or answered
// with a server error. JobClient recovers from it with the mock backend.
type ProverUnavailableError struct {
	Endpoint string
	Err      error
}

func (e *ProverUnavailableError) Error() string {
	return fmt.Sprintf("prover unavailable at %s: %v", e.Endpoint, e.Err)
}

func (e *ProverUnavailableError) Unwrap() error { return e.Err }

// ProofFailedError is returned when the prover reports the job as failed.
type ProofFailedError struct {
	JobID  string
	Reason string
}

func (e *ProofFailedError) Error() string {
	return fmt.Sprintf("proof job %s failed: %s", e.JobID, e.Reason)
}

// ProofTimeoutError is returned when the job is still not terminal after the last poll.
type ProofTimeoutError struct {
	JobID      string
	Attempts   int
	LastStatus Status
}

func (e *ProofTimeoutError) Error() string {
	return fmt.Sprintf("proof job %s still %s after %d status checks", e.JobID, e.LastStatus, e.Attempts)
}

// RejectedError is a client error answered by the prover (bad request, unknown token, key mismatch).
// It is terminal and never triggers the mock fallback.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("prover rejected request (%d): %s", e.StatusCode, e.Message)
}
