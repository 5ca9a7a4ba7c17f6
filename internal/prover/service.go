// service.go - Prover service: job queue plus worker goroutines.
//
// Submit prepares the request synchronously, registers a pending job and queues it.
// Workers drive each job pending -> generating -> completed | failed. The service is the
// only writer of job status.

package prover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shieldedactions/internal/transactions"
)

// ErrQueueFull is returned when no worker can accept the job.
var ErrQueueFull = errors.New("prover queue is full")

const defaultQueueSize = 256

// FinishFunc observes every job reaching a terminal state.
type FinishFunc func(job *Job, elapsed time.Duration)

type task struct {
	id       string
	prepared *Prepared
}

// Service proves prepared requests in the background.
type Service struct {
	store   *JobStore
	engine  Engine
	builder *transactions.Builder
	workers int
	delay   time.Duration
	logger  zerolog.Logger
	finish  FinishFunc

	queue  chan task
	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWorkers sets the number of worker goroutines (default 2).
func WithWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProveDelay makes every job stay in generating for at least d.
func WithProveDelay(d time.Duration) ServiceOption {
	return func(s *Service) { s.delay = d }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithFinishHook registers fn to observe finished jobs.
func WithFinishHook(fn FinishFunc) ServiceOption {
	return func(s *Service) { s.finish = fn }
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.queue = make(chan task, n)
		}
	}
}

// NewService creates a service. builder may be nil when every request carries a skeleton.
func NewService(store *JobStore, engine Engine, builder *transactions.Builder, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		engine:  engine,
		builder: builder,
		workers: 2,
		logger:  zerolog.Nop(),
		queue:   make(chan task, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the job store.
func (s *Service) Store() *JobStore { return s.store }

// Engine returns the proof engine.
func (s *Service) Engine() Engine { return s.engine }

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.logger.Info().Int("workers", s.workers).Str("engine", s.engine.Name()).Msg("prover service started")
}

// Stop rejects further submissions, stops the workers and waits for them.
// Jobs still queued are failed.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()

	for {
		select {
		case t := <-s.queue:
			_ = s.store.Fail(t.id, ErrServiceStopped.Error())
		default:
			s.logger.Info().Msg("prover service stopped")
			return
		}
	}
}

// Submit prepares req and queues a new job. It returns without waiting for the proof.
func (s *Service) Submit(req transactions.Request) (*Job, error) {
	p, err := Prepare(s.builder, req)
	if err != nil {
		return nil, err
	}
	return s.SubmitPrepared(p)
}

// SubmitPrepared queues an already prepared request.
func (s *Service) SubmitPrepared(p *Prepared) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceStopped
	}
	job := s.store.Create(p.Kind)
	select {
	case s.queue <- task{id: job.ID, prepared: p}:
	default:
		_ = s.store.Fail(job.ID, ErrQueueFull.Error())
		return nil, ErrQueueFull
	}
	s.logger.Debug().Str("job_id", job.ID).Str("kind", string(p.Kind)).Msg("job queued")
	return job, nil
}

// Backlog reports how many jobs wait in the queue and its capacity.
func (s *Service) Backlog() (queued, capacity int) {
	return len(s.queue), cap(s.queue)
}

// Accepting reports whether Submit can still queue jobs.
func (s *Service) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Status returns the current view of a job.
func (s *Service) Status(id string) (*Job, error) {
	return s.store.Get(id)
}

func (s *Service) worker(ctx context.Context, n int) {
	defer s.wg.Done()
	log := s.logger.With().Int("worker", n).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.queue:
			s.run(ctx, log, t)
		}
	}
}

func (s *Service) run(ctx context.Context, log zerolog.Logger, t task) {
	start := time.Now()
	if err := s.store.MarkGenerating(t.id); err != nil {
		log.Error().Err(err).Str("job_id", t.id).Msg("cannot start job")
		return
	}

	res, err := s.prove(ctx, t.prepared)
	if err != nil {
		log.Warn().Err(err).Str("job_id", t.id).Msg("proof failed")
		err = s.store.Fail(t.id, err.Error())
	} else {
		log.Info().Str("job_id", t.id).Dur("elapsed", time.Since(start)).Msg("proof completed")
		err = s.store.Complete(t.id, res)
	}
	if err != nil {
		log.Error().Err(err).Str("job_id", t.id).Msg("cannot finish job")
		return
	}
	if s.finish != nil {
		if job, err := s.store.Get(t.id); err == nil {
			s.finish(job, time.Since(start))
		}
	}
}

func (s *Service) prove(ctx context.Context, p *Prepared) (*Result, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return s.engine.Prove(ctx, p)
}
