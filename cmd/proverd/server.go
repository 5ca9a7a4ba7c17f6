// server.go - HTTP API of the prover daemon
//
// POST /api/prove/:kind      -> 202 {job_id}
// GET  /api/status/:job_id   -> 200 job view
// GET  /health, GET /metrics
package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shieldedactions/internal/prover"
	"shieldedactions/internal/resource"
	"shieldedactions/internal/transactions"
)

const requestIDHeader = "X-Request-ID"

// Server routes HTTP requests to the prover service.
type Server struct {
	svc     *prover.Service
	metrics *MetricsCollector
	health  *HealthChecker
	limiter *ClientRateLimiter
	logger  *Logger
	router  *gin.Engine
}

// NewServer wires the routes. limiter may be nil.
func NewServer(svc *prover.Service, metrics *MetricsCollector, health *HealthChecker, limiter *ClientRateLimiter, logger *Logger) *Server {
	s := &Server{
		svc:     svc,
		metrics: metrics,
		health:  health,
		limiter: limiter,
		logger:  logger,
		router:  gin.New(),
	}

	s.router.Use(gin.Recovery(), s.requestID(), s.observe())
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.router.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware(metrics.RecordRateLimited))
	}
	api.POST("/prove/:kind", s.handleProve)
	api.GET("/status/:job_id", s.handleStatus)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.RecordRequest(c.Request.Method, route, code)
		s.logger.Debug().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("code", code).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	h := s.health.CheckHealth()
	code := http.StatusOK
	if h.OverallStatus == Unhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, CreateHealthResponse(h))
}

func (s *Server) handleProve(c *gin.Context) {
	kind, ok := transactions.ParseKind(c.Param("kind"))
	if !ok {
		s.metrics.RecordError("unknown_kind")
		c.JSON(http.StatusNotFound, prover.ErrorResponse{Error: "unknown proof kind " + c.Param("kind")})
		return
	}
	req, _ := transactions.NewRequest(kind)
	if err := c.ShouldBindJSON(req); err != nil {
		s.reject(c, err)
		return
	}

	job, err := s.svc.Submit(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.RecordSubmission(kind)
	s.logger.Audit("proof_requested", map[string]interface{}{
		"job_id":     job.ID,
		"kind":       string(kind),
		"client":     c.ClientIP(),
		"request_id": c.GetString("request_id"),
	})
	c.JSON(http.StatusAccepted, prover.SubmitResponse{JobID: job.ID})
}

func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("job_id")
	job, err := s.svc.Status(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// reject answers a body that could not be decoded. Typed field errors keep their class.
func (s *Server) reject(c *gin.Context, err error) {
	code, class, field := classify(err)
	if code == http.StatusInternalServerError {
		code, class = http.StatusBadRequest, "malformed_body"
	}
	s.respond(c, err, code, class, field)
}

// fail answers err with its HTTP status and error body.
func (s *Server) fail(c *gin.Context, err error) {
	code, class, field := classify(err)
	s.respond(c, err, code, class, field)
}

func (s *Server) respond(c *gin.Context, err error, code int, class, field string) {
	s.metrics.RecordError(class)
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("request failed")
	} else {
		s.logger.Debug().Err(err).Str("class", class).Msg("request rejected")
	}
	c.JSON(code, prover.ErrorResponse{Error: err.Error(), Field: field, JobID: c.Param("job_id")})
}

// classify maps an error to its HTTP status, metric class and offending field.
func classify(err error) (int, string, string) {
	var (
		verr *transactions.ValidationError
		merr *resource.MalformedFieldError
		aerr *transactions.AmountParseError
		terr *transactions.UnknownTokenError
		ferr *transactions.UnknownForwarderError
		kerr *transactions.KeyMismatchError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation", verr.Field
	case errors.As(err, &merr):
		return http.StatusBadRequest, "malformed_field", merr.Field
	case errors.As(err, &aerr):
		return http.StatusBadRequest, "amount", ""
	case errors.As(err, &terr):
		return http.StatusUnprocessableEntity, "unknown_token", ""
	case errors.As(err, &ferr):
		return http.StatusUnprocessableEntity, "unknown_forwarder", ""
	case errors.As(err, &kerr):
		return http.StatusUnprocessableEntity, "key_mismatch", "nullifier_key"
	case errors.Is(err, prover.ErrJobNotFound):
		return http.StatusNotFound, "not_found", ""
	case errors.Is(err, prover.ErrQueueFull), errors.Is(err, prover.ErrServiceStopped):
		return http.StatusServiceUnavailable, "unavailable", ""
	}
	return http.StatusInternalServerError, "internal", ""
}
