// health.go - Health monitoring for the prover daemon
package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"shieldedactions/internal/prover"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// DegradedError marks a check result that is degraded rather than unhealthy.
type DegradedError struct {
	Reason string
}

func (e *DegradedError) Error() string { return e.Reason }

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message"`
	LastCheck time.Time     `json:"last_check"`
	Latency   time.Duration `json:"latency,omitempty"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	OverallStatus HealthStatus      `json:"overall_status"`
	Timestamp     time.Time         `json:"timestamp"`
	Components    []ComponentHealth `json:"components"`
	Uptime        time.Duration     `json:"uptime"`
	Version       string            `json:"version"`
}

// HealthChecker manages health checks for the daemon's components
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]*ComponentHealth
	startTime  time.Time
	version    string
	checkers   map[string]func() error
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		components: make(map[string]*ComponentHealth),
		startTime:  time.Now(),
		version:    version,
		checkers:   make(map[string]func() error),
	}
}

// RegisterComponent registers a health check for a component
func (hc *HealthChecker) RegisterComponent(name string, checker func() error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.components[name] = &ComponentHealth{
		Name:      name,
		Status:    Healthy,
		Message:   "Component registered",
		LastCheck: time.Now(),
	}
	hc.checkers[name] = checker
}

// CheckHealth performs health checks for all registered components
func (hc *HealthChecker) CheckHealth() *SystemHealth {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	for name, component := range hc.components {
		checker, exists := hc.checkers[name]
		if !exists || checker == nil {
			continue
		}
		start := time.Now()
		err := checker()
		component.Latency = time.Since(start)
		component.LastCheck = time.Now()

		var degraded *DegradedError
		switch {
		case err == nil:
			component.Status = Healthy
			component.Message = "OK"
		case errors.As(err, &degraded):
			component.Status = Degraded
			component.Message = err.Error()
		default:
			component.Status = Unhealthy
			component.Message = err.Error()
		}
	}
	return hc.snapshot()
}

// GetHealth returns the last recorded status without running the checks
func (hc *HealthChecker) GetHealth() *SystemHealth {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.snapshot()
}

func (hc *HealthChecker) snapshot() *SystemHealth {
	overallStatus := Healthy
	components := make([]ComponentHealth, 0, len(hc.components))

	for _, component := range hc.components {
		if component.Status == Unhealthy {
			overallStatus = Unhealthy
		} else if component.Status == Degraded && overallStatus == Healthy {
			overallStatus = Degraded
		}
		components = append(components, *component)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	return &SystemHealth{
		OverallStatus: overallStatus,
		Timestamp:     time.Now(),
		Components:    components,
		Uptime:        time.Since(hc.startTime),
		Version:       hc.version,
	}
}

// RegisterService adds the checks of a prover service: it must accept jobs and its queue
// must not be close to full.
func (hc *HealthChecker) RegisterService(svc *prover.Service) {
	hc.RegisterComponent("prover_service", func() error {
		if !svc.Accepting() {
			return prover.ErrServiceStopped
		}
		return nil
	})
	hc.RegisterComponent("job_queue", func() error {
		queued, capacity := svc.Backlog()
		if capacity > 0 && queued*5 >= capacity*4 {
			return &DegradedError{Reason: fmt.Sprintf("queue at %d/%d", queued, capacity)}
		}
		return nil
	})
	hc.RegisterComponent("proof_engine", func() error {
		if svc.Engine() == nil {
			return errors.New("no proof engine")
		}
		return nil
	})
}

// HealthCheckResponse represents the response format for health check endpoints
type HealthCheckResponse struct {
	Status  string      `json:"status"`
	Service string      `json:"service"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CreateHealthResponse creates a standardized health check response
func CreateHealthResponse(health *SystemHealth) *HealthCheckResponse {
	status := "ok"
	message := "System is healthy"

	if health.OverallStatus == Unhealthy {
		status = "error"
		message = "System is unhealthy"
	} else if health.OverallStatus == Degraded {
		status = "warning"
		message = "System is degraded"
	}

	return &HealthCheckResponse{
		Status:  status,
		Service: serviceName,
		Message: message,
		Data:    health,
	}
}
