// main.go - Prover daemon: accepts shield, swap and unshield proof jobs over HTTP
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shieldedactions/internal/config"
	"shieldedactions/internal/prover"
	"shieldedactions/internal/transactions"
)

const serviceName = "shielded-prover"

var Version = "dev"

type options struct {
	configPath string
	listen     string
	logLevel   string
	workers    int
	proveDelay time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "proverd",
		Short:         "Proof job daemon for shielded ERC-20 actions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "proverd.json", "configuration file (created with defaults when missing)")
	f.StringVar(&opts.listen, "listen", "", "listen address, overrides listen_addr")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error; overrides log_level")
	f.IntVar(&opts.workers, "workers", 0, "proof workers, overrides workers")
	f.DurationVar(&opts.proveDelay, "prove-delay", 0, "minimum time a job stays generating, overrides prove_delay_ms")
	return cmd
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddr = opts.listen
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("prove-delay") {
		cfg.ProveDelayMillis = int(opts.proveDelay / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// daemon bundles the wired components of a running prover.
type daemon struct {
	cfg     *config.Config
	logger  *Logger
	svc     *prover.Service
	metrics *MetricsCollector
	health  *HealthChecker
	limiter *ClientRateLimiter
	server  *Server
}

func newDaemon(cfg *config.Config, logger *Logger) (*daemon, error) {
	builder, err := transactions.NewBuilderFromConfig(cfg,
		transactions.WithLogger(logger.With().Str("component", "builder").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create builder: %w", err)
	}

	store := prover.NewJobStore()
	metrics := NewMetricsCollector(store)
	svc := prover.NewService(store,
		prover.NewMockEngine(logger.With().Str("component", "engine").Logger()),
		builder,
		prover.WithWorkers(cfg.Workers),
		prover.WithProveDelay(cfg.ProveDelay()),
		prover.WithServiceLogger(logger.With().Str("component", "service").Logger()),
		prover.WithFinishHook(func(job *prover.Job, elapsed time.Duration) {
			metrics.RecordJob(job, elapsed)
			logger.Audit("proof_finished", map[string]interface{}{
				"job_id":  job.ID,
				"kind":    string(job.Kind),
				"status":  string(job.Status),
				"elapsed": elapsed.String(),
			})
		}),
	)

	health := NewHealthChecker(Version)
	health.RegisterService(svc)

	limiter := NewClientRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	return &daemon{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		metrics: metrics,
		health:  health,
		limiter: limiter,
		server:  NewServer(svc, metrics, health, limiter, logger),
	}, nil
}

// housekeeping drops idle rate limiters and re-runs the health checks, reporting when the
// overall status changes. It returns the status after the checks.
func (d *daemon) housekeeping(now time.Time) HealthStatus {
	if n := d.limiter.Prune(now); n > 0 {
		d.logger.Debug().Int("clients", n).Msg("pruned idle rate limiters")
	}

	before := d.health.GetHealth().OverallStatus
	after := d.health.CheckHealth()
	if after.OverallStatus != before {
		d.logger.Warn().
			Str("from", string(before)).
			Str("to", string(after.OverallStatus)).
			Msg("health status changed")
		d.logger.Audit("health_changed", map[string]interface{}{
			"from": string(before),
			"to":   string(after.OverallStatus),
		})
	}
	return after.OverallStatus
}

func run(ctx context.Context, cfg *config.Config) error {
	auditPath := ""
	if cfg.EnableAudit {
		auditPath = cfg.AuditLogPath
	}
	logger := NewLogger(cfg.LogLevel, defaultConsole, cfg.LogFile, auditPath)
	defer logger.Close()

	if ParseLevel(cfg.LogLevel) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	d, err := newDaemon(cfg, logger)
	if err != nil {
		return err
	}
	d.svc.Start(ctx)
	defer d.svc.Stop()

	srv := &http.Server{
		Addr:              d.cfg.ListenAddr,
		Handler:           d.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Str("version", Version).Msg("prover daemon listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case now := <-tick.C:
			d.housekeeping(now)
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}
