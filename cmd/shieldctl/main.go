// main.go - Command-line client for shielded ERC-20 actions
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shieldedactions/internal/config"
	"shieldedactions/internal/prover"
	"shieldedactions/internal/transactions"
)

var Version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	proverURL  string
	logLevel   string
	noFallback bool

	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "shieldctl",
		Short:         "Shield, swap and unshield ERC-20 tokens through the prover",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "shieldctl.json", "configuration file (created with defaults when missing)")
	pf.StringVar(&a.proverURL, "prover-url", "", "prover daemon URL, overrides prover_url")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error; overrides log_level")
	pf.BoolVar(&a.noFallback, "no-fallback", false, "fail instead of using a mock proof when the prover is unreachable")

	root.AddCommand(
		newKeygenCmd(a),
		newShieldCmd(a),
		newSwapCmd(a),
		newUnshieldCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("prover-url") {
		cfg.ProverURL = a.proverURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: a.errOut, TimeFormat: "15:04:05"}).
		Level(parseLevel(cfg.LogLevel)).
		With().Timestamp().Logger()
	return nil
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// builder returns a transaction builder for the configured assets.
func (a *app) builder() (*transactions.Builder, error) {
	return transactions.NewBuilderFromConfig(a.cfg,
		transactions.WithLogger(a.logger.With().Str("component", "builder").Logger()))
}

// client returns a job client for the configured prover, with the in-process mock
// prover as fallback unless disabled.
func (a *app) client() (*prover.JobClient, error) {
	opts := []prover.ClientOption{
		prover.WithPollInterval(a.cfg.PollInterval()),
		prover.WithMaxAttempts(a.cfg.MaxPollAttempts),
		prover.WithClientLogger(a.logger),
	}
	if !a.noFallback {
		b, err := a.builder()
		if err != nil {
			return nil, err
		}
		opts = append(opts, prover.WithFallback(prover.NewMockProver(b, a.logger)))
	}
	remote := prover.NewRemoteProver(a.cfg.ProverURL, a.cfg.RequestTimeout(), a.logger)
	return prover.NewJobClient(remote, opts...), nil
}
