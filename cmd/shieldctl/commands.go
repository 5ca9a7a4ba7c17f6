// commands.go - shieldctl subcommands
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shieldedactions/internal/prover"
	"shieldedactions/internal/resource"
	"shieldedactions/internal/transactions"
)

// proofOutput is what the proving commands print.
type proofOutput struct {
	JobID   string         `json:"job_id"`
	Backend string         `json:"backend"`
	Result  *prover.Result `json:"result"`
}

func newKeygenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a nullifier key and its commitment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := a.cfg.Codec()
			if err != nil {
				return err
			}
			kp, err := codec.GenerateKeyPair(nil)
			if err != nil {
				return err
			}
			return a.print(map[string]string{
				"nullifier_key": kp.Secret.Hex(),
				"commitment":    kp.Commitment.Hex(),
				"scheme":        string(codec.Scheme()),
			})
		},
	}
}

func newShieldCmd(a *app) *cobra.Command {
	var req transactions.ShieldRequest
	var out string
	cmd := &cobra.Command{
		Use:   "shield",
		Short: "Deposit tokens into a new shielded resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.prove(cmd.Context(), &req, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Token, "token", "", "token symbol")
	f.StringVar(&req.Amount, "amount", "", "decimal amount in token units")
	f.StringVar(&req.Sender, "sender", "", "address the tokens are pulled from")
	f.StringVar(&req.NullifierKey, "key", "", "nullifier key that will spend the resource")
	f.StringVar(&out, "out", "", "file receiving the created resource")
	return cmd
}

func newSwapCmd(a *app) *cobra.Command {
	var req transactions.SwapRequest
	var in, out string
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap a shielded resource into another token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readResource(in)
			if err != nil {
				return err
			}
			req.InputResource = r
			return a.prove(cmd.Context(), &req, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "resource", "", "file holding the input resource")
	f.StringVar(&req.OutputToken, "to", "", "output token symbol")
	f.StringVar(&req.MinAmountOut, "min-out", "", "minimum output, decimal amount in output token units")
	f.StringVar(&req.NullifierKey, "key", "", "nullifier key of the input resource")
	f.StringVar(&out, "out", "", "file receiving the output resource")
	return cmd
}

func newUnshieldCmd(a *app) *cobra.Command {
	var req transactions.UnshieldRequest
	var in string
	cmd := &cobra.Command{
		Use:   "unshield",
		Short: "Withdraw a shielded resource to a public address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readResource(in)
			if err != nil {
				return err
			}
			req.Resource = r
			return a.prove(cmd.Context(), &req, "")
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "resource", "", "file holding the resource")
	f.StringVar(&req.Recipient, "recipient", "", "address receiving the tokens")
	f.StringVar(&req.NullifierKey, "key", "", "nullifier key of the resource")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show a prover job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := prover.NewRemoteProver(a.cfg.ProverURL, a.cfg.RequestTimeout(), a.logger)
			job, err := remote.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(job)
		},
	}
}

// prove runs req through the job client and prints the result. When out is set the
// created resource is written there.
func (a *app) prove(ctx context.Context, req transactions.Request, out string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	res, ticket, err := client.Prove(ctx, req, func(s prover.Status) {
		fmt.Fprintf(a.errOut, "job status: %s\n", s)
	})
	if err != nil {
		return err
	}
	if res.Mock {
		a.logger.Warn().Str("job_id", ticket.JobID).Msg("result carries a mock proof")
	}
	if out != "" {
		if res.Resource == nil {
			return fmt.Errorf("prover returned no resource to write to %s", out)
		}
		if err := writeJSON(out, res.Resource); err != nil {
			return err
		}
	}
	return a.print(proofOutput{JobID: ticket.JobID, Backend: ticket.Backend, Result: res})
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readResource(path string) (*resource.Resource, error) {
	if path == "" {
		return nil, &transactions.ValidationError{Field: "resource", Reason: "--resource is required"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource: %w", err)
	}
	var r resource.Resource
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode resource %s: %w", path, err)
	}
	return &r, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
