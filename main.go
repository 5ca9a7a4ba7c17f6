package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shieldedactions/internal/adapter"
	"shieldedactions/internal/calldata"
	"shieldedactions/internal/chain"
	"shieldedactions/internal/config"
	"shieldedactions/internal/prover"
	"shieldedactions/internal/resource"
	"shieldedactions/internal/transactions"
)

// =============================================================================
// CONSTANTS AND CONFIGURATION
// =============================================================================

var (
	demoUser      = common.HexToAddress("0x1234567890123456789012345678901234567890")
	demoRecipient = common.HexToAddress("0x00000000000000000000000000000000000B0B")
	demoRelayer   = common.HexToAddress("0x00000000000000000000000000000000000FEE")
)

// ScenarioParams describes one shield -> swap -> unshield run.
type ScenarioParams struct {
	Funding      string     // WETH minted to the user
	ShieldAmount string     // WETH shielded
	MinUSDCOut   string     // swap minimum
	Rate         chain.Rate // USDC base units per WETH base unit
	Liquidity    string     // USDC base units held by the router
	LedgerPath   string     // ledger snapshot written at the end when set
}

// DefaultScenario prices 1 WETH at 2000 USDC.
func DefaultScenario() ScenarioParams {
	return ScenarioParams{
		Funding:      "10",
		ShieldAmount: "1.5",
		MinUSDCOut:   "2900",
		Rate:         chain.Rate{Num: 2_000_000_000, Den: 1_000_000_000_000_000_000},
		Liquidity:    "1000000000000",
	}
}

// =============================================================================
// DATA STRUCTURES
// =============================================================================

// ScenarioReport is the observable outcome of a run.
type ScenarioReport struct {
	Deployment       *adapter.Deployment
	Key              *resource.NullifierKeyPair
	Shielded         *resource.Resource
	Swapped          *resource.Resource
	Receipts         []*adapter.Receipt
	UserWETH         *uint256.Int
	RecipientUSDC    *uint256.Int
	EscrowedWETH     *uint256.Int
	EscrowedUSDC     *uint256.Int
	ShieldCalldata   []byte
	StatusesObserved []prover.Status
}

// =============================================================================
// SCENARIO
// =============================================================================

// RunScenario deploys the protocol on a simulated chain and drives one shielded position
// through shield, swap and unshield. Proofs come from client; the adapter accepts them
// with verifier. On error the report holds what was reached.
func RunScenario(ctx context.Context, w io.Writer, cfg *config.Config, client *prover.JobClient,
	verifier adapter.Verifier, p ScenarioParams, logger zerolog.Logger) (*ScenarioReport, error) {

	say := func(format string, args ...interface{}) { fmt.Fprintf(w, format+"\n", args...) }
	report := &ScenarioReport{}
	observe := func(s prover.Status) { report.StatusesObserved = append(report.StatusesObserved, s) }

	// Step 1: Deploy and fund
	say("1. Deploying adapter, forwarders and venue...")
	d, err := adapter.Deploy(cfg, adapter.NewLedger(), verifier, logger)
	if err != nil {
		return report, err
	}
	report.Deployment = d
	weth, _ := d.Assets.BySymbol("WETH")
	usdc, _ := d.Assets.BySymbol("USDC")

	funding, err := transactions.ParseAmount(p.Funding, weth.Decimals)
	if err != nil {
		return report, err
	}
	if err := d.Fund("WETH", demoUser, funding); err != nil {
		return report, err
	}
	liquidity, err := uint256.FromDecimal(p.Liquidity)
	if err != nil {
		return report, fmt.Errorf("bad liquidity: %w", err)
	}
	if err := d.AddPool("WETH", "USDC", p.Rate, liquidity); err != nil {
		return report, err
	}
	say("   user holds %s WETH", transactions.FormatAmount(d.BalanceOf("WETH", demoUser), weth.Decimals))

	codec, err := cfg.Codec()
	if err != nil {
		return report, err
	}
	key, err := codec.GenerateKeyPair(nil)
	if err != nil {
		return report, err
	}
	report.Key = key
	say("   nullifier key commitment %s", key.Commitment.Hex())

	submit := func(res *prover.Result) (*adapter.Receipt, error) {
		rcpt, err := d.Adapter.Submit(d.Chain, demoRelayer, res.Calldata)
		if err != nil {
			return nil, err
		}
		report.Receipts = append(report.Receipts, rcpt)
		say("   executed %s", rcpt.Hash.Hex())
		return rcpt, nil
	}

	// Step 2: Shield
	say("\n2. Shielding %s WETH...", p.ShieldAmount)
	shield, _, err := client.Prove(ctx, &transactions.ShieldRequest{
		Token: "WETH", Amount: p.ShieldAmount, Sender: demoUser.Hex(), NullifierKey: key.Secret.Hex(),
	}, observe)
	if err != nil {
		return report, fmt.Errorf("shield proof: %w", err)
	}
	if shield.Mock {
		say("   WARNING: mock proof")
	}
	if _, err := d.Chain.Call(demoUser, weth.Token, calldata.Approve(weth.Forwarder, shield.Resource.Quantity)); err != nil {
		return report, fmt.Errorf("approve: %w", err)
	}
	if _, err := submit(shield); err != nil {
		return report, fmt.Errorf("shield: %w", err)
	}
	report.Shielded = shield.Resource
	report.ShieldCalldata = shield.Calldata

	// Step 3: Swap
	say("\n3. Swapping into at least %s USDC...", p.MinUSDCOut)
	swap, _, err := client.Prove(ctx, &transactions.SwapRequest{
		InputResource: shield.Resource, OutputToken: "USDC", NullifierKey: key.Secret.Hex(), MinAmountOut: p.MinUSDCOut,
	}, observe)
	if err != nil {
		return report, fmt.Errorf("swap proof: %w", err)
	}
	if _, err := submit(swap); err != nil {
		return report, fmt.Errorf("swap: %w", err)
	}
	report.Swapped = swap.Resource
	say("   shielded %s USDC", transactions.FormatAmount(swap.Resource.Quantity, usdc.Decimals))

	// Step 4: Unshield
	say("\n4. Unshielding to %s...", demoRecipient.Hex())
	unshield, _, err := client.Prove(ctx, &transactions.UnshieldRequest{
		Resource: swap.Resource, Recipient: demoRecipient.Hex(), NullifierKey: key.Secret.Hex(),
	}, observe)
	if err != nil {
		return report, fmt.Errorf("unshield proof: %w", err)
	}
	if _, err := submit(unshield); err != nil {
		return report, fmt.Errorf("unshield: %w", err)
	}

	// Step 5: Balances and ledger
	report.UserWETH = d.BalanceOf("WETH", demoUser)
	report.RecipientUSDC = d.BalanceOf("USDC", demoRecipient)
	report.EscrowedWETH = d.Escrowed("WETH")
	report.EscrowedUSDC = d.Escrowed("USDC")

	say("\n5. Final state")
	say("   user WETH:      %s", transactions.FormatAmount(report.UserWETH, weth.Decimals))
	say("   recipient USDC: %s", transactions.FormatAmount(report.RecipientUSDC, usdc.Decimals))
	say("   escrowed USDC:  %s", transactions.FormatAmount(report.EscrowedUSDC, usdc.Decimals))
	ledger := d.Adapter.Ledger()
	say("   ledger: %d transactions, %d nullifiers, %d commitments",
		len(ledger.Transactions()), len(ledger.Nullifiers()), len(ledger.Commitments()))

	if p.LedgerPath != "" {
		if err := ledger.SaveToFile(p.LedgerPath); err != nil {
			return report, err
		}
		say("   ledger saved to %s", p.LedgerPath)
	}
	return report, nil
}

// =============================================================================
// MAIN FUNCTION
// =============================================================================

func main() {
	if err := newDemoCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newDemoCmd builds the demo command. The ledger snapshot goes to --ledger, or to the
// configured ledger_path when the flag is not given.
func newDemoCmd(out io.Writer) *cobra.Command {
	params := DefaultScenario()
	var configPath string

	cmd := &cobra.Command{
		Use:           "shielded-demo",
		Short:         "Run shield, swap and unshield against a simulated deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("ledger") {
				params.LedgerPath = cfg.LedgerPath
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()

			builder, err := transactions.NewBuilderFromConfig(cfg)
			if err != nil {
				return err
			}
			client := prover.NewJobClient(prover.NewMockProver(builder, logger),
				prover.WithPollInterval(10*time.Millisecond),
				prover.WithClientLogger(logger))

			fmt.Fprintln(out, "=== Shielded Actions ===")
			_, err = RunScenario(cmd.Context(), out, cfg, client, adapter.AcceptAll{}, params, logger)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "configuration file")
	f.StringVar(&params.ShieldAmount, "amount", params.ShieldAmount, "WETH to shield")
	f.StringVar(&params.MinUSDCOut, "min-out", params.MinUSDCOut, "minimum USDC from the swap")
	f.StringVar(&params.LedgerPath, "ledger", "", "write the ledger snapshot to this file (default ledger_path from the config)")
	return cmd
}
