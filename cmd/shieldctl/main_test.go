package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldedactions/internal/config"
	"shieldedactions/internal/prover"
	"shieldedactions/internal/resource"
)

const user = "0x1234567890123456789012345678901234567890"

// offlineConfig writes a config pointing at a prover that refuses connections.
func offlineConfig(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	cfg := config.DefaultConfig()
	cfg.ProverURL = url
	cfg.PollIntervalMillis = 5
	cfg.MaxPollAttempts = 20
	cfg.RequestTimeoutSeconds = 1
	cfg.LogLevel = "error"
	path := filepath.Join(t.TempDir(), "shieldctl.json")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestKeygen(t *testing.T) {
	cfgPath := offlineConfig(t)
	out, _, err := run(t, cfgPath, "keygen")
	require.NoError(t, err)

	var keys map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	key, err := resource.ParseNullifierKey(keys["nullifier_key"])
	require.NoError(t, err)
	assert.Equal(t, resource.DeriveKeyCommitment(key).Hex(), keys["commitment"])
	assert.Equal(t, string(resource.SchemeSHA256), keys["scheme"])
}

func TestShieldSwapUnshieldWithMockFallback(t *testing.T) {
	cfgPath := offlineConfig(t)
	dir := t.TempDir()
	kp, err := resource.GenerateNullifierKey(nil)
	require.NoError(t, err)
	key := kp.Secret.Hex()

	decode := func(out string) proofOutput {
		var po proofOutput
		require.NoError(t, json.Unmarshal([]byte(out), &po), out)
		return po
	}

	// Shield
	shielded := filepath.Join(dir, "weth.json")
	out, errOut, err := run(t, cfgPath, "shield", "--token", "WETH", "--amount", "1", "--sender", user, "--key", key, "--out", shielded)
	require.NoError(t, err, errOut)
	po := decode(out)
	assert.Equal(t, "mock", po.Backend)
	require.NotNil(t, po.Result)
	assert.True(t, po.Result.Mock)
	assert.True(t, prover.IsMockProof(po.Result.Seal))
	assert.Contains(t, errOut, "job status: pending")
	assert.Contains(t, errOut, "job status: completed")

	// Swap the shielded WETH
	swapped := filepath.Join(dir, "usdc.json")
	out, errOut, err = run(t, cfgPath, "swap", "--resource", shielded, "--to", "USDC", "--min-out", "1500", "--key", key, "--out", swapped)
	require.NoError(t, err, errOut)
	assert.True(t, decode(out).Result.Mock)

	raw, err := os.ReadFile(swapped)
	require.NoError(t, err)
	var r resource.Resource
	require.NoError(t, json.Unmarshal(raw, &r))
	assert.Equal(t, "1500000000", r.Quantity.Dec())

	// Unshield the output
	out, errOut, err = run(t, cfgPath, "unshield", "--resource", swapped, "--recipient", user, "--key", key)
	require.NoError(t, err, errOut)
	tx, err := decode(out).Result.DecodeTransaction()
	require.NoError(t, err)
	assert.Len(t, tx.Nullifiers(), 1)
}

func TestNoFallback(t *testing.T) {
	cfgPath := offlineConfig(t)
	kp, err := resource.GenerateNullifierKey(nil)
	require.NoError(t, err)

	_, _, err = run(t, cfgPath, "--no-fallback", "shield", "--token", "WETH", "--amount", "1", "--sender", user, "--key", kp.Secret.Hex())
	var unavailable *prover.ProverUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestCommandErrors(t *testing.T) {
	cfgPath := offlineConfig(t)
	kp, err := resource.GenerateNullifierKey(nil)
	require.NoError(t, err)

	t.Run("validation before any job", func(t *testing.T) {
		_, _, err := run(t, cfgPath, "shield", "--token", "WETH", "--sender", user, "--key", kp.Secret.Hex())
		assert.ErrorContains(t, err, "amount")
	})

	t.Run("missing resource file", func(t *testing.T) {
		_, _, err := run(t, cfgPath, "unshield", "--recipient", user, "--key", kp.Secret.Hex())
		assert.ErrorContains(t, err, "resource")
	})

	t.Run("status needs the daemon", func(t *testing.T) {
		_, _, err := run(t, cfgPath, "status", "some-job")
		var unavailable *prover.ProverUnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})
}
