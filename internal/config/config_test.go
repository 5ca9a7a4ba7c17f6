package config

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2000, cfg.PollIntervalMillis)
	assert.Equal(t, 300, cfg.MaxPollAttempts)
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().AdapterAddress, cfg.AdapterAddress)

	cfg.PollIntervalMillis = 50
	cfg.Assets = cfg.Assets[:1]
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.PollIntervalMillis)
	require.Len(t, loaded.Assets, 1)
	assert.Equal(t, "USDC", loaded.Assets[0].Symbol)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown scheme", func(c *Config) { c.HashScheme = "md5" }},
		{"no assets", func(c *Config) { c.Assets = nil }},
		{"no adapter", func(c *Config) { c.AdapterAddress = common.Address{} }},
		{"zero poll interval", func(c *Config) { c.PollIntervalMillis = 0 }},
		{"zero attempts", func(c *Config) { c.MaxPollAttempts = 0 }},
		{"fee overflow", func(c *Config) { c.PoolFee = 1 << 24 }},
		{"bad url", func(c *Config) { c.ProverURL = "not a url" }},
		{"duplicate symbol", func(c *Config) { c.Assets = append(c.Assets, c.Assets[0]) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAssetTableLookups(t *testing.T) {
	table, err := NewAssetTable(SepoliaAssets()...)
	require.NoError(t, err)

	weth, ok := table.BySymbol("weth")
	require.True(t, ok)
	assert.Equal(t, uint8(18), weth.Decimals)
	assert.Equal(t, common.BytesToHash(weth.Forwarder.Bytes()), weth.LogicRef)
	assert.Equal(t, common.BytesToHash(weth.Token.Bytes()), weth.LabelRef)

	byRef, ok := table.ByLogicRef(weth.LogicRef)
	require.True(t, ok)
	assert.Equal(t, "WETH", byRef.Symbol)

	_, ok = table.BySymbol("DAI")
	assert.False(t, ok)
	_, ok = table.ByLogicRef(common.HexToHash("0xdead"))
	assert.False(t, ok)

	assets := table.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, "USDC", assets[0].Symbol)
}

func TestAssetTableRejectsSharedAddresses(t *testing.T) {
	sepolia := SepoliaAssets()
	weth, usdc := sepolia[1], sepolia[0]
	if weth.Symbol != "WETH" {
		weth, usdc = usdc, weth
	}

	t.Run("shared forwarder", func(t *testing.T) {
		clash := usdc
		clash.Forwarder = weth.Forwarder
		clash.LogicRef = common.HexToHash("0x01")
		_, err := NewAssetTable(weth, clash)
		assert.ErrorContains(t, err, "already escrows WETH")
	})

	t.Run("shared token", func(t *testing.T) {
		clash := usdc
		clash.Token = weth.Token
		_, err := NewAssetTable(weth, clash)
		assert.ErrorContains(t, err, "already listed as WETH")
	})
}
