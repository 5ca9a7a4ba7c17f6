// assets.go - Asset table mapping token symbols to escrow forwarders.
//
// The table is built once from configuration and injected into the transaction
// builder and the daemons. Lookups go by symbol and by resource logic ref. Each asset
// owns its token and its escrow forwarder.

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Asset describes one shieldable ERC-20 token.
type Asset struct {
	Symbol    string         `json:"symbol"`
	Token     common.Address `json:"token"`
	Forwarder common.Address `json:"forwarder"`
	Decimals  uint8          `json:"decimals"`
	// LogicRef and LabelRef default to the left-padded forwarder and token addresses.
	LogicRef common.Hash `json:"logic_ref"`
	LabelRef common.Hash `json:"label_ref"`
}

// AssetTable is an immutable lookup over configured assets.
type AssetTable struct {
	bySymbol    map[string]Asset
	byLogicRef  map[common.Hash]Asset
	byForwarder map[common.Address]Asset
	byToken     map[common.Address]Asset
}

// NewAssetTable validates assets and indexes them. Symbols are case-insensitive.
func NewAssetTable(assets ...Asset) (*AssetTable, error) {
	t := &AssetTable{
		bySymbol:    make(map[string]Asset, len(assets)),
		byLogicRef:  make(map[common.Hash]Asset, len(assets)),
		byForwarder: make(map[common.Address]Asset, len(assets)),
		byToken:     make(map[common.Address]Asset, len(assets)),
	}
	for _, a := range assets {
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		if a.Symbol == "" {
			return nil, fmt.Errorf("asset symbol must not be empty")
		}
		if a.Token == (common.Address{}) {
			return nil, fmt.Errorf("asset %s: token address must be set", a.Symbol)
		}
		if a.Forwarder == (common.Address{}) {
			return nil, fmt.Errorf("asset %s: forwarder address must be set", a.Symbol)
		}
		if a.Decimals > 77 {
			return nil, fmt.Errorf("asset %s: decimals %d out of range", a.Symbol, a.Decimals)
		}
		if a.LogicRef == (common.Hash{}) {
			a.LogicRef = common.BytesToHash(a.Forwarder.Bytes())
		}
		if a.LabelRef == (common.Hash{}) {
			a.LabelRef = common.BytesToHash(a.Token.Bytes())
		}
		if _, dup := t.bySymbol[a.Symbol]; dup {
			return nil, fmt.Errorf("duplicate asset symbol %s", a.Symbol)
		}
		if _, dup := t.byLogicRef[a.LogicRef]; dup {
			return nil, fmt.Errorf("asset %s: duplicate logic ref %s", a.Symbol, a.LogicRef.Hex())
		}
		if other, dup := t.byForwarder[a.Forwarder]; dup {
			return nil, fmt.Errorf("asset %s: forwarder %s already escrows %s", a.Symbol, a.Forwarder.Hex(), other.Symbol)
		}
		if other, dup := t.byToken[a.Token]; dup {
			return nil, fmt.Errorf("asset %s: token %s already listed as %s", a.Symbol, a.Token.Hex(), other.Symbol)
		}
		t.bySymbol[a.Symbol] = a
		t.byLogicRef[a.LogicRef] = a
		t.byForwarder[a.Forwarder] = a
		t.byToken[a.Token] = a
	}
	return t, nil
}

// BySymbol looks up an asset by symbol.
func (t *AssetTable) BySymbol(symbol string) (Asset, bool) {
	a, ok := t.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return a, ok
}

// ByLogicRef looks up the asset whose forwarder governs logicRef.
func (t *AssetTable) ByLogicRef(logicRef common.Hash) (Asset, bool) {
	a, ok := t.byLogicRef[logicRef]
	return a, ok
}

// Assets returns all assets sorted by symbol.
func (t *AssetTable) Assets() []Asset {
	out := make([]Asset, 0, len(t.bySymbol))
	for _, a := range t.bySymbol {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// SepoliaAssets are the deployed escrow forwarders on Sepolia.
func SepoliaAssets() []Asset {
	return []Asset{
		{
			Symbol:    "USDC",
			Token:     common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
			Forwarder: common.HexToAddress("0x5256b82cB889f8845570b3a2f1C2af7d2F1567fE"),
			Decimals:  6,
		},
		{
			Symbol:    "WETH",
			Token:     common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
			Forwarder: common.HexToAddress("0xD5307D777dC60b763b74945BF5A42ba93ce44e4b"),
			Decimals:  18,
		},
	}
}
