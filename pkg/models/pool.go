package models

import (
	"math"
	"strings"
)

// AssetClass is the canonical token category a raw ticker resolves to.
type AssetClass string

const (
	AssetBTC    AssetClass = "BTC"
	AssetETH    AssetClass = "ETH"
	AssetStable AssetClass = "STABLE"
	// AssetUnknown marks a ticker that matched no alias list.
	AssetUnknown AssetClass = ""
)

// PairType classifies a pool's two asset classes.
type PairType string

const (
	PairBTCStable PairType = "btc-stable"
	PairETHStable PairType = "eth-stable"
	PairBTCETH    PairType = "btc-eth"
	// PairWrapped is a same-class variant pair, e.g. WBTC/tBTC.
	PairWrapped PairType = "wrapped"
)

// PairTypes lists every category key in a fixed order. Category maps always
// carry all of these keys, even when a bucket is empty.
var PairTypes = []PairType{PairBTCStable, PairETHStable, PairBTCETH, PairWrapped}

// Source identifies an upstream data source.
type Source string

const (
	SourceGeckoTerminal Source = "geckoterminal"
	SourceDexScreener   Source = "dexscreener"
)

// RawPool is a source-shaped record tagged with provenance. Exactly one of
// the payload fields is non-nil; the normalizer branches on it once and
// everything downstream sees only Pool.
type RawPool struct {
	Source     Source
	SourceRank int
	ChainHint  string

	Gecko    *GeckoPool
	Screener *ScreenerPair
}

// GeckoPool is a primary-source pool record (JSON:API style).
type GeckoPool struct {
	ID            string             `json:"id"`
	Attributes    GeckoAttrs         `json:"attributes"`
	Relationships GeckoRelationships `json:"relationships"`
	// Network is the source-native network id the record belongs to.
	// Filled by the adapter, not unmarshaled from the payload directly.
	Network string `json:"-"`
}

// GeckoRelationships carries the JSON:API relationship block; only the
// network relationship is used.
type GeckoRelationships struct {
	Network struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"network"`
}

// NetworkID returns the network a pool record belongs to: the network
// relationship id when present, otherwise the prefix of a composite id like
// "eth_0xabc", otherwise "".
func (p *GeckoPool) NetworkID() string {
	if id := p.Relationships.Network.Data.ID; id != "" {
		return id
	}
	if i := strings.Index(p.ID, "_"); i > 0 {
		return p.ID[:i]
	}
	return ""
}

// GeckoAttrs carries the attribute block of a primary-source pool record.
// USD figures arrive as strings.
type GeckoAttrs struct {
	Name           string            `json:"name"`
	Address        string            `json:"address"`
	ReserveInUSD   string            `json:"reserve_in_usd"`
	VolumeUSD      map[string]string `json:"volume_usd"`
	PoolFeePercent string            `json:"pool_fee_percentage"`
	PoolCreatedAt  string            `json:"pool_created_at"`
}

// ScreenerPair is a secondary-source pair record.
type ScreenerPair struct {
	ChainID     string             `json:"chainId"`
	DexID       string             `json:"dexId"`
	URL         string             `json:"url"`
	PairAddress string             `json:"pairAddress"`
	BaseToken   ScreenerToken      `json:"baseToken"`
	QuoteToken  ScreenerToken      `json:"quoteToken"`
	Liquidity   ScreenerLiquidity  `json:"liquidity"`
	Volume      map[string]float64 `json:"volume"`
	Labels      []string           `json:"labels"`
}

// ScreenerToken is one side of a secondary-source pair.
type ScreenerToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// ScreenerLiquidity is the secondary source's liquidity block.
type ScreenerLiquidity struct {
	USD float64 `json:"usd"`
}

// Pool is the canonical record the pipeline operates on after normalization.
// Immutable once scored; re-sorts reorder slices of pointers only.
type Pool struct {
	ID         string
	Name       string
	BaseAsset  AssetClass
	QuoteAsset AssetClass
	PairType   PairType

	LiquidityUSD float64
	VolumeUSD24h float64
	// FeeTier is a percentage (0.3 means 0.3%); nil when unknown.
	FeeTier *float64

	Chain      string
	Source     Source
	SourceRank int
	PoolURL    string

	// Score is the turnover ratio, set by the scorer.
	Score float64
	// APR is the estimated annualized fee yield; nil until scored.
	APR *float64
}

// Turnover returns 24h volume divided by liquidity, or 0 for non-positive
// liquidity so the scorer never divides by zero.
func (p *Pool) Turnover() float64 {
	if p.LiquidityUSD <= 0 {
		return 0
	}
	r := p.VolumeUSD24h / p.LiquidityUSD
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0
	}
	return r
}
