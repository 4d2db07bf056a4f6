package normalize

import (
	"fmt"
	"strings"

	"poolpulse/internal/config"
	"poolpulse/internal/metrics"
	"poolpulse/pkg/models"

	"github.com/shopspring/decimal"
)

// Normalizer maps raw, source-shaped records to the canonical pool schema.
// It never panics on malformed input: a record that cannot be normalized is
// dropped and the rest of the batch is unaffected.
type Normalizer struct {
	assets  *AssetResolver
	chains  *ChainResolver
	metrics *metrics.Metrics
}

// New builds a normalizer from the configured alias lists and chain table.
func New(cfg config.AssetsConfig, m *metrics.Metrics) *Normalizer {
	return &Normalizer{
		assets:  NewAssetResolver(cfg.BTCAliases, cfg.ETHAliases, cfg.StableAliases),
		chains:  NewChainResolver(cfg.ChainNames),
		metrics: m,
	}
}

// NormalizeAll normalizes a batch, dropping rejected records and deduplicating
// by id. The first occurrence of an id wins; later duplicates are dropped
// silently.
func (n *Normalizer) NormalizeAll(records []models.RawPool) []*models.Pool {
	seen := make(map[string]bool, len(records))
	pools := make([]*models.Pool, 0, len(records))

	for i := range records {
		pool := n.Normalize(&records[i])
		if pool == nil {
			continue
		}
		if seen[pool.ID] {
			n.metrics.RecordDuplicateDropped()
			continue
		}
		seen[pool.ID] = true
		pools = append(pools, pool)
	}

	return pools
}

// Normalize maps one raw record to a canonical pool, or nil when the record
// is rejected.
func (n *Normalizer) Normalize(raw *models.RawPool) *models.Pool {
	var pool *models.Pool
	switch {
	case raw.Gecko != nil:
		pool = n.normalizeGecko(raw)
	case raw.Screener != nil:
		pool = n.normalizeScreener(raw)
	default:
		n.metrics.RecordRejected("empty_payload")
		return nil
	}

	if pool != nil {
		pool.Source = raw.Source
		pool.SourceRank = raw.SourceRank
		n.metrics.RecordNormalized()
	}
	return pool
}

func (n *Normalizer) normalizeGecko(raw *models.RawPool) *models.Pool {
	attrs := raw.Gecko.Attributes

	baseSym, quoteSym, ok := splitPoolName(attrs.Name)
	if !ok {
		n.metrics.RecordRejected("missing_symbols")
		return nil
	}

	cls, ok := n.classify(baseSym, quoteSym)
	if !ok {
		return nil
	}

	fee := ParseFeeString(attrs.PoolFeePercent)
	if fee == nil {
		fee = FeeFromName(attrs.Name)
	}

	id := raw.Gecko.ID
	chain := n.chains.Resolve(raw.ChainHint, raw.Gecko.Network)
	if id == "" {
		id = synthesizeID(models.SourceGeckoTerminal, chain, cls.name)
	}

	var poolURL string
	if raw.Gecko.Network != "" && attrs.Address != "" {
		poolURL = fmt.Sprintf("https://www.geckoterminal.com/%s/pools/%s",
			raw.Gecko.Network, attrs.Address)
	}

	return &models.Pool{
		ID:           id,
		Name:         cls.name,
		BaseAsset:    cls.base,
		QuoteAsset:   cls.quote,
		PairType:     cls.pairType,
		LiquidityUSD: parseUSD(attrs.ReserveInUSD),
		VolumeUSD24h: parseUSD(attrs.VolumeUSD["h24"]),
		FeeTier:      fee,
		Chain:        chain,
		PoolURL:      poolURL,
	}
}

func (n *Normalizer) normalizeScreener(raw *models.RawPool) *models.Pool {
	pair := raw.Screener

	baseSym := strings.TrimSpace(pair.BaseToken.Symbol)
	quoteSym := strings.TrimSpace(pair.QuoteToken.Symbol)
	if baseSym == "" || quoteSym == "" {
		n.metrics.RecordRejected("missing_symbols")
		return nil
	}

	cls, ok := n.classify(baseSym, quoteSym)
	if !ok {
		return nil
	}

	// No structured fee field; some venues tag the tier in the labels.
	fee := FeeFromName(strings.Join(pair.Labels, " "))

	chain := n.chains.Resolve(raw.ChainHint, pair.ChainID)
	id := pair.PairAddress
	if id != "" && pair.ChainID != "" {
		id = pair.ChainID + "_" + pair.PairAddress
	}
	if id == "" {
		id = synthesizeID(models.SourceDexScreener, chain, cls.name)
	}

	poolURL := pair.URL
	if poolURL == "" && pair.ChainID != "" && pair.PairAddress != "" {
		poolURL = fmt.Sprintf("https://dexscreener.com/%s/%s", pair.ChainID, pair.PairAddress)
	}

	return &models.Pool{
		ID:           id,
		Name:         cls.name,
		BaseAsset:    cls.base,
		QuoteAsset:   cls.quote,
		PairType:     cls.pairType,
		LiquidityUSD: positive(pair.Liquidity.USD),
		VolumeUSD24h: positive(pair.Volume["h24"]),
		FeeTier:      fee,
		Chain:        chain,
		PoolURL:      poolURL,
	}
}

// classification is the outcome of resolving a symbol pair.
type classification struct {
	base     models.AssetClass
	quote    models.AssetClass
	pairType models.PairType
	name     string
}

// classify resolves both symbols, detects wrapped-variant pairs, normalizes
// orientation, and determines the pair type. Wrapped detection runs before
// orientation because same-class pairs are never swapped.
func (n *Normalizer) classify(baseSym, quoteSym string) (classification, bool) {
	baseClass := n.assets.Resolve(baseSym)
	quoteClass := n.assets.Resolve(quoteSym)

	if n.assets.IsWrappedPair(baseSym, quoteSym) {
		return classification{
			base:     baseClass,
			quote:    quoteClass,
			pairType: models.PairWrapped,
			name:     baseSym + "/" + quoteSym,
		}, true
	}

	if baseClass == models.AssetUnknown || quoteClass == models.AssetUnknown {
		n.metrics.RecordRejected("unknown_asset")
		return classification{}, false
	}

	// Degenerate same-asset pair that is not a legitimate wrapped variant.
	if baseClass == quoteClass {
		n.metrics.RecordRejected("same_class")
		return classification{}, false
	}

	// Canonical orientation: BTC or ETH as base, STABLE as quote; BTC before ETH.
	if quoteClass == models.AssetBTC ||
		(quoteClass == models.AssetETH && baseClass == models.AssetStable) {
		baseSym, quoteSym = quoteSym, baseSym
		baseClass, quoteClass = quoteClass, baseClass
	}

	var pairType models.PairType
	switch {
	case baseClass == models.AssetBTC && quoteClass == models.AssetStable:
		pairType = models.PairBTCStable
	case baseClass == models.AssetETH && quoteClass == models.AssetStable:
		pairType = models.PairETHStable
	case baseClass == models.AssetBTC && quoteClass == models.AssetETH:
		pairType = models.PairBTCETH
	default:
		n.metrics.RecordRejected("pair_type")
		return classification{}, false
	}

	return classification{
		base:     baseClass,
		quote:    quoteClass,
		pairType: pairType,
		name:     baseSym + "/" + quoteSym,
	}, true
}

// splitPoolName extracts base and quote tickers from a display name like
// "WBTC / USDC 0.3%". The quote side may carry a trailing fee token.
func splitPoolName(name string) (string, string, bool) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}

	baseFields := strings.Fields(parts[0])
	quoteFields := strings.Fields(parts[1])
	if len(baseFields) == 0 || len(quoteFields) == 0 {
		return "", "", false
	}

	return baseFields[0], quoteFields[0], true
}

// parseUSD parses a string-typed USD figure. Missing or unparsable values
// default to 0, negative values are clamped to 0.
func parseUSD(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return positive(f)
}

func positive(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// synthesizeID builds a fallback id for records without a source-native
// unique identifier. Stable within one run only.
func synthesizeID(source models.Source, chain, name string) string {
	return string(source) + ":" + chain + ":" + strings.ToLower(name)
}
