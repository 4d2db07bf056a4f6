package normalize

import (
	"testing"

	"poolpulse/internal/config"
	"poolpulse/pkg/models"

	"github.com/stretchr/testify/require"
)

func testAssetsConfig() config.AssetsConfig {
	return config.AssetsConfig{
		BTCAliases:    []string{"btc", "wbtc", "cbbtc", "tbtc"},
		ETHAliases:    []string{"eth", "weth", "steth", "reth"},
		StableAliases: []string{"usdt", "usdc", "dai"},
		ChainNames: map[string]string{
			"eth":         "ethereum",
			"ethereum":    "ethereum",
			"polygon_pos": "polygon",
		},
	}
}

func newTestNormalizer() *Normalizer {
	return New(testAssetsConfig(), nil)
}

func geckoRecord(name, reserve, volume string) models.RawPool {
	return models.RawPool{
		Source:     models.SourceGeckoTerminal,
		SourceRank: 1,
		ChainHint:  "ethereum",
		Gecko: &models.GeckoPool{
			ID:      "eth_0xabc",
			Network: "eth",
			Attributes: models.GeckoAttrs{
				Name:         name,
				Address:      "0xabc",
				ReserveInUSD: reserve,
				VolumeUSD:    map[string]string{"h24": volume},
			},
		},
	}
}

// TestResolveAssetClasses verifies alias matching with first-class-wins order.
func TestResolveAssetClasses(t *testing.T) {
	r := NewAssetResolver(
		[]string{"btc", "wbtc"},
		[]string{"eth", "weth"},
		[]string{"usdc", "usdt"},
	)

	require.Equal(t, models.AssetBTC, r.Resolve("WBTC"))
	require.Equal(t, models.AssetETH, r.Resolve("weth"))
	require.Equal(t, models.AssetStable, r.Resolve(" USDC "))
	require.Equal(t, models.AssetUnknown, r.Resolve("DOGE"))
	require.Equal(t, models.AssetUnknown, r.Resolve(""))
}

// TestWrappedPairDetection verifies that two distinct aliases of the same
// class classify as a wrapped pair instead of being rejected.
func TestWrappedPairDetection(t *testing.T) {
	n := newTestNormalizer()

	pool := n.Normalize(ptrRaw(geckoRecord("WBTC / tBTC", "100000", "20000")))
	require.NotNil(t, pool)
	require.Equal(t, models.PairWrapped, pool.PairType)
	require.Equal(t, models.AssetBTC, pool.BaseAsset)
	require.Equal(t, models.AssetBTC, pool.QuoteAsset)
	// Same-class pairs are never swapped.
	require.Equal(t, "WBTC/tBTC", pool.Name)
}

// TestSameSymbolPairRejected verifies the degenerate same-asset guard.
func TestSameSymbolPairRejected(t *testing.T) {
	n := newTestNormalizer()

	require.Nil(t, n.Normalize(ptrRaw(geckoRecord("WBTC / WBTC", "100000", "20000"))))
	// Stable/stable is not a wrapped variant either.
	require.Nil(t, n.Normalize(ptrRaw(geckoRecord("USDC / USDT", "100000", "20000"))))
}

// TestOrientationNormalization verifies canonical base/quote ordering.
func TestOrientationNormalization(t *testing.T) {
	n := newTestNormalizer()

	// Stable-quoted BTC pair arrives inverted and is swapped.
	pool := n.Normalize(ptrRaw(geckoRecord("USDC / WBTC", "100000", "20000")))
	require.NotNil(t, pool)
	require.Equal(t, models.AssetBTC, pool.BaseAsset)
	require.Equal(t, models.AssetStable, pool.QuoteAsset)
	require.Equal(t, models.PairBTCStable, pool.PairType)
	require.Equal(t, "WBTC/USDC", pool.Name)

	// STABLE base with ETH quote is swapped too.
	pool = n.Normalize(ptrRaw(geckoRecord("USDT / WETH", "100000", "20000")))
	require.NotNil(t, pool)
	require.Equal(t, models.AssetETH, pool.BaseAsset)
	require.Equal(t, models.PairETHStable, pool.PairType)

	// Both orientations of BTC/ETH map to btc-eth.
	pool = n.Normalize(ptrRaw(geckoRecord("WETH / WBTC", "100000", "20000")))
	require.NotNil(t, pool)
	require.Equal(t, models.PairBTCETH, pool.PairType)
	require.Equal(t, models.AssetBTC, pool.BaseAsset)
	require.Equal(t, models.AssetETH, pool.QuoteAsset)

	pool = n.Normalize(ptrRaw(geckoRecord("WBTC / WETH", "100000", "20000")))
	require.NotNil(t, pool)
	require.Equal(t, models.PairBTCETH, pool.PairType)
}

// TestUnknownAssetRejected verifies records with unresolvable tickers drop out.
func TestUnknownAssetRejected(t *testing.T) {
	n := newTestNormalizer()

	require.Nil(t, n.Normalize(ptrRaw(geckoRecord("DOGE / USDC", "100000", "20000"))))
	require.Nil(t, n.Normalize(ptrRaw(geckoRecord("WBTC / SHIB", "100000", "20000"))))
}

// TestNormalizeNeverPanics feeds malformed records of both shapes and expects
// rejection, not a panic.
func TestNormalizeNeverPanics(t *testing.T) {
	n := newTestNormalizer()

	malformed := []models.RawPool{
		{},
		{Gecko: &models.GeckoPool{}},
		{Gecko: &models.GeckoPool{Attributes: models.GeckoAttrs{Name: "no separator"}}},
		{Gecko: &models.GeckoPool{Attributes: models.GeckoAttrs{Name: "/"}}},
		{Screener: &models.ScreenerPair{}},
		{Screener: &models.ScreenerPair{
			BaseToken: models.ScreenerToken{Symbol: "WBTC"},
		}},
	}

	for i := range malformed {
		require.Nil(t, n.Normalize(&malformed[i]))
	}
}

// TestNormalizeGeckoFields verifies field mapping for the primary source shape.
func TestNormalizeGeckoFields(t *testing.T) {
	n := newTestNormalizer()

	raw := geckoRecord("WBTC / USDC 0.3%", "500000.50", "50000")
	pool := n.Normalize(&raw)
	require.NotNil(t, pool)
	require.Equal(t, "eth_0xabc", pool.ID)
	require.Equal(t, "WBTC/USDC", pool.Name)
	require.Equal(t, "ethereum", pool.Chain)
	require.Equal(t, models.SourceGeckoTerminal, pool.Source)
	require.Equal(t, 1, pool.SourceRank)
	require.InDelta(t, 500000.50, pool.LiquidityUSD, 1e-6)
	require.InDelta(t, 50000, pool.VolumeUSD24h, 1e-6)
	require.NotNil(t, pool.FeeTier)
	require.InDelta(t, 0.3, *pool.FeeTier, 1e-9)
	require.Equal(t, "https://www.geckoterminal.com/eth/pools/0xabc", pool.PoolURL)
}

// TestNormalizeGeckoStructuredFeeWins verifies the explicit fee field takes
// precedence over the name pattern.
func TestNormalizeGeckoStructuredFeeWins(t *testing.T) {
	n := newTestNormalizer()

	raw := geckoRecord("WBTC / USDC 0.3%", "500000", "50000")
	raw.Gecko.Attributes.PoolFeePercent = "0.05"
	pool := n.Normalize(&raw)
	require.NotNil(t, pool)
	require.NotNil(t, pool.FeeTier)
	// 0.05 unlabelled is below 1, treated as a fractional rate.
	require.InDelta(t, 5.0, *pool.FeeTier, 1e-9)
}

// TestNormalizeScreenerFields verifies field mapping for the secondary shape.
func TestNormalizeScreenerFields(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawPool{
		Source:     models.SourceDexScreener,
		SourceRank: 2,
		ChainHint:  "ethereum",
		Screener: &models.ScreenerPair{
			ChainID:     "ethereum",
			PairAddress: "0xpair",
			URL:         "https://dexscreener.com/ethereum/0xpair",
			BaseToken:   models.ScreenerToken{Symbol: "WETH"},
			QuoteToken:  models.ScreenerToken{Symbol: "USDT"},
			Liquidity:   models.ScreenerLiquidity{USD: 250000},
			Volume:      map[string]float64{"h24": 75000},
		},
	}

	pool := n.Normalize(&raw)
	require.NotNil(t, pool)
	require.Equal(t, "ethereum_0xpair", pool.ID)
	require.Equal(t, "WETH/USDT", pool.Name)
	require.Equal(t, models.PairETHStable, pool.PairType)
	require.Equal(t, "ethereum", pool.Chain)
	require.InDelta(t, 250000, pool.LiquidityUSD, 1e-6)
	require.InDelta(t, 75000, pool.VolumeUSD24h, 1e-6)
	require.Nil(t, pool.FeeTier)
	require.Equal(t, "https://dexscreener.com/ethereum/0xpair", pool.PoolURL)
	require.Equal(t, models.SourceDexScreener, pool.Source)
	require.Equal(t, 2, pool.SourceRank)
}

// TestNormalizeSearchRecordResolvesChain verifies a record without an
// orchestration chain hint still resolves its chain and pool URL from the
// source-native network id.
func TestNormalizeSearchRecordResolvesChain(t *testing.T) {
	n := newTestNormalizer()

	raw := geckoRecord("WBTC / USDC", "100000", "20000")
	raw.ChainHint = ""
	raw.Gecko.Network = "eth"

	pool := n.Normalize(&raw)
	require.NotNil(t, pool)
	require.Equal(t, "ethereum", pool.Chain)
	require.Equal(t, "https://www.geckoterminal.com/eth/pools/0xabc", pool.PoolURL)
}

// TestMissingFiguresDefaultToZero verifies unparsable USD figures become 0.
func TestMissingFiguresDefaultToZero(t *testing.T) {
	n := newTestNormalizer()

	raw := geckoRecord("WBTC / USDC", "", "not-a-number")
	pool := n.Normalize(&raw)
	require.NotNil(t, pool)
	require.Zero(t, pool.LiquidityUSD)
	require.Zero(t, pool.VolumeUSD24h)
}

// TestNormalizeScreenerSynthesizesID verifies a pair without a native address
// still gets a deterministic id from source, chain, and name.
func TestNormalizeScreenerSynthesizesID(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawPool{
		Source:     models.SourceDexScreener,
		SourceRank: 2,
		ChainHint:  "ethereum",
		Screener: &models.ScreenerPair{
			ChainID:    "ethereum",
			BaseToken:  models.ScreenerToken{Symbol: "WETH"},
			QuoteToken: models.ScreenerToken{Symbol: "USDT"},
			Liquidity:  models.ScreenerLiquidity{USD: 80000},
			Volume:     map[string]float64{"h24": 15000},
		},
	}

	pool := n.Normalize(&raw)
	require.NotNil(t, pool)
	require.Equal(t, "dexscreener:ethereum:weth/usdt", pool.ID)
	require.Empty(t, pool.PoolURL)
}

// TestNormalizeAllDeduplicatesByID verifies first-seen-wins deduplication.
func TestNormalizeAllDeduplicatesByID(t *testing.T) {
	n := newTestNormalizer()

	first := geckoRecord("WBTC / USDC", "100000", "20000")
	second := geckoRecord("USDC / WBTC", "999999", "1")
	// Same native id from a different source shape of the same pool.
	records := []models.RawPool{first, second}

	pools := n.NormalizeAll(records)
	require.Len(t, pools, 1)
	require.InDelta(t, 100000, pools[0].LiquidityUSD, 1e-6)
}

// TestChainResolution verifies the hint/native/fallback precedence.
func TestChainResolution(t *testing.T) {
	c := NewChainResolver(map[string]string{
		"eth":         "ethereum",
		"polygon_pos": "polygon",
	})

	require.Equal(t, "ethereum", c.Resolve("eth", ""))
	require.Equal(t, "polygon", c.Resolve("", "polygon_pos"))
	require.Equal(t, "basechain", c.Resolve("", "basechain"))
	require.Equal(t, "unknown", c.Resolve("", ""))
	// Unmapped hint passes through as-is.
	require.Equal(t, "solana", c.Resolve("solana", "eth"))
}

func ptrRaw(r models.RawPool) *models.RawPool {
	return &r
}
