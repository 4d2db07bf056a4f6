package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"poolpulse/internal/config"
	"poolpulse/internal/metrics"
	"poolpulse/pkg/client"
	"poolpulse/pkg/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const dexScreenerCacheKey = "dexscreener:search"

// dexScreenerSearchResponse is the envelope of a pair search call.
type dexScreenerSearchResponse struct {
	Pairs []models.ScreenerPair `json:"pairs"`
}

// DexScreener fetches pools from the secondary source by issuing one search
// call per configured query term. Results are deduplicated by pair address
// across all terms and the combined set is cached under a single key.
type DexScreener struct {
	httpClient *client.HTTPClient
	cfg        config.DexScreenerConfig
	cache      *Cache
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewDexScreener creates the secondary source adapter.
func NewDexScreener(cfg config.DexScreenerConfig, cache *Cache, m *metrics.Metrics) *DexScreener {
	pause := cfg.RequestPause
	if pause <= 0 {
		pause = 400 * time.Millisecond
	}
	return &DexScreener{
		httpClient: client.NewHTTPClientWithTimeout(cfg.RequestTimeout),
		cfg:        cfg,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Every(pause), 1),
		metrics:    m,
	}
}

// Name identifies the adapter's source.
func (d *DexScreener) Name() models.Source {
	return models.SourceDexScreener
}

// Rank is the source's trust rank (lower is more trusted).
func (d *DexScreener) Rank() int {
	return d.cfg.Rank
}

// FetchPools runs the configured search terms strictly in order with a rate
// pause between calls. A failed term contributes nothing.
func (d *DexScreener) FetchPools(ctx context.Context) ([]models.RawPool, error) {
	if cached, ok := d.cache.Get(dexScreenerCacheKey); ok {
		d.metrics.RecordCacheHit()
		return cached, nil
	}
	d.metrics.RecordCacheMiss()

	seen := make(map[string]bool)
	var records []models.RawPool

	for _, term := range d.cfg.SearchQueries {
		if err := d.limiter.Wait(ctx); err != nil {
			break
		}

		reqURL := fmt.Sprintf("%s/latest/dex/search?q=%s", d.cfg.BaseURL, url.QueryEscape(term))

		start := time.Now()
		var resp dexScreenerSearchResponse
		if err := d.httpClient.GetJSON(ctx, reqURL, &resp); err != nil {
			d.metrics.RecordFetch(string(d.Name()), "error", time.Since(start))
			log.Warn().Err(err).Str("term", term).Msg("DexScreener search failed")
			continue
		}
		d.metrics.RecordFetch(string(d.Name()), "ok", time.Since(start))

		for i := range resp.Pairs {
			pair := &resp.Pairs[i]
			// Address-less pairs pass through; the normalizer synthesizes
			// their ids.
			if pair.PairAddress != "" {
				if seen[pair.PairAddress] {
					continue
				}
				seen[pair.PairAddress] = true
			}
			records = append(records, models.RawPool{
				ChainHint: pair.ChainID,
				Screener:  pair,
			})
		}
	}

	d.cache.Set(dexScreenerCacheKey, records)
	d.metrics.RecordRecordsFetched(string(d.Name()), len(records))
	return records, nil
}
