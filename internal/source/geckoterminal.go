package source

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"poolpulse/internal/config"
	"poolpulse/internal/metrics"
	"poolpulse/pkg/client"
	"poolpulse/pkg/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// geckoNetworkIDs maps logical chain names to GeckoTerminal network ids.
var geckoNetworkIDs = map[string]string{
	"ethereum":  "eth",
	"arbitrum":  "arbitrum",
	"base":      "base",
	"optimism":  "optimism",
	"polygon":   "polygon_pos",
	"bsc":       "bsc",
	"avalanche": "avax",
}

// geckoPoolsResponse is the JSON:API envelope for pool list and search calls.
type geckoPoolsResponse struct {
	Data []models.GeckoPool `json:"data"`
}

// GeckoTerminal fetches pools from the primary source: one sequential,
// rate-paced page loop per configured chain, plus one search call per
// configured token query. Per-chain and per-query results are cached for the
// rest of the session.
type GeckoTerminal struct {
	httpClient *client.HTTPClient
	cfg        config.GeckoTerminalConfig
	cache      *Cache
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewGeckoTerminal creates the primary source adapter.
func NewGeckoTerminal(cfg config.GeckoTerminalConfig, cache *Cache, m *metrics.Metrics) *GeckoTerminal {
	pause := cfg.RequestPause
	if pause <= 0 {
		pause = 500 * time.Millisecond
	}
	return &GeckoTerminal{
		httpClient: client.NewHTTPClientWithTimeout(cfg.RequestTimeout),
		cfg:        cfg,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Every(pause), 1),
		metrics:    m,
	}
}

// Name identifies the adapter's source.
func (g *GeckoTerminal) Name() models.Source {
	return models.SourceGeckoTerminal
}

// Rank is the source's trust rank (lower is more trusted).
func (g *GeckoTerminal) Rank() int {
	return g.cfg.Rank
}

// FetchPools fetches all configured chains and search queries. Chains run
// concurrently; pages within a chain are strictly sequential. Failed legs
// contribute nothing.
func (g *GeckoTerminal) FetchPools(ctx context.Context) ([]models.RawPool, error) {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []models.RawPool
	)

	for _, chain := range g.cfg.Chains {
		wg.Add(1)
		go func(chain string) {
			defer wg.Done()
			records := g.fetchChain(ctx, chain)
			mu.Lock()
			all = append(all, records...)
			mu.Unlock()
		}(chain)
	}

	for _, query := range g.cfg.SearchQueries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			records := g.fetchSearch(ctx, query)
			mu.Lock()
			all = append(all, records...)
			mu.Unlock()
		}(query)
	}

	wg.Wait()
	g.metrics.RecordRecordsFetched(string(g.Name()), len(all))
	return all, nil
}

// fetchChain runs the sequential page loop for one logical chain. The loop
// stops early on a short or empty page, which signals the last page.
func (g *GeckoTerminal) fetchChain(ctx context.Context, chain string) []models.RawPool {
	networkID, ok := geckoNetworkIDs[chain]
	if !ok {
		networkID = chain
	}

	cacheKey := "gecko:chain:" + networkID
	if cached, ok := g.cache.Get(cacheKey); ok {
		g.metrics.RecordCacheHit()
		return cached
	}
	g.metrics.RecordCacheMiss()

	var records []models.RawPool
	for page := 1; page <= g.cfg.PageCap; page++ {
		if err := g.limiter.Wait(ctx); err != nil {
			break
		}

		reqURL := fmt.Sprintf("%s/networks/%s/pools?page=%d", g.cfg.BaseURL, networkID, page)
		resp, err := g.getPools(ctx, reqURL)
		if err != nil {
			log.Warn().Err(err).Str("chain", chain).Int("page", page).
				Msg("GeckoTerminal page fetch failed")
			break
		}

		for i := range resp.Data {
			resp.Data[i].Network = networkID
			records = append(records, models.RawPool{
				ChainHint: chain,
				Gecko:     &resp.Data[i],
			})
		}

		if len(resp.Data) == 0 || len(resp.Data) < g.cfg.PageSize {
			break
		}
	}

	g.cache.Set(cacheKey, records)
	return records
}

// fetchSearch performs one token-symbol search call, cached by query.
func (g *GeckoTerminal) fetchSearch(ctx context.Context, query string) []models.RawPool {
	cacheKey := "gecko:search:" + query
	if cached, ok := g.cache.Get(cacheKey); ok {
		g.metrics.RecordCacheHit()
		return cached
	}
	g.metrics.RecordCacheMiss()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil
	}

	reqURL := fmt.Sprintf("%s/search/pools?query=%s", g.cfg.BaseURL, url.QueryEscape(query))
	resp, err := g.getPools(ctx, reqURL)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("GeckoTerminal search failed")
		g.cache.Set(cacheKey, nil)
		return nil
	}

	records := make([]models.RawPool, 0, len(resp.Data))
	for i := range resp.Data {
		// Search results span networks; the record itself says which one.
		resp.Data[i].Network = resp.Data[i].NetworkID()
		records = append(records, models.RawPool{
			Gecko: &resp.Data[i],
		})
	}

	g.cache.Set(cacheKey, records)
	return records
}

func (g *GeckoTerminal) getPools(ctx context.Context, reqURL string) (*geckoPoolsResponse, error) {
	start := time.Now()
	var resp geckoPoolsResponse
	err := g.httpClient.GetJSON(ctx, reqURL, &resp)
	if err != nil {
		g.metrics.RecordFetch(string(g.Name()), "error", time.Since(start))
		return nil, err
	}
	g.metrics.RecordFetch(string(g.Name()), "ok", time.Since(start))
	return &resp, nil
}
