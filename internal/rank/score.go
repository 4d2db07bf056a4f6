package rank

import (
	"sort"

	"poolpulse/internal/config"
	"poolpulse/pkg/models"
)

// Scorer computes turnover scores and estimated fee yield, and orders pools
// deterministically.
type Scorer struct {
	defaultFeePct float64
}

// NewScorer builds a scorer with the configured default fee percentage, used
// when a pool's fee tier is unknown.
func NewScorer(cfg config.ThresholdsConfig) *Scorer {
	return &Scorer{defaultFeePct: cfg.DefaultFeePct}
}

// Score enriches each pool with its turnover score and estimated APR.
func (s *Scorer) Score(pools []*models.Pool) {
	for _, p := range pools {
		p.Score = p.Turnover()

		fee := s.defaultFeePct
		if p.FeeTier != nil {
			fee = *p.FeeTier
		}
		if p.LiquidityUSD > 0 {
			apr := (p.VolumeUSD24h * (fee / 100) * 365 / p.LiquidityUSD) * 100
			p.APR = &apr
		}
	}
}

// Sort orders pools by descending score, ties broken by descending liquidity.
// The sort is stable, so pools equal on both keys keep their input order.
// Score and APR are never mutated here.
func (s *Scorer) Sort(pools []*models.Pool) {
	sort.SliceStable(pools, func(i, j int) bool {
		if pools[i].Score != pools[j].Score {
			return pools[i].Score > pools[j].Score
		}
		return pools[i].LiquidityUSD > pools[j].LiquidityUSD
	})
}
