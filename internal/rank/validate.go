package rank

import (
	"math"

	"poolpulse/internal/config"
	"poolpulse/internal/metrics"
	"poolpulse/pkg/models"
)

// Validator rejects malformed and sub-threshold pools before scoring.
type Validator struct {
	minLiquidityUSD float64
	minVolumeUSD24h float64
	metrics         *metrics.Metrics
}

// NewValidator builds a validator from the configured thresholds.
func NewValidator(cfg config.ThresholdsConfig, m *metrics.Metrics) *Validator {
	return &Validator{
		minLiquidityUSD: cfg.MinLiquidityUSD,
		minVolumeUSD24h: cfg.MinVolumeUSD24h,
		metrics:         m,
	}
}

// IsValid reports whether a pool may enter the scorer.
func (v *Validator) IsValid(p *models.Pool) bool {
	if p == nil {
		return false
	}
	if p.ID == "" || p.Name == "" || p.BaseAsset == models.AssetUnknown || p.PairType == "" {
		v.metrics.RecordRejected("missing_fields")
		return false
	}
	if !isFinite(p.LiquidityUSD) || !isFinite(p.VolumeUSD24h) {
		v.metrics.RecordRejected("non_numeric")
		return false
	}
	// LiquidityUSD > 0 also guards the scorer's division.
	if p.LiquidityUSD <= 0 || p.LiquidityUSD < v.minLiquidityUSD {
		v.metrics.RecordRejected("below_min_liquidity")
		return false
	}
	if p.VolumeUSD24h < v.minVolumeUSD24h {
		v.metrics.RecordRejected("below_min_volume")
		return false
	}
	return true
}

// Filter returns the pools that pass validation, preserving input order.
func (v *Validator) Filter(pools []*models.Pool) []*models.Pool {
	valid := make([]*models.Pool, 0, len(pools))
	for _, p := range pools {
		if v.IsValid(p) {
			valid = append(valid, p)
		}
	}
	return valid
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
