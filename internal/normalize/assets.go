package normalize

import (
	"strings"

	"poolpulse/pkg/models"
)

// AssetResolver maps raw ticker symbols to canonical asset classes via
// curated alias lists. Classes are tested in a fixed order and the first
// match wins.
type AssetResolver struct {
	classes []models.AssetClass
	aliases map[models.AssetClass]map[string]bool
}

// NewAssetResolver builds a resolver from per-class alias lists. Aliases are
// matched case-insensitively.
func NewAssetResolver(btc, eth, stable []string) *AssetResolver {
	r := &AssetResolver{
		classes: []models.AssetClass{models.AssetBTC, models.AssetETH, models.AssetStable},
		aliases: map[models.AssetClass]map[string]bool{
			models.AssetBTC:    aliasSet(btc),
			models.AssetETH:    aliasSet(eth),
			models.AssetStable: aliasSet(stable),
		},
	}
	return r
}

func aliasSet(aliases []string) map[string]bool {
	set := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return set
}

// Resolve returns the asset class for a raw ticker, or AssetUnknown when no
// alias list contains it.
func (r *AssetResolver) Resolve(symbol string) models.AssetClass {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return models.AssetUnknown
	}
	for _, class := range r.classes {
		if r.aliases[class][s] {
			return class
		}
	}
	return models.AssetUnknown
}

// IsWrappedPair reports whether two raw tickers form a wrapped-variant pair:
// both resolve to the same BTC or ETH class through two distinct alias
// entries. Stable/stable pairs are not wrapped pairs.
func (r *AssetResolver) IsWrappedPair(baseSym, quoteSym string) bool {
	base := strings.ToLower(strings.TrimSpace(baseSym))
	quote := strings.ToLower(strings.TrimSpace(quoteSym))
	if base == quote {
		return false
	}

	baseClass := r.Resolve(base)
	quoteClass := r.Resolve(quote)
	if baseClass != quoteClass {
		return false
	}
	if baseClass != models.AssetBTC && baseClass != models.AssetETH {
		return false
	}

	// Distinct alias entries of the same class, e.g. wbtc vs tbtc.
	return r.aliases[baseClass][base] && r.aliases[quoteClass][quote]
}
