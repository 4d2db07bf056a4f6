package rank

import "poolpulse/pkg/models"

// Categorize buckets scored pools by pair type, preserving the scorer's
// order within each bucket. Every pair-type key is present in the result,
// empty buckets included.
func Categorize(pools []*models.Pool) map[models.PairType][]*models.Pool {
	categories := make(map[models.PairType][]*models.Pool, len(models.PairTypes))
	for _, pt := range models.PairTypes {
		categories[pt] = []*models.Pool{}
	}
	for _, p := range pools {
		categories[p.PairType] = append(categories[p.PairType], p)
	}
	return categories
}
