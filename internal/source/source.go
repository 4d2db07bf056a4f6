package source

import (
	"context"

	"poolpulse/pkg/models"
)

// Source fetches raw, source-shaped pool records from one upstream API.
// Implementations degrade to an empty slice on partial upstream failure;
// a returned error means the whole fetch produced nothing usable.
type Source interface {
	FetchPools(ctx context.Context) ([]models.RawPool, error)
	Name() models.Source
	Rank() int
}
