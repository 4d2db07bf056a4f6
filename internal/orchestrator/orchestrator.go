package orchestrator

import (
	"context"
	"sync"

	"poolpulse/internal/source"
	"poolpulse/pkg/models"

	"github.com/rs/zerolog/log"
)

// Orchestrator runs every configured source concurrently and merges their raw
// records, stamping each with provenance. Union policy: failed sources
// contribute nothing and never fail the cycle; an all-empty merge is a
// legitimate result that the caller decides how to treat.
type Orchestrator struct {
	sources []source.Source
}

// New creates an orchestrator over the given sources.
func New(sources ...source.Source) *Orchestrator {
	return &Orchestrator{sources: sources}
}

// FetchAllPools fans out to every source, awaits all of them, and returns the
// concatenation of the successful results tagged with source and rank.
func (o *Orchestrator) FetchAllPools(ctx context.Context) []models.RawPool {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []models.RawPool
	)

	for _, src := range o.sources {
		wg.Add(1)
		go func(s source.Source) {
			defer wg.Done()

			records, err := s.FetchPools(ctx)
			if err != nil {
				log.Warn().Err(err).Str("source", string(s.Name())).
					Msg("Source fetch failed, continuing without it")
				return
			}

			for i := range records {
				records[i].Source = s.Name()
				records[i].SourceRank = s.Rank()
			}

			mu.Lock()
			all = append(all, records...)
			mu.Unlock()

			log.Debug().Str("source", string(s.Name())).Int("records", len(records)).
				Msg("Source fetch complete")
		}(src)
	}

	wg.Wait()
	return all
}
