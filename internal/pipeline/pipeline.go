package pipeline

import (
	"context"
	"errors"
	"time"

	"poolpulse/internal/metrics"
	"poolpulse/internal/normalize"
	"poolpulse/internal/orchestrator"
	"poolpulse/internal/persistence"
	"poolpulse/internal/rank"
	"poolpulse/internal/source"
	"poolpulse/pkg/models"

	"github.com/rs/zerolog/log"
)

// ErrNoData is the only failure a cycle surfaces: every source returned empty.
var ErrNoData = errors.New("all sources returned no data")

// Result is the outcome of one refresh cycle, handed to the presentation
// layer. Categories always contains every pair-type key.
type Result struct {
	Categories map[models.PairType][]*models.Pool
	Ranked     []*models.Pool
	PoolCount  int
	StartedAt  time.Time
	Duration   time.Duration
	Err        error
}

// Config holds pipeline scheduling and snapshot settings.
type Config struct {
	Interval     time.Duration
	SnapshotTopN int
}

// Pipeline owns the refresh cycle: orchestrate, normalize, validate, score,
// categorize. It rebuilds the full result set every cycle; nothing persists
// across cycles except the adapters' response cache, which the runner clears
// at the start of each cycle so a refresh returns to the network.
type Pipeline struct {
	cfg        Config
	orch       *orchestrator.Orchestrator
	normalizer *normalize.Normalizer
	validator  *rank.Validator
	scorer     *rank.Scorer
	cache      *source.Cache
	store      *persistence.Store
	metrics    *metrics.Metrics

	refreshCh chan struct{}
	results   chan Result
}

// New wires a pipeline. store may be nil to disable snapshots.
func New(
	cfg Config,
	orch *orchestrator.Orchestrator,
	normalizer *normalize.Normalizer,
	validator *rank.Validator,
	scorer *rank.Scorer,
	cache *source.Cache,
	store *persistence.Store,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		orch:       orch,
		normalizer: normalizer,
		validator:  validator,
		scorer:     scorer,
		cache:      cache,
		store:      store,
		metrics:    m,
		refreshCh:  make(chan struct{}, 1),
		results:    make(chan Result, 1),
	}
}

// Results returns the channel on which cycle results are published. Only the
// latest unconsumed result is kept; a stale one is discarded when a newer
// cycle completes.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// Refresh requests an immediate out-of-schedule cycle. Non-blocking; a
// request while one is already pending is a no-op.
func (p *Pipeline) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Run executes one cycle immediately, then on every tick or manual refresh
// until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	// A non-positive interval would panic the ticker; fall back to a floor so
	// callers constructing Config directly stay safe.
	interval := p.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Starting refresh runner")

	p.publish(p.RunCycle(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.publish(p.RunCycle(ctx))
		case <-p.refreshCh:
			p.publish(p.RunCycle(ctx))
		}
	}
}

// RunCycle performs one full refresh cycle and returns its result.
func (p *Pipeline) RunCycle(ctx context.Context) Result {
	start := time.Now()
	p.cache.Clear()

	raw := p.orch.FetchAllPools(ctx)

	pools := p.normalizer.NormalizeAll(raw)
	valid := p.validator.Filter(pools)
	p.scorer.Score(valid)
	p.scorer.Sort(valid)
	categories := rank.Categorize(valid)

	res := Result{
		Categories: categories,
		Ranked:     valid,
		PoolCount:  len(valid),
		StartedAt:  start,
		Duration:   time.Since(start),
	}

	status := "success"
	if len(raw) == 0 {
		res.Err = ErrNoData
		status = "no_data"
		log.Error().Dur("duration", res.Duration).Msg("Refresh cycle produced no data")
	} else {
		log.Info().
			Int("raw", len(raw)).
			Int("normalized", len(pools)).
			Int("ranked", len(valid)).
			Dur("duration", res.Duration).
			Msg("Refresh cycle complete")
	}

	p.metrics.RecordCycle(status, res.Duration)
	byCategory := make(map[string]int, len(categories))
	for pt, bucket := range categories {
		byCategory[string(pt)] = len(bucket)
	}
	p.metrics.SetPoolsRanked(len(valid), byCategory)

	p.persist(ctx, res, status)

	return res
}

// publish replaces any unconsumed result with the newest one.
func (p *Pipeline) publish(res Result) {
	for {
		select {
		case p.results <- res:
			return
		default:
			select {
			case <-p.results:
			default:
			}
		}
	}
}

func (p *Pipeline) persist(ctx context.Context, res Result, status string) {
	if p.store == nil {
		return
	}

	reason := ""
	if res.Err != nil {
		reason = res.Err.Error()
	}

	cycleID, err := p.store.RecordCycle(ctx, persistence.CycleRecord{
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
		PoolCount:  res.PoolCount,
		Status:     status,
		Reason:     reason,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record cycle")
		return
	}

	if err := p.store.SaveSnapshot(ctx, cycleID, res.Ranked, p.cfg.SnapshotTopN); err != nil {
		log.Warn().Err(err).Msg("Failed to save cycle snapshot")
	}
}
