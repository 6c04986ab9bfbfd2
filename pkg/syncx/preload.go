package syncx

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/logger"
	"github.com/hangarshare/cli/pkg/store"
)

// Progress reports how far the background preload has come
type Progress struct {
	Loaded     int
	Total      int
	TotalKnown bool
	Loading    bool
}

// Preloader obtains the complete approved collection for one entity
// type with minimal perceived latency: a previously persisted snapshot
// is published immediately while the full catalog is re-fetched in
// sequential bounded batches (stale-while-revalidate).
//
// The preloader owns the working dataset. Realtime deltas are folded in
// through ApplyEvent; the view composer reads snapshots via Dataset.
type Preloader struct {
	querier   api.Querier
	cache     *store.Store
	entity    api.EntityType
	batchSize int

	abort atomic.Bool

	mu       sync.Mutex
	dataset  []api.Record // nil until a snapshot or preload publishes
	loaded   bool         // a full preload completed this session
	loading  bool
	restart  bool // ClearCache arrived while a job was in flight
	progress Progress
}

// NewPreloader creates a preloader for an entity collection
func NewPreloader(querier api.Querier, cache *store.Store, entity api.EntityType, batchSize int) *Preloader {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Preloader{
		querier:   querier,
		cache:     cache,
		entity:    entity,
		batchSize: batchSize,
	}
}

// Dataset returns the current working dataset, or nil before any
// snapshot has been published. Callers must treat it as read-only.
func (p *Preloader) Dataset() []api.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dataset
}

// Ready reports whether a working dataset exists
func (p *Preloader) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dataset != nil
}

// Loaded reports whether a full preload completed this session
func (p *Preloader) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Progress returns the current preload progress
func (p *Preloader) Progress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// ApplyEvent folds a change event into the working dataset. Events
// arriving before a dataset exists are dropped.
func (p *Preloader) ApplyEvent(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dataset = Merge(p.dataset, ev)
}

// Start launches the preload pipeline in the background. At most one
// job per preloader runs at a time; triggering while one is running or
// after one completed is a no-op.
func (p *Preloader) Start(ctx context.Context) {
	if !p.begin() {
		return
	}
	go p.run(ctx)
}

// Run executes the pipeline on the calling goroutine, with the same
// single-flight guard as Start
func (p *Preloader) Run(ctx context.Context) {
	if !p.begin() {
		return
	}
	p.run(ctx)
}

// Abort requests cooperative cancellation. The flag is checked between
// batches; an in-flight batch request always completes first. Whatever
// was already merged stays published, but the cache entry is left
// untouched so a partial catalog is never persisted as complete.
func (p *Preloader) Abort() {
	p.abort.Store(true)
}

// ClearCache discards the persisted snapshot, resets the working
// dataset to unloaded, and re-triggers the full pipeline from scratch.
// A job already in flight is aborted and its epilogue relaunches the
// pipeline; its partial fetch never reaches the reset dataset.
func (p *Preloader) ClearCache(ctx context.Context) error {
	p.Abort()

	if err := p.cache.Clear(store.DatasetKey(p.entity)); err != nil {
		return err
	}

	p.mu.Lock()
	p.dataset = nil
	p.loaded = false
	p.progress = Progress{}
	if p.loading {
		p.restart = true
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.Start(ctx)
	return nil
}

func (p *Preloader) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loading || p.loaded {
		return false
	}
	p.loading = true
	p.progress.Loading = true
	return true
}

func (p *Preloader) run(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.loading = false
		p.progress.Loading = false
		restart := p.restart
		p.restart = false
		p.mu.Unlock()

		if restart {
			p.Start(ctx)
		}
	}()

	p.abort.Store(false)
	cached := p.restore()

	// Total count first, for progress reporting. A failed count is not
	// fatal; the batch loop terminates on a short batch regardless.
	total, err := p.querier.FetchCount(ctx, p.entity)
	if err != nil {
		logger.Warn("Count query failed", "entity", p.entity, "error", err)
	} else {
		p.mu.Lock()
		p.progress.Total = total
		p.progress.TotalKnown = true
		p.mu.Unlock()
	}

	var fetched []api.Record
	aborted := false
	failed := false

	for offset := 0; ; {
		if p.abort.Load() {
			aborted = true
			break
		}

		batch, err := p.querier.FetchPage(ctx, p.entity, offset, p.batchSize)
		if err != nil {
			// Transient failure ends the job early; what arrived so far
			// is still merged and published below
			logger.Warn("Batch fetch failed, publishing partial preload",
				"entity", p.entity, "offset", offset, "error", err)
			failed = true
			break
		}

		fetched = append(fetched, batch...)
		offset += len(batch)

		p.mu.Lock()
		p.progress.Loaded = len(fetched)
		p.mu.Unlock()

		if len(batch) < p.batchSize {
			break // End of data
		}
	}

	// Freshly fetched copies win over stale cached ones
	merged := mergeCollections(fetched, cached)
	complete := !aborted && !failed

	p.mu.Lock()
	if p.restart {
		// ClearCache reset the state while this job was winding down;
		// whatever it fetched belongs to the discarded snapshot
		p.mu.Unlock()
		return
	}
	// A job that produced nothing publishes nothing, so the view
	// composer keeps its paginated fallback
	if complete || len(merged) > 0 {
		p.dataset = merged
		p.progress.Loaded = len(merged)
	}
	p.loaded = complete
	p.mu.Unlock()

	if !complete {
		logger.Debug("Preload stopped early",
			"entity", p.entity, "aborted", aborted, "fetched", len(fetched))
		return
	}

	if err := p.cache.Set(store.DatasetKey(p.entity), merged); err != nil {
		// Soft failure: this session keeps its in-memory dataset and
		// the next successful preload rewrites the entry
		logger.Warn("Failed to persist dataset", "entity", p.entity, "error", err)
	}

	logger.Debug("Preload complete", "entity", p.entity, "records", len(merged))
}

// restore publishes the persisted snapshot, if any, as the initial
// working dataset and returns it
func (p *Preloader) restore() []api.Record {
	entry, err := p.cache.Get(store.DatasetKey(p.entity))
	if err != nil {
		logger.Warn("Cache read failed", "entity", p.entity, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}

	p.mu.Lock()
	if p.dataset == nil {
		p.dataset = entry.Records
		p.progress.Loaded = len(entry.Records)
	}
	cached := p.dataset
	p.mu.Unlock()

	logger.Debug("Serving cached dataset",
		"entity", p.entity, "records", len(entry.Records), "stored_at", entry.StoredAt)
	return cached
}

// mergeCollections deduplicates by id with fresh records taking
// precedence over previously cached ones
func mergeCollections(fresh, cached []api.Record) []api.Record {
	out := make([]api.Record, 0, len(fresh)+len(cached))
	seen := make(map[string]bool, len(fresh))

	for _, r := range fresh {
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	for _, r := range cached {
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out
}
