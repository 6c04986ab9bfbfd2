package syncx

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/logger"
)

// SortCategory selects the ordering of the composed view
type SortCategory string

const (
	SortRelevance SortCategory = "relevance"
	SortCreated   SortCategory = "created"
	SortUpdated   SortCategory = "updated"
	SortVotes     SortCategory = "votes"
	SortDownloads SortCategory = "downloads"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is a sort specification
type Sort struct {
	Category  SortCategory
	Direction SortDirection
}

// Query holds the client-evaluated browse criteria
type Query struct {
	// Search matches title, author, description, the aircraft/category/
	// texture-type attributes and id. A term that parses as a UUID
	// short-circuits to an exact id match.
	Search       string
	Aircraft     []string
	Categories   []string
	TextureTypes []string
	Sort         Sort
}

// View is the incrementally revealed window over the composed dataset
type View struct {
	Visible  []api.Record
	HasMore  bool
	Filtered int
}

// Relevance scoring weights. Additive fixed tiers, not a ranking
// model; ties keep collection order.
const (
	scoreTitleExact     = 100
	scoreTitleSubstring = 50
	scoreAuthor         = 25
	scoreAttribute      = 10
	scoreDescription    = 5
)

// Composer combines the preloader's working dataset (or, before it is
// ready, directly fetched pages) with search/filter/sort criteria and
// exposes a growing visible window.
type Composer struct {
	preloader *Preloader
	querier   api.Querier
	entity    api.EntityType
	pageSize  int

	mu           sync.Mutex
	query        Query
	page         int
	fallback     []api.Record
	fallbackDone bool
}

// NewComposer creates a composer over a preloader with a paginated
// fallback querier
func NewComposer(preloader *Preloader, querier api.Querier, entity api.EntityType, pageSize int) *Composer {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Composer{
		preloader: preloader,
		querier:   querier,
		entity:    entity,
		pageSize:  pageSize,
	}
}

// SetQuery replaces the browse criteria and resets the window to the
// top of the newly computed ordering
func (c *Composer) SetQuery(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = q
	c.page = 0
}

// Query returns the current criteria
func (c *Composer) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// LoadMore grows the visible window by one page. With a preloaded
// dataset this is a pure client-side slice; on the paginated fallback
// it fetches the next remote page.
func (c *Composer) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	c.page++
	needFetch := !c.preloader.Ready() && !c.fallbackDone
	c.mu.Unlock()

	if needFetch {
		return c.fetchFallbackPage(ctx)
	}
	return nil
}

// View computes the filtered, sorted, windowed collection. Before the
// preloader publishes a dataset the first fallback page is fetched on
// demand.
func (c *Composer) View(ctx context.Context) (View, error) {
	dataset := c.preloader.Dataset()
	usingFallback := dataset == nil

	if usingFallback {
		c.mu.Lock()
		empty := len(c.fallback) == 0 && !c.fallbackDone
		c.mu.Unlock()
		if empty {
			if err := c.fetchFallbackPage(ctx); err != nil {
				return View{}, err
			}
		}
		c.mu.Lock()
		dataset = c.fallback
		c.mu.Unlock()
	}

	c.mu.Lock()
	query := c.query
	window := (c.page + 1) * c.pageSize
	moreRemote := usingFallback && !c.fallbackDone
	c.mu.Unlock()

	filtered := filterRecords(dataset, query)
	sortRecords(filtered, query)

	visible := filtered
	if len(visible) > window {
		visible = visible[:window]
	}

	return View{
		Visible:  visible,
		HasMore:  len(filtered) > window || moreRemote,
		Filtered: len(filtered),
	}, nil
}

func (c *Composer) fetchFallbackPage(ctx context.Context) error {
	c.mu.Lock()
	offset := len(c.fallback)
	c.mu.Unlock()

	batch, err := c.querier.FetchPage(ctx, c.entity, offset, c.pageSize)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(c.fallback))
	for _, r := range c.fallback {
		seen[r.ID] = true
	}
	for _, r := range batch {
		if !seen[r.ID] {
			c.fallback = append(c.fallback, r)
		}
	}
	if len(batch) < c.pageSize {
		c.fallbackDone = true
	}

	logger.Debug("Fetched fallback page",
		"entity", c.entity, "offset", offset, "records", len(batch))
	return nil
}

// filterRecords applies search and multi-select predicates
func filterRecords(records []api.Record, q Query) []api.Record {
	term := strings.TrimSpace(q.Search)

	// A well-formed identifier matches exactly one record
	if term != "" {
		if _, err := uuid.Parse(term); err == nil {
			for _, r := range records {
				if strings.EqualFold(r.ID, term) && matchesSelections(r, q) {
					return []api.Record{r}
				}
			}
			return []api.Record{}
		}
	}

	lowered := strings.ToLower(term)
	out := make([]api.Record, 0, len(records))
	for _, r := range records {
		if !matchesSelections(r, q) {
			continue
		}
		if lowered != "" && !matchesSearch(r, lowered) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesSelections(r api.Record, q Query) bool {
	return selected(q.Aircraft, r.Aircraft) &&
		selected(q.Categories, r.Category) &&
		selected(q.TextureTypes, r.TextureType)
}

func selected(choices []string, value string) bool {
	if len(choices) == 0 {
		return true
	}
	for _, c := range choices {
		if strings.EqualFold(c, value) {
			return true
		}
	}
	return false
}

func matchesSearch(r api.Record, lowered string) bool {
	return strings.Contains(strings.ToLower(r.Title), lowered) ||
		strings.Contains(strings.ToLower(r.Author), lowered) ||
		strings.Contains(strings.ToLower(r.Description), lowered) ||
		strings.Contains(strings.ToLower(r.Aircraft), lowered) ||
		strings.Contains(strings.ToLower(r.Category), lowered) ||
		strings.Contains(strings.ToLower(r.TextureType), lowered) ||
		strings.Contains(strings.ToLower(r.ID), lowered)
}

// relevanceScore ranks a record against a search term with fixed
// additive weights
func relevanceScore(r api.Record, lowered string) int {
	score := 0

	title := strings.ToLower(r.Title)
	if title == lowered {
		score += scoreTitleExact
	}
	if strings.Contains(title, lowered) {
		score += scoreTitleSubstring
	}
	if strings.Contains(strings.ToLower(r.Author), lowered) {
		score += scoreAuthor
	}
	if strings.Contains(strings.ToLower(r.Aircraft), lowered) ||
		strings.Contains(strings.ToLower(r.Category), lowered) ||
		strings.Contains(strings.ToLower(r.TextureType), lowered) {
		score += scoreAttribute
	}
	if strings.Contains(strings.ToLower(r.Description), lowered) {
		score += scoreDescription
	}

	return score
}

// sortRecords orders the filtered collection in place. The sort is
// stable so equal keys keep collection order.
func sortRecords(records []api.Record, q Query) {
	category := q.Sort.Category
	if category == "" {
		category = SortCreated
	}
	desc := q.Sort.Direction != SortAsc

	var less func(a, b api.Record) bool

	switch category {
	case SortRelevance:
		lowered := strings.ToLower(strings.TrimSpace(q.Search))
		if lowered == "" {
			return // Relevance without a term keeps collection order
		}
		scores := make(map[string]int, len(records))
		for _, r := range records {
			scores[r.ID] = relevanceScore(r, lowered)
		}
		less = func(a, b api.Record) bool { return scores[a.ID] < scores[b.ID] }
	case SortUpdated:
		less = func(a, b api.Record) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortVotes:
		less = func(a, b api.Record) bool { return a.NetVotes() < b.NetVotes() }
	case SortDownloads:
		less = func(a, b api.Record) bool { return a.DownloadCount < b.DownloadCount }
	default:
		less = func(a, b api.Record) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}

	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
