package syncx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hangarshare/cli/pkg/api"
)

// loadedComposer returns a composer whose preloader holds the given
// dataset
func loadedComposer(t *testing.T, records []api.Record, pageSize int) *Composer {
	t.Helper()

	fq := &fakeQuerier{records: records}
	p := NewPreloader(fq, newTestStore(t), api.EntityTextures, len(records)+1)
	p.Run(context.Background())
	require.True(t, p.Loaded())

	return NewComposer(p, fq, api.EntityTextures, pageSize)
}

func datedRecord(id, title string, created time.Time) api.Record {
	r := testRecord(id, title)
	r.CreatedAt = created
	r.UpdatedAt = created
	return r
}

func TestComposerWindowMonotonicity(t *testing.T) {
	records := []api.Record{
		testRecord("a", "Alpha"),
		testRecord("b", "Bravo"),
		testRecord("c", "Charlie"),
		testRecord("d", "Delta"),
		testRecord("e", "Echo"),
	}
	c := loadedComposer(t, records, 2)
	ctx := context.Background()

	for k := 0; k <= 4; k++ {
		view, err := c.View(ctx)
		require.NoError(t, err)

		want := (k + 1) * 2
		if want > len(records) {
			want = len(records)
		}
		assert.Len(t, view.Visible, want, "after %d LoadMore calls", k)
		assert.Equal(t, want < len(records), view.HasMore)

		require.NoError(t, c.LoadMore(ctx))
	}
}

func TestComposerSortByUploadDateDescending(t *testing.T) {
	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	c := loadedComposer(t, []api.Record{
		datedRecord("r1", "First", t1),
		datedRecord("r2", "Second", t2),
		datedRecord("r3", "Third", t3),
	}, 2)
	c.SetQuery(Query{Sort: Sort{Category: SortCreated, Direction: SortDesc}})
	ctx := context.Background()

	view, err := c.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Visible, 2)
	assert.Equal(t, "r3", view.Visible[0].ID)
	assert.Equal(t, "r2", view.Visible[1].ID)
	assert.True(t, view.HasMore)

	require.NoError(t, c.LoadMore(ctx))

	view, err = c.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Visible, 3)
	assert.Equal(t, "r1", view.Visible[2].ID)
	assert.False(t, view.HasMore)
}

func TestComposerQueryChangeResetsWindow(t *testing.T) {
	c := loadedComposer(t, []api.Record{
		testRecord("a", "Alpha"),
		testRecord("b", "Bravo"),
		testRecord("c", "Charlie"),
	}, 1)
	ctx := context.Background()

	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.LoadMore(ctx))

	view, err := c.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Visible, 3)

	c.SetQuery(Query{Sort: Sort{Category: SortCreated}})

	view, err = c.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Visible, 1, "changing criteria must reset to the first page")
}

func TestComposerUUIDSearchShortCircuits(t *testing.T) {
	id := "5f0e8c7a-1b2d-4e3f-9a8b-7c6d5e4f3a2b"
	records := []api.Record{
		testRecord("a", "Alpha"),
		testRecord(id, "Special"),
		testRecord("c", id), // id appears in another record's title
	}
	c := loadedComposer(t, records, 10)

	c.SetQuery(Query{Search: id})

	view, err := c.View(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Visible, 1)
	assert.Equal(t, id, view.Visible[0].ID)
	assert.False(t, view.HasMore)
}

func TestComposerRelevanceTiers(t *testing.T) {
	mk := func(id, title, author, category, description string) api.Record {
		r := testRecord(id, title)
		r.Author = author
		r.Category = category
		r.Description = description
		return r
	}

	c := loadedComposer(t, []api.Record{
		mk("desc", "Unrelated", "someone", "freight", "a desert camo variant"),
		mk("cat", "Unrelated", "someone", "desert ops", "plain"),
		mk("author", "Unrelated", "desertfox", "freight", "plain"),
		mk("sub", "Desert Storm Pack", "someone", "freight", "plain"),
		mk("exact", "desert", "someone", "freight", "plain"),
	}, 10)

	c.SetQuery(Query{
		Search: "desert",
		Sort:   Sort{Category: SortRelevance, Direction: SortDesc},
	})

	view, err := c.View(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Visible, 5)

	order := make([]string, 0, 5)
	for _, r := range view.Visible {
		order = append(order, r.ID)
	}
	assert.Equal(t, []string{"exact", "sub", "author", "cat", "desc"}, order)
}

func TestComposerVotesAndDownloadsSort(t *testing.T) {
	low := testRecord("low", "Low")
	low.Upvotes, low.Downvotes, low.DownloadCount = 2, 5, 10
	high := testRecord("high", "High")
	high.Upvotes, high.Downvotes, high.DownloadCount = 9, 1, 2

	c := loadedComposer(t, []api.Record{low, high}, 10)
	ctx := context.Background()

	c.SetQuery(Query{Sort: Sort{Category: SortVotes, Direction: SortDesc}})
	view, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "high", view.Visible[0].ID)

	c.SetQuery(Query{Sort: Sort{Category: SortDownloads, Direction: SortDesc}})
	view, err = c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, "low", view.Visible[0].ID)
}

func TestComposerMultiSelectFilters(t *testing.T) {
	a320 := testRecord("a", "Alpha")
	a320.Aircraft = "a320"
	b738 := testRecord("b", "Bravo")
	b738.Aircraft = "b738"
	dc3 := testRecord("c", "Charlie")
	dc3.Aircraft = "dc3"

	c := loadedComposer(t, []api.Record{a320, b738, dc3}, 10)
	c.SetQuery(Query{Aircraft: []string{"A320", "DC3"}})

	view, err := c.View(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Visible, 2)
	assert.Equal(t, 2, view.Filtered)
}

func TestComposerFallbackPagination(t *testing.T) {
	fq := &fakeQuerier{records: []api.Record{
		testRecord("a", "Alpha"),
		testRecord("b", "Bravo"),
		testRecord("c", "Charlie"),
	}}

	// Preloader never runs, so the composer pages against the server
	p := NewPreloader(fq, newTestStore(t), api.EntityTextures, 10)
	c := NewComposer(p, fq, api.EntityTextures, 2)
	ctx := context.Background()

	view, err := c.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Visible, 2)
	assert.True(t, view.HasMore)
	assert.Equal(t, 1, fq.calls())

	require.NoError(t, c.LoadMore(ctx))

	view, err = c.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Visible, 3)
	assert.False(t, view.HasMore)
	assert.Equal(t, 2, fq.calls())
}

func TestComposerPreloadedLoadMoreIsClientSide(t *testing.T) {
	c := loadedComposer(t, []api.Record{
		testRecord("a", "Alpha"),
		testRecord("b", "Bravo"),
		testRecord("c", "Charlie"),
	}, 1)
	ctx := context.Background()

	fq := c.querier.(*fakeQuerier)
	calls := fq.calls()

	require.NoError(t, c.LoadMore(ctx))
	_, err := c.View(ctx)
	require.NoError(t, err)

	assert.Equal(t, calls, fq.calls(), "preloaded paging must not hit the network")
}

func TestComposerDeleteEventShrinksWindow(t *testing.T) {
	fq := &fakeQuerier{records: []api.Record{
		testRecord("a", "Alpha"),
		testRecord("b", "Bravo"),
	}}
	p := NewPreloader(fq, newTestStore(t), api.EntityTextures, 10)
	p.Run(context.Background())
	require.True(t, p.Loaded())

	c := NewComposer(p, fq, api.EntityTextures, 10)
	ctx := context.Background()

	view, err := c.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Visible, 2)

	p.ApplyEvent(DeleteEvent("a"))

	view, err = c.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Visible, 1)
	assert.Equal(t, "b", view.Visible[0].ID)
}
