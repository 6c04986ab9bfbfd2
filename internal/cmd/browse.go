package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/config"
	"github.com/hangarshare/cli/pkg/errors"
	"github.com/hangarshare/cli/pkg/formatter"
	"github.com/hangarshare/cli/pkg/output"
	"github.com/hangarshare/cli/pkg/store"
	"github.com/hangarshare/cli/pkg/syncx"
)

var (
	browseType       string
	browseSearch     string
	browseAircraft   []string
	browseCategory   []string
	browseTexType    []string
	browseSort       string
	browseDirection  string
	browsePageSize   int
	browsePages      int
	browseFollow     bool
	browseRefresh    bool
	browseShowFilter bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the approved texture catalog",
	Long: `Browse fetches the approved catalog for textures or packs,
serving the locally cached copy instantly while the full catalog is
refreshed in the background. Search, filters and sorting are evaluated
client-side over the complete dataset once it is available.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseType, "type", "t", "textures", "Entity type: textures or packs")
	browseCmd.Flags().StringVarP(&browseSearch, "search", "s", "", "Free-text search (title, author, description, id)")
	browseCmd.Flags().StringSliceVar(&browseAircraft, "aircraft", nil, "Filter by aircraft (repeatable)")
	browseCmd.Flags().StringSliceVar(&browseCategory, "category", nil, "Filter by category (repeatable)")
	browseCmd.Flags().StringSliceVar(&browseTexType, "texture-type", nil, "Filter by texture type (repeatable)")
	browseCmd.Flags().StringVar(&browseSort, "sort", "created", "Sort by: relevance, created, updated, votes, downloads")
	browseCmd.Flags().StringVar(&browseDirection, "direction", "desc", "Sort direction: asc or desc")
	browseCmd.Flags().IntVar(&browsePageSize, "page-size", 0, "Visible window page size (default from config)")
	browseCmd.Flags().IntVar(&browsePages, "pages", 1, "Number of pages to reveal")
	browseCmd.Flags().BoolVarP(&browseFollow, "follow", "f", false, "Keep running and apply live changes")
	browseCmd.Flags().BoolVar(&browseRefresh, "refresh", false, "Discard the cached catalog and refetch from scratch")
	browseCmd.Flags().BoolVar(&browseShowFilter, "list-filters", false, "List the available filter values")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	entity, ok := api.ParseEntityType(browseType)
	if !ok {
		return errors.ValidationError("type", "must be 'textures' or 'packs'")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.New(config.GetCacheDir())
	if err != nil {
		return errors.CacheError("could not open local cache", err)
	}

	querier := api.NewClientFromConfig()
	preloader := syncx.NewPreloader(querier, st, entity, config.GetInt("preload.batch_size"))

	if browseRefresh {
		if err := preloader.ClearCache(ctx); err != nil {
			return errors.CacheError("could not clear cached catalog", err)
		}
	} else {
		preloader.Start(ctx)
	}

	waitForPreload(preloader)

	pageSize := browsePageSize
	if pageSize <= 0 {
		pageSize = config.GetInt("browse.page_size")
	}

	composer := syncx.NewComposer(preloader, querier, entity, pageSize)
	composer.SetQuery(syncx.Query{
		Search:       browseSearch,
		Aircraft:     browseAircraft,
		Categories:   browseCategory,
		TextureTypes: browseTexType,
		Sort: syncx.Sort{
			Category:  syncx.SortCategory(browseSort),
			Direction: syncx.SortDirection(browseDirection),
		},
	})

	for i := 1; i < browsePages; i++ {
		if err := composer.LoadMore(ctx); err != nil {
			return errors.CategorizeError(err)
		}
	}

	if err := renderView(ctx, composer, entity); err != nil {
		return err
	}

	if browseShowFilter {
		renderFilterOptions(ctx, querier, entity, preloader.Dataset())
	}

	if browseFollow {
		return followChanges(ctx, st, preloader, composer, entity)
	}

	preloader.Abort()
	return nil
}

// waitForPreload blocks until the background preload settles, showing
// progress on the way
func waitForPreload(preloader *syncx.Preloader) {
	for {
		progress := preloader.Progress()
		if !progress.Loading {
			break
		}
		if progress.TotalKnown {
			fmt.Fprintf(os.Stderr, "\rLoading catalog... %d/%d", progress.Loaded, progress.Total)
		} else {
			fmt.Fprintf(os.Stderr, "\rLoading catalog... %d", progress.Loaded)
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Fprint(os.Stderr, "\r\033[K")
}

func renderView(ctx context.Context, composer *syncx.Composer, entity api.EntityType) error {
	view, err := composer.View(ctx)
	if err != nil {
		return errors.CategorizeError(err)
	}

	// JSON output gets the records themselves, not the table cells
	if output.GetOutputFormat() == output.FormatJSON {
		return formatter.PrintJSON(view.Visible)
	}

	headers := []string{"ID", "Title", "Author", "Aircraft", "Votes", "Downloads", "Updated"}
	rows := make([][]string, 0, len(view.Visible))
	for _, r := range view.Visible {
		rows = append(rows, []string{
			truncateString(r.ID, 12),
			truncateString(r.Title, 32),
			truncateString(r.Author, 20),
			r.Aircraft,
			fmt.Sprintf("%d", r.NetVotes()),
			fmt.Sprintf("%d", r.DownloadCount),
			r.UpdatedAt.Format("2006-01-02"),
		})
	}

	formatter.PrintTable(headers, rows)

	if view.HasMore {
		formatter.PrintInfo("Showing %d of %d %s - rerun with --pages %d for more",
			len(view.Visible), view.Filtered, entity, browsePages+1)
	} else {
		formatter.PrintInfo("Showing all %d matching %s", view.Filtered, entity)
	}
	return nil
}

func renderFilterOptions(ctx context.Context, querier api.Querier, entity api.EntityType, dataset []api.Record) {
	options := syncx.FetchFilterOptions(ctx, querier, entity, dataset)
	formatter.PrintInfo("Aircraft: %s", strings.Join(options.Aircraft, ", "))
	formatter.PrintInfo("Categories: %s", strings.Join(options.Categories, ", "))
	formatter.PrintInfo("Texture types: %s", strings.Join(options.TextureTypes, ", "))
}

// followChanges keeps the view live: change events are folded into the
// working dataset and the persisted cache, and the window re-renders.
func followChanges(ctx context.Context, st *store.Store, preloader *syncx.Preloader, composer *syncx.Composer, entity api.EntityType) error {
	dialer := syncx.NewWSDialer(channelConfig())
	sub := syncx.NewSubscription(dialer, st, subscriptionConfig(entity))

	rerender := make(chan struct{}, 1)
	apply := func(ev syncx.Event) {
		preloader.ApplyEvent(ev)
		select {
		case rerender <- struct{}{}:
		default:
		}
	}

	sub.SetHandlers(syncx.Handlers{
		OnInsert: apply,
		OnUpdate: apply,
		OnDelete: apply,
		OnError: func(err error) {
			formatter.PrintWarning("%s", errors.SubscriptionError("live updates interrupted", err).Message)
		},
	})
	sub.Start()
	defer sub.Close()
	defer preloader.Abort()

	formatter.PrintInfo("Following live changes. Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			fmt.Println()
			formatter.PrintSuccess("Stopped following changes")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-rerender:
			fmt.Println()
			if err := renderView(ctx, composer, entity); err != nil {
				return err
			}
		}
	}
}
