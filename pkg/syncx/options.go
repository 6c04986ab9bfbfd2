package syncx

import (
	"context"
	"sort"
	"strings"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/logger"
)

// FilterOptions are the selectable values for each filterable field
type FilterOptions struct {
	Aircraft     []string
	Categories   []string
	TextureTypes []string
}

// FetchFilterOptions asks the server for its distinct-values aggregate
// per field, falling back to computing distinct values from the working
// dataset when the aggregate is unavailable.
func FetchFilterOptions(ctx context.Context, querier api.Querier, entity api.EntityType, dataset []api.Record) FilterOptions {
	return FilterOptions{
		Aircraft:     fieldOptions(ctx, querier, entity, "aircraft", dataset, func(r api.Record) string { return r.Aircraft }),
		Categories:   fieldOptions(ctx, querier, entity, "category", dataset, func(r api.Record) string { return r.Category }),
		TextureTypes: fieldOptions(ctx, querier, entity, "texture_type", dataset, func(r api.Record) string { return r.TextureType }),
	}
}

func fieldOptions(ctx context.Context, querier api.Querier, entity api.EntityType, field string, dataset []api.Record, get func(api.Record) string) []string {
	values, err := querier.DistinctValues(ctx, entity, field)
	if err == nil {
		sort.Strings(values)
		return values
	}

	logger.Debug("Distinct-values aggregate unavailable, computing locally",
		"entity", entity, "field", field, "error", err)
	return distinctLocal(dataset, get)
}

func distinctLocal(records []api.Record, get func(api.Record) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, r := range records {
		v := strings.TrimSpace(get(r))
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if !seen[key] {
			seen[key] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values
}
