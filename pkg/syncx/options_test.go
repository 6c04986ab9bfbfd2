package syncx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hangarshare/cli/pkg/api"
)

func TestFetchFilterOptionsUsesServerAggregate(t *testing.T) {
	fq := &fakeQuerier{distinct: map[string][]string{
		"aircraft":     {"dc3", "a320"},
		"category":     {"airline"},
		"texture_type": {"livery", "cockpit"},
	}}

	opts := FetchFilterOptions(context.Background(), fq, api.EntityTextures, nil)

	assert.Equal(t, []string{"a320", "dc3"}, opts.Aircraft)
	assert.Equal(t, []string{"airline"}, opts.Categories)
	assert.Equal(t, []string{"cockpit", "livery"}, opts.TextureTypes)
}

func TestFetchFilterOptionsFallsBackToDataset(t *testing.T) {
	fq := &fakeQuerier{distinctErr: errors.New("aggregate unavailable")}

	a := testRecord("a", "Alpha")
	b := testRecord("b", "Bravo")
	b.Aircraft = "b738"
	b.Category = "military"
	dup := testRecord("c", "Charlie")
	dup.Aircraft = "A320" // same aircraft, different case
	blank := testRecord("d", "Delta")
	blank.Aircraft = "  "

	opts := FetchFilterOptions(context.Background(), fq, api.EntityTextures,
		[]api.Record{a, b, dup, blank})

	assert.Equal(t, []string{"a320", "b738"}, opts.Aircraft)
	assert.Equal(t, []string{"airline", "military"}, opts.Categories)
	assert.Equal(t, []string{"livery"}, opts.TextureTypes)
}
