package syncx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hangarshare/cli/pkg/api"
)

// fakeQuerier serves pages out of an in-memory record list
type fakeQuerier struct {
	mu          sync.Mutex
	records     []api.Record
	countErr    error
	pageErr     map[int]error // keyed by offset
	onPage      func(offset int)
	pageCalls   int
	distinct    map[string][]string
	distinctErr error
}

func (f *fakeQuerier) FetchPage(ctx context.Context, entity api.EntityType, offset, limit int) ([]api.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pageCalls++
	if f.onPage != nil {
		f.onPage(offset)
	}
	if err := f.pageErr[offset]; err != nil {
		return nil, err
	}
	if offset >= len(f.records) {
		return []api.Record{}, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	out := make([]api.Record, end-offset)
	copy(out, f.records[offset:end])
	return out, nil
}

func (f *fakeQuerier) FetchCount(ctx context.Context, entity api.EntityType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.records), nil
}

func (f *fakeQuerier) DistinctValues(ctx context.Context, entity api.EntityType, field string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.distinctErr != nil {
		return nil, f.distinctErr
	}
	if values, ok := f.distinct[field]; ok {
		return values, nil
	}
	return nil, errors.New("aggregate unavailable")
}

func (f *fakeQuerier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls
}

var errChannelClosed = errors.New("channel closed")

// fakeChannel is a scripted notification stream
type fakeChannel struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		msgs:   make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

func (c *fakeChannel) Recv() ([]byte, error) {
	select {
	case msg := <-c.msgs:
		return msg, nil
	case <-c.closed:
		return nil, errChannelClosed
	}
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) emit(data []byte) {
	c.msgs <- data
}

// fakeDialer hands out fake channels, optionally failing the first
// dials attempts
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	current  *fakeChannel
}

func (d *fakeDialer) OpenChannel(ctx context.Context, entity api.EntityType, filter string) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.dials <= d.failures {
		return nil, errors.New("dial refused")
	}
	d.current = newFakeChannel()
	return d.current, nil
}

func (d *fakeDialer) channel() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testRecord(id, title string) api.Record {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return api.Record{
		ID:          id,
		Title:       title,
		Author:      "skyworks",
		Description: "weathered livery",
		Status:      api.StatusApproved,
		Aircraft:    "a320",
		Category:    "airline",
		TextureType: "livery",
		Upvotes:     3,
		Downvotes:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func notification(kind Kind, field string, record map[string]interface{}) []byte {
	payload := map[string]interface{}{
		"event_type": string(kind),
		field:        record,
	}
	data, err := jsonCodec.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal notification: %v", err))
	}
	return data
}
