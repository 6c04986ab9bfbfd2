package syncx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/logger"
	"github.com/hangarshare/cli/pkg/store"
)

// ErrRetriesExhausted is surfaced once the reconnect ceiling is hit.
// Past that point reconnection requires a fresh subscription.
var ErrRetriesExhausted = errors.New("realtime reconnect attempts exhausted")

// State of a subscription's connection machine
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateBackoff
	StateTerminal
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateBackoff:
		return "backoff"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Handlers receives dispatched change events. Nil callbacks are skipped.
type Handlers struct {
	OnInsert func(Event)
	OnUpdate func(Event)
	OnDelete func(Event)
	OnError  func(error)
}

// SubscriptionConfig configures one subscription
type SubscriptionConfig struct {
	Entity api.EntityType
	// Filter is a server-side filter expression, e.g. "status=approved"
	Filter string
	// CacheKey, when set together with a store, has merged deltas
	// applied to the persisted cache entry as events arrive
	CacheKey string
	// Debounce is the per-kind window collapsing notification bursts
	Debounce time.Duration
	// BaseDelay seeds the exponential reconnect backoff
	BaseDelay time.Duration
	// MaxRetries is the reconnect ceiling before the terminal state
	MaxRetries int
}

func (c *SubscriptionConfig) applyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = 100 * time.Millisecond
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
}

// DefaultSubscriptionConfig builds a config from the loaded
// configuration for an entity collection
func DefaultSubscriptionConfig(entity api.EntityType) SubscriptionConfig {
	return SubscriptionConfig{
		Entity:     entity,
		Filter:     "status=" + string(api.StatusApproved),
		CacheKey:   store.DatasetKey(entity),
		Debounce:   100 * time.Millisecond,
		BaseDelay:  time.Second,
		MaxRetries: 5,
	}
}

type debounceCell struct {
	timer   *time.Timer
	latest  Event
	pending bool
}

// Subscription owns one live channel per (entity, filter) pair. It
// classifies raw notifications into typed events, collapses bursts
// through a per-kind debounce window, applies each dispatched delta to
// the persisted cache, and reconnects with exponential backoff until
// the retry ceiling.
//
// The handlers are held behind an atomic pointer: swapping them never
// re-dials the channel, so callers can change callbacks freely without
// channel churn. The subscription key is (entity, filter) alone.
type Subscription struct {
	config SubscriptionConfig
	dialer Dialer
	cache  *store.Store

	handlers atomic.Pointer[Handlers]

	mu       sync.Mutex
	state    State
	retries  int
	channel  Channel
	debounce map[Kind]*debounceCell
	started  bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscription creates a subscription. cache may be nil when no
// persisted entry should track the stream.
func NewSubscription(dialer Dialer, cache *store.Store, config SubscriptionConfig) *Subscription {
	config.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscription{
		config:   config,
		dialer:   dialer,
		cache:    cache,
		debounce: make(map[Kind]*debounceCell),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// SetHandlers swaps the dispatched callbacks in place
func (s *Subscription) SetHandlers(h Handlers) {
	s.handlers.Store(&h)
}

// State returns the current connection state
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the channel and begins dispatching. Calling Start more
// than once is a no-op.
func (s *Subscription) Start() {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run()
}

// Close tears the subscription down: the channel is closed and pending
// debounce and retry timers are cleared so nothing fires afterwards.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	ch := s.channel
	s.channel = nil
	for _, cell := range s.debounce {
		if cell.timer != nil {
			cell.timer.Stop()
			cell.timer = nil
		}
		cell.pending = false
	}
	s.mu.Unlock()

	s.cancel()
	if ch != nil {
		ch.Close()
	}
	if started {
		<-s.done
	}

	logger.Debug("Subscription closed", "entity", s.config.Entity)
}

func (s *Subscription) run() {
	defer close(s.done)

	for {
		s.setState(StateConnecting)

		ch, err := s.dialer.OpenChannel(s.ctx, s.config.Entity, s.config.Filter)
		if err != nil {
			if !s.backoff(err) {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			ch.Close()
			return
		}
		s.channel = ch
		s.state = StateSubscribed
		s.retries = 0
		s.mu.Unlock()

		logger.Debug("Subscribed to change stream",
			"entity", s.config.Entity, "filter", s.config.Filter)

		err = s.readLoop(ch)
		ch.Close()

		if s.ctx.Err() != nil {
			return
		}
		if !s.backoff(err) {
			return
		}
	}
}

// backoff reports whether another connection attempt should be made
func (s *Subscription) backoff(cause error) bool {
	s.emitError(cause)

	s.mu.Lock()
	if s.retries >= s.config.MaxRetries {
		s.state = StateTerminal
		s.mu.Unlock()
		logger.Error("Realtime subscription gave up",
			"entity", s.config.Entity, "retries", s.config.MaxRetries)
		s.emitError(ErrRetriesExhausted)
		return false
	}

	delay := s.config.BaseDelay << s.retries
	s.retries++
	attempt := s.retries
	s.state = StateBackoff
	s.mu.Unlock()

	logger.Debug("Reconnecting change stream",
		"entity", s.config.Entity, "attempt", attempt, "delay", delay)

	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (s *Subscription) readLoop(ch Channel) error {
	for {
		data, err := ch.Recv()
		if err != nil {
			return err
		}

		ev, err := ParseNotification(data)
		if err != nil {
			logger.Warn("Dropping malformed change notification",
				"entity", s.config.Entity, "error", err)
			continue
		}

		s.enqueue(ev)
	}
}

// enqueue routes an event through its kind's debounce window. Rapid
// same-kind notifications collapse to one dispatch carrying the latest
// payload. Kinds debounce independently of each other, so an insert
// followed within the window by an update to the same id may dispatch
// in either order; the merge engine's idempotence keeps that safe.
func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	cell := s.debounce[ev.Kind]
	if cell == nil {
		cell = &debounceCell{}
		s.debounce[ev.Kind] = cell
	}

	cell.latest = ev
	cell.pending = true

	kind := ev.Kind
	if cell.timer == nil {
		cell.timer = time.AfterFunc(s.config.Debounce, func() { s.flush(kind) })
	} else {
		cell.timer.Reset(s.config.Debounce)
	}
}

func (s *Subscription) flush(kind Kind) {
	s.mu.Lock()
	cell := s.debounce[kind]
	if cell == nil || !cell.pending || s.closed {
		s.mu.Unlock()
		return
	}
	ev := cell.latest
	cell.pending = false
	cell.timer = nil
	s.mu.Unlock()

	s.apply(ev)
}

// apply commits one dispatched event: first the persisted cache entry,
// then the registered callback
func (s *Subscription) apply(ev Event) {
	if s.cache != nil && s.config.CacheKey != "" {
		err := s.cache.Update(s.config.CacheKey, func(records []api.Record) []api.Record {
			return Merge(records, ev)
		})
		if err != nil {
			// Soft failure: the in-memory dataset stays authoritative
			// and the next full preload rewrites the entry
			logger.Warn("Failed to apply change to cache",
				"key", s.config.CacheKey, "error", err)
		}
	}

	h := s.handlers.Load()
	if h == nil {
		return
	}

	switch ev.Kind {
	case KindInsert:
		if h.OnInsert != nil {
			h.OnInsert(ev)
		}
	case KindUpdate:
		if h.OnUpdate != nil {
			h.OnUpdate(ev)
		}
	case KindDelete:
		if h.OnDelete != nil {
			h.OnDelete(ev)
		}
	}
}

func (s *Subscription) emitError(err error) {
	if err == nil {
		return
	}
	if h := s.handlers.Load(); h != nil && h.OnError != nil {
		h.OnError(err)
	}
}

func (s *Subscription) setState(state State) {
	s.mu.Lock()
	if !s.closed {
		s.state = state
	}
	s.mu.Unlock()
}
