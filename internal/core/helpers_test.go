package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
)

// mockBackend is a testify mock of AIBackend
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Call(ctx context.Context, model string, text string, actx *AnalysisContext) (*BackendReply, error) {
	args := m.Called(ctx, model, text, actx)
	reply, _ := args.Get(0).(*BackendReply)
	return reply, args.Error(1)
}

func (m *mockBackend) CheckAvailability(ctx context.Context) Availability {
	args := m.Called(ctx)
	return args.Get(0).(Availability)
}

func (m *mockBackend) WarmUp(ctx context.Context, model string) error {
	return m.Called(ctx, model).Error(0)
}

// runningBackend returns a mock that reports itself running and warms up silently
func runningBackend() *mockBackend {
	b := &mockBackend{}
	b.On("CheckAvailability", mock.Anything).Return(Availability{Installed: true, Running: true})
	b.On("WarmUp", mock.Anything, mock.Anything).Return(nil)
	return b
}

// stubPatterns counts calls and delegates to fn
type stubPatterns struct {
	calls atomic.Int32
	fn    func(text string) []DetectedActionItem
}

func (s *stubPatterns) DetectPatterns(text string) []DetectedActionItem {
	s.calls.Add(1)
	return s.fn(text)
}

// markerPatterns reports one item per occurrence of marker
func markerPatterns(marker string, confidence float64) *stubPatterns {
	return &stubPatterns{fn: func(text string) []DetectedActionItem {
		var items []DetectedActionItem
		for from := 0; ; {
			idx := strings.Index(text[from:], marker)
			if idx < 0 {
				return items
			}
			start := from + idx
			items = append(items, DetectedActionItem{
				Content:      marker,
				Type:         TypeTodo,
				Priority:     PriorityMedium,
				Confidence:   confidence,
				TextPosition: TextPosition{Start: start, End: start + len(marker)},
			})
			from = start + len(marker)
		}
	}}
}

// mapCache is a minimal ResultCache
type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

var errMissing = errors.New("missing")

func (c *mapCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, errMissing
	}
	entry.AccessCount++
	out := *entry
	return &out, nil
}

func (c *mapCache) Set(_ context.Context, key string, result *AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &CacheEntry{Key: key, Result: result, InsertedAt: time.Now()}
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Cleanup(context.Context) error { return nil }

func (c *mapCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
	return nil
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// manualScheduler only runs timers when told to
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	fn      func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, fn: f, delay: d}
	s.timers = append(s.timers, t)
	return t
}

// FireAll runs every timer that was not stopped, synchronously
func (s *manualScheduler) FireAll() {
	s.mu.Lock()
	var due []func()
	for _, t := range s.timers {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		due = append(due, t.fn)
	}
	s.timers = nil
	s.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// Pending counts timers that would run on FireAll
func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// eventLog records events from an orchestrator
type eventLog struct {
	mu     sync.Mutex
	events []AnalysisEvent
}

func (l *eventLog) listen(e AnalysisEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t EventType) []AnalysisEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []AnalysisEvent
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
