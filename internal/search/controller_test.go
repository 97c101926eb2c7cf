package search

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced AfterFunc.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers synchronously, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

type call struct {
	query string
	at    time.Duration
}

// fakeSearcher records calls. Responses come from results; queries listed
// in block wait for their channel to close.
type fakeSearcher struct {
	clock   *fakeClock
	mu      sync.Mutex
	calls   []call
	results map[string][]core.SearchResult
	block   map[string]chan struct{}
	err     error
}

func (s *fakeSearcher) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	s.mu.Lock()
	var at time.Duration
	if s.clock != nil {
		s.clock.mu.Lock()
		at = s.clock.now
		s.clock.mu.Unlock()
	}
	s.calls = append(s.calls, call{query, at})
	ch := s.block[query]
	res := s.results[query]
	err := s.err
	s.mu.Unlock()

	if ch != nil {
		<-ch
	}
	return res, err
}

func (s *fakeSearcher) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

var popular = []core.SearchResult{
	{Symbol: "AAPL", Exchange: "NASDAQ", Name: "Apple Inc"},
	{Symbol: "MSFT", Exchange: "NASDAQ", Name: "Microsoft"},
	{Symbol: "GOOGL", Exchange: "NASDAQ", Name: "Alphabet"},
}

func newTestController(t *testing.T, s *fakeSearcher, initial []core.SearchResult, opts Options) (*Controller, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	s.clock = clock
	opts.AfterFunc = clock.AfterFunc
	c := NewController(context.Background(), s, initial, opts)
	t.Cleanup(c.Stop)
	return c, clock
}

func TestController_InitialView(t *testing.T) {
	c, _ := newTestController(t, &fakeSearcher{}, popular, Options{})

	v := c.View()
	assert.Equal(t, Idle, v.State)
	assert.False(t, v.Open)
	assert.False(t, v.Loading)
	assert.Equal(t, "Popular stocks", v.Heading)
	assert.Equal(t, popular, v.Results)
	assert.Empty(t, v.Empty)

	empty, _ := newTestController(t, &fakeSearcher{}, nil, Options{})
	assert.Equal(t, "No stocks available", empty.View().Empty)
}

func TestController_PreviewIsCapped(t *testing.T) {
	var many []core.SearchResult
	for i := 0; i < 25; i++ {
		many = append(many, core.SearchResult{Symbol: string(rune('A' + i)), Exchange: "X"})
	}

	c, _ := newTestController(t, &fakeSearcher{}, many, Options{})
	assert.Len(t, c.View().Results, DefaultPreviewSize)

	c, _ = newTestController(t, &fakeSearcher{}, many, Options{PreviewSize: 3})
	assert.Len(t, c.View().Results, 3)
}

func TestController_DebounceBound(t *testing.T) {
	s := &fakeSearcher{results: map[string][]core.SearchResult{
		"apple": {{Symbol: "AAPL", Exchange: "NASDAQ"}},
	}}
	c, clock := newTestController(t, s, popular, Options{})

	for _, q := range []string{"a", "ap", "app", "appl", "apple"} {
		c.SetQuery(q)
		clock.Advance(50 * time.Millisecond)
	}
	// 50ms have passed since the last keystroke.
	clock.Advance(249 * time.Millisecond)
	assert.Empty(t, s.Calls())

	clock.Advance(time.Millisecond)
	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "apple", calls[0].query)
	assert.Equal(t, 200*time.Millisecond+DefaultDebounce, calls[0].at, "issued one quiet interval after the last keystroke")

	v := c.View()
	assert.Equal(t, Loaded, v.State)
	assert.Equal(t, "Search results", v.Heading)
	assert.Equal(t, []core.SearchResult{{Symbol: "AAPL", Exchange: "NASDAQ"}}, v.Results)

	clock.Advance(time.Second)
	assert.Len(t, s.Calls(), 1)
}

func TestController_CustomDebounce(t *testing.T) {
	s := &fakeSearcher{}
	c, clock := newTestController(t, s, nil, Options{Debounce: 100 * time.Millisecond})

	c.SetQuery("ibm")
	clock.Advance(99 * time.Millisecond)
	assert.Empty(t, s.Calls())
	clock.Advance(time.Millisecond)
	assert.Len(t, s.Calls(), 1)
}

func TestController_EmptyQueryRevertsWithoutCall(t *testing.T) {
	s := &fakeSearcher{results: map[string][]core.SearchResult{
		"tes": {{Symbol: "TSLA", Exchange: "NASDAQ"}},
	}}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("tes")
	clock.Advance(DefaultDebounce)
	require.Len(t, s.Calls(), 1)
	require.Equal(t, Loaded, c.View().State)

	c.SetQuery("te")
	c.SetQuery("   ")
	clock.Advance(time.Second)

	assert.Len(t, s.Calls(), 1, "clearing the query must not reach upstream")
	v := c.View()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, popular, v.Results)
	assert.Equal(t, "Popular stocks", v.Heading)
}

func TestController_StaleResponseDropped(t *testing.T) {
	slow := make(chan struct{})
	s := &fakeSearcher{
		results: map[string][]core.SearchResult{
			"ap":    {{Symbol: "APA", Exchange: "NYSE"}},
			"apple": {{Symbol: "AAPL", Exchange: "NASDAQ"}},
		},
		block: map[string]chan struct{}{"ap": slow},
	}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("ap")
	done := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Calls()) == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.View().Loading)

	c.SetQuery("apple")
	clock.Advance(DefaultDebounce)
	require.Len(t, s.Calls(), 2)
	assert.Equal(t, []core.SearchResult{{Symbol: "AAPL", Exchange: "NASDAQ"}}, c.View().Results)

	close(slow)
	<-done

	v := c.View()
	assert.Equal(t, Loaded, v.State)
	assert.False(t, v.Loading)
	assert.Equal(t, []core.SearchResult{{Symbol: "AAPL", Exchange: "NASDAQ"}}, v.Results)
}

func TestController_NewQueryWhileInFlightDropsResponse(t *testing.T) {
	slow := make(chan struct{})
	s := &fakeSearcher{
		results: map[string][]core.SearchResult{
			"ap":   {{Symbol: "APP", Exchange: "NASDAQ"}},
			"msft": {{Symbol: "MSFT", Exchange: "NASDAQ"}},
		},
		block: map[string]chan struct{}{"ap": slow},
	}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("ap")
	done := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Calls()) == 1 }, time.Second, time.Millisecond)

	// The "msft" debounce has not elapsed when the "ap" response lands.
	c.SetQuery("msft")
	close(slow)
	<-done

	v := c.View()
	assert.Equal(t, "msft", v.Query)
	assert.True(t, v.Loading)
	assert.Equal(t, popular, v.Results)

	clock.Advance(DefaultDebounce)
	v = c.View()
	assert.Equal(t, Loaded, v.State)
	assert.False(t, v.Loading)
	assert.Equal(t, []core.SearchResult{{Symbol: "MSFT", Exchange: "NASDAQ"}}, v.Results)
}

func TestController_SameQueryWhileInFlightKeepsResponse(t *testing.T) {
	slow := make(chan struct{})
	s := &fakeSearcher{
		results: map[string][]core.SearchResult{"ap": {{Symbol: "APP", Exchange: "NASDAQ"}}},
		block:   map[string]chan struct{}{"ap": slow},
	}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("ap")
	done := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Calls()) == 1 }, time.Second, time.Millisecond)

	c.SetQuery("ap ")
	close(slow)
	<-done

	v := c.View()
	assert.Equal(t, Loaded, v.State)
	assert.Equal(t, []core.SearchResult{{Symbol: "APP", Exchange: "NASDAQ"}}, v.Results)
}

func TestController_ClearWhileInFlightDropsResponse(t *testing.T) {
	slow := make(chan struct{})
	s := &fakeSearcher{
		results: map[string][]core.SearchResult{"nf": {{Symbol: "NFLX", Exchange: "NASDAQ"}}},
		block:   map[string]chan struct{}{"nf": slow},
	}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("nf")
	done := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(s.Calls()) == 1 }, time.Second, time.Millisecond)

	c.SetQuery("")
	close(slow)
	<-done

	v := c.View()
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, popular, v.Results)
}

func TestController_SearchDedup(t *testing.T) {
	s := &fakeSearcher{results: map[string][]core.SearchResult{
		"aapl": {
			{Symbol: "AAPL", Exchange: "NASDAQ", Name: "first"},
			{Symbol: "AAPL", Exchange: "NASDAQ", Name: "second"},
			{Symbol: "AAPL", Exchange: "NYSE", Name: "other"},
		},
	}}
	c, clock := newTestController(t, s, nil, Options{})

	c.SetQuery("aapl")
	clock.Advance(DefaultDebounce)

	results := c.View().Results
	require.Len(t, results, 2)
	assert.Equal(t, "AAPL-NASDAQ", results[0].Key())
	assert.Equal(t, "second", results[0].Name)
	assert.Equal(t, "AAPL-NYSE", results[1].Key())
}

func TestController_UpstreamError(t *testing.T) {
	s := &fakeSearcher{err: errors.New("rate limited")}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("goog")
	clock.Advance(DefaultDebounce)

	v := c.View()
	assert.Equal(t, Error, v.State)
	assert.False(t, v.Loading)
	assert.Empty(t, v.Results)
	assert.Equal(t, "No results found", v.Empty)
}

func TestController_HandleKey(t *testing.T) {
	c, _ := newTestController(t, &fakeSearcher{}, popular, Options{})

	tests := []struct {
		name     string
		ev       KeyEvent
		consumed bool
		open     bool
	}{
		{"plain k ignored", KeyEvent{Key: "k"}, false, false},
		{"cmd+k opens", KeyEvent{Key: "k", Meta: true}, true, true},
		{"ctrl+K closes", KeyEvent{Key: "K", Ctrl: true}, true, false},
		{"cmd+j ignored", KeyEvent{Key: "j", Meta: true}, false, false},
		{"ctrl+k opens again", KeyEvent{Key: "k", Ctrl: true}, true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.consumed, c.HandleKey(tt.ev), tt.name)
		assert.Equal(t, tt.open, c.View().Open, tt.name)
	}
}

func TestController_OpenClose(t *testing.T) {
	c, _ := newTestController(t, &fakeSearcher{}, popular, Options{})

	var views []View
	c.OnChange(func(v View) { views = append(views, v) })

	c.Open()
	c.Open()
	c.SetQuery("x")
	c.Close()

	assert.False(t, c.View().Open)
	assert.Equal(t, "x", c.View().Query, "closing keeps the query")
	require.Len(t, views, 2, "redundant Open and pending debounce do not notify")
	assert.True(t, views[0].Open)
	assert.False(t, views[1].Open)
}

func TestController_Select(t *testing.T) {
	s := &fakeSearcher{results: map[string][]core.SearchResult{
		"ora": {{Symbol: "ORCL", Exchange: "NYSE"}},
	}}
	c, clock := newTestController(t, s, popular, Options{})

	c.Open()
	c.SetQuery("ora")
	clock.Advance(DefaultDebounce)
	picked := c.View().Results[0]

	got := c.Select(picked)
	assert.Equal(t, picked, got)

	v := c.View()
	assert.False(t, v.Open)
	assert.Empty(t, v.Query)
	assert.Equal(t, Idle, v.State)
	assert.Equal(t, popular, v.Results)
}

func TestController_SelectCancelsPendingSearch(t *testing.T) {
	s := &fakeSearcher{}
	c, clock := newTestController(t, s, popular, Options{})

	c.SetQuery("amz")
	c.Select(popular[0])
	clock.Advance(time.Second)
	assert.Empty(t, s.Calls())
}

func TestController_SetInitial(t *testing.T) {
	c, _ := newTestController(t, &fakeSearcher{}, nil, Options{})

	c.SetInitial(popular[:1])
	assert.Equal(t, popular[:1], c.View().Results)
}

type countingRecorder struct{ n atomic.Int32 }

func (r *countingRecorder) RecordSearch(mode string) { r.n.Add(1) }

func TestController_RealTimer(t *testing.T) {
	s := &fakeSearcher{results: map[string][]core.SearchResult{
		"meta": {{Symbol: "META", Exchange: "NASDAQ"}},
	}}
	rec := &countingRecorder{}
	c := NewController(context.Background(), s, nil, Options{Debounce: 10 * time.Millisecond, Metrics: rec})
	defer c.Stop()

	c.SetQuery("me")
	c.SetQuery("meta")

	require.Eventually(t, func() bool { return c.View().State == Loaded }, time.Second, 5*time.Millisecond)
	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "meta", calls[0].query)
	assert.Equal(t, int32(1), rec.n.Load())
}

func TestDedup(t *testing.T) {
	in := []core.SearchResult{
		{Symbol: "AAPL", Exchange: "NASDAQ"},
		{Symbol: "AAPL", Exchange: "NASDAQ"},
		{Symbol: "AAPL", Exchange: "NYSE"},
	}
	out := Dedup(in)
	require.Len(t, out, 2)
	assert.Equal(t, "AAPL-NASDAQ", out[0].Key())
	assert.Equal(t, "AAPL-NYSE", out[1].Key())
	assert.NotNil(t, Dedup(nil))
}

func TestView_JSON(t *testing.T) {
	b, err := json.Marshal(View{State: Searching, Results: []core.SearchResult{}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"searching"`)
}
