// Package search drives the instrument search surface: a debounced,
// request-fenced, deduplicating query pipeline with an explicit state machine.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
	"go.uber.org/zap"
)

// State is the search surface's lifecycle state.
type State int

const (
	// Idle shows the initial (popular) preview.
	Idle State = iota
	// Searching has a request in flight for the current query.
	Searching
	// Loaded shows the latest response.
	Loaded
	// Error means the latest request failed.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultPreviewSize = 10
)

// Searcher performs one upstream instrument search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]core.SearchResult, error)
}

// Timer is the subset of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through SystemClock.
type AfterFunc func(d time.Duration, f func()) Timer

// SystemClock schedules with time.AfterFunc.
func SystemClock(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Recorder counts issued searches.
type Recorder interface {
	RecordSearch(mode string)
}

// Options configures a Controller. Zero values take defaults.
type Options struct {
	Debounce    time.Duration
	PreviewSize int
	AfterFunc   AfterFunc
	Metrics     Recorder
	Logger      *zap.Logger
}

// KeyEvent is a key press delivered to the search surface.
type KeyEvent struct {
	Key  string
	Meta bool
	Ctrl bool
}

// View is an immutable snapshot for rendering.
type View struct {
	State   State               `json:"state"`
	Open    bool                `json:"open"`
	Loading bool                `json:"loading"`
	Query   string              `json:"query"`
	Results []core.SearchResult `json:"results"`
	Heading string              `json:"heading"`
	Empty   string              `json:"empty,omitempty"`
}

// Controller owns all search surface state. It is safe for concurrent use.
type Controller struct {
	searcher Searcher
	opts     Options
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	initial  []core.SearchResult
	state    State
	open     bool
	loading  bool
	query    string
	results  []core.SearchResult
	timer    Timer
	pending  uint64 // debounce generation
	seq      uint64 // latest issued request
	inflight string // query of the request tagged seq
	onChange func(View)
}

// NewController creates a controller showing initial while idle. Searches
// issued by the controller run under ctx.
func NewController(ctx context.Context, searcher Searcher, initial []core.SearchResult, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PreviewSize <= 0 {
		opts.PreviewSize = DefaultPreviewSize
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = SystemClock
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		searcher: searcher,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		initial:  append([]core.SearchResult(nil), initial...),
	}
	c.results = c.preview()
	return c
}

// OnChange registers fn to receive a View after every state change. fn is
// called without the controller's lock held.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetInitial replaces the idle preview list.
func (c *Controller) SetInitial(initial []core.SearchResult) {
	c.mu.Lock()
	c.initial = append([]core.SearchResult(nil), initial...)
	if c.isIdleLocked() {
		c.results = c.preview()
	}
	c.mu.Unlock()
	c.notify()
}

// SetQuery records new input. A non-blank query (re)starts the debounce
// timer; a blank query reverts to the initial list without any upstream call.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.stopTimerLocked()

	if strings.TrimSpace(q) == "" {
		c.resetLocked()
		c.mu.Unlock()
		c.notify()
		return
	}

	// A request for a different query can no longer be shown.
	if c.loading && strings.TrimSpace(q) != c.inflight {
		c.seq++
	}
	gen := c.pending
	c.timer = c.opts.AfterFunc(c.opts.Debounce, func() { c.fire(gen) })
	c.mu.Unlock()
}

// fire issues the search for the current query if gen is still the latest
// debounce generation.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.pending {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	query := strings.TrimSpace(c.query)
	if query == "" {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.inflight = query
	c.state = Searching
	c.loading = true
	c.mu.Unlock()
	c.notify()

	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordSearch("query")
	}
	results, err := c.searcher.Search(c.ctx, query)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("dropping stale search response",
			zap.String("query", query),
			zap.Uint64("seq", seq))
		return
	}
	c.loading = false
	if err != nil {
		c.logger.Warn("instrument search failed", zap.String("query", query), zap.Error(err))
		c.state = Error
		c.results = []core.SearchResult{}
	} else {
		c.state = Loaded
		c.results = Dedup(results)
	}
	c.mu.Unlock()
	c.notify()
}

// Open shows the search surface.
func (c *Controller) Open() {
	c.setOpen(true)
}

// Close hides the search surface. The query is kept.
func (c *Controller) Close() {
	c.setOpen(false)
}

// Toggle flips the surface open or closed.
func (c *Controller) Toggle() {
	c.mu.Lock()
	c.open = !c.open
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) setOpen(open bool) {
	c.mu.Lock()
	changed := c.open != open
	c.open = open
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// HandleKey toggles the surface on Cmd+K or Ctrl+K. It reports whether the
// event was consumed; keys without a modifier are ignored.
func (c *Controller) HandleKey(ev KeyEvent) bool {
	if !(ev.Meta || ev.Ctrl) || !strings.EqualFold(ev.Key, "k") {
		return false
	}
	c.Toggle()
	return true
}

// Select closes the surface, clears the query and restores the initial list.
// It returns r unchanged; adding to the watchlist is a separate toggle.
func (c *Controller) Select(r core.SearchResult) core.SearchResult {
	c.mu.Lock()
	c.stopTimerLocked()
	c.query = ""
	c.open = false
	c.resetLocked()
	c.mu.Unlock()
	c.notify()
	return r
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Stop cancels any pending debounce and in-flight search context.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller) viewLocked() View {
	searching := strings.TrimSpace(c.query) != ""
	v := View{
		State:   c.state,
		Open:    c.open,
		Loading: c.loading,
		Query:   c.query,
		Results: append([]core.SearchResult{}, c.results...),
		Heading: "Popular stocks",
	}
	if searching {
		v.Heading = "Search results"
	}
	if len(v.Results) == 0 {
		v.Empty = "No stocks available"
		if searching {
			v.Empty = "No results found"
		}
	}
	return v
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	v := c.viewLocked()
	c.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// resetLocked returns to Idle with the preview list and invalidates any
// in-flight request.
func (c *Controller) resetLocked() {
	c.seq++
	c.state = Idle
	c.loading = false
	c.results = c.preview()
}

func (c *Controller) stopTimerLocked() {
	c.pending++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) isIdleLocked() bool {
	return strings.TrimSpace(c.query) == ""
}

func (c *Controller) preview() []core.SearchResult {
	list := c.initial
	if len(list) > c.opts.PreviewSize {
		list = list[:c.opts.PreviewSize]
	}
	return Dedup(list)
}

// Dedup collapses results sharing (Symbol, Exchange). Each key keeps the
// position of its first occurrence and the value of its last.
func Dedup(results []core.SearchResult) []core.SearchResult {
	index := make(map[string]int, len(results))
	out := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if i, ok := index[r.Key()]; ok {
			out[i] = r
			continue
		}
		index[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}
