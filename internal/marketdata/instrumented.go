package marketdata

import (
	"context"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
)

// Recorder receives one observation per upstream call.
type Recorder interface {
	RecordUpstream(provider, operation string, err error, duration float64)
}

// Instrumented wraps a Provider and reports call outcomes to a Recorder.
type Instrumented struct {
	next     Provider
	recorder Recorder
}

// Instrument wraps p. A nil recorder returns p unchanged.
func Instrument(p Provider, rec Recorder) Provider {
	if rec == nil {
		return p
	}
	return &Instrumented{next: p, recorder: rec}
}

func (i *Instrumented) Name() string {
	return i.next.Name()
}

func (i *Instrumented) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	start := time.Now()
	q, err := i.next.Quote(ctx, symbol)
	i.recorder.RecordUpstream(i.next.Name(), "quote", err, time.Since(start).Seconds())
	return q, err
}

func (i *Instrumented) Profile(ctx context.Context, symbol string) (*core.Profile, error) {
	start := time.Now()
	p, err := i.next.Profile(ctx, symbol)
	i.recorder.RecordUpstream(i.next.Name(), "profile", err, time.Since(start).Seconds())
	return p, err
}

func (i *Instrumented) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	start := time.Now()
	r, err := i.next.Search(ctx, query)
	i.recorder.RecordUpstream(i.next.Name(), "search", err, time.Since(start).Seconds())
	return r, err
}
