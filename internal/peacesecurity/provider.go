package peacesecurity

import (
	"context"
	"time"
)

// Retriever abstracts the download layer (network or saved responses).
type Retriever interface {
	DownloadJSON(ctx context.Context, url string) ([]byte, error)
}

// State holds the last processed update date per dataset.
type State interface {
	Get(name string) time.Time
	Set(name string, ts time.Time)
}

// StateStore is a State that can be persisted after a run.
type StateStore interface {
	State
	Save() error
}

// pendingState records dates set during a run on top of a base State, so a
// failed run leaves the base untouched.
type pendingState struct {
	base  State
	dates map[string]time.Time
}

func newPendingState(base State) *pendingState {
	return &pendingState{base: base, dates: make(map[string]time.Time)}
}

func (p *pendingState) Get(name string) time.Time {
	if ts, ok := p.dates[name]; ok {
		return ts
	}
	return p.base.Get(name)
}

func (p *pendingState) Set(name string, ts time.Time) {
	p.dates[name] = ts
}

func (p *pendingState) commit() {
	for name, ts := range p.dates {
		p.base.Set(name, ts)
	}
}
