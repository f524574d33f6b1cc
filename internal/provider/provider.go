// Package provider owns the dataset for the lifetime of a process and keeps the
// session view in step with it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/cache"
	"github.com/castlemilk/demobank/internal/session"
	"github.com/castlemilk/demobank/internal/view"
)

// ErrDataUnavailable is set on Status.Err when no dataset could be synthesized.
var ErrDataUnavailable = errors.New("data unavailable")

// DatasetCache is the persistence layer the provider reads through.
type DatasetCache interface {
	Load(ctx context.Context) (cache.LoadResult, error)
	Refresh(ctx context.Context) (*bank.Dataset, error)
	Clear(ctx context.Context) error
}

// Sessions holds the active selection.
type Sessions interface {
	Load(ctx context.Context) session.Selection
	Current() session.Selection
	Select(ctx context.Context, sel session.Selection) error
}

// Status describes the provider's loading state.
type Status struct {
	Loading  bool  `json:"loading"`
	FirstRun bool  `json:"firstRun"`
	Err      error `json:"-"`
}

// State is a consistent snapshot of what the provider exposes. Generation
// increases with every change, so consumers can drop stale snapshots.
type State struct {
	Generation uint64            `json:"generation"`
	Dataset    *bank.Dataset     `json:"-"`
	Selection  session.Selection `json:"selection"`
	View       bank.UserView     `json:"view"`
	Status     Status            `json:"status"`
}

// Provider is the session-scoped banking dataset provider.
type Provider struct {
	cache    DatasetCache
	sessions Sessions
	filter   view.Filter
	log      zerolog.Logger

	mu         sync.Mutex
	dataset    *bank.Dataset
	status     Status
	state      State
	generation uint64
	// ticket orders dataset operations; a result is applied only if no later
	// operation started meanwhile.
	ticket uint64

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// WithFilter overrides the view filter, mainly to pin its clock.
func WithFilter(f view.Filter) Option {
	return func(p *Provider) {
		p.filter = f
	}
}

// New returns an unmounted provider. Its view is empty until Mount.
func New(c DatasetCache, s Sessions, opts ...Option) *Provider {
	p := &Provider{
		cache:    c,
		sessions: s,
		log:      zerolog.Nop(),
		subs:     map[int]func(State){},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.state = State{Selection: session.None(), View: bank.EmptyView()}
	return p
}

// Mount restores the session selection and loads the dataset. A synthesis
// failure leaves the provider in the data-unavailable state and is returned.
func (p *Provider) Mount(ctx context.Context) error {
	sel := p.sessions.Load(ctx)
	p.log.Debug().Str("selection", sel.String()).Msg("mounting provider")

	ticket := p.begin()
	res, err := p.cache.Load(ctx)
	return p.finish(ticket, func() error {
		if err != nil {
			return p.fail(err)
		}
		p.dataset = res.Dataset
		p.status = Status{FirstRun: res.FirstRun}
		return nil
	})
}

// Refresh replaces the dataset with a freshly synthesized one.
func (p *Provider) Refresh(ctx context.Context) error {
	ticket := p.begin()
	ds, err := p.cache.Refresh(ctx)
	return p.finish(ticket, func() error {
		if err != nil {
			return p.fail(err)
		}
		p.dataset = ds
		p.status = Status{}
		return nil
	})
}

// Clear evicts the cached dataset and drops the in-memory copy. The view is
// empty until the next Mount or Refresh.
func (p *Provider) Clear(ctx context.Context) error {
	ticket := p.begin()
	err := p.cache.Clear(ctx)
	return p.finish(ticket, func() error {
		p.status = Status{}
		if err != nil {
			return fmt.Errorf("clear dataset: %w", err)
		}
		p.dataset = nil
		return nil
	})
}

// SelectUser changes the active selection and recomputes the view. The view
// follows the new selection even when persisting it fails.
func (p *Provider) SelectUser(ctx context.Context, sel session.Selection) error {
	p.mu.Lock()
	err := p.sessions.Select(ctx, sel)
	state := p.publishLocked()
	p.mu.Unlock()

	p.notify(state)
	return err
}

// State returns the latest snapshot.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for every new state and returns a func that removes it.
func (p *Provider) Subscribe(fn func(State)) (cancel func()) {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

func (p *Provider) begin() uint64 {
	p.mu.Lock()
	p.ticket++
	ticket := p.ticket
	p.status.Loading = true
	p.status.Err = nil
	state := p.publishLocked()
	p.mu.Unlock()

	p.notify(state)
	return ticket
}

// finish applies a dataset operation's result unless a later one superseded it.
func (p *Provider) finish(ticket uint64, apply func() error) error {
	p.mu.Lock()
	if ticket != p.ticket {
		p.mu.Unlock()
		p.log.Debug().Uint64("ticket", ticket).Msg("dataset result superseded")
		return nil
	}
	err := apply()
	state := p.publishLocked()
	p.mu.Unlock()

	p.notify(state)
	return err
}

func (p *Provider) fail(err error) error {
	p.dataset = nil
	p.status = Status{Err: fmt.Errorf("%w: %w", ErrDataUnavailable, err)}
	p.log.Error().Err(err).Msg("dataset unavailable")
	return p.status.Err
}

// publishLocked recomputes the view from the current dataset and selection.
// p.mu must be held.
func (p *Provider) publishLocked() State {
	sel := p.sessions.Current()
	p.generation++
	p.state = State{
		Generation: p.generation,
		Dataset:    p.dataset,
		Selection:  sel,
		View:       p.filter.ForUser(p.dataset, sel),
		Status:     p.status,
	}
	return p.state
}

func (p *Provider) notify(state State) {
	p.subMu.Lock()
	subs := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.subMu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
