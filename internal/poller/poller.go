// Package poller drives each source client on its own timer. At most one
// fetch per source is in flight at any time: a tick that arrives while the
// previous fetch is still running is skipped and counted.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IIP-Design/orchestra/internal/sources"
)

// ErrRunning is returned by Start on a poller that is already polling.
var ErrRunning = errors.New("poller: already polling")

// State is a poller's lifecycle state.
type State string

const (
	Idle    State = "idle"
	Polling State = "polling"
)

// Handler receives the resources of each successful fetch.
type Handler func(ctx context.Context, source string, resources []sources.Resource) error

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the default Ticker factory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// Option configures a Poller.
type Option func(*Poller)

// WithTicker replaces the tick source.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(p *Poller) { p.newTicker = newTicker }
}

// WithInitialFetch makes Start fetch once immediately instead of waiting a
// full interval.
func WithInitialFetch() Option {
	return func(p *Poller) { p.initial = true }
}

// WithFields restricts the fields requested on every fetch.
func WithFields(fields sources.Fields) Option {
	return func(p *Poller) { p.fields = fields }
}

// Status is a point-in-time snapshot of a poller.
type Status struct {
	Source      string    `json:"source"`
	State       State     `json:"state"`
	Interval    string    `json:"interval"`
	LastUpdated time.Time `json:"last_updated"`
	InFlight    bool      `json:"in_flight"`
	Ticks       int64     `json:"ticks"`
	Skipped     int64     `json:"skipped"`
	Fetches     int64     `json:"fetches"`
	Failures    int64     `json:"failures"`
	LastRun     string    `json:"last_run,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Poller polls a single client.
type Poller struct {
	client    *sources.Client
	handler   Handler
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker
	initial   bool
	fields    sources.Fields

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	loopDone chan struct{}
	lastRun  string
	lastErr  string

	inFlight atomic.Bool
	fetches  sync.WaitGroup
	ticks    atomic.Int64
	skipped  atomic.Int64
	runs     atomic.Int64
	failures atomic.Int64
}

// New creates an idle poller for client. A nil handler discards resources.
func New(client *sources.Client, handler Handler, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		client:    client,
		handler:   handler,
		logger:    logger.With("source", client.Name()),
		newTicker: NewTimeTicker,
		state:     Idle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client returns the polled client.
func (p *Poller) Client() *sources.Client { return p.client }

// Start begins polling at the client's update frequency. The loop ends when
// ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.polling() {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	t := p.newTicker(p.client.UpdateFrequency())
	done := make(chan struct{})
	p.state = Polling
	p.cancel = cancel
	p.loopDone = done

	p.logger.Info("poller: started", "interval", p.client.UpdateFrequency())
	go p.loop(ctx, t, done)
	return nil
}

// Stop ends the loop so no further ticks are handled. A fetch already in
// flight is not cancelled; use Wait to let it finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Polling {
		return
	}
	p.cancel()
	<-p.loopDone
	p.state = Idle
	p.logger.Info("poller: stopped")
}

// polling reports whether the loop is running. A loop that ended because
// the context passed to Start was cancelled moves the poller back to Idle.
// Callers hold p.mu.
func (p *Poller) polling() bool {
	if p.state != Polling {
		return false
	}
	select {
	case <-p.loopDone:
		p.cancel()
		p.state = Idle
		return false
	default:
		return true
	}
}

// Wait blocks until every in-flight fetch has finished. Call it after Stop.
func (p *Poller) Wait() {
	p.fetches.Wait()
}

// Tick runs one poll cycle now, subject to the same overlap rule as timer
// ticks. It reports whether a fetch was started.
func (p *Poller) Tick(ctx context.Context) bool {
	p.ticks.Add(1)
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.logger.Debug("poller: previous fetch still running, tick skipped")
		return false
	}
	p.fetches.Add(1)
	go func() {
		defer p.fetches.Done()
		defer p.inFlight.Store(false)
		p.run(context.WithoutCancel(ctx))
	}()
	return true
}

func (p *Poller) loop(ctx context.Context, t Ticker, done chan struct{}) {
	defer close(done)
	defer t.Stop()

	if p.initial {
		p.Tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			p.Tick(ctx)
		}
	}
}

// run fetches once per request filter and hands results to the handler.
// Errors are logged and recorded; they never stop the loop.
func (p *Poller) run(ctx context.Context) {
	runID := uuid.NewString()
	log := p.logger.With("run", runID)
	p.runs.Add(1)

	var lastErr error
	for _, f := range p.client.Filters() {
		resources, err := p.client.FetchResources(ctx, f, p.fields)
		if err != nil {
			lastErr = err
			p.failures.Add(1)
			log.Warn("poller: fetch failed", "post_type", f["post_type"], "error", err)
			continue
		}
		log.Debug("poller: fetched", "post_type", f["post_type"], "count", len(resources))

		if p.handler == nil || len(resources) == 0 {
			continue
		}
		if err := p.handler(ctx, p.client.Name(), resources); err != nil {
			lastErr = err
			p.failures.Add(1)
			log.Error("poller: handler failed", "post_type", f["post_type"], "error", err)
		}
	}

	p.mu.Lock()
	p.lastRun = runID
	p.lastErr = ""
	if lastErr != nil {
		p.lastErr = lastErr.Error()
	}
	p.mu.Unlock()
}

// Status returns a snapshot of the poller.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polling()
	return Status{
		Source:      p.client.Name(),
		State:       p.state,
		Interval:    p.client.UpdateFrequency().String(),
		LastUpdated: p.client.LastUpdated(),
		InFlight:    p.inFlight.Load(),
		Ticks:       p.ticks.Load(),
		Skipped:     p.skipped.Load(),
		Fetches:     p.runs.Load(),
		Failures:    p.failures.Load(),
		LastRun:     p.lastRun,
		LastError:   p.lastErr,
	}
}
