package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IIP-Design/orchestra/internal/sources"
)

// Scheduler owns one Poller per client.
type Scheduler struct {
	pollers []*Poller
}

// NewScheduler creates a poller for each client with the shared handler and
// options.
func NewScheduler(clients []*sources.Client, handler Handler, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{}
	for _, c := range clients {
		s.pollers = append(s.pollers, New(c, handler, logger, opts...))
	}
	return s
}

// Start starts every poller. On failure the pollers already started are
// stopped again.
func (s *Scheduler) Start(ctx context.Context) error {
	for i, p := range s.pollers {
		if err := p.Start(ctx); err != nil {
			for _, started := range s.pollers[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops every poller without cancelling in-flight fetches.
func (s *Scheduler) Stop() {
	for _, p := range s.pollers {
		p.Stop()
	}
}

// Wait blocks until all in-flight fetches have finished.
func (s *Scheduler) Wait() {
	for _, p := range s.pollers {
		p.Wait()
	}
}

// Pollers returns the scheduler's pollers in client order.
func (s *Scheduler) Pollers() []*Poller {
	return append([]*Poller(nil), s.pollers...)
}

// Status returns a snapshot of every poller.
func (s *Scheduler) Status() []Status {
	out := make([]Status, len(s.pollers))
	for i, p := range s.pollers {
		out[i] = p.Status()
	}
	return out
}

// ErrUnknownSource is returned by Trigger for a name with no poller.
var ErrUnknownSource = errors.New("poller: unknown source")

// Trigger runs one poll cycle for the named source now. It reports false
// when a fetch for that source is already in flight.
func (s *Scheduler) Trigger(ctx context.Context, name string) (bool, error) {
	for _, p := range s.pollers {
		if p.Client().Name() == name {
			return p.Tick(ctx), nil
		}
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}
