package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IIP-Design/orchestra/internal/config"
	"github.com/IIP-Design/orchestra/internal/sources"
)

func TestScheduler_StartStopStatus(t *testing.T) {
	var mu sync.Mutex
	factories := map[time.Duration]*tickerFactory{}
	newTicker := func(d time.Duration) Ticker {
		mu.Lock()
		defer mu.Unlock()
		f := newTickerFactory()
		factories[d] = f
		return f.New(d)
	}

	var clients []*sources.Client
	for name, freq := range map[string]int64{"fast": 1000, "slow": 60000} {
		c := sources.NewClient(config.Website{Name: name, UpdateFrequency: freq})
		c.Bind(sources.FetcherFunc(func(context.Context, sources.Filter, sources.Fields) ([]sources.Resource, error) {
			return []sources.Resource{{"id": "1"}}, nil
		}))
		clients = append(clients, c)
	}

	s := NewScheduler(clients, nil, discardLogger(), WithTicker(newTicker))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu.Lock()
	fast := factories[time.Second]
	slow := factories[time.Minute]
	mu.Unlock()
	if fast == nil || slow == nil {
		t.Fatalf("expected one ticker per interval, got %v", factories)
	}

	fast.tick()
	var fastPoller *Poller
	for _, p := range s.Pollers() {
		if p.Client().Name() == "fast" {
			fastPoller = p
		}
	}
	eventually(t, func() bool { return fastPoller.Status().Fetches == 1 }, "fast fetch")

	s.Stop()
	s.Wait()

	for _, st := range s.Status() {
		if st.State != Idle {
			t.Errorf("%s: state = %s, want idle", st.Source, st.State)
		}
		switch st.Source {
		case "fast":
			if st.LastUpdated.IsZero() {
				t.Error("fast: LastUpdated should be set")
			}
		case "slow":
			if st.Ticks != 0 || !st.LastUpdated.IsZero() {
				t.Errorf("slow: should not have polled: %+v", st)
			}
		}
	}
}

func TestScheduler_StartFailureStopsStarted(t *testing.T) {
	c := sources.NewClient(config.Website{Name: "site"})
	s := NewScheduler([]*sources.Client{c, c}, nil, discardLogger(), WithTicker(func(time.Duration) Ticker {
		return newTickerFactory().ticker
	}))
	s.pollers[1] = s.pollers[0]

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected ErrRunning when a poller is started twice")
	}
	if st := s.pollers[0].Status(); st.State != Idle {
		t.Errorf("started poller should be stopped again, state = %s", st.State)
	}
}

func TestScheduler_Trigger(t *testing.T) {
	release := make(chan struct{})
	c := sources.NewClient(config.Website{Name: "site"})
	c.Bind(sources.FetcherFunc(func(context.Context, sources.Filter, sources.Fields) ([]sources.Resource, error) {
		<-release
		return nil, nil
	}))
	s := NewScheduler([]*sources.Client{c}, nil, discardLogger())

	started, err := s.Trigger(context.Background(), "site")
	if err != nil || !started {
		t.Fatalf("Trigger = %v, %v; want true, nil", started, err)
	}
	started, err = s.Trigger(context.Background(), "site")
	if err != nil || started {
		t.Errorf("Trigger while busy = %v, %v; want false, nil", started, err)
	}
	if _, err := s.Trigger(context.Background(), "other"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Trigger(other) = %v, want ErrUnknownSource", err)
	}

	close(release)
	s.Wait()
}

func TestScheduler_FailingSourcesDoNotAffectOthers(t *testing.T) {
	var mu sync.Mutex
	factories := map[time.Duration]*tickerFactory{}
	newTicker := func(d time.Duration) Ticker {
		mu.Lock()
		defer mu.Unlock()
		f := newTickerFactory()
		factories[d] = f
		return f.New(d)
	}

	healthy := sources.NewClient(config.Website{Name: "healthy", UpdateFrequency: 1000})
	healthy.Bind(sources.FetcherFunc(func(context.Context, sources.Filter, sources.Fields) ([]sources.Resource, error) {
		return []sources.Resource{{"id": "1"}}, nil
	}))
	failing := sources.NewClient(config.Website{Name: "failing", UpdateFrequency: 2000})
	failing.Bind(sources.FetcherFunc(func(context.Context, sources.Filter, sources.Fields) ([]sources.Resource, error) {
		return nil, errors.New("xml-rpc fault")
	}))
	stuck := newBlockingFetcher()
	slow := sources.NewClient(config.Website{Name: "slow", UpdateFrequency: 3000})
	slow.Bind(stuck)

	s := NewScheduler([]*sources.Client{healthy, failing, slow}, nil, discardLogger(), WithTicker(newTicker))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu.Lock()
	healthyTicks, failingTicks, slowTicks := factories[time.Second], factories[2*time.Second], factories[3*time.Second]
	mu.Unlock()

	slowTicks.tick()
	<-stuck.started

	pollers := map[string]*Poller{}
	for _, p := range s.Pollers() {
		pollers[p.Client().Name()] = p
	}
	for i := 1; i <= 3; i++ {
		failingTicks.tick()
		healthyTicks.tick()
		eventually(t, func() bool {
			st := pollers["healthy"].Status()
			return st.Fetches == int64(i) && !st.InFlight
		}, "healthy fetch")
		eventually(t, func() bool {
			st := pollers["failing"].Status()
			return st.Failures == int64(i) && !st.InFlight
		}, "failing fetch")
	}

	if st := pollers["healthy"].Status(); st.Failures != 0 || st.Skipped != 0 || st.LastError != "" {
		t.Errorf("healthy source affected by others: %+v", st)
	}
	if st := pollers["failing"].Status(); st.State != Polling || st.LastError == "" {
		t.Errorf("failing source should keep polling and record its error: %+v", st)
	}
	if st := pollers["slow"].Status(); !st.InFlight || st.Fetches != 1 {
		t.Errorf("slow source should still be fetching: %+v", st)
	}

	close(stuck.release)
	s.Stop()
	s.Wait()
}
