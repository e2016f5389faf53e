package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/IIP-Design/orchestra/internal/config"
)

// Registry holds the configured clients and dispatches fetch calls.
type Registry struct {
	clients []*Client
	byName  map[string]*Client
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{byName: make(map[string]*Client), logger: logger}
}

// NewWordPressRegistry builds one client per website, each bound to a
// WordPress XML-RPC connection. A nil transport uses http.DefaultTransport.
func NewWordPressRegistry(websites []config.Website, transport http.RoundTripper, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for _, w := range websites {
		c := NewClient(w)
		conn, err := NewWordPressConnection(c, transport)
		if err != nil {
			return nil, err
		}
		if err := c.Bind(conn); err != nil {
			return nil, err
		}
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a client. Names must be unique.
func (r *Registry) Register(c *Client) error {
	if _, ok := r.byName[c.Name()]; ok {
		return fmt.Errorf("sources: duplicate website name %q", c.Name())
	}
	r.clients = append(r.clients, c)
	r.byName[c.Name()] = c
	return nil
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (*Client, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Clients returns the registered clients in registration order.
func (r *Registry) Clients() []*Client {
	return append([]*Client(nil), r.clients...)
}

// Names returns the names of all registered clients.
func (r *Registry) Names() []string {
	names := make([]string, len(r.clients))
	for i, c := range r.clients {
		names[i] = c.Name()
	}
	return names
}

// FetchAll fetches from every client concurrently, once per resource type.
// Individual failures are logged but do not prevent other clients from
// running. Results are keyed by client name.
func (r *Registry) FetchAll(ctx context.Context, fields Fields) map[string][]Resource {
	type result struct {
		name      string
		resources []Resource
	}

	results := make(chan result, len(r.clients))
	var wg sync.WaitGroup

	for _, c := range r.clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			var all []Resource
			for _, f := range c.Filters() {
				res, err := c.FetchResources(ctx, f, fields)
				if err != nil {
					r.logger.Warn("sources: fetch failed", "source", c.Name(), "post_type", f["post_type"], "error", err)
					continue
				}
				all = append(all, res...)
			}
			results <- result{name: c.Name(), resources: all}
		}(c)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string][]Resource, len(r.clients))
	for res := range results {
		out[res.name] = res.resources
	}
	return out
}
