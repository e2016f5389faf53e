package sources

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/IIP-Design/orchestra/internal/config"
)

// Client is a website's identity plus a write-once connection and the time
// of its last successful fetch. It is safe for concurrent use.
type Client struct {
	name            string
	url             string
	apiURL          string
	username        string
	password        string
	updateFrequency time.Duration
	resourceTypes   []string
	languages       []string
	now             func() time.Time

	mu          sync.Mutex
	conn        ResourceFetcher
	lastUpdated time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock replaces time.Now for lastUpdated bookkeeping.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient builds an unbound client from a website entry.
func NewClient(w config.Website, opts ...ClientOption) *Client {
	apiURL := w.APIURL
	if apiURL == "" {
		apiURL = w.XMLRPC
	}
	types := w.PostTypes
	if len(types) == 0 {
		types = config.DefaultPostTypes
	}
	c := &Client{
		name:            w.Name,
		url:             w.URL,
		apiURL:          apiURL,
		username:        w.Username,
		password:        w.Password,
		updateFrequency: w.Interval(),
		resourceTypes:   append([]string(nil), types...),
		languages:       append([]string(nil), w.Languages...),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string                   { return c.name }
func (c *Client) URL() string                    { return c.url }
func (c *Client) APIURL() string                 { return c.apiURL }
func (c *Client) Username() string               { return c.username }
func (c *Client) Password() string               { return c.password }
func (c *Client) UpdateFrequency() time.Duration { return c.updateFrequency }

// ResourceTypes returns the post types this client polls.
func (c *Client) ResourceTypes() []string { return append([]string(nil), c.resourceTypes...) }

func (c *Client) Languages() []string { return append([]string(nil), c.languages...) }

// LastUpdated returns the completion time of the last successful fetch, or
// the zero time.
func (c *Client) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdated
}

// IsConnected reports whether a connection has been bound.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Bind attaches conn permanently. A second call fails with ErrAlreadyBound
// whatever its argument; a nil connection fails with ErrConnectionShape.
func (c *Client) Bind(conn ResourceFetcher) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, c.name)
	}
	if isNil(conn) {
		return fmt.Errorf("%w: %s: got nil", ErrConnectionShape, c.name)
	}
	c.conn = conn
	return nil
}

// Filters returns one request filter per resource type.
func (c *Client) Filters() []Filter {
	out := make([]Filter, len(c.resourceTypes))
	for i, t := range c.resourceTypes {
		out[i] = Filter{"post_type": t}
	}
	return out
}

// FetchResources delegates to the bound connection. On success lastUpdated
// advances to the completion time; on failure it is left untouched.
func (c *Client) FetchResources(ctx context.Context, filter Filter, fields Fields) ([]Resource, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, c.name)
	}
	if filter == nil {
		filter = Filter{}
	}

	resources, err := conn.FetchResources(ctx, filter, fields)
	if err != nil {
		return nil, fmt.Errorf("sources: %s: %w", c.name, err)
	}

	done := c.now()
	c.mu.Lock()
	if done.After(c.lastUpdated) {
		c.lastUpdated = done
	}
	c.mu.Unlock()
	return resources, nil
}

// FetchAsync starts a fetch and returns immediately. The channel receives
// exactly one result and is then closed.
func (c *Client) FetchAsync(ctx context.Context, filter Filter, fields Fields) <-chan FetchResult {
	ch := make(chan FetchResult, 1)
	go func() {
		defer close(ch)
		resources, err := c.FetchResources(ctx, filter, fields)
		ch <- FetchResult{Resources: resources, Err: err}
	}()
	return ch
}

func isNil(conn ResourceFetcher) bool {
	if conn == nil {
		return true
	}
	v := reflect.ValueOf(conn)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}
