// Package sources models the remote content sources orchestra polls. A
// Client carries a website's identity and credentials and delegates the
// actual retrieval to a bound ResourceFetcher, such as a WordPress XML-RPC
// connection.
package sources

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConnectionShape is returned by Bind for a connection that cannot
	// fetch resources.
	ErrConnectionShape = errors.New("sources: connection must implement FetchResources")

	// ErrAlreadyBound is returned by Bind when the client already has a
	// connection. Bindings are permanent.
	ErrAlreadyBound = errors.New("sources: client already has a connection")

	// ErrNotConnected is returned when fetching through an unbound client.
	ErrNotConnected = errors.New("sources: client has no connection")
)

// Resource is one content item returned by a source. It always carries "id".
type Resource map[string]any

// ID returns the resource's id as a string, or "" when absent.
func (r Resource) ID() string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Filter narrows a fetch (post_type, post_status, number, offset, orderby,
// order, ...). Nil is treated as empty.
type Filter map[string]any

// Fields restricts the fields returned for each resource. Nil means all.
type Fields []string

// ResourceFetcher is the one capability a connection must provide.
type ResourceFetcher interface {
	FetchResources(ctx context.Context, filter Filter, fields Fields) ([]Resource, error)
}

// FetcherFunc adapts a plain function to ResourceFetcher.
type FetcherFunc func(ctx context.Context, filter Filter, fields Fields) ([]Resource, error)

func (f FetcherFunc) FetchResources(ctx context.Context, filter Filter, fields Fields) ([]Resource, error) {
	return f(ctx, filter, fields)
}

// FetchResult is delivered by Client.FetchAsync.
type FetchResult struct {
	Resources []Resource
	Err       error
}
