// Package storage persists fetched resources. A Sink receives the resources
// of every successful fetch; MySQLStore writes them to the orchestra
// database and KafkaPublisher forwards them to a topic.
package storage

import (
	"context"
	"errors"

	"github.com/IIP-Design/orchestra/internal/sources"
)

// Sink receives the resources fetched from one website.
type Sink interface {
	Store(ctx context.Context, website string, resources []sources.Resource) error
}

// Multi forwards to every sink in order. All sinks are tried; their errors
// are joined.
type Multi []Sink

func (m Multi) Store(ctx context.Context, website string, resources []sources.Resource) error {
	var errs []error
	for _, s := range m {
		if err := s.Store(ctx, website, resources); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Store(context.Context, string, []sources.Resource) error { return nil }
