// Package orchestra provides a thin Go SDK for programmatic access to
// orchestra configuration checks and one-off website fetches. It wraps the
// internal packages with a stable API.
package orchestra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IIP-Design/orchestra/internal/config"
	"github.com/IIP-Design/orchestra/internal/sources"
)

// Problem is a single configuration violation.
type Problem struct {
	Property string
	Message  string
}

// ValidateConfig loads the configuration file at path and returns every
// violation found. A nil slice means the file is valid.
func ValidateConfig(path string) ([]Problem, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, config.ErrConfigMissing
	}
	res := config.Validate(doc)
	var out []Problem
	for _, e := range res.Errors {
		out = append(out, Problem{Property: e.Property, Message: e.Message})
	}
	return out, nil
}

// FetchOptions configures a one-off fetch.
type FetchOptions struct {
	Environment string // defaults to config.DefaultEnvironment()
	PostType    string // defaults to the website's first post type
	Fields      []string
	Number      int
	Logger      *slog.Logger
}

// Fetch loads the configuration at path and fetches resources from one
// website once.
func Fetch(ctx context.Context, path, website string, opts FetchOptions) ([]map[string]any, error) {
	if opts.Environment == "" {
		opts.Environment = config.DefaultEnvironment()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	env, err := config.ResolveEnvironment(doc, opts.Environment, opts.Logger)
	if err != nil {
		return nil, err
	}

	registry, err := sources.NewWordPressRegistry(env.Websites, nil, opts.Logger)
	if err != nil {
		return nil, err
	}
	client, ok := registry.Get(website)
	if !ok {
		return nil, fmt.Errorf("orchestra: unknown website %q", website)
	}

	filter := client.Filters()[0]
	if opts.PostType != "" {
		filter["post_type"] = opts.PostType
	}
	if opts.Number > 0 {
		filter["number"] = opts.Number
	}

	resources, err := client.FetchResources(ctx, filter, sources.Fields(opts.Fields))
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(resources))
	for i, r := range resources {
		out[i] = r
	}
	return out, nil
}

// FetchAll fetches every resource type from every configured website once.
// Websites that fail are logged to opts.Logger and left out of the result.
func FetchAll(ctx context.Context, path string, opts FetchOptions) (map[string][]map[string]any, error) {
	if opts.Environment == "" {
		opts.Environment = config.DefaultEnvironment()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	env, err := config.ResolveEnvironment(doc, opts.Environment, opts.Logger)
	if err != nil {
		return nil, err
	}
	registry, err := sources.NewWordPressRegistry(env.Websites, nil, opts.Logger)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]map[string]any)
	for name, resources := range registry.FetchAll(ctx, sources.Fields(opts.Fields)) {
		for _, r := range resources {
			out[name] = append(out[name], r)
		}
	}
	return out, nil
}
