package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IIP-Design/orchestra/internal/sources"
)

// Compile-time interface check.
var _ Sink = (*MySQLStore)(nil)

// DB is the part of *sql.DB the store uses.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	upsertWebsite = `INSERT INTO website (name, url, date_checked) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE name = VALUES(name)`

	markChecked = `UPDATE website SET date_checked = ? WHERE name = ?`

	upsertResourceType = `INSERT INTO resource_type (title) VALUES (?)
ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`

	upsertResource = `INSERT INTO resource (date_created, date_modified, title, description, url, resource_type)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE date_modified = VALUES(date_modified), title = VALUES(title),
description = VALUES(description), resource_type = VALUES(resource_type)`
)

// MySQLStore writes resources to the website, resource_type and resource
// tables. Dates are stored as RFC 3339 strings.
type MySQLStore struct {
	db     DB
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	types map[string]int64
}

// NewMySQLStore creates a store on db.
func NewMySQLStore(db DB, logger *slog.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: logger, now: time.Now, types: make(map[string]int64)}
}

// RegisterWebsite records a website, keyed by its unique url.
func (s *MySQLStore) RegisterWebsite(ctx context.Context, name, url string) error {
	if _, err := s.db.ExecContext(ctx, upsertWebsite, name, url, formatDate(s.now())); err != nil {
		return fmt.Errorf("storage: register website %s: %w", name, err)
	}
	return nil
}

// Store upserts every resource by url and marks the website as checked.
// Resources without a link or guid cannot be keyed and are skipped.
func (s *MySQLStore) Store(ctx context.Context, website string, resources []sources.Resource) error {
	now := s.now()
	for _, r := range resources {
		url := firstString(r, "link", "guid")
		if url == "" {
			s.logger.Warn("storage: resource has no url, skipped", "website", website, "id", r.ID())
			continue
		}

		typeID, err := s.resourceType(ctx, firstString(r, "type"))
		if err != nil {
			return err
		}

		_, err = s.db.ExecContext(ctx, upsertResource,
			dateOr(r["date"], now),
			dateOr(r["modified"], now),
			firstString(r, "title"),
			firstString(r, "excerpt"),
			url,
			typeID,
		)
		if err != nil {
			return fmt.Errorf("storage: upsert resource %s: %w", url, err)
		}
	}
	return s.MarkChecked(ctx, website)
}

// MarkChecked sets a website's date_checked to now.
func (s *MySQLStore) MarkChecked(ctx context.Context, website string) error {
	if _, err := s.db.ExecContext(ctx, markChecked, formatDate(s.now()), website); err != nil {
		return fmt.Errorf("storage: mark %s checked: %w", website, err)
	}
	return nil
}

// resourceType returns the id of the resource_type row titled title,
// creating it on first use.
func (s *MySQLStore) resourceType(ctx context.Context, title string) (int64, error) {
	if title == "" {
		title = "post"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.types[title]; ok {
		return id, nil
	}
	res, err := s.db.ExecContext(ctx, upsertResourceType, title)
	if err != nil {
		return 0, fmt.Errorf("storage: upsert resource type %s: %w", title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: resource type %s id: %w", title, err)
	}
	s.types[title] = id
	return id, nil
}

func firstString(r sources.Resource, keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func dateOr(v any, fallback time.Time) string {
	switch d := v.(type) {
	case time.Time:
		if !d.IsZero() {
			return formatDate(d)
		}
	case string:
		if d != "" {
			return d
		}
	}
	return formatDate(fallback)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
