// Package manifest remembers a content hash for every resource already
// stored, so unchanged resources are not written again on the next poll.
package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IIP-Design/orchestra/internal/sources"
	"github.com/IIP-Design/orchestra/internal/storage"
)

// Entry tracks the hash of a single stored resource.
type Entry struct {
	Hash     string    `json:"hash"`
	StoredAt time.Time `json:"stored_at"`
}

// Manifest tracks stored resources per website, keyed by resource id.
type Manifest struct {
	Version  string                      `json:"version"`
	SavedAt  time.Time                   `json:"saved_at"`
	Websites map[string]map[string]Entry `json:"websites"`

	mu   sync.Mutex
	path string // empty keeps the manifest in memory only
}

// ChangeSet describes which fetched resources differ from the manifest.
type ChangeSet struct {
	Added     []sources.Resource
	Modified  []sources.Resource
	Unchanged int
}

// Changed returns the added and modified resources.
func (cs *ChangeSet) Changed() []sources.Resource {
	return append(append([]sources.Resource(nil), cs.Added...), cs.Modified...)
}

// New creates an empty manifest saved to path. An empty path keeps it in
// memory.
func New(path string) *Manifest {
	return &Manifest{
		Version:  "1.0",
		Websites: make(map[string]map[string]Entry),
		path:     path,
	}
}

// Load reads a manifest from path. If the file does not exist, it returns a
// new empty manifest (not an error).
func Load(path string) (*Manifest, error) {
	if path == "" {
		return New(""), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(path), nil
		}
		return nil, fmt.Errorf("manifest: read: %w", err)
	}

	m := New(path)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	if m.Websites == nil {
		m.Websites = make(map[string]map[string]Entry)
	}
	return m, nil
}

// Save writes the manifest to disk as JSON, creating its directory if
// needed. It is a no-op for an in-memory manifest.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("manifest: create dir: %w", err)
	}

	m.SavedAt = time.Now()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write: %w", err)
	}
	return nil
}

// Hash returns the SHA-256 hex digest of a resource's JSON encoding. Map
// keys are encoded in sorted order, so equal resources hash equally.
func Hash(r sources.Resource) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("manifest: hash resource %s: %w", r.ID(), err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DetectChanges compares fetched resources against the manifest. Resources
// without an id are always reported as added.
func (m *Manifest) DetectChanges(website string, resources []sources.Resource) (*ChangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := &ChangeSet{}
	known := m.Websites[website]
	for _, r := range resources {
		id := r.ID()
		entry, exists := known[id]
		if id == "" || !exists {
			cs.Added = append(cs.Added, r)
			continue
		}
		hash, err := Hash(r)
		if err != nil {
			return nil, err
		}
		if hash != entry.Hash {
			cs.Modified = append(cs.Modified, r)
			continue
		}
		cs.Unchanged++
	}
	return cs, nil
}

// Update records resources as stored now.
func (m *Manifest) Update(website string, resources []sources.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	known := m.Websites[website]
	if known == nil {
		known = make(map[string]Entry)
		m.Websites[website] = known
	}
	now := time.Now()
	for _, r := range resources {
		id := r.ID()
		if id == "" {
			continue
		}
		hash, err := Hash(r)
		if err != nil {
			return err
		}
		known[id] = Entry{Hash: hash, StoredAt: now}
	}
	return nil
}

// Len returns the number of resources tracked for website.
func (m *Manifest) Len(website string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Websites[website])
}

// Compile-time interface check.
var _ storage.Sink = (*Sink)(nil)

// Sink forwards only added or modified resources to the next sink and
// records them once it succeeds.
type Sink struct {
	manifest *Manifest
	next     storage.Sink
}

// NewSink wraps next with change detection against m.
func NewSink(m *Manifest, next storage.Sink) *Sink {
	return &Sink{manifest: m, next: next}
}

func (s *Sink) Store(ctx context.Context, website string, resources []sources.Resource) error {
	cs, err := s.manifest.DetectChanges(website, resources)
	if err != nil {
		return err
	}
	changed := cs.Changed()
	if len(changed) == 0 {
		return nil
	}
	if err := s.next.Store(ctx, website, changed); err != nil {
		return err
	}
	if err := s.manifest.Update(website, changed); err != nil {
		return err
	}
	return s.manifest.Save()
}
