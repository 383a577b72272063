// Package store persists the versioned calibration document as a single
// JSON file. The store exclusively owns the on-disk representation; callers
// hold only transient in-memory copies.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/velat/hubcal/internal/domain/identity"
	"github.com/velat/hubcal/internal/domain/mapping"
)

const filePermission = 0o644

// Store reads and writes the calibration document at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithPath sets the document location. Defaults to hub_calibration.json in
// the working directory.
func WithPath(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.path = path
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Store.
func New(opts ...Option) *Store {
	s := &Store{
		path: "hub_calibration.json",
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// NewDocument creates an empty document: supported version, timestamps now,
// null hub metadata, empty mappings.
func (s *Store) NewDocument() *Document {
	now := s.now().UTC()
	return &Document{
		Version:   Version,
		CreatedAt: now,
		UpdatedAt: now,
		HubInfo:   HubInfo{},
		Mappings:  map[string]int{},
	}
}

// Validate checks a document against the supported schema.
func (s *Store) Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: not a document", ErrSchema)
	}
	if doc.Version != Version {
		return fmt.Errorf("%w: version %q, want %q", ErrSchema, doc.Version, Version)
	}
	if doc.Mappings == nil {
		return fmt.Errorf("%w: missing mappings", ErrSchema)
	}
	for key, port := range doc.Mappings {
		if !identity.KeyPattern.MatchString(key) {
			return fmt.Errorf("%w: malformed key %q", ErrSchema, key)
		}
		if port < mapping.MinPort || port > mapping.MaxPort {
			return fmt.Errorf("%w: key %q maps to invalid port %d", ErrSchema, key, port)
		}
	}
	return nil
}

// Load reads and validates the persisted document. A missing file is the
// normal uncalibrated state and returns (nil, nil). An unparseable payload
// fails with ErrCorrupt; any other validation failure with ErrSchema.
func (s *Store) Load() (*Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if _, ok := probe.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: payload is not an object", ErrSchema)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if err := s.Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save fills defaults, refreshes the update timestamp, re-validates, and
// writes the document. A permission failure maps to ErrPersistence; other
// I/O failures propagate wrapped.
func (s *Store) Save(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrSchema)
	}
	if doc.Version == "" {
		doc.Version = Version
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}
	doc.UpdatedAt = s.now().UTC()
	if doc.Mappings == nil {
		doc.Mappings = map[string]int{}
	}

	if err := s.Validate(doc); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := os.WriteFile(s.path, raw, filePermission); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Clear deletes the persisted document. Absence is a no-op; a permission
// failure maps to ErrPersistence.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}
