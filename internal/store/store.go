package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when no document has the requested ID.
	ErrNotFound = errors.New("document not found")

	// ErrExists is returned by Create when the ID is already taken.
	ErrExists = errors.New("document already exists")

	// ErrConflict is returned when a write carries a stale revision.
	ErrConflict = errors.New("document update conflict")

	// ErrDanglingRef is returned by GroupedByRef when a child's Ref names no
	// parent document.
	ErrDanglingRef = errors.New("reference to a missing document")
)

// Document is one stored record.
type Document struct {
	ID   string
	Type string
	Rev  string
	Ref  string
	Body json.RawMessage
}

// Group is a parent document with the documents referencing it.
type Group struct {
	Parent   Document
	Children []Document
}

// DocumentStore is the CRUD surface of a document store.
//
// Implementations must be safe for concurrent use. Bulk queries return
// documents ordered by ID and never return nil slices.
type DocumentStore interface {
	// Create inserts a new document and returns its first revision.
	// Document.Rev is ignored.
	Create(ctx context.Context, doc Document) (string, error)

	// Get returns the document with the given ID.
	Get(ctx context.Context, id string) (Document, error)

	// UpdateWithRevision replaces Body and Ref of the document with
	// doc.ID, provided its current revision equals doc.Rev. Type is fixed
	// once set; an untyped document takes doc.Type.
	UpdateWithRevision(ctx context.Context, doc Document) (string, error)

	// DeleteWithRevision removes the document if its revision equals rev.
	DeleteWithRevision(ctx context.Context, id, rev string) error

	// AllOfType returns every document with the given type.
	AllOfType(ctx context.Context, typ string) ([]Document, error)

	// Referencing returns documents of type typ whose Ref equals ref.
	Referencing(ctx context.Context, typ, ref string) ([]Document, error)

	// GroupedByRef returns one group per parentType document, each holding
	// the childType documents whose Ref is the parent's ID. Parents without
	// children get an empty group. A child whose Ref names no parent fails
	// the whole call with ErrDanglingRef.
	GroupedByRef(ctx context.Context, parentType, childType string) ([]Group, error)

	// Close releases the underlying resources.
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	// Driver is "sqlite", "badger" or "memory".
	Driver string

	// Path is the SQLite file or Badger directory. Ignored for "memory".
	Path string

	// Logger receives driver diagnostics. Zero value logs nothing.
	Logger zerolog.Logger
}

// Open opens the configured document store.
func Open(ctx context.Context, cfg Config) (DocumentStore, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "sqlite", "sqlite3":
		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "badger":
		s, err := OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		s, err := OpenBadger(BadgerConfig{InMemory: true, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// groupByRef assembles groups from parents and children already ordered by ID.
func groupByRef(parents, children []Document) ([]Group, error) {
	byRef := make(map[string][]Document, len(parents))
	for _, p := range parents {
		byRef[p.ID] = []Document{}
	}
	for _, c := range children {
		kids, ok := byRef[c.Ref]
		if !ok {
			return nil, fmt.Errorf("%s %s refers to %q: %w", c.Type, c.ID, c.Ref, ErrDanglingRef)
		}
		byRef[c.Ref] = append(kids, c)
	}
	groups := make([]Group, 0, len(parents))
	for _, p := range parents {
		groups = append(groups, Group{Parent: p, Children: byRef[p.ID]})
	}
	return groups, nil
}
