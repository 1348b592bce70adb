package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MetadataID is the ID of the document recording the data version.
	MetadataID = "metadata"

	// MetadataType is the type of the metadata document.
	MetadataType = "metadata"

	// DataVersion is the data layout version written by Migrate.
	DataVersion = 1
)

type metadata struct {
	Version int `json:"version"`
}

// Version returns the data version recorded in s, or 0 for a store that has
// never been migrated.
func Version(ctx context.Context, s DocumentStore) (int, error) {
	doc, err := s.Get(ctx, MetadataID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var m metadata
	if err := json.Unmarshal(doc.Body, &m); err != nil {
		return 0, fmt.Errorf("decode metadata: %w", err)
	}
	return m.Version, nil
}

// Migration describes the upgrade to DataVersion.
type Migration struct {
	// Upgrade rewrites a document written before documents carried a type.
	// It must return the document with Type set. Nil leaves untyped
	// documents alone.
	Upgrade func(Document) (Document, error)

	// Seeds are created on a store that has never been migrated.
	Seeds []Document
}

// Migrate brings s up to DataVersion. Untyped documents are upgraded first,
// then the seeds are created, and the metadata document is written last so
// an interrupted migration is retried on the next open. Upgraded documents
// carry a type and are not visited again; seeds that already exist are left
// alone. Migrate reports whether it did anything.
func Migrate(ctx context.Context, s DocumentStore, m Migration) (bool, error) {
	version, err := Version(ctx, s)
	if err != nil {
		return false, fmt.Errorf("read data version: %w", err)
	}
	if version >= DataVersion {
		return false, nil
	}

	if m.Upgrade != nil {
		legacy, err := s.AllOfType(ctx, "")
		if err != nil {
			return false, fmt.Errorf("load untyped documents: %w", err)
		}
		for _, doc := range legacy {
			up, err := m.Upgrade(doc)
			if err != nil {
				return false, fmt.Errorf("upgrade %s: %w", doc.ID, err)
			}
			if up.Type == "" {
				return false, fmt.Errorf("upgrade %s: no type assigned", doc.ID)
			}
			up.ID, up.Rev = doc.ID, doc.Rev
			if _, err := s.UpdateWithRevision(ctx, up); err != nil {
				return false, fmt.Errorf("upgrade %s: %w", doc.ID, err)
			}
		}
	}

	for _, seed := range m.Seeds {
		if _, err := s.Create(ctx, seed); err != nil && !errors.Is(err, ErrExists) {
			return false, fmt.Errorf("seed %s: %w", seed.ID, err)
		}
	}

	body, err := json.Marshal(metadata{Version: DataVersion})
	if err != nil {
		return false, err
	}
	meta := Document{ID: MetadataID, Type: MetadataType, Body: body}
	if _, err := s.Create(ctx, meta); err != nil && !errors.Is(err, ErrExists) {
		return false, fmt.Errorf("write metadata: %w", err)
	}
	return true, nil
}
