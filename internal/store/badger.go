package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const docPrefix = "doc/"

// BadgerConfig configures a Badger-backed store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal messages.
	Logger zerolog.Logger
}

// BadgerStore keeps documents as JSON records under "doc/<id>" keys.
// Every operation runs in its own Badger transaction; concurrent writers to
// the same key surface as ErrConflict.
type BadgerStore struct {
	db *badger.DB
}

type badgerRecord struct {
	Type string          `json:"type"`
	Rev  string          `json:"rev"`
	Ref  string          `json:"ref,omitempty"`
	Body json.RawMessage `json:"body"`
}

// badgerLogger adapts zerolog to Badger's Logger interface.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(format, args...)
}

// OpenBadger opens a Badger database, creating the directory if needed.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger store requires a path")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: cfg.Logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func docKey(id string) []byte {
	return []byte(docPrefix + id)
}

// Create inserts doc unless its ID is taken.
func (s *BadgerStore) Create(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rev := nextRevision("")
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(docKey(doc.ID))
		if err == nil {
			return ErrExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return putRecord(txn, doc.ID, badgerRecord{Type: doc.Type, Rev: rev, Ref: doc.Ref, Body: doc.Body})
	})
	if err != nil {
		return "", fmt.Errorf("create %s: %w", doc.ID, mapBadgerErr(err))
	}
	return rev, nil
}

// Get returns the document with the given ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		doc = rec.document(id)
		return nil
	})
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", id, mapBadgerErr(err))
	}
	return doc, nil
}

// UpdateWithRevision replaces the document if doc.Rev is current.
func (s *BadgerStore) UpdateWithRevision(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rev := nextRevision(doc.Rev)
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, doc.ID)
		if err != nil {
			return err
		}
		if rec.Rev != doc.Rev {
			return ErrConflict
		}
		typ := rec.Type
		if typ == "" {
			typ = doc.Type
		}
		return putRecord(txn, doc.ID, badgerRecord{Type: typ, Rev: rev, Ref: doc.Ref, Body: doc.Body})
	})
	if err != nil {
		return "", fmt.Errorf("update %s: %w", doc.ID, mapBadgerErr(err))
	}
	return rev, nil
}

// DeleteWithRevision removes the document if rev is current.
func (s *BadgerStore) DeleteWithRevision(ctx context.Context, id, rev string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if rec.Rev != rev {
			return ErrConflict
		}
		return txn.Delete(docKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, mapBadgerErr(err))
	}
	return nil
}

// AllOfType returns documents of one type ordered by ID.
func (s *BadgerStore) AllOfType(ctx context.Context, typ string) ([]Document, error) {
	return s.scan(ctx, func(d Document) bool { return d.Type == typ })
}

// Referencing returns documents of one type whose Ref equals ref.
func (s *BadgerStore) Referencing(ctx context.Context, typ, ref string) ([]Document, error) {
	return s.scan(ctx, func(d Document) bool { return d.Type == typ && d.Ref == ref })
}

// GroupedByRef groups childType documents under their parentType document.
// Both sides come from the same read transaction.
func (s *BadgerStore) GroupedByRef(ctx context.Context, parentType, childType string) ([]Group, error) {
	all, err := s.scan(ctx, func(d Document) bool { return d.Type == parentType || d.Type == childType })
	if err != nil {
		return nil, err
	}
	var parents, children []Document
	for _, d := range all {
		if d.Type == parentType {
			parents = append(parents, d)
		} else {
			children = append(children, d)
		}
	}
	return groupByRef(parents, children)
}

func (s *BadgerStore) scan(ctx context.Context, keep func(Document) bool) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := []Document{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(docPrefix):])
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec badgerRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", id, err)
			}
			if d := rec.document(id); keep(d) {
				docs = append(docs, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", mapBadgerErr(err))
	}
	return docs, nil
}

func getRecord(txn *badger.Txn, id string) (badgerRecord, error) {
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return badgerRecord{}, ErrNotFound
	}
	if err != nil {
		return badgerRecord{}, err
	}
	var rec badgerRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return badgerRecord{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

func putRecord(txn *badger.Txn, id string, rec badgerRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(docKey(id), raw)
}

func (r badgerRecord) document(id string) Document {
	return Document{ID: id, Type: r.Type, Rev: r.Rev, Ref: r.Ref, Body: r.Body}
}

func mapBadgerErr(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
