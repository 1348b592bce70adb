package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// driverCase opens a fresh store for one driver.
type driverCase struct {
	name string
	open func(t *testing.T) DocumentStore
}

// allDrivers lists every driver the contract tests run against.
func allDrivers() []driverCase {
	return []driverCase{
		{name: "sqlite", open: func(t *testing.T) DocumentStore {
			return openTestStore(t, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")})
		}},
		{name: "badger", open: func(t *testing.T) DocumentStore {
			return openTestStore(t, Config{Driver: "badger", Path: filepath.Join(t.TempDir(), "badger")})
		}},
		{name: "memory", open: func(t *testing.T) DocumentStore {
			return openTestStore(t, Config{Driver: "memory"})
		}},
	}
}

func openTestStore(t *testing.T, cfg Config) DocumentStore {
	t.Helper()
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testDoc builds a document with a small JSON body.
func testDoc(id, typ, ref, name string) Document {
	body, _ := json.Marshal(map[string]string{"name": name})
	return Document{ID: id, Type: typ, Ref: ref, Body: body}
}

func bodyName(t *testing.T, doc Document) string {
	t.Helper()
	var v map[string]string
	require.NoError(t, json.Unmarshal(doc.Body, &v))
	return v["name"]
}
