package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/store"
)

var monday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// spyStore counts writes and lets tests interleave a concurrent edit.
type spyStore struct {
	store.DocumentStore

	mu           sync.Mutex
	creates      int
	updates      int
	deletes      int
	beforeCreate func(doc store.Document)
	beforeUpdate func(doc store.Document)
	afterList    func(typ string)
}

func (s *spyStore) Create(ctx context.Context, doc store.Document) (string, error) {
	s.mu.Lock()
	s.creates++
	hook := s.beforeCreate
	s.beforeCreate = nil
	s.mu.Unlock()
	if hook != nil {
		hook(doc)
	}
	return s.DocumentStore.Create(ctx, doc)
}

func (s *spyStore) AllOfType(ctx context.Context, typ string) ([]store.Document, error) {
	docs, err := s.DocumentStore.AllOfType(ctx, typ)
	s.mu.Lock()
	hook := s.afterList
	s.mu.Unlock()
	if hook != nil {
		hook(typ)
	}
	return docs, err
}

func (s *spyStore) UpdateWithRevision(ctx context.Context, doc store.Document) (string, error) {
	s.mu.Lock()
	s.updates++
	hook := s.beforeUpdate
	s.beforeUpdate = nil
	s.mu.Unlock()
	if hook != nil {
		hook(doc)
	}
	return s.DocumentStore.UpdateWithRevision(ctx, doc)
}

func (s *spyStore) DeleteWithRevision(ctx context.Context, id, rev string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.DocumentStore.DeleteWithRevision(ctx, id, rev)
}

func (s *spyStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates + s.updates + s.deletes
}

func newTestGateway(t *testing.T) (*DocumentGateway, *spyStore) {
	t.Helper()
	return newTestGatewayWithIDs(t, SequentialIDs(1))
}

func newTestGatewayWithIDs(t *testing.T, ids IDSource) (*DocumentGateway, *spyStore) {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Driver: "memory"})
	require.NoError(t, err)
	spy := &spyStore{DocumentStore: s}
	g := New(spy, Options{IDs: ids})
	t.Cleanup(func() { g.Close() })
	return g, spy
}

func newSegment(name string) domain.NewTimeSegment {
	return domain.NewTimeSegment{
		Name:   name,
		Ranges: []domain.Range{{Start: monday, End: monday.Add(8 * time.Hour)}},
		Start:  monday,
		Period: week,
	}
}

func addSegment(t *testing.T, g Gateway, name string) domain.TimeSegment {
	t.Helper()
	seg, err := g.AddTimeSegment(context.Background(), newSegment(name))
	require.NoError(t, err)
	return seg
}

func newTask(content string, seg domain.ID) domain.NewTask {
	return domain.NewTask{
		Content:       content,
		Deadline:      monday.Add(48 * time.Hour),
		Duration:      30 * time.Minute,
		Importance:    5,
		TimeSegmentID: seg,
	}
}

func addTask(t *testing.T, g Gateway, content string, seg domain.ID) domain.Task {
	t.Helper()
	task, err := g.AddTask(context.Background(), newTask(content, seg))
	require.NoError(t, err)
	return task
}

// waitBriefly reports whether ch is closed within a short grace period. It
// lets a test give a racing goroutine the chance to run without deadlocking
// when the gateway correctly keeps it out.
func waitBriefly(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}
