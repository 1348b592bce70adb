package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/store"
	"github.com/roach88/eva/internal/wire"
)

func TestAddTask_Persists(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "Work")

	in := newTask("Buy milk", seg.ID)
	task, err := g.AddTask(ctx, in)
	require.NoError(t, err)

	assert.NotZero(t, task.ID)
	assert.NotEqual(t, seg.ID, task.ID)
	assert.Equal(t, in.WithID(task.ID), task)

	all, err := g.AllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Task{task}, all)
}

func TestAddTask_DurationOnWire(t *testing.T) {
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "A")

	task := addTask(t, g, "Buy milk", seg.ID)
	body, err := wire.EncodeTask(task)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"duration":1800`)
}

func TestAddTask_MissingSegmentWritesNothing(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)

	_, err := g.AddTask(ctx, newTask("orphan", 4242))
	require.Error(t, err)

	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindDatabase, kind)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "while searching for the time segment of the new task")
	assert.Zero(t, spy.writes())
}

func TestAddTask_SegmentIDNamingATask(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "Work")
	task := addTask(t, g, "first", seg.ID)

	_, err := g.AddTask(ctx, newTask("second", task.ID))
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddTask_InvalidIsSerialisation(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	seg := addSegment(t, g, "Work")
	before := spy.writes()

	in := newTask("", seg.ID)
	in.Duration = -time.Second
	_, err := g.AddTask(ctx, in)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSerialisation))
	assert.Contains(t, err.Error(), "Content is required")
	assert.Contains(t, err.Error(), "Duration must not be negative")
	assert.Equal(t, before, spy.writes())
}

func TestAddTask_RetriesTakenIdentifier(t *testing.T) {
	ctx := context.Background()
	draws := []domain.ID{7, 7, 7, 8}
	g, spy := newTestGatewayWithIDs(t, func() domain.ID {
		id := draws[0]
		draws = draws[1:]
		return id
	})

	seg := addSegment(t, g, "Work") // takes 7
	require.Equal(t, domain.ID(7), seg.ID)

	task, err := g.AddTask(ctx, newTask("t", seg.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.ID(8), task.ID)
	assert.Equal(t, 4, spy.creates)
}

func TestAddTask_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGatewayWithIDs(t, func() domain.ID { return 7 })
	seg := addSegment(t, g, "Work")

	_, err := g.AddTask(ctx, newTask("t", seg.ID))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrExists)
	assert.Contains(t, err.Error(), "while creating a task")
	assert.Equal(t, 1+maxCreateAttempts, spy.creates)
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	work := addSegment(t, g, "Work")
	home := addSegment(t, g, "Home")
	task := addTask(t, g, "Buy milk", work.ID)

	task.Content = "Buy oat milk"
	task.TimeSegmentID = home.ID
	task.Importance = 9
	require.NoError(t, g.UpdateTask(ctx, task))

	all, err := g.AllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, task, all[0])

	groups, err := g.AllTasksPerTimeSegment(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Empty(t, groups[0].Tasks)
	assert.Equal(t, []domain.Task{task}, groups[1].Tasks)
}

func TestUpdateTask_MissingSegmentWritesNothing(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	seg := addSegment(t, g, "Work")
	task := addTask(t, g, "Buy milk", seg.ID)
	before := spy.writes()

	task.TimeSegmentID = 999
	err := g.UpdateTask(ctx, task)
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, before, spy.writes())
}

func TestUpdateTask_Missing(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "Work")

	err := g.UpdateTask(ctx, newTask("ghost", seg.ID).WithID(555))
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "while updating a task")
}

func TestUpdateTask_StaleRevisionRejected(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	seg := addSegment(t, g, "Work")
	task := addTask(t, g, "Buy milk", seg.ID)

	// Another writer commits between our read and our write.
	spy.beforeUpdate = func(doc store.Document) {
		_, err := spy.DocumentStore.UpdateWithRevision(ctx, doc)
		require.NoError(t, err)
	}

	task.Content = "mine"
	err := g.UpdateTask(ctx, task)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "Work")
	task := addTask(t, g, "Buy milk", seg.ID)

	require.NoError(t, g.DeleteTask(ctx, task.ID))

	all, err := g.AllTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	err = g.DeleteTask(ctx, task.ID)
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "while deleting a task")
}

func TestDeleteTask_RefusesSegmentID(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "Work")
	addSegment(t, g, "Home")

	err := g.DeleteTask(ctx, seg.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	segs, err := g.AllTimeSegments(ctx)
	require.NoError(t, err)
	assert.Len(t, segs, 2)
}

func TestDeleteTimeSegment_InUse(t *testing.T) {
	tests := []struct {
		name  string
		tasks int
		want  string
	}{
		{"singular", 1, "There is still a task in this time segment."},
		{"plural", 3, "There are still 3 tasks in this time segment."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			g, spy := newTestGateway(t)
			work := addSegment(t, g, "Work")
			addSegment(t, g, "Home")
			for i := 0; i < tt.tasks; i++ {
				addTask(t, g, "task", work.ID)
			}
			before := spy.writes()

			err := g.DeleteTimeSegment(ctx, work)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.KindInvariant))
			assert.ErrorIs(t, err, errs.ErrSegmentInUse)
			assert.Contains(t, errs.Render(err), tt.want)

			var inUse *errs.SegmentInUseError
			require.True(t, errors.As(err, &inUse))
			assert.Equal(t, tt.tasks, inUse.Count)
			assert.Equal(t, before, spy.writes())
		})
	}
}

func TestDeleteTimeSegment_LastSegment(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	work := addSegment(t, g, "Work")
	before := spy.writes()

	err := g.DeleteTimeSegment(ctx, work)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvariant))
	assert.ErrorIs(t, err, errs.ErrLastSegment)
	assert.Equal(t, before, spy.writes())

	segs, err := g.AllTimeSegments(ctx)
	require.NoError(t, err)
	assert.Len(t, segs, 1)
}

func TestDeleteTimeSegment_InUseReportedBeforeLast(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	work := addSegment(t, g, "Work")
	addTask(t, g, "task", work.ID)

	err := g.DeleteTimeSegment(ctx, work)
	assert.ErrorIs(t, err, errs.ErrSegmentInUse)
	assert.NotErrorIs(t, err, errs.ErrLastSegment)
}

func TestDeleteTimeSegment_WorkThenHome(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)

	work := addSegment(t, g, "Work")
	require.ErrorIs(t, g.DeleteTimeSegment(ctx, work), errs.ErrLastSegment)

	home := addSegment(t, g, "Home")
	require.NoError(t, g.DeleteTimeSegment(ctx, work))

	segs, err := g.AllTimeSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimeSegment{home}, segs)
}

func TestDeleteTimeSegment_Missing(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	addSegment(t, g, "Work")
	addSegment(t, g, "Home")

	err := g.DeleteTimeSegment(ctx, domain.TimeSegment{ID: 404, Name: "ghost"})
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTimeSegment_MissingWithOneLeft(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	addSegment(t, g, "Work")

	err := g.DeleteTimeSegment(ctx, domain.TimeSegment{ID: 404, Name: "ghost"})
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, errs.ErrLastSegment)
	assert.Equal(t, 1, spy.writes())
}

func TestDeleteTimeSegment_ConcurrentDeletesKeepOne(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	work := addSegment(t, g, "Work")
	home := addSegment(t, g, "Home")

	// Each delete waits after listing the segments until the other has
	// listed them too, or until the grace period runs out.
	var arrived sync.WaitGroup
	arrived.Add(2)
	both := make(chan struct{})
	go func() { arrived.Wait(); close(both) }()
	var listed atomic.Int32
	spy.afterList = func(typ string) {
		if typ != TypeTimeSegment || listed.Add(1) > 2 {
			return
		}
		arrived.Done()
		waitBriefly(both)
	}

	results := make([]error, 2)
	var eg errgroup.Group
	for i, seg := range []domain.TimeSegment{work, home} {
		eg.Go(func() error {
			results[i] = g.DeleteTimeSegment(ctx, seg)
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrLastSegment)
	}
	assert.Equal(t, 1, succeeded)

	segs, err := g.AllTimeSegments(ctx)
	require.NoError(t, err)
	assert.Len(t, segs, 1)
}

func TestAddTask_SegmentDeletedMidway(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	work := addSegment(t, g, "Work")
	addSegment(t, g, "Home")

	// Between the segment check and the task write, try to delete the
	// segment from another goroutine.
	deleted := make(chan struct{})
	var deleteErr error
	spy.beforeCreate = func(store.Document) {
		go func() {
			deleteErr = g.DeleteTimeSegment(ctx, work)
			close(deleted)
		}()
		waitBriefly(deleted)
	}

	task, err := g.AddTask(ctx, newTask("Write report", work.ID))
	require.NoError(t, err)

	<-deleted
	assert.ErrorIs(t, deleteErr, errs.ErrSegmentInUse)

	groups, err := g.AllTasksPerTimeSegment(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, work.ID, groups[0].Segment.ID)
	assert.Equal(t, []domain.Task{task}, groups[0].Tasks)
}

func TestAllTasksPerTimeSegment_DanglingTaskFails(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)
	work := addSegment(t, g, "Work")
	addTask(t, g, "Write report", work.ID)

	orphan := newTask("Orphan", 99).WithID(77)
	body, err := wire.EncodeTask(orphan)
	require.NoError(t, err)
	_, err = spy.DocumentStore.Create(ctx, store.Document{ID: "77", Type: TypeTask, Ref: "99", Body: body})
	require.NoError(t, err)

	groups, err := g.AllTasksPerTimeSegment(ctx)
	assert.Nil(t, groups)
	assert.True(t, errs.Is(err, errs.KindDatabase))
	assert.ErrorIs(t, err, store.ErrDanglingRef)
	assert.Contains(t, errs.Render(err), "while loading tasks per time segment")
}

func TestUpdateTimeSegment(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGateway(t)
	seg := addSegment(t, g, "Work")

	seg.Name = "Office"
	seg.Ranges = append(seg.Ranges, domain.Range{Start: monday.Add(24 * time.Hour), End: monday.Add(32 * time.Hour)})
	require.NoError(t, g.UpdateTimeSegment(ctx, seg))

	segs, err := g.AllTimeSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimeSegment{seg}, segs)

	seg.ID = 77
	err = g.UpdateTimeSegment(ctx, seg)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "while updating a time segment")
}

func TestBulkReadsOrderedNumerically(t *testing.T) {
	ctx := context.Background()
	draws := []domain.ID{10, 2, 300, 40}
	g, _ := newTestGatewayWithIDs(t, func() domain.ID {
		id := draws[0]
		draws = draws[1:]
		return id
	})

	a := addSegment(t, g, "A") // 10
	b := addSegment(t, g, "B") // 2
	addTask(t, g, "x", a.ID)  // 300
	addTask(t, g, "y", a.ID)  // 40

	segs, err := g.AllTimeSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ID{b.ID, a.ID}, []domain.ID{segs[0].ID, segs[1].ID})

	tasks, err := g.AllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(40), tasks[0].ID)
	assert.Equal(t, domain.ID(300), tasks[1].ID)

	groups, err := g.AllTasksPerTimeSegment(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, b.ID, groups[0].Segment.ID)
	assert.Empty(t, groups[0].Tasks)
	assert.NotNil(t, groups[0].Tasks)
	assert.Equal(t, a.ID, groups[1].Segment.ID)
	require.Len(t, groups[1].Tasks, 2)
	assert.Equal(t, domain.ID(40), groups[1].Tasks[0].ID)
}

func TestAllTasks_CorruptBodyIsSerialisation(t *testing.T) {
	ctx := context.Background()
	g, spy := newTestGateway(t)

	_, err := spy.DocumentStore.Create(ctx, store.Document{ID: "5", Type: TypeTask, Body: []byte(`{"content":`)})
	require.NoError(t, err)

	_, err = g.AllTasks(ctx)
	assert.True(t, errs.Is(err, errs.KindSerialisation))
}

func TestRandomIDsNeverZero(t *testing.T) {
	for i := 0; i < 10000; i++ {
		require.NotZero(t, RandomIDs())
	}
}

func TestSequentialIDs(t *testing.T) {
	next := SequentialIDs(5)
	assert.Equal(t, domain.ID(5), next())
	assert.Equal(t, domain.ID(6), next())
}
