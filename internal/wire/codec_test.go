package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
)

var monday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func sampleTask() domain.Task {
	return domain.Task{
		ID:            4000000000,
		Content:       "Buy milk",
		Deadline:      monday.Add(33 * time.Hour),
		Duration:      30 * time.Minute,
		Importance:    5,
		TimeSegmentID: 7,
	}
}

func TestTaskRoundTrip(t *testing.T) {
	task := sampleTask()

	data, err := EncodeTask(task)
	require.NoError(t, err)

	decoded, err := DecodeTask(data)
	require.NoError(t, err)
	assert.Equal(t, task, decoded)
}

func TestTaskDurationEncodesAsSeconds(t *testing.T) {
	data, err := EncodeTask(sampleTask())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, float64(1800), m["duration"])
}

func TestDurationTruncatesTowardZero(t *testing.T) {
	task := sampleTask()
	task.Duration = 90*time.Second + 999*time.Millisecond

	data, err := EncodeTask(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration":90,`)

	decoded, err := DecodeTask(data)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, decoded.Duration)
}

func TestDurationRoundTripsFullRange(t *testing.T) {
	// Beyond 2^32 seconds, about 136 years.
	long := Seconds(200 * 365 * 24 * time.Hour)
	largest := Seconds(time.Duration(maxSeconds) * time.Second)

	for _, in := range []Seconds{long, largest} {
		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out Seconds
		require.NoError(t, json.Unmarshal(data, &out), string(data))
		assert.Equal(t, in, out)
	}

	var s Seconds
	err := json.Unmarshal([]byte(`9223372037`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the maximum")
}

func TestDurationRejectsNegativeAndFractional(t *testing.T) {
	_, err := json.Marshal(Seconds(-time.Second))
	require.Error(t, err)

	var s Seconds
	assert.Error(t, json.Unmarshal([]byte(`-5`), &s))
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &s))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &s))
	require.NoError(t, json.Unmarshal([]byte(`3600`), &s))
	assert.Equal(t, time.Hour, s.Duration())
}

func TestIDAcceptsIntegerAndNumericString(t *testing.T) {
	fromInt, err := DecodeTask([]byte(`{"id":4000000000,"content":"a","deadline":"2026-03-02T09:00:00Z","duration":60,"importance":1,"time_segment_id":3}`))
	require.NoError(t, err)
	fromString, err := DecodeTask([]byte(`{"id":"4000000000","content":"a","deadline":"2026-03-02T09:00:00Z","duration":60,"importance":1,"time_segment_id":"3"}`))
	require.NoError(t, err)

	assert.Equal(t, fromInt, fromString)
	assert.Equal(t, domain.ID(4000000000), fromString.ID)
	assert.Equal(t, domain.ID(3), fromString.TimeSegmentID)
}

func TestIDRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"overflow string", `"4294967296"`},
		{"overflow int", `4294967296`},
		{"negative", `-1`},
		{"not numeric", `"abc"`},
		{"fraction", `1.5`},
		{"null", `null`},
		{"bool", `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			assert.Error(t, json.Unmarshal([]byte(tt.input), &id))
		})
	}
}

func TestDecodeErrorIsSerialisation(t *testing.T) {
	_, err := DecodeTask([]byte(`{"id":"x1"}`))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSerialisation))
}

func TestStoreIDAlias(t *testing.T) {
	task, err := DecodeTask([]byte(`{"_id":"99","_rev":"1-abc","type":"task","content":"a","deadline":"2026-03-02T09:00:00Z","duration":0,"importance":0,"time_segment_id":0}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ID(99), task.ID)

	seg, err := DecodeTimeSegment([]byte(`{"_id":"0","name":"Default","ranges":[],"start":"2026-03-02T09:00:00Z","period":604800}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ID(0), seg.ID)
	assert.Equal(t, 7*24*time.Hour, seg.Period)
}

func TestNewTaskIgnoresIdentifier(t *testing.T) {
	n, err := DecodeNewTask([]byte(`{"id":12,"content":"Buy milk","deadline":"2026-03-03T18:00:00Z","duration":1800,"importance":5,"time_segment_id":2}`))
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", n.Content)
	assert.Equal(t, 30*time.Minute, n.Duration)

	data, err := EncodeNewTask(n)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"id"`)
}

func TestNewTaskValidation(t *testing.T) {
	_, err := DecodeNewTask([]byte(`{"content":"","deadline":"2026-03-03T18:00:00Z","duration":1800,"importance":5,"time_segment_id":2}`))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSerialisation))
	assert.Contains(t, err.Error(), "Content is required")
}

func TestTimeSegmentRoundTrip(t *testing.T) {
	seg := domain.TimeSegment{
		ID:   5,
		Name: "Work",
		Ranges: []domain.Range{
			{Start: monday, End: monday.Add(8 * time.Hour)},
			{Start: monday.Add(24 * time.Hour), End: monday.Add(32 * time.Hour)},
		},
		Start:  monday,
		Period: 7 * 24 * time.Hour,
	}

	data, err := EncodeTimeSegment(seg)
	require.NoError(t, err)
	decoded, err := DecodeTimeSegment(data)
	require.NoError(t, err)
	assert.Equal(t, seg, decoded)
}

func TestRangeAcceptsPairForm(t *testing.T) {
	seg, err := DecodeNewTimeSegment([]byte(`{"name":"Default","start":"2026-03-02T09:00:00Z","period":604800,"ranges":[["2026-03-02T09:00:00Z","2026-03-09T09:00:00Z"]]}`))
	require.NoError(t, err)
	require.Len(t, seg.Ranges, 1)
	assert.Equal(t, monday, seg.Ranges[0].Start)
	assert.Equal(t, monday.Add(7*24*time.Hour), seg.Ranges[0].End)

	_, err = DecodeNewTimeSegment([]byte(`{"name":"x","ranges":[["2026-03-02T09:00:00Z"]]}`))
	assert.Error(t, err)
}

func TestScheduleGolden(t *testing.T) {
	report := domain.Task{ID: 11, Content: "Write report", Deadline: monday.Add(4*24*time.Hour + 8*time.Hour), Duration: 2 * time.Hour, Importance: 8, TimeSegmentID: 1}
	milk := domain.Task{ID: 12, Content: "Buy milk", Deadline: monday.Add(33 * time.Hour), Duration: 30 * time.Minute, Importance: 5, TimeSegmentID: 2}

	// Duplicates and ordering are the scheduler's business; the codec keeps both.
	schedule := domain.Schedule{
		{Task: report, When: monday},
		{Task: milk, When: monday.Add(2 * time.Hour)},
		{Task: milk, When: monday.Add(150 * time.Minute)},
	}

	data, err := EncodeSchedule(schedule)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "schedule", data)

	var doc ScheduleDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, schedule, doc.Domain())
}
