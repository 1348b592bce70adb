package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
	"github.com/roach88/eva/internal/store"
	"github.com/roach88/eva/internal/wire"
)

// DefaultSegmentID is the identifier of the seeded time segment.
const DefaultSegmentID domain.ID = 0

const week = 7 * 24 * time.Hour

// DefaultSegment is the time segment written into a fresh store: one
// week-long window starting at now, repeating weekly.
func DefaultSegment(now time.Time) domain.TimeSegment {
	now = now.UTC().Truncate(time.Second)
	return domain.TimeSegment{
		ID:     DefaultSegmentID,
		Name:   "Default",
		Ranges: []domain.Range{{Start: now, End: now.Add(week)}},
		Start:  now,
		Period: week,
	}
}

// Bootstrap migrates a freshly opened store. When seed is true and the store
// has never been migrated, the default segment is created so the store never
// starts without a time segment, and untyped documents left by earlier
// versions become tasks of that segment.
func Bootstrap(ctx context.Context, s store.DocumentStore, now time.Time, seed bool, log zerolog.Logger) error {
	var m store.Migration
	if seed {
		seg := DefaultSegment(now)
		body, err := wire.EncodeTimeSegment(seg)
		if err != nil {
			return err
		}
		m.Seeds = append(m.Seeds, store.Document{
			ID:   wire.FormatID(seg.ID),
			Type: TypeTimeSegment,
			Body: body,
		})
		m.Upgrade = upgradeLegacyTask
	}

	ran, err := store.Migrate(ctx, s, m)
	if err != nil {
		return errs.Database("while migrating the database", err)
	}
	if ran {
		log.Info().Int("version", store.DataVersion).Int("seeded", len(m.Seeds)).Msg("database migrated")
	}
	return nil
}

// upgradeLegacyTask files a document written before time segments existed
// under the default segment.
func upgradeLegacyTask(doc store.Document) (store.Document, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		return store.Document{}, errs.Serialisation("while upgrading a legacy task", err)
	}
	if body == nil {
		body = map[string]json.RawMessage{}
	}
	ref := wire.FormatID(DefaultSegmentID)
	body["time_segment_id"] = json.RawMessage(ref)

	out, err := wire.Canonical(body)
	if err != nil {
		return store.Document{}, errs.Serialisation("while upgrading a legacy task", err)
	}
	doc.Type = TypeTask
	doc.Ref = ref
	doc.Body = out
	return doc, nil
}
