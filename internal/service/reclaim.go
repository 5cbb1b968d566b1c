package service

import (
	"bitwise74/filehub/internal/model"
	"bitwise74/filehub/internal/storage"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultReclaimMinAge is how old an unreferenced blob has to be before it's
// reclaimed. Uploads write the blob before the row, younger blobs may still be
// in flight.
const DefaultReclaimMinAge = time.Hour

// reclaimBatch bounds the key list of a single IN lookup
const reclaimBatch = 500

// Reclaimer removes blobs that no File row points to. They're left behind
// when a file row is deleted but its blob couldn't be.
type Reclaimer struct {
	db     *gorm.DB
	blob   storage.Blob
	events *EventLog
	minAge time.Duration
	now    func() time.Time
}

// NewReclaimer creates a reclaimer that leaves blobs younger than minAge alone.
// A non-positive minAge uses DefaultReclaimMinAge.
func NewReclaimer(db *gorm.DB, blob storage.Blob, events *EventLog, minAge time.Duration) *Reclaimer {
	if minAge <= 0 {
		minAge = DefaultReclaimMinAge
	}

	return &Reclaimer{
		db:     db,
		blob:   blob,
		events: events,
		minAge: minAge,
		now:    time.Now,
	}
}

// Run does a single pass over the whole store and returns how many blobs were
// removed
func (r *Reclaimer) Run(ctx context.Context) (int, error) {
	objs, err := r.blob.List(ctx, "", 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list blobs, %w", err)
	}

	cutoff := r.now().Add(-r.minAge)

	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		if o.LastModified.After(cutoff) {
			continue
		}
		keys = append(keys, o.Key)
	}

	removed := 0

	for batch := range slices.Chunk(keys, reclaimBatch) {
		referenced, err := r.referenced(ctx, batch)
		if err != nil {
			return removed, err
		}

		for _, k := range batch {
			if _, ok := referenced[k]; ok {
				continue
			}

			if err := r.blob.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
				zap.L().Warn("Failed to reclaim blob", zap.String("key", k), zap.Error(err))
				continue
			}

			removed++
			blobsReclaimedTotal.Inc()
		}
	}

	return removed, nil
}

func (r *Reclaimer) referenced(ctx context.Context, keys []string) (map[string]struct{}, error) {
	var known []string

	err := r.db.
		WithContext(ctx).
		Model(model.File{}).
		Where("storage_name IN ?", keys).
		Pluck("storage_name", &known).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up file rows, %w", err)
	}

	out := make(map[string]struct{}, len(known))
	for _, k := range known {
		out[k] = struct{}{}
	}

	return out, nil
}

// Schedule registers Run on a cron spec. An empty spec returns a nil cron.
func (r *Reclaimer) Schedule(spec string) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}

	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		n, err := r.Run(context.Background())
		if err != nil {
			zap.L().Error("Blob reclamation failed", zap.Error(err))
			r.events.Add(LevelError, "Blob reclamation failed: "+err.Error())
			return
		}

		zap.L().Info("Blob reclamation finished", zap.Int("removed", n))
		r.events.Add(LevelInfo, fmt.Sprintf("Blob reclamation removed %d orphaned blobs", n))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reclaim schedule, %w", err)
	}

	c.Start()
	return c, nil
}
