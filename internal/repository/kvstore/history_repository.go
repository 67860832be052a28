package kvstore

import (
	"context"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/store"
)

type historyRepository struct {
	store  *store.Store
	bucket string
}

// NewHistoryRepository creates a HistoryRepository for the named bucket.
func NewHistoryRepository(s *store.Store, bucket string) repository.HistoryRepository {
	return &historyRepository{store: s, bucket: bucket}
}

func (r *historyRepository) Bucket() string { return r.bucket }

func (r *historyRepository) List(ctx context.Context) []models.HistoryRecord {
	var records []models.HistoryRecord
	if !r.store.Get(ctx, r.bucket, &records) {
		return []models.HistoryRecord{}
	}
	return records
}

func (r *historyRepository) Prepend(ctx context.Context, record models.HistoryRecord) error {
	log := logger.FromContext(ctx).WithPrefix("history_repo").WithField("bucket", r.bucket)

	records := r.List(ctx)
	records = append([]models.HistoryRecord{record}, records...)
	if !r.store.Set(ctx, r.bucket, records) {
		log.Warn("failed to append record %s", record.ID)
		return store.ErrWrite
	}
	log.Debug("appended record %s (%d total)", record.ID, len(records))
	return nil
}

func (r *historyRepository) Replace(ctx context.Context, records []models.HistoryRecord) error {
	if records == nil {
		records = []models.HistoryRecord{}
	}
	if !r.store.Set(ctx, r.bucket, records) {
		return store.ErrWrite
	}
	return nil
}

func (r *historyRepository) Clear(ctx context.Context) error {
	if !r.store.Remove(ctx, r.bucket) {
		return store.ErrWrite
	}
	return nil
}
