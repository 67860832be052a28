package kvstore

import (
	"context"

	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/store"
)

type examRepository struct {
	store *store.Store
}

func NewExamRepository(s *store.Store) repository.ExamRepository {
	return &examRepository{store: s}
}

func (r *examRepository) Meta(ctx context.Context) (*models.ExamMeta, bool) {
	var meta models.ExamMeta
	if !r.store.Get(ctx, ExamMetaKey, &meta) {
		return nil, false
	}
	return &meta, true
}

func (r *examRepository) SaveMeta(ctx context.Context, meta models.ExamMeta) error {
	if !r.store.Set(ctx, ExamMetaKey, meta) {
		return store.ErrWrite
	}
	return nil
}

func (r *examRepository) Result(ctx context.Context) (*models.HistoryRecord, bool) {
	var rec models.HistoryRecord
	if !r.store.Get(ctx, ExamResultKey, &rec) {
		return nil, false
	}
	return &rec, true
}

func (r *examRepository) SaveResult(ctx context.Context, result models.HistoryRecord) error {
	if !r.store.Set(ctx, ExamResultKey, result) {
		return store.ErrWrite
	}
	return nil
}
