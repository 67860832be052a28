package kvstore

import (
	"context"

	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/store"
)

type sessionRepository struct {
	store *store.Store
}

func NewSessionRepository(s *store.Store) repository.SessionRepository {
	return &sessionRepository{store: s}
}

func (r *sessionRepository) Load(ctx context.Context, key string) (*models.SessionSnapshot, bool) {
	var snap models.SessionSnapshot
	if !r.store.Get(ctx, key, &snap) || len(snap.Questions) == 0 {
		return nil, false
	}
	if snap.Answers == nil {
		snap.Answers = make(map[string]models.AnswerRecord)
	}
	return &snap, true
}

func (r *sessionRepository) Save(ctx context.Context, key string, snapshot models.SessionSnapshot) error {
	if !r.store.Set(ctx, key, snapshot) {
		return store.ErrWrite
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	if !r.store.Remove(ctx, key) {
		return store.ErrWrite
	}
	return nil
}

type timerRepository struct {
	store *store.Store
}

func NewTimerRepository(s *store.Store) repository.TimerRepository {
	return &timerRepository{store: s}
}

func (r *timerRepository) Load(ctx context.Context, key string) (models.TimerState, bool) {
	var state models.TimerState
	ok := r.store.Get(ctx, key, &state)
	return state, ok
}

func (r *timerRepository) Save(ctx context.Context, key string, state models.TimerState) error {
	if !r.store.Set(ctx, key, state) {
		return store.ErrWrite
	}
	return nil
}

func (r *timerRepository) Delete(ctx context.Context, key string) error {
	if !r.store.Remove(ctx, key) {
		return store.ErrWrite
	}
	return nil
}
