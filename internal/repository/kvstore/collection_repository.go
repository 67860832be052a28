package kvstore

import (
	"context"

	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/store"
)

type collectionRepository struct {
	store *store.Store
}

func NewCollectionRepository(s *store.Store) repository.CollectionRepository {
	return &collectionRepository{store: s}
}

func (r *collectionRepository) Favorites(ctx context.Context) map[string]models.Favorite {
	favs := map[string]models.Favorite{}
	if !r.store.Get(ctx, FavoritesKey, &favs) || favs == nil {
		return map[string]models.Favorite{}
	}
	return favs
}

func (r *collectionRepository) SaveFavorites(ctx context.Context, favs map[string]models.Favorite) error {
	if favs == nil {
		favs = map[string]models.Favorite{}
	}
	if !r.store.Set(ctx, FavoritesKey, favs) {
		return store.ErrWrite
	}
	return nil
}

func (r *collectionRepository) Lists(ctx context.Context) []models.QuestionList {
	var lists []models.QuestionList
	if !r.store.Get(ctx, ListsKey, &lists) || lists == nil {
		return []models.QuestionList{}
	}
	return lists
}

func (r *collectionRepository) SaveLists(ctx context.Context, lists []models.QuestionList) error {
	if lists == nil {
		lists = []models.QuestionList{}
	}
	if !r.store.Set(ctx, ListsKey, lists) {
		return store.ErrWrite
	}
	return nil
}
