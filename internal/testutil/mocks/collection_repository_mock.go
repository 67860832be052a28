package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/ctiprep/internal/models"
)

// MockCollectionRepository is a mock implementation of repository.CollectionRepository
type MockCollectionRepository struct {
	mock.Mock
}

func (m *MockCollectionRepository) Favorites(ctx context.Context) map[string]models.Favorite {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return map[string]models.Favorite{}
	}
	return args.Get(0).(map[string]models.Favorite)
}

func (m *MockCollectionRepository) SaveFavorites(ctx context.Context, favs map[string]models.Favorite) error {
	args := m.Called(ctx, favs)
	return args.Error(0)
}

func (m *MockCollectionRepository) Lists(ctx context.Context) []models.QuestionList {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.QuestionList)
}

func (m *MockCollectionRepository) SaveLists(ctx context.Context, lists []models.QuestionList) error {
	args := m.Called(ctx, lists)
	return args.Error(0)
}
