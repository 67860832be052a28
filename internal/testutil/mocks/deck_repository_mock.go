package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/ctiprep/internal/models"
)

// MockDeckRepository is a mock implementation of repository.DeckRepository
type MockDeckRepository struct {
	mock.Mock
}

func (m *MockDeckRepository) Load(ctx context.Context) *models.Deck {
	args := m.Called(ctx)
	return args.Get(0).(*models.Deck)
}

func (m *MockDeckRepository) Save(ctx context.Context, deck *models.Deck) error {
	args := m.Called(ctx, deck)
	return args.Error(0)
}

func (m *MockDeckRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
