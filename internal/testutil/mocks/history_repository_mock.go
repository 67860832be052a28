package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/ctiprep/internal/models"
)

// MockHistoryRepository is a mock implementation of repository.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Bucket() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockHistoryRepository) List(ctx context.Context) []models.HistoryRecord {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.HistoryRecord)
}

func (m *MockHistoryRepository) Prepend(ctx context.Context, record models.HistoryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHistoryRepository) Replace(ctx context.Context, records []models.HistoryRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockHistoryRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
