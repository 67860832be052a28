package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/ctiprep/internal/models"
)

// MockFetcher is a mock implementation of bank.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchAll(ctx context.Context, sources []string) ([]models.RawQuestion, error) {
	args := m.Called(ctx, sources)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawQuestion), args.Error(1)
}

func (m *MockFetcher) FetchBlueprint(ctx context.Context, source string) (*models.Blueprint, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Blueprint), args.Error(1)
}
