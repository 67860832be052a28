package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/ctiprep/internal/models"
)

// MockExamRepository is a mock implementation of repository.ExamRepository
type MockExamRepository struct {
	mock.Mock
}

func (m *MockExamRepository) Meta(ctx context.Context) (*models.ExamMeta, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.ExamMeta), args.Bool(1)
}

func (m *MockExamRepository) SaveMeta(ctx context.Context, meta models.ExamMeta) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockExamRepository) Result(ctx context.Context) (*models.HistoryRecord, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.HistoryRecord), args.Bool(1)
}

func (m *MockExamRepository) SaveResult(ctx context.Context, result models.HistoryRecord) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}
