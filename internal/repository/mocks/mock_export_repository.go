package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"auditexport/internal/model"
	"auditexport/internal/repository"
)

type MockExportRepository struct {
	mock.Mock
}

func (m *MockExportRepository) Create(ctx context.Context, job *model.ExportJob) (*model.ExportJob, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if f, ok := args.Get(0).(func(context.Context, *model.ExportJob) *model.ExportJob); ok {
		return f(ctx, job), args.Error(1)
	}
	return args.Get(0).(*model.ExportJob), args.Error(1)
}

func (m *MockExportRepository) FindByID(ctx context.Context, id string) (*model.ExportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExportJob), args.Error(1)
}

func (m *MockExportRepository) ListByOwner(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.ExportJob], error) {
	args := m.Called(ctx, ownerID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ExportJob]), args.Error(1)
}

func (m *MockExportRepository) Update(ctx context.Context, id string, u repository.JobUpdate) (*model.ExportJob, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExportJob), args.Error(1)
}

func (m *MockExportRepository) FindExpired(ctx context.Context, now time.Time) ([]model.ExportJob, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExportJob), args.Error(1)
}

func (m *MockExportRepository) FindByStatus(ctx context.Context, statuses ...model.ExportStatus) ([]model.ExportJob, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExportJob), args.Error(1)
}
