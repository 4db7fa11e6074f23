package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"auditexport/internal/model"
	"auditexport/internal/service"
)

type MockExportService struct {
	mock.Mock
}

var _ service.ExportService = (*MockExportService)(nil)

func (m *MockExportService) Create(ctx context.Context, cfg model.ExportConfig) (*model.ExportJob, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExportJob), args.Error(1)
}

func (m *MockExportService) Get(ctx context.Context, id string) (*service.JobStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.JobStatus), args.Error(1)
}

func (m *MockExportService) Download(ctx context.Context, id string) (*service.Download, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockExportService) List(ctx context.Context, ownerID string, limit int) (*service.ExportListResult, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportListResult), args.Error(1)
}

func (m *MockExportService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockExportService) CleanupExpired(ctx context.Context) (*service.CleanupResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CleanupResult), args.Error(1)
}

func (m *MockExportService) RecoverInterrupted(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockExportService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
