package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"auditexport/internal/model"
)

type MockOwnerRepository struct {
	mock.Mock
}

func (m *MockOwnerRepository) FindByID(ctx context.Context, id string) (*model.Owner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Owner), args.Error(1)
}
