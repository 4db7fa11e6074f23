package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"auditexport/internal/model"
)

type MockLedgerSource struct {
	mock.Mock
}

func (m *MockLedgerSource) Accounts(ctx context.Context, ownerID string) ([]model.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockLedgerSource) Transactions(ctx context.Context, ownerID string, p model.Period) ([]model.Transaction, error) {
	args := m.Called(ctx, ownerID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *MockLedgerSource) Invoices(ctx context.Context, ownerID string, p model.Period) ([]model.Invoice, error) {
	args := m.Called(ctx, ownerID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Invoice), args.Error(1)
}

func (m *MockLedgerSource) Customers(ctx context.Context, ownerID string) ([]model.Customer, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Customer), args.Error(1)
}

func (m *MockLedgerSource) Suppliers(ctx context.Context, ownerID string) ([]model.Supplier, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Supplier), args.Error(1)
}
