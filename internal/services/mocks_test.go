package services

import (
	"context"

	"github.com/smmwallet/backend/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) PlaceOrder(ctx context.Context, serviceKey, link string, quantity int) (string, error) {
	args := m.Called(ctx, serviceKey, link, quantity)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) GetStatus(ctx context.Context, externalOrderID string) (provider.Status, error) {
	args := m.Called(ctx, externalOrderID)
	return args.Get(0).(provider.Status), args.Error(1)
}
