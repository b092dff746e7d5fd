package clients

import (
	"context"

	"github.com/stretchr/testify/mock"

	"botfoundation/models"
)

// MockGateway is a mock implementation of the Gateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendMessage(ctx context.Context, channelID string, response models.Response) error {
	args := m.Called(ctx, channelID, response)
	return args.Error(0)
}

func (m *MockGateway) SetPresence(ctx context.Context, presence models.Presence) error {
	args := m.Called(ctx, presence)
	return args.Error(0)
}

func (m *MockGateway) SelfID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGateway) SyncCommandCatalog(ctx context.Context, guildID string, defs []*models.CommandDefinition) error {
	args := m.Called(ctx, guildID, defs)
	return args.Error(0)
}

func (m *MockGateway) MemberPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error) {
	args := m.Called(ctx, guildID, channelID, userID)
	return args.Get(0).(int64), args.Error(1)
}
