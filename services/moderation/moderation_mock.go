package moderation

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"botfoundation/models"
)

// MockModerationService is a mock implementation of the ModerationService interface
type MockModerationService struct {
	mock.Mock
}

func (m *MockModerationService) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockModerationService) GetBlacklistEntry(
	ctx context.Context,
	userID string,
) (mo.Option[*models.BlacklistEntry], error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(mo.Option[*models.BlacklistEntry]), args.Error(1)
}

func (m *MockModerationService) AddBlacklistEntry(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockModerationService) RemoveBlacklistEntry(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockModerationService) ListBlacklist(ctx context.Context) ([]*models.BlacklistEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BlacklistEntry), args.Error(1)
}

func (m *MockModerationService) AddWarn(
	ctx context.Context,
	userID, guildID, moderatorID, reason string,
) (*models.WarnRecord, error) {
	args := m.Called(ctx, userID, guildID, moderatorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarnRecord), args.Error(1)
}

func (m *MockModerationService) WarnUser(
	ctx context.Context,
	userID, guildID, moderatorID, reason string,
) (*models.WarnRecord, int, error) {
	args := m.Called(ctx, userID, guildID, moderatorID, reason)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).(*models.WarnRecord), args.Int(1), args.Error(2)
}

func (m *MockModerationService) ListWarns(ctx context.Context, userID, guildID string) ([]*models.WarnRecord, error) {
	args := m.Called(ctx, userID, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WarnRecord), args.Error(1)
}

func (m *MockModerationService) RemoveWarn(ctx context.Context, warnID int64, guildID string) error {
	args := m.Called(ctx, warnID, guildID)
	return args.Error(0)
}
