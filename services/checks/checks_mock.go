package checks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPermissionChecker is a mock implementation of the PermissionChecker interface
type MockPermissionChecker struct {
	mock.Mock
}

func (m *MockPermissionChecker) MemberPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error) {
	args := m.Called(ctx, guildID, channelID, userID)
	return args.Get(0).(int64), args.Error(1)
}
