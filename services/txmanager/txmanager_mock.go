package txmanager

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransactionManager records WithTransaction calls. Unless an error is
// configured, it runs fn directly with the caller's context.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
