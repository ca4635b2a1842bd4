package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPruner struct {
	mock.Mock
}

func (m *mockPruner) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestAuditCleanupWorker_Cutoff(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	pruner := new(mockPruner)
	pruner.On("Cleanup", mock.Anything, now.AddDate(0, 0, -90)).Return(int64(3), nil)

	w := NewAuditCleanupWorker(pruner, 90, time.Hour)
	w.now = func() time.Time { return now }

	assert.NoError(t, w.cleanup(context.Background()))
	pruner.AssertExpectations(t)
}

func TestAuditCleanupWorker_Error(t *testing.T) {
	pruner := new(mockPruner)
	pruner.On("Cleanup", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	w := NewAuditCleanupWorker(pruner, 30, time.Hour)
	assert.Error(t, w.cleanup(context.Background()))
}
