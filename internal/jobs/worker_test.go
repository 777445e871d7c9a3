package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockQueryLogStore is a mock implementation of QueryLogStore
type MockQueryLogStore struct {
	mock.Mock
}

func (m *MockQueryLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(250 * time.Millisecond)

	// Stop worker
	worker.Stop()
	wg.Wait()

	// Verify ProcessJobs was called at least once
	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// Start worker in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(150 * time.Millisecond)

	// Cancel context
	cancel()
	wg.Wait()

	// Verify ProcessJobs was called
	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestQueryLogCleanup_ProcessJobs_Success tests pruning expired rows
func TestQueryLogCleanup_ProcessJobs_Success(t *testing.T) {
	mockStore := new(MockQueryLogStore)

	mockStore.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		// Cutoff should be roughly 7 days in the past
		expected := time.Now().UTC().AddDate(0, 0, -7)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(int64(12), nil)

	cleanup := NewQueryLogCleanup(mockStore, 7)
	err := cleanup.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
}

// TestQueryLogCleanup_ProcessJobs_NothingToDelete tests the empty case
func TestQueryLogCleanup_ProcessJobs_NothingToDelete(t *testing.T) {
	mockStore := new(MockQueryLogStore)
	mockStore.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil)

	cleanup := NewQueryLogCleanup(mockStore, 30)
	err := cleanup.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
}

// TestQueryLogCleanup_ProcessJobs_StoreError tests store error handling
func TestQueryLogCleanup_ProcessJobs_StoreError(t *testing.T) {
	mockStore := new(MockQueryLogStore)
	mockStore.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("database error"))

	cleanup := NewQueryLogCleanup(mockStore, 30)
	err := cleanup.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to prune query log")
	mockStore.AssertExpectations(t)
}

// TestNewQueryLogCleanup_DefaultRetention tests the retention fallback
func TestNewQueryLogCleanup_DefaultRetention(t *testing.T) {
	cleanup := NewQueryLogCleanup(new(MockQueryLogStore), 0)
	assert.Equal(t, DefaultRetentionDays, cleanup.retentionDays)
}
