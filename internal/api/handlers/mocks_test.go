package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hena/stays/internal/cache"
	"hena/stays/internal/ingest"
	"hena/stays/internal/models"
)

// --- Mocks ---

// MockPipeline implements ingest.IPipeline
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Submit(ctx context.Context, actor *models.User, url string, mode ingest.Mode) (*ingest.SubmissionResult, error) {
	args := m.Called(ctx, actor, url, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.SubmissionResult), args.Error(1)
}

func (m *MockPipeline) Revalidate(ctx context.Context, actor *models.User, id primitive.ObjectID, mode ingest.Mode) (*ingest.SubmissionResult, error) {
	args := m.Called(ctx, actor, id, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.SubmissionResult), args.Error(1)
}

func (m *MockPipeline) Approve(ctx context.Context, admin *models.User, id primitive.ObjectID) (*ingest.ApprovalResult, error) {
	args := m.Called(ctx, admin, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.ApprovalResult), args.Error(1)
}

func (m *MockPipeline) Reject(ctx context.Context, admin *models.User, id primitive.ObjectID, reason string) (*models.PropertiesXMLEntity, error) {
	args := m.Called(ctx, admin, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertiesXMLEntity), args.Error(1)
}

func (m *MockPipeline) Get(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.PropertiesXMLEntity, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertiesXMLEntity), args.Error(1)
}

func (m *MockPipeline) List(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PropertiesXMLEntity), args.Error(1)
}

func (m *MockPipeline) RefreshApproved(ctx context.Context) (ingest.RefreshSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(ingest.RefreshSummary), args.Error(1)
}

// MockUserFinder implements handlers.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// memoryLocker is an in-process stand-in for the Redis locker.
type memoryLocker struct {
	held     map[string]bool
	acquired []string
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: map[string]bool{}}
}

func (l *memoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held[key] {
		return nil, cache.ErrLocked
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func() { delete(l.held, key) }, nil
}
