package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func mockMongoDuplicateKeyError(key string) error {
	mongoErr := mongo.WriteError{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.collection index: _id_ dup key: { : \"%s\" }", key),
	}
	return mongo.WriteException{WriteErrors: []mongo.WriteError{mongoErr}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	err := WithRetries(func() error {
		opCalled++
		return nil
	}, 3, IsMongoDuplicateKeyError)

	assert.NoError(t, err)
	assert.Equal(t, 1, opCalled)
}

func TestWithRetries_FailureNonRetryable(t *testing.T) {
	var opCalled int
	expectedErr := errors.New("some other error")
	err := WithRetries(func() error {
		opCalled++
		return expectedErr
	}, 3, IsMongoDuplicateKeyError)

	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 1, opCalled)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	collidingID := primitive.NewObjectID()

	maxRetries := 3
	err := WithRetries(func() error {
		opCalled++
		return mockMongoDuplicateKeyError(collidingID.Hex())
	}, maxRetries, IsMongoDuplicateKeyError)

	assert.Error(t, err)
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, maxRetries+1, opCalled)
}

func TestWithRetries_CollisionResolves(t *testing.T) {
	taken := primitive.NewObjectID()
	fresh := primitive.NewObjectID()
	ids := []primitive.ObjectID{taken, taken, fresh}

	inserted := map[primitive.ObjectID]bool{taken: true}
	var opCalled int

	err := Try(func() error {
		id := ids[opCalled]
		opCalled++
		if inserted[id] {
			return mockMongoDuplicateKeyError(id.Hex())
		}
		inserted[id] = true
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, opCalled)
	assert.True(t, inserted[fresh])
	assert.Len(t, inserted, 2)
}

func TestIsMongoDuplicateKeyError_Bulk(t *testing.T) {
	err := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}}
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("E11000 lookalike")))
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(errors.New("validation failed")))
	assert.False(t, IsTransientError(mockMongoDuplicateKeyError("x")))
	assert.True(t, IsTransientError(context.DeadlineExceeded))
}

func TestTryTransient_StopsOnPermanentError(t *testing.T) {
	var opCalled int
	permanent := errors.New("bad filter")
	err := TryTransient(func() error {
		opCalled++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, opCalled)
}
