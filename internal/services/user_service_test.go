package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/models"
	"hena/stays/internal/utils"
)

// setupServiceTestDB returns a throwaway database that is dropped when the test ends.
func setupServiceTestDB(t *testing.T, prefix string) *mongo.Database {
	t.Helper()
	dbName := fmt.Sprintf("testdb_%s_%d", prefix, time.Now().UnixNano())
	db := utils.SetupTestDB(t, dbName)
	t.Cleanup(func() {
		if err := db.Drop(context.Background()); err != nil {
			t.Logf("Failed to drop database %s: %v", dbName, err)
		}
	})
	return db
}

func TestUserService_CreateAndFind(t *testing.T) {
	db := setupServiceTestDB(t, "user_service")
	svc := NewUserService(db)
	ctx := context.Background()

	user := &models.User{Name: "Agent One", Email: "  Agent.One@Example.com ", Role: models.RoleBroker}
	require.NoError(t, svc.Create(ctx, user))
	assert.False(t, user.ID.IsZero())
	assert.Equal(t, "agent.one@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := svc.FindByEmail(ctx, "AGENT.ONE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, models.RoleBroker, byEmail.Role)

	byID, err := svc.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Agent One", byID.Name)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "agent.one@example.com", normalizeEmail("  Agent.One@EXAMPLE.com\t"))
	assert.Equal(t, "a@b.ae", normalizeEmail("a@b.ae"))
	assert.Equal(t, "", normalizeEmail("   "))
}

func TestUserService_FindByEmailIgnoresCase(t *testing.T) {
	db := setupServiceTestDB(t, "user_service_case")
	svc := NewUserService(db)
	ctx := context.Background()

	user := &models.User{Name: "Feed Agent", Email: "feed.agent@example.com", Role: models.RoleBroker}
	require.NoError(t, svc.Create(ctx, user))

	for _, email := range []string{"Feed.Agent@Example.com", "FEED.AGENT@EXAMPLE.COM", " feed.agent@example.com "} {
		found, err := svc.FindByEmail(ctx, email)
		require.NoError(t, err, email)
		assert.Equal(t, user.ID, found.ID, email)
	}

	_, err := svc.FindByEmail(ctx, "feed.agent@example.org")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	db := setupServiceTestDB(t, "user_service_dup")
	svc := NewUserService(db)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, &models.User{Email: "dup@example.com", Role: models.RoleBroker}))
	err := svc.Create(ctx, &models.User{Email: "DUP@example.com", Role: models.RoleEndUser})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserService_NotFound(t *testing.T) {
	db := setupServiceTestDB(t, "user_service_nf")
	svc := NewUserService(db)
	ctx := context.Background()

	_, err := svc.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, err = svc.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestUserService_DeletedUsersAreHidden(t *testing.T) {
	db := setupServiceTestDB(t, "user_service_del")
	svc := NewUserService(db)
	ctx := context.Background()

	user := &models.User{Email: "gone@example.com", Role: models.RoleBroker, Deleted: true}
	require.NoError(t, svc.Create(ctx, user))

	_, err := svc.FindByEmail(ctx, "gone@example.com")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	// A deleted account does not block reuse of its email.
	require.NoError(t, svc.Create(ctx, &models.User{Email: "gone@example.com", Role: models.RoleBroker}))
}

func TestUserService_Update(t *testing.T) {
	db := setupServiceTestDB(t, "user_service_update")
	svc := NewUserService(db)
	ctx := context.Background()

	company := &models.User{Email: "company@example.com", Role: models.RoleCompany}
	require.NoError(t, svc.Create(ctx, company))
	agent := &models.User{Email: "agent@example.com", Role: models.RoleEndUser}
	require.NoError(t, svc.Create(ctx, agent))

	role := models.RoleBroker
	updated, err := svc.Update(ctx, agent.ID, UserUpdate{
		Role:         &role,
		Company:      &company.ID,
		Subscription: &models.Subscription{Plan: "pro", Credits: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleBroker, updated.Role)
	require.NotNil(t, updated.Company)
	assert.Equal(t, company.ID, *updated.Company)
	require.NotNil(t, updated.Subscription)
	assert.Equal(t, 10, updated.Subscription.Credits)
	assert.True(t, updated.BelongsToCompany(company.ID))

	detached, err := svc.Update(ctx, agent.ID, UserUpdate{ClearCompany: true})
	require.NoError(t, err)
	assert.Nil(t, detached.Company)
	assert.Equal(t, models.RoleBroker, detached.Role, "untouched fields are kept")

	_, err = svc.Update(ctx, primitive.NewObjectID(), UserUpdate{Role: &role})
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
