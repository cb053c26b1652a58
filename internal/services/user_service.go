package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hena/stays/internal/db"
	"hena/stays/internal/models"
)

// ErrEmailExists is returned when an attempt is made to use an email that already exists.
var ErrEmailExists = errors.New("email already in use by another account")

// IUserService defines the account operations used by feed ingestion and the API.
type IUserService interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, userID primitive.ObjectID, update UserUpdate) (*models.User, error)
}

// UserUpdate lists the account fields that may change after creation. Nil
// fields are left untouched; ClearCompany detaches the user from its company.
type UserUpdate struct {
	Role         *models.UserRole
	Company      *primitive.ObjectID
	ClearCompany bool
	Subscription *models.Subscription
}

const usersCollection = "users"

type userService struct {
	db *mongo.Database
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database) IUserService {
	return &userService{db: db}
}

// FindByEmail finds a non-deleted user by their email address.
// Returns nil and mongo.ErrNoDocuments if not found.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"email": normalizeEmail(email), "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// FindByID finds a non-deleted user by ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)
	filter := bson.M{"_id": userID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// Create inserts a new user. The email must not belong to another live account.
// ID and timestamps are filled in when empty.
func (s *userService) Create(ctx context.Context, user *models.User) error {
	collection := s.db.Collection(usersCollection)
	user.Email = normalizeEmail(user.Email)

	count, err := collection.CountDocuments(ctx, bson.M{"email": user.Email, "deleted": false})
	if err != nil {
		return fmt.Errorf("error checking email uniqueness for %s: %w", user.Email, err)
	}
	if count > 0 {
		return ErrEmailExists
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	presetID := !user.ID.IsZero()

	operation := func() error {
		if !presetID {
			user.GenID()
		}
		_, insertErr := collection.InsertOne(ctx, user)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "email_1") {
			return ErrEmailExists
		}
		return fmt.Errorf("error inserting user %s: %w", user.Email, err)
	}
	return nil
}

// Update applies update to a live account and returns the stored result.
func (s *userService) Update(ctx context.Context, userID primitive.ObjectID, update UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Role != nil {
		set["role"] = *update.Role
	}
	if update.Company != nil {
		set["company"] = *update.Company
	}
	if update.Subscription != nil {
		set["subscription"] = update.Subscription
	}
	change := bson.M{"$set": set}
	if update.ClearCompany && update.Company == nil {
		change["$unset"] = bson.M{"company": ""}
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.db.Collection(usersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": userID, "deleted": false}, change, opts).
		Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error updating user %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
