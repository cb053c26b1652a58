package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/db"
	"hena/stays/internal/models"
)

// IPropertyService stores published listings.
type IPropertyService interface {
	FindByReferenceNumber(ctx context.Context, ref string) (*models.Property, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	UpdateFromFeed(ctx context.Context, id primitive.ObjectID, details models.PropertyDetails) error
}

const propertiesCollection = "properties"

type propertyService struct {
	db *mongo.Database
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(db *mongo.Database) IPropertyService {
	return &propertyService{db: db}
}

// FindByReferenceNumber finds the live property imported from a feed record with ref.
func (s *propertyService) FindByReferenceNumber(ctx context.Context, ref string) (*models.Property, error) {
	filter := bson.M{"xmlMetaData.referenceNumber": ref, "deleted": false}
	property, err := s.findOne(ctx, filter)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding property by reference number %s: %w", ref, err)
	}
	return property, err
}

// FindByID finds a live property by ID.
func (s *propertyService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	property, err := s.findOne(ctx, bson.M{"_id": id, "deleted": false})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding property %s: %w", id.Hex(), err)
	}
	return property, err
}

func (s *propertyService) findOne(ctx context.Context, filter bson.M) (*models.Property, error) {
	var property models.Property
	err := s.db.Collection(propertiesCollection).FindOne(ctx, filter).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, err
	}
	return &property, nil
}

// Create inserts a new property, generating its ID and timestamps.
func (s *propertyService) Create(ctx context.Context, property *models.Property) error {
	collection := s.db.Collection(propertiesCollection)
	now := time.Now().UTC()
	property.CreatedAt = now
	property.UpdatedAt = now
	if property.Status == "" {
		property.Status = models.PropertyStatusActive
	}

	operation := func() error {
		property.GenID()
		_, err := collection.InsertOne(ctx, property)
		return err
	}
	if err := db.Try(operation); err != nil {
		return fmt.Errorf("error inserting property %s: %w", property.ReferenceNumber(), err)
	}
	return nil
}

// UpdateFromFeed overwrites the listing fields of an existing property with
// details from a feed. Ownership, status and creation time are left alone.
func (s *propertyService) UpdateFromFeed(ctx context.Context, id primitive.ObjectID, details models.PropertyDetails) error {
	collection := s.db.Collection(propertiesCollection)
	set := bson.M{
		"title":         details.Title,
		"description":   details.Description,
		"location":      details.Location,
		"price":         details.Price,
		"toilets":       details.Toilets,
		"bedrooms":      details.Bedrooms,
		"area":          details.Area,
		"permitNumbers": details.PermitNumbers,
		"amenities":     details.Amenities,
		"category":      details.Category,
		"subCategory":   details.SubCategory,
		"images":        details.Images,
		"updatedAt":     time.Now().UTC(),
	}
	if details.XMLMetaData != nil {
		set["xmlMetaData"] = details.XMLMetaData
	}

	var res *mongo.UpdateResult
	err := db.TryTransient(func() error {
		var updateErr error
		res, updateErr = collection.UpdateOne(ctx, bson.M{"_id": id, "deleted": false}, bson.M{"$set": set})
		return updateErr
	})
	if err != nil {
		return fmt.Errorf("error updating property %s from feed: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
