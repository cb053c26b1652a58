package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hena/stays/internal/db"
	"hena/stays/internal/models"
)

// IFeedService persists feed submissions and their review state.
type IFeedService interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PropertiesXMLEntity, error)
	FindByCreatorAndURL(ctx context.Context, creator primitive.ObjectID, url string) (*models.PropertiesXMLEntity, error)
	FindByStatus(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error)
	Create(ctx context.Context, entity *models.PropertiesXMLEntity) error
	Save(ctx context.Context, entity *models.PropertiesXMLEntity) error
}

const feedsCollection = "properties_xml"

type feedService struct {
	db *mongo.Database
}

// NewFeedService creates a new FeedService.
func NewFeedService(db *mongo.Database) IFeedService {
	return &feedService{db: db}
}

func (s *feedService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PropertiesXMLEntity, error) {
	entity, err := s.findOne(ctx, bson.M{"_id": id})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding feed %s: %w", id.Hex(), err)
	}
	return entity, err
}

// FindByCreatorAndURL finds the feed a creator registered for url.
func (s *feedService) FindByCreatorAndURL(ctx context.Context, creator primitive.ObjectID, url string) (*models.PropertiesXMLEntity, error) {
	entity, err := s.findOne(ctx, bson.M{"creator": creator, "url": url})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding feed %s for creator %s: %w", url, creator.Hex(), err)
	}
	return entity, err
}

func (s *feedService) findOne(ctx context.Context, filter bson.M) (*models.PropertiesXMLEntity, error) {
	var entity models.PropertiesXMLEntity
	err := s.db.Collection(feedsCollection).FindOne(ctx, filter).Decode(&entity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, err
	}
	return &entity, nil
}

// FindByStatus lists feeds in status, oldest first. An empty status lists every feed.
func (s *feedService) FindByStatus(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := s.db.Collection(feedsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing feeds with status %q: %w", status, err)
	}
	defer cursor.Close(ctx)

	entities := []models.PropertiesXMLEntity{}
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, fmt.Errorf("error decoding feeds with status %q: %w", status, err)
	}
	return entities, nil
}

// Create inserts a new feed entity, generating its ID and timestamps.
func (s *feedService) Create(ctx context.Context, entity *models.PropertiesXMLEntity) error {
	collection := s.db.Collection(feedsCollection)
	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	operation := func() error {
		entity.GenID()
		_, err := collection.InsertOne(ctx, entity)
		return err
	}
	if err := db.Try(operation); err != nil {
		return fmt.Errorf("error inserting feed %s: %w", entity.URL, err)
	}
	return nil
}

// Save replaces the stored entity with the given one.
func (s *feedService) Save(ctx context.Context, entity *models.PropertiesXMLEntity) error {
	collection := s.db.Collection(feedsCollection)
	entity.UpdatedAt = time.Now().UTC()

	var res *mongo.UpdateResult
	err := db.TryTransient(func() error {
		var replaceErr error
		res, replaceErr = collection.ReplaceOne(ctx, bson.M{"_id": entity.ID}, entity)
		return replaceErr
	})
	if err != nil {
		return fmt.Errorf("error saving feed %s: %w", entity.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
