package ingest

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hena/stays/internal/models"
	"hena/stays/internal/services"
	"hena/stays/internal/xmlfeed"
)

// The lookups below return mongo.ErrNoDocuments when nothing matches.

// UserDirectory is the subset of account operations the pipeline needs.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, userID primitive.ObjectID, update services.UserUpdate) (*models.User, error)
}

// PropertyStore persists published listings.
type PropertyStore interface {
	FindByReferenceNumber(ctx context.Context, ref string) (*models.Property, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	UpdateFromFeed(ctx context.Context, id primitive.ObjectID, details models.PropertyDetails) error
}

// FeedStore persists feed submissions.
type FeedStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PropertiesXMLEntity, error)
	FindByCreatorAndURL(ctx context.Context, creator primitive.ObjectID, url string) (*models.PropertiesXMLEntity, error)
	FindByStatus(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error)
	Create(ctx context.Context, entity *models.PropertiesXMLEntity) error
	Save(ctx context.Context, entity *models.PropertiesXMLEntity) error
}

// Notifier sends the e-mails the pipeline produces.
type Notifier interface {
	SendRegisterWithPassword(ctx context.Context, user *models.User, password string) error
	SendAgentImports(ctx context.Context, user *models.User, created, updated []string, newAccount bool) error
	SendNewProperties(ctx context.Context, creator *models.User, feedURL string, refs []string) error
	SendUpdatedProperties(ctx context.Context, creator *models.User, feedURL string, refs []string) error
	SendFeedApproved(ctx context.Context, creator *models.User, entity *models.PropertiesXMLEntity) error
	SendFeedRejected(ctx context.Context, creator *models.User, entity *models.PropertiesXMLEntity) error
}

// PhotoStore copies a remote agent photo into our own storage and returns its URL.
type PhotoStore interface {
	MirrorPhoto(ctx context.Context, sourceURL string) (string, error)
}

// FeedSource retrieves and parses a remote feed.
type FeedSource interface {
	FetchDocument(ctx context.Context, url string) (xmlfeed.Document, error)
}
