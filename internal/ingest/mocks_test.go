package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hena/stays/internal/models"
	"hena/stays/internal/platforms"
	"hena/stays/internal/services"
	"hena/stays/internal/xmlfeed"
)

// --- Mocks ---

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDirectory) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDirectory) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserDirectory) Update(ctx context.Context, userID primitive.ObjectID, update services.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockPropertyStore struct {
	mock.Mock
}

func (m *MockPropertyStore) FindByReferenceNumber(ctx context.Context, ref string) (*models.Property, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyStore) Create(ctx context.Context, property *models.Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *MockPropertyStore) UpdateFromFeed(ctx context.Context, id primitive.ObjectID, details models.PropertyDetails) error {
	args := m.Called(ctx, id, details)
	return args.Error(0)
}

type MockFeedStore struct {
	mock.Mock
}

func (m *MockFeedStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PropertiesXMLEntity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertiesXMLEntity), args.Error(1)
}

func (m *MockFeedStore) FindByCreatorAndURL(ctx context.Context, creator primitive.ObjectID, url string) (*models.PropertiesXMLEntity, error) {
	args := m.Called(ctx, creator, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertiesXMLEntity), args.Error(1)
}

func (m *MockFeedStore) FindByStatus(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PropertiesXMLEntity), args.Error(1)
}

func (m *MockFeedStore) Create(ctx context.Context, entity *models.PropertiesXMLEntity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockFeedStore) Save(ctx context.Context, entity *models.PropertiesXMLEntity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendRegisterWithPassword(ctx context.Context, user *models.User, password string) error {
	return m.Called(ctx, user, password).Error(0)
}

func (m *MockNotifier) SendAgentImports(ctx context.Context, user *models.User, created, updated []string, newAccount bool) error {
	return m.Called(ctx, user, created, updated, newAccount).Error(0)
}

func (m *MockNotifier) SendNewProperties(ctx context.Context, creator *models.User, feedURL string, refs []string) error {
	return m.Called(ctx, creator, feedURL, refs).Error(0)
}

func (m *MockNotifier) SendUpdatedProperties(ctx context.Context, creator *models.User, feedURL string, refs []string) error {
	return m.Called(ctx, creator, feedURL, refs).Error(0)
}

func (m *MockNotifier) SendFeedApproved(ctx context.Context, creator *models.User, entity *models.PropertiesXMLEntity) error {
	return m.Called(ctx, creator, entity).Error(0)
}

func (m *MockNotifier) SendFeedRejected(ctx context.Context, creator *models.User, entity *models.PropertiesXMLEntity) error {
	return m.Called(ctx, creator, entity).Error(0)
}

type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) MirrorPhoto(ctx context.Context, sourceURL string) (string, error) {
	args := m.Called(ctx, sourceURL)
	return args.String(0), args.Error(1)
}

// fakeSource serves parsed documents by URL.
type fakeSource struct {
	docs map[string]xmlfeed.Document
	errs map[string]error
}

func (f *fakeSource) FetchDocument(ctx context.Context, url string) (xmlfeed.Document, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	doc, ok := f.docs[url]
	if !ok {
		return nil, fmt.Errorf("%w: no document for %s", xmlfeed.ErrNetwork, url)
	}
	return doc, nil
}

// fakeAdapter reads simplified records:
// {email, ref, updated, amenities, err, panic, noProperty, noAgent, warn}.
type fakeAdapter struct{}

func (fakeAdapter) Platform() string  { return "fake" }
func (fakeAdapter) RecordKey() string { return "item" }

func (fakeAdapter) FeedUpdatedAt(doc xmlfeed.Document) (time.Time, bool) {
	s, ok := doc["updated"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}

func (fakeAdapter) Extract(record any) (platforms.Extraction, error) {
	rec := record.(map[string]any)
	if msg, ok := rec["err"].(string); ok {
		return platforms.Extraction{}, fmt.Errorf("%s", msg)
	}
	if _, ok := rec["panic"]; ok {
		panic("adapter exploded")
	}

	var ext platforms.Extraction
	if _, ok := rec["noAgent"]; !ok {
		ext.Agent = &models.XMLAgent{Name: "Agent", Email: rec["email"].(string)}
	}
	if _, ok := rec["noProperty"]; !ok {
		updated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		if s, ok := rec["updated"].(string); ok {
			updated, _ = time.Parse(time.RFC3339, s)
		}
		details := models.PropertyDetails{
			Title:       "Listing " + rec["ref"].(string),
			XMLMetaData: &models.XMLMetaData{ReferenceNumber: rec["ref"].(string), LastUpdated: updated},
		}
		if am, ok := rec["amenities"].([]string); ok {
			details.Amenities.Basic = am
		}
		prop := models.NewXMLProperty(details)
		ext.Property = &prop
	}
	if w, ok := rec["warn"].(string); ok {
		ext.Warnings = []string{w}
	}
	return ext, nil
}

func item(email, ref string) map[string]any {
	return map[string]any{"email": email, "ref": ref}
}

func feedDoc(items ...map[string]any) xmlfeed.Document {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = it
	}
	return xmlfeed.Document{"item": list}
}

func newUser(role models.UserRole, email string) *models.User {
	return &models.User{Base: models.NewBase(), Role: role, Email: email, Name: email}
}

func xmlProperty(ref string, updated time.Time) models.XMLProperty {
	return models.NewXMLProperty(models.PropertyDetails{
		Title:       "Listing " + ref,
		XMLMetaData: &models.XMLMetaData{ReferenceNumber: ref, LastUpdated: updated},
	})
}

func storedProperty(ref string, updated time.Time, createdBy primitive.ObjectID) *models.Property {
	return &models.Property{
		Base: models.NewBase(),
		PropertyDetails: models.PropertyDetails{
			XMLMetaData: &models.XMLMetaData{ReferenceNumber: ref, LastUpdated: updated},
		},
		CreatedBy: createdBy,
		Status:    models.PropertyStatusActive,
	}
}
