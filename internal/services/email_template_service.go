package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hena/stays/internal/models"
)

// Template IDs for the feed ingestion e-mails.
const (
	TemplateRegisterWithPassword = "register_with_password"
	TemplateAgentImports         = "xml_agent_imports"
	TemplateNewProperties        = "xml_new_properties"
	TemplateUpdatedProperties    = "xml_updated_properties"
	TemplateFeedApproved         = "xml_feed_approved"
	TemplateFeedRejected         = "xml_feed_rejected"
)

// DefaultLocale is used when a message does not ask for a specific locale.
const DefaultLocale = "en-US"

// ErrTemplateNotFound is returned when neither the database nor the defaults have a template.
var ErrTemplateNotFound = errors.New("email template not found")

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateRegisterWithPassword: {
		TemplateID: TemplateRegisterWithPassword,
		Locale:     DefaultLocale,
		Subject:    "Your {{.app_name}} account",
		Body: "Hello {{.name}},\n\nAn account has been created for you on {{.app_name}} so your listings can be published.\n\n" +
			"Email: {{.email}}\nPassword: {{.password}}\n\nSign in at {{.app_url}} and change your password.",
	},
	TemplateAgentImports: {
		TemplateID: TemplateAgentImports,
		Locale:     DefaultLocale,
		Subject:    "Your listings were imported to {{.app_name}}",
		Body: "Hello {{.name}},\n\n{{.account_note}}\n\nNew listings: {{.created}}\nUpdated listings: {{.updated}}\n\n" +
			"Manage them at {{.app_url}}.",
	},
	TemplateNewProperties: {
		TemplateID: TemplateNewProperties,
		Locale:     DefaultLocale,
		Subject:    "New listings imported from your feed",
		Body:       "Hello {{.name}},\n\nThe following listings from {{.feed_url}} were published: {{.references}}.",
	},
	TemplateUpdatedProperties: {
		TemplateID: TemplateUpdatedProperties,
		Locale:     DefaultLocale,
		Subject:    "Listings updated from your feed",
		Body:       "Hello {{.name}},\n\nThe following listings were updated from {{.feed_url}}: {{.references}}.",
	},
	TemplateFeedApproved: {
		TemplateID: TemplateFeedApproved,
		Locale:     DefaultLocale,
		Subject:    "Your XML feed was approved",
		Body:       "Hello {{.name}},\n\nYour feed {{.feed_url}} was approved and its listings are now live. It will be checked for changes regularly.",
	},
	TemplateFeedRejected: {
		TemplateID: TemplateFeedRejected,
		Locale:     DefaultLocale,
		Subject:    "Your XML feed was rejected",
		Body:       "Hello {{.name}},\n\nYour feed {{.feed_url}} was rejected.\n\nReason: {{.reason}}\n\nYou can fix the feed and submit it again.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

const emailTemplatesCollection = "email_templates"

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: db,
	}
}

// DefaultTemplate returns the built-in template for templateID.
func DefaultTemplate(templateID string) (*models.EmailTemplate, bool) {
	tmpl, ok := defaultEmailTemplates[templateID]
	if !ok {
		return nil, false
	}
	return &tmpl, true
}

// GetTemplate retrieves an email template by ID and locale, falling back to the built-in default.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if defaultTemplate, ok := DefaultTemplate(templateID); ok {
				return defaultTemplate, nil
			}
			return nil, fmt.Errorf("%w: %s (locale: %s)", ErrTemplateNotFound, templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}

	update := bson.M{"$set": template}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}

	return nil
}

// DeleteTemplate deletes an email template from the database
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	_, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}

	return nil
}
