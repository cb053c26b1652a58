package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/auth"
	"hena/stays/internal/models"
	"hena/stays/internal/services"
)

// PublishResult summarises one agent's publish.
type PublishResult struct {
	Email      string   `json:"email"`
	UserID     string   `json:"userId,omitempty"`
	NewAccount bool     `json:"newAccount"`
	Created    []string `json:"created"`
	Updated    []string `json:"updated"`
	Skipped    []string `json:"skipped"`
}

// Publisher writes an approved agent and its eligible properties to the stores.
type Publisher struct {
	users      UserDirectory
	properties PropertyStore
	notifier   Notifier
	photos     PhotoStore
}

// NewPublisher creates a Publisher. photos may be nil, in which case agent
// photos are stored as the feed's own URLs.
func NewPublisher(users UserDirectory, properties PropertyStore, notifier Notifier, photos PhotoStore) *Publisher {
	return &Publisher{users: users, properties: properties, notifier: notifier, photos: photos}
}

// Publish creates the agent's account when missing, then creates or updates
// each eligible property. Agents with approval issues are skipped entirely.
func (p *Publisher) Publish(ctx context.Context, agent models.XMLAgent, creator *models.User) (*PublishResult, error) {
	res := &PublishResult{Email: agent.Email, Created: []string{}, Updated: []string{}, Skipped: []string{}}

	if len(agent.ApprovalIssues) > 0 {
		log.Printf("Skipping publish for agent %s: %d unresolved approval issue(s)", agent.Email, len(agent.ApprovalIssues))
		res.Skipped = agent.ReferenceNumbers()
		return res, nil
	}

	user, created, err := p.resolveUser(ctx, agent, creator)
	if err != nil {
		return nil, err
	}
	res.UserID = user.ID.Hex()
	res.NewAccount = created

	company := resolvingCompany(user, creator)
	for _, prop := range agent.Properties {
		ref := prop.ReferenceNumber()
		if !prop.IsEligible {
			res.Skipped = append(res.Skipped, ref)
			continue
		}

		if prop.ID != nil {
			if err := p.properties.UpdateFromFeed(ctx, *prop.ID, prop.PropertyDetails.Clone()); err != nil {
				return nil, fmt.Errorf("error updating property %s: %w", ref, err)
			}
			res.Updated = append(res.Updated, ref)
			continue
		}

		stored := &models.Property{
			PropertyDetails: prop.PropertyDetails.Clone(),
			CreatedBy:       user.ID,
			Company:         company,
			Status:          models.PropertyStatusActive,
		}
		if err := p.properties.Create(ctx, stored); err != nil {
			return nil, fmt.Errorf("error creating property %s: %w", ref, err)
		}
		res.Created = append(res.Created, ref)
	}

	if err := p.notifier.SendAgentImports(ctx, user, res.Created, res.Updated, created); err != nil {
		return nil, fmt.Errorf("error sending import summary to %s: %w", user.Email, err)
	}

	log.Printf("Published agent %s: %d created, %d updated, %d skipped", agent.Email, len(res.Created), len(res.Updated), len(res.Skipped))
	return res, nil
}

func (p *Publisher) resolveUser(ctx context.Context, agent models.XMLAgent, creator *models.User) (*models.User, bool, error) {
	user, err := p.users.FindByEmail(ctx, agent.Email)
	if err == nil {
		user, err = p.attachToCompany(ctx, user, creator)
		return user, false, err
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("error looking up agent %s: %w", agent.Email, err)
	}

	password, err := auth.GeneratePassword(auth.GeneratedPasswordLength)
	if err != nil {
		return nil, false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	user = &models.User{
		Name:         agent.Name,
		Email:        agent.Email,
		Phone:        agent.Phone,
		Photo:        p.photo(ctx, agent.Photo),
		PasswordHash: hash,
		Role:         models.RoleBroker,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if company := creator.CompanyID(); !company.IsZero() {
		user.Company = &company
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("error creating account for agent %s: %w", agent.Email, err)
	}
	log.Printf("Created broker account %s for feed agent %s", user.ID.Hex(), agent.Email)

	if err := p.notifier.SendRegisterWithPassword(ctx, user, password); err != nil {
		return nil, false, fmt.Errorf("error sending credentials to %s: %w", agent.Email, err)
	}
	return user, true, nil
}

// attachToCompany moves an existing agent account without a company under a
// company creator's account. Other accounts are returned unchanged.
func (p *Publisher) attachToCompany(ctx context.Context, user, creator *models.User) (*models.User, error) {
	if creator.Role != models.RoleCompany || user.Company != nil {
		return user, nil
	}
	if user.Role == models.RoleCompany || user.Role == models.RoleAdmin || user.ID == creator.ID {
		return user, nil
	}
	company := creator.ID
	updated, err := p.users.Update(ctx, user.ID, services.UserUpdate{Company: &company})
	if err != nil {
		return nil, fmt.Errorf("error attaching agent %s to company %s: %w", user.Email, company.Hex(), err)
	}
	log.Printf("Attached agent %s to company %s", user.Email, company.Hex())
	return updated, nil
}

// photo mirrors the feed photo when a PhotoStore is configured and falls
// back to the original URL on failure.
func (p *Publisher) photo(ctx context.Context, url string) string {
	if url == "" || p.photos == nil {
		return url
	}
	mirrored, err := p.photos.MirrorPhoto(ctx, url)
	if err != nil {
		log.Printf("Could not mirror agent photo %s: %v", url, err)
		return url
	}
	return mirrored
}

// resolvingCompany is the company new listings are attached to: the
// publishing user's company, else the creator when it is a company account.
func resolvingCompany(user, creator *models.User) *primitive.ObjectID {
	if id := user.CompanyID(); !id.IsZero() {
		return &id
	}
	if creator.Role == models.RoleCompany {
		id := creator.ID
		return &id
	}
	return nil
}
