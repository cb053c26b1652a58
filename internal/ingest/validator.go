package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/models"
)

// Mode selects the wording of approval issues.
type Mode string

const (
	ModeUser  Mode = "User"
	ModeAdmin Mode = "Admin"
)

// RolePass selects the validator that approves everything.
const RolePass = "pass"

// Validator tags each property with isEligible and each agent with
// approvalIssues. It returns new agents and leaves its input alone.
type Validator interface {
	Validate(ctx context.Context, agents []models.XMLAgent, actor *models.User, mode Mode) ([]models.XMLAgent, error)
}

// Validators builds the validator for a requester role.
type Validators struct {
	users      UserDirectory
	properties PropertyStore
}

func NewValidators(users UserDirectory, properties PropertyStore) *Validators {
	return &Validators{users: users, properties: properties}
}

// For returns the validator registered for role: Broker, Company or RolePass.
func (v *Validators) For(role string, actorEmail string) (Validator, error) {
	switch role {
	case string(models.RoleBroker):
		return &BrokerValidator{users: v.users, properties: v.properties}, nil
	case string(models.RoleCompany):
		return &CompanyValidator{users: v.users, properties: v.properties}, nil
	case RolePass:
		return ForcePass{}, nil
	default:
		log.Printf("No validator for role %q (requested by %s)", role, actorEmail)
		return nil, fmt.Errorf("%w: %q", ErrUnknownValidatorRole, role)
	}
}

// BrokerValidator allows a broker to import only their own account and listings.
type BrokerValidator struct {
	users      UserDirectory
	properties PropertyStore
}

func (b *BrokerValidator) Validate(ctx context.Context, agents []models.XMLAgent, actor *models.User, mode Mode) ([]models.XMLAgent, error) {
	out := resetEligibility(agents)
	c := checker{users: b.users, properties: b.properties, actor: actor, mode: mode}

	for i := range out {
		agent := &out[i]
		if actor.Role != models.RoleBroker {
			agent.ApprovalIssues = append(agent.ApprovalIssues, c.phrase(
				"Only broker accounts can import listings for themselves.",
				fmt.Sprintf("Creator %s has role %s; broker validation requires a Broker.", actor.Email, actor.Role)))
		}

		if agent.ID != nil && *agent.ID != actor.ID {
			issue, err := c.agentIssue(ctx, agent)
			if err != nil {
				return nil, err
			}
			agent.ApprovalIssues = append(agent.ApprovalIssues, issue)
		}

		err := c.eachUpdate(ctx, agent, func(owner primitive.ObjectID) (bool, error) {
			return owner == actor.ID, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CompanyValidator allows a company to import accounts and listings that belong to it.
type CompanyValidator struct {
	users      UserDirectory
	properties PropertyStore
}

func (cv *CompanyValidator) Validate(ctx context.Context, agents []models.XMLAgent, actor *models.User, mode Mode) ([]models.XMLAgent, error) {
	out := resetEligibility(agents)
	c := checker{users: cv.users, properties: cv.properties, actor: actor, mode: mode}
	company := actor.CompanyID()

	inCompany := func(userID primitive.ObjectID) (bool, error) {
		u, err := cv.users.FindByID(ctx, userID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("error looking up user %s: %w", userID.Hex(), err)
		}
		return u.BelongsToCompany(company), nil
	}

	for i := range out {
		agent := &out[i]
		if actor.Role != models.RoleCompany {
			agent.ApprovalIssues = append(agent.ApprovalIssues, c.phrase(
				"Only company accounts can import listings for their agents.",
				fmt.Sprintf("Creator %s has role %s; company validation requires a Company.", actor.Email, actor.Role)))
		}

		if agent.ID != nil {
			ok, err := inCompany(*agent.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				issue, err := c.agentIssue(ctx, agent)
				if err != nil {
					return nil, err
				}
				agent.ApprovalIssues = append(agent.ApprovalIssues, issue)
			}
		}

		if err := c.eachUpdate(ctx, agent, inCompany); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ForcePass marks every agent and property as approved.
type ForcePass struct{}

func (ForcePass) Validate(ctx context.Context, agents []models.XMLAgent, actor *models.User, mode Mode) ([]models.XMLAgent, error) {
	out := resetEligibility(agents)
	for i := range out {
		out[i].ApprovalIssues = []string{}
	}
	return out, nil
}

func resetEligibility(agents []models.XMLAgent) []models.XMLAgent {
	out := models.CloneAgents(agents)
	for i := range out {
		out[i].ApprovalIssues = nil
		for j := range out[i].Properties {
			out[i].Properties[j].IsEligible = true
		}
	}
	return out
}

// checker holds the lookups and wording shared by the ownership validators.
type checker struct {
	users      UserDirectory
	properties PropertyStore
	actor      *models.User
	mode       Mode
}

func (c checker) phrase(user, admin string) string {
	if c.mode == ModeAdmin {
		return admin
	}
	return user
}

func (c checker) agentIssue(ctx context.Context, agent *models.XMLAgent) (string, error) {
	if c.mode != ModeAdmin {
		return fmt.Sprintf("Agent %s is registered to another account and cannot be imported by you.", agent.Email), nil
	}
	target, err := c.users.FindByID(ctx, *agent.ID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("error looking up agent %s: %w", agent.Email, err)
	}
	role := "unknown"
	if target != nil {
		role = string(target.Role)
	}
	return fmt.Sprintf("Agent %s (%s) cannot be managed by creator %s (%s).", agent.Email, role, c.actor.Email, c.actor.Role), nil
}

// eachUpdate checks every property that updates a stored listing. A property
// whose owner fails allowed is marked ineligible and reported on the agent.
func (c checker) eachUpdate(ctx context.Context, agent *models.XMLAgent, allowed func(owner primitive.ObjectID) (bool, error)) error {
	for j := range agent.Properties {
		p := &agent.Properties[j]
		if p.ID == nil {
			continue
		}
		ref := p.ReferenceNumber()

		stored, err := c.properties.FindByID(ctx, *p.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			p.IsEligible = false
			agent.ApprovalIssues = append(agent.ApprovalIssues, fmt.Sprintf("Property %s no longer exists and cannot be updated.", ref))
			continue
		}
		if err != nil {
			return fmt.Errorf("error looking up property %s: %w", ref, err)
		}

		ok, err := allowed(stored.CreatedBy)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		p.IsEligible = false
		if c.mode != ModeAdmin {
			agent.ApprovalIssues = append(agent.ApprovalIssues, fmt.Sprintf("Property %s belongs to another account and cannot be updated by you.", ref))
			continue
		}
		ownerEmail := stored.CreatedBy.Hex()
		if owner, err := c.users.FindByID(ctx, stored.CreatedBy); err == nil {
			ownerEmail = owner.Email
		}
		agent.ApprovalIssues = append(agent.ApprovalIssues, fmt.Sprintf("Property %s was created by %s, not by creator %s (%s).", ref, ownerEmail, c.actor.Email, c.actor.Role))
	}
	return nil
}
