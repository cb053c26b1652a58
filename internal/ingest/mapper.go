package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/models"
)

// MapResult is the reconciled batch. Agents hold only properties that should
// be created (no ID) or updated (ID of the stored property).
type MapResult struct {
	Agents        []models.XMLAgent
	Warnings      models.Warnings
	GeneralErrors []string
}

// Mapper reconciles parsed agents and properties against stored accounts and listings.
type Mapper struct {
	users      UserDirectory
	properties PropertyStore
}

func NewMapper(users UserDirectory, properties PropertyStore) *Mapper {
	return &Mapper{users: users, properties: properties}
}

// Map returns new collections; agents, warnings and generalErrors are left untouched.
func (m *Mapper) Map(ctx context.Context, agents []models.XMLAgent, warnings models.Warnings, generalErrors []string) (MapResult, error) {
	res := MapResult{
		Agents:        []models.XMLAgent{},
		Warnings:      warnings.Clone(),
		GeneralErrors: append([]string{}, generalErrors...),
	}

	for _, in := range agents {
		agent := in.Clone()

		user, err := m.users.FindByEmail(ctx, agent.Email)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
		case err != nil:
			return MapResult{}, fmt.Errorf("error looking up agent %s: %w", agent.Email, err)
		case user.Role == models.RoleEndUser:
			refs := agent.ReferenceNumbers()
			res.GeneralErrors = append(res.GeneralErrors, fmt.Sprintf(
				"Properties with reference numbers %s were not imported: agent email %s belongs to a regular user account.",
				strings.Join(refs, ", "), agent.Email))
			for _, ref := range refs {
				delete(res.Warnings, ref)
			}
			continue
		default:
			id := user.ID
			agent.ID = &id
		}

		props, err := m.checkReferenceNumbers(ctx, agent.Properties, res.Warnings)
		if err != nil {
			return MapResult{}, err
		}
		if len(props) == 0 {
			continue
		}
		agent.Properties = props
		res.Agents = append(res.Agents, agent)
	}

	return res, nil
}

// checkReferenceNumbers drops stale records and attaches stored IDs to newer ones.
func (m *Mapper) checkReferenceNumbers(ctx context.Context, props []models.XMLProperty, warnings models.Warnings) ([]models.XMLProperty, error) {
	kept := make([]models.XMLProperty, 0, len(props))
	for _, p := range props {
		ref := p.ReferenceNumber()
		stored, err := m.properties.FindByReferenceNumber(ctx, ref)
		if errors.Is(err, mongo.ErrNoDocuments) {
			p.ID = nil
			kept = append(kept, p)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error looking up property %s: %w", ref, err)
		}

		if !incomingIsNewer(p, stored) {
			warnings.Prepend(ref, fmt.Sprintf("Ignoring property with reference number %s, as it is already updated in the database.", ref))
			continue
		}

		warnings.Prepend(ref, fmt.Sprintf("Property with reference number %s exists in the database, updating it.", ref))
		id := stored.ID
		p.ID = &id
		kept = append(kept, p)
	}
	return kept, nil
}

func incomingIsNewer(incoming models.XMLProperty, stored *models.Property) bool {
	if incoming.XMLMetaData == nil {
		return false
	}
	if stored.XMLMetaData == nil {
		return true
	}
	return incoming.XMLMetaData.LastUpdated.After(stored.XMLMetaData.LastUpdated)
}
