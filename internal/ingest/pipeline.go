package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hena/stays/internal/models"
	"hena/stays/internal/platforms"
	"hena/stays/internal/xmlfeed"
)

// SubmissionResult is returned to the reviewer after a submission or revalidation.
type SubmissionResult struct {
	Entity        *models.PropertiesXMLEntity `json:"entity"`
	Agents        []models.XMLAgent           `json:"agents"`
	Warnings      models.Warnings             `json:"warnings"`
	GeneralErrors []string                    `json:"generalErrors"`
}

// AgentFailure records an agent whose publish failed.
type AgentFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// ApprovalResult is the outcome of an admin approval.
type ApprovalResult struct {
	Entity    *models.PropertiesXMLEntity `json:"entity"`
	Published []PublishResult             `json:"published"`
	Failures  []AgentFailure              `json:"failures"`
}

// RefreshSummary counts what one scheduler pass did.
type RefreshSummary struct {
	Checked   int `json:"checked"`
	Skipped   int `json:"skipped"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// IPipeline is the feed ingestion workflow exposed to handlers and tasks.
type IPipeline interface {
	Submit(ctx context.Context, actor *models.User, url string, mode Mode) (*SubmissionResult, error)
	Revalidate(ctx context.Context, actor *models.User, id primitive.ObjectID, mode Mode) (*SubmissionResult, error)
	Approve(ctx context.Context, admin *models.User, id primitive.ObjectID) (*ApprovalResult, error)
	Reject(ctx context.Context, admin *models.User, id primitive.ObjectID, reason string) (*models.PropertiesXMLEntity, error)
	Get(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.PropertiesXMLEntity, error)
	List(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error)
	RefreshApproved(ctx context.Context) (RefreshSummary, error)
}

// Pipeline runs fetch, parse, reconcile, validate and publish for feed entities.
type Pipeline struct {
	source     FeedSource
	registry   *platforms.Registry
	mapper     *Mapper
	validators *Validators
	publisher  *Publisher
	feeds      FeedStore
	users      UserDirectory
	notifier   Notifier
}

func NewPipeline(
	source FeedSource,
	registry *platforms.Registry,
	mapper *Mapper,
	validators *Validators,
	publisher *Publisher,
	feeds FeedStore,
	users UserDirectory,
	notifier Notifier,
) *Pipeline {
	return &Pipeline{
		source:     source,
		registry:   registry,
		mapper:     mapper,
		validators: validators,
		publisher:  publisher,
		feeds:      feeds,
		users:      users,
		notifier:   notifier,
	}
}

// Submit registers or refreshes actor's feed at url and returns the
// validated batch for review.
func (p *Pipeline) Submit(ctx context.Context, actor *models.User, url string, mode Mode) (*SubmissionResult, error) {
	url = strings.TrimSpace(url)
	adapter := p.registry.Lookup(url)
	if adapter == nil {
		return nil, fmt.Errorf("%w: supported platforms are %s", ErrUnsupportedPlatform, strings.Join(p.registry.Keys(), ", "))
	}

	validator, err := p.validators.For(string(actor.Role), actor.Email)
	if err != nil {
		return nil, err
	}

	entity, err := p.feeds.FindByCreatorAndURL(ctx, actor.ID, url)
	isNew := false
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		isNew = true
		entity = &models.PropertiesXMLEntity{
			URL:     url,
			Creator: actor.ID,
			Status:  models.FeedStatusPending,
		}
		resetCycle(entity)
	case err != nil:
		return nil, fmt.Errorf("error loading feed for %s: %w", url, err)
	case entity.Status == models.FeedStatusApproved:
		return nil, ErrURLAlreadyRegistered
	case entity.Status == models.FeedStatusRejected:
		log.Printf("Feed %s was rejected; starting a new review cycle", entity.ID.Hex())
		entity.Status = models.FeedStatusPending
		resetCycle(entity)
	}

	doc, err := p.source.FetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := p.process(ctx, entity, adapter, doc, validator, actor, mode); err != nil {
		return nil, err
	}

	if isNew {
		err = p.feeds.Create(ctx, entity)
	} else {
		err = p.feeds.Save(ctx, entity)
	}
	if err != nil {
		return nil, fmt.Errorf("error saving feed %s: %w", url, err)
	}

	log.Printf("Feed %s submitted by %s via %s: %d agent(s), %d general error(s)", url, actor.Email, adapter.Platform(), len(entity.TempProperties), len(entity.XMLErrors))
	return resultOf(entity), nil
}

// Revalidate reconciles and validates the stored parse snapshot again. In
// admin mode the feed's creator is the subject of validation.
func (p *Pipeline) Revalidate(ctx context.Context, actor *models.User, id primitive.ObjectID, mode Mode) (*SubmissionResult, error) {
	entity, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity.Status != models.FeedStatusPending {
		return nil, ErrInvalidTransition
	}

	subject := actor
	if mode == ModeAdmin {
		subject, err = p.users.FindByID(ctx, entity.Creator)
		if err != nil {
			return nil, fmt.Errorf("error loading creator of feed %s: %w", id.Hex(), err)
		}
	} else if entity.Creator != actor.ID {
		return nil, ErrForbidden
	}

	validator, err := p.validators.For(string(subject.Role), subject.Email)
	if err != nil {
		return nil, err
	}

	mapped, err := p.mapper.Map(ctx, entity.OriginalParsedProperties, entity.Warnings, entity.XMLErrors)
	if err != nil {
		return nil, err
	}
	validated, err := validator.Validate(ctx, mapped.Agents, subject, mode)
	if err != nil {
		return nil, err
	}
	entity.TempProperties = validated
	entity.Warnings = mapped.Warnings
	entity.XMLErrors = mapped.GeneralErrors

	if err := p.feeds.Save(ctx, entity); err != nil {
		return nil, fmt.Errorf("error saving feed %s: %w", id.Hex(), err)
	}
	return resultOf(entity), nil
}

// Approve force-approves the pending batch and publishes it. One agent's
// failure does not stop the others; failures are reported in the result.
func (p *Pipeline) Approve(ctx context.Context, admin *models.User, id primitive.ObjectID) (*ApprovalResult, error) {
	entity, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.Status.CanTransition(models.FeedStatusApproved) {
		return nil, ErrInvalidTransition
	}

	creator, err := p.users.FindByID(ctx, entity.Creator)
	if err != nil {
		return nil, fmt.Errorf("error loading creator of feed %s: %w", id.Hex(), err)
	}

	agents, _ := ForcePass{}.Validate(ctx, entity.TempProperties, creator, ModeAdmin)
	res := &ApprovalResult{Entity: entity, Published: []PublishResult{}, Failures: []AgentFailure{}}
	for _, agent := range agents {
		published, err := p.publishIsolated(ctx, agent, creator)
		if err != nil {
			log.Printf("Error publishing agent %s for feed %s: %v", agent.Email, id.Hex(), err)
			res.Failures = append(res.Failures, AgentFailure{Email: agent.Email, Error: err.Error()})
			continue
		}
		res.Published = append(res.Published, *published)
	}

	entity.TempProperties = agents
	entity.Status = models.FeedStatusApproved
	entity.RejectionReason = ""
	if err := p.feeds.Save(ctx, entity); err != nil {
		return nil, fmt.Errorf("error saving feed %s: %w", id.Hex(), err)
	}
	log.Printf("Feed %s approved by %s: %d agent(s) published, %d failed", id.Hex(), admin.Email, len(res.Published), len(res.Failures))

	if err := p.notifier.SendFeedApproved(ctx, creator, entity); err != nil {
		log.Printf("Error sending approval e-mail for feed %s: %v", id.Hex(), err)
	}
	return res, nil
}

// Reject closes the review cycle with a reason shown to the creator.
func (p *Pipeline) Reject(ctx context.Context, admin *models.User, id primitive.ObjectID, reason string) (*models.PropertiesXMLEntity, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}

	entity, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.Status.CanTransition(models.FeedStatusRejected) {
		return nil, ErrInvalidTransition
	}

	entity.Status = models.FeedStatusRejected
	entity.RejectionReason = reason
	if err := p.feeds.Save(ctx, entity); err != nil {
		return nil, fmt.Errorf("error saving feed %s: %w", id.Hex(), err)
	}
	log.Printf("Feed %s rejected by %s", id.Hex(), admin.Email)

	creator, err := p.users.FindByID(ctx, entity.Creator)
	if err != nil {
		log.Printf("Error loading creator of rejected feed %s: %v", id.Hex(), err)
		return entity, nil
	}
	if err := p.notifier.SendFeedRejected(ctx, creator, entity); err != nil {
		log.Printf("Error sending rejection e-mail for feed %s: %v", id.Hex(), err)
	}
	return entity, nil
}

// Get returns a feed to its creator or to an admin.
func (p *Pipeline) Get(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.PropertiesXMLEntity, error) {
	entity, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && entity.Creator != actor.ID {
		return nil, ErrForbidden
	}
	return entity, nil
}

// List returns feeds in status, or every feed when status is empty.
func (p *Pipeline) List(ctx context.Context, status models.FeedStatus) ([]models.PropertiesXMLEntity, error) {
	return p.feeds.FindByStatus(ctx, status)
}

// RefreshApproved re-imports every approved feed whose remote copy changed.
// Feeds are handled one at a time; a failing feed is logged and skipped.
func (p *Pipeline) RefreshApproved(ctx context.Context) (RefreshSummary, error) {
	var summary RefreshSummary

	entities, err := p.feeds.FindByStatus(ctx, models.FeedStatusApproved)
	if err != nil {
		return summary, fmt.Errorf("error listing approved feeds: %w", err)
	}

	for i := range entities {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		entity := &entities[i]
		summary.Checked++

		refreshed, err := p.refresh(ctx, entity)
		switch {
		case err != nil:
			log.Printf("Error refreshing feed %s (%s): %v", entity.ID.Hex(), entity.URL, err)
			summary.Failed++
		case !refreshed:
			summary.Skipped++
		default:
			summary.Refreshed++
		}
	}

	log.Printf("Feed refresh finished: %d checked, %d refreshed, %d unchanged, %d failed", summary.Checked, summary.Refreshed, summary.Skipped, summary.Failed)
	return summary, nil
}

func (p *Pipeline) refresh(ctx context.Context, entity *models.PropertiesXMLEntity) (bool, error) {
	adapter := p.registry.Lookup(entity.URL)
	if adapter == nil {
		return false, ErrUnsupportedPlatform
	}

	doc, err := p.source.FetchDocument(ctx, entity.URL)
	if err != nil {
		return false, err
	}

	if remote, ok := adapter.FeedUpdatedAt(doc); ok && entity.LastUpdatedAt != nil && !remote.After(*entity.LastUpdatedAt) {
		return false, nil
	}

	creator, err := p.users.FindByID(ctx, entity.Creator)
	if err != nil {
		return false, fmt.Errorf("error loading creator: %w", err)
	}

	if err := p.process(ctx, entity, adapter, doc, ForcePass{}, creator, ModeAdmin); err != nil {
		return false, err
	}
	if err := p.feeds.Save(ctx, entity); err != nil {
		return false, fmt.Errorf("error saving feed: %w", err)
	}

	var created, updated []string
	for _, agent := range entity.TempProperties {
		res, err := p.publishIsolated(ctx, agent, creator)
		if err != nil {
			log.Printf("Error publishing agent %s for feed %s: %v", agent.Email, entity.ID.Hex(), err)
			continue
		}
		created = append(created, res.Created...)
		updated = append(updated, res.Updated...)
	}

	if len(created) > 0 {
		if err := p.notifier.SendNewProperties(ctx, creator, entity.URL, created); err != nil {
			log.Printf("Error sending new-properties e-mail for feed %s: %v", entity.ID.Hex(), err)
		}
	}
	if len(updated) > 0 {
		if err := p.notifier.SendUpdatedProperties(ctx, creator, entity.URL, updated); err != nil {
			log.Printf("Error sending updated-properties e-mail for feed %s: %v", entity.ID.Hex(), err)
		}
	}
	return true, nil
}

// process parses doc and stores the reconciled, validated batch on entity.
// New warnings and errors go in front of those already on the entity.
func (p *Pipeline) process(ctx context.Context, entity *models.PropertiesXMLEntity, adapter platforms.Adapter, doc xmlfeed.Document, validator Validator, subject *models.User, mode Mode) error {
	parsed := Parse(doc, adapter)

	warnings := models.Accumulate(parsed.Warnings, entity.Warnings)
	generalErrors := append(append([]string{}, parsed.GeneralErrors...), entity.XMLErrors...)

	mapped, err := p.mapper.Map(ctx, parsed.Agents, warnings, generalErrors)
	if err != nil {
		return err
	}
	validated, err := validator.Validate(ctx, mapped.Agents, subject, mode)
	if err != nil {
		return err
	}

	entity.OriginalParsedProperties = parsed.Agents
	entity.TempProperties = validated
	entity.Warnings = mapped.Warnings
	entity.XMLErrors = mapped.GeneralErrors
	if t, ok := adapter.FeedUpdatedAt(doc); ok {
		entity.LastUpdatedAt = &t
	}
	return nil
}

// publishIsolated publishes one agent, turning a panic into an error.
func (p *Pipeline) publishIsolated(ctx context.Context, agent models.XMLAgent, creator *models.User) (res *PublishResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publish panicked: %v", r)
		}
	}()
	return p.publisher.Publish(ctx, agent, creator)
}

func (p *Pipeline) load(ctx context.Context, id primitive.ObjectID) (*models.PropertiesXMLEntity, error) {
	entity, err := p.feeds.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error loading feed %s: %w", id.Hex(), err)
	}
	return entity, nil
}

func resetCycle(entity *models.PropertiesXMLEntity) {
	entity.RejectionReason = ""
	entity.LastUpdatedAt = nil
	entity.OriginalParsedProperties = []models.XMLAgent{}
	entity.TempProperties = []models.XMLAgent{}
	entity.Warnings = models.Warnings{}
	entity.XMLErrors = []string{}
}

func resultOf(entity *models.PropertiesXMLEntity) *SubmissionResult {
	return &SubmissionResult{
		Entity:        entity,
		Agents:        entity.TempProperties,
		Warnings:      entity.Warnings,
		GeneralErrors: entity.XMLErrors,
	}
}
