package email

import (
	"context"
	"strings"

	"hena/stays/internal/config"
	"hena/stays/internal/models"
	"hena/stays/internal/services"
)

// Notifier turns feed ingestion events into templated emails.
type Notifier struct {
	dispatcher Dispatcher
	appName    string
	appURL     string
}

// NewNotifier creates a Notifier that hands its messages to dispatcher.
func NewNotifier(dispatcher Dispatcher, cfg *config.Config) *Notifier {
	return &Notifier{dispatcher: dispatcher, appName: cfg.AppName, appURL: cfg.AppURL}
}

func (n *Notifier) send(ctx context.Context, to *models.User, templateID string, data map[string]interface{}) error {
	data["name"] = displayName(to)
	data["app_name"] = n.appName
	data["app_url"] = n.appURL
	return n.dispatcher.Dispatch(ctx, Message{To: to.Email, TemplateID: templateID, Data: data})
}

// SendRegisterWithPassword mails the credentials of an account created for a feed agent.
func (n *Notifier) SendRegisterWithPassword(ctx context.Context, user *models.User, password string) error {
	return n.send(ctx, user, services.TemplateRegisterWithPassword, map[string]interface{}{
		"email":    user.Email,
		"password": password,
	})
}

// SendAgentImports tells an agent which of their listings were published.
func (n *Notifier) SendAgentImports(ctx context.Context, user *models.User, created, updated []string, newAccount bool) error {
	note := "Your listings were imported into your existing account."
	if newAccount {
		note = "A new account was created for you and your listings were imported into it. Your sign-in details were sent in a separate email."
	}
	return n.send(ctx, user, services.TemplateAgentImports, map[string]interface{}{
		"account_note": note,
		"created":      refList(created),
		"updated":      refList(updated),
	})
}

// SendNewProperties summarises listings a scheduled refresh created.
func (n *Notifier) SendNewProperties(ctx context.Context, creator *models.User, feedURL string, refs []string) error {
	return n.send(ctx, creator, services.TemplateNewProperties, map[string]interface{}{
		"feed_url":   feedURL,
		"references": refList(refs),
	})
}

// SendUpdatedProperties summarises listings a scheduled refresh updated.
func (n *Notifier) SendUpdatedProperties(ctx context.Context, creator *models.User, feedURL string, refs []string) error {
	return n.send(ctx, creator, services.TemplateUpdatedProperties, map[string]interface{}{
		"feed_url":   feedURL,
		"references": refList(refs),
	})
}

func (n *Notifier) SendFeedApproved(ctx context.Context, creator *models.User, entity *models.PropertiesXMLEntity) error {
	return n.send(ctx, creator, services.TemplateFeedApproved, map[string]interface{}{
		"feed_url": entity.URL,
	})
}

func (n *Notifier) SendFeedRejected(ctx context.Context, creator *models.User, entity *models.PropertiesXMLEntity) error {
	return n.send(ctx, creator, services.TemplateFeedRejected, map[string]interface{}{
		"feed_url": entity.URL,
		"reason":   entity.RejectionReason,
	})
}

func displayName(u *models.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

func refList(refs []string) string {
	if len(refs) == 0 {
		return "none"
	}
	return strings.Join(refs, ", ")
}
