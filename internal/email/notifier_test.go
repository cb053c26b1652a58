package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hena/stays/internal/config"
	"hena/stays/internal/models"
	"hena/stays/internal/services"
)

func newTestNotifier() (*Notifier, *captureDispatcher) {
	d := &captureDispatcher{}
	return NewNotifier(d, &config.Config{AppName: "Stays", AppURL: "https://stays.example.com"}), d
}

func TestNotifier_RegisterWithPassword(t *testing.T) {
	n, d := newTestNotifier()
	user := &models.User{Name: "Agent", Email: "agent@example.com"}

	require.NoError(t, n.SendRegisterWithPassword(context.Background(), user, "Abc123xyz0"))
	require.Len(t, d.messages, 1)
	msg := d.messages[0]
	assert.Equal(t, "agent@example.com", msg.To)
	assert.Equal(t, services.TemplateRegisterWithPassword, msg.TemplateID)
	assert.Equal(t, "Abc123xyz0", msg.Data["password"])
	assert.Equal(t, "Agent", msg.Data["name"])
	assert.Equal(t, "https://stays.example.com", msg.Data["app_url"])
}

func TestNotifier_AgentImports(t *testing.T) {
	n, d := newTestNotifier()
	user := &models.User{Email: "agent@example.com"}

	require.NoError(t, n.SendAgentImports(context.Background(), user, []string{"R1", "R2"}, nil, true))
	msg := d.messages[0]
	assert.Equal(t, services.TemplateAgentImports, msg.TemplateID)
	assert.Equal(t, "R1, R2", msg.Data["created"])
	assert.Equal(t, "none", msg.Data["updated"])
	assert.Equal(t, "agent@example.com", msg.Data["name"])
	assert.Contains(t, msg.Data["account_note"], "new account")

	require.NoError(t, n.SendAgentImports(context.Background(), user, nil, []string{"R3"}, false))
	assert.Contains(t, d.messages[1].Data["account_note"], "existing account")
}

func TestNotifier_FeedEmails(t *testing.T) {
	n, d := newTestNotifier()
	ctx := context.Background()
	creator := &models.User{Name: "Company", Email: "company@example.com"}
	entity := &models.PropertiesXMLEntity{URL: "https://www.bayut.com/feed.xml", RejectionReason: "Missing permits"}

	require.NoError(t, n.SendNewProperties(ctx, creator, entity.URL, []string{"B1"}))
	require.NoError(t, n.SendUpdatedProperties(ctx, creator, entity.URL, []string{"B2", "B3"}))
	require.NoError(t, n.SendFeedApproved(ctx, creator, entity))
	require.NoError(t, n.SendFeedRejected(ctx, creator, entity))

	require.Len(t, d.messages, 4)
	assert.Equal(t, services.TemplateNewProperties, d.messages[0].TemplateID)
	assert.Equal(t, "B1", d.messages[0].Data["references"])
	assert.Equal(t, services.TemplateUpdatedProperties, d.messages[1].TemplateID)
	assert.Equal(t, "B2, B3", d.messages[1].Data["references"])
	assert.Equal(t, services.TemplateFeedApproved, d.messages[2].TemplateID)
	assert.Equal(t, services.TemplateFeedRejected, d.messages[3].TemplateID)
	assert.Equal(t, "Missing permits", d.messages[3].Data["reason"])
	for _, msg := range d.messages {
		assert.Equal(t, "company@example.com", msg.To)
		assert.Equal(t, entity.URL, msg.Data["feed_url"])
	}
}
