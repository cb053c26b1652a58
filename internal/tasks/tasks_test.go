package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hena/stays/internal/email"
	"hena/stays/internal/ingest"
	"hena/stays/internal/models"
	"hena/stays/internal/services"
	"hena/stays/internal/tasks"
)

// --- Mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

type MockFeedRefresher struct {
	mock.Mock
}

func (m *MockFeedRefresher) RefreshApproved(ctx context.Context) (ingest.RefreshSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(ingest.RefreshSummary), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func newProcessor() (*tasks.TaskProcessor, *MockEmailSender, *MockEmailTemplateService, *MockFeedRefresher) {
	sender := new(MockEmailSender)
	templates := new(MockEmailTemplateService)
	refresher := new(MockFeedRefresher)
	deliverer := email.NewDeliverer(templates, sender, "noreply@stays.example.com")
	return tasks.NewTaskProcessor(deliverer, refresher), sender, templates, refresher
}

func emailTask(t *testing.T, msg email.Message) *asynq.Task {
	t.Helper()
	task, err := tasks.NewEmailDeliveryTask(msg)
	require.NoError(t, err)
	return task
}

// --- Tests ---

func TestHandleEmailDeliveryTask_Success(t *testing.T) {
	p, sender, templates, _ := newProcessor()

	task := emailTask(t, email.Message{
		To:         "agent@example.com",
		TemplateID: services.TemplateFeedApproved,
		Data:       map[string]interface{}{"name": "Agent", "feed_url": "https://www.bayut.com/feed.xml"},
	})

	templates.On("GetTemplate", mock.Anything, services.TemplateFeedApproved, services.DefaultLocale).
		Return(&models.EmailTemplate{Subject: "Approved for {{.name}}", Body: "Feed {{.feed_url}} is live"}, nil)

	sender.On("Send",
		mock.Anything,
		[]string{"agent@example.com"},
		"Approved for Agent",
		mock.MatchedBy(func(rawMsg []byte) bool {
			msgStr := string(rawMsg)
			assert.Contains(t, msgStr, "To: agent@example.com")
			assert.Contains(t, msgStr, "From: noreply@stays.example.com")
			assert.Contains(t, msgStr, "Feed https://www.bayut.com/feed.xml is live")
			return true
		}),
	).Return(nil)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.NoError(t, err)
	templates.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	p, sender, templates, _ := newProcessor()

	task := emailTask(t, email.Message{To: "test@example.com", TemplateID: "nonexistent_template", Locale: "en-US"})
	templates.On("GetTemplate", mock.Anything, "nonexistent_template", "en-US").
		Return(nil, fmt.Errorf("%w: nonexistent_template", services.ErrTemplateNotFound))

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.ErrorIs(t, err, asynq.SkipRetry)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEmailDeliveryTask_SendFailureIsRetried(t *testing.T) {
	p, sender, templates, _ := newProcessor()

	task := emailTask(t, email.Message{To: "test@example.com", TemplateID: services.TemplateFeedRejected})
	tmpl, _ := services.DefaultTemplate(services.TemplateFeedRejected)
	templates.On("GetTemplate", mock.Anything, services.TemplateFeedRejected, services.DefaultLocale).Return(tmpl, nil)
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp timeout"))

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.ErrorContains(t, err, "smtp timeout")
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleEmailDeliveryTask_BadPayload(t *testing.T) {
	p, _, _, _ := newProcessor()

	err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, []byte(`{"to":"a@example.com"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleFeedsRefreshTask(t *testing.T) {
	p, _, _, refresher := newProcessor()
	refresher.On("RefreshApproved", mock.Anything).Return(ingest.RefreshSummary{Checked: 3, Refreshed: 1, Skipped: 2}, nil).Once()

	assert.NoError(t, p.HandleFeedsRefreshTask(context.Background(), asynq.NewTask(tasks.TypeFeedsRefresh, nil)))

	refresher.On("RefreshApproved", mock.Anything).Return(ingest.RefreshSummary{Checked: 1}, errors.New("mongo down")).Once()
	assert.ErrorContains(t, p.HandleFeedsRefreshTask(context.Background(), asynq.NewTask(tasks.TypeFeedsRefresh, nil)), "mongo down")
	refresher.AssertExpectations(t)
}

func TestQueueDispatcher(t *testing.T) {
	client := new(MockEnqueuer)
	d := tasks.NewQueueDispatcher(client)
	msg := email.Message{To: "a@example.com", TemplateID: services.TemplateAgentImports, Data: map[string]interface{}{"created": "R1"}}

	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var got email.Message
		require.NoError(t, json.Unmarshal(task.Payload(), &got))
		return task.Type() == tasks.TypeEmailDelivery && got.To == msg.To && got.Data["created"] == "R1"
	})).Return(&asynq.TaskInfo{ID: "1"}, nil).Once()
	assert.NoError(t, d.Dispatch(context.Background(), msg))

	client.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()
	assert.ErrorContains(t, d.Dispatch(context.Background(), msg), "redis down")
}

func TestEnqueueFeedsRefresh(t *testing.T) {
	client := new(MockEnqueuer)
	isRefresh := mock.MatchedBy(func(task *asynq.Task) bool { return task.Type() == tasks.TypeFeedsRefresh })

	client.On("EnqueueContext", mock.Anything, isRefresh).Return(&asynq.TaskInfo{ID: "r1"}, nil).Once()
	queued, err := tasks.EnqueueFeedsRefresh(context.Background(), client)
	assert.NoError(t, err)
	assert.True(t, queued)

	client.On("EnqueueContext", mock.Anything, isRefresh).Return(nil, asynq.ErrDuplicateTask).Once()
	queued, err = tasks.EnqueueFeedsRefresh(context.Background(), client)
	assert.NoError(t, err)
	assert.False(t, queued)

	client.On("EnqueueContext", mock.Anything, isRefresh).Return(nil, errors.New("redis down")).Once()
	_, err = tasks.EnqueueFeedsRefresh(context.Background(), client)
	assert.ErrorContains(t, err, "redis down")
}

func TestNewScheduler(t *testing.T) {
	_, err := tasks.NewScheduler(new(MockEnqueuer), "every now and then")
	assert.ErrorContains(t, err, "invalid cron expression")

	s, err := tasks.NewScheduler(new(MockEnqueuer), "@every 1h")
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
