package email

import (
	"context"

	"github.com/stretchr/testify/mock"

	"hena/stays/internal/models"
)

type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

type sentEmail struct {
	to      []string
	subject string
	raw     string
}

// captureSender records messages instead of sending them.
type captureSender struct {
	sent []sentEmail
	err  error
}

func (s *captureSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.sent = append(s.sent, sentEmail{to: to, subject: subject, raw: string(rawMessage)})
	return s.err
}

type captureDispatcher struct {
	messages []Message
	err      error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.messages = append(d.messages, msg)
	return d.err
}
