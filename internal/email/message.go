package email

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"hena/stays/internal/models"
	"hena/stays/internal/services"
)

// TemplateHeader names the template a raw message was rendered from.
const TemplateHeader = "X-Template-ID"

// Message is a templated email waiting to be rendered. It doubles as the
// email:deliver task payload.
type Message struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// Dispatcher delivers a Message, either right away or through the task queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Render fills {{.key}} placeholders in the template's subject and body.
// Unknown placeholders are left as they are.
func Render(tmpl *models.EmailTemplate, data map[string]interface{}) (subject, body string) {
	subject, body = tmpl.Subject, tmpl.Body
	for key, val := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		valueStr := fmt.Sprintf("%v", val)
		subject = strings.ReplaceAll(subject, placeholder, valueStr)
		body = strings.ReplaceAll(body, placeholder, valueStr)
	}
	return subject, body
}

// BuildRawMessage assembles a plain-text RFC 822 message.
func BuildRawMessage(to, from, templateID, subject, body string, date time.Time) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", to))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	if templateID != "" {
		sb.WriteString(fmt.Sprintf("%s: %s\r\n", TemplateHeader, templateID))
	}
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// Deliverer renders messages from stored templates and sends them immediately.
type Deliverer struct {
	templates services.IEmailTemplateService
	sender    Sender
	from      string
	now       func() time.Time
}

// NewDeliverer creates a Deliverer. An empty from falls back to noreply@example.com.
func NewDeliverer(templates services.IEmailTemplateService, sender Sender, from string) *Deliverer {
	if from == "" {
		from = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s", from)
	}
	return &Deliverer{templates: templates, sender: sender, from: from, now: time.Now}
}

// Dispatch renders msg and sends it. A missing template wraps services.ErrTemplateNotFound.
func (d *Deliverer) Dispatch(ctx context.Context, msg Message) error {
	locale := msg.Locale
	if locale == "" {
		locale = services.DefaultLocale
	}

	tmpl, err := d.templates.GetTemplate(ctx, msg.TemplateID, locale)
	if err != nil {
		return fmt.Errorf("error getting email template %s/%s: %w", msg.TemplateID, locale, err)
	}

	subject, body := Render(tmpl, msg.Data)
	raw := BuildRawMessage(msg.To, d.from, msg.TemplateID, subject, body, d.now())
	if err := d.sender.Send(ctx, []string{msg.To}, subject, raw); err != nil {
		return fmt.Errorf("error sending %s email to %s: %w", msg.TemplateID, msg.To, err)
	}
	return nil
}
