// Package notification renders notification templates and delivers email.
// In-app notifications are persisted by the clinical domain; this package
// only produces their title and body.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template IDs registered by NewTemplateEngine.
const (
	TplVitalsAlert      = "vitals-alert"
	TplSymptomAlert     = "symptom-alert"
	TplApprovalRequest  = "approval-request"
	TplPlanApproved     = "plan-approved"
	TplCycleApproved    = "cycle-approved"
	TplCycleCompleted   = "cycle-completed"
	TplPasswordReset    = "password-reset"
	TplAppointmentSaved = "appointment-scheduled"
)

// Template defines a reusable notification template.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TplVitalsAlert,
			Name:    "Vitals Alert",
			Subject: "Vitals alert for {{patient_name}}",
			Body:    "{{alerts}}. Recorded at {{recorded_at}}.",
		},
		{
			ID:      TplSymptomAlert,
			Name:    "Symptom Alert",
			Subject: "Urgent symptoms reported by {{patient_name}}",
			Body:    "Severity score {{score}}: {{alerts}}",
		},
		{
			ID:      TplApprovalRequest,
			Name:    "Approval Request",
			Subject: "Treatment plan awaiting {{stage}} approval",
			Body:    "The {{protocol}} plan for {{patient_name}} is waiting for {{stage}} approval.",
		},
		{
			ID:      TplPlanApproved,
			Name:    "Plan Approved",
			Subject: "Your treatment plan was approved",
			Body:    "Your {{protocol}} treatment plan has been approved ({{stage}}).",
		},
		{
			ID:      TplCycleApproved,
			Name:    "Cycle Approved",
			Subject: "Cycle {{cycle_number}} approved",
			Body:    "Cycle {{cycle_number}} of your {{protocol}} plan is approved for {{scheduled_date}}.",
		},
		{
			ID:      TplCycleCompleted,
			Name:    "Cycle Completed",
			Subject: "Cycle {{cycle_number}} completed",
			Body:    "You have completed cycle {{cycle_number}} of {{planned_cycles}}. {{follow_up}}",
		},
		{
			ID:      TplPasswordReset,
			Name:    "Password Reset",
			Subject: "{{app_name}} password reset",
			Body:    "You requested a password reset. Use the following link within {{minutes}} minutes: {{reset_link}}",
		},
		{
			ID:      TplAppointmentSaved,
			Name:    "Appointment Scheduled",
			Subject: "Appointment on {{date}}",
			Body:    "Your {{type}} appointment is scheduled for {{date}} at {{time}}.",
		},
	}
	for _, t := range builtIn {
		e.RegisterTemplate(t)
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, strings.TrimSpace(body), nil
}

// Mailer renders a template and hands the result to an EmailSender.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
}

func NewMailer(sender EmailSender, templates *TemplateEngine) *Mailer {
	return &Mailer{sender: sender, templates: templates}
}

func (m *Mailer) Send(ctx context.Context, templateID, to string, data map[string]string) error {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	return m.sender.SendEmail(ctx, to, subject, body)
}

// LogEmailSender writes outgoing mail to the log instead of delivering it.
// It is the default until an SMTP relay is configured.
type LogEmailSender struct {
	logger zerolog.Logger
}

func NewLogEmailSender(logger zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.With().Str("component", "email").Logger()}
}

func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_len", len(body)).
		Msg("email queued")
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
