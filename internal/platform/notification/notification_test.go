package notification

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Name:    "Test Template",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{
		"name": "Alice",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Alice" {
		t.Errorf("subject = %q, want %q", subject, "Hello Alice")
	}
	if body != "Dear Alice, your code is 1234." {
		t.Errorf("body = %q, want %q", body, "Dear Alice, your code is 1234.")
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	eng := NewTemplateEngine()
	if _, _, err := eng.Render("nonexistent", nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	eng := NewTemplateEngine()
	for _, id := range []string{
		TplVitalsAlert, TplSymptomAlert, TplApprovalRequest, TplPlanApproved,
		TplCycleApproved, TplCycleCompleted, TplPasswordReset, TplAppointmentSaved,
	} {
		if _, _, err := eng.Render(id, nil); err != nil {
			t.Errorf("built-in template %q missing: %v", id, err)
		}
	}
}

func TestTemplateEngine_VitalsAlert(t *testing.T) {
	eng := NewTemplateEngine()
	subject, body, err := eng.Render(TplVitalsAlert, map[string]string{
		"patient_name": "Asha Rao",
		"alerts":       "Low oxygen saturation",
		"recorded_at":  "2024-06-01 10:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Vitals alert for Asha Rao" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.HasPrefix(body, "Low oxygen saturation.") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestTemplateEngine_RenderMissingKey(t *testing.T) {
	eng := NewTemplateEngine()
	_, body, _ := eng.Render(TplCycleCompleted, map[string]string{"cycle_number": "2"})
	if !strings.Contains(body, "{{planned_cycles}}") {
		t.Errorf("expected unknown placeholder to be left as-is, got %q", body)
	}
}

func TestMailer_Send(t *testing.T) {
	sender := &MockEmailSender{}
	m := NewMailer(sender, NewTemplateEngine())

	err := m.Send(context.Background(), TplPasswordReset, "nurse@example.com", map[string]string{
		"app_name":   "ChemoCare AI",
		"minutes":    "60",
		"reset_link": "http://localhost:3000/reset-password?token=abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "nurse@example.com" {
		t.Errorf("unexpected recipient %q", calls[0].To)
	}
	if calls[0].Subject != "ChemoCare AI password reset" {
		t.Errorf("unexpected subject %q", calls[0].Subject)
	}
	if !strings.Contains(calls[0].Body, "token=abc") {
		t.Errorf("expected reset link in body, got %q", calls[0].Body)
	}
}

func TestMailer_SenderFailure(t *testing.T) {
	sender := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	m := NewMailer(sender, NewTemplateEngine())

	err := m.Send(context.Background(), TplPasswordReset, "a@example.com", nil)
	if err == nil || err.Error() != "smtp down" {
		t.Errorf("expected sender error, got %v", err)
	}
}

func TestMailer_UnknownTemplate(t *testing.T) {
	m := NewMailer(&MockEmailSender{}, NewTemplateEngine())
	if err := m.Send(context.Background(), "nope", "a@example.com", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestLogEmailSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogEmailSender(zerolog.New(&buf))

	if err := s.SendEmail(context.Background(), "a@example.com", "subject", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"to":"a@example.com"`) || !strings.Contains(out, `"component":"email"`) {
		t.Errorf("unexpected log output %s", out)
	}
}

func TestMockEmailSender_Concurrent(t *testing.T) {
	sender := &MockEmailSender{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sender.SendEmail(context.Background(), "a@example.com", "s", "b")
		}()
	}
	wg.Wait()
	if len(sender.Calls()) != 20 {
		t.Errorf("expected 20 calls, got %d", len(sender.Calls()))
	}
}
