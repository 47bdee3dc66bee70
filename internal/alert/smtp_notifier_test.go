package alert

import (
	"strings"
	"testing"
)

func TestNewSMTPNotifierValidation(t *testing.T) {
	if _, err := NewSMTPNotifier("", 587, "", "", "a@b.c", "", "ops@b.c", false); err == nil {
		t.Fatal("expected error for empty host")
	}
	if _, err := NewSMTPNotifier("smtp.example.com", 587, "", "", "", "", "ops@b.c", false); err == nil {
		t.Fatal("expected error for empty from")
	}
	if _, err := NewSMTPNotifier("smtp.example.com", 587, "", "", "a@b.c", "", "", false); err == nil {
		t.Fatal("expected error for empty recipient")
	}

	n, err := NewSMTPNotifier("smtp.example.com", 0, "", "", "a@b.c", "", "ops@b.c", false)
	if err != nil {
		t.Fatalf("expected valid notifier, got %v", err)
	}
	if n.port != 587 {
		t.Fatalf("expected default port 587, got %d", n.port)
	}
}

func TestFormatFromHeader(t *testing.T) {
	got := formatFromHeader("Persona Ingest Alerts", "alerts@example.com")
	if got != "Persona Ingest Alerts <alerts@example.com>" {
		t.Fatalf("unexpected from header: %q", got)
	}
	if got := formatFromHeader("", "alerts@example.com"); got != "alerts@example.com" {
		t.Fatalf("expected bare address without display name, got %q", got)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage(formatFromHeader("Ops", "alerts@example.com"), "oncall@example.com", "queue drop", "job dropped")
	if !strings.Contains(msg, "From: Ops <alerts@example.com>\r\n") {
		t.Fatalf("expected display name in From header, got %q", msg)
	}
	if !strings.Contains(msg, "Subject: queue drop\r\n") {
		t.Fatalf("expected subject header, got %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\njob dropped") {
		t.Fatalf("expected body after blank line, got %q", msg)
	}
}
