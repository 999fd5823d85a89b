package service

import (
	"errors"
	"testing"
	"time"
)

func TestWorkflowSettingsDefaults(t *testing.T) {
	svc := NewWorkflowSettingService(setupTestDB(t))

	if svc.AllowSelfApproval() {
		t.Fatal("self-approval must default to off")
	}
	if got := svc.ApprovalTTL(); got != 24*time.Hour {
		t.Fatalf("default ttl: %v", got)
	}
}

func TestWorkflowSettingsRoundtrip(t *testing.T) {
	svc := NewWorkflowSettingService(setupTestDB(t))

	if err := svc.SetAllowSelfApproval(true); err != nil {
		t.Fatalf("set self-approval: %v", err)
	}
	if err := svc.SetApprovalTTLHours(48); err != nil {
		t.Fatalf("set ttl: %v", err)
	}

	if !svc.AllowSelfApproval() {
		t.Fatal("self-approval flag not persisted")
	}
	if got := svc.ApprovalTTL(); got != 48*time.Hour {
		t.Fatalf("ttl: %v", got)
	}

	// Upsert, not duplicate.
	if err := svc.SetApprovalTTLHours(12); err != nil {
		t.Fatalf("update ttl: %v", err)
	}
	if got := svc.ApprovalTTL(); got != 12*time.Hour {
		t.Fatalf("updated ttl: %v", got)
	}

	view := svc.Settings()
	if !view.AllowSelfApproval || view.ApprovalTTLHours != 12 {
		t.Fatalf("view: %+v", view)
	}
}

func TestWorkflowSettingsValidation(t *testing.T) {
	svc := NewWorkflowSettingService(setupTestDB(t))

	err := svc.SetApprovalTTLHours(0)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
