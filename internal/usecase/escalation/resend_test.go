package escalation

import (
	"context"
	"errors"
	"testing"

	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/ports"
)

func TestResendSupersedesOldLinks(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	id := f.submitFailed(t)

	old := f.liveToken(t, id, 1, "approve")

	out, err := f.svc.Resend(ctx, ResendInput{InspectionID: id})
	if err != nil {
		t.Fatalf("Resend() error = %v", err)
	}
	if out.Level != 1 || out.Recipient != "qm@example.com" {
		t.Fatalf("Resend() = %+v", out)
	}

	// The old link is dead.
	_, err = f.svc.Decide(ctx, DecideInput{InspectionID: id, TokenValue: old.TokenValue})
	if !errors.Is(err, domainescalation.ErrTokenSuperseded) {
		t.Fatalf("old token Decide() error = %v, want ErrTokenSuperseded", err)
	}

	// The reissued one works.
	fresh := f.liveToken(t, id, 1, "approve")
	if fresh.TokenValue == old.TokenValue {
		t.Fatal("resend did not rotate the token value")
	}
	decided, err := f.svc.Decide(ctx, DecideInput{InspectionID: id, TokenValue: fresh.TokenValue})
	if err != nil {
		t.Fatalf("fresh token Decide() error = %v", err)
	}
	if decided.EscalationStatus != "qm_approved" {
		t.Fatalf("Decide() escalation status = %q", decided.EscalationStatus)
	}
}

func TestResendOnClosedInspection(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	id := f.submitFailed(t)

	approve := f.liveToken(t, id, 1, "approve")
	if _, err := f.svc.Decide(ctx, DecideInput{InspectionID: id, TokenValue: approve.TokenValue}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	_, err := f.svc.Resend(ctx, ResendInput{InspectionID: id})
	if !errors.Is(err, domainescalation.ErrInspectionTerminal) {
		t.Fatalf("Resend() error = %v, want ErrInspectionTerminal", err)
	}
}

func TestResendOnPassedInspection(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	input := failedSubmission()
	input.OverallStatus = "pass"
	input.FailedParameters = nil
	out, err := f.svc.Submit(ctx, input)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err = f.svc.Resend(ctx, ResendInput{InspectionID: out.InspectionID})
	if !errors.Is(err, domainescalation.ErrInspectionTerminal) {
		t.Fatalf("Resend() error = %v, want ErrInspectionTerminal", err)
	}
}

func TestResendUnknownInspection(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Resend(context.Background(), ResendInput{InspectionID: "missing"})
	if !errors.Is(err, ports.ErrInspectionNotFound) {
		t.Fatalf("Resend() error = %v, want ErrInspectionNotFound", err)
	}
}
