package escalation

import (
	"strings"
	"testing"
	"time"

	"labgate/internal/ports"
)

func mailInspection() ports.Inspection {
	return ports.Inspection{
		InspectionID:     "insp-1",
		Company:          "weberei",
		Supplier:         "Garnwerk Nord",
		Material:         "cotton twill",
		InspectionType:   "incoming",
		Lot:              "L-2403",
		InspectedAt:      "2026-03-14T09:30:00Z",
		FailedParameters: []string{"tensile strength", "pH < 4"},
	}
}

func TestActionLinksPerLevel(t *testing.T) {
	svc := &Service{settings: Settings{BaseURL: "http://links.test/", TokenTTL: 24 * time.Hour}}

	approveURL, rejectURL := svc.actionLinks(mailInspection(), 1, "tok-a", "tok-b")
	if approveURL != "http://links.test/escalation/approve?id=insp-1&token=tok-a" {
		t.Fatalf("level-1 approve url = %q", approveURL)
	}
	if rejectURL != "http://links.test/escalation/reject?id=insp-1&token=tok-b" {
		t.Fatalf("level-1 reject url = %q", rejectURL)
	}

	approveURL, rejectURL = svc.actionLinks(mailInspection(), 2, "tok-a", "tok-b")
	if approveURL != "http://links.test/escalation/final-approve/insp-1?token=tok-a" {
		t.Fatalf("level-2 approve url = %q", approveURL)
	}
	if rejectURL != "http://links.test/escalation/final-reject/insp-1?token=tok-b" {
		t.Fatalf("level-2 reject url = %q", rejectURL)
	}
}

func TestRenderEscalationMail(t *testing.T) {
	subject, html, err := renderEscalationMail(mailInspection(), 1, "http://links.test/a", "http://links.test/r", "2026-03-15T12:00:00Z")
	if err != nil {
		t.Fatalf("renderEscalationMail() error = %v", err)
	}
	if !strings.Contains(subject, "Action required") {
		t.Fatalf("subject = %q", subject)
	}
	for _, want := range []string{
		"Garnwerk Nord",
		"L-2403",
		"tensile strength",
		`href="http://links.test/a"`,
		`href="http://links.test/r"`,
		"2026-03-15T12:00:00Z",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html misses %q:\n%s", want, html)
		}
	}
	// Parameter text is data, not markup.
	if !strings.Contains(html, "pH &lt; 4") {
		t.Fatal("failed parameter not HTML-escaped")
	}
	if strings.Contains(html, "Final decision") {
		t.Fatal("level-1 mail carries final-decision wording")
	}
}

func TestRenderEscalationMailFinalWording(t *testing.T) {
	subject, html, err := renderEscalationMail(mailInspection(), 2, "http://links.test/a", "http://links.test/r", "2026-03-15T12:00:00Z")
	if err != nil {
		t.Fatalf("renderEscalationMail() error = %v", err)
	}
	if !strings.Contains(subject, "Final decision required") {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.Contains(html, "no further escalation level") {
		t.Fatal("level-2 mail misses final wording")
	}
}

func TestRenderFinalNoticeMail(t *testing.T) {
	subject, html, err := renderFinalNoticeMail(mailInspection(), false, "gm.weberei@example.com")
	if err != nil {
		t.Fatalf("renderFinalNoticeMail() error = %v", err)
	}
	if !strings.Contains(subject, "rejected") {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.Contains(html, "gm.weberei@example.com") || !strings.Contains(html, "rejected") {
		t.Fatalf("html = %s", html)
	}
}
