package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"labgate/internal/infrastructure/persistence/sqlite/model"
	"labgate/internal/ports"
)

func setupEscalationRepository(t *testing.T) *EscalationRepository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "labgate.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Inspection{}, &model.ActionToken{}, &model.Decision{}, &model.EscalationKV{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewEscalationRepository(db)
}

func testInspection(id string) ports.Inspection {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return ports.Inspection{
		InspectionID:     id,
		Company:          "weberei",
		Supplier:         "Garnwerk Nord",
		Material:         "cotton twill",
		InspectionType:   "incoming",
		Lot:              "L-2403",
		InspectedAt:      now,
		FailedParameters: []string{"tensile strength", "color fastness"},
		OverallStatus:    "fail",
		EscalationStatus: "none",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func testToken(value string, inspectionID string, action string, level int) ports.ActionToken {
	now := time.Now().UTC()
	return ports.ActionToken{
		TokenValue:    value,
		InspectionID:  inspectionID,
		Action:        action,
		Level:         level,
		ApproverEmail: "qm@example.com",
		IssuedAt:      now.Format(time.RFC3339Nano),
		ExpiresAt:     now.Add(24 * time.Hour).Format(time.RFC3339Nano),
	}
}

func TestCreateAndGetInspection(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	want := testInspection("insp-1")
	if err := repo.CreateInspection(ctx, want); err != nil {
		t.Fatalf("CreateInspection() error = %v", err)
	}

	got, err := repo.GetInspection(ctx, "insp-1")
	if err != nil {
		t.Fatalf("GetInspection() error = %v", err)
	}
	if got.Company != want.Company || got.Lot != want.Lot {
		t.Fatalf("GetInspection() = %+v", got)
	}
	if len(got.FailedParameters) != 2 || got.FailedParameters[0] != "tensile strength" {
		t.Fatalf("failed parameters = %v", got.FailedParameters)
	}

	if _, err := repo.GetInspection(ctx, "missing"); !errors.Is(err, ports.ErrInspectionNotFound) {
		t.Fatalf("GetInspection() error = %v, want ErrInspectionNotFound", err)
	}
}

func TestListInspectionsFilter(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	first := testInspection("insp-1")
	second := testInspection("insp-2")
	second.Company = "spinnerei"
	second.EscalationStatus = "level1_sent"
	for _, inspection := range []ports.Inspection{first, second} {
		if err := repo.CreateInspection(ctx, inspection); err != nil {
			t.Fatalf("CreateInspection() error = %v", err)
		}
	}

	items, err := repo.ListInspections(ctx, ports.InspectionFilter{Company: "spinnerei"})
	if err != nil {
		t.Fatalf("ListInspections() error = %v", err)
	}
	if len(items) != 1 || items[0].InspectionID != "insp-2" {
		t.Fatalf("ListInspections() = %+v", items)
	}

	items, err = repo.ListInspections(ctx, ports.InspectionFilter{EscalationStatus: "level1_sent"})
	if err != nil {
		t.Fatalf("ListInspections() error = %v", err)
	}
	if len(items) != 1 || items[0].InspectionID != "insp-2" {
		t.Fatalf("ListInspections() = %+v", items)
	}
}

func TestUpdateInspectionStatusFields(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	if err := repo.CreateInspection(ctx, testInspection("insp-1")); err != nil {
		t.Fatalf("CreateInspection() error = %v", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := repo.SetEscalationStatus(ctx, "insp-1", "level1_sent", now); err != nil {
		t.Fatalf("SetEscalationStatus() error = %v", err)
	}
	if err := repo.SetOverallStatus(ctx, "insp-1", "pass", now); err != nil {
		t.Fatalf("SetOverallStatus() error = %v", err)
	}
	if err := repo.MarkEscalated(ctx, "insp-1", now); err != nil {
		t.Fatalf("MarkEscalated() error = %v", err)
	}

	got, err := repo.GetInspection(ctx, "insp-1")
	if err != nil {
		t.Fatalf("GetInspection() error = %v", err)
	}
	if got.EscalationStatus != "level1_sent" || got.OverallStatus != "pass" {
		t.Fatalf("inspection after updates = %+v", got)
	}
	if got.EscalatedAt == nil || *got.EscalatedAt != now {
		t.Fatalf("escalated_at = %v", got.EscalatedAt)
	}

	if err := repo.SetEscalationStatus(ctx, "missing", "level1_sent", now); !errors.Is(err, ports.ErrInspectionNotFound) {
		t.Fatalf("SetEscalationStatus() error = %v, want ErrInspectionNotFound", err)
	}
}

func TestTokenPairLifecycle(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	if err := repo.CreateInspection(ctx, testInspection("insp-1")); err != nil {
		t.Fatalf("CreateInspection() error = %v", err)
	}
	if err := repo.CreateTokenPair(ctx,
		testToken("tok-approve-1", "insp-1", "approve", 1),
		testToken("tok-reject-1", "insp-1", "reject", 1),
	); err != nil {
		t.Fatalf("CreateTokenPair() error = %v", err)
	}

	live, err := repo.ListLiveTokens(ctx, "insp-1")
	if err != nil {
		t.Fatalf("ListLiveTokens() error = %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("ListLiveTokens() len = %d", len(live))
	}

	// A resend supersedes the old pair and leaves only the new one live.
	if err := repo.SupersedeTokens(ctx, "insp-1", 1); err != nil {
		t.Fatalf("SupersedeTokens() error = %v", err)
	}
	if err := repo.CreateTokenPair(ctx,
		testToken("tok-approve-2", "insp-1", "approve", 1),
		testToken("tok-reject-2", "insp-1", "reject", 1),
	); err != nil {
		t.Fatalf("CreateTokenPair() error = %v", err)
	}

	live, err = repo.ListLiveTokens(ctx, "insp-1")
	if err != nil {
		t.Fatalf("ListLiveTokens() error = %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("ListLiveTokens() after supersede len = %d", len(live))
	}
	for _, token := range live {
		if token.TokenValue == "tok-approve-1" || token.TokenValue == "tok-reject-1" {
			t.Fatalf("superseded token %q still live", token.TokenValue)
		}
	}

	old, err := repo.GetToken(ctx, "tok-approve-1")
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if !old.Superseded {
		t.Fatal("old token not marked superseded")
	}

	if _, err := repo.GetToken(ctx, "missing"); !errors.Is(err, ports.ErrTokenNotFound) {
		t.Fatalf("GetToken() error = %v, want ErrTokenNotFound", err)
	}
}

func TestConsumeTokenWinsOnce(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	if err := repo.CreateTokenPair(ctx,
		testToken("tok-approve", "insp-1", "approve", 1),
		testToken("tok-reject", "insp-1", "reject", 1),
	); err != nil {
		t.Fatalf("CreateTokenPair() error = %v", err)
	}

	won, err := repo.ConsumeToken(ctx, "tok-approve")
	if err != nil {
		t.Fatalf("ConsumeToken() error = %v", err)
	}
	if !won {
		t.Fatal("first ConsumeToken() = false, want true")
	}

	won, err = repo.ConsumeToken(ctx, "tok-approve")
	if err != nil {
		t.Fatalf("ConsumeToken() error = %v", err)
	}
	if won {
		t.Fatal("second ConsumeToken() = true, want false")
	}
}

func TestConsumeTokenConcurrent(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	if err := repo.CreateTokenPair(ctx,
		testToken("tok-approve", "insp-1", "approve", 1),
		testToken("tok-reject", "insp-1", "reject", 1),
	); err != nil {
		t.Fatalf("CreateTokenPair() error = %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.ConsumeToken(ctx, "tok-approve")
			if err != nil {
				t.Errorf("ConsumeToken() error = %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("concurrent ConsumeToken() winners = %d, want exactly 1", winners)
	}
}

func TestDecisionsAppendOnlyAndOrdered(t *testing.T) {
	repo := setupEscalationRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{"reject", "approve"} {
		if err := repo.AppendDecision(ctx, ports.Decision{
			DecisionID:   "dec-" + action,
			InspectionID: "insp-1",
			ActorEmail:   "qm@example.com",
			Action:       action,
			Level:        i + 1,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano),
		}); err != nil {
			t.Fatalf("AppendDecision() error = %v", err)
		}
	}

	decisions, err := repo.ListDecisions(ctx, "insp-1")
	if err != nil {
		t.Fatalf("ListDecisions() error = %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("ListDecisions() len = %d", len(decisions))
	}
	if decisions[0].Action != "reject" || decisions[1].Action != "approve" {
		t.Fatalf("ListDecisions() order = %+v", decisions)
	}
}
