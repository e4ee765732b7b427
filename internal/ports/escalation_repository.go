package ports

import (
	"context"
	"errors"
)

var (
	ErrInspectionNotFound = errors.New("inspection not found")
	ErrTokenNotFound      = errors.New("action token not found")
)

type Inspection struct {
	InspectionID     string
	Company          string
	Supplier         string
	Material         string
	InspectionType   string
	Lot              string
	InspectedAt      string
	FailedParameters []string
	OverallStatus    string
	EscalationStatus string
	EscalatedAt      *string
	CreatedAt        string
	UpdatedAt        string
}

type ActionToken struct {
	TokenValue    string
	InspectionID  string
	Action        string
	Level         int
	ApproverEmail string
	IssuedAt      string
	ExpiresAt     string
	Consumed      bool
	Superseded    bool
}

type Decision struct {
	DecisionID   string
	InspectionID string
	ActorEmail   string
	Action       string
	Level        int
	CreatedAt    string
}

type InspectionFilter struct {
	Company          string
	EscalationStatus string
	OverallStatus    string
}

type EscalationReadRepository interface {
	GetInspection(ctx context.Context, inspectionID string) (Inspection, error)
	ListInspections(ctx context.Context, filter InspectionFilter) ([]Inspection, error)
	GetToken(ctx context.Context, tokenValue string) (ActionToken, error)
	ListLiveTokens(ctx context.Context, inspectionID string) ([]ActionToken, error)
	ListDecisions(ctx context.Context, inspectionID string) ([]Decision, error)
}

type EscalationRepository interface {
	EscalationReadRepository
	CreateInspection(ctx context.Context, inspection Inspection) error
	SetEscalationStatus(ctx context.Context, inspectionID string, status string, updatedAt string) error
	SetOverallStatus(ctx context.Context, inspectionID string, status string, updatedAt string) error
	MarkEscalated(ctx context.Context, inspectionID string, escalatedAt string) error
	CreateTokenPair(ctx context.Context, approve ActionToken, reject ActionToken) error
	// SupersedeTokens retires every live token for (inspection, level) so a
	// resend leaves exactly one redeemable pair.
	SupersedeTokens(ctx context.Context, inspectionID string, level int) error
	// ConsumeToken flips consumed with a not-yet-consumed guard and reports
	// whether this call won. Concurrent redemptions get exactly one true.
	ConsumeToken(ctx context.Context, tokenValue string) (bool, error)
	AppendDecision(ctx context.Context, decision Decision) error
}
