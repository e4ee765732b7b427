package escalation

import (
	"errors"
	"time"

	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/ports"
)

// ErrValidation marks a rejected inbound payload. Handlers map it to a 400.
var ErrValidation = errors.New("invalid inspection payload")

// Settings carries the non-policy knobs of the workflow.
type Settings struct {
	// BaseURL prefixes the action links embedded in escalation mail.
	BaseURL string
	// TokenTTL bounds how long an action link stays redeemable.
	TokenTTL time.Duration
}

// Service drives the lab-inspection escalation workflow: submission,
// notification, token redemption, and the level-1 to level-2 chain.
type Service struct {
	repo     ports.EscalationRepository
	uow      ports.UnitOfWork
	cache    ports.Cache
	mailer   ports.Mailer
	clock    ports.Clock
	policy   domainescalation.Policy
	settings Settings
}

func NewService(
	repo ports.EscalationRepository,
	uow ports.UnitOfWork,
	cache ports.Cache,
	mailer ports.Mailer,
	clock ports.Clock,
	policy domainescalation.Policy,
	settings Settings,
) *Service {
	if clock == nil {
		clock = ports.SystemClock()
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 24 * time.Hour
	}
	return &Service{
		repo:     repo,
		uow:      uow,
		cache:    cache,
		mailer:   mailer,
		clock:    clock,
		policy:   policy,
		settings: settings,
	}
}

type SubmitInspectionInput struct {
	Company          string
	Supplier         string
	Material         string
	InspectionType   string
	Lot              string
	InspectedAt      string
	OverallStatus    string
	FailedParameters []string
}

type SubmitResult struct {
	InspectionID     string
	OverallStatus    string
	EscalationStatus string
	// Warning is set when the inspection was stored but the escalation
	// notification could not be delivered.
	Warning string
}

type DecideInput struct {
	InspectionID string
	TokenValue   string
}

type DecideResult struct {
	InspectionID     string
	Action           string
	Level            int
	ApproverEmail    string
	OverallStatus    string
	EscalationStatus string
	Warning          string
}

type ResendInput struct {
	InspectionID string
}

type ResendResult struct {
	InspectionID     string
	Level            int
	Recipient        string
	EscalationStatus string
	Warning          string
}

type ListFilter struct {
	Company          string
	EscalationStatus string
	OverallStatus    string
}

type DecisionItem struct {
	ActorEmail string
	Action     string
	Level      int
	DecidedAt  string
}

type TokenSummary struct {
	Action        string
	Level         int
	ApproverEmail string
	IssuedAt      string
	ExpiresAt     string
}

type InspectionDetail struct {
	Inspection ports.Inspection
	Decisions  []DecisionItem
	LiveTokens []TokenSummary
}
