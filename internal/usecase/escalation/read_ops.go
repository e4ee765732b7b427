package escalation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"labgate/internal/bootstrap/logging"
	"labgate/internal/errs"
	"labgate/internal/ports"
)

func (s *Service) GetInspection(ctx context.Context, inspectionID string) (InspectionDetail, error) {
	if ctx == nil {
		return InspectionDetail{}, errors.New("context is required")
	}
	if s.repo == nil {
		return InspectionDetail{}, errors.New("escalation repository is required")
	}

	inspectionID = strings.TrimSpace(inspectionID)
	if inspectionID == "" {
		return InspectionDetail{}, errors.New("inspection id is required")
	}

	inspection, err := s.repo.GetInspection(ctx, inspectionID)
	if err != nil {
		return InspectionDetail{}, err
	}

	decisions, err := s.repo.ListDecisions(ctx, inspectionID)
	if err != nil {
		return InspectionDetail{}, err
	}

	tokens, err := s.repo.ListLiveTokens(ctx, inspectionID)
	if err != nil {
		return InspectionDetail{}, err
	}

	detail := InspectionDetail{Inspection: inspection}
	for _, decision := range decisions {
		detail.Decisions = append(detail.Decisions, DecisionItem{
			ActorEmail: decision.ActorEmail,
			Action:     decision.Action,
			Level:      decision.Level,
			DecidedAt:  decision.CreatedAt,
		})
	}
	for _, token := range tokens {
		detail.LiveTokens = append(detail.LiveTokens, TokenSummary{
			Action:        token.Action,
			Level:         token.Level,
			ApproverEmail: token.ApproverEmail,
			IssuedAt:      token.IssuedAt,
			ExpiresAt:     token.ExpiresAt,
		})
	}
	return detail, nil
}

func (s *Service) ListInspections(ctx context.Context, filter ListFilter) ([]ports.Inspection, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if s.repo == nil {
		return nil, errors.New("escalation repository is required")
	}

	return s.repo.ListInspections(ctx, ports.InspectionFilter{
		Company:          filter.Company,
		EscalationStatus: filter.EscalationStatus,
		OverallStatus:    filter.OverallStatus,
	})
}

// EscalationStatus answers the cheap "where is this case" question,
// consulting the KV cache before the inspections table.
func (s *Service) EscalationStatus(ctx context.Context, inspectionID string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}

	inspectionID = strings.TrimSpace(inspectionID)
	if inspectionID == "" {
		return "", errors.New("inspection id is required")
	}

	if s.cache != nil {
		value, found, err := s.cache.Get(ctx, cacheStatusKey(inspectionID))
		if err != nil {
			// Cache trouble is never fatal to a read.
			logging.Warn(ctx, "cache get failed", slog.String("key", cacheStatusKey(inspectionID)), slog.Any("err", errs.Loggable(err)))
		} else if found {
			return value, nil
		}
	}

	inspection, err := s.repo.GetInspection(ctx, inspectionID)
	if err != nil {
		return "", err
	}
	s.setCacheBestEffort(ctx, cacheStatusKey(inspectionID), inspection.EscalationStatus)
	return inspection.EscalationStatus, nil
}
