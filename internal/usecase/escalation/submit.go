package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"labgate/internal/bootstrap/logging"
	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/errs"
	"labgate/internal/ports"
)

// Submit stores an inspection result and, when the lab verdict is a fail,
// opens the level-1 escalation. A notification failure never rolls back the
// stored inspection; it is surfaced on the result as a warning.
func (s *Service) Submit(ctx context.Context, input SubmitInspectionInput) (SubmitResult, error) {
	if ctx == nil {
		return SubmitResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil || s.uow == nil {
		return SubmitResult{}, errors.New("escalation repository and unit of work are required")
	}

	inspection, err := s.validateSubmission(input)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreateInspection(txCtx, inspection)
	}); err != nil {
		return SubmitResult{}, errs.Wrap(err, "store inspection")
	}
	s.setCacheBestEffort(ctx, cacheStatusKey(inspection.InspectionID), inspection.EscalationStatus)

	result := SubmitResult{
		InspectionID:     inspection.InspectionID,
		OverallStatus:    inspection.OverallStatus,
		EscalationStatus: inspection.EscalationStatus,
	}

	if inspection.OverallStatus != string(domainescalation.OverallFail) {
		return result, nil
	}

	_, warning, err := s.escalate(ctx, inspection, 1)
	if err != nil {
		// The inspection is already committed; escalation trouble is
		// recoverable through the manual resend.
		logging.Error(
			ctx,
			"level-1 escalation failed after submission",
			slog.String("inspection_id", inspection.InspectionID),
			slog.Any("err", errs.Loggable(err)),
		)
		result.Warning = fmt.Sprintf("inspection stored but escalation failed: %v", err)
		return result, nil
	}
	if warning != "" {
		result.Warning = warning
		return result, nil
	}

	result.EscalationStatus = string(domainescalation.StatusLevel1Sent)
	return result, nil
}

func (s *Service) validateSubmission(input SubmitInspectionInput) (ports.Inspection, error) {
	company := domainescalation.NormalizeCompany(input.Company)
	supplier := strings.TrimSpace(input.Supplier)
	material := strings.TrimSpace(input.Material)
	inspectionType := strings.TrimSpace(input.InspectionType)
	lot := strings.TrimSpace(input.Lot)

	switch {
	case company == "":
		return ports.Inspection{}, fmt.Errorf("%w: company is required", ErrValidation)
	case supplier == "":
		return ports.Inspection{}, fmt.Errorf("%w: supplier is required", ErrValidation)
	case material == "":
		return ports.Inspection{}, fmt.Errorf("%w: material is required", ErrValidation)
	case inspectionType == "":
		return ports.Inspection{}, fmt.Errorf("%w: inspection type is required", ErrValidation)
	case lot == "":
		return ports.Inspection{}, fmt.Errorf("%w: lot is required", ErrValidation)
	}

	if !s.policy.KnownCompany(company) {
		return ports.Inspection{}, fmt.Errorf("%w: %q", domainescalation.ErrUnknownCompany, input.Company)
	}

	overall, err := domainescalation.ParseOverallStatus(strings.TrimSpace(input.OverallStatus))
	if err != nil {
		return ports.Inspection{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	inspectedAt := strings.TrimSpace(input.InspectedAt)
	if inspectedAt == "" {
		inspectedAt = s.nowString()
	} else {
		parsed, err := time.Parse(time.RFC3339, inspectedAt)
		if err != nil {
			return ports.Inspection{}, fmt.Errorf("%w: inspected_at must be RFC3339", ErrValidation)
		}
		inspectedAt = parsed.UTC().Format(timeLayout)
	}

	failed := make([]string, 0, len(input.FailedParameters))
	for _, raw := range input.FailedParameters {
		param := strings.TrimSpace(raw)
		if param == "" {
			continue
		}
		failed = append(failed, param)
	}
	if overall == domainescalation.OverallFail && len(failed) == 0 {
		return ports.Inspection{}, fmt.Errorf("%w: a failed inspection needs at least one failed parameter", ErrValidation)
	}

	now := s.nowString()
	return ports.Inspection{
		InspectionID:     uuid.NewString(),
		Company:          company,
		Supplier:         supplier,
		Material:         material,
		InspectionType:   inspectionType,
		Lot:              lot,
		InspectedAt:      inspectedAt,
		FailedParameters: failed,
		OverallStatus:    string(overall),
		EscalationStatus: string(domainescalation.StatusNone),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
