package escalation

import (
	"context"
	"errors"
	"strings"

	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/errs"
)

// Resend is the operator recovery path: it reissues the token pair for the
// level the workflow is currently waiting on and resends the escalation
// mail. Old links for that level stop working.
func (s *Service) Resend(ctx context.Context, input ResendInput) (ResendResult, error) {
	if ctx == nil {
		return ResendResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ResendResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil || s.uow == nil {
		return ResendResult{}, errors.New("escalation repository and unit of work are required")
	}

	inspectionID := strings.TrimSpace(input.InspectionID)
	if inspectionID == "" {
		return ResendResult{}, errors.New("inspection id is required")
	}

	inspection, err := s.repo.GetInspection(ctx, inspectionID)
	if err != nil {
		return ResendResult{}, err
	}

	current, err := domainescalation.ParseStatus(inspection.EscalationStatus)
	if err != nil {
		return ResendResult{}, err
	}
	if current.IsTerminal() {
		return ResendResult{}, domainescalation.ErrInspectionTerminal
	}

	level := 1
	if expected, ok := current.ExpectedLevel(); ok {
		level = expected
	} else if inspection.OverallStatus != string(domainescalation.OverallFail) {
		// Nothing to escalate: the inspection passed and no chain is open.
		return ResendResult{}, domainescalation.ErrInspectionTerminal
	}

	recipient, warning, err := s.escalate(ctx, inspection, level)
	if err != nil {
		return ResendResult{}, err
	}

	status := inspection.EscalationStatus
	if warning == "" {
		if level == 1 {
			status = string(domainescalation.StatusLevel1Sent)
		} else {
			status = string(domainescalation.StatusLevel2Sent)
		}
	}

	return ResendResult{
		InspectionID:     inspection.InspectionID,
		Level:            level,
		Recipient:        recipient,
		EscalationStatus: status,
		Warning:          warning,
	}, nil
}
