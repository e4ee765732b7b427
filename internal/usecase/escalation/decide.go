package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"labgate/internal/bootstrap/logging"
	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/errs"
	"labgate/internal/ports"
)

// Decide redeems an action token. Validation, consumption, and the
// inspection update run in one transaction: either the redemption wins and
// every mutation lands, or nothing changes. Notifications happen after
// commit and only ever degrade to a warning.
func (s *Service) Decide(ctx context.Context, input DecideInput) (DecideResult, error) {
	if ctx == nil {
		return DecideResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return DecideResult{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil || s.uow == nil {
		return DecideResult{}, errors.New("escalation repository and unit of work are required")
	}

	inspectionID := strings.TrimSpace(input.InspectionID)
	tokenValue := strings.TrimSpace(input.TokenValue)
	if inspectionID == "" || tokenValue == "" {
		return DecideResult{}, domainescalation.ErrTokenUnknown
	}

	var (
		result     DecideResult
		inspection ports.Inspection
	)

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		token, err := s.repo.GetToken(txCtx, tokenValue)
		if err != nil {
			if errors.Is(err, ports.ErrTokenNotFound) {
				return domainescalation.ErrTokenUnknown
			}
			return err
		}

		inspection, err = s.repo.GetInspection(txCtx, inspectionID)
		if err != nil {
			if errors.Is(err, ports.ErrInspectionNotFound) {
				return domainescalation.ErrTokenMismatch
			}
			return err
		}

		current, err := domainescalation.ParseStatus(inspection.EscalationStatus)
		if err != nil {
			return err
		}
		action, err := domainescalation.ParseAction(token.Action)
		if err != nil {
			return err
		}
		expiresAt, err := parseStoredTime(token.ExpiresAt)
		if err != nil {
			// Fail closed on a corrupted record.
			return domainescalation.ErrTokenUnknown
		}

		state := domainescalation.TokenState{
			InspectionID: token.InspectionID,
			Action:       action,
			Level:        token.Level,
			ExpiresAt:    expiresAt,
			Consumed:     token.Consumed,
			Superseded:   token.Superseded,
		}
		if err := state.Validate(s.clock.Now(), inspection.InspectionID, current); err != nil {
			return err
		}

		won, err := s.repo.ConsumeToken(txCtx, tokenValue)
		if err != nil {
			return err
		}
		if !won {
			return domainescalation.ErrTokenConsumed
		}

		next, err := domainescalation.NextStatus(action, token.Level)
		if err != nil {
			return err
		}

		now := s.nowString()
		overall := inspection.OverallStatus
		switch next {
		case domainescalation.StatusQMApproved, domainescalation.StatusFinalApproved:
			overall = string(domainescalation.OverallPass)
		case domainescalation.StatusFinalRejected:
			overall = string(domainescalation.OverallFail)
		}
		if overall != inspection.OverallStatus {
			if err := s.repo.SetOverallStatus(txCtx, inspection.InspectionID, overall, now); err != nil {
				return err
			}
		}
		if err := s.repo.SetEscalationStatus(txCtx, inspection.InspectionID, string(next), now); err != nil {
			return err
		}
		if err := s.repo.AppendDecision(txCtx, ports.Decision{
			DecisionID:   uuid.NewString(),
			InspectionID: inspection.InspectionID,
			ActorEmail:   token.ApproverEmail,
			Action:       string(action),
			Level:        token.Level,
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		inspection.OverallStatus = overall
		inspection.EscalationStatus = string(next)
		result = DecideResult{
			InspectionID:     inspection.InspectionID,
			Action:           string(action),
			Level:            token.Level,
			ApproverEmail:    token.ApproverEmail,
			OverallStatus:    overall,
			EscalationStatus: string(next),
		}
		return nil
	}); err != nil {
		return DecideResult{}, err
	}

	s.setCacheBestEffort(ctx, cacheStatusKey(inspection.InspectionID), inspection.EscalationStatus)

	logging.Info(
		ctx,
		"decision recorded",
		slog.String("inspection_id", inspection.InspectionID),
		slog.String("action", result.Action),
		slog.Int("level", result.Level),
		slog.String("escalation_status", result.EscalationStatus),
	)

	result.Warning = s.afterDecision(ctx, inspection, &result)
	return result, nil
}

// afterDecision runs the post-commit side of a redemption: the approver
// confirmation, the level-2 chain after a level-1 rejection, or the
// stakeholder-wide final notice. Failures here never unwind the decision.
func (s *Service) afterDecision(ctx context.Context, inspection ports.Inspection, result *DecideResult) string {
	switch domainescalation.Status(result.EscalationStatus) {
	case domainescalation.StatusQMApproved:
		subject, html, err := renderConfirmationMail(inspection)
		if err == nil {
			err = s.mailer.Send(ctx, ports.Message{
				To:      []string{result.ApproverEmail},
				Subject: subject,
				HTML:    html,
			})
		}
		if err != nil {
			logging.Warn(ctx, "confirmation mail failed", slog.String("inspection_id", inspection.InspectionID), slog.Any("err", errs.Loggable(err)))
			return fmt.Sprintf("decision recorded but confirmation mail failed: %v", err)
		}

	case domainescalation.StatusQMRejected:
		// The rejection is committed; the level-2 chain is a discrete step
		// whose failure leaves the inspection rejected-pending-escalation.
		_, warning, err := s.escalate(ctx, inspection, 2)
		if err != nil {
			logging.Error(ctx, "level-2 escalation failed after rejection", slog.String("inspection_id", inspection.InspectionID), slog.Any("err", errs.Loggable(err)))
			return fmt.Sprintf("rejection recorded but level-2 escalation failed: %v", err)
		}
		if warning != "" {
			return warning
		}
		result.EscalationStatus = string(domainescalation.StatusLevel2Sent)

	case domainescalation.StatusFinalApproved, domainescalation.StatusFinalRejected:
		approved := result.EscalationStatus == string(domainescalation.StatusFinalApproved)
		subject, html, err := renderFinalNoticeMail(inspection, approved, result.ApproverEmail)
		if err == nil {
			err = s.mailer.Send(ctx, ports.Message{
				To:      s.policy.FinalNoticeRecipients(result.ApproverEmail),
				Subject: subject,
				HTML:    html,
			})
		}
		if err != nil {
			logging.Warn(ctx, "final notice mail failed", slog.String("inspection_id", inspection.InspectionID), slog.Any("err", errs.Loggable(err)))
			return fmt.Sprintf("decision recorded but final notice mail failed: %v", err)
		}
	}
	return ""
}
