package escalation

import (
	"context"
	"fmt"
	"log/slog"

	"labgate/internal/bootstrap/logging"
	domainescalation "labgate/internal/domain/escalation"
	"labgate/internal/errs"
	"labgate/internal/ports"
)

// escalate mints a fresh token pair for (inspection, level) and sends the
// escalation mail. Prior live tokens for the level are superseded so a resend
// leaves exactly one redeemable pair. The levelN_sent status is only recorded
// after the mail went out; a transport failure leaves the current status
// standing and is reported as a warning, with the manual resend as recovery.
func (s *Service) escalate(ctx context.Context, inspection ports.Inspection, level int) (recipient string, warning string, err error) {
	current, err := domainescalation.ParseStatus(inspection.EscalationStatus)
	if err != nil {
		return "", "", err
	}

	next := domainescalation.StatusLevel1Sent
	if level == 2 {
		next = domainescalation.StatusLevel2Sent
	}
	if !domainescalation.CanAdvance(current, next) {
		if current.IsTerminal() {
			return "", "", domainescalation.ErrInspectionTerminal
		}
		return "", "", fmt.Errorf("%w: cannot send level %d from %s", domainescalation.ErrLevelMismatch, level, current)
	}

	recipient, err = s.policy.Recipient(inspection.Company, level)
	if err != nil {
		return "", "", err
	}

	approveValue, err := domainescalation.NewTokenValue()
	if err != nil {
		return "", "", err
	}
	rejectValue, err := domainescalation.NewTokenValue()
	if err != nil {
		return "", "", err
	}

	now := s.clock.Now().UTC()
	issuedAt := now.Format(timeLayout)
	expiresAt := now.Add(s.settings.TokenTTL).Format(timeLayout)

	approveToken := ports.ActionToken{
		TokenValue:    approveValue,
		InspectionID:  inspection.InspectionID,
		Action:        string(domainescalation.ActionApprove),
		Level:         level,
		ApproverEmail: recipient,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}
	rejectToken := approveToken
	rejectToken.TokenValue = rejectValue
	rejectToken.Action = string(domainescalation.ActionReject)

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SupersedeTokens(txCtx, inspection.InspectionID, level); err != nil {
			return err
		}
		return s.repo.CreateTokenPair(txCtx, approveToken, rejectToken)
	}); err != nil {
		return "", "", errs.Wrap(err, "issue token pair")
	}

	approveURL, rejectURL := s.actionLinks(inspection, level, approveValue, rejectValue)
	subject, html, err := renderEscalationMail(inspection, level, approveURL, rejectURL, expiresAt)
	if err != nil {
		return "", "", err
	}

	msg := ports.Message{
		To:      []string{recipient},
		Subject: subject,
		HTML:    html,
	}
	if level == 2 {
		// Courtesy copy: the quality manager learns the decision moved up.
		msg.Cc = []string{s.policy.QualityManager}
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		logging.Warn(
			ctx,
			"escalation mail failed",
			slog.String("inspection_id", inspection.InspectionID),
			slog.Int("level", level),
			slog.Any("err", errs.Loggable(err)),
		)
		return recipient, fmt.Sprintf("level-%d escalation mail to %s failed: %v", level, recipient, err), nil
	}

	now2 := s.nowString()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.SetEscalationStatus(txCtx, inspection.InspectionID, string(next), now2); err != nil {
			return err
		}
		if level == 1 && inspection.EscalatedAt == nil {
			return s.repo.MarkEscalated(txCtx, inspection.InspectionID, now2)
		}
		return nil
	}); err != nil {
		return "", "", errs.Wrap(err, "record escalation sent")
	}

	s.setCacheBestEffort(ctx, cacheStatusKey(inspection.InspectionID), string(next))

	logging.Info(
		ctx,
		"escalation mail sent",
		slog.String("inspection_id", inspection.InspectionID),
		slog.Int("level", level),
		slog.String("recipient", recipient),
	)
	return recipient, "", nil
}
