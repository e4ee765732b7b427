package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"labgate/internal/errs"
	"labgate/internal/infrastructure/persistence/sqlite/model"
	"labgate/internal/ports"
)

type EscalationRepository struct {
	db *gorm.DB
}

var _ ports.EscalationRepository = (*EscalationRepository)(nil)

func NewEscalationRepository(db *gorm.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

func (r *EscalationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *EscalationRepository) GetInspection(ctx context.Context, inspectionID string) (ports.Inspection, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Inspection{}, err
	}

	var row model.Inspection
	if err := db.Where("inspection_id = ?", inspectionID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Inspection{}, ports.ErrInspectionNotFound
		}
		return ports.Inspection{}, errs.Wrap(err, "query inspection")
	}
	return mapInspection(row)
}

func (r *EscalationRepository) ListInspections(ctx context.Context, filter ports.InspectionFilter) ([]ports.Inspection, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Inspection{})
	if company := strings.TrimSpace(filter.Company); company != "" {
		query = query.Where("company = ?", company)
	}
	if status := strings.TrimSpace(filter.EscalationStatus); status != "" {
		query = query.Where("escalation_status = ?", status)
	}
	if status := strings.TrimSpace(filter.OverallStatus); status != "" {
		query = query.Where("overall_status = ?", status)
	}

	var rows []model.Inspection
	if err := query.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query inspections")
	}

	items := make([]ports.Inspection, 0, len(rows))
	for _, row := range rows {
		item, err := mapInspection(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *EscalationRepository) CreateInspection(ctx context.Context, inspection ports.Inspection) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row, err := mapInspectionRow(inspection)
	if err != nil {
		return err
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert inspection")
	}
	return nil
}

func (r *EscalationRepository) SetEscalationStatus(ctx context.Context, inspectionID string, status string, updatedAt string) error {
	return r.updateInspection(ctx, inspectionID, map[string]any{
		"escalation_status": status,
		"updated_at":        updatedAt,
	})
}

func (r *EscalationRepository) SetOverallStatus(ctx context.Context, inspectionID string, status string, updatedAt string) error {
	return r.updateInspection(ctx, inspectionID, map[string]any{
		"overall_status": status,
		"updated_at":     updatedAt,
	})
}

func (r *EscalationRepository) MarkEscalated(ctx context.Context, inspectionID string, escalatedAt string) error {
	return r.updateInspection(ctx, inspectionID, map[string]any{
		"escalated_at": escalatedAt,
		"updated_at":   escalatedAt,
	})
}

func (r *EscalationRepository) updateInspection(ctx context.Context, inspectionID string, fields map[string]any) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Inspection{}).
		Where("inspection_id = ?", inspectionID).
		Updates(fields)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update inspection")
	}
	if result.RowsAffected == 0 {
		return ports.ErrInspectionNotFound
	}
	return nil
}

func (r *EscalationRepository) GetToken(ctx context.Context, tokenValue string) (ports.ActionToken, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ActionToken{}, err
	}

	var row model.ActionToken
	if err := db.Where("token_value = ?", tokenValue).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ActionToken{}, ports.ErrTokenNotFound
		}
		return ports.ActionToken{}, errs.Wrap(err, "query token")
	}
	return mapToken(row), nil
}

func (r *EscalationRepository) ListLiveTokens(ctx context.Context, inspectionID string) ([]ports.ActionToken, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ActionToken
	if err := db.
		Where("inspection_id = ? AND consumed = ? AND superseded = ?", inspectionID, false, false).
		Order("level asc, action asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query live tokens")
	}

	items := make([]ports.ActionToken, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapToken(row))
	}
	return items, nil
}

func (r *EscalationRepository) CreateTokenPair(ctx context.Context, approve ports.ActionToken, reject ports.ActionToken) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	rows := []model.ActionToken{mapTokenRow(approve), mapTokenRow(reject)}
	if err := db.Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert token pair")
	}
	return nil
}

func (r *EscalationRepository) SupersedeTokens(ctx context.Context, inspectionID string, level int) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.ActionToken{}).
		Where("inspection_id = ? AND level = ? AND consumed = ? AND superseded = ?", inspectionID, level, false, false).
		Update("superseded", true).Error; err != nil {
		return errs.Wrap(err, "supersede tokens")
	}
	return nil
}

func (r *EscalationRepository) ConsumeToken(ctx context.Context, tokenValue string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	// Conditional update: the consumed=0 guard makes the first redemption
	// win and every concurrent one observe zero affected rows.
	result := db.Model(&model.ActionToken{}).
		Where("token_value = ? AND consumed = ?", tokenValue, false).
		Update("consumed", true)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "consume token")
	}
	return result.RowsAffected == 1, nil
}

func (r *EscalationRepository) ListDecisions(ctx context.Context, inspectionID string) ([]ports.Decision, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Decision
	if err := db.
		Where("inspection_id = ?", inspectionID).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query decisions")
	}

	items := make([]ports.Decision, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Decision{
			DecisionID:   row.DecisionID,
			InspectionID: row.InspectionID,
			ActorEmail:   row.ActorEmail,
			Action:       row.Action,
			Level:        row.Level,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *EscalationRepository) AppendDecision(ctx context.Context, decision ports.Decision) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Decision{
		DecisionID:   decision.DecisionID,
		InspectionID: decision.InspectionID,
		ActorEmail:   decision.ActorEmail,
		Action:       decision.Action,
		Level:        decision.Level,
		CreatedAt:    decision.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert decision")
	}
	return nil
}

func mapInspection(row model.Inspection) (ports.Inspection, error) {
	var failed []string
	if strings.TrimSpace(row.FailedParameters) != "" {
		if err := json.Unmarshal([]byte(row.FailedParameters), &failed); err != nil {
			return ports.Inspection{}, errs.Wrapf(err, "decode failed parameters for %s", row.InspectionID)
		}
	}

	return ports.Inspection{
		InspectionID:     row.InspectionID,
		Company:          row.Company,
		Supplier:         row.Supplier,
		Material:         row.Material,
		InspectionType:   row.InspectionType,
		Lot:              row.Lot,
		InspectedAt:      row.InspectedAt,
		FailedParameters: failed,
		OverallStatus:    row.OverallStatus,
		EscalationStatus: row.EscalationStatus,
		EscalatedAt:      row.EscalatedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func mapInspectionRow(inspection ports.Inspection) (model.Inspection, error) {
	failed := inspection.FailedParameters
	if failed == nil {
		failed = []string{}
	}
	encoded, err := json.Marshal(failed)
	if err != nil {
		return model.Inspection{}, errs.Wrap(err, "encode failed parameters")
	}

	return model.Inspection{
		InspectionID:     inspection.InspectionID,
		Company:          inspection.Company,
		Supplier:         inspection.Supplier,
		Material:         inspection.Material,
		InspectionType:   inspection.InspectionType,
		Lot:              inspection.Lot,
		InspectedAt:      inspection.InspectedAt,
		FailedParameters: string(encoded),
		OverallStatus:    inspection.OverallStatus,
		EscalationStatus: inspection.EscalationStatus,
		EscalatedAt:      inspection.EscalatedAt,
		CreatedAt:        inspection.CreatedAt,
		UpdatedAt:        inspection.UpdatedAt,
	}, nil
}

func mapToken(row model.ActionToken) ports.ActionToken {
	return ports.ActionToken{
		TokenValue:    row.TokenValue,
		InspectionID:  row.InspectionID,
		Action:        row.Action,
		Level:         row.Level,
		ApproverEmail: row.ApproverEmail,
		IssuedAt:      row.IssuedAt,
		ExpiresAt:     row.ExpiresAt,
		Consumed:      row.Consumed,
		Superseded:    row.Superseded,
	}
}

func mapTokenRow(token ports.ActionToken) model.ActionToken {
	return model.ActionToken{
		TokenValue:    token.TokenValue,
		InspectionID:  token.InspectionID,
		Action:        token.Action,
		Level:         token.Level,
		ApproverEmail: token.ApproverEmail,
		IssuedAt:      token.IssuedAt,
		ExpiresAt:     token.ExpiresAt,
		Consumed:      token.Consumed,
		Superseded:    token.Superseded,
	}
}
