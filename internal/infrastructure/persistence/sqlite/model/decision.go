package model

// Decision rows are append-only; nothing updates or deletes them.
type Decision struct {
	DecisionID   string `gorm:"column:decision_id;type:text;primaryKey"`
	InspectionID string `gorm:"column:inspection_id;type:text;not null;index"`
	ActorEmail   string `gorm:"column:actor_email;type:text;not null"`
	Action       string `gorm:"column:action;type:text;not null"`
	Level        int    `gorm:"column:level;not null"`
	CreatedAt    string `gorm:"column:created_at;type:text;not null"`
}

func (Decision) TableName() string {
	return "decisions"
}
