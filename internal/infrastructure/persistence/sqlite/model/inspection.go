package model

type Inspection struct {
	InspectionID     string  `gorm:"column:inspection_id;type:text;primaryKey"`
	Company          string  `gorm:"column:company;type:text;not null;index"`
	Supplier         string  `gorm:"column:supplier;type:text;not null"`
	Material         string  `gorm:"column:material;type:text;not null"`
	InspectionType   string  `gorm:"column:inspection_type;type:text;not null"`
	Lot              string  `gorm:"column:lot;type:text;not null"`
	InspectedAt      string  `gorm:"column:inspected_at;type:text;not null"`
	FailedParameters string  `gorm:"column:failed_parameters;type:text;not null"`
	OverallStatus    string  `gorm:"column:overall_status;type:text;not null"`
	EscalationStatus string  `gorm:"column:escalation_status;type:text;not null;index"`
	EscalatedAt      *string `gorm:"column:escalated_at;type:text"`
	CreatedAt        string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt        string  `gorm:"column:updated_at;type:text;not null"`
}

func (Inspection) TableName() string {
	return "inspections"
}
