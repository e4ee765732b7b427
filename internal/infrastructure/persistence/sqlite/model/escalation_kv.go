package model

type EscalationKV struct {
	Key       string `gorm:"column:key;type:text;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (EscalationKV) TableName() string {
	return "escalation_kv"
}
