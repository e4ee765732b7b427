package model

type ActionToken struct {
	TokenValue    string `gorm:"column:token_value;type:text;primaryKey"`
	InspectionID  string `gorm:"column:inspection_id;type:text;not null;index"`
	Action        string `gorm:"column:action;type:text;not null"`
	Level         int    `gorm:"column:level;not null"`
	ApproverEmail string `gorm:"column:approver_email;type:text;not null"`
	IssuedAt      string `gorm:"column:issued_at;type:text;not null"`
	ExpiresAt     string `gorm:"column:expires_at;type:text;not null"`
	Consumed      bool   `gorm:"column:consumed;not null;default:0"`
	Superseded    bool   `gorm:"column:superseded;not null;default:0"`
}

func (ActionToken) TableName() string {
	return "action_tokens"
}
