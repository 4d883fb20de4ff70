package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageRecord is one immutable row per metered action. The quota counter is
// the row count for (account_id, action_kind); there is no mutable counter.
type UsageRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index:idx_usage_account_action,priority:1"`
	ActionKind string    `gorm:"column:action_kind;not null;index:idx_usage_account_action,priority:2"`
	Subject    string    `gorm:"column:subject;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

func (u *UsageRecord) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
