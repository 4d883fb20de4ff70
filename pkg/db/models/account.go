package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/enums"
	"gorm.io/gorm"
)

// Account represents the canonical identity entity. StripeSubscriptionID is
// populated only when the paid tier was granted through a subscription event.
type Account struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email                string     `gorm:"type:text;not null;uniqueIndex:idx_accounts_email"`
	PasswordHash         string     `gorm:"column:password_hash;not null"`
	Tier                 enums.Tier `gorm:"type:text;not null;default:'free'"`
	StripeCustomerID     *string    `gorm:"column:stripe_customer_id;index"`
	StripeSubscriptionID *string    `gorm:"column:stripe_subscription_id;index"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id client-side so the sqlite dev driver works too.
func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
