package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Incident is one reported address incident, loaded by the import job.
type Incident struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PostalCode         string    `gorm:"column:postal_code;not null;index"`
	Block              string    `gorm:"column:block;not null"`
	Location           string    `gorm:"column:location;not null"`
	LocationNormalized string    `gorm:"column:location_normalized;not null;index"`
	DateReported       string    `gorm:"column:date_reported;not null;index"`
	IncidentSummary    string    `gorm:"column:incident_summary;not null"`
	SourceURL          string    `gorm:"column:source_url;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *Incident) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
