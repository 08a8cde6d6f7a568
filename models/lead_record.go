// Package models contains the entities persisted by the storefront journals
package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead journal statuses
const (
	LeadStatusPending   = "pending"
	LeadStatusForwarded = "forwarded"
	LeadStatusFailed    = "failed"
)

// LeadRecord is the local audit trail of a submitted lead, listed by the admin panel
type LeadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex:uk_lead_records_uuid;not null" json:"uuid"`
	Type      string    `gorm:"size:255;not null" json:"type"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Phone     string    `gorm:"size:32;not null;index:idx_lead_records_phone" json:"phone"`
	Address   *string   `gorm:"type:text" json:"address,omitempty"`
	HouseType *string   `gorm:"size:32" json:"house_type,omitempty"`
	CallTime  *string   `gorm:"size:100" json:"call_time,omitempty"`
	Comment   *string   `gorm:"type:text" json:"comment,omitempty"`
	CitySlug  *string   `gorm:"size:100;index:idx_lead_records_city" json:"city_slug,omitempty"`
	Source    string    `gorm:"size:32;not null;default:'form'" json:"source"`
	Status    string    `gorm:"size:16;not null;index:idx_lead_records_status" json:"status"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`
	IPAddress *string   `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent *string   `gorm:"size:512" json:"user_agent,omitempty"`
	RequestID *string   `gorm:"size:255" json:"request_id,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_lead_records_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (LeadRecord) TableName() string {
	return "lead_records"
}

// LeadRecordFilter represents filter criteria for lead journal queries
type LeadRecordFilter struct {
	Status        *string
	Phone         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (l *LeadRecord) IsFailed() bool {
	return l.Status == LeadStatusFailed
}
