package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Import run statuses
const (
	ImportStatusRunning   = "running"
	ImportStatusCompleted = "completed"
	ImportStatusPartial   = "partial"
	ImportStatusFailed    = "failed"
	ImportStatusCanceled  = "canceled"
)

// ImportRun journals one Excel import and its chunk outcomes
type ImportRun struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID      `gorm:"type:uuid;uniqueIndex:uk_import_runs_uuid;not null" json:"uuid"`
	FileName        string         `gorm:"size:255;not null" json:"file_name"`
	StartedBy       string         `gorm:"size:255" json:"started_by"`
	Status          string         `gorm:"size:16;not null;index:idx_import_runs_status" json:"status"`
	TotalRows       int            `gorm:"not null;default:0" json:"total_rows"`
	SkippedRows     int            `gorm:"not null;default:0" json:"skipped_rows"`
	Chunks          int            `gorm:"not null;default:0" json:"chunks"`
	SucceededChunks int            `gorm:"not null;default:0" json:"succeeded_chunks"`
	FailedChunks    int            `gorm:"not null;default:0" json:"failed_chunks"`
	UploadedRows    int            `gorm:"not null;default:0" json:"uploaded_rows"`
	Errors          pq.StringArray `gorm:"type:text[]" json:"errors"`
	StartedAt       time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}

// ImportRunFilter represents filter criteria for import journal queries
type ImportRunFilter struct {
	Status       *string
	StartedAfter *time.Time
}

// IsTerminal reports whether the run can no longer change
func (r *ImportRun) IsTerminal() bool {
	return r.Status != ImportStatusRunning
}
