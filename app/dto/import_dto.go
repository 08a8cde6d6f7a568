package dto

import "time"

type ImportStartResponse struct {
	ImportID  string `json:"import_id"`
	Status    string `json:"status"`
	TotalRows int    `json:"total_rows"`
	Chunks    int    `json:"chunks"`
}

// ImportStatusResponse reports progress of a running or finished import
type ImportStatusResponse struct {
	ImportID        string     `json:"import_id"`
	FileName        string     `json:"file_name"`
	Status          string     `json:"status"`
	TotalRows       int        `json:"total_rows"`
	SkippedRows     int        `json:"skipped_rows"`
	Cities          int        `json:"cities"`
	Chunks          int        `json:"chunks"`
	SentChunks      int        `json:"sent_chunks"`
	SucceededChunks int        `json:"succeeded_chunks"`
	FailedChunks    int        `json:"failed_chunks"`
	UploadedRows    int        `json:"uploaded_rows"`
	FailedRows      int        `json:"failed_rows"`
	Errors          []string   `json:"errors"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// UploadTariffsRequest is the body of one chunk sent to POST /api/upload-tariffs
type UploadTariffsRequest struct {
	Cities []CityData `json:"cities"`
}
