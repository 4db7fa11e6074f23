package model

import "time"

// ExportStatus captures lifecycle state for an export job.
type ExportStatus string

const (
	StatusPending    ExportStatus = "PENDING"
	StatusProcessing ExportStatus = "PROCESSING"
	StatusReady      ExportStatus = "READY"
	// StatusCompleted is accepted from older records and behaves like READY.
	StatusCompleted  ExportStatus = "COMPLETED"
	StatusDownloaded ExportStatus = "DOWNLOADED"
	StatusFailed     ExportStatus = "FAILED"
	StatusDeleted    ExportStatus = "DELETED"
)

// PENDING may fail directly when generation never starts.
var transitions = map[ExportStatus][]ExportStatus{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusReady, StatusFailed},
	StatusReady:      {StatusDownloaded, StatusDeleted},
	StatusCompleted:  {StatusDownloaded, StatusDeleted},
	StatusDownloaded: {StatusDeleted},
	StatusFailed:     {StatusDeleted},
}

// CanTransitionTo reports whether a job in status s may move to next.
func (s ExportStatus) CanTransitionTo(next ExportStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors returns every status that may transition into s.
func (s ExportStatus) Predecessors() []ExportStatus {
	var out []ExportStatus
	for _, from := range []ExportStatus{StatusPending, StatusProcessing, StatusReady, StatusCompleted, StatusDownloaded, StatusFailed} {
		if from.CanTransitionTo(s) {
			out = append(out, from)
		}
	}
	return out
}

// Downloadable reports whether the archive of a job in status s can be streamed.
func (s ExportStatus) Downloadable() bool {
	return s == StatusReady || s == StatusCompleted || s == StatusDownloaded
}

// Period is an inclusive date range. Start must lie strictly before End.
type Period struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Valid reports whether the range is ordered.
func (p Period) Valid() bool {
	return p.Start.Before(p.End)
}

// AuditInfo is free-form metadata supplied for the auditor.
type AuditInfo struct {
	AuditorName     string `json:"auditor_name,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// ExportOptions are the request flags persisted with a job.
type ExportOptions struct {
	Categories       []DocumentCategory `json:"categories"`
	IncludeDocuments bool               `json:"include_documents"`
	DigitalSignature bool               `json:"digital_signature"`
	Incremental      bool               `json:"incremental"`
	PriorExportDate  *time.Time         `json:"prior_export_date,omitempty"`
	Audit            AuditInfo          `json:"audit"`
}

// ExportConfig is the value object a generation run works from.
// It is copied into the worker and never mutated afterwards.
type ExportConfig struct {
	OwnerID string `json:"owner_id"`
	Period  Period `json:"period"`
	ExportOptions
}

// LedgerPeriod returns the range used for movement tables (transactions, invoices).
// Incremental exports start the day after the prior export when it falls inside the period.
func (c ExportConfig) LedgerPeriod() Period {
	p := c.Period
	if !c.Incremental || c.PriorExportDate == nil {
		return p
	}
	next := c.PriorExportDate.AddDate(0, 0, 1)
	if next.After(p.Start) && next.Before(p.End) {
		p.Start = next
	}
	return p
}

// ExportMetadata is the result summary of a successful generation.
type ExportMetadata struct {
	FileSize        int64          `json:"file_size"`
	FileCount       int            `json:"file_count"`
	DocumentCount   int            `json:"document_count"`
	TableRowCounts  map[string]int `json:"table_row_counts"`
	ArchiveSHA256   string         `json:"archive_sha256"`
	ManifestEntries int            `json:"manifest_entries"`
}

// ExportJob mirrors the persisted export job record.
type ExportJob struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Filename     string          `json:"filename"`
	Status       ExportStatus    `json:"status"`
	Period       Period          `json:"period"`
	Options      ExportOptions   `json:"options"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ExpiresAt    time.Time       `json:"expires_at"`
	FileSize     int64           `json:"file_size"`
	Metadata     *ExportMetadata `json:"metadata,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

// Config rebuilds the generation input from a persisted job.
func (j ExportJob) Config() ExportConfig {
	return ExportConfig{OwnerID: j.OwnerID, Period: j.Period, ExportOptions: j.Options}
}
