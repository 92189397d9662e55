package model

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveFilter is an extra equality predicate on an archive table.
type ArchiveFilter struct {
	Column string
	Value  string
}

// ArchiveTable describes one table walked by the archiver.
type ArchiveTable struct {
	Name       string
	DateColumn string
	Filters    []ArchiveFilter
}

// ArchiveTables in processing order.
var ArchiveTables = []ArchiveTable{
	{Name: "profiles", DateColumn: "created_at", Filters: []ArchiveFilter{{Column: "role", Value: string(RolePatient)}}},
	{Name: "patient_profiles", DateColumn: "created_at"},
	{Name: "appointments", DateColumn: "created_at"},
	{Name: "appointment_steps", DateColumn: "updated_at"},
	{Name: "appointment_requirements", DateColumn: "updated_at"},
	{Name: "appointment_notes", DateColumn: "created_at"},
	{Name: "appointment_triage", DateColumn: "created_at"},
	{Name: "vitals", DateColumn: "created_at"},
	{Name: "lab_results", DateColumn: "created_at"},
	{Name: "doctor_reports", DateColumn: "updated_at"},
	{Name: "payments", DateColumn: "created_at"},
	{Name: "notifications", DateColumn: "created_at"},
	{Name: "activity_logs", DateColumn: "created_at"},
}

const (
	DefaultArchiveBatchSize = 200
	DefaultRetentionYears   = 5
)

type ArchiveRequest struct {
	DryRun       *bool  `json:"dryRun"`
	IncludeFiles *bool  `json:"includeFiles"`
	BatchSize    *int   `json:"batchSize"`
	CutoffISO    string `json:"cutoffIso"`
}

// ArchiveOptions are the resolved run parameters.
type ArchiveOptions struct {
	DryRun       bool
	IncludeFiles bool
	BatchSize    int
	Cutoff       time.Time
}

// TableResult carries matches on a dry run and updated on a real run.
type TableResult struct {
	Matches *int64 `json:"matches,omitempty"`
	Updated *int64 `json:"updated,omitempty"`
}

// FileError is a per-row failure. ID and FilePath are nil for the
// metadata-only batch.
type FileError struct {
	ID       *uuid.UUID `json:"id"`
	FilePath *string    `json:"file_path"`
	Error    string     `json:"error"`
}

type FilesResult struct {
	Bucket          string      `json:"bucket"`
	Matches         *int64      `json:"matches,omitempty"`
	Moved           *int        `json:"moved,omitempty"`
	Updated         *int64      `json:"updated,omitempty"`
	DataOnlyUpdated *int64      `json:"dataOnlyUpdated,omitempty"`
	Skipped         *int        `json:"skipped,omitempty"`
	Errors          []FileError `json:"errors,omitempty"`
}

type ArchiveSummary struct {
	OK           bool                   `json:"ok"`
	DryRun       bool                   `json:"dryRun"`
	IncludeFiles bool                   `json:"includeFiles"`
	CutoffISO    string                 `json:"cutoffIso"`
	ArchivedAt   string                 `json:"archivedAt"`
	Tables       map[string]TableResult `json:"tables"`
	Files        *FilesResult           `json:"files"`
}

// XrayArchiveRow is an x-ray result due for archival.
type XrayArchiveRow struct {
	ID       uuid.UUID `db:"id"`
	FilePath *string   `db:"file_path"`
}
