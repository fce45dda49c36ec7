package domain

import (
	"time"
)

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusCompleted StageStatus = "completed"
	StageStatusSkipped   StageStatus = "skipped"
	StageStatusFailed    StageStatus = "failed"
)

// StageReport describes how one pipeline stage went.
type StageReport struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	Message    string      `json:"message,omitempty"`
	DurationMS int64       `json:"duration_ms"`
}

// RunStats counts what each stage consumed and produced.
type RunStats struct {
	RowsRead            int `json:"rows_read"`
	RowsMissingCustomer int `json:"rows_missing_customer"`
	RowsNonPositive     int `json:"rows_non_positive"`
	RowsKept            int `json:"rows_kept"`
	Customers           int `json:"customers"`
	Invoices            int `json:"invoices"`
	Items               int `json:"items"`
	FrequentItemsets    int `json:"frequent_itemsets"`
	Rules               int `json:"rules"`
}

// AnalysisResult is everything one pipeline run hands to its presenter.
type AnalysisResult struct {
	RunID          string            `json:"run_id"`
	FileName       string            `json:"file_name,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"duration"`
	Columns        []string          `json:"columns"`
	RawPreview     []PreviewRow      `json:"raw_preview"`
	CleanedPreview []Transaction     `json:"cleaned_preview"`
	Segmented      bool              `json:"segmented"`
	Customers      []CustomerSegment `json:"customers"`
	ClusterSummary []ClusterSummary  `json:"cluster_summary,omitempty"`
	Scatter        []ScatterPoint    `json:"scatter,omitempty"`
	Rules          []AssociationRule `json:"rules"`
	Warnings       []string          `json:"warnings,omitempty"`
	Stats          RunStats          `json:"stats"`
	Stages         []StageReport     `json:"stages"`
}
