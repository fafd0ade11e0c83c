package models

import "time"

// TargetStatus is the lifecycle state of a retrieval target.
type TargetStatus string

const (
	StatusPending   TargetStatus = "pending"
	StatusSucceeded TargetStatus = "succeeded"
	StatusFailed    TargetStatus = "failed"
)

// Target is one category label whose export file the run attempts to
// retrieve. Created from the configured ordered list at run start and
// mutated only by the retry scheduler.
type Target struct {
	Label    string
	Status   TargetStatus
	Attempts int
}

// DownloadRecord describes the artifact produced by one successful cycle.
type DownloadRecord struct {
	Path    string
	Size    int64
	Kind    string // file extension without the dot, e.g. "xlsx"
	FoundAt time.Time
}

// RunSummary aggregates the outcome of a full run: every file retrieved,
// every target that exhausted its attempts, and where the failure snapshots
// went (empty when nothing failed).
type RunSummary struct {
	Records     []DownloadRecord
	Failed      []string
	SnapshotDir string
}
