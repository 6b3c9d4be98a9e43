package domain

import "time"

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobPartial    JobStatus = "PARTIAL"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further status transition may occur.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobPartial, JobFailed:
		return true
	}
	return false
}

// BatchJob is the metadata record for one bulk CSV submission.
type BatchJob struct {
	BatchID        string
	UserID         string
	Status         JobStatus
	SourceKey      string
	TotalItems     int
	ProcessedItems int
	FailedItems    int
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// BatchItemResult is the per-row outcome within a batch. Sentiment and
// Confidence are unset when the row failed; Error is unset otherwise.
type BatchItemResult struct {
	BatchID     string
	RowIndex    int
	TextPreview string
	Sentiment   Sentiment
	Confidence  float64
	Error       string
}

// Failed reports whether the row was recorded as a failure.
func (r BatchItemResult) Failed() bool { return r.Error != "" }
