package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"sentiment-service/internal/domain"
	"sentiment-service/internal/repository"
)

// timeReserve is the wall-clock margin kept in hand before the execution
// deadline. When less than this remains the run stops at the last
// checkpoint and a re-invocation picks the job up from there.
const timeReserve = 10 * time.Second

// JobStore are the Record Store operations consumed by the batch services.
type JobStore interface {
	CreateJob(ctx context.Context, job domain.BatchJob) error
	GetJob(ctx context.Context, batchID string) (domain.BatchJob, error)
	StartJob(ctx context.Context, batchID string, totalItems int) error
	UpdateJobProgress(ctx context.Context, batchID string, processed, failed int) error
	FinishJob(ctx context.Context, batchID string, status domain.JobStatus, completedAt time.Time) error
	PutItemResult(ctx context.Context, res domain.BatchItemResult) error
	PutAnalysis(ctx context.Context, rec domain.AnalysisRecord) error
}

// InputFetcher opens uploaded batch input files.
type InputFetcher interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// Publisher emits messages to a notification topic.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// JobEvent is the message dispatched to the worker topic at submission.
type JobEvent struct {
	BatchID string `json:"batch_id"`
}

// CompletionNotice is the message published when a job reaches a terminal
// state.
type CompletionNotice struct {
	BatchID     string           `json:"batch_id"`
	Status      domain.JobStatus `json:"status"`
	TotalItems  int              `json:"total_items"`
	FailedItems int              `json:"failed_items"`
}

// BatchService creates bulk jobs and drives them to completion. One run
// processes rows sequentially and checkpoints after every row, so an
// interrupted run resumes from processed_items instead of row 0.
type BatchService struct {
	classifier TextClassifier
	store      JobStore
	files      InputFetcher
	jobs       Publisher
	alerts     Publisher
	logger     *slog.Logger
	rowRetries int
}

type SubmitInput struct {
	SourceKey string
	UserID    string
}

type SubmitOutput struct {
	BatchID string
	Status  domain.JobStatus
}

// NewBatchService wires the orchestrator. rowRetries is the number of
// extra classification attempts per row before the row is recorded as
// failed; 0 means isolate-and-continue with no retry.
func NewBatchService(classifier TextClassifier, store JobStore, files InputFetcher, jobs, alerts Publisher, logger *slog.Logger, rowRetries int) (*BatchService, error) {
	if classifier == nil {
		return nil, errors.New("usecase: classifier must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: job store must not be nil")
	}
	if files == nil {
		return nil, errors.New("usecase: input fetcher must not be nil")
	}
	if jobs == nil {
		return nil, errors.New("usecase: jobs publisher must not be nil")
	}
	if alerts == nil {
		return nil, errors.New("usecase: alerts publisher must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rowRetries < 0 {
		rowRetries = 0
	}
	return &BatchService{
		classifier: classifier,
		store:      store,
		files:      files,
		jobs:       jobs,
		alerts:     alerts,
		logger:     logger,
		rowRetries: rowRetries,
	}, nil
}

// Submit registers a new QUEUED job for a previously uploaded CSV and
// dispatches it to the worker topic.
func (s *BatchService) Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return SubmitOutput{}, newError(ErrorValidation, "missing_user_id", nil)
	}
	sourceKey := strings.TrimSpace(in.SourceKey)
	if sourceKey == "" {
		return SubmitOutput{}, newError(ErrorValidation, "missing_source_key", nil)
	}

	job := domain.BatchJob{
		BatchID:   newUUID(),
		UserID:    userID,
		Status:    domain.JobQueued,
		SourceKey: sourceKey,
		CreatedAt: timeNow(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return SubmitOutput{}, newError(ErrorStore, "job_create_error", err)
	}
	if err := s.jobs.Publish(ctx, "batch job queued", JobEvent{BatchID: job.BatchID}); err != nil {
		// The job record exists but no worker will pick it up; operators
		// can re-dispatch from the record.
		s.logger.Error("job dispatch failed",
			slog.String("batch_id", job.BatchID),
			slog.String("error", err.Error()))
		return SubmitOutput{}, newError(ErrorInternal, "job_dispatch_error", err)
	}
	return SubmitOutput{BatchID: job.BatchID, Status: domain.JobQueued}, nil
}

// Run drives one job as far as the execution deadline allows. Re-invoking
// a job already in a terminal state is a no-op success. A run that stops
// early returns an error so the hosting environment retries and the next
// invocation resumes from the checkpoint.
func (s *BatchService) Run(ctx context.Context, batchID string) error {
	job, err := s.store.GetJob(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return newError(ErrorNotFound, "unknown_batch_id", err)
		}
		return newError(ErrorStore, "job_read_error", err)
	}
	if job.Status.Terminal() {
		s.logger.Info("job already terminal, nothing to do",
			slog.String("batch_id", batchID),
			slog.String("status", string(job.Status)))
		return nil
	}

	rows, err := s.loadRows(ctx, job.SourceKey)
	if err != nil {
		if job.Status == domain.JobQueued {
			// Unrecoverable before any row: fail the job outright.
			s.logger.Error("batch input unreadable",
				slog.String("batch_id", batchID),
				slog.String("source_key", job.SourceKey),
				slog.String("error", err.Error()))
			return s.finalize(ctx, job, 0, 0, domain.JobFailed)
		}
		// Mid-job the input was readable before; let the retry re-fetch.
		return newError(ErrorInternal, "input_read_error", err)
	}
	if len(rows) == 0 {
		s.logger.Error("batch input has no data rows",
			slog.String("batch_id", batchID),
			slog.String("source_key", job.SourceKey))
		return s.finalize(ctx, job, 0, 0, domain.JobFailed)
	}

	if job.Status == domain.JobQueued {
		if err := s.store.StartJob(ctx, batchID, len(rows)); err != nil {
			if errors.Is(err, repository.ErrInvalidTransition) {
				// A concurrent run got there first; re-read and carry on.
				if job, err = s.store.GetJob(ctx, batchID); err != nil {
					return newError(ErrorStore, "job_read_error", err)
				}
				if job.Status.Terminal() {
					return nil
				}
			} else {
				return newError(ErrorStore, "job_start_error", err)
			}
		} else {
			job.Status = domain.JobProcessing
			job.TotalItems = len(rows)
			job.ProcessedItems = 0
			job.FailedItems = 0
		}
	}

	processed := job.ProcessedItems
	failed := job.FailedItems
	for i := processed; i < len(rows); i++ {
		if deadlineClose(ctx) {
			s.logger.Warn("execution deadline near, stopping at checkpoint",
				slog.String("batch_id", batchID),
				slog.Int("processed_items", processed))
			return newError(ErrorInternal, "execution_time_exhausted", nil)
		}

		res := s.processRow(ctx, job, i, rows[i])
		if err := s.store.PutItemResult(ctx, res); err != nil {
			// The row result is the checkpoint; leave counters untouched so
			// the next invocation retries this row.
			return newError(ErrorStore, "row_checkpoint_error", err)
		}
		processed++
		if res.Failed() {
			failed++
		}
		if err := s.store.UpdateJobProgress(ctx, batchID, processed, failed); err != nil {
			return newError(ErrorStore, "progress_checkpoint_error", err)
		}
	}

	status := domain.JobCompleted
	switch {
	case failed == len(rows):
		status = domain.JobFailed
	case failed > 0:
		status = domain.JobPartial
	}
	return s.finalize(ctx, job, len(rows), failed, status)
}

// processRow classifies one row; any classification or validation error is
// captured on the result rather than propagated, so a bad row never aborts
// the job.
func (s *BatchService) processRow(ctx context.Context, job domain.BatchJob, index int, text string) domain.BatchItemResult {
	res := domain.BatchItemResult{
		BatchID:     job.BatchID,
		RowIndex:    index,
		TextPreview: domain.Preview(text),
	}

	if strings.TrimSpace(text) == "" {
		res.Error = "text is empty"
		return res
	}

	var (
		sentiment  domain.Sentiment
		confidence float64
		err        error
	)
	for attempt := 0; attempt <= s.rowRetries; attempt++ {
		sentiment, confidence, err = s.classifier.Classify(ctx, text)
		if err == nil {
			break
		}
		var ucErr *Error
		if errors.As(err, &ucErr) && ucErr.Code == ErrorValidation {
			break // retrying invalid input cannot help
		}
	}
	if err != nil {
		s.logger.Warn("row classification failed",
			slog.String("batch_id", job.BatchID),
			slog.Int("row_index", index),
			slog.String("error", err.Error()))
		res.Error = err.Error()
		return res
	}

	res.Sentiment = sentiment
	res.Confidence = confidence

	// Successful batch rows also feed the user's history. The row result
	// above stays authoritative, so this write is best-effort like the
	// single-item persistence path. Both request id and timestamp are
	// derived from the job, so a re-run row produces the identical record
	// key and the store rejects it as a duplicate instead of listing the
	// row twice.
	rec := domain.AnalysisRecord{
		UserID:      job.UserID,
		RequestID:   fmt.Sprintf("%s-%06d", job.BatchID, index),
		TextPreview: res.TextPreview,
		Sentiment:   sentiment,
		Confidence:  confidence,
		CreatedAt:   job.CreatedAt.Add(time.Duration(index+1) * time.Microsecond),
		BatchID:     job.BatchID,
	}
	if err := s.store.PutAnalysis(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			s.logger.Debug("history record already written by an earlier attempt",
				slog.String("batch_id", job.BatchID),
				slog.Int("row_index", index))
		} else {
			s.logger.Error("batch row classified but history record not persisted",
				slog.String("batch_id", job.BatchID),
				slog.Int("row_index", index),
				slog.String("error", err.Error()))
		}
	}
	return res
}

// finalize moves the job to a terminal state and publishes the completion
// notice. The job outcome, not the notification, is the source of truth:
// a failed publish is logged and never reverts the status.
func (s *BatchService) finalize(ctx context.Context, job domain.BatchJob, total, failed int, status domain.JobStatus) error {
	err := s.store.FinishJob(ctx, job.BatchID, status, timeNow())
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			s.logger.Info("job finalized concurrently",
				slog.String("batch_id", job.BatchID))
			return nil
		}
		return newError(ErrorStore, "job_finish_error", err)
	}

	s.logger.Info("batch job finished",
		slog.String("batch_id", job.BatchID),
		slog.String("status", string(status)),
		slog.Int("total_items", total),
		slog.Int("failed_items", failed))

	notice := CompletionNotice{
		BatchID:     job.BatchID,
		Status:      status,
		TotalItems:  total,
		FailedItems: failed,
	}
	subject := fmt.Sprintf("Batch %s processing %s", job.BatchID, strings.ToLower(string(status)))
	if err := s.alerts.Publish(ctx, subject, notice); err != nil {
		s.logger.Error("completion notification failed",
			slog.String("batch_id", job.BatchID),
			slog.String("error", err.Error()))
	}
	return nil
}

// loadRows fetches and parses the input CSV into per-row texts.
func (s *BatchService) loadRows(ctx context.Context, sourceKey string) ([]string, error) {
	body, err := s.files.Fetch(ctx, sourceKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	return parseCSVRows(body)
}

// deadlineClose reports whether the remaining execution time is inside the
// reserve margin.
func deadlineClose(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return time.Until(deadline) < timeReserve
}
