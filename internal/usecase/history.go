package usecase

import (
	"context"
	"errors"
	"strings"

	"sentiment-service/internal/domain"
	"sentiment-service/internal/repository"
)

const (
	// MaxHistoryLimit caps one history page.
	MaxHistoryLimit = 100
	defaultLimit    = 50
)

// HistoryReader are the Record Store queries consumed by the history
// service.
type HistoryReader interface {
	QueryUserHistory(ctx context.Context, userID, cursor string, limit int) (repository.HistoryPage, error)
	QueryBatchItems(ctx context.Context, batchID, cursor string, limit int) (repository.ItemPage, error)
	GetJob(ctx context.Context, batchID string) (domain.BatchJob, error)
}

// HistoryService serves paginated, time-ordered reads of past results.
type HistoryService struct {
	store        HistoryReader
	defaultLimit int
}

type HistoryInput struct {
	UserID string
	Cursor string
	Limit  int
}

type HistoryOutput struct {
	Records    []domain.AnalysisRecord
	NextCursor string
}

type BatchItemsInput struct {
	BatchID string
	Cursor  string
	Limit   int
}

type BatchItemsOutput struct {
	Items      []domain.BatchItemResult
	NextCursor string
}

func NewHistoryService(store HistoryReader, defLimit int) (*HistoryService, error) {
	if store == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	if defLimit <= 0 || defLimit > MaxHistoryLimit {
		defLimit = defaultLimit
	}
	return &HistoryService{store: store, defaultLimit: defLimit}, nil
}

// GetHistory returns one page of a user's records, newest first. An empty
// NextCursor means the results are exhausted.
func (s *HistoryService) GetHistory(ctx context.Context, in HistoryInput) (HistoryOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return HistoryOutput{}, newError(ErrorValidation, "missing_user_id", nil)
	}
	limit, err := clampLimit(in.Limit, s.defaultLimit)
	if err != nil {
		return HistoryOutput{}, err
	}

	page, err := s.store.QueryUserHistory(ctx, userID, in.Cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrBadCursor) {
			return HistoryOutput{}, newError(ErrorValidation, "invalid_cursor", err)
		}
		return HistoryOutput{}, newError(ErrorStore, "history_read_error", err)
	}
	return HistoryOutput{Records: page.Records, NextCursor: page.NextCursor}, nil
}

// GetBatchItems returns one page of per-row results in ascending row
// order.
func (s *HistoryService) GetBatchItems(ctx context.Context, in BatchItemsInput) (BatchItemsOutput, error) {
	batchID := strings.TrimSpace(in.BatchID)
	if batchID == "" {
		return BatchItemsOutput{}, newError(ErrorValidation, "missing_batch_id", nil)
	}
	limit, err := clampLimit(in.Limit, s.defaultLimit)
	if err != nil {
		return BatchItemsOutput{}, err
	}

	page, err := s.store.QueryBatchItems(ctx, batchID, in.Cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrBadCursor) {
			return BatchItemsOutput{}, newError(ErrorValidation, "invalid_cursor", err)
		}
		return BatchItemsOutput{}, newError(ErrorStore, "batch_items_read_error", err)
	}
	return BatchItemsOutput{Items: page.Items, NextCursor: page.NextCursor}, nil
}

// GetJobStatus returns the metadata record for a batch.
func (s *HistoryService) GetJobStatus(ctx context.Context, batchID string) (domain.BatchJob, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return domain.BatchJob{}, newError(ErrorValidation, "missing_batch_id", nil)
	}
	job, err := s.store.GetJob(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return domain.BatchJob{}, newError(ErrorNotFound, "unknown_batch_id", err)
		}
		return domain.BatchJob{}, newError(ErrorStore, "job_read_error", err)
	}
	return job, nil
}

func clampLimit(limit, def int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 0 || limit > MaxHistoryLimit {
		return 0, newError(ErrorValidation, "invalid_limit", nil)
	}
	return limit, nil
}
