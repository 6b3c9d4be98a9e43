package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentiment-service/internal/domain"
	"sentiment-service/internal/repository"
)

// fakeHistoryReader pages through pre-seeded records using the numeric
// offset as the cursor.
type fakeHistoryReader struct {
	records []domain.AnalysisRecord
	items   []domain.BatchItemResult
	job     domain.BatchJob
	jobErr  error
	err     error

	lastUserID  string
	lastBatchID string
	lastCursor  string
	lastLimit   int
}

func (f *fakeHistoryReader) QueryUserHistory(_ context.Context, userID, cursor string, limit int) (repository.HistoryPage, error) {
	f.lastUserID = userID
	f.lastCursor = cursor
	f.lastLimit = limit
	if f.err != nil {
		return repository.HistoryPage{}, f.err
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + limit
	if end >= len(f.records) {
		return repository.HistoryPage{Records: f.records[start:]}, nil
	}
	return repository.HistoryPage{
		Records:    f.records[start:end],
		NextCursor: strconv.Itoa(end),
	}, nil
}

func (f *fakeHistoryReader) QueryBatchItems(_ context.Context, batchID, cursor string, limit int) (repository.ItemPage, error) {
	f.lastBatchID = batchID
	f.lastCursor = cursor
	f.lastLimit = limit
	if f.err != nil {
		return repository.ItemPage{}, f.err
	}
	if limit >= len(f.items) {
		return repository.ItemPage{Items: f.items}, nil
	}
	return repository.ItemPage{Items: f.items[:limit], NextCursor: strconv.Itoa(limit)}, nil
}

func (f *fakeHistoryReader) GetJob(_ context.Context, batchID string) (domain.BatchJob, error) {
	f.lastBatchID = batchID
	if f.jobErr != nil {
		return domain.BatchJob{}, f.jobErr
	}
	return f.job, nil
}

func seededRecords(n int) []domain.AnalysisRecord {
	recs := make([]domain.AnalysisRecord, n)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := range recs {
		recs[i] = domain.AnalysisRecord{
			UserID:     "user-1",
			RequestID:  "req-" + strconv.Itoa(i),
			Sentiment:  domain.SentimentPositive,
			Confidence: 0.9,
			CreatedAt:  base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return recs
}

func TestGetHistory_DefaultLimit(t *testing.T) {
	reader := &fakeHistoryReader{records: seededRecords(3)}
	svc, err := NewHistoryService(reader, 25)
	require.NoError(t, err)

	out, err := svc.GetHistory(context.Background(), HistoryInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, out.Records, 3)
	require.Empty(t, out.NextCursor)
	require.Equal(t, 25, reader.lastLimit)
	require.Equal(t, "user-1", reader.lastUserID)
}

func TestGetHistory_PaginationWalk(t *testing.T) {
	reader := &fakeHistoryReader{records: seededRecords(5)}
	svc, err := NewHistoryService(reader, 50)
	require.NoError(t, err)

	var collected []domain.AnalysisRecord
	cursor := ""
	pages := 0
	for {
		out, err := svc.GetHistory(context.Background(), HistoryInput{UserID: "user-1", Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		collected = append(collected, out.Records...)
		pages++
		if out.NextCursor == "" {
			break
		}
		cursor = out.NextCursor
	}

	require.Equal(t, 3, pages)
	require.Len(t, collected, 5)
	require.Equal(t, "req-0", collected[0].RequestID)
	require.Equal(t, "req-4", collected[4].RequestID)
}

func TestGetHistory_Validation(t *testing.T) {
	svc, err := NewHistoryService(&fakeHistoryReader{}, 50)
	require.NoError(t, err)

	_, err = svc.GetHistory(context.Background(), HistoryInput{UserID: "  "})
	requireCode(t, err, ErrorValidation)

	_, err = svc.GetHistory(context.Background(), HistoryInput{UserID: "u", Limit: -1})
	requireCode(t, err, ErrorValidation)

	_, err = svc.GetHistory(context.Background(), HistoryInput{UserID: "u", Limit: MaxHistoryLimit + 1})
	requireCode(t, err, ErrorValidation)
}

func TestGetHistory_BadCursor(t *testing.T) {
	reader := &fakeHistoryReader{err: repository.ErrBadCursor}
	svc, err := NewHistoryService(reader, 50)
	require.NoError(t, err)

	_, err = svc.GetHistory(context.Background(), HistoryInput{UserID: "u", Cursor: "garbage"})
	requireCode(t, err, ErrorValidation)
}

func TestGetHistory_StoreError(t *testing.T) {
	reader := &fakeHistoryReader{err: errors.New("throttled")}
	svc, err := NewHistoryService(reader, 50)
	require.NoError(t, err)

	_, err = svc.GetHistory(context.Background(), HistoryInput{UserID: "u"})
	requireCode(t, err, ErrorStore)
}

func TestGetBatchItems(t *testing.T) {
	reader := &fakeHistoryReader{items: []domain.BatchItemResult{
		{BatchID: "b", RowIndex: 0, Sentiment: domain.SentimentPositive, Confidence: 0.9},
		{BatchID: "b", RowIndex: 1, Error: "text is empty"},
	}}
	svc, err := NewHistoryService(reader, 50)
	require.NoError(t, err)

	out, err := svc.GetBatchItems(context.Background(), BatchItemsInput{BatchID: "b"})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.True(t, out.Items[1].Failed())
	require.Equal(t, "b", reader.lastBatchID)

	_, err = svc.GetBatchItems(context.Background(), BatchItemsInput{BatchID: " "})
	requireCode(t, err, ErrorValidation)
}

func TestGetJobStatus(t *testing.T) {
	reader := &fakeHistoryReader{job: domain.BatchJob{
		BatchID: "b",
		Status:  domain.JobProcessing,
	}}
	svc, err := NewHistoryService(reader, 50)
	require.NoError(t, err)

	job, err := svc.GetJobStatus(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, domain.JobProcessing, job.Status)

	_, err = svc.GetJobStatus(context.Background(), "")
	requireCode(t, err, ErrorValidation)

	reader.jobErr = repository.ErrJobNotFound
	_, err = svc.GetJobStatus(context.Background(), "missing")
	requireCode(t, err, ErrorNotFound)
}

func TestNewHistoryService_LimitFallback(t *testing.T) {
	svc, err := NewHistoryService(&fakeHistoryReader{}, 0)
	require.NoError(t, err)
	require.Equal(t, defaultLimit, svc.defaultLimit)

	svc, err = NewHistoryService(&fakeHistoryReader{}, MaxHistoryLimit+50)
	require.NoError(t, err)
	require.Equal(t, defaultLimit, svc.defaultLimit)

	_, err = NewHistoryService(nil, 50)
	require.Error(t, err)
}
