package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sentiment-service/internal/domain"
)

const (
	pkPrefixUser  = "USER#"
	pkPrefixBatch = "BATCH#"
	skPrefixTS    = "TS#"
	skPrefixItem  = "ITEM#"
	skMeta        = "META"

	// Fixed-width so lexicographic SK order is chronological. RFC3339Nano
	// drops trailing zeros and would break that.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

func userPK(userID string) string   { return pkPrefixUser + userID }
func batchPK(batchID string) string { return pkPrefixBatch + batchID }

func analysisSK(createdAt time.Time, requestID string) string {
	return skPrefixTS + createdAt.UTC().Format(tsLayout) + "#" + requestID
}

func itemSK(rowIndex int) string {
	return fmt.Sprintf("%s%06d", skPrefixItem, rowIndex)
}

// analysisItem is the storage shape of a domain.AnalysisRecord.
type analysisItem struct {
	PK          string  `dynamodbav:"PK"`
	SK          string  `dynamodbav:"SK"`
	UserID      string  `dynamodbav:"user_id"`
	RequestID   string  `dynamodbav:"request_id"`
	TextPreview string  `dynamodbav:"text_preview"`
	Sentiment   string  `dynamodbav:"sentiment"`
	Confidence  float64 `dynamodbav:"confidence"`
	CreatedAt   string  `dynamodbav:"created_at"`
	BatchID     string  `dynamodbav:"batch_id,omitempty"`
}

func encodeAnalysis(rec domain.AnalysisRecord) (map[string]types.AttributeValue, error) {
	item := analysisItem{
		PK:          userPK(rec.UserID),
		SK:          analysisSK(rec.CreatedAt, rec.RequestID),
		UserID:      rec.UserID,
		RequestID:   rec.RequestID,
		TextPreview: rec.TextPreview,
		Sentiment:   string(rec.Sentiment),
		Confidence:  rec.Confidence,
		CreatedAt:   rec.CreatedAt.UTC().Format(tsLayout),
		BatchID:     rec.BatchID,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("repository: encode analysis: %w", err)
	}
	return av, nil
}

func decodeAnalysis(av map[string]types.AttributeValue) (domain.AnalysisRecord, error) {
	var item analysisItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return domain.AnalysisRecord{}, fmt.Errorf("repository: decode analysis: %w", err)
	}
	createdAt, err := time.Parse(tsLayout, item.CreatedAt)
	if err != nil {
		return domain.AnalysisRecord{}, fmt.Errorf("repository: decode analysis created_at: %w", err)
	}
	return domain.AnalysisRecord{
		UserID:      item.UserID,
		RequestID:   item.RequestID,
		TextPreview: item.TextPreview,
		Sentiment:   domain.Sentiment(item.Sentiment),
		Confidence:  item.Confidence,
		CreatedAt:   createdAt,
		BatchID:     item.BatchID,
	}, nil
}

// jobItem is the storage shape of a domain.BatchJob.
type jobItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	BatchID        string `dynamodbav:"batch_id"`
	UserID         string `dynamodbav:"user_id"`
	Status         string `dynamodbav:"status"`
	SourceKey      string `dynamodbav:"source_key"`
	TotalItems     int    `dynamodbav:"total_items"`
	ProcessedItems int    `dynamodbav:"processed_items"`
	FailedItems    int    `dynamodbav:"failed_items"`
	CreatedAt      string `dynamodbav:"created_at"`
	CompletedAt    string `dynamodbav:"completed_at,omitempty"`
}

func encodeJob(job domain.BatchJob) (map[string]types.AttributeValue, error) {
	item := jobItem{
		PK:             batchPK(job.BatchID),
		SK:             skMeta,
		BatchID:        job.BatchID,
		UserID:         job.UserID,
		Status:         string(job.Status),
		SourceKey:      job.SourceKey,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		FailedItems:    job.FailedItems,
		CreatedAt:      job.CreatedAt.UTC().Format(tsLayout),
	}
	if job.CompletedAt != nil {
		item.CompletedAt = job.CompletedAt.UTC().Format(tsLayout)
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("repository: encode job: %w", err)
	}
	return av, nil
}

func decodeJob(av map[string]types.AttributeValue) (domain.BatchJob, error) {
	var item jobItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return domain.BatchJob{}, fmt.Errorf("repository: decode job: %w", err)
	}
	createdAt, err := time.Parse(tsLayout, item.CreatedAt)
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("repository: decode job created_at: %w", err)
	}
	job := domain.BatchJob{
		BatchID:        item.BatchID,
		UserID:         item.UserID,
		Status:         domain.JobStatus(item.Status),
		SourceKey:      item.SourceKey,
		TotalItems:     item.TotalItems,
		ProcessedItems: item.ProcessedItems,
		FailedItems:    item.FailedItems,
		CreatedAt:      createdAt,
	}
	if item.CompletedAt != "" {
		completedAt, err := time.Parse(tsLayout, item.CompletedAt)
		if err != nil {
			return domain.BatchJob{}, fmt.Errorf("repository: decode job completed_at: %w", err)
		}
		job.CompletedAt = &completedAt
	}
	return job, nil
}

// itemResultItem is the storage shape of a domain.BatchItemResult.
// Sentiment and Confidence are absent on failed rows, Error on successful
// ones.
type itemResultItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	BatchID     string   `dynamodbav:"batch_id"`
	RowIndex    int      `dynamodbav:"row_index"`
	TextPreview string   `dynamodbav:"text_preview"`
	Sentiment   string   `dynamodbav:"sentiment,omitempty"`
	Confidence  *float64 `dynamodbav:"confidence,omitempty"`
	Error       string   `dynamodbav:"error,omitempty"`
}

func encodeItemResult(res domain.BatchItemResult) (map[string]types.AttributeValue, error) {
	item := itemResultItem{
		PK:          batchPK(res.BatchID),
		SK:          itemSK(res.RowIndex),
		BatchID:     res.BatchID,
		RowIndex:    res.RowIndex,
		TextPreview: res.TextPreview,
		Error:       res.Error,
	}
	if !res.Failed() {
		item.Sentiment = string(res.Sentiment)
		conf := res.Confidence
		item.Confidence = &conf
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("repository: encode item result: %w", err)
	}
	return av, nil
}

func decodeItemResult(av map[string]types.AttributeValue) (domain.BatchItemResult, error) {
	var item itemResultItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return domain.BatchItemResult{}, fmt.Errorf("repository: decode item result: %w", err)
	}
	// The sort key is what the row is stored and paged under, so it is
	// authoritative for the index; the row_index attribute is denormalized
	// convenience data.
	rowIndex, err := rowIndexFromSK(item.SK)
	if err != nil {
		return domain.BatchItemResult{}, err
	}
	res := domain.BatchItemResult{
		BatchID:     item.BatchID,
		RowIndex:    rowIndex,
		TextPreview: item.TextPreview,
		Sentiment:   domain.Sentiment(item.Sentiment),
		Error:       item.Error,
	}
	if item.Confidence != nil {
		res.Confidence = *item.Confidence
	}
	return res, nil
}

// rowIndexFromSK recovers a row index from an ITEM# sort key.
func rowIndexFromSK(sk string) (int, error) {
	raw := strings.TrimPrefix(sk, skPrefixItem)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("repository: malformed item SK %q: %w", sk, err)
	}
	return n, nil
}
