package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"sentiment-service/internal/domain"
	"sentiment-service/internal/usecase"
)

type historyService interface {
	GetHistory(ctx context.Context, in usecase.HistoryInput) (usecase.HistoryOutput, error)
	GetBatchItems(ctx context.Context, in usecase.BatchItemsInput) (usecase.BatchItemsOutput, error)
	GetJobStatus(ctx context.Context, batchID string) (domain.BatchJob, error)
}

type historyRecord struct {
	Sentiment   domain.Sentiment `json:"sentiment"`
	Confidence  float64          `json:"confidence"`
	TextPreview string           `json:"text_preview"`
	CreatedAt   string           `json:"created_at"`
	BatchID     string           `json:"batch_id,omitempty"`
}

type historyResponse struct {
	Records    []historyRecord `json:"records"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type jobStatusResponse struct {
	BatchID        string           `json:"batch_id"`
	Status         domain.JobStatus `json:"status"`
	TotalItems     int              `json:"total_items"`
	ProcessedItems int              `json:"processed_items"`
	FailedItems    int              `json:"failed_items"`
	CompletedAt    string           `json:"completed_at,omitempty"`
}

type batchItem struct {
	RowIndex    int               `json:"row_index"`
	TextPreview string            `json:"text_preview"`
	Sentiment   *domain.Sentiment `json:"sentiment"`
	Confidence  *float64          `json:"confidence"`
	Error       string            `json:"error,omitempty"`
}

type batchItemsResponse struct {
	Items      []batchItem `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// HistoryHandler serves GET /history, GET /batch/{id} and
// GET /batch/{id}/items.
type HistoryHandler struct {
	svc historyService
}

func NewHistoryHandler(svc historyService) (*HistoryHandler, error) {
	if svc == nil {
		return nil, errors.New("handler: history service must not be nil")
	}
	return &HistoryHandler{svc: svc}, nil
}

func (h *HistoryHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)

	if batchID, ok := req.PathParameters["id"]; ok {
		if strings.HasSuffix(strings.TrimRight(req.Path, "/"), "/items") {
			return h.handleBatchItems(ctx, req, batchID, corrID)
		}
		return h.handleJobStatus(ctx, batchID, corrID)
	}
	return h.handleHistory(ctx, req, corrID)
}

func (h *HistoryHandler) handleHistory(ctx context.Context, req events.APIGatewayProxyRequest, corrID string) (events.APIGatewayProxyResponse, error) {
	limit, ok := parseLimit(req.QueryStringParameters["limit"])
	if !ok {
		return validationResponse("invalid_limit", corrID)
	}

	out, err := h.svc.GetHistory(ctx, usecase.HistoryInput{
		UserID: req.QueryStringParameters["user_id"],
		Cursor: req.QueryStringParameters["cursor"],
		Limit:  limit,
	})
	if err != nil {
		return errorResponseFor(err, corrID)
	}

	records := make([]historyRecord, 0, len(out.Records))
	for _, rec := range out.Records {
		records = append(records, historyRecord{
			Sentiment:   rec.Sentiment,
			Confidence:  rec.Confidence,
			TextPreview: rec.TextPreview,
			CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
			BatchID:     rec.BatchID,
		})
	}
	return jsonResponse(http.StatusOK, historyResponse{
		Records:    records,
		NextCursor: out.NextCursor,
	}, corrID)
}

func (h *HistoryHandler) handleJobStatus(ctx context.Context, batchID, corrID string) (events.APIGatewayProxyResponse, error) {
	job, err := h.svc.GetJobStatus(ctx, batchID)
	if err != nil {
		return errorResponseFor(err, corrID)
	}

	resp := jobStatusResponse{
		BatchID:        job.BatchID,
		Status:         job.Status,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		FailedItems:    job.FailedItems,
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return jsonResponse(http.StatusOK, resp, corrID)
}

func (h *HistoryHandler) handleBatchItems(ctx context.Context, req events.APIGatewayProxyRequest, batchID, corrID string) (events.APIGatewayProxyResponse, error) {
	limit, ok := parseLimit(req.QueryStringParameters["limit"])
	if !ok {
		return validationResponse("invalid_limit", corrID)
	}

	out, err := h.svc.GetBatchItems(ctx, usecase.BatchItemsInput{
		BatchID: batchID,
		Cursor:  req.QueryStringParameters["cursor"],
		Limit:   limit,
	})
	if err != nil {
		return errorResponseFor(err, corrID)
	}

	items := make([]batchItem, 0, len(out.Items))
	for _, res := range out.Items {
		item := batchItem{
			RowIndex:    res.RowIndex,
			TextPreview: res.TextPreview,
			Error:       res.Error,
		}
		if !res.Failed() {
			sentiment := res.Sentiment
			confidence := res.Confidence
			item.Sentiment = &sentiment
			item.Confidence = &confidence
		}
		items = append(items, item)
	}
	return jsonResponse(http.StatusOK, batchItemsResponse{
		Items:      items,
		NextCursor: out.NextCursor,
	}, corrID)
}
