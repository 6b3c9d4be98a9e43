package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"sentiment-service/internal/domain"
	"sentiment-service/internal/usecase"
)

type analyzeService interface {
	Analyze(ctx context.Context, in usecase.AnalyzeInput) (usecase.AnalyzeOutput, error)
}

type analyzeRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type analyzeResponse struct {
	Sentiment   domain.Sentiment `json:"sentiment"`
	Confidence  float64          `json:"confidence"`
	Timestamp   int64            `json:"timestamp"`
	TextPreview string           `json:"text_preview"`
	UserID      string           `json:"user_id"`
	CreatedAt   string           `json:"created_at"`
}

// AnalyzeHandler serves POST /analyze.
type AnalyzeHandler struct {
	svc analyzeService
}

func NewAnalyzeHandler(svc analyzeService) (*AnalyzeHandler, error) {
	if svc == nil {
		return nil, errors.New("handler: analyze service must not be nil")
	}
	return &AnalyzeHandler{svc: svc}, nil
}

func (h *AnalyzeHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)

	var body analyzeRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return validationResponse("malformed_request_body", corrID)
	}

	out, err := h.svc.Analyze(ctx, usecase.AnalyzeInput{
		Text:   body.Text,
		UserID: body.UserID,
	})
	if err != nil {
		return errorResponseFor(err, corrID)
	}

	return jsonResponse(http.StatusOK, analyzeResponse{
		Sentiment:   out.Sentiment,
		Confidence:  out.Confidence,
		Timestamp:   out.CreatedAt.Unix(),
		TextPreview: out.TextPreview,
		UserID:      out.UserID,
		CreatedAt:   out.CreatedAt.UTC().Format(time.RFC3339),
	}, corrID)
}
