package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"sentiment-service/internal/domain"
	"sentiment-service/internal/usecase"
)

type batchService interface {
	Submit(ctx context.Context, in usecase.SubmitInput) (usecase.SubmitOutput, error)
	Run(ctx context.Context, batchID string) error
}

type submitRequest struct {
	SourceKey string `json:"source_key"`
	UserID    string `json:"user_id"`
}

type submitResponse struct {
	BatchID string           `json:"batch_id"`
	Status  domain.JobStatus `json:"status"`
}

// BatchHandler serves the batch Lambda, which is invoked two ways: by API
// Gateway for POST /batch submissions and by the jobs topic for worker
// runs. It takes the raw event and dispatches on its shape.
type BatchHandler struct {
	svc    batchService
	logger *slog.Logger
}

func NewBatchHandler(svc batchService, logger *slog.Logger) (*BatchHandler, error) {
	if svc == nil {
		return nil, errors.New("handler: batch service must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{svc: svc, logger: logger}, nil
}

func (h *BatchHandler) Handle(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	var snsEvent events.SNSEvent
	if err := json.Unmarshal(raw, &snsEvent); err == nil && len(snsEvent.Records) > 0 && snsEvent.Records[0].SNS.Message != "" {
		return events.APIGatewayProxyResponse{}, h.handleWorker(ctx, snsEvent)
	}

	var apiReq events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &apiReq); err == nil && apiReq.HTTPMethod != "" {
		return h.handleSubmit(ctx, apiReq)
	}

	return events.APIGatewayProxyResponse{}, errors.New("handler: unrecognized batch event shape")
}

// handleSubmit creates the job and acknowledges with 202.
func (h *BatchHandler) handleSubmit(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)

	var body submitRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return validationResponse("malformed_request_body", corrID)
	}

	out, err := h.svc.Submit(ctx, usecase.SubmitInput{
		SourceKey: body.SourceKey,
		UserID:    body.UserID,
	})
	if err != nil {
		return errorResponseFor(err, corrID)
	}

	return jsonResponse(http.StatusAccepted, submitResponse{
		BatchID: out.BatchID,
		Status:  out.Status,
	}, corrID)
}

// handleWorker runs each dispatched job. A returned error makes the
// hosting environment retry the invocation, which resumes the job from its
// checkpoint.
func (h *BatchHandler) handleWorker(ctx context.Context, event events.SNSEvent) error {
	for _, record := range event.Records {
		var job usecase.JobEvent
		if err := json.Unmarshal([]byte(record.SNS.Message), &job); err != nil || job.BatchID == "" {
			h.logger.Error("dropping malformed job event",
				slog.String("message_id", record.SNS.MessageID))
			continue
		}
		if err := h.svc.Run(ctx, job.BatchID); err != nil {
			return err
		}
	}
	return nil
}
