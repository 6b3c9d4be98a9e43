package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"sentiment-service/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// correlationID returns the inbound correlation id (any header casing) or
// a fresh one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func jsonResponse(status int, body any, corrID string) (events.APIGatewayProxyResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(`{"error":"INTERNAL_ERROR","statusCode":500}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(raw),
	}, nil
}

// errorStatus maps usecase error codes onto HTTP statuses.
func errorStatus(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorValidation:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorModel:
		return http.StatusBadGateway
	case usecase.ErrorStore, usecase.ErrorInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func errorResponseFor(err error, corrID string) (events.APIGatewayProxyResponse, error) {
	code := usecase.ErrorInternal
	message := "internal server error"
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		code = ucErr.Code
		message = strings.ReplaceAll(ucErr.Reason, "_", " ")
	}
	status := errorStatus(code)
	return jsonResponse(status, errorResponse{
		Error:      string(code),
		Message:    message,
		StatusCode: status,
	}, corrID)
}

func validationResponse(reason, corrID string) (events.APIGatewayProxyResponse, error) {
	return errorResponseFor(&usecase.Error{Code: usecase.ErrorValidation, Reason: reason}, corrID)
}

// parseLimit reads an optional numeric query parameter; "" means not set.
func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
