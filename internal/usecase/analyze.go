package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentiment-service/internal/domain"
)

// TextClassifier is the classification capability consumed by the
// single-item and batch services.
type TextClassifier interface {
	Classify(ctx context.Context, text string) (domain.Sentiment, float64, error)
}

// AnalysisWriter persists completed classifications.
type AnalysisWriter interface {
	PutAnalysis(ctx context.Context, rec domain.AnalysisRecord) error
}

// AnalyzeService validates one request, classifies it and persists the
// result.
type AnalyzeService struct {
	classifier TextClassifier
	store      AnalysisWriter
	logger     *slog.Logger
}

type AnalyzeInput struct {
	Text   string
	UserID string
}

type AnalyzeOutput struct {
	Sentiment   domain.Sentiment
	Confidence  float64
	TextPreview string
	UserID      string
	CreatedAt   time.Time
}

func NewAnalyzeService(classifier TextClassifier, store AnalysisWriter, logger *slog.Logger) (*AnalyzeService, error) {
	if classifier == nil {
		return nil, errors.New("usecase: classifier must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: analysis store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeService{classifier: classifier, store: store, logger: logger}, nil
}

// Analyze classifies one text for one user. A persistence failure does not
// discard the computed result: the classification is still returned and
// the classified-but-not-persisted inconsistency is logged for operator
// follow-up.
func (s *AnalyzeService) Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return AnalyzeOutput{}, newError(ErrorValidation, "missing_user_id", nil)
	}
	if strings.TrimSpace(in.Text) == "" {
		return AnalyzeOutput{}, newError(ErrorValidation, "empty_text", nil)
	}

	sentiment, confidence, err := s.classifier.Classify(ctx, in.Text)
	if err != nil {
		return AnalyzeOutput{}, err
	}

	rec := domain.AnalysisRecord{
		UserID:      userID,
		RequestID:   newUUID(),
		TextPreview: domain.Preview(in.Text),
		Sentiment:   sentiment,
		Confidence:  confidence,
		CreatedAt:   timeNow(),
	}
	if err := s.store.PutAnalysis(ctx, rec); err != nil {
		s.logger.Error("classified result not persisted",
			slog.String("user_id", userID),
			slog.String("request_id", rec.RequestID),
			slog.String("error", err.Error()))
	}

	return AnalyzeOutput{
		Sentiment:   sentiment,
		Confidence:  confidence,
		TextPreview: rec.TextPreview,
		UserID:      userID,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

var newUUID = func() string {
	return uuid.NewString()
}

var timeNow = func() time.Time {
	return time.Now().UTC()
}
