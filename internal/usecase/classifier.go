package usecase

import (
	"context"
	"errors"
	"unicode/utf8"

	"sentiment-service/internal/domain"
)

// DefaultMaxTextLength caps classifiable input, in characters.
const DefaultMaxTextLength = 5000

// ModelClient is the opaque inference capability behind the Classifier.
// Implementations cache whatever state the model needs across calls within
// one process.
type ModelClient interface {
	Predict(ctx context.Context, text string) (domain.Sentiment, float64, error)
}

// Classifier validates text and delegates to the model. Validation
// failures never reach the model.
type Classifier struct {
	model      ModelClient
	maxTextLen int
}

// NewClassifier creates a Classifier. maxTextLen <= 0 selects the default
// 5000-character cap.
func NewClassifier(model ModelClient, maxTextLen int) (*Classifier, error) {
	if model == nil {
		return nil, errors.New("usecase: model client must not be nil")
	}
	if maxTextLen <= 0 {
		maxTextLen = DefaultMaxTextLength
	}
	return &Classifier{model: model, maxTextLen: maxTextLen}, nil
}

// Classify returns the binary label and the model's confidence in it.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Sentiment, float64, error) {
	if text == "" {
		return "", 0, newError(ErrorValidation, "empty_text", nil)
	}
	if utf8.RuneCountInString(text) > c.maxTextLen {
		return "", 0, newError(ErrorValidation, "text_too_long", nil)
	}
	label, confidence, err := c.model.Predict(ctx, text)
	if err != nil {
		return "", 0, newError(ErrorModel, "inference_error", err)
	}
	return label, confidence, nil
}
