package domain

import (
	"time"
	"unicode/utf8"
)

// Sentiment is the binary label produced by the classifier.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
)

// PreviewLength is the maximum length of the stored text preview, in
// characters.
const PreviewLength = 100

// Preview truncates text for storage and responses. Truncation is
// rune-aligned so the preview stays valid UTF-8.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	return string([]rune(text)[:PreviewLength])
}

// AnalysisRecord is one completed single-text classification. Records are
// immutable once written; BatchID is empty for standalone requests and set
// to the owning batch for rows produced by a bulk run.
type AnalysisRecord struct {
	UserID      string
	RequestID   string
	TextPreview string
	Sentiment   Sentiment
	Confidence  float64
	CreatedAt   time.Time
	BatchID     string
}
