package scanning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsupportedImage is returned when the uploaded bytes cannot be decoded
// as an image.
var ErrUnsupportedImage = errors.New("unsupported image")

// Analyzer defines the interface for food image analysis backends
type Analyzer interface {
	// AnalyzeFood sends a food photo for analysis and returns the raw JSON
	// document describing it
	AnalyzeFood(ctx context.Context, imageData []byte, contentType string) ([]byte, error)
	// Close closes the analyzer and releases resources
	Close() error
}

// StatusError is a failure reported by the analysis backend
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis service error (status %d): %s", e.StatusCode, e.Message)
}

// statusError builds a StatusError, defaulting the message to the status text
func statusError(code int, message string) *StatusError {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(code)
	}
	return &StatusError{StatusCode: code, Message: message}
}

// askFunc sends one prompt with an image to a vision model and returns its text answer
type askFunc func(ctx context.Context, prompt string, img preparedImage) (string, error)

// analyzeWithPrompts runs the two-step prompt flow shared by the model backends:
// first decide whether the photo shows a product label, then ask for the
// matching JSON document
func analyzeWithPrompts(ctx context.Context, ask askFunc, img preparedImage) ([]byte, error) {
	answer, err := ask(ctx, labelDetectionPrompt, img)
	if err != nil {
		return nil, fmt.Errorf("detecting product label: %w", err)
	}

	prompt := rawFoodPrompt
	if hasProductLabel(answer) {
		prompt = productLabelPrompt
	}

	text, err := ask(ctx, prompt, img)
	if err != nil {
		return nil, fmt.Errorf("analyzing food: %w", err)
	}

	doc, err := extractJSONObject(text)
	if err != nil {
		return nil, statusError(http.StatusBadGateway, fmt.Sprintf("parsing model response: %v", err))
	}
	return doc, nil
}

// hasProductLabel interprets the label detection answer
func hasProductLabel(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "true")
}
