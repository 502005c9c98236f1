// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Format is the response shape requested from a language model.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ErrEmptyResponse is returned when a model answers with no usable text.
var ErrEmptyResponse = errors.New("language model returned an empty response")

// Generator abstracts a language-model completion API so tests can supply
// a fake. Each implementation sends one prompt and returns the raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string, format Format) (string, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the generator with exponential backoff.
func callWithRetry(ctx context.Context, gen Generator, prompt string, format Format, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := gen.Generate(ctx, prompt, format)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// extractJSON returns the outermost JSON object in s. Models sometimes wrap
// the object in prose or code fences.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
