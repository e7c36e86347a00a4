package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

// humanizeError maps SDK and transport failures to messages a user can act
// on. The original error stays wrapped for --verbose logging.
func humanizeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: raise timeout_seconds with 'cliprelay config set timeout_seconds <n>': %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request canceled: %w", err)
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return fmt.Errorf("authentication failed: check your API key with 'cliprelay config set-key': %w", err)
		case apierr.StatusCode == 404:
			return fmt.Errorf("model or endpoint not found: check the model name and base_url settings: %w", err)
		case apierr.StatusCode == 429:
			return fmt.Errorf("rate limited by the API: wait a moment and retry: %w", err)
		case apierr.StatusCode >= 500:
			return fmt.Errorf("the model API is having trouble (HTTP %d): retry shortly: %w", apierr.StatusCode, err)
		}
	}
	return fmt.Errorf("model request failed: %w", err)
}
