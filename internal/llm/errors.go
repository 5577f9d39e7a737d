package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ErrFatalAPI marks provider errors that retrying will not fix, such as
// bad credentials or an exhausted quota.
var ErrFatalAPI = errors.New("fatal LLM API error")

// ErrMissingCredential is returned by every call on a model built without
// the provider's API key.
var ErrMissingCredential = errors.New("LLM API key not configured")

// missingCredential stands in for a provider whose API key is not set.
type missingCredential struct {
	provider string
}

func (m missingCredential) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, fmt.Errorf("%s: %w", m.provider, ErrMissingCredential)
}

func (m missingCredential) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", fmt.Errorf("%s: %w", m.provider, ErrMissingCredential)
}

var fatalMarkers = []string{
	"credit balance",
	"rate limit",
	"quota",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredential) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// wrapFatalError tags fatal provider errors with ErrFatalAPI and returns
// everything else unchanged.
func wrapFatalError(err error) error {
	if !isFatalAPIError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatalAPI, err)
}
