// Package translate turns text into translated text through a pluggable
// provider, splitting text that is too large for one request.
package translate

import (
	"context"
	"errors"

	"github.com/platinummonkey/folio/internal/chunker"
)

var (
	// ErrUnsupportedProvider is returned for an unknown provider tag
	ErrUnsupportedProvider = errors.New("unsupported translation provider")

	// ErrEmptyText is returned when there is nothing to translate
	ErrEmptyText = errors.New("text is empty")

	// ErrProviderUnavailable wraps failures to reach the provider at all
	ErrProviderUnavailable = errors.New("translation provider unavailable")
)

// ProviderType is the tag selecting a translation back-end
type ProviderType string

const (
	// ProviderLlama is a local model served by Ollama
	ProviderLlama ProviderType = "llama"

	// ProviderBaidu is the Baidu general translation API
	ProviderBaidu ProviderType = "baidu"

	// ProviderOpenAI is the OpenAI chat completions API
	ProviderOpenAI ProviderType = "openai"

	// ProviderAnthropic is the Anthropic messages API
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderGoogle is the Google Gemini API
	ProviderGoogle ProviderType = "google"
)

// ProviderTypes lists every supported provider tag
func ProviderTypes() []ProviderType {
	return []ProviderType{ProviderLlama, ProviderBaidu, ProviderOpenAI, ProviderAnthropic, ProviderGoogle}
}

// Request is a single translation unit
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Response is a provider's answer to a Request
type Response struct {
	Text string

	// DetectedLang is the source language reported by the provider, if any
	DetectedLang string
}

// Provider translates one unit of text per call. Calls are never made
// concurrently by this package.
type Provider interface {
	// Translate translates a single request
	Translate(ctx context.Context, req Request) (*Response, error)

	// Capacity describes how much text a single request may carry
	Capacity() chunker.Capacity

	// Name returns the provider tag
	Name() string
}

// Preparer is implemented by providers that must acquire a resource before
// translating. It is called once before a chunked translation starts.
type Preparer interface {
	Prepare(ctx context.Context) error
}
