// Package provider defines the LLM provider adapter contract and a factory
// registry. Concrete adapters live in subpackages and register themselves
// at init time.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/gamelens/gamelens/pkg/errors"
)

// Reasoning carries optional reasoning controls for models that support them.
type Reasoning struct {
	// Effort is one of low, medium, high
	Effort string `json:"effort"`
}

// ProgressFunc reports batch progress as (completed, total).
type ProgressFunc func(completed, total int)

// BatchRequest describes one batch dispatch.
type BatchRequest struct {
	// Inputs are the per-review texts; one response is returned per input
	Inputs []string

	// Prompt is the shared instruction prepended to every input
	Prompt string

	Model     string
	Reasoning *Reasoning

	// CompletionWindow is the batch completion window, e.g. "24h"
	CompletionWindow string
}

// Provider is the adapter contract for one LLM vendor.
// Responses are returned as raw serialized payloads; the response mapper
// extracts canonical fields downstream.
type Provider interface {
	// Name returns the provider identifier, e.g. "openai"
	Name() string

	// AnalyzeSingle sends one fully composed prompt and returns the raw response.
	AnalyzeSingle(ctx context.Context, fullPrompt, model string, reasoning *Reasoning) (string, error)

	// AnalyzeBatch processes all inputs and returns raw responses aligned by
	// index with req.Inputs. Adapters may downgrade to per-item calls when the
	// batch path fails; progress may be invoked as items complete.
	AnalyzeBatch(ctx context.Context, req BatchRequest, progress ProgressFunc) ([]string, error)
}

// Config holds adapter construction parameters.
type Config struct {
	// Name is the provider identifier
	Name string

	// APIKey is the plaintext credential, resolved from the vault at dispatch time
	APIKey string

	// BaseURL overrides the vendor endpoint; empty means the vendor default
	BaseURL string
}

// Factory is a function that creates a Provider instance
type Factory func(config *Config) (Provider, error)

// registry holds registered provider factories
var (
	registry     = make(map[string]Factory)
	registryLock sync.RWMutex
)

// Register registers a provider factory with the given name
func Register(name string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = factory
}

// Create creates a provider by name using the registered factory
func Create(name string, config *Config) (Provider, error) {
	registryLock.RLock()
	factory, ok := registry[name]
	registryLock.RUnlock()

	if !ok {
		return nil, errors.New(errors.ErrCodeProviderNotFound,
			fmt.Sprintf("provider '%s' not registered", name))
	}

	if config == nil {
		config = &Config{Name: name}
	} else if config.Name == "" {
		config.Name = name
	}
	return factory(config)
}

// List returns all registered provider names
func List() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a provider is registered
func IsRegistered(name string) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()
	_, ok := registry[name]
	return ok
}

// Unregister removes a provider factory (mainly for testing)
func Unregister(name string) {
	registryLock.Lock()
	defer registryLock.Unlock()
	delete(registry, name)
}

// BuildFullPrompt composes the per-item prompt sent to a provider.
func BuildFullPrompt(prompt, reviewText string) string {
	return prompt + "\n\nReview:\n" + reviewText
}
