// Package openai implements the provider adapter for the OpenAI API,
// preferring the Batch API and downgrading to per-item chat completions
// when any batch step fails.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"github.com/gamelens/gamelens/internal/provider"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/idgen"
	"github.com/gamelens/gamelens/pkg/logger"
)

// ProviderName is the identifier for the OpenAI provider
const ProviderName = "openai"

const (
	defaultPollTimeout  = 10 * time.Minute
	defaultPollInterval = 3 * time.Second
)

func init() {
	provider.Register(ProviderName, New)
}

// Provider implements provider.Provider against the OpenAI API.
type Provider struct {
	client       openai.Client
	pollTimeout  time.Duration
	pollInterval time.Duration
}

// New creates an OpenAI provider from the given configuration.
func New(config *provider.Config) (provider.Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, errors.New(errors.ErrCodeCredentialAbsent, "openai api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		client:       openai.NewClient(opts...),
		pollTimeout:  defaultPollTimeout,
		pollInterval: defaultPollInterval,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// chatParams builds the chat-completions parameters for one fully composed prompt.
func chatParams(fullPrompt, model string, reasoning *provider.Reasoning) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fullPrompt),
		},
	}
	if reasoning != nil && reasoning.Effort != "" {
		params.ReasoningEffort = openai.ReasoningEffort(reasoning.Effort)
	}
	return params
}

// AnalyzeSingle sends one chat completion and returns the raw response JSON.
func (p *Provider) AnalyzeSingle(ctx context.Context, fullPrompt, model string, reasoning *provider.Reasoning) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, chatParams(fullPrompt, model, reasoning))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeProviderRequest, "chat completion failed", err)
	}
	return completion.RawJSON(), nil
}

// batchLine is one JSONL request line for the Batch API.
type batchLine struct {
	CustomID string          `json:"custom_id"`
	Method   string          `json:"method"`
	URL      string          `json:"url"`
	Body     json.RawMessage `json:"body"`
}

// chatBody is the per-line chat-completions request body.
type chatBody struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnalyzeBatch runs the batch state machine: build JSONL, upload, create
// batch, poll, download. Any step failure downgrades to per-item calls so a
// broken batch path never fails the job outright.
func (p *Provider) AnalyzeBatch(ctx context.Context, req provider.BatchRequest, progress provider.ProgressFunc) ([]string, error) {
	jsonl, customIDs, err := p.buildJSONL(req)
	if err != nil {
		return nil, err
	}

	outputs, batchErr := p.runBatch(ctx, req, jsonl)
	if batchErr != nil {
		logger.Warn("Batch path failed, falling back to per-item requests", zap.Error(batchErr))
		return p.fallbackSingles(ctx, req, progress)
	}

	// Align output lines to inputs by custom_id; gaps are filled per item.
	results := make([]string, len(req.Inputs))
	missing := 0
	for i, customID := range customIDs {
		if raw, ok := outputs[customID]; ok {
			results[i] = raw
			continue
		}
		missing++
		raw, err := p.AnalyzeSingle(ctx, provider.BuildFullPrompt(req.Prompt, req.Inputs[i]), req.Model, req.Reasoning)
		if err != nil {
			return nil, err
		}
		results[i] = raw
	}
	if missing > 0 {
		logger.Warn("Batch output was missing lines", zap.Int("missing", missing))
	}

	if progress != nil {
		progress(len(req.Inputs), len(req.Inputs))
	}
	return results, nil
}

// buildJSONL renders the request lines and their custom ids.
func (p *Provider) buildJSONL(req provider.BatchRequest) ([]byte, []string, error) {
	runID := idgen.NewBatchRunID()
	customIDs := make([]string, len(req.Inputs))

	var buf bytes.Buffer
	for i, input := range req.Inputs {
		body := chatBody{
			Model: req.Model,
			Messages: []chatMessage{
				{Role: "user", Content: provider.BuildFullPrompt(req.Prompt, input)},
			},
		}
		if req.Reasoning != nil {
			body.ReasoningEffort = req.Reasoning.Effort
		}
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to encode batch line", err)
		}

		customIDs[i] = fmt.Sprintf("%s-%d", runID, i)
		line, err := json.Marshal(batchLine{
			CustomID: customIDs[i],
			Method:   "POST",
			URL:      "/v1/chat/completions",
			Body:     bodyJSON,
		})
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to encode batch line", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), customIDs, nil
}

// runBatch drives upload -> create -> poll -> download and returns the output
// lines keyed by custom_id.
func (p *Provider) runBatch(ctx context.Context, req provider.BatchRequest, jsonl []byte) (map[string]string, error) {
	file, err := p.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(bytes.NewReader(jsonl), "requests.jsonl", "application/jsonl"),
		Purpose: openai.FilePurposeBatch,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to upload batch file", err)
	}

	window := openai.BatchNewParamsCompletionWindow24h
	if req.CompletionWindow != "" {
		window = openai.BatchNewParamsCompletionWindow(req.CompletionWindow)
	}
	batch, err := p.client.Batches.New(ctx, openai.BatchNewParams{
		InputFileID:      file.ID,
		Endpoint:         openai.BatchNewParamsEndpointV1ChatCompletions,
		CompletionWindow: window,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to create batch", err)
	}

	batch, err = p.pollBatch(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	if batch.Status != openai.BatchStatusCompleted {
		return nil, errors.New(errors.ErrCodeProviderBatch,
			fmt.Sprintf("batch ended in status '%s'", batch.Status))
	}
	if batch.OutputFileID == "" {
		return nil, errors.New(errors.ErrCodeProviderBatch, "completed batch has no output file")
	}

	res, err := p.client.Files.Content(ctx, batch.OutputFileID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to download batch output", err)
	}
	defer res.Body.Close()

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to read batch output", err)
	}
	return parseOutputLines(content), nil
}

// pollBatch polls until the batch reaches a terminal status or the deadline passes.
func (p *Provider) pollBatch(ctx context.Context, batchID string) (*openai.Batch, error) {
	deadline := time.Now().Add(p.pollTimeout)
	for {
		if time.Now().After(deadline) {
			return nil, errors.New(errors.ErrCodeProviderTimeout, "batch polling deadline exceeded")
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeProviderTimeout, "batch polling cancelled", ctx.Err())
		case <-time.After(p.pollInterval):
		}

		batch, err := p.client.Batches.Get(ctx, batchID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeProviderBatch, "failed to poll batch status", err)
		}
		switch batch.Status {
		case openai.BatchStatusCompleted, openai.BatchStatusFailed,
			openai.BatchStatusCancelled, openai.BatchStatusExpired:
			return batch, nil
		}
	}
}

// parseOutputLines indexes the downloaded JSONL by custom_id. Lines that do
// not parse are skipped; the caller fills the gaps per item.
func parseOutputLines(content []byte) map[string]string {
	outputs := make(map[string]string)
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var envelope struct {
			CustomID string `json:"custom_id"`
		}
		if err := json.Unmarshal([]byte(line), &envelope); err != nil || envelope.CustomID == "" {
			continue
		}
		outputs[envelope.CustomID] = line
	}
	return outputs
}

// fallbackSingles processes every input with per-item requests.
func (p *Provider) fallbackSingles(ctx context.Context, req provider.BatchRequest, progress provider.ProgressFunc) ([]string, error) {
	results := make([]string, len(req.Inputs))
	for i, input := range req.Inputs {
		raw, err := p.AnalyzeSingle(ctx, provider.BuildFullPrompt(req.Prompt, input), req.Model, req.Reasoning)
		if err != nil {
			return nil, err
		}
		results[i] = raw
		if progress != nil {
			progress(i+1, len(req.Inputs))
		}
	}
	return results, nil
}
