package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openaiProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func newOpenAIProvider(cfg Config) (*openaiProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigError{Provider: "openai", Field: "api_key", Reason: "missing"}
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))

	return &openaiProvider{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Invoke(ctx context.Context, system, user string) (string, error) {
	input := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(system, responses.EasyInputMessageRoleSystem),
		responses.ResponseInputItemParamOfMessage(user, responses.EasyInputMessageRoleUser),
	}

	result, err := p.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		MaxOutputTokens: openai.Int(int64(p.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("openai invoke: %w", err)
	}

	return result.OutputText(), nil
}
