package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// JSONProvider is one LLM backend capable of structured JSON output. The
// model manager drives providers through this interface so the rerank pass
// never depends on a concrete vendor.
type JSONProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error)
	Ping(ctx context.Context) bool
}

// ProviderResult is the raw text a provider returned and the model that
// produced it.
type ProviderResult struct {
	Text  string
	Model string
}

// GeminiProvider runs generations against the Gemini API.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
	logger       *zap.Logger
}

func NewGeminiProvider(client *genai.Client, defaultModel string, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		client:       client,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	if g.client == nil {
		return ProviderResult{}, fmt.Errorf("gemini client not initialized")
	}

	model := g.defaultModel
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}

	params := presetGeminiParams(preset)
	if opts != nil && opts.JSONMode {
		params.ResponseMimeType = "application/json"
	}

	g.logger.Debug("Generating with Gemini",
		zap.String("model", model),
		zap.String("preset", string(preset)),
	)

	topK := float32(params.TopK)
	config := &genai.GenerateContentConfig{
		Temperature:      &params.Temperature,
		TopP:             &params.TopP,
		TopK:             &topK,
		MaxOutputTokens:  int32(params.MaxOutputTokens),
		ResponseMIMEType: params.ResponseMimeType,
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}, config)
	if err != nil {
		g.logger.Error("Gemini generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	text := geminiResponseText(resp)
	if text == "" {
		return ProviderResult{}, fmt.Errorf("empty response from Gemini")
	}

	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return ProviderResult{Text: text, Model: model}, nil
}

func (g *GeminiProvider) Ping(ctx context.Context) bool {
	if g.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	temp := float32(0)
	topP := float32(1)
	topK := float32(1)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		TopK:            &topK,
		MaxOutputTokens: 10,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.defaultModel, []*genai.Content{
		{Parts: []*genai.Part{{Text: "ping"}}},
	}, config)
	if err != nil {
		g.logger.Debug("Gemini ping failed", zap.Error(err))
		return false
	}

	return geminiResponseText(resp) != ""
}

// openaiModels maps the config-facing model names to SDK constants. Unknown
// names fall back to gpt-4o-mini so a typo in OPENAI_MODEL degrades instead
// of disabling the provider.
var openaiModels = map[string]openai.ChatModel{
	"gpt-5":        openai.ChatModelGPT5,
	"gpt-5-mini":   openai.ChatModelGPT5Mini,
	"gpt-5-nano":   openai.ChatModelGPT5Nano,
	"gpt-4.1":      openai.ChatModelGPT4_1,
	"gpt-4.1-mini": openai.ChatModelGPT4_1Mini,
	"gpt-4.1-nano": openai.ChatModelGPT4_1Nano,
	"gpt-4o":       openai.ChatModelGPT4o,
	"gpt-4o-mini":  openai.ChatModelGPT4oMini,
	"gpt-4-turbo":  openai.ChatModelGPT4Turbo,
}

// reasoningModels reject explicit sampling parameters.
var reasoningModels = map[string]bool{
	"gpt-5":      true,
	"gpt-5-mini": true,
	"gpt-5-nano": true,
}

func lookupOpenAIModel(name string) openai.ChatModel {
	if model, ok := openaiModels[name]; ok {
		return model
	}
	return openai.ChatModelGPT4oMini
}

// OpenAIProvider runs chat completions against the OpenAI API. It is the
// fallback behind Gemini, or the primary when only OPENAI_API_KEY is set.
type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
	logger       *zap.Logger
}

// NewOpenAIProvider returns nil when no API key is configured.
func NewOpenAIProvider(apiKey string, defaultModel string, logger *zap.Logger) *OpenAIProvider {
	if apiKey == "" {
		return nil
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:       &client,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, preset ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, fmt.Errorf("openai client not initialized")
	}

	modelName := o.defaultModel
	if opts != nil && opts.Model != "" {
		modelName = opts.Model
	}

	params := presetOpenAIParams(preset)

	o.logger.Debug("Generating with OpenAI",
		zap.String("model", modelName),
		zap.String("preset", string(preset)),
	)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}
	if opts != nil && opts.JSONMode {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You must respond with valid JSON only. Do not include any text outside the JSON value."),
			openai.UserMessage(prompt),
		}
	}

	req := openai.ChatCompletionNewParams{
		Model:               lookupOpenAIModel(modelName),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(params.MaxTokens)),
	}
	if !reasoningModels[modelName] {
		req.Temperature = openai.Float(float64(params.Temperature))
		req.TopP = openai.Float(float64(params.TopP))
	}

	resp, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		o.logger.Error("OpenAI generation failed", zap.Error(err))
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 {
		return ProviderResult{}, fmt.Errorf("no choices in OpenAI response")
	}

	text := resp.Choices[0].Message.Content

	o.logger.Debug("OpenAI response received",
		zap.Int("length", len(text)),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)

	return ProviderResult{Text: text, Model: modelName}, nil
}

func (o *OpenAIProvider) Ping(ctx context.Context) bool {
	if o.client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: lookupOpenAIModel(o.defaultModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		o.logger.Debug("OpenAI ping failed", zap.Error(err))
		return false
	}

	return len(resp.Choices) > 0
}

func geminiResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
