package ai

// ModelPreset selects a sampling profile for one generation call. The
// rerank pass always runs precise; balanced exists for ad-hoc use.
type ModelPreset string

const (
	PresetPrecise  ModelPreset = "precise"
	PresetBalanced ModelPreset = "balanced"
)

// geminiParams are the sampling parameters sent with a Gemini request.
type geminiParams struct {
	Temperature      float32
	TopP             float32
	TopK             int
	MaxOutputTokens  int
	ResponseMimeType string
}

// openaiParams are the sampling parameters sent with an OpenAI request.
type openaiParams struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// GenerateOptions narrows a single call: force a specific model, or request
// JSON output. The zero value means provider defaults and plain text.
type GenerateOptions struct {
	Model    string
	JSONMode bool
}

// GenerateMetadata reports which provider and model actually served a call.
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
}

// The precise budget covers a full batched rerank response with headroom.
func presetGeminiParams(preset ModelPreset) geminiParams {
	switch preset {
	case PresetPrecise:
		return geminiParams{Temperature: 0.1, TopP: 0.9, TopK: 20, MaxOutputTokens: 1024}
	default:
		return geminiParams{Temperature: 0.3, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048}
	}
}

func presetOpenAIParams(preset ModelPreset) openaiParams {
	switch preset {
	case PresetPrecise:
		return openaiParams{Temperature: 0.1, TopP: 0.9, MaxTokens: 1024}
	default:
		return openaiParams{Temperature: 0.3, TopP: 0.95, MaxTokens: 2048}
	}
}
