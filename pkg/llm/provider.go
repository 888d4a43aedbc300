package llm

import "strings"

// InferProvider names the model vendor from the model name, falling back to the provider URL.
func InferProvider(model, providerURL string) string {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"), strings.HasPrefix(model, "chatgpt"):
		return "openai"
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gemini"):
		return "google"
	case strings.HasPrefix(model, "mistral"), strings.HasPrefix(model, "mixtral"):
		return "mistral"
	case strings.HasPrefix(model, "llama"), strings.HasPrefix(model, "meta-llama"):
		return "meta"
	case strings.HasPrefix(model, "deepseek"):
		return "deepseek"
	case strings.HasPrefix(model, "qwen"):
		return "alibaba"
	case strings.Contains(providerURL, "openai.com"):
		return "openai"
	case strings.Contains(providerURL, "openrouter.ai"):
		return "openrouter"
	case strings.Contains(providerURL, "groq.com"):
		return "groq"
	case strings.Contains(providerURL, "localhost"), strings.Contains(providerURL, "127.0.0.1"):
		return "local"
	default:
		return "unknown"
	}
}
