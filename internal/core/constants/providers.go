package constants

const (
	ProviderTypeOllama       = "ollama"
	ProviderTypeOpenAICompat = "openai"
	ProviderTypeLMStudio     = "lm-studio"
	ProviderTypeVLLM         = "vllm"
	ProviderTypeAuto         = "auto"

	// Provider display names, these end up in error bodies so keep them short
	ProviderDisplayOllama   = "Ollama"
	ProviderDisplayOpenAI   = "OpenAI"
	ProviderDisplayLMStudio = "LM Studio"
	ProviderDisplayVLLM     = "vLLM"

	// Well known local ports, in auto-detect priority order
	DefaultOllamaPort   = 11434
	DefaultLMStudioPort = 1234
	DefaultVLLMPort     = 8000

	DefaultBackendHost = "localhost"
	DefaultBackendURL  = "http://localhost:11434"

	// Common provider prefixes
	ProviderPrefixOpenAI1   = "openai"
	ProviderPrefixOpenAI2   = "openai-compatible"
	ProviderPrefixOpenAI3   = "openai_compat"
	ProviderPrefixLMStudio1 = "lmstudio"
	ProviderPrefixLMStudio2 = "lm-studio"
	ProviderPrefixLMStudio3 = "lm_studio"
)
