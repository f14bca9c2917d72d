package constants

const (
	DefaultStatusPath   = "/"
	DefaultGeneratePath = "/api/generate"
	DefaultChatPath     = "/api/chat"

	// Ollama native API paths
	PathOllamaGenerate = "/api/generate"
	PathOllamaChat     = "/api/chat"

	// OpenAI-compatible API paths
	PathV1ChatCompletions = "/v1/chat/completions"
	PathV1Completions     = "/v1/completions"
)
