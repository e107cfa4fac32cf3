package llm

import "context"

// Provider generates a completion for a prompt against one LLM backend.
type Provider interface {
	GetModel() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Message is one turn of a chat-style completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var SupportedProviders = []string{"ollama", "openai"}
