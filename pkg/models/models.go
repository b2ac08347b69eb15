// Package models provides chat completion and embedding operations on top
// of the core transport client.
package models

import (
	"context"
	"net/http"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

const (
	chatCompletionsPath = "/openai/v1/chat/completions"
	embeddingsPath      = "/openai/v1/embeddings"
)

// Client exposes the model inference API.
type Client struct {
	core *foundry.Client
}

// NewClient wraps a transport client.
func NewClient(core *foundry.Client) *Client {
	return &Client{core: core}
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatCompletionRequest is the body of a chat completion call. Model and
// Messages are required; zero-valued optional fields are omitted from the
// wire request.
type ChatCompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float32   `json:"temperature,omitempty"`
	TopP             float32   `json:"top_p,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	Stop             []string  `json:"stop,omitempty"`
	PresencePenalty  float32   `json:"presence_penalty,omitempty"`
	FrequencyPenalty float32   `json:"frequency_penalty,omitempty"`

	// Stream is managed by ChatCompletions and ChatCompletionsStream.
	Stream bool `json:"stream,omitempty"`
}

func (r *ChatCompletionRequest) validate() error {
	if r.Model == "" {
		return &foundry.ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Messages) == 0 {
		return &foundry.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	return nil
}

// ChatCompletionResponse is a complete, non-streamed chat result.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one generated completion.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage reports token consumption for a call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletions sends a chat completion request and decodes the full
// response.
func (c *Client) ChatCompletions(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.Stream = false

	resp, err := c.core.Do(ctx, http.MethodPost, chatCompletionsPath, req)
	if err != nil {
		return nil, err
	}
	var out ChatCompletionResponse
	if err := foundry.DecodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmbeddingRequest is the body of an embeddings call.
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	User           string   `json:"user,omitempty"`
}

// EmbeddingResponse holds one vector per input, in input order.
type EmbeddingResponse struct {
	Object string         `json:"object"`
	Model  string         `json:"model"`
	Data   []Embedding    `json:"data"`
	Usage  EmbeddingUsage `json:"usage"`
}

// Embedding is one input's vector.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// EmbeddingUsage reports token consumption for an embeddings call.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Embeddings computes embedding vectors for the given inputs.
func (c *Client) Embeddings(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	if req.Model == "" {
		return nil, &foundry.ValidationError{Field: "model", Message: "model is required"}
	}
	if len(req.Input) == 0 {
		return nil, &foundry.ValidationError{Field: "input", Message: "at least one input is required"}
	}

	resp, err := c.core.Do(ctx, http.MethodPost, embeddingsPath, req)
	if err != nil {
		return nil, err
	}
	var out EmbeddingResponse
	if err := foundry.DecodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
