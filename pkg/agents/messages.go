package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// MessageRole identifies the author of a thread message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// MessageCreateRequest adds a message to a thread.
type MessageCreateRequest struct {
	Role     MessageRole       `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ThreadMessage is one message in a thread. Content is a list of typed
// parts; Text collapses it for the common all-text case.
type ThreadMessage struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	CreatedAt   int64             `json:"created_at"`
	ThreadID    string            `json:"thread_id"`
	Role        MessageRole       `json:"role"`
	Content     []MessageContent  `json:"content"`
	AssistantID string            `json:"assistant_id,omitempty"`
	RunID       string            `json:"run_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MessageContent is one typed part of a message.
type MessageContent struct {
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

// TextContent is the text payload of a message part.
type TextContent struct {
	Value       string            `json:"value"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// Text concatenates the message's text parts.
func (m *ThreadMessage) Text() string {
	var out string
	for _, part := range m.Content {
		if part.Text != nil {
			out += part.Text.Value
		}
	}
	return out
}

// MessageList is a page of thread messages.
type MessageList struct {
	Object  string          `json:"object"`
	Data    []ThreadMessage `json:"data"`
	FirstID string          `json:"first_id,omitempty"`
	LastID  string          `json:"last_id,omitempty"`
	HasMore bool            `json:"has_more"`
}

// CreateMessage adds a message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID string, req MessageCreateRequest) (*ThreadMessage, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	if req.Content == "" {
		return nil, &foundry.ValidationError{Field: "content", Message: "content is required"}
	}
	if req.Role == "" {
		req.Role = MessageRoleUser
	}
	var out ThreadMessage
	path := versioned("/threads/" + url.PathEscape(threadID) + "/messages")
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages lists the messages of a thread.
func (c *Client) ListMessages(ctx context.Context, threadID string) (*MessageList, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	var out MessageList
	path := versioned("/threads/" + url.PathEscape(threadID) + "/messages")
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMessage fetches one message of a thread.
func (c *Client) GetMessage(ctx context.Context, threadID, messageID string) (*ThreadMessage, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	if messageID == "" {
		return nil, &foundry.ValidationError{Field: "message_id", Message: "message id is required"}
	}
	var out ThreadMessage
	path := versioned("/threads/" + url.PathEscape(threadID) + "/messages/" + url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
