package agents

import (
	"context"
	"net/http"
	"net/url"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// ThreadCreateRequest configures a new conversation thread. The zero value
// creates an empty thread.
type ThreadCreateRequest struct {
	Messages []InitialMessage  `json:"messages,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InitialMessage seeds a thread with a message at creation time.
type InitialMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Thread is a conversation container.
type Thread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CreateThread creates a thread.
func (c *Client) CreateThread(ctx context.Context, req ThreadCreateRequest) (*Thread, error) {
	var out Thread
	if err := c.do(ctx, http.MethodPost, versioned("/threads"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetThread fetches a thread by id.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	var out Thread
	if err := c.do(ctx, http.MethodGet, versioned("/threads/"+url.PathEscape(threadID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteThread deletes a thread by id.
func (c *Client) DeleteThread(ctx context.Context, threadID string) (*DeletionResponse, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	var out DeletionResponse
	if err := c.do(ctx, http.MethodDelete, versioned("/threads/"+url.PathEscape(threadID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
