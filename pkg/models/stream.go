package models

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// ChatCompletionChunk is one streamed increment of a chat completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice carries the delta for one choice.
type ChunkChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta is the incremental portion of a streamed message.
type Delta struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChatStream iterates streamed chat completion chunks. It is forward-only
// and not restartable; callers that stop early must call Close.
type ChatStream struct {
	stream *foundry.EventStream
}

// ChatCompletionsStream sends a chat completion request in streaming mode.
// Retries apply only until response headers arrive.
func (c *Client) ChatCompletionsStream(ctx context.Context, req ChatCompletionRequest) (*ChatStream, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	req.Stream = true

	stream, err := c.core.DoStream(ctx, chatCompletionsPath, req)
	if err != nil {
		return nil, err
	}
	return &ChatStream{stream: stream}, nil
}

// Next returns the next chunk. It returns io.EOF when the stream ends. A
// *foundry.DecodeError covers a single malformed event; calling Next again
// continues with the next one.
func (s *ChatStream) Next() (*ChatCompletionChunk, error) {
	event, ok := <-s.stream.Events()
	if !ok {
		return nil, io.EOF
	}
	if event.Err != nil {
		return nil, event.Err
	}
	var chunk ChatCompletionChunk
	if err := json.Unmarshal(event.Data, &chunk); err != nil {
		return nil, &foundry.DecodeError{
			Snippet: foundry.Sanitize(string(event.Data)),
			Cause:   err,
		}
	}
	return &chunk, nil
}

// Close releases the underlying connection.
func (s *ChatStream) Close() error {
	return s.stream.Close()
}

// CollectContent drains the stream and concatenates every content delta of
// the first choice. Malformed events are skipped; any terminal error is
// returned along with the content assembled so far.
func (s *ChatStream) CollectContent() (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			var decodeErr *foundry.DecodeError
			if errors.As(err, &decodeErr) {
				continue
			}
			return sb.String(), err
		}
		for _, choice := range chunk.Choices {
			if choice.Index == 0 {
				sb.WriteString(choice.Delta.Content)
			}
		}
	}
}
