package agents

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run has reached a final state and will not
// change again.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCancelled, RunStatusFailed, RunStatusCompleted,
		RunStatusIncomplete, RunStatusExpired:
		return true
	}
	return false
}

// RunCreateRequest starts a run of an agent on a thread. AssistantID is
// required.
type RunCreateRequest struct {
	AssistantID            string            `json:"assistant_id"`
	Instructions           string            `json:"instructions,omitempty"`
	AdditionalInstructions string            `json:"additional_instructions,omitempty"`
	Metadata               map[string]string `json:"metadata,omitempty"`
	Temperature            float32           `json:"temperature,omitempty"`
	TopP                   float32           `json:"top_p,omitempty"`
	MaxPromptTokens        int               `json:"max_prompt_tokens,omitempty"`
	MaxCompletionTokens    int               `json:"max_completion_tokens,omitempty"`
}

// Run is one execution of an agent on a thread.
type Run struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	CreatedAt      int64             `json:"created_at"`
	ThreadID       string            `json:"thread_id"`
	AssistantID    string            `json:"assistant_id"`
	Status         RunStatus         `json:"status"`
	RequiredAction *RequiredAction   `json:"required_action,omitempty"`
	LastError      *RunError         `json:"last_error,omitempty"`
	StartedAt      int64             `json:"started_at,omitempty"`
	ExpiresAt      int64             `json:"expires_at,omitempty"`
	CancelledAt    int64             `json:"cancelled_at,omitempty"`
	FailedAt       int64             `json:"failed_at,omitempty"`
	CompletedAt    int64             `json:"completed_at,omitempty"`
	Model          string            `json:"model,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	Usage          *RunUsage         `json:"usage,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RequiredAction describes what the caller must do to unblock a run.
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the tool calls awaiting results.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is one pending tool invocation.
type ToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Function *FunctionCall `json:"function,omitempty"`
}

// FunctionCall carries a function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// RunError is the failure detail of a run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunUsage reports token consumption of a run.
type RunUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RunList is a page of runs.
type RunList struct {
	Object  string `json:"object"`
	Data    []Run  `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// ThreadAndRunRequest creates a thread and immediately runs an agent on it.
type ThreadAndRunRequest struct {
	AssistantID  string               `json:"assistant_id"`
	Thread       *ThreadCreateRequest `json:"thread,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	Metadata     map[string]string    `json:"metadata,omitempty"`
}

// CreateRun starts a run on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID string, req RunCreateRequest) (*Run, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	if req.AssistantID == "" {
		return nil, &foundry.ValidationError{Field: "assistant_id", Message: "assistant id is required"}
	}
	var out Run
	path := versioned("/threads/" + url.PathEscape(threadID) + "/runs")
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun fetches a run by id.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	if runID == "" {
		return nil, &foundry.ValidationError{Field: "run_id", Message: "run id is required"}
	}
	var out Run
	path := versioned("/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRuns lists the runs of a thread.
func (c *Client) ListRuns(ctx context.Context, threadID string) (*RunList, error) {
	if threadID == "" {
		return nil, &foundry.ValidationError{Field: "thread_id", Message: "thread id is required"}
	}
	var out RunList
	path := versioned("/threads/" + url.PathEscape(threadID) + "/runs")
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateThreadAndRun creates a thread and starts a run on it in one call.
func (c *Client) CreateThreadAndRun(ctx context.Context, req ThreadAndRunRequest) (*Run, error) {
	if req.AssistantID == "" {
		return nil, &foundry.ValidationError{Field: "assistant_id", Message: "assistant id is required"}
	}
	var out Run
	if err := c.do(ctx, http.MethodPost, versioned("/threads/runs"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// defaultPollInterval spaces the status checks of WaitForRun.
const defaultPollInterval = time.Second

// WaitForRun polls a run until it reaches a terminal status or ctx is
// cancelled. An interval of zero uses one second.
func (c *Client) WaitForRun(ctx context.Context, threadID, runID string, interval time.Duration) (*Run, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	for {
		run, err := c.GetRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		if run.Status.Terminal() {
			return run, nil
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
