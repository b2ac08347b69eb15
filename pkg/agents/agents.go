// Package agents provides the agent service API: agents, threads,
// messages, and runs. All operations go through the core transport client;
// the service addresses this API with a fixed api-version=v1 query.
package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/foundrylabs/foundry-go/pkg/foundry"
)

// apiVersionQuery is appended to every agent service path. The agent
// service versions independently of the rest of the API surface.
const apiVersionQuery = "api-version=v1"

// Client exposes the agent service API.
type Client struct {
	core *foundry.Client
}

// NewClient wraps a transport client.
func NewClient(core *foundry.Client) *Client {
	return &Client{core: core}
}

func versioned(path string) string {
	return path + "?" + apiVersionQuery
}

// Tool declares a capability available to an agent.
type Tool struct {
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

// CodeInterpreterTool enables the hosted code interpreter.
func CodeInterpreterTool() Tool {
	return Tool{Type: "code_interpreter"}
}

// FileSearchTool enables hosted file search.
func FileSearchTool() Tool {
	return Tool{Type: "file_search"}
}

// FunctionTool declares a caller-implemented function.
func FunctionTool(def FunctionDefinition) Tool {
	return Tool{Type: "function", Function: &def}
}

// FunctionDefinition describes a callable function and its JSON-schema
// parameters.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// AgentCreateRequest configures a new agent. Model is required.
type AgentCreateRequest struct {
	Model        string            `json:"model"`
	Name         string            `json:"name,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Description  string            `json:"description,omitempty"`
	Tools        []Tool            `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Temperature  float32           `json:"temperature,omitempty"`
	TopP         float32           `json:"top_p,omitempty"`
}

// Agent is a configured assistant.
type Agent struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	CreatedAt    int64             `json:"created_at"`
	Model        string            `json:"model"`
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Tools        []Tool            `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Temperature  float32           `json:"temperature,omitempty"`
	TopP         float32           `json:"top_p,omitempty"`
}

// AgentList is a page of agents.
type AgentList struct {
	Object  string  `json:"object"`
	Data    []Agent `json:"data"`
	FirstID string  `json:"first_id,omitempty"`
	LastID  string  `json:"last_id,omitempty"`
	HasMore bool    `json:"has_more"`
}

// DeletionResponse confirms a delete operation.
type DeletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// CreateAgent creates an agent.
func (c *Client) CreateAgent(ctx context.Context, req AgentCreateRequest) (*Agent, error) {
	if req.Model == "" {
		return nil, &foundry.ValidationError{Field: "model", Message: "model is required"}
	}
	var out Agent
	if err := c.do(ctx, http.MethodPost, versioned("/assistants"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAgent fetches an agent by id.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	if agentID == "" {
		return nil, &foundry.ValidationError{Field: "agent_id", Message: "agent id is required"}
	}
	var out Agent
	if err := c.do(ctx, http.MethodGet, versioned("/assistants/"+url.PathEscape(agentID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAgents lists agents.
func (c *Client) ListAgents(ctx context.Context) (*AgentList, error) {
	var out AgentList
	if err := c.do(ctx, http.MethodGet, versioned("/assistants"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAgent deletes an agent by id.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) (*DeletionResponse, error) {
	if agentID == "" {
		return nil, &foundry.ValidationError{Field: "agent_id", Message: "agent id is required"}
	}
	var out DeletionResponse
	if err := c.do(ctx, http.MethodDelete, versioned("/assistants/"+url.PathEscape(agentID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one agent service call and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.core.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return foundry.DecodeResponse(resp, out)
}
