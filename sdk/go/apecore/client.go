// Package apecore provides a small Go client for the APE-Core REST API.
package apecore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the APE-Core REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// StepSpec mirrors a single workflow step accepted by the server.
type StepSpec struct {
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
	OutputKey  string         `json:"output_key,omitempty"`
	OnFailure  string         `json:"on_failure,omitempty"`
}

// Workflow describes a registered workflow definition.
type Workflow struct {
	ID       string         `json:"id"`
	Steps    []StepSpec     `json:"steps"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Step    int    `json:"step"`
	Agent   string `json:"agent"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecutionResult is the aggregate outcome of a workflow run.
type ExecutionResult struct {
	Success     bool           `json:"success"`
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Error       string         `json:"error,omitempty"`
	Results     []StepResult   `json:"results"`
	Context     map[string]any `json:"context"`
}

// PlanResult describes a workflow produced by the planner.
type PlanResult struct {
	WorkflowID string     `json:"workflow_id"`
	Steps      []StepSpec `json:"steps"`
	Query      string     `json:"query"`
}

// AgentResponse is the raw response of a direct agent invocation.
type AgentResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("apecore api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the APE-Core API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// RegisterWorkflow registers or replaces a workflow definition.
func (c *Client) RegisterWorkflow(ctx context.Context, wf Workflow) error {
	return c.post(ctx, "/api/v1/workflows", wf, nil)
}

// ListWorkflows returns the identifiers of all registered workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]string, error) {
	var payload struct {
		Workflows []string `json:"workflows"`
	}
	if err := c.get(ctx, "/api/v1/workflows", &payload); err != nil {
		return nil, err
	}
	return payload.Workflows, nil
}

// GetWorkflow fetches a workflow definition by identifier.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var wf Workflow
	if err := c.get(ctx, "/api/v1/workflows/"+url.PathEscape(id), &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// DeleteWorkflow removes a workflow definition.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/workflows/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ExecuteWorkflow runs a registered workflow and returns the structured result.
func (c *Client) ExecuteWorkflow(ctx context.Context, workflowID string, input, execCtx map[string]any) (*ExecutionResult, error) {
	payload := map[string]any{
		"workflow_id": workflowID,
		"input":       input,
		"context":     execCtx,
	}
	var result ExecutionResult
	if err := c.post(ctx, "/api/v1/workflows/execute", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PlanWorkflow asks the server to plan and register a workflow from a
// natural-language query. The agents slice limits the planner's choices.
func (c *Client) PlanWorkflow(ctx context.Context, query string, agents []string) (*PlanResult, error) {
	payload := map[string]any{"query": query, "agents": agents}
	var plan PlanResult
	if err := c.post(ctx, "/api/v1/workflows/plan", payload, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListAgents returns the names of all registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]string, error) {
	var payload struct {
		Agents []string `json:"agents"`
	}
	if err := c.get(ctx, "/api/v1/agents", &payload); err != nil {
		return nil, err
	}
	return payload.Agents, nil
}

// ExecuteAgent invokes a single agent directly, bypassing workflows.
func (c *Client) ExecuteAgent(ctx context.Context, agent, action string, params map[string]any) (*AgentResponse, error) {
	payload := map[string]any{"agent": agent, "action": action, "params": params}
	var resp AgentResponse
	if err := c.post(ctx, "/api/v1/agents/execute", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(data) > 0 {
			if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
				apiErr.Message = string(bytes.TrimSpace(data))
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
