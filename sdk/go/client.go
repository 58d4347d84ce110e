// Package ventureossdk is a small client for the Venture OS agent bridge.
// It talks to the /sync endpoints with an agent key and mirrors the wire
// types, so it can be vendored into an agent without pulling in the server.
package ventureossdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL  string
	agentKey string
	http     *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client. baseURL includes the API prefix, e.g.
// "http://127.0.0.1:8080/v0". agentKey is the plaintext key minted by
// `vos agent-key create` (or the shared env secret).
func New(baseURL, agentKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		agentKey: agentKey,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is the server's error envelope.
type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type Snapshot struct {
	Clients       []ClientRecord `json:"clients"`
	Opportunities []Opportunity  `json:"opportunities"`
	Contracts     []Contract     `json:"contracts"`
	Projects      []Project      `json:"projects"`
	Tasks         []Task         `json:"tasks"`
	Deployments   []Deployment   `json:"deployments"`
	SystemConfig  []SystemConfig `json:"system_config"`
}

// ClientRecord is a CRM client (the consultancy's customer), named to
// avoid clashing with the HTTP Client.
type ClientRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	HealthScore int    `json:"health_score"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Opportunity struct {
	ID             string  `json:"id"`
	ClientID       *string `json:"client_id,omitempty"`
	Title          string  `json:"title"`
	Stage          string  `json:"stage"`
	EstimatedValue float64 `json:"estimated_value"`
	Probability    int     `json:"probability"`
	WonAt          *string `json:"won_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type Contract struct {
	ID           string  `json:"id"`
	ClientID     *string `json:"client_id,omitempty"`
	PriceOfferID *string `json:"price_offer_id,omitempty"`
	Title        string  `json:"title"`
	Status       string  `json:"status"`
	TotalValue   float64 `json:"total_value"`
	StartDate    *string `json:"start_date,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
}

type Project struct {
	ID        string  `json:"id"`
	ClientID  *string `json:"client_id,omitempty"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Progress  int     `json:"progress"`
	IsFrozen  bool    `json:"is_frozen"`
	UpdatedAt string  `json:"updated_at"`
}

type Task struct {
	ID              string    `json:"id"`
	ProjectID       *string   `json:"project_id,omitempty"`
	SprintID        *string   `json:"sprint_id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	DueDate         *string   `json:"due_date,omitempty"`
	IsCurrent       bool      `json:"is_current"`
	Subtasks        []Subtask `json:"subtasks"`
	SubtaskProgress int       `json:"subtask_progress"`
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Deployment struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Name        string  `json:"name"`
	Environment string  `json:"environment"`
	Status      string  `json:"status"`
	URL         string  `json:"url,omitempty"`
	DeployedAt  *string `json:"deployed_at,omitempty"`
}

type SystemConfig struct {
	Key       string `json:"key"`
	ValueJSON string `json:"value_json"`
	UpdatedAt string `json:"updated_at"`
}

// Batch is a sparse push. Only populated keys are sent and processed.
type Batch struct {
	AuditLogs          []AuditLogEntry     `json:"audit_logs,omitempty"`
	ProjectUpdates     []ProjectUpdate     `json:"project_updates,omitempty"`
	TaskUpdates        []TaskUpdate        `json:"task_updates,omitempty"`
	ClientHealth       []ClientHealth      `json:"client_health,omitempty"`
	AgentReports       []AgentReport       `json:"agent_reports,omitempty"`
	DeploymentStatus   []StatusUpdate      `json:"deployment_status,omitempty"`
	OpportunityUpdates []OpportunityUpdate `json:"opportunity_updates,omitempty"`
	OfferUpdates       []StatusUpdate      `json:"offer_updates,omitempty"`
	ContractUpdates    []StatusUpdate      `json:"contract_updates,omitempty"`
}

type AuditLogEntry struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Action     string `json:"action"`
	Severity   string `json:"severity,omitempty"`
	Message    string `json:"message,omitempty"`
}

type ProjectUpdate struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Status   *string `json:"status,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	IsFrozen *bool   `json:"is_frozen,omitempty"`
}

type TaskUpdate struct {
	ID           string  `json:"id"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	AgentContext *string `json:"agent_context,omitempty"`
}

type ClientHealth struct {
	ID          string `json:"id"`
	HealthScore int    `json:"health_score"`
}

type AgentReport struct {
	ClientID string `json:"client_id,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Severity string `json:"severity,omitempty"`
}

type StatusUpdate struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type OpportunityUpdate struct {
	ID          string   `json:"id"`
	Stage       *string  `json:"stage,omitempty"`
	Probability *int     `json:"probability,omitempty"`
	Value       *float64 `json:"estimated_value,omitempty"`
}

type ItemResult struct {
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type InsertResult struct {
	Inserted int          `json:"inserted"`
	Errors   []ItemResult `json:"errors,omitempty"`
}

type Results struct {
	AuditLogs          *InsertResult `json:"audit_logs,omitempty"`
	ProjectUpdates     []ItemResult  `json:"project_updates,omitempty"`
	TaskUpdates        []ItemResult  `json:"task_updates,omitempty"`
	ClientHealth       []ItemResult  `json:"client_health,omitempty"`
	AgentReports       *InsertResult `json:"agent_reports,omitempty"`
	DeploymentStatus   []ItemResult  `json:"deployment_status,omitempty"`
	OpportunityUpdates []ItemResult  `json:"opportunity_updates,omitempty"`
	OfferUpdates       []ItemResult  `json:"offer_updates,omitempty"`
	ContractUpdates    []ItemResult  `json:"contract_updates,omitempty"`
}

type PushResponse struct {
	Message string  `json:"message"`
	Results Results `json:"results"`
}

type Recommendation struct {
	Project *Project `json:"project,omitempty"`
	Score   float64  `json:"score"`
	Reason  string   `json:"reason"`
}

// Pull fetches the full state snapshot.
func (c *Client) Pull(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, http.MethodGet, "/sync", nil, &snap)
	return snap, err
}

// Push sends a batch of mutations. A non-nil error means the request
// itself failed; per-item failures come back in Results.
func (c *Client) Push(ctx context.Context, batch Batch) (PushResponse, error) {
	var out PushResponse
	err := c.do(ctx, http.MethodPost, "/sync", batch, &out)
	return out, err
}

// Recommend asks the server what to work on next.
func (c *Client) Recommend(ctx context.Context) (Recommendation, error) {
	var rec Recommendation
	err := c.do(ctx, http.MethodGet, "/recommendation", nil, &rec)
	return rec, err
}

// Report files a single agent report.
func (c *Client) Report(ctx context.Context, rep AgentReport) error {
	return c.do(ctx, http.MethodPost, "/reports", rep, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Agent-Key", c.agentKey)
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		apiErr := &APIError{Status: res.StatusCode}
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		} else {
			apiErr.Code = "http_error"
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
