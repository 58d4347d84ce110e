package domain

type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	HealthScore int    `json:"health_score"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Opportunity struct {
	ID             string  `json:"id"`
	ClientID       *string `json:"client_id,omitempty"`
	Title          string  `json:"title"`
	Stage          string  `json:"stage" enum:"Draft,Price Offer Sent,Negotiating,Won,Lost"`
	EstimatedValue float64 `json:"estimated_value"`
	Probability    int     `json:"probability"`
	WonAt          *string `json:"won_at,omitempty" format:"date-time"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

type PriceOffer struct {
	ID            string      `json:"id"`
	ClientID      *string     `json:"client_id,omitempty"`
	OpportunityID *string     `json:"opportunity_id,omitempty"`
	Title         string      `json:"title"`
	Status        string      `json:"status" enum:"Draft,Sent,Accepted,Rejected,Expired"`
	TotalValue    float64     `json:"total_value"`
	Items         []OfferItem `json:"items,omitempty"`
	CreatedAt     string      `json:"created_at" format:"date-time"`
	UpdatedAt     string      `json:"updated_at" format:"date-time"`
}

type OfferItem struct {
	ID          string  `json:"id"`
	OfferID     string  `json:"offer_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
	Position    int     `json:"position"`
}

type Contract struct {
	ID            string  `json:"id"`
	ClientID      *string `json:"client_id,omitempty"`
	OpportunityID *string `json:"opportunity_id,omitempty"`
	PriceOfferID  *string `json:"price_offer_id,omitempty"`
	Title         string  `json:"title"`
	Status        string  `json:"status" enum:"Draft,Pending Signature,Active,Completed,Terminated"`
	TotalValue    float64 `json:"total_value"`
	TermsMD       string  `json:"terms_md,omitempty"`
	StartDate     *string `json:"start_date,omitempty" format:"date-time"`
	EndDate       *string `json:"end_date,omitempty" format:"date-time"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type Project struct {
	ID         string  `json:"id"`
	ClientID   *string `json:"client_id,omitempty"`
	ContractID *string `json:"contract_id,omitempty"`
	Name       string  `json:"name"`
	Status     string  `json:"status" enum:"Backlog,Understand,Document,Freeze,Implement,Verify"`
	Progress   int     `json:"progress"`
	IsFrozen   bool    `json:"is_frozen"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

type Lifecycle struct {
	ID               string `json:"id"`
	ProjectID        string `json:"project_id"`
	CurrentStage     string `json:"current_stage"`
	StageHistoryJSON string `json:"stage_history_json,omitempty"`
	CreatedAt        string `json:"created_at" format:"date-time"`
	UpdatedAt        string `json:"updated_at" format:"date-time"`
}

type StageEntry struct {
	Stage     string `json:"stage"`
	EnteredAt string `json:"entered_at" format:"date-time"`
}

type Task struct {
	ID               string  `json:"id"`
	ProjectID        *string `json:"project_id,omitempty"`
	SprintID         *string `json:"sprint_id,omitempty"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Status           string  `json:"status" enum:"Todo,In Progress,Done,Blocked"`
	Priority         string  `json:"priority" enum:"Critical,High,Medium,Low"`
	DueDate          *string `json:"due_date,omitempty" format:"date-time"`
	CompletedAt      *string `json:"completed_at,omitempty" format:"date-time"`
	IsCurrent        bool    `json:"is_current"`
	StoryPoints      int     `json:"story_points"`
	TimeSpentMinutes int     `json:"time_spent_minutes"`
	SkipCount        int     `json:"skip_count"`
	SubtasksJSON     *string `json:"subtasks_json,omitempty"`
	AgentContextJSON *string `json:"agent_context_json,omitempty"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type Sprint struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	SprintNumber int     `json:"sprint_number"`
	Goal         string  `json:"goal,omitempty"`
	Status       string  `json:"status" enum:"active,completed"`
	StartedAt    string  `json:"started_at" format:"date-time"`
	PlannedEndAt *string `json:"planned_end_at,omitempty" format:"date-time"`
	ScopeChanges int     `json:"scope_changes"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type FocusSession struct {
	ID              string  `json:"id"`
	ProjectID       string  `json:"project_id"`
	TaskID          *string `json:"task_id,omitempty"`
	StartedAt       string  `json:"started_at" format:"date-time"`
	EndedAt         *string `json:"ended_at,omitempty" format:"date-time"`
	DurationMinutes int     `json:"duration_minutes"`
}

type Deployment struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Name        string  `json:"name"`
	Environment string  `json:"environment"`
	Status      string  `json:"status"`
	URL         string  `json:"url,omitempty"`
	DeployedAt  *string `json:"deployed_at,omitempty" format:"date-time"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type AgentReport struct {
	ID        string  `json:"id"`
	ClientID  *string `json:"client_id,omitempty"`
	Title     string  `json:"title"`
	Body      string  `json:"body,omitempty"`
	Severity  string  `json:"severity" enum:"critical,warning,info"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type AuditLog struct {
	ID         int64  `json:"id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Action     string `json:"action"`
	Severity   string `json:"severity" enum:"Critical,Warning,Info"`
	Message    string `json:"message,omitempty"`
	ActorID    string `json:"actor_id"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type SystemConfig struct {
	Key       string `json:"key"`
	ValueJSON string `json:"value_json"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type AgentKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Project statuses in lifecycle order. Transitions are user-driven; any
// status is reachable from any other.
const (
	ProjectBacklog    = "Backlog"
	ProjectUnderstand = "Understand"
	ProjectDocument   = "Document"
	ProjectFreeze     = "Freeze"
	ProjectImplement  = "Implement"
	ProjectVerify     = "Verify"
)

const (
	TaskTodo       = "Todo"
	TaskInProgress = "In Progress"
	TaskDone       = "Done"
	TaskBlocked    = "Blocked"
)

const (
	StageDraft          = "Draft"
	StagePriceOfferSent = "Price Offer Sent"
	StageNegotiating    = "Negotiating"
	StageWon            = "Won"
	StageLost           = "Lost"
)

const (
	OfferDraft    = "Draft"
	OfferSent     = "Sent"
	OfferAccepted = "Accepted"
	OfferRejected = "Rejected"
	OfferExpired  = "Expired"
)

const (
	ContractDraft            = "Draft"
	ContractPendingSignature = "Pending Signature"
	ContractActive           = "Active"
	ContractCompleted        = "Completed"
	ContractTerminated       = "Terminated"
)

const (
	SprintActive    = "active"
	SprintCompleted = "completed"
)
