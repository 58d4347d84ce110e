package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"ventureos/internal/audit"
	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/repo"
)

// SyncSnapshot is the full-state dump the agent pulls. No pagination and no
// field projection; contracts are limited to Active ones.
type SyncSnapshot struct {
	Clients       []domain.Client       `json:"clients"`
	Opportunities []domain.Opportunity  `json:"opportunities"`
	Contracts     []domain.Contract     `json:"contracts"`
	Projects      []domain.Project      `json:"projects"`
	Tasks         []TaskView            `json:"tasks"`
	Deployments   []domain.Deployment   `json:"deployments"`
	SystemConfig  []domain.SystemConfig `json:"system_config"`
}

// SyncBatch is the sparse push body. Every key is optional; recognized keys
// are processed independently and in declaration order.
type SyncBatch struct {
	AuditLogs          []SyncAuditLog          `json:"audit_logs,omitempty"`
	ProjectUpdates     []SyncProjectUpdate     `json:"project_updates,omitempty"`
	TaskUpdates        []SyncTaskUpdate        `json:"task_updates,omitempty"`
	ClientHealth       []SyncClientHealth      `json:"client_health,omitempty"`
	AgentReports       []SyncAgentReport       `json:"agent_reports,omitempty"`
	DeploymentStatus   []SyncStatusUpdate      `json:"deployment_status,omitempty"`
	OpportunityUpdates []SyncOpportunityUpdate `json:"opportunity_updates,omitempty"`
	OfferUpdates       []SyncStatusUpdate      `json:"offer_updates,omitempty"`
	ContractUpdates    []SyncStatusUpdate      `json:"contract_updates,omitempty"`
}

type SyncAuditLog struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Action     string `json:"action"`
	Severity   string `json:"severity,omitempty" enum:"Critical,Warning,Info,"`
	Message    string `json:"message,omitempty"`
}

type SyncProjectUpdate struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Status   *string `json:"status,omitempty" enum:"Backlog,Understand,Document,Freeze,Implement,Verify"`
	Progress *int    `json:"progress,omitempty" minimum:"0" maximum:"100"`
	IsFrozen *bool   `json:"is_frozen,omitempty"`
}

type SyncTaskUpdate struct {
	ID           string  `json:"id"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty" enum:"Todo,In Progress,Done,Blocked"`
	Priority     *string `json:"priority,omitempty" enum:"Critical,High,Medium,Low"`
	DueDate      *string `json:"due_date,omitempty"`
	AgentContext *string `json:"agent_context,omitempty"`
}

type SyncClientHealth struct {
	ID          string `json:"id"`
	HealthScore int    `json:"health_score" minimum:"0" maximum:"100"`
}

type SyncAgentReport struct {
	ClientID string `json:"client_id,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Severity string `json:"severity,omitempty" enum:"critical,warning,info,"`
}

type SyncStatusUpdate struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type SyncOpportunityUpdate struct {
	ID          string   `json:"id"`
	Stage       *string  `json:"stage,omitempty" enum:"Draft,Price Offer Sent,Negotiating,Won,Lost"`
	Probability *int     `json:"probability,omitempty" minimum:"0" maximum:"100"`
	Value       *float64 `json:"estimated_value,omitempty"`
}

// SyncItemResult is the per-row outcome. Exactly one of OK or Error is
// meaningful.
type SyncItemResult struct {
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type SyncResults struct {
	AuditLogs          *SyncInsertResult `json:"audit_logs,omitempty"`
	ProjectUpdates     []SyncItemResult  `json:"project_updates,omitempty"`
	TaskUpdates        []SyncItemResult  `json:"task_updates,omitempty"`
	ClientHealth       []SyncItemResult  `json:"client_health,omitempty"`
	AgentReports       *SyncInsertResult `json:"agent_reports,omitempty"`
	DeploymentStatus   []SyncItemResult  `json:"deployment_status,omitempty"`
	OpportunityUpdates []SyncItemResult  `json:"opportunity_updates,omitempty"`
	OfferUpdates       []SyncItemResult  `json:"offer_updates,omitempty"`
	ContractUpdates    []SyncItemResult  `json:"contract_updates,omitempty"`
}

type SyncInsertResult struct {
	Inserted int              `json:"inserted"`
	Errors   []SyncItemResult `json:"errors,omitempty"`
}

func registerSync(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sync-pull",
		Method:      http.MethodGet,
		Path:        "/sync",
		Summary:     "Pull full state snapshot",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SyncSnapshot `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		snap, err := buildSnapshot(ctx, e)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SyncSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-push",
		Method:      http.MethodPost,
		Path:        "/sync",
		Summary:     "Push batched mutations",
		Description: "Each recognized key is processed independently; one bad row never blocks the rest. Status transitions fire the same automations as the interactive paths.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SyncBatch `json:"body"`
	}) (*struct {
		Body struct {
			Message string      `json:"message"`
			Results SyncResults `json:"results"`
		} `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		results := processSyncBatch(ctx, e, input.Body, actorID)
		out := &struct {
			Body struct {
				Message string      `json:"message"`
				Results SyncResults `json:"results"`
			} `json:"body"`
		}{}
		out.Body.Message = "sync processed"
		out.Body.Results = results
		return out, nil
	})
}

func buildSnapshot(ctx context.Context, e engine.Engine) (SyncSnapshot, error) {
	var snap SyncSnapshot
	var err error
	if snap.Clients, err = e.Repo.ListClients(ctx); err != nil {
		return snap, err
	}
	if snap.Opportunities, err = e.Repo.ListOpportunities(ctx, ""); err != nil {
		return snap, err
	}
	if snap.Contracts, err = e.Repo.ListContracts(ctx, domain.ContractActive); err != nil {
		return snap, err
	}
	if snap.Projects, err = e.Repo.ListProjects(ctx, repo.ProjectFilters{}); err != nil {
		return snap, err
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return snap, err
	}
	snap.Tasks = taskViews(tasks)
	if snap.Deployments, err = e.Repo.ListDeployments(ctx, ""); err != nil {
		return snap, err
	}
	if snap.SystemConfig, err = e.Repo.ListSystemConfig(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// processSyncBatch runs every present key sequentially. Later items can
// observe side effects of earlier ones (an automator-created contract is
// visible to a contract_updates row in the same batch).
func processSyncBatch(ctx context.Context, e engine.Engine, batch SyncBatch, actorID string) SyncResults {
	var res SyncResults

	if len(batch.AuditLogs) > 0 {
		ins := &SyncInsertResult{}
		for i, row := range batch.AuditLogs {
			err := e.Audit.Append(ctx, audit.Entry{
				EntityKind: row.EntityKind,
				EntityID:   row.EntityID,
				Action:     row.Action,
				Severity:   row.Severity,
				Message:    row.Message,
				ActorID:    actorID,
			})
			if err != nil {
				ins.Errors = append(ins.Errors, SyncItemResult{ID: itemRef(i), Error: err.Error()})
				continue
			}
			ins.Inserted++
		}
		res.AuditLogs = ins
	}

	for _, row := range batch.ProjectUpdates {
		_, err := e.UpdateProject(ctx, row.ID, repo.ProjectUpdate{
			Name:     row.Name,
			Status:   row.Status,
			Progress: row.Progress,
			IsFrozen: row.IsFrozen,
		}, actorID)
		res.ProjectUpdates = append(res.ProjectUpdates, itemResult(row.ID, err))
	}

	for _, row := range batch.TaskUpdates {
		_, err := e.UpdateTask(ctx, row.ID, engine.TaskUpdate{
			Title:        row.Title,
			Description:  row.Description,
			Status:       row.Status,
			Priority:     row.Priority,
			DueDate:      row.DueDate,
			AgentContext: row.AgentContext,
		}, actorID)
		res.TaskUpdates = append(res.TaskUpdates, itemResult(row.ID, err))
	}

	for _, row := range batch.ClientHealth {
		err := e.Repo.SetClientHealth(ctx, row.ID, row.HealthScore, e.Now().UTC().Format(timeLayout))
		res.ClientHealth = append(res.ClientHealth, itemResult(row.ID, err))
	}

	if len(batch.AgentReports) > 0 {
		ins := &SyncInsertResult{}
		for i, row := range batch.AgentReports {
			if _, err := e.CreateAgentReport(ctx, row.ClientID, row.Title, row.Body, row.Severity); err != nil {
				ins.Errors = append(ins.Errors, SyncItemResult{ID: itemRef(i), Error: err.Error()})
				continue
			}
			ins.Inserted++
		}
		res.AgentReports = ins
	}

	for _, row := range batch.DeploymentStatus {
		_, err := e.SetDeploymentStatus(ctx, row.ID, row.Status, actorID)
		res.DeploymentStatus = append(res.DeploymentStatus, itemResult(row.ID, err))
	}

	for _, row := range batch.OpportunityUpdates {
		err := applyOpportunityUpdate(ctx, e, row, actorID)
		res.OpportunityUpdates = append(res.OpportunityUpdates, itemResult(row.ID, err))
	}

	for _, row := range batch.OfferUpdates {
		_, err := e.SetOfferStatus(ctx, row.ID, row.Status, actorID)
		res.OfferUpdates = append(res.OfferUpdates, itemResult(row.ID, err))
	}

	for _, row := range batch.ContractUpdates {
		_, err := e.SetContractStatus(ctx, row.ID, row.Status, actorID)
		res.ContractUpdates = append(res.ContractUpdates, itemResult(row.ID, err))
	}

	return res
}

// applyOpportunityUpdate routes stage changes through the engine so Won
// fires the automator; plain field edits go straight to the repo.
func applyOpportunityUpdate(ctx context.Context, e engine.Engine, row SyncOpportunityUpdate, actorID string) error {
	if row.Probability != nil || row.Value != nil {
		u := repo.OpportunityUpdate{Probability: row.Probability, EstimatedValue: row.Value}
		if err := e.Repo.UpdateOpportunity(ctx, row.ID, u, e.Now().UTC().Format(timeLayout)); err != nil {
			return err
		}
	}
	if row.Stage != nil {
		if _, err := e.SetOpportunityStage(ctx, row.ID, *row.Stage, actorID); err != nil {
			return err
		}
	}
	return nil
}

func itemResult(id string, err error) SyncItemResult {
	if err != nil {
		return SyncItemResult{ID: id, Error: err.Error()}
	}
	return SyncItemResult{ID: id, OK: true}
}

func itemRef(i int) string {
	return "#" + strconv.Itoa(i)
}
