package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ventureos/internal/audit"
	"ventureos/internal/config"
	"ventureos/internal/domain"
	"ventureos/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Audit  audit.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Audit:  audit.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

func newID() string {
	return uuid.New().String()
}

// --- clients ---

func (e Engine) CreateClient(ctx context.Context, name, company, email, actorID string) (domain.Client, error) {
	if name == "" {
		return domain.Client{}, errors.New("name is required")
	}
	now := e.nowString()
	c := domain.Client{
		ID:          newID(),
		Name:        name,
		Company:     company,
		Email:       email,
		HealthScore: 50,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertClient(ctx, c); err != nil {
		return domain.Client{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "client", EntityID: c.ID, Action: "client.created",
		Message: fmt.Sprintf("Client %q created", c.Name), ActorID: actorID,
	})
	return c, nil
}

// BumpClientHealth adds delta to the client's health score, clamped to
// [0,100].
func (e Engine) BumpClientHealth(ctx context.Context, clientID string, delta int) error {
	c, err := e.Repo.GetClient(ctx, clientID)
	if err != nil {
		return err
	}
	return e.Repo.SetClientHealth(ctx, clientID, c.HealthScore+delta, e.nowString())
}

// --- opportunities ---

type OpportunityCreateOptions struct {
	ClientID       string
	Title          string
	EstimatedValue float64
	Probability    int
	ActorID        string
}

func (e Engine) CreateOpportunity(ctx context.Context, opts OpportunityCreateOptions) (domain.Opportunity, error) {
	if opts.Title == "" {
		return domain.Opportunity{}, errors.New("title is required")
	}
	if opts.ClientID != "" {
		if _, err := e.Repo.GetClient(ctx, opts.ClientID); err != nil {
			return domain.Opportunity{}, err
		}
	}
	now := e.nowString()
	o := domain.Opportunity{
		ID:             newID(),
		ClientID:       optionalString(opts.ClientID),
		Title:          opts.Title,
		Stage:          domain.StageDraft,
		EstimatedValue: opts.EstimatedValue,
		Probability:    opts.Probability,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Repo.InsertOpportunity(ctx, o); err != nil {
		return domain.Opportunity{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "opportunity", EntityID: o.ID, Action: "opportunity.created",
		Message: fmt.Sprintf("Opportunity %q created", o.Title), ActorID: opts.ActorID,
	})
	return o, nil
}

// SetOpportunityStage updates the pipeline stage. Moving to Won stamps
// won_at and fires the automation engine on the freshly re-read row.
func (e Engine) SetOpportunityStage(ctx context.Context, id, stage, actorID string) (domain.Opportunity, error) {
	if !validOpportunityStage(stage) {
		return domain.Opportunity{}, fmt.Errorf("invalid opportunity stage %s", stage)
	}
	o, err := e.Repo.GetOpportunity(ctx, id)
	if err != nil {
		return o, err
	}
	now := e.nowString()
	u := repo.OpportunityUpdate{Stage: &stage}
	becameWon := stage == domain.StageWon && o.Stage != domain.StageWon
	if becameWon {
		u.WonAt = &now
	}
	if err := e.Repo.UpdateOpportunity(ctx, id, u, now); err != nil {
		return o, err
	}
	updated, err := e.Repo.GetOpportunity(ctx, id)
	if err != nil {
		return o, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "opportunity", EntityID: id, Action: "opportunity.stage",
		Message: fmt.Sprintf("Stage %s -> %s", o.Stage, stage), ActorID: actorID,
	})
	if becameWon {
		e.RunAutomator(ctx, OpportunityWon{Opportunity: updated}, actorID)
	}
	return updated, nil
}

func validOpportunityStage(stage string) bool {
	switch stage {
	case domain.StageDraft, domain.StagePriceOfferSent, domain.StageNegotiating, domain.StageWon, domain.StageLost:
		return true
	}
	return false
}

// --- price offers ---

type OfferCreateOptions struct {
	ClientID      string
	OpportunityID string
	Title         string
	ActorID       string
}

func (e Engine) CreateOffer(ctx context.Context, opts OfferCreateOptions) (domain.PriceOffer, error) {
	if opts.Title == "" {
		return domain.PriceOffer{}, errors.New("title is required")
	}
	if opts.ClientID != "" {
		if _, err := e.Repo.GetClient(ctx, opts.ClientID); err != nil {
			return domain.PriceOffer{}, err
		}
	}
	if opts.OpportunityID != "" {
		if _, err := e.Repo.GetOpportunity(ctx, opts.OpportunityID); err != nil {
			return domain.PriceOffer{}, err
		}
	}
	now := e.nowString()
	o := domain.PriceOffer{
		ID:            newID(),
		ClientID:      optionalString(opts.ClientID),
		OpportunityID: optionalString(opts.OpportunityID),
		Title:         opts.Title,
		Status:        domain.OfferDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertOffer(ctx, o); err != nil {
		return domain.PriceOffer{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "price_offer", EntityID: o.ID, Action: "offer.created",
		Message: fmt.Sprintf("Price offer %q created", o.Title), ActorID: opts.ActorID,
	})
	return o, nil
}

// AddOfferItem appends a line item and recomputes the offer total.
func (e Engine) AddOfferItem(ctx context.Context, offerID, description string, quantity, unitPrice float64) (domain.OfferItem, error) {
	if description == "" {
		return domain.OfferItem{}, errors.New("description is required")
	}
	offer, err := e.Repo.GetOffer(ctx, offerID)
	if err != nil {
		return domain.OfferItem{}, err
	}
	it := domain.OfferItem{
		ID:          newID(),
		OfferID:     offerID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       quantity * unitPrice,
		Position:    len(offer.Items),
	}
	if err := e.Repo.InsertOfferItem(ctx, it); err != nil {
		return domain.OfferItem{}, err
	}
	if err := e.recomputeOfferTotal(ctx, offerID); err != nil {
		return it, err
	}
	return it, nil
}

func (e Engine) UpdateOfferItem(ctx context.Context, itemID, description string, quantity, unitPrice float64) (domain.OfferItem, error) {
	it, err := e.Repo.GetOfferItem(ctx, itemID)
	if err != nil {
		return it, err
	}
	if description != "" {
		it.Description = description
	}
	it.Quantity = quantity
	it.UnitPrice = unitPrice
	it.Total = quantity * unitPrice
	if err := e.Repo.UpdateOfferItem(ctx, it); err != nil {
		return it, err
	}
	if err := e.recomputeOfferTotal(ctx, it.OfferID); err != nil {
		return it, err
	}
	return it, nil
}

func (e Engine) RemoveOfferItem(ctx context.Context, itemID string) error {
	it, err := e.Repo.GetOfferItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := e.Repo.DeleteOfferItem(ctx, itemID); err != nil {
		return err
	}
	return e.recomputeOfferTotal(ctx, it.OfferID)
}

func (e Engine) recomputeOfferTotal(ctx context.Context, offerID string) error {
	items, err := e.Repo.ListOfferItems(ctx, offerID)
	if err != nil {
		return err
	}
	var total float64
	for _, it := range items {
		total += it.Total
	}
	return e.Repo.UpdateOfferTotal(ctx, offerID, total, e.nowString())
}

// SetOfferStatus updates the offer status. Moving to Accepted fires the
// automation engine on the freshly re-read row.
func (e Engine) SetOfferStatus(ctx context.Context, id, status, actorID string) (domain.PriceOffer, error) {
	if !validOfferStatus(status) {
		return domain.PriceOffer{}, fmt.Errorf("invalid offer status %s", status)
	}
	o, err := e.Repo.GetOffer(ctx, id)
	if err != nil {
		return o, err
	}
	if err := e.Repo.UpdateOfferStatus(ctx, id, status, e.nowString()); err != nil {
		return o, err
	}
	updated, err := e.Repo.GetOffer(ctx, id)
	if err != nil {
		return o, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "price_offer", EntityID: id, Action: "offer.status",
		Message: fmt.Sprintf("Status %s -> %s", o.Status, status), ActorID: actorID,
	})
	if status == domain.OfferAccepted && o.Status != domain.OfferAccepted {
		e.RunAutomator(ctx, OfferAccepted{Offer: updated}, actorID)
	}
	return updated, nil
}

func validOfferStatus(status string) bool {
	switch status {
	case domain.OfferDraft, domain.OfferSent, domain.OfferAccepted, domain.OfferRejected, domain.OfferExpired:
		return true
	}
	return false
}

// --- contracts ---

type ContractCreateOptions struct {
	ClientID      string
	OpportunityID string
	PriceOfferID  string
	Title         string
	TotalValue    float64
	TermsMD       string
	StartDate     string
	EndDate       string
	ActorID       string
}

func (e Engine) CreateContract(ctx context.Context, opts ContractCreateOptions) (domain.Contract, error) {
	if opts.Title == "" {
		return domain.Contract{}, errors.New("title is required")
	}
	now := e.nowString()
	c := domain.Contract{
		ID:            newID(),
		ClientID:      optionalString(opts.ClientID),
		OpportunityID: optionalString(opts.OpportunityID),
		PriceOfferID:  optionalString(opts.PriceOfferID),
		Title:         opts.Title,
		Status:        domain.ContractDraft,
		TotalValue:    opts.TotalValue,
		TermsMD:       opts.TermsMD,
		StartDate:     optionalString(opts.StartDate),
		EndDate:       optionalString(opts.EndDate),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertContract(ctx, c); err != nil {
		return domain.Contract{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "contract", EntityID: c.ID, Action: "contract.created",
		Message: fmt.Sprintf("Contract %q created", c.Title), ActorID: opts.ActorID,
	})
	return c, nil
}

// SetContractStatus updates the contract status. Moving to Active fires the
// automation engine on the freshly re-read row.
func (e Engine) SetContractStatus(ctx context.Context, id, status, actorID string) (domain.Contract, error) {
	if !validContractStatus(status) {
		return domain.Contract{}, fmt.Errorf("invalid contract status %s", status)
	}
	c, err := e.Repo.GetContract(ctx, id)
	if err != nil {
		return c, err
	}
	if err := e.Repo.UpdateContractStatus(ctx, id, status, e.nowString()); err != nil {
		return c, err
	}
	updated, err := e.Repo.GetContract(ctx, id)
	if err != nil {
		return c, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "contract", EntityID: id, Action: "contract.status",
		Message: fmt.Sprintf("Status %s -> %s", c.Status, status), ActorID: actorID,
	})
	if status == domain.ContractActive && c.Status != domain.ContractActive {
		e.RunAutomator(ctx, ContractActivated{Contract: updated}, actorID)
	}
	return updated, nil
}

func validContractStatus(status string) bool {
	switch status {
	case domain.ContractDraft, domain.ContractPendingSignature, domain.ContractActive, domain.ContractCompleted, domain.ContractTerminated:
		return true
	}
	return false
}

// --- projects ---

type ProjectCreateOptions struct {
	Name       string
	ClientID   string
	ContractID string
	Status     string
	ActorID    string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, errors.New("name is required")
	}
	if opts.Status == "" {
		opts.Status = domain.ProjectBacklog
	}
	if !validProjectStatus(opts.Status) {
		return domain.Project{}, fmt.Errorf("invalid project status %s", opts.Status)
	}
	now := e.nowString()
	p := domain.Project{
		ID:         newID(),
		ClientID:   optionalString(opts.ClientID),
		ContractID: optionalString(opts.ContractID),
		Name:       opts.Name,
		Status:     opts.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "project", EntityID: p.ID, Action: "project.created",
		Message: fmt.Sprintf("Project %q created", p.Name), ActorID: opts.ActorID,
	})
	return p, nil
}

// UpdateProject applies a sparse update. Status is user-driven; any status
// is reachable from any other. Progress is clamped to [0,100].
func (e Engine) UpdateProject(ctx context.Context, id string, u repo.ProjectUpdate, actorID string) (domain.Project, error) {
	if u.Status != nil && !validProjectStatus(*u.Status) {
		return domain.Project{}, fmt.Errorf("invalid project status %s", *u.Status)
	}
	if u.Progress != nil {
		p := *u.Progress
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		u.Progress = &p
	}
	if err := e.Repo.UpdateProject(ctx, id, u, e.nowString()); err != nil {
		return domain.Project{}, err
	}
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return p, err
	}
	if u.Status != nil {
		e.appendAudit(ctx, audit.Entry{
			EntityKind: "project", EntityID: id, Action: "project.status",
			Message: fmt.Sprintf("Status set to %s", *u.Status), ActorID: actorID,
		})
	}
	return p, nil
}

func validProjectStatus(status string) bool {
	switch status {
	case domain.ProjectBacklog, domain.ProjectUnderstand, domain.ProjectDocument,
		domain.ProjectFreeze, domain.ProjectImplement, domain.ProjectVerify:
		return true
	}
	return false
}

// AdvanceLifecycle moves a project's lifecycle to a new stage and appends a
// history entry.
func (e Engine) AdvanceLifecycle(ctx context.Context, projectID, stage, actorID string) (domain.Lifecycle, error) {
	if stage == "" {
		return domain.Lifecycle{}, errors.New("stage is required")
	}
	l, err := e.Repo.GetLifecycleByProject(ctx, projectID)
	if err != nil {
		return l, err
	}
	now := e.nowString()
	history := decodeStageHistory(l.StageHistoryJSON)
	history = append(history, domain.StageEntry{Stage: stage, EnteredAt: now})
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return l, err
	}
	if err := e.Repo.UpdateLifecycleStage(ctx, l.ID, stage, string(historyJSON), now); err != nil {
		return l, err
	}
	l.CurrentStage = stage
	l.StageHistoryJSON = string(historyJSON)
	l.UpdatedAt = now
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "lifecycle", EntityID: l.ID, Action: "lifecycle.stage",
		Message: fmt.Sprintf("Stage set to %s", stage), ActorID: actorID,
	})
	return l, nil
}

func decodeStageHistory(raw string) []domain.StageEntry {
	if raw == "" {
		return nil
	}
	var history []domain.StageEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil
	}
	return history
}

// --- sprints ---

type SprintCreateOptions struct {
	ProjectID    string
	Goal         string
	PlannedEndAt string
	ActorID      string
}

func (e Engine) CreateSprint(ctx context.Context, opts SprintCreateOptions) (domain.Sprint, error) {
	if opts.ProjectID == "" {
		return domain.Sprint{}, errors.New("project is required")
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Sprint{}, err
	}
	number, err := e.Repo.NextSprintNumber(ctx, opts.ProjectID)
	if err != nil {
		return domain.Sprint{}, err
	}
	now := e.nowString()
	s := domain.Sprint{
		ID:           newID(),
		ProjectID:    opts.ProjectID,
		SprintNumber: number,
		Goal:         opts.Goal,
		Status:       domain.SprintActive,
		StartedAt:    now,
		PlannedEndAt: optionalString(opts.PlannedEndAt),
		CreatedAt:    now,
	}
	if err := e.Repo.InsertSprint(ctx, s); err != nil {
		return domain.Sprint{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "sprint", EntityID: s.ID, Action: "sprint.started",
		Message: fmt.Sprintf("Sprint %d started", s.SprintNumber), ActorID: opts.ActorID,
	})
	return s, nil
}

func (e Engine) CompleteSprint(ctx context.Context, id, actorID string) (domain.Sprint, error) {
	s, err := e.Repo.GetSprint(ctx, id)
	if err != nil {
		return s, err
	}
	if s.Status == domain.SprintCompleted {
		return s, nil
	}
	if err := e.Repo.UpdateSprintStatus(ctx, id, domain.SprintCompleted); err != nil {
		return s, err
	}
	s.Status = domain.SprintCompleted
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "sprint", EntityID: id, Action: "sprint.completed",
		Message: fmt.Sprintf("Sprint %d completed", s.SprintNumber), ActorID: actorID,
	})
	return s, nil
}

// --- focus sessions ---

func (e Engine) StartFocusSession(ctx context.Context, projectID, taskID string) (domain.FocusSession, error) {
	if projectID == "" {
		return domain.FocusSession{}, errors.New("project is required")
	}
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return domain.FocusSession{}, err
	}
	s := domain.FocusSession{
		ID:        newID(),
		ProjectID: projectID,
		TaskID:    optionalString(taskID),
		StartedAt: e.nowString(),
	}
	if err := e.Repo.InsertFocusSession(ctx, s); err != nil {
		return domain.FocusSession{}, err
	}
	return s, nil
}

// EndFocusSession closes a session, recording its duration from the stored
// start and end timestamps.
func (e Engine) EndFocusSession(ctx context.Context, id string) (domain.FocusSession, error) {
	s, err := e.Repo.GetFocusSession(ctx, id)
	if err != nil {
		return s, err
	}
	if s.EndedAt != nil {
		return s, errors.New("session already ended")
	}
	now := e.now().UTC()
	started, err := time.Parse(time.RFC3339, s.StartedAt)
	if err != nil {
		return s, fmt.Errorf("parse started_at: %w", err)
	}
	minutes := int(now.Sub(started) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	ended := now.Format(time.RFC3339)
	if err := e.Repo.EndFocusSession(ctx, id, ended, minutes); err != nil {
		return s, err
	}
	s.EndedAt = &ended
	s.DurationMinutes = minutes
	return s, nil
}

// --- deployments ---

type DeploymentCreateOptions struct {
	ProjectID   string
	Name        string
	Environment string
	URL         string
	ActorID     string
}

func (e Engine) CreateDeployment(ctx context.Context, opts DeploymentCreateOptions) (domain.Deployment, error) {
	if opts.Name == "" {
		return domain.Deployment{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Deployment{}, err
	}
	if opts.Environment == "" {
		opts.Environment = "production"
	}
	now := e.nowString()
	d := domain.Deployment{
		ID:          newID(),
		ProjectID:   opts.ProjectID,
		Name:        opts.Name,
		Environment: opts.Environment,
		Status:      "pending",
		URL:         opts.URL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertDeployment(ctx, d); err != nil {
		return domain.Deployment{}, err
	}
	return d, nil
}

func (e Engine) SetDeploymentStatus(ctx context.Context, id, status, actorID string) (domain.Deployment, error) {
	if status == "" {
		return domain.Deployment{}, errors.New("status is required")
	}
	d, err := e.Repo.GetDeployment(ctx, id)
	if err != nil {
		return d, err
	}
	now := e.nowString()
	var deployedAt *string
	if status == "deployed" && d.DeployedAt == nil {
		deployedAt = &now
	}
	if err := e.Repo.UpdateDeploymentStatus(ctx, id, status, deployedAt, now); err != nil {
		return d, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "deployment", EntityID: id, Action: "deployment.status",
		Message: fmt.Sprintf("Status %s -> %s", d.Status, status), ActorID: actorID,
	})
	return e.Repo.GetDeployment(ctx, id)
}

// --- reports ---

func (e Engine) CreateAgentReport(ctx context.Context, clientID, title, body, severity string) (domain.AgentReport, error) {
	if title == "" {
		return domain.AgentReport{}, errors.New("title is required")
	}
	if severity == "" {
		severity = "info"
	}
	switch severity {
	case "critical", "warning", "info":
	default:
		return domain.AgentReport{}, fmt.Errorf("invalid severity %s", severity)
	}
	rep := domain.AgentReport{
		ID:        newID(),
		ClientID:  optionalString(clientID),
		Title:     title,
		Body:      body,
		Severity:  severity,
		CreatedAt: e.nowString(),
	}
	if err := e.Repo.InsertAgentReport(ctx, rep); err != nil {
		return domain.AgentReport{}, err
	}
	return rep, nil
}

// appendAudit writes an audit row best-effort; a failed append never fails
// the triggering mutation.
func (e Engine) appendAudit(ctx context.Context, entry audit.Entry) {
	w := e.Audit
	if w.Now == nil {
		w.Now = e.Now
	}
	if err := w.Append(ctx, entry); err != nil {
		log.Printf("audit: append %s failed: %v", entry.Action, err)
	}
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
