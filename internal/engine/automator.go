package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"ventureos/internal/audit"
	"ventureos/internal/domain"
	"ventureos/internal/repo"
)

// Trigger is a pipeline transition the automation engine reacts to.
type Trigger interface {
	triggerName() string
}

// OfferAccepted fires when a price offer moves to Accepted.
type OfferAccepted struct {
	Offer domain.PriceOffer
}

// OpportunityWon fires when an opportunity moves to Won.
type OpportunityWon struct {
	Opportunity domain.Opportunity
}

// ContractActivated fires when a contract moves to Active.
type ContractActivated struct {
	Contract domain.Contract
}

func (OfferAccepted) triggerName() string     { return "offer.accepted" }
func (OpportunityWon) triggerName() string    { return "opportunity.won" }
func (ContractActivated) triggerName() string { return "contract.activated" }

// RunAutomator executes the follow-up effects for a pipeline transition.
// Effects are sequences of ordinary inserts, issued sequentially and never
// wrapped in a transaction; a failed effect is logged and the rest proceed.
func (e Engine) RunAutomator(ctx context.Context, trigger Trigger, actorID string) {
	var err error
	switch t := trigger.(type) {
	case OfferAccepted:
		err = e.draftContractFromOffer(ctx, t.Offer, actorID)
	case OpportunityWon:
		err = e.bootstrapProjectFromOpportunity(ctx, t.Opportunity, actorID)
	case ContractActivated:
		e.onContractActivated(ctx, t.Contract, actorID)
	default:
		err = fmt.Errorf("unknown trigger %T", trigger)
	}
	if err != nil {
		log.Printf("automator: %s failed: %v", trigger.triggerName(), err)
	}
}

// draftContractFromOffer creates a Draft contract mirroring the accepted
// offer, with terms rendered from its line items. At most one contract per
// offer; a rerun is a no-op.
func (e Engine) draftContractFromOffer(ctx context.Context, offer domain.PriceOffer, actorID string) error {
	if _, err := e.Repo.ContractByPriceOffer(ctx, offer.ID); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	now := e.nowString()
	c := domain.Contract{
		ID:            newID(),
		ClientID:      offer.ClientID,
		OpportunityID: offer.OpportunityID,
		PriceOfferID:  &offer.ID,
		Title:         fmt.Sprintf("Contract: %s", offer.Title),
		Status:        domain.ContractDraft,
		TotalValue:    offer.TotalValue,
		TermsMD:       renderContractTerms(offer),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertContract(ctx, c); err != nil {
		return err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "contract", EntityID: c.ID, Action: "contract.drafted",
		Message: fmt.Sprintf("Contract drafted from accepted offer %q", offer.Title), ActorID: actorID,
	})
	if _, err := e.CreateAgentReport(ctx, deref(offer.ClientID),
		fmt.Sprintf("Offer accepted: %s", offer.Title),
		fmt.Sprintf("Price offer %q (total %.2f) was accepted. A draft contract is ready for review.", offer.Title, offer.TotalValue),
		"info"); err != nil {
		log.Printf("automator: offer %s acceptance report failed: %v", offer.ID, err)
	}
	return nil
}

// renderContractTerms builds the Markdown scope-of-work from the offer's
// line items plus the standard payment schedule.
func renderContractTerms(offer domain.PriceOffer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Contract Terms\n\n## Scope of Work\n\nAs agreed in price offer %q:\n\n", offer.Title)
	for _, it := range offer.Items {
		fmt.Fprintf(&b, "- %s (%g x %.2f) = %.2f\n", it.Description, it.Quantity, it.UnitPrice, it.Total)
	}
	if len(offer.Items) == 0 {
		b.WriteString("- Scope to be detailed.\n")
	}
	fmt.Fprintf(&b, "\n**Total: %.2f**\n\n", offer.TotalValue)
	b.WriteString(`## Payment Schedule

- 50% due upon signature.
- 50% due upon delivery.

## General Terms

Work begins after signature and the initial payment. Change requests
outside the scope above are quoted separately.
`)
	return b.String()
}

// bootstrapProjectFromOpportunity creates the delivery project and its
// lifecycle for a freshly won opportunity.
func (e Engine) bootstrapProjectFromOpportunity(ctx context.Context, opp domain.Opportunity, actorID string) error {
	now := e.nowString()
	p := domain.Project{
		ID:        newID(),
		ClientID:  opp.ClientID,
		Name:      fmt.Sprintf("%s — Build", opp.Title),
		Status:    domain.ProjectUnderstand,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return err
	}
	history, err := json.Marshal([]domain.StageEntry{{Stage: "Requirements", EnteredAt: now}})
	if err != nil {
		return err
	}
	l := domain.Lifecycle{
		ID:               newID(),
		ProjectID:        p.ID,
		CurrentStage:     "Requirements",
		StageHistoryJSON: string(history),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.Repo.InsertLifecycle(ctx, l); err != nil {
		return err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "project", EntityID: p.ID, Action: "project.bootstrapped",
		Message: fmt.Sprintf("Project %q created from won opportunity", p.Name), ActorID: actorID,
	})
	if _, err := e.CreateAgentReport(ctx, deref(opp.ClientID),
		fmt.Sprintf("Opportunity won: %s", opp.Title),
		fmt.Sprintf("Opportunity %q was won. Project %q is ready in Understand.", opp.Title, p.Name),
		"info"); err != nil {
		log.Printf("automator: opportunity %s win report failed: %v", opp.ID, err)
	}
	return nil
}

// onContractActivated records the kickoff and bumps the client's health.
// Every effect is attempted even if an earlier one fails.
func (e Engine) onContractActivated(ctx context.Context, c domain.Contract, actorID string) {
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "contract", EntityID: c.ID, Action: "contract.activated",
		Severity: audit.SeverityInfo,
		Message:  fmt.Sprintf("Contract %q is now active", c.Title), ActorID: actorID,
	})
	_, err := e.CreateAgentReport(ctx, deref(c.ClientID),
		fmt.Sprintf("Contract activated: %s", c.Title),
		fmt.Sprintf("Contract %q (total %.2f) moved to Active. Kick off delivery.", c.Title, c.TotalValue),
		"info")
	if err != nil {
		log.Printf("automator: contract %s activation report failed: %v", c.ID, err)
	}
	if c.ClientID != nil {
		if err := e.BumpClientHealth(ctx, *c.ClientID, 5); err != nil {
			log.Printf("automator: contract %s client health bump failed: %v", c.ID, err)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
