package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"ventureos/internal/config"
	"ventureos/internal/db"
	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/migrate"
	"ventureos/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return testStart }
	return &testEnv{Engine: eng, Ctx: context.Background()}
}

// advance moves the engine's clock forward from the test start.
func (env *testEnv) advance(d time.Duration) {
	env.Engine.Now = func() time.Time { return testStart.Add(d) }
}

func (env *testEnv) mustClient(t *testing.T, name string) domain.Client {
	t.Helper()
	c, err := env.Engine.CreateClient(env.Ctx, name, "", "", "tester")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func TestOpportunityWonBootstrapsProject(t *testing.T) {
	env := newTestEnv(t)
	client := env.mustClient(t, "Acme")
	opp, err := env.Engine.CreateOpportunity(env.Ctx, engine.OpportunityCreateOptions{
		ClientID: client.ID, Title: "Acme Website", EstimatedValue: 12000, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create opportunity: %v", err)
	}

	won, err := env.Engine.SetOpportunityStage(env.Ctx, opp.ID, domain.StageWon, "tester")
	if err != nil {
		t.Fatalf("set stage: %v", err)
	}
	if won.WonAt == nil {
		t.Fatalf("expected won_at to be stamped")
	}

	projects, err := env.Engine.Repo.ListProjects(env.Ctx, repo.ProjectFilters{})
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 bootstrapped project, got %d", len(projects))
	}
	p := projects[0]
	if p.Name != "Acme Website — Build" {
		t.Fatalf("unexpected project name %q", p.Name)
	}
	if p.Status != domain.ProjectUnderstand {
		t.Fatalf("expected Understand, got %s", p.Status)
	}
	if p.Progress != 0 {
		t.Fatalf("expected progress 0, got %d", p.Progress)
	}
	if p.ClientID == nil || *p.ClientID != client.ID {
		t.Fatalf("project not linked to client")
	}

	l, err := env.Engine.Repo.GetLifecycleByProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("get lifecycle: %v", err)
	}
	if l.CurrentStage != "Requirements" {
		t.Fatalf("expected Requirements stage, got %s", l.CurrentStage)
	}
	if !strings.Contains(l.StageHistoryJSON, "Requirements") {
		t.Fatalf("expected stage history entry, got %q", l.StageHistoryJSON)
	}

	reports, err := env.Engine.Repo.ListAgentReports(env.Ctx, 10)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 1 || !strings.HasPrefix(reports[0].Title, "Opportunity won:") {
		t.Fatalf("expected win report, got %+v", reports)
	}

	// Setting Won again is not a transition; no second project.
	if _, err := env.Engine.SetOpportunityStage(env.Ctx, opp.ID, domain.StageWon, "tester"); err != nil {
		t.Fatalf("re-set stage: %v", err)
	}
	projects, _ = env.Engine.Repo.ListProjects(env.Ctx, repo.ProjectFilters{})
	if len(projects) != 1 {
		t.Fatalf("expected still 1 project, got %d", len(projects))
	}
}

func TestOfferAcceptedDraftsContract(t *testing.T) {
	env := newTestEnv(t)
	client := env.mustClient(t, "Acme")
	offer, err := env.Engine.CreateOffer(env.Ctx, engine.OfferCreateOptions{
		ClientID: client.ID, Title: "Website Build", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := env.Engine.AddOfferItem(env.Ctx, offer.ID, "Design", 2, 500); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := env.Engine.AddOfferItem(env.Ctx, offer.ID, "Development", 1, 1000); err != nil {
		t.Fatalf("add item: %v", err)
	}

	got, err := env.Engine.Repo.GetOffer(env.Ctx, offer.ID)
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if got.TotalValue != 2000 {
		t.Fatalf("expected total 2000, got %v", got.TotalValue)
	}

	if _, err := env.Engine.SetOfferStatus(env.Ctx, offer.ID, domain.OfferAccepted, "tester"); err != nil {
		t.Fatalf("accept offer: %v", err)
	}

	c, err := env.Engine.Repo.ContractByPriceOffer(env.Ctx, offer.ID)
	if err != nil {
		t.Fatalf("contract by offer: %v", err)
	}
	if c.Title != "Contract: Website Build" {
		t.Fatalf("unexpected contract title %q", c.Title)
	}
	if c.Status != domain.ContractDraft {
		t.Fatalf("expected Draft, got %s", c.Status)
	}
	if c.TotalValue != 2000 {
		t.Fatalf("expected contract total 2000, got %v", c.TotalValue)
	}
	if !strings.Contains(c.TermsMD, "Design") || !strings.Contains(c.TermsMD, "Payment Schedule") {
		t.Fatalf("terms missing scope or payment schedule:\n%s", c.TermsMD)
	}

	// Bounce through Sent and back to Accepted; the draft is not duplicated.
	if _, err := env.Engine.SetOfferStatus(env.Ctx, offer.ID, domain.OfferSent, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetOfferStatus(env.Ctx, offer.ID, domain.OfferAccepted, "tester"); err != nil {
		t.Fatal(err)
	}
	contracts, err := env.Engine.Repo.ListContracts(env.Ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(contracts) != 1 {
		t.Fatalf("expected 1 contract, got %d", len(contracts))
	}
}

func TestOfferTotalTracksItems(t *testing.T) {
	env := newTestEnv(t)
	offer, err := env.Engine.CreateOffer(env.Ctx, engine.OfferCreateOptions{Title: "Retainer", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	it, err := env.Engine.AddOfferItem(env.Ctx, offer.ID, "Support hours", 10, 80)
	if err != nil {
		t.Fatal(err)
	}
	assertTotal(t, env, offer.ID, 800)

	if _, err := env.Engine.UpdateOfferItem(env.Ctx, it.ID, "", 20, 80); err != nil {
		t.Fatal(err)
	}
	assertTotal(t, env, offer.ID, 1600)

	if err := env.Engine.RemoveOfferItem(env.Ctx, it.ID); err != nil {
		t.Fatal(err)
	}
	assertTotal(t, env, offer.ID, 0)
}

func assertTotal(t *testing.T, env *testEnv, offerID string, want float64) {
	t.Helper()
	o, err := env.Engine.Repo.GetOffer(env.Ctx, offerID)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalValue != want {
		t.Fatalf("expected total %v, got %v", want, o.TotalValue)
	}
}

func TestContractActivationBumpsClientHealth(t *testing.T) {
	env := newTestEnv(t)
	client := env.mustClient(t, "Acme")
	c, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		ClientID: client.ID, Title: "Retainer 2024", TotalValue: 5000, ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.SetContractStatus(env.Ctx, c.ID, domain.ContractActive, "tester"); err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.Repo.GetClient(env.Ctx, client.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HealthScore != 55 {
		t.Fatalf("expected health 55, got %d", got.HealthScore)
	}

	// Active -> Active is not a transition; no second bump.
	if _, err := env.Engine.SetContractStatus(env.Ctx, c.ID, domain.ContractActive, "tester"); err != nil {
		t.Fatal(err)
	}
	got, _ = env.Engine.Repo.GetClient(env.Ctx, client.ID)
	if got.HealthScore != 55 {
		t.Fatalf("expected health still 55, got %d", got.HealthScore)
	}
}

func TestCurrentTaskIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Build", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	t1, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: p.ID, Title: "first", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	t2, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: p.ID, Title: "second", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.SetCurrentTask(env.Ctx, t1.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetCurrentTask(env.Ctx, t2.ID, "tester"); err != nil {
		t.Fatal(err)
	}

	first, _ := env.Engine.Repo.GetTask(env.Ctx, t1.ID)
	second, _ := env.Engine.Repo.GetTask(env.Ctx, t2.ID)
	if first.IsCurrent {
		t.Fatalf("expected first task cleared")
	}
	if !second.IsCurrent {
		t.Fatalf("expected second task current")
	}

	// Completing the current task drops the marker.
	done := domain.TaskDone
	updated, err := env.Engine.UpdateTask(env.Ctx, t2.ID, engine.TaskUpdate{Status: &done}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if updated.IsCurrent {
		t.Fatalf("expected done task to lose current marker")
	}
	if updated.CompletedAt == nil {
		t.Fatalf("expected completed_at stamp")
	}

	// Reopening clears completed_at.
	todo := domain.TaskTodo
	updated, err = env.Engine.UpdateTask(env.Ctx, t2.ID, engine.TaskUpdate{Status: &todo}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if updated.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared")
	}
}

func TestSprintScopeChangeGrace(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Build", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Engine.CreateSprint(env.Ctx, engine.SprintCreateOptions{ProjectID: p.ID, Goal: "ship", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: p.ID, Title: "work", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}

	// Within the planning grace: moves are free.
	env.advance(30 * time.Second)
	if _, err := env.Engine.MoveTaskToSprint(env.Ctx, task.ID, s.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	got, _ := env.Engine.Repo.GetSprint(env.Ctx, s.ID)
	if got.ScopeChanges != 0 {
		t.Fatalf("expected 0 scope changes inside grace, got %d", got.ScopeChanges)
	}

	// Removing a task never counts, even past the grace.
	env.advance(90 * time.Second)
	if _, err := env.Engine.MoveTaskToSprint(env.Ctx, task.ID, "", "tester"); err != nil {
		t.Fatal(err)
	}
	got, _ = env.Engine.Repo.GetSprint(env.Ctx, s.ID)
	if got.ScopeChanges != 0 {
		t.Fatalf("expected removal to be free, got %d scope changes", got.ScopeChanges)
	}

	// Landing in the sprint past the grace counts against it.
	if _, err := env.Engine.MoveTaskToSprint(env.Ctx, task.ID, s.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	got, _ = env.Engine.Repo.GetSprint(env.Ctx, s.ID)
	if got.ScopeChanges != 1 {
		t.Fatalf("expected 1 scope change past grace, got %d", got.ScopeChanges)
	}

	// Moving to the sprint it is already in is a no-op.
	if _, err := env.Engine.MoveTaskToSprint(env.Ctx, task.ID, s.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	got, _ = env.Engine.Repo.GetSprint(env.Ctx, s.ID)
	if got.ScopeChanges != 1 {
		t.Fatalf("expected no-op move to keep 1 scope change, got %d", got.ScopeChanges)
	}
}

func TestScopeChangeIgnoresCompletedSprint(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Build", ActorID: "tester"})
	s1, err := env.Engine.CreateSprint(env.Ctx, engine.SprintCreateOptions{ProjectID: p.ID, ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CompleteSprint(env.Ctx, s1.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: p.ID, Title: "late", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}

	// Backfilling a closed sprint is not scope churn.
	env.advance(90 * time.Second)
	if _, err := env.Engine.MoveTaskToSprint(env.Ctx, task.ID, s1.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	got, _ := env.Engine.Repo.GetSprint(env.Ctx, s1.ID)
	if got.ScopeChanges != 0 {
		t.Fatalf("expected completed sprint untouched, got %d scope changes", got.ScopeChanges)
	}
}

func TestSkipTaskClearsCurrent(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Build", ActorID: "tester"})
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: p.ID, Title: "work", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetCurrentTask(env.Ctx, task.ID, "tester"); err != nil {
		t.Fatal(err)
	}

	skipped, err := env.Engine.SkipTask(env.Ctx, task.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if skipped.SkipCount != 1 {
		t.Fatalf("expected skip count 1, got %d", skipped.SkipCount)
	}
	if skipped.IsCurrent {
		t.Fatalf("expected skipped task to lose current marker")
	}
	got, _ := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if got.IsCurrent {
		t.Fatalf("expected current marker cleared in storage")
	}
	if got.SkipCount != 1 {
		t.Fatalf("expected persisted skip count 1, got %d", got.SkipCount)
	}
}

func TestMoveTaskRejectsForeignSprint(t *testing.T) {
	env := newTestEnv(t)
	p1, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "One", ActorID: "tester"})
	p2, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Two", ActorID: "tester"})
	s2, err := env.Engine.CreateSprint(env.Ctx, engine.SprintCreateOptions{ProjectID: p2.ID, ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: p1.ID, Title: "work", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.MoveTaskToSprint(env.Ctx, task.ID, s2.ID, "tester"); err == nil {
		t.Fatalf("expected cross-project move to fail")
	}
}

func TestCompleteSprintIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Build", ActorID: "tester"})
	s, err := env.Engine.CreateSprint(env.Ctx, engine.SprintCreateOptions{ProjectID: p.ID, ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CompleteSprint(env.Ctx, s.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	done, err := env.Engine.CompleteSprint(env.Ctx, s.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != domain.SprintCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
}

func TestSubtaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "parent", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.AddSubtask(env.Ctx, task.ID, "step one")
	if err != nil {
		t.Fatal(err)
	}
	task, err = env.Engine.AddSubtask(env.Ctx, task.ID, "step two")
	if err != nil {
		t.Fatal(err)
	}
	subs := domain.DecodeSubtasks(task.SubtasksJSON)
	if len(subs) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(subs))
	}

	task, err = env.Engine.ToggleSubtask(env.Ctx, task.ID, subs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	subs = domain.DecodeSubtasks(task.SubtasksJSON)
	if !subs[0].Completed {
		t.Fatalf("expected first subtask completed")
	}
	if got := domain.SubtaskProgress(subs); got != 50 {
		t.Fatalf("expected 50%% progress, got %d", got)
	}

	if _, err := env.Engine.ToggleSubtask(env.Ctx, task.ID, "missing"); err == nil {
		t.Fatalf("expected toggle of unknown subtask to fail")
	}

	task, err = env.Engine.RemoveSubtask(env.Ctx, task.ID, subs[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(domain.DecodeSubtasks(task.SubtasksJSON)); got != 1 {
		t.Fatalf("expected 1 subtask left, got %d", got)
	}
}

func TestFocusSessionDuration(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Build", ActorID: "tester"})
	s, err := env.Engine.StartFocusSession(env.Ctx, p.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	env.advance(25 * time.Minute)
	ended, err := env.Engine.EndFocusSession(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ended.DurationMinutes != 25 {
		t.Fatalf("expected 25 minutes, got %d", ended.DurationMinutes)
	}
	if _, err := env.Engine.EndFocusSession(env.Ctx, s.ID); err == nil {
		t.Fatalf("expected double end to fail")
	}
}
