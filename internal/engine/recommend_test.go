package engine_test

import (
	"strings"
	"testing"
	"time"

	"ventureos/internal/domain"
	"ventureos/internal/engine"
)

func TestScoreProject(t *testing.T) {
	now := testStart
	stamp := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }
	overdueTask := func() domain.Task {
		due := stamp(-48 * time.Hour)
		return domain.Task{Status: domain.TaskTodo, DueDate: &due}
	}

	cases := []struct {
		name       string
		signals    engine.ProjectSignals
		wantScore  float64
		wantReason string
	}{
		{
			name: "deadline today with sprint",
			signals: engine.ProjectSignals{
				DeadlineAt:      stamp(0),
				HasActiveSprint: true,
				LastFocusAt:     stamp(-1 * time.Hour),
			},
			// deadline 100*0.30 + sprint 80*0.25
			wantScore:  50,
			wantReason: "Deadline reached",
		},
		{
			name: "quiet project scores zero",
			signals: engine.ProjectSignals{
				LastFocusAt: stamp(-1 * time.Hour),
			},
			wantScore: 0,
		},
		{
			name: "overdue tasks without sprint",
			signals: engine.ProjectSignals{
				OpenTasks:   []domain.Task{overdueTask(), overdueTask(), overdueTask()},
				LastFocusAt: stamp(-1 * time.Hour),
			},
			// overdue 30*0.20
			wantScore:  6,
			wantReason: "3 overdue tasks",
		},
		{
			name: "blocked tasks without sprint",
			signals: engine.ProjectSignals{
				OpenTasks:   []domain.Task{{Status: domain.TaskBlocked}, {Status: domain.TaskBlocked}},
				LastFocusAt: stamp(-1 * time.Hour),
			},
			// blocked 40*0.10
			wantScore:  4,
			wantReason: "2 blocked tasks",
		},
		{
			name: "long neglect is capped",
			signals: engine.ProjectSignals{
				LastFocusAt: stamp(-30 * 24 * time.Hour),
			},
			// neglect capped at 100, *0.20
			wantScore:  20,
			wantReason: "No focus for 30 days",
		},
		{
			name:    "never focused",
			signals: engine.ProjectSignals{},
			// neglect 100*0.20
			wantScore:  20,
			wantReason: "Never focused on",
		},
		{
			name: "near deadline",
			signals: engine.ProjectSignals{
				DeadlineAt:  stamp(2 * 24 * time.Hour),
				LastFocusAt: stamp(-1 * time.Hour),
			},
			// deadline 90*0.40
			wantScore:  36,
			wantReason: "Deadline in 2 days",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, reasons := engine.ScoreProject(now, tc.signals)
			if score != tc.wantScore {
				t.Fatalf("expected score %v, got %v (reasons %v)", tc.wantScore, score, reasons)
			}
			if tc.wantReason != "" {
				joined := strings.Join(reasons, ", ")
				if !strings.Contains(joined, tc.wantReason) {
					t.Fatalf("expected reason %q in %q", tc.wantReason, joined)
				}
			}
		})
	}
}

func TestRecommendPrefersUrgentProject(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: "Calm", Status: domain.ProjectImplement, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	urgent, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: "Urgent", Status: domain.ProjectImplement, ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	due := testStart.Add(-72 * time.Hour).Format(time.RFC3339)
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: urgent.ID, Title: "late deliverable", DueDate: due, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}

	rec, err := env.Engine.Recommend(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Project == nil || rec.Project.ID != urgent.ID {
		t.Fatalf("expected urgent project, got %+v", rec)
	}
	if !strings.Contains(rec.Reason, "overdue") {
		t.Fatalf("expected overdue reason, got %q", rec.Reason)
	}
}

func TestRecommendSprintDeadlineOverridesContract(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: "Sprinting", Status: domain.ProjectImplement, ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	plannedEnd := testStart.Add(24 * time.Hour).Format(time.RFC3339)
	if _, err := env.Engine.CreateSprint(env.Ctx, engine.SprintCreateOptions{
		ProjectID: p.ID, PlannedEndAt: plannedEnd, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}

	rec, err := env.Engine.Recommend(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Project == nil || rec.Project.ID != p.ID {
		t.Fatalf("expected sprinting project, got %+v", rec)
	}
	if !strings.Contains(rec.Reason, "Sprint in progress") {
		t.Fatalf("expected sprint reason, got %q", rec.Reason)
	}
	if !strings.Contains(rec.Reason, "Deadline in 1 day") {
		t.Fatalf("expected sprint deadline reason, got %q", rec.Reason)
	}
}

func TestRecommendFallbacks(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.Engine.Recommend(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Project != nil || rec.Reason != "No active projects found" {
		t.Fatalf("expected empty fallback, got %+v", rec)
	}

	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "Parked", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	rec, err = env.Engine.Recommend(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Project == nil || rec.Project.ID != p.ID {
		t.Fatalf("expected parked project fallback, got %+v", rec)
	}
	if rec.Reason != "Most recently updated project" {
		t.Fatalf("unexpected fallback reason %q", rec.Reason)
	}
}
