package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ventureos/internal/domain"
	"ventureos/internal/repo"
)

// sprintBonus is the fixed activity score granted to a project whose sprint
// is running.
const sprintBonus = 80

// candidateStatuses are the project states the scorer considers in-flight.
var candidateStatuses = []string{
	domain.ProjectDocument,
	domain.ProjectFreeze,
	domain.ProjectImplement,
	domain.ProjectVerify,
}

// ProjectSignals is the per-project snapshot the scorer reads. Assembling it
// is the only part that touches the database; scoring itself is pure.
type ProjectSignals struct {
	Project domain.Project

	// DeadlineAt is the effective deadline: the active sprint's planned end
	// when present, otherwise the linked contract's end date. Empty when
	// neither exists.
	DeadlineAt      string
	OpenTasks       []domain.Task
	HasActiveSprint bool

	// LastFocusAt is the start of the most recent focus session, empty when
	// the project was never focused on.
	LastFocusAt string
}

// Recommendation is the scorer's answer: the suggested project, its score
// and the human-readable justification. Project is nil when there is
// nothing to suggest.
type Recommendation struct {
	Project *domain.Project `json:"project,omitempty"`
	Score   float64         `json:"score"`
	Reason  string          `json:"reason"`
}

// ScoreProject computes the weighted urgency score for one project along
// with the clauses that contributed. Each component is a 0-100 step
// function; the weights depend on whether a sprint is running. Without a
// sprint the weights sum to 0.90, so scores across the two branches are not
// directly comparable; the ranking preserves that behavior.
func ScoreProject(now time.Time, s ProjectSignals) (float64, []string) {
	var reasons []string

	deadline := 0
	if s.DeadlineAt != "" {
		if at, err := time.Parse(time.RFC3339, s.DeadlineAt); err == nil {
			days := int(at.Sub(now).Hours() / 24)
			switch {
			case days <= 0:
				deadline = 100
			case days <= 3:
				deadline = 90
			case days <= 7:
				deadline = 70
			case days <= 14:
				deadline = 40
			default:
				deadline = 10
			}
			if days <= 0 {
				reasons = append(reasons, "Deadline reached")
			} else if days <= 7 {
				reasons = append(reasons, fmt.Sprintf("Deadline in %d %s", days, plural(days, "day")))
			}
		}
	}

	overdueCount, blockedCount := 0, 0
	for _, t := range s.OpenTasks {
		if t.Status == domain.TaskBlocked {
			blockedCount++
		}
		if t.DueDate == nil {
			continue
		}
		if due, err := time.Parse(time.RFC3339, *t.DueDate); err == nil && due.Before(now) {
			overdueCount++
		}
	}
	overdue := capScore(overdueCount * 10)
	if overdueCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d overdue %s", overdueCount, plural(overdueCount, "task")))
	}
	blocked := capScore(blockedCount * 20)
	if blockedCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d blocked %s", blockedCount, plural(blockedCount, "task")))
	}

	neglect := 100
	if s.LastFocusAt == "" {
		reasons = append(reasons, "Never focused on")
	} else if last, err := time.Parse(time.RFC3339, s.LastFocusAt); err == nil {
		days := int(now.Sub(last).Hours() / 24)
		neglect = capScore(days * 10)
		if days >= 3 {
			reasons = append(reasons, fmt.Sprintf("No focus for %d %s", days, plural(days, "day")))
		}
	}

	var score float64
	if s.HasActiveSprint {
		score = float64(deadline)*0.30 + sprintBonus*0.25 + float64(overdue)*0.15 + float64(neglect)*0.15 + float64(blocked)*0.10
		reasons = append(reasons, "Sprint in progress")
	} else {
		score = float64(deadline)*0.40 + float64(overdue)*0.20 + float64(neglect)*0.20 + float64(blocked)*0.10
	}
	return score, reasons
}

func capScore(n int) int {
	if n > 100 {
		return 100
	}
	return n
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

// Recommend suggests the next project to work on. It reads the current
// snapshot on every call; nothing is cached or persisted.
func (e Engine) Recommend(ctx context.Context) (Recommendation, error) {
	candidates, err := e.Repo.ListProjects(ctx, repo.ProjectFilters{Statuses: candidateStatuses, Limit: 10})
	if err != nil {
		return Recommendation{}, err
	}
	if len(candidates) == 0 {
		return e.fallbackRecommendation(ctx)
	}

	ids := make([]string, len(candidates))
	for i, p := range candidates {
		ids[i] = p.ID
	}
	contractEnds, err := e.Repo.ProjectContractEndDates(ctx, ids)
	if err != nil {
		return Recommendation{}, err
	}
	openTasks, err := e.Repo.OpenTasksByProject(ctx, ids)
	if err != nil {
		return Recommendation{}, err
	}
	lastFocus, err := e.Repo.LatestFocusSessions(ctx, ids)
	if err != nil {
		return Recommendation{}, err
	}

	now := e.now().UTC()
	type scored struct {
		project domain.Project
		score   float64
		reasons []string
	}
	results := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		sprint, err := e.Repo.ActiveSprint(ctx, p.ID)
		if err != nil {
			return Recommendation{}, err
		}
		sig := ProjectSignals{
			Project:         p,
			DeadlineAt:      contractEnds[p.ID],
			OpenTasks:       openTasks[p.ID],
			HasActiveSprint: sprint != nil,
			LastFocusAt:     lastFocus[p.ID],
		}
		if sprint != nil && sprint.PlannedEndAt != nil {
			sig.DeadlineAt = *sprint.PlannedEndAt
		}
		score, reasons := ScoreProject(now, sig)
		results = append(results, scored{project: p, score: score, reasons: reasons})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	top := results[0]
	if top.score == 0 {
		return e.fallbackRecommendation(ctx)
	}
	reason := "General maintenance"
	if len(top.reasons) > 0 {
		reason = strings.Join(top.reasons, ", ")
	}
	p := top.project
	return Recommendation{Project: &p, Score: top.score, Reason: reason}, nil
}

// fallbackRecommendation suggests the most recently updated project of any
// status, or reports that there is nothing to work on.
func (e Engine) fallbackRecommendation(ctx context.Context) (Recommendation, error) {
	projects, err := e.Repo.ListProjects(ctx, repo.ProjectFilters{Limit: 1})
	if err != nil {
		return Recommendation{}, err
	}
	if len(projects) == 0 {
		return Recommendation{Reason: "No active projects found"}, nil
	}
	p := projects[0]
	return Recommendation{Project: &p, Reason: "Most recently updated project"}, nil
}
