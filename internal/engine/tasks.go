package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ventureos/internal/audit"
	"ventureos/internal/domain"
)

// scopeChangeGrace is how long after a sprint starts that tasks can move in
// and out of it without counting as scope churn. Covers initial sprint
// planning.
const scopeChangeGrace = 60 * time.Second

type TaskCreateOptions struct {
	ProjectID   string
	SprintID    string
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	ActorID     string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if opts.Status == "" {
		opts.Status = domain.TaskTodo
	}
	if !validTaskStatus(opts.Status) {
		return domain.Task{}, fmt.Errorf("invalid task status %s", opts.Status)
	}
	if opts.Priority == "" {
		opts.Priority = "Medium"
	}
	if !validTaskPriority(opts.Priority) {
		return domain.Task{}, fmt.Errorf("invalid task priority %s", opts.Priority)
	}
	if opts.ProjectID != "" {
		if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
			return domain.Task{}, err
		}
	}
	if opts.SprintID != "" {
		if _, err := e.Repo.GetSprint(ctx, opts.SprintID); err != nil {
			return domain.Task{}, err
		}
	}
	now := e.nowString()
	t := domain.Task{
		ID:          newID(),
		ProjectID:   optionalString(opts.ProjectID),
		SprintID:    optionalString(opts.SprintID),
		Title:       opts.Title,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		DueDate:     optionalString(opts.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == domain.TaskDone {
		t.CompletedAt = &now
	}
	if err := e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "task", EntityID: t.ID, Action: "task.created",
		Message: fmt.Sprintf("Task %q created", t.Title), ActorID: opts.ActorID,
	})
	return t, nil
}

func validTaskStatus(status string) bool {
	switch status {
	case domain.TaskTodo, domain.TaskInProgress, domain.TaskDone, domain.TaskBlocked:
		return true
	}
	return false
}

func validTaskPriority(priority string) bool {
	switch priority {
	case "Critical", "High", "Medium", "Low":
		return true
	}
	return false
}

// TaskUpdate is a sparse update; nil fields are untouched.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *string
	StoryPoints  *int
	AgentContext *string
}

// UpdateTask applies a sparse update. Entering Done stamps completed_at;
// leaving Done clears it.
func (e Engine) UpdateTask(ctx context.Context, id string, u TaskUpdate, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	prevStatus := t.Status
	if u.Status != nil {
		if !validTaskStatus(*u.Status) {
			return t, fmt.Errorf("invalid task status %s", *u.Status)
		}
		t.Status = *u.Status
	}
	if u.Priority != nil {
		if !validTaskPriority(*u.Priority) {
			return t, fmt.Errorf("invalid task priority %s", *u.Priority)
		}
		t.Priority = *u.Priority
	}
	if u.DueDate != nil {
		if *u.DueDate == "" {
			t.DueDate = nil
		} else {
			t.DueDate = u.DueDate
		}
	}
	if u.StoryPoints != nil {
		t.StoryPoints = *u.StoryPoints
	}
	if u.AgentContext != nil {
		if *u.AgentContext == "" {
			t.AgentContextJSON = nil
		} else {
			t.AgentContextJSON = u.AgentContext
		}
	}
	now := e.nowString()
	if t.Status == domain.TaskDone && prevStatus != domain.TaskDone {
		t.CompletedAt = &now
		t.IsCurrent = false
	}
	if t.Status != domain.TaskDone {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return t, err
	}
	if u.Status != nil && *u.Status != prevStatus {
		e.appendAudit(ctx, audit.Entry{
			EntityKind: "task", EntityID: id, Action: "task.status",
			Message: fmt.Sprintf("Status %s -> %s", prevStatus, *u.Status), ActorID: actorID,
		})
	}
	return t, nil
}

// SetCurrentTask marks a task as the project's single current task. Every
// other task in the project is cleared first, then the chosen task is set.
// The two statements are not atomic; a crash between them leaves the project
// with no current task, which the next call repairs.
func (e Engine) SetCurrentTask(ctx context.Context, id, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	if t.ProjectID == nil {
		return t, errors.New("task has no project")
	}
	if err := e.Repo.ClearCurrentTasks(ctx, *t.ProjectID); err != nil {
		return t, err
	}
	now := e.nowString()
	if err := e.Repo.SetTaskCurrent(ctx, id, true, now); err != nil {
		return t, err
	}
	t.IsCurrent = true
	t.UpdatedAt = now
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "task", EntityID: id, Action: "task.current",
		Message: fmt.Sprintf("Task %q set current", t.Title), ActorID: actorID,
	})
	return t, nil
}

// MoveTaskToSprint assigns a task to a sprint (or removes it when sprintID
// is empty). Landing in an active sprint that started more than the grace
// period ago counts against that sprint's scope_changes; removals are free.
func (e Engine) MoveTaskToSprint(ctx context.Context, id, sprintID, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	var dest *domain.Sprint
	if sprintID != "" {
		s, err := e.Repo.GetSprint(ctx, sprintID)
		if err != nil {
			return t, err
		}
		if t.ProjectID != nil && s.ProjectID != *t.ProjectID {
			return t, errors.New("sprint belongs to a different project")
		}
		dest = &s
	}
	prev := ""
	if t.SprintID != nil {
		prev = *t.SprintID
	}
	if prev == sprintID {
		return t, nil
	}
	t.SprintID = optionalString(sprintID)
	t.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return t, err
	}
	if dest != nil {
		if err := e.recordScopeChange(ctx, *dest); err != nil {
			return t, err
		}
	}
	e.appendAudit(ctx, audit.Entry{
		EntityKind: "task", EntityID: id, Action: "task.sprint",
		Message: fmt.Sprintf("Sprint assignment %q -> %q", prev, sprintID), ActorID: actorID,
	})
	return t, nil
}

// recordScopeChange increments scope_changes on the sprint a task just
// landed in, when that sprint is active and started before the grace window.
func (e Engine) recordScopeChange(ctx context.Context, s domain.Sprint) error {
	if s.Status != domain.SprintActive {
		return nil
	}
	started, err := time.Parse(time.RFC3339, s.StartedAt)
	if err != nil {
		return nil
	}
	if e.now().UTC().Sub(started) <= scopeChangeGrace {
		return nil
	}
	return e.Repo.IncrementScopeChanges(ctx, s.ID)
}

// SkipTask records that the task was passed over. A skipped task also loses
// the current marker so the next pick starts from a clean slate.
func (e Engine) SkipTask(ctx context.Context, id, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	t.SkipCount++
	t.IsCurrent = false
	t.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}

// LogTime adds minutes to the task's running total.
func (e Engine) LogTime(ctx context.Context, id string, minutes int) (domain.Task, error) {
	if minutes <= 0 {
		return domain.Task{}, errors.New("minutes must be positive")
	}
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	t.TimeSpentMinutes += minutes
	t.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}

// --- subtasks ---

func (e Engine) AddSubtask(ctx context.Context, taskID, title string) (domain.Task, error) {
	if title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	return e.mutateSubtasks(ctx, taskID, func(subs []domain.Subtask) ([]domain.Subtask, error) {
		return domain.AddSubtask(subs, newID(), title), nil
	})
}

// ToggleSubtask flips the completed flag on one subtask.
func (e Engine) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (domain.Task, error) {
	return e.mutateSubtasks(ctx, taskID, func(subs []domain.Subtask) ([]domain.Subtask, error) {
		for _, s := range subs {
			if s.ID == subtaskID {
				return domain.ToggleSubtask(subs, subtaskID, !s.Completed), nil
			}
		}
		return nil, errors.New("subtask not found")
	})
}

func (e Engine) RemoveSubtask(ctx context.Context, taskID, subtaskID string) (domain.Task, error) {
	return e.mutateSubtasks(ctx, taskID, func(subs []domain.Subtask) ([]domain.Subtask, error) {
		next := domain.RemoveSubtask(subs, subtaskID)
		if len(next) == len(subs) {
			return nil, errors.New("subtask not found")
		}
		return next, nil
	})
}

func (e Engine) mutateSubtasks(ctx context.Context, taskID string, fn func([]domain.Subtask) ([]domain.Subtask, error)) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	next, err := fn(domain.DecodeSubtasks(t.SubtasksJSON))
	if err != nil {
		return t, err
	}
	encoded, err := domain.EncodeSubtasks(next)
	if err != nil {
		return t, err
	}
	t.SubtasksJSON = encoded
	t.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}
