package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/repo"
)

const timeLayout = time.RFC3339

// TaskView is a task plus its derived subtask progress.
type TaskView struct {
	domain.Task
	Subtasks        []domain.Subtask `json:"subtasks,omitempty"`
	SubtaskProgress int              `json:"subtask_progress"`
}

func taskView(t domain.Task) TaskView {
	subs := domain.DecodeSubtasks(t.SubtasksJSON)
	return TaskView{Task: t, Subtasks: subs, SubtaskProgress: domain.SubtaskProgress(subs)}
}

func taskViews(tasks []domain.Task) []TaskView {
	out := make([]TaskView, len(tasks))
	for i, t := range tasks {
		out[i] = taskView(t)
	}
	return out
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name       string `json:"name"`
			ClientID   string `json:"client_id,omitempty"`
			ContractID string `json:"contract_id,omitempty"`
			Status     string `json:"status,omitempty" enum:"Backlog,Understand,Document,Freeze,Implement,Verify"`
		} `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			Name:       input.Body.Name,
			ClientID:   input.Body.ClientID,
			ContractID: input.Body.ContractID,
			Status:     input.Body.Status,
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		f := repo.ProjectFilters{Limit: input.Limit}
		if input.Status != "" {
			f.Statuses = []string{input.Status}
		}
		items, err := e.Repo.ListProjects(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Name     *string `json:"name,omitempty"`
			Status   *string `json:"status,omitempty" enum:"Backlog,Understand,Document,Freeze,Implement,Verify"`
			Progress *int    `json:"progress,omitempty" minimum:"0" maximum:"100"`
			IsFrozen *bool   `json:"is_frozen,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, input.ProjectID, repo.ProjectUpdate{
			Name:     input.Body.Name,
			Status:   input.Body.Status,
			Progress: input.Body.Progress,
			IsFrozen: input.Body.IsFrozen,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-lifecycle",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/lifecycle",
		Summary:     "Get project lifecycle",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Lifecycle `json:"body"`
	}, error) {
		l, err := e.Repo.GetLifecycleByProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Lifecycle `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-project-lifecycle",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/lifecycle/stage",
		Summary:     "Advance lifecycle stage",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Stage string `json:"stage"`
		} `json:"body"`
	}) (*struct {
		Body domain.Lifecycle `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.AdvanceLifecycle(ctx, input.ProjectID, input.Body.Stage, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Lifecycle `json:"body"`
		}{Body: l}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ProjectID   string `json:"project_id,omitempty"`
			SprintID    string `json:"sprint_id,omitempty"`
			Title       string `json:"title"`
			Description string `json:"description,omitempty"`
			Status      string `json:"status,omitempty" enum:"Todo,In Progress,Done,Blocked"`
			Priority    string `json:"priority,omitempty" enum:"Critical,High,Medium,Low"`
			DueDate     string `json:"due_date,omitempty" format:"date-time"`
		} `json:"body"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ProjectID:   input.Body.ProjectID,
			SprintID:    input.Body.SprintID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			DueDate:     input.Body.DueDate,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
		SprintID  string `query:"sprint_id"`
		Status    string `query:"status"`
		Limit     int    `query:"limit"`
	}) (*struct {
		Body []TaskView `json:"body"`
	}, error) {
		items, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			ProjectID: input.ProjectID,
			SprintID:  input.SprintID,
			Status:    input.Status,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TaskView `json:"body"`
		}{Body: taskViews(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Description: "Entering Done stamps completed_at; leaving Done clears it.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   struct {
			Title        *string `json:"title,omitempty"`
			Description  *string `json:"description,omitempty"`
			Status       *string `json:"status,omitempty" enum:"Todo,In Progress,Done,Blocked"`
			Priority     *string `json:"priority,omitempty" enum:"Critical,High,Medium,Low"`
			DueDate      *string `json:"due_date,omitempty"`
			StoryPoints  *int    `json:"story_points,omitempty" minimum:"0"`
			AgentContext *string `json:"agent_context,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, input.TaskID, engine.TaskUpdate{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Status:       input.Body.Status,
			Priority:     input.Body.Priority,
			DueDate:      input.Body.DueDate,
			StoryPoints:  input.Body.StoryPoints,
			AgentContext: input.Body.AgentContext,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-current-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/current",
		Summary:     "Set current task",
		Description: "Clears is_current on every other task in the project.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SetCurrentTask(ctx, input.TaskID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task-to-sprint",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/sprint",
		Summary:     "Move task to sprint",
		Description: "Moves against a sprint past its planning grace count as scope changes.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   struct {
			SprintID string `json:"sprint_id,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.MoveTaskToSprint(ctx, input.TaskID, input.Body.SprintID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "skip-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/skip",
		Summary:     "Skip task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SkipTask(ctx, input.TaskID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "log-task-time",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/time",
		Summary:     "Log time on task",
		Description: "Adds minutes to the running total. Callers may repeat or miss ticks; the count is best effort.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   struct {
			Minutes int `json:"minutes" minimum:"1"`
		} `json:"body"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		t, err := e.LogTime(ctx, input.TaskID, input.Body.Minutes)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-subtask",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/subtasks",
		Summary:       "Add subtask",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   struct {
			Title string `json:"title"`
		} `json:"body"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		t, err := e.AddSubtask(ctx, input.TaskID, input.Body.Title)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-subtask",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/subtasks/{subtask_id}/toggle",
		Summary:     "Toggle subtask",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID    string `path:"task_id"`
		SubtaskID string `path:"subtask_id"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		t, err := e.ToggleSubtask(ctx, input.TaskID, input.SubtaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-subtask",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}/subtasks/{subtask_id}",
		Summary:     "Remove subtask",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID    string `path:"task_id"`
		SubtaskID string `path:"subtask_id"`
	}) (*struct {
		Body TaskView `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		t, err := e.RemoveSubtask(ctx, input.TaskID, input.SubtaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskView `json:"body"`
		}{Body: taskView(t)}, nil
	})
}

func registerSprints(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-sprint",
		Method:        http.MethodPost,
		Path:          "/sprints",
		Summary:       "Start sprint",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ProjectID    string `json:"project_id"`
			Goal         string `json:"goal,omitempty"`
			PlannedEndAt string `json:"planned_end_at,omitempty" format:"date-time"`
		} `json:"body"`
	}) (*struct {
		Body domain.Sprint `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSprint(ctx, engine.SprintCreateOptions{
			ProjectID:    input.Body.ProjectID,
			Goal:         input.Body.Goal,
			PlannedEndAt: input.Body.PlannedEndAt,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sprint `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sprints",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/sprints",
		Summary:     "List project sprints",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.Sprint `json:"body"`
	}, error) {
		items, err := e.Repo.ListSprints(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Sprint `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-sprint",
		Method:      http.MethodPost,
		Path:        "/sprints/{sprint_id}/complete",
		Summary:     "Complete sprint",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SprintID string `path:"sprint_id"`
	}) (*struct {
		Body domain.Sprint `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CompleteSprint(ctx, input.SprintID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sprint `json:"body"`
		}{Body: s}, nil
	})
}

func registerFocusSessions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-focus-session",
		Method:        http.MethodPost,
		Path:          "/focus-sessions",
		Summary:       "Start focus session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ProjectID string `json:"project_id"`
			TaskID    string `json:"task_id,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.FocusSession `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		s, err := e.StartFocusSession(ctx, input.Body.ProjectID, input.Body.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FocusSession `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "end-focus-session",
		Method:      http.MethodPost,
		Path:        "/focus-sessions/{session_id}/end",
		Summary:     "End focus session",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*struct {
		Body domain.FocusSession `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		s, err := e.EndFocusSession(ctx, input.SessionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FocusSession `json:"body"`
		}{Body: s}, nil
	})
}

func registerDeployments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-deployment",
		Method:        http.MethodPost,
		Path:          "/deployments",
		Summary:       "Create deployment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ProjectID   string `json:"project_id"`
			Name        string `json:"name"`
			Environment string `json:"environment,omitempty"`
			URL         string `json:"url,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Deployment `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDeployment(ctx, engine.DeploymentCreateOptions{
			ProjectID:   input.Body.ProjectID,
			Name:        input.Body.Name,
			Environment: input.Body.Environment,
			URL:         input.Body.URL,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Deployment `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deployments",
		Method:      http.MethodGet,
		Path:        "/deployments",
		Summary:     "List deployments",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id"`
	}) (*struct {
		Body []domain.Deployment `json:"body"`
	}, error) {
		items, err := e.Repo.ListDeployments(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Deployment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-deployment-status",
		Method:      http.MethodPost,
		Path:        "/deployments/{deployment_id}/status",
		Summary:     "Set deployment status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DeploymentID string `path:"deployment_id"`
		Body         struct {
			Status string `json:"status"`
		} `json:"body"`
	}) (*struct {
		Body domain.Deployment `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.SetDeploymentStatus(ctx, input.DeploymentID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Deployment `json:"body"`
		}{Body: d}, nil
	})
}
