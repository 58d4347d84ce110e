package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/repo"
)

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-report",
		Method:        http.MethodPost,
		Path:          "/reports",
		Summary:       "File agent report",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ClientID string `json:"client_id,omitempty"`
			Title    string `json:"title"`
			Body     string `json:"body,omitempty"`
			Severity string `json:"severity,omitempty" enum:"critical,warning,info"`
		} `json:"body"`
	}) (*struct {
		Body domain.AgentReport `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		rep, err := e.CreateAgentReport(ctx, input.Body.ClientID, input.Body.Title, input.Body.Body, input.Body.Severity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AgentReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "List agent reports",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit"`
	}) (*struct {
		Body []domain.AgentReport `json:"body"`
	}, error) {
		items, err := e.Repo.ListAgentReports(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.AgentReport `json:"body"`
		}{Body: items}, nil
	})
}

func registerAuditLogs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit-logs",
		Method:      http.MethodGet,
		Path:        "/audit-logs",
		Summary:     "List audit logs",
		Description: "Newest first. Pass cursor=<smallest id seen> to page backwards.",
	}, func(ctx context.Context, input *struct {
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Severity   string `query:"severity" enum:"Critical,Warning,Info,"`
		Limit      int    `query:"limit"`
		Cursor     int64  `query:"cursor"`
	}) (*struct {
		Body []domain.AuditLog `json:"body"`
	}, error) {
		items, err := e.Repo.ListAuditLogs(ctx, repo.AuditFilters{
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Severity:   input.Severity,
			Limit:      input.Limit,
			Cursor:     input.Cursor,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.AuditLog `json:"body"`
		}{Body: items}, nil
	})
}

func registerRecommendation(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "recommend-next-project",
		Method:      http.MethodGet,
		Path:        "/recommendation",
		Summary:     "Recommend next project",
		Description: "Scores in-flight projects by deadline pressure, overdue and blocked tasks, and neglect.",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Recommendation `json:"body"`
	}, error) {
		rec, err := e.Recommend(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Recommendation `json:"body"`
		}{Body: rec}, nil
	})
}
