package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/repo"
)

func registerClients(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/clients",
		Summary:       "Create client",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name    string `json:"name"`
			Company string `json:"company,omitempty"`
			Email   string `json:"email,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateClient(ctx, input.Body.Name, input.Body.Company, input.Body.Email, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "List clients",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Client `json:"body"`
	}, error) {
		items, err := e.Repo.ListClients(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Client `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client",
		Method:      http.MethodGet,
		Path:        "/clients/{client_id}",
		Summary:     "Get client",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"client_id"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		c, err := e.Repo.GetClient(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-client",
		Method:      http.MethodPatch,
		Path:        "/clients/{client_id}",
		Summary:     "Update client",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"client_id"`
		Body     struct {
			Name        *string `json:"name,omitempty"`
			Company     *string `json:"company,omitempty"`
			Email       *string `json:"email,omitempty"`
			HealthScore *int    `json:"health_score,omitempty" minimum:"0" maximum:"100"`
		} `json:"body"`
	}) (*struct {
		Body domain.Client `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		u := repo.ClientUpdate{
			Name:        input.Body.Name,
			Company:     input.Body.Company,
			Email:       input.Body.Email,
			HealthScore: input.Body.HealthScore,
		}
		if err := e.Repo.UpdateClient(ctx, input.ClientID, u, e.Now().UTC().Format(timeLayout)); err != nil {
			return nil, handleError(err)
		}
		c, err := e.Repo.GetClient(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Client `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-client",
		Method:      http.MethodDelete,
		Path:        "/clients/{client_id}",
		Summary:     "Delete client",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"client_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteClient(ctx, input.ClientID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerOpportunities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-opportunity",
		Method:        http.MethodPost,
		Path:          "/opportunities",
		Summary:       "Create opportunity",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ClientID       string  `json:"client_id,omitempty"`
			Title          string  `json:"title"`
			EstimatedValue float64 `json:"estimated_value,omitempty"`
			Probability    int     `json:"probability,omitempty" minimum:"0" maximum:"100"`
		} `json:"body"`
	}) (*struct {
		Body domain.Opportunity `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.CreateOpportunity(ctx, engine.OpportunityCreateOptions{
			ClientID:       input.Body.ClientID,
			Title:          input.Body.Title,
			EstimatedValue: input.Body.EstimatedValue,
			Probability:    input.Body.Probability,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Opportunity `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-opportunities",
		Method:      http.MethodGet,
		Path:        "/opportunities",
		Summary:     "List opportunities",
	}, func(ctx context.Context, input *struct {
		Stage string `query:"stage"`
	}) (*struct {
		Body []domain.Opportunity `json:"body"`
	}, error) {
		items, err := e.Repo.ListOpportunities(ctx, input.Stage)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Opportunity `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-opportunity",
		Method:      http.MethodGet,
		Path:        "/opportunities/{opportunity_id}",
		Summary:     "Get opportunity",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OpportunityID string `path:"opportunity_id"`
	}) (*struct {
		Body domain.Opportunity `json:"body"`
	}, error) {
		o, err := e.Repo.GetOpportunity(ctx, input.OpportunityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Opportunity `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-opportunity-stage",
		Method:      http.MethodPost,
		Path:        "/opportunities/{opportunity_id}/stage",
		Summary:     "Set opportunity stage",
		Description: "Moving to Won stamps won_at and bootstraps a delivery project.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OpportunityID string `path:"opportunity_id"`
		Body          struct {
			Stage string `json:"stage" enum:"Draft,Price Offer Sent,Negotiating,Won,Lost"`
		} `json:"body"`
	}) (*struct {
		Body domain.Opportunity `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.SetOpportunityStage(ctx, input.OpportunityID, input.Body.Stage, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Opportunity `json:"body"`
		}{Body: o}, nil
	})
}

func registerOffers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-offer",
		Method:        http.MethodPost,
		Path:          "/offers",
		Summary:       "Create price offer",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ClientID      string `json:"client_id,omitempty"`
			OpportunityID string `json:"opportunity_id,omitempty"`
			Title         string `json:"title"`
		} `json:"body"`
	}) (*struct {
		Body domain.PriceOffer `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.CreateOffer(ctx, engine.OfferCreateOptions{
			ClientID:      input.Body.ClientID,
			OpportunityID: input.Body.OpportunityID,
			Title:         input.Body.Title,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PriceOffer `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-offers",
		Method:      http.MethodGet,
		Path:        "/offers",
		Summary:     "List price offers",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body []domain.PriceOffer `json:"body"`
	}, error) {
		items, err := e.Repo.ListOffers(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.PriceOffer `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-offer",
		Method:      http.MethodGet,
		Path:        "/offers/{offer_id}",
		Summary:     "Get price offer with items",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OfferID string `path:"offer_id"`
	}) (*struct {
		Body domain.PriceOffer `json:"body"`
	}, error) {
		o, err := e.Repo.GetOffer(ctx, input.OfferID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PriceOffer `json:"body"`
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-offer-item",
		Method:        http.MethodPost,
		Path:          "/offers/{offer_id}/items",
		Summary:       "Add offer line item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OfferID string `path:"offer_id"`
		Body    struct {
			Description string  `json:"description"`
			Quantity    float64 `json:"quantity"`
			UnitPrice   float64 `json:"unit_price"`
		} `json:"body"`
	}) (*struct {
		Body domain.OfferItem `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		it, err := e.AddOfferItem(ctx, input.OfferID, input.Body.Description, input.Body.Quantity, input.Body.UnitPrice)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OfferItem `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-offer-item",
		Method:      http.MethodPatch,
		Path:        "/offers/{offer_id}/items/{item_id}",
		Summary:     "Update offer line item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OfferID string `path:"offer_id"`
		ItemID  string `path:"item_id"`
		Body    struct {
			Description string  `json:"description,omitempty"`
			Quantity    float64 `json:"quantity"`
			UnitPrice   float64 `json:"unit_price"`
		} `json:"body"`
	}) (*struct {
		Body domain.OfferItem `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		it, err := e.UpdateOfferItem(ctx, input.ItemID, input.Body.Description, input.Body.Quantity, input.Body.UnitPrice)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OfferItem `json:"body"`
		}{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-offer-item",
		Method:      http.MethodDelete,
		Path:        "/offers/{offer_id}/items/{item_id}",
		Summary:     "Remove offer line item",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OfferID string `path:"offer_id"`
		ItemID  string `path:"item_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveOfferItem(ctx, input.ItemID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-offer-status",
		Method:      http.MethodPost,
		Path:        "/offers/{offer_id}/status",
		Summary:     "Set offer status",
		Description: "Moving to Accepted drafts a contract from the offer.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OfferID string `path:"offer_id"`
		Body    struct {
			Status string `json:"status" enum:"Draft,Sent,Accepted,Rejected,Expired"`
		} `json:"body"`
	}) (*struct {
		Body domain.PriceOffer `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.SetOfferStatus(ctx, input.OfferID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PriceOffer `json:"body"`
		}{Body: o}, nil
	})
}

func registerContracts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contract",
		Method:        http.MethodPost,
		Path:          "/contracts",
		Summary:       "Create contract",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			ClientID      string  `json:"client_id,omitempty"`
			OpportunityID string  `json:"opportunity_id,omitempty"`
			PriceOfferID  string  `json:"price_offer_id,omitempty"`
			Title         string  `json:"title"`
			TotalValue    float64 `json:"total_value,omitempty"`
			TermsMD       string  `json:"terms_md,omitempty"`
			StartDate     string  `json:"start_date,omitempty" format:"date-time"`
			EndDate       string  `json:"end_date,omitempty" format:"date-time"`
		} `json:"body"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateContract(ctx, engine.ContractCreateOptions{
			ClientID:      input.Body.ClientID,
			OpportunityID: input.Body.OpportunityID,
			PriceOfferID:  input.Body.PriceOfferID,
			Title:         input.Body.Title,
			TotalValue:    input.Body.TotalValue,
			TermsMD:       input.Body.TermsMD,
			StartDate:     input.Body.StartDate,
			EndDate:       input.Body.EndDate,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contracts",
		Method:      http.MethodGet,
		Path:        "/contracts",
		Summary:     "List contracts",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body []domain.Contract `json:"body"`
	}, error) {
		items, err := e.Repo.ListContracts(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Contract `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contract",
		Method:      http.MethodGet,
		Path:        "/contracts/{contract_id}",
		Summary:     "Get contract",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ContractID string `path:"contract_id"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		c, err := e.Repo.GetContract(ctx, input.ContractID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-contract-status",
		Method:      http.MethodPost,
		Path:        "/contracts/{contract_id}/status",
		Summary:     "Set contract status",
		Description: "Moving to Active bumps the owning client's health score.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ContractID string `path:"contract_id"`
		Body       struct {
			Status string `json:"status" enum:"Draft,Pending Signature,Active,Completed,Terminated"`
		} `json:"body"`
	}) (*struct {
		Body domain.Contract `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetContractStatus(ctx, input.ContractID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Contract `json:"body"`
		}{Body: c}, nil
	})
}
