// Package server exposes the development stub of the My Spy backend: the
// wire contract the client is written against, backed by workspace sqlite.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"myspy/internal/engine"
	"myspy/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine engine.Engine
	Auth   AuthConfig
}

// apiError models the {error: string} envelope every non-2xx response
// carries.
type apiError struct {
	status  int
	Message string `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, message string) *apiError {
	return &apiError{status: status, Message: message}
}

// New returns an HTTP handler exposing the My Spy stub API.
func New(cfg Config) (http.Handler, error) {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, msg)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("My Spy Stub API", "0.1.0")
	hcfg.Servers = []*huma.Server{{URL: "/api"}}
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)

	e := cfg.Engine
	registerMissions(api, e)
	registerUsers(api, e)
	registerAuth(api, e, cfg.Auth)
	registerHealth(api)

	root := chi.NewRouter()
	root.Mount("/api", router)
	return root, nil
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "pending-mission",
		Method:      http.MethodGet,
		Path:        "/missions/my",
		Summary:     "Pending mission for a user",
	}, func(ctx context.Context, input *struct {
		UserID string `query:"userId"`
	}) (*struct {
		Body MissionEnvelope
	}, error) {
		if input.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "userId é obrigatório")
		}
		m, err := e.PendingMission(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{ Body MissionEnvelope }{Body: MissionEnvelope{Mission: m}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mission-questionnaire",
		Method:      http.MethodGet,
		Path:        "/missions/{id}/questionnaire",
		Summary:     "Questionnaire for a mission",
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		UserID string `query:"userId"`
	}) (*struct {
		Body QuestionsEnvelope
	}, error) {
		questions, err := e.Questionnaire(ctx, input.ID, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{ Body QuestionsEnvelope }{Body: QuestionsEnvelope{Questions: questions}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-mission",
		Method:      http.MethodPost,
		Path:        "/missions/{id}/accept",
		Summary:     "Accept a mission (check-in confirmation)",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UserActionRequest
	}) (*struct {
		Body MissionEnvelope
	}, error) {
		m, err := e.AcceptMission(ctx, input.ID, input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{ Body MissionEnvelope }{Body: MissionEnvelope{Mission: &m}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-mission",
		Method:      http.MethodPost,
		Path:        "/missions/{id}/reject",
		Summary:     "Reject a mission",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UserActionRequest
	}) (*struct{}, error) {
		if err := e.RejectMission(ctx, input.ID, input.Body.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-answer",
		Method:      http.MethodPost,
		Path:        "/missions/{id}/answer",
		Summary:     "Submit one questionnaire answer",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body AnswerRequest
	}) (*struct{}, error) {
		if err := e.SubmitAnswer(ctx, input.ID, input.Body.UserID, input.Body.QuestionID, input.Body.Answer); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-mission",
		Method:      http.MethodPost,
		Path:        "/missions/{id}/complete",
		Summary:     "Complete a fully answered mission",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UserActionRequest
	}) (*struct{}, error) {
		if err := e.CompleteMission(ctx, input.ID, input.Body.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create a mission assignment",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest
	}) (*struct {
		Body MissionEnvelope
	}, error) {
		m, err := e.CreateMission(ctx, engine.CreateMissionOptions{
			TicketValue:     input.Body.TicketValue,
			EstablishmentID: input.Body.EstablishmentID,
			SpyID:           input.Body.SpyID,
			ActorID:         "admin",
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{ Body MissionEnvelope }{Body: MissionEnvelope{Mission: &m}}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "search-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "Search users by role",
	}, func(ctx context.Context, input *struct {
		Query            string `query:"q"`
		Limit            int    `query:"limit"`
		Page             int    `query:"page"`
		ProfileType      string `query:"profileType"`
		ProfileCompleted bool   `query:"profileCompleted"`
	}) (*struct {
		Body UserPageResponse
	}, error) {
		params := repo.UserSearchParams{
			Query:       input.Query,
			Limit:       input.Limit,
			Page:        input.Page,
			ProfileType: input.ProfileType,
		}
		if input.ProfileCompleted {
			completed := true
			params.ProfileCompleted = &completed
		}
		items, total, pages, err := e.SearchUsers(ctx, params)
		if err != nil {
			return nil, handleError(err)
		}
		page := input.Page
		if page <= 0 {
			page = 1
		}
		return &struct{ Body UserPageResponse }{Body: UserPageResponse{
			Items: items,
			Total: total,
			Pages: pages,
			Page:  page,
		}}, nil
	})
}

func registerAuth(api huma.API, e engine.Engine, auth AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/login",
		Summary:     "Exchange credentials for a session token",
	}, func(ctx context.Context, input *struct {
		Body LoginRequest
	}) (*struct {
		Body LoginResponse
	}, error) {
		u, err := e.Authenticate(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := auth.IssueToken(u, e.Now())
		if err != nil {
			auth.logger().Printf("issue token for %s: %v", u.ID, err)
			return nil, newAPIError(http.StatusInternalServerError, "não foi possível iniciar sessão")
		}
		return &struct{ Body LoginResponse }{Body: LoginResponse{Token: token, User: u}}, nil
	})
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string
	}, error) {
		return &struct{ Body map[string]string }{Body: map[string]string{"status": "ok"}}, nil
	})
}

// handleError maps engine and repo failures onto the error envelope.
func handleError(err error) huma.StatusError {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "registo não encontrado")
	case errors.Is(err, engine.ErrBadCredentials):
		return newAPIError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, engine.ErrNotAssignee):
		return newAPIError(http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrNotAcceptable),
		errors.Is(err, engine.ErrNotRejectable),
		errors.Is(err, engine.ErrNotAnswerable),
		errors.Is(err, engine.ErrMissingAnswers),
		errors.Is(err, engine.ErrSpyBusy):
		return newAPIError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidAnswer),
		errors.Is(err, engine.ErrInvalidAssignment):
		return newAPIError(http.StatusBadRequest, err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "ocorreu um erro inesperado")
	}
}
