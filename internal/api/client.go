package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"myspy/internal/domain"
)

// GenericErrorMessage is shown when a failed response carries no error field.
const GenericErrorMessage = "Ocorreu um erro inesperado."

// Client is a minimal My Spy HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Timeout:    10 * time.Second,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError wraps non-2xx responses. Message carries the server-provided
// error string, or a generic fallback when the body had none.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
}

// UserMessage returns the text suitable for surfacing to the user. Any
// error that is not an APIError falls back to the generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericErrorMessage
}

// Session is the result of a successful login.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "api/login", map[string]any{
		"email":    email,
		"password": password,
	}, &resp)
	return resp, err
}

// PendingMission returns the single pending mission for a user, or nil when
// none exists.
func (c *Client) PendingMission(ctx context.Context, userID string) (*domain.Mission, error) {
	var resp struct {
		Mission *domain.Mission `json:"mission"`
	}
	endpoint := "api/missions/my?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Mission, nil
}

// Questionnaire fetches the ordered question list for a mission.
func (c *Client) Questionnaire(ctx context.Context, missionID, userID string) ([]domain.Question, error) {
	var resp struct {
		Questions []domain.Question `json:"questions"`
	}
	endpoint := fmt.Sprintf("api/missions/%s/questionnaire?userId=%s",
		url.PathEscape(missionID), url.QueryEscape(userID))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// AcceptMission confirms check-in; the server returns the updated mission.
func (c *Client) AcceptMission(ctx context.Context, missionID, userID string) (domain.Mission, error) {
	var resp struct {
		Mission domain.Mission `json:"mission"`
	}
	endpoint := fmt.Sprintf("api/missions/%s/accept", url.PathEscape(missionID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"userId": userID}, &resp)
	return resp.Mission, err
}

// RejectMission refuses a mission; terminal for the assignee.
func (c *Client) RejectMission(ctx context.Context, missionID, userID string) error {
	endpoint := fmt.Sprintf("api/missions/%s/reject", url.PathEscape(missionID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{"userId": userID}, nil)
}

// SubmitAnswer records one answer for a mission question.
func (c *Client) SubmitAnswer(ctx context.Context, missionID, userID, questionID string, answer any) error {
	endpoint := fmt.Sprintf("api/missions/%s/answer", url.PathEscape(missionID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{
		"userId":     userID,
		"questionId": questionID,
		"answer":     answer,
	}, nil)
}

// CompleteMission marks a fully answered mission as completed.
func (c *Client) CompleteMission(ctx context.Context, missionID, userID string) error {
	endpoint := fmt.Sprintf("api/missions/%s/complete", url.PathEscape(missionID))
	return c.do(ctx, http.MethodPost, endpoint, map[string]any{"userId": userID}, nil)
}

// CreateMissionRequest carries the creation wizard's output.
type CreateMissionRequest struct {
	TicketValue     float64 `json:"ticketValue"`
	EstablishmentID string  `json:"establishmentId"`
	SpyID           string  `json:"spyId"`
}

// CreateMission posts a new mission assignment.
func (c *Client) CreateMission(ctx context.Context, req CreateMissionRequest) (domain.Mission, error) {
	var resp struct {
		Mission domain.Mission `json:"mission"`
	}
	err := c.do(ctx, http.MethodPost, "api/missions", req, &resp)
	return resp.Mission, err
}

// UserSearch are parameters for the role-filtered user search.
type UserSearch struct {
	Query            string
	Limit            int
	Page             int
	ProfileType      string
	ProfileCompleted bool
}

// UserPage is a paginated user search result.
type UserPage struct {
	Items []domain.User `json:"items"`
	Total int           `json:"total"`
	Pages int           `json:"pages"`
	Page  int           `json:"page"`
}

// SearchUsers queries users by role and free-text term.
func (c *Client) SearchUsers(ctx context.Context, opts UserSearch) (UserPage, error) {
	params := url.Values{}
	params.Set("q", opts.Query)
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.ProfileType != "" {
		params.Set("profileType", opts.ProfileType)
	}
	if opts.ProfileCompleted {
		params.Set("profileCompleted", "true")
	}
	var resp UserPage
	err := c.do(ctx, http.MethodGet, "api/users?"+params.Encode(), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	// The client is shared across goroutines; never write to c here.
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.Timeout}
	}
	fullURL := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error string `json:"error"`
		}
		message := GenericErrorMessage
		if json.Unmarshal(b, &envelope) == nil && envelope.Error != "" {
			message = envelope.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
