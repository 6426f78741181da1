package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myspy/internal/api"
	"myspy/internal/db"
	"myspy/internal/domain"
	"myspy/internal/engine"
	"myspy/internal/migrate"
)

func testServer(t *testing.T) (*api.Client, engine.Engine) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	e := engine.New(conn)
	require.NoError(t, e.SeedDemo(context.Background()))

	handler, err := New(Config{
		Engine: e,
		Auth:   AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.New(srv.URL), e
}

func TestSpyHappyPathOverHTTP(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	m, err := client.PendingMission(ctx, "spy-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, domain.StatusWaiting, m.Status)
	assert.Equal(t, "Tasca do Zé", m.EstablishmentName)

	accepted, err := client.AcceptMission(ctx, m.ID, "spy-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, accepted.Status)

	questions, err := client.Questionnaire(ctx, m.ID, "spy-1")
	require.NoError(t, err)
	require.NotEmpty(t, questions)

	answers := map[domain.QuestionType]any{
		domain.QuestionRating:  4,
		domain.QuestionBoolean: true,
		domain.QuestionText:    "excelente",
		domain.QuestionNumeric: 22.4,
		domain.QuestionUpload:  "data:image/png;base64,AAAA",
	}
	for _, q := range questions {
		require.NoError(t, client.SubmitAnswer(ctx, m.ID, "spy-1", q.ID, answers[q.Type]))
	}
	require.NoError(t, client.CompleteMission(ctx, m.ID, "spy-1"))

	// A completed mission is no longer pending.
	m, err = client.PendingMission(ctx, "spy-1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMissionResumeOverHTTP(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	m, err := client.PendingMission(ctx, "spy-1")
	require.NoError(t, err)
	_, err = client.AcceptMission(ctx, m.ID, "spy-1")
	require.NoError(t, err)

	questions, err := client.Questionnaire(ctx, m.ID, "spy-1")
	require.NoError(t, err)
	require.NoError(t, client.SubmitAnswer(ctx, m.ID, "spy-1", questions[0].ID, 5))

	// A fresh pending lookup returns the in-progress mission so the client
	// can resume mid-questionnaire.
	resumed, err := client.PendingMission(ctx, "spy-1")
	require.NoError(t, err)
	require.NotNil(t, resumed)
	assert.Equal(t, domain.StatusInProgress, resumed.Status)

	questions, err = client.Questionnaire(ctx, m.ID, "spy-1")
	require.NoError(t, err)
	assert.NotNil(t, questions[0].Answer)
	assert.Nil(t, questions[1].Answer)
}

func TestErrorEnvelopeStatuses(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	m, err := client.PendingMission(ctx, "spy-1")
	require.NoError(t, err)

	cases := []struct {
		name   string
		call   func() error
		status int
	}{
		{"wrong assignee", func() error {
			_, err := client.AcceptMission(ctx, m.ID, "spy-2")
			return err
		}, http.StatusForbidden},
		{"answer before accept", func() error {
			return client.SubmitAnswer(ctx, m.ID, "spy-1", "q-any", 4)
		}, http.StatusConflict},
		{"unknown mission", func() error {
			_, err := client.AcceptMission(ctx, "missing", "spy-1")
			return err
		}, http.StatusNotFound},
		{"complete without answers", func() error {
			return client.CompleteMission(ctx, m.ID, "spy-1")
		}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			var apiErr *api.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.NotEmpty(t, apiErr.Message)
			assert.NotEqual(t, api.GenericErrorMessage, apiErr.Message)
		})
	}
}

func TestCreateMissionOverHTTP(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	// spy-1 already holds the seeded mission.
	_, err := client.CreateMission(ctx, api.CreateMissionRequest{
		TicketValue:     30,
		EstablishmentID: "est-2",
		SpyID:           "spy-1",
	})
	require.Error(t, err)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	m, err := client.CreateMission(ctx, api.CreateMissionRequest{
		TicketValue:     30,
		EstablishmentID: "est-2",
		SpyID:           "spy-2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, m.Status)
	assert.Equal(t, "Café Central", m.EstablishmentName)

	pending, err := client.PendingMission(ctx, "spy-2")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, m.ID, pending.ID)
}

func TestSearchUsersOverHTTP(t *testing.T) {
	client, _ := testServer(t)

	page, err := client.SearchUsers(context.Background(), api.UserSearch{
		ProfileType:      domain.ProfileIndividual,
		ProfileCompleted: true,
		Limit:            10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, u := range page.Items {
		assert.Equal(t, domain.ProfileIndividual, u.ProfileType)
	}

	page, err = client.SearchUsers(context.Background(), api.UserSearch{Query: "café", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "est-2", page.Items[0].ID)
}

func TestLoginOverHTTP(t *testing.T) {
	client, _ := testServer(t)

	session, err := client.Login(context.Background(), "ana@myspy.local", "ana")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "spy-1", session.User.ID)

	auth := AuthConfig{JWTSecret: "test-secret"}
	subject, err := auth.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "spy-1", subject)

	_, err = client.Login(context.Background(), "ana@myspy.local", "wrong")
	require.Error(t, err)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "credenciais inválidas", apiErr.Message)
}
