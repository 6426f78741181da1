package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"myspy/internal/db"
	"myspy/internal/domain"
	"myspy/internal/migrate"
	"myspy/internal/repo"
)

func testEngine(t *testing.T) Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := New(conn)
	e.Now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func seedUsers(t *testing.T, e Engine) {
	t.Helper()
	ctx := context.Background()
	users := []domain.User{
		{ID: "est-1", Name: "Tasca do Zé", Email: "tasca@x.pt", Address: "Rua 1", ProfileType: domain.ProfileBusiness, ProfileCompleted: true},
		{ID: "spy-1", Name: "Ana", Email: "ana@x.pt", ProfileType: domain.ProfileIndividual, ProfileCompleted: true},
		{ID: "spy-2", Name: "Bruno", Email: "bruno@x.pt", ProfileType: domain.ProfileIndividual, ProfileCompleted: true},
		{ID: "spy-3", Name: "Carla", Email: "carla@x.pt", ProfileType: domain.ProfileIndividual, ProfileCompleted: false},
	}
	for _, u := range users {
		if _, err := e.RegisterUser(ctx, u, "pw-"+u.ID); err != nil {
			t.Fatalf("register %s: %v", u.ID, err)
		}
	}
}

func createMission(t *testing.T, e Engine, spyID string) domain.Mission {
	t.Helper()
	m, err := e.CreateMission(context.Background(), CreateMissionOptions{
		TicketValue:     25,
		EstablishmentID: "est-1",
		SpyID:           spyID,
		ActorID:         "admin",
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func TestCreateMissionSeedsQuestionnaire(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	m := createMission(t, e, "spy-1")

	if m.Status != domain.StatusWaiting {
		t.Fatalf("status = %s, want waiting", m.Status)
	}
	if m.EstablishmentName != "Tasca do Zé" || m.EstablishmentAddress != "Rua 1" {
		t.Fatalf("establishment denormalization wrong: %+v", m)
	}
	qs, err := e.Questionnaire(context.Background(), m.ID, "spy-1")
	if err != nil {
		t.Fatalf("questionnaire: %v", err)
	}
	if len(qs) != len(DefaultQuestionnaire()) {
		t.Fatalf("questions = %d, want %d", len(qs), len(DefaultQuestionnaire()))
	}
}

func TestCreateMissionValidation(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()

	if _, err := e.CreateMission(ctx, CreateMissionOptions{TicketValue: 0, EstablishmentID: "est-1", SpyID: "spy-1"}); !errors.Is(err, ErrInvalidAssignment) {
		t.Fatalf("zero ticket: err = %v", err)
	}
	if _, err := e.CreateMission(ctx, CreateMissionOptions{TicketValue: 25, EstablishmentID: "spy-2", SpyID: "spy-1"}); !errors.Is(err, ErrInvalidAssignment) {
		t.Fatalf("non-business establishment: err = %v", err)
	}
	if _, err := e.CreateMission(ctx, CreateMissionOptions{TicketValue: 25, EstablishmentID: "est-1", SpyID: "spy-3"}); !errors.Is(err, ErrInvalidAssignment) {
		t.Fatalf("incomplete spy profile: err = %v", err)
	}

	createMission(t, e, "spy-1")
	if _, err := e.CreateMission(ctx, CreateMissionOptions{TicketValue: 25, EstablishmentID: "est-1", SpyID: "spy-1"}); !errors.Is(err, ErrSpyBusy) {
		t.Fatalf("busy spy: err = %v", err)
	}
}

func TestPendingMission(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()

	if m, err := e.PendingMission(ctx, "spy-1"); err != nil || m != nil {
		t.Fatalf("pending = (%v, %v), want (nil, nil)", m, err)
	}
	created := createMission(t, e, "spy-1")
	m, err := e.PendingMission(ctx, "spy-1")
	if err != nil || m == nil || m.ID != created.ID {
		t.Fatalf("pending = (%v, %v), want mission %s", m, err, created.ID)
	}
	if m, _ := e.PendingMission(ctx, "spy-2"); m != nil {
		t.Fatalf("spy-2 pending = %v, want nil", m)
	}
}

func TestAcceptMissionRules(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()
	m := createMission(t, e, "spy-1")

	if _, err := e.AcceptMission(ctx, m.ID, "spy-2"); !errors.Is(err, ErrNotAssignee) {
		t.Fatalf("wrong user: err = %v", err)
	}
	accepted, err := e.AcceptMission(ctx, m.ID, "spy-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Fatalf("status = %s, want accepted", accepted.Status)
	}
	if _, err := e.AcceptMission(ctx, m.ID, "spy-1"); !errors.Is(err, ErrNotAcceptable) {
		t.Fatalf("double accept: err = %v", err)
	}
}

func TestFirstAnswerStartsMission(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()
	m := createMission(t, e, "spy-1")

	qs, err := e.Questionnaire(ctx, m.ID, "spy-1")
	if err != nil {
		t.Fatalf("questionnaire: %v", err)
	}

	if err := e.SubmitAnswer(ctx, m.ID, "spy-1", qs[0].ID, 4); !errors.Is(err, ErrNotAnswerable) {
		t.Fatalf("answer before accept: err = %v", err)
	}
	if _, err := e.AcceptMission(ctx, m.ID, "spy-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := e.SubmitAnswer(ctx, m.ID, "spy-1", qs[0].ID, 4); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	got, err := e.Repo.GetMission(ctx, m.ID)
	if err != nil {
		t.Fatalf("get mission: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want in_progress after first answer", got.Status)
	}
}

func TestSubmitAnswerValidatesByType(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()
	m := createMission(t, e, "spy-1")
	if _, err := e.AcceptMission(ctx, m.ID, "spy-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	qs, _ := e.Questionnaire(ctx, m.ID, "spy-1")

	if err := e.SubmitAnswer(ctx, m.ID, "spy-1", qs[0].ID, "péssimo"); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("string rating: err = %v", err)
	}
	if err := e.SubmitAnswer(ctx, m.ID, "spy-1", qs[0].ID, float64(7)); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("out of bounds rating: err = %v", err)
	}
}

func TestCompleteRequiresAllAnswers(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()
	m := createMission(t, e, "spy-1")
	if _, err := e.AcceptMission(ctx, m.ID, "spy-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	qs, _ := e.Questionnaire(ctx, m.ID, "spy-1")

	answers := map[domain.QuestionType]any{
		domain.QuestionRating:  float64(4),
		domain.QuestionBoolean: true,
		domain.QuestionText:    "tudo ótimo",
		domain.QuestionNumeric: 18.5,
		domain.QuestionUpload:  "data:image/png;base64,AAAA",
	}
	for i, q := range qs {
		if i == len(qs)-1 {
			break
		}
		if err := e.SubmitAnswer(ctx, m.ID, "spy-1", q.ID, answers[q.Type]); err != nil {
			t.Fatalf("answer %s: %v", q.ID, err)
		}
	}

	if err := e.CompleteMission(ctx, m.ID, "spy-1"); !errors.Is(err, ErrMissingAnswers) {
		t.Fatalf("incomplete: err = %v", err)
	}
	last := qs[len(qs)-1]
	if err := e.SubmitAnswer(ctx, m.ID, "spy-1", last.ID, answers[last.Type]); err != nil {
		t.Fatalf("last answer: %v", err)
	}
	if err := e.CompleteMission(ctx, m.ID, "spy-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := e.Repo.GetMission(ctx, m.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if err := e.CompleteMission(ctx, m.ID, "spy-1"); err == nil {
		t.Fatal("completed mission completed again")
	}
}

func TestRejectIsTerminal(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()
	m := createMission(t, e, "spy-1")

	if err := e.RejectMission(ctx, m.ID, "spy-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := e.Repo.GetMission(ctx, m.ID)
	if got.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
	if err := e.RejectMission(ctx, m.ID, "spy-1"); !errors.Is(err, ErrNotRejectable) {
		t.Fatalf("double reject: err = %v", err)
	}
	if _, err := e.AcceptMission(ctx, m.ID, "spy-1"); !errors.Is(err, ErrNotAcceptable) {
		t.Fatalf("accept after reject: err = %v", err)
	}
	// The rejected mission no longer counts as pending.
	if pm, _ := e.PendingMission(ctx, "spy-1"); pm != nil {
		t.Fatalf("pending = %v after reject, want nil", pm)
	}
}

func TestQuestionnaireResumeCarriesAnswers(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()
	m := createMission(t, e, "spy-1")
	if _, err := e.AcceptMission(ctx, m.ID, "spy-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	qs, _ := e.Questionnaire(ctx, m.ID, "spy-1")
	if err := e.SubmitAnswer(ctx, m.ID, "spy-1", qs[0].ID, float64(3)); err != nil {
		t.Fatalf("answer: %v", err)
	}

	resumed, err := e.Questionnaire(ctx, m.ID, "spy-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed[0].Answer == nil {
		t.Fatal("recorded answer missing on resume")
	}
	if n, ok := resumed[0].Answer.(float64); !ok || n != 3 {
		t.Fatalf("resumed answer = %#v, want 3", resumed[0].Answer)
	}
	for _, q := range resumed[1:] {
		if q.Answer != nil {
			t.Fatalf("unanswered question %s carries answer %v", q.ID, q.Answer)
		}
	}
}

func TestSearchUsersFilters(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()

	completed := true
	items, total, pages, err := e.SearchUsers(ctx, repo.UserSearchParams{
		ProfileType:      domain.ProfileIndividual,
		ProfileCompleted: &completed,
		Limit:            1,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 || pages != 2 || len(items) != 1 {
		t.Fatalf("total=%d pages=%d items=%d, want 2/2/1", total, pages, len(items))
	}

	items, _, _, err = e.SearchUsers(ctx, repo.UserSearchParams{Query: "tasca", Limit: 10})
	if err != nil {
		t.Fatalf("query search: %v", err)
	}
	if len(items) != 1 || items[0].ID != "est-1" {
		t.Fatalf("items = %v, want est-1", items)
	}
}

func TestAuthenticate(t *testing.T) {
	e := testEngine(t)
	seedUsers(t, e)
	ctx := context.Background()

	u, err := e.Authenticate(ctx, "ana@x.pt", "pw-spy-1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != "spy-1" {
		t.Fatalf("user = %v", u)
	}
	if _, err := e.Authenticate(ctx, "ana@x.pt", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}
	if _, err := e.Authenticate(ctx, "nobody@x.pt", "x"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown email: err = %v", err)
	}
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	if err := e.SeedDemo(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := e.SeedDemo(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	m, err := e.PendingMission(ctx, "spy-1")
	if err != nil || m == nil {
		t.Fatalf("seeded pending = (%v, %v)", m, err)
	}
	var count int
	if err := e.DB.QueryRow(`SELECT count(*) FROM missions`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("missions = %d after double seed, want 1", count)
	}
}
