// Package engine holds the stub backend's business rules: the server-side
// enforcement of the mission lifecycle the client observes.
package engine

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"myspy/internal/domain"
	"myspy/internal/events"
	"myspy/internal/mission"
	"myspy/internal/repo"
)

// Rule violations surfaced to the client as 4xx errors.
var (
	ErrNotAssignee       = errors.New("missão não pertence a este utilizador")
	ErrNotAcceptable     = errors.New("a missão já não pode ser aceite")
	ErrNotRejectable     = errors.New("a missão já não pode ser recusada")
	ErrNotAnswerable     = errors.New("a missão ainda não foi aceite")
	ErrMissingAnswers    = errors.New("existem perguntas por responder")
	ErrInvalidAnswer     = errors.New("resposta inválida para esta pergunta")
	ErrSpyBusy           = errors.New("o espião já tem uma missão pendente")
	ErrInvalidAssignment = errors.New("estabelecimento ou espião inválido")
	ErrBadCredentials    = errors.New("credenciais inválidas")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// PendingMission returns the user's single non-terminal mission, or nil.
func (e Engine) PendingMission(ctx context.Context, userID string) (*domain.Mission, error) {
	m, err := e.Repo.PendingMissionForSpy(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Questionnaire returns the mission's questions, with recorded answers, in
// server order. Only the assignee may read it.
func (e Engine) Questionnaire(ctx context.Context, missionID, userID string) ([]domain.Question, error) {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if m.SpyID != userID {
		return nil, ErrNotAssignee
	}
	return e.Repo.QuestionsForMission(ctx, missionID)
}

// AcceptMission moves waiting -> accepted and returns the updated mission.
func (e Engine) AcceptMission(ctx context.Context, missionID, userID string) (domain.Mission, error) {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if m.SpyID != userID {
		return domain.Mission{}, ErrNotAssignee
	}
	if !m.Status.CanTransitionTo(domain.StatusAccepted) {
		return domain.Mission{}, ErrNotAcceptable
	}
	if err := e.transition(ctx, &m, domain.StatusAccepted, "mission.accepted", userID, nil); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// RejectMission is terminal from any non-completed state.
func (e Engine) RejectMission(ctx context.Context, missionID, userID string) error {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return err
	}
	if m.SpyID != userID {
		return ErrNotAssignee
	}
	if !m.Status.CanTransitionTo(domain.StatusRejected) {
		return ErrNotRejectable
	}
	return e.transition(ctx, &m, domain.StatusRejected, "mission.rejected", userID, nil)
}

// SubmitAnswer validates and records one answer. The first answer moves the
// mission accepted -> in_progress.
func (e Engine) SubmitAnswer(ctx context.Context, missionID, userID, questionID string, answer any) error {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return err
	}
	if m.SpyID != userID {
		return ErrNotAssignee
	}
	if m.Status != domain.StatusAccepted && m.Status != domain.StatusInProgress {
		return ErrNotAnswerable
	}
	q, err := e.Repo.GetQuestion(ctx, missionID, questionID)
	if err != nil {
		return err
	}
	if err := mission.ValidateAnswer(q, answer); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	valueJSON, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	now := e.nowString()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertAnswerTx(ctx, tx, missionID, questionID, userID, string(valueJSON), now); err != nil {
		return err
	}
	if m.Status == domain.StatusAccepted {
		if err := e.Repo.UpdateMissionStatusTx(ctx, tx, missionID, domain.StatusInProgress, now); err != nil {
			return err
		}
		if err := e.Events.Append(ctx, tx, "mission.started", missionID, userID, nil); err != nil {
			return err
		}
	}
	if err := e.Events.Append(ctx, tx, "mission.answered", missionID, userID, events.EventPayload{"question_id": questionID}); err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteMission moves in_progress -> completed once every question has an
// answer.
func (e Engine) CompleteMission(ctx context.Context, missionID, userID string) error {
	m, err := e.Repo.GetMission(ctx, missionID)
	if err != nil {
		return err
	}
	if m.SpyID != userID {
		return ErrNotAssignee
	}
	if !m.Status.CanTransitionTo(domain.StatusCompleted) {
		return ErrNotAnswerable
	}
	missing, err := e.Repo.UnansweredCount(ctx, missionID)
	if err != nil {
		return err
	}
	if missing > 0 {
		return ErrMissingAnswers
	}
	return e.transition(ctx, &m, domain.StatusCompleted, "mission.completed", userID, nil)
}

// CreateMissionOptions are parameters for creating a mission assignment.
type CreateMissionOptions struct {
	TicketValue     float64
	EstablishmentID string
	SpyID           string
	ActorID         string
	Questions       []domain.Question
}

// CreateMission validates the assignment, creates the mission in waiting
// state, and seeds its questionnaire.
func (e Engine) CreateMission(ctx context.Context, opts CreateMissionOptions) (domain.Mission, error) {
	if opts.TicketValue <= 0 {
		return domain.Mission{}, ErrInvalidAssignment
	}
	est, err := e.Repo.GetUser(ctx, opts.EstablishmentID)
	if err != nil || est.ProfileType != domain.ProfileBusiness {
		return domain.Mission{}, ErrInvalidAssignment
	}
	spy, err := e.Repo.GetUser(ctx, opts.SpyID)
	if err != nil || spy.ProfileType != domain.ProfileIndividual || !spy.ProfileCompleted {
		return domain.Mission{}, ErrInvalidAssignment
	}
	if _, err := e.Repo.PendingMissionForSpy(ctx, opts.SpyID); err == nil {
		return domain.Mission{}, ErrSpyBusy
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Mission{}, err
	}

	now := e.nowString()
	m := domain.Mission{
		ID:                   uuid.NewString(),
		EstablishmentID:      est.ID,
		EstablishmentName:    est.Name,
		EstablishmentAddress: est.Address,
		SpyID:                spy.ID,
		TicketValue:          opts.TicketValue,
		Status:               domain.StatusWaiting,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	questions := opts.Questions
	if len(questions) == 0 {
		questions = DefaultQuestionnaire()
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertMissionTx(ctx, tx, m); err != nil {
		return domain.Mission{}, fmt.Errorf("insert mission: %w", err)
	}
	for i, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if err := e.Repo.InsertQuestionTx(ctx, tx, m.ID, i, q); err != nil {
			return domain.Mission{}, fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	if err := e.Events.Append(ctx, tx, "mission.created", m.ID, opts.ActorID, events.EventPayload{
		"establishment_id": est.ID,
		"spy_id":           spy.ID,
		"ticket_value":     opts.TicketValue,
	}); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// SearchUsers is the role-filtered paginated lookup behind the wizard and
// the admin tables.
func (e Engine) SearchUsers(ctx context.Context, p repo.UserSearchParams) ([]domain.User, int, int, error) {
	items, total, err := e.Repo.SearchUsers(ctx, p)
	if err != nil {
		return nil, 0, 0, err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 8
	}
	pages := (total + limit - 1) / limit
	return items, total, pages, nil
}

// Authenticate checks credentials and returns the user.
func (e Engine) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	hash, err := e.Repo.PasswordHash(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, ErrBadCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if hash == "" || hash != HashPassword(password) {
		return domain.User{}, ErrBadCredentials
	}
	return e.Repo.GetUserByEmail(ctx, email)
}

// HashPassword is the stub's credential hash. Good enough for local
// development data, not for production secrets.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// RegisterUser inserts a user with hashed credentials.
func (e Engine) RegisterUser(ctx context.Context, u domain.User, password string) (domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := e.Repo.InsertUser(ctx, u, HashPassword(password), e.nowString()); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (e Engine) transition(ctx context.Context, m *domain.Mission, target domain.Status, evtType, actorID string, payload events.EventPayload) error {
	now := e.nowString()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateMissionStatusTx(ctx, tx, m.ID, target, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, evtType, m.ID, actorID, payload); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	m.Status = target
	m.UpdatedAt = now
	return nil
}
