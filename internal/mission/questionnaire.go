package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"myspy/internal/domain"
)

var (
	// ErrSubmissionInFlight is returned while a previous submission is
	// still pending; the call is a no-op.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrQuestionnaireCompleted is returned once the terminal state was
	// reached.
	ErrQuestionnaireCompleted = errors.New("questionnaire already completed")
	// ErrNoQuestions is returned when the mission carries no questions.
	ErrNoQuestions = errors.New("mission has no questions")
)

// Engine drives a user through the ordered question list of one mission.
// It owns the answer map and the current index; the mission copy it holds
// is a snapshot reconciled upward through events, never shared storage.
type Engine struct {
	mu         sync.Mutex
	svc        Service
	userID     string
	mission    domain.Mission
	questions  []domain.Question
	answers    map[string]any
	index      int
	submitting bool
	completed  bool
}

// NewEngine seeds the answer map from server-supplied answers and positions
// the index at the first unanswered question, or the last question when all
// are answered (resumed session).
func NewEngine(svc Service, userID string, m domain.Mission, questions []domain.Question) *Engine {
	e := &Engine{
		svc:       svc,
		userID:    userID,
		mission:   m,
		questions: questions,
		answers:   make(map[string]any, len(questions)),
	}
	for _, q := range questions {
		if q.Answer != nil {
			e.answers[q.ID] = q.Answer
		}
	}
	e.index = e.firstUnanswered(0)
	if e.index == -1 {
		e.index = len(questions) - 1
	}
	if e.index < 0 {
		e.index = 0
	}
	return e
}

// Current returns the question at the current index.
func (e *Engine) Current() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return domain.Question{}, false
	}
	return e.questions[e.index], true
}

func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

func (e *Engine) Total() int { return len(e.questions) }

// Progress returns the rounded completion percentage shown above the
// question card.
func (e *Engine) Progress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return 0
	}
	return (e.index + 1) * 100 / len(e.questions)
}

func (e *Engine) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

func (e *Engine) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// Mission returns the engine's snapshot of the mission.
func (e *Engine) Mission() domain.Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mission
}

// AnswerFor returns the recorded answer for a question id, used to
// pre-populate an answered question on back navigation.
func (e *Engine) AnswerFor(questionID string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.answers[questionID]
	return v, ok
}

// Answered reports how many questions have a recorded answer.
func (e *Engine) Answered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.answers)
}

// SubmitAnswer validates and submits the answer for the current question.
// On success it records the answer, reports the first-answer status
// transition, advances to the next unanswered question, and triggers
// mission completion when none remain. Events already emitted stay valid
// even when the trailing completion call fails; the recorded answer is
// never rolled back.
func (e *Engine) SubmitAnswer(ctx context.Context, value any) ([]Event, error) {
	e.mu.Lock()
	if e.completed {
		e.mu.Unlock()
		return nil, ErrQuestionnaireCompleted
	}
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if len(e.questions) == 0 {
		e.mu.Unlock()
		return nil, ErrNoQuestions
	}
	q := e.questions[e.index]
	if err := ValidateAnswer(q, value); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.submitting = true
	missionID := e.mission.ID
	e.mu.Unlock()

	if err := e.svc.SubmitAnswer(ctx, missionID, e.userID, q.ID, value); err != nil {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
		return nil, fmt.Errorf("submit answer: %w", err)
	}

	e.mu.Lock()
	e.answers[q.ID] = value
	var events []Event
	if e.mission.Status == domain.StatusAccepted {
		e.mission.Status = domain.StatusInProgress
		events = append(events, StatusChanged{Status: domain.StatusInProgress})
	}
	next := e.firstUnanswered(e.index + 1)
	if next == -1 && len(e.answers) == len(e.questions) {
		e.mu.Unlock()
		err := e.svc.CompleteMission(ctx, missionID, e.userID)
		e.mu.Lock()
		e.submitting = false
		if err != nil {
			e.mu.Unlock()
			return events, fmt.Errorf("complete mission: %w", err)
		}
		e.completed = true
		events = append(events, Completed{})
		e.mu.Unlock()
		return events, nil
	}
	if next != -1 {
		e.index = next
	}
	e.submitting = false
	e.mu.Unlock()
	return events, nil
}

// GoBack decrements the index without touching the server. At index zero it
// reports an exit gesture instead; the host must confirm the pause and emit
// Aborted itself.
func (e *Engine) GoBack() (exit bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index > 0 {
		e.index--
		return false
	}
	return true
}

// firstUnanswered returns the index of the first question at or after from
// with no recorded answer, or -1.
func (e *Engine) firstUnanswered(from int) int {
	for i := from; i < len(e.questions); i++ {
		if _, ok := e.answers[e.questions[i].ID]; !ok {
			return i
		}
	}
	return -1
}
