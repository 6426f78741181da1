package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"myspy/internal/domain"
)

// Phase is the accept flow's state: decision -> checkin, forward only.
type Phase string

const (
	PhaseDecision Phase = "decision"
	PhaseCheckIn  Phase = "checkin"
)

var (
	// ErrActionInFlight is returned while a network action is pending;
	// double triggers are no-ops.
	ErrActionInFlight = errors.New("an action is already in flight")
	// ErrNotInCheckIn is returned when check-in is confirmed before the
	// accept decision was made.
	ErrNotInCheckIn = errors.New("flow is not in the check-in phase")
	// ErrAlreadyRejected is returned once the mission was refused; the flow
	// admits no further actions.
	ErrAlreadyRejected = errors.New("mission already rejected")
)

// AcceptFlow is the two-phase gate in front of the questionnaire. Accepting
// only moves to the check-in phase locally; the server is not told until
// the check-in confirmation.
type AcceptFlow struct {
	mu       sync.Mutex
	svc      Service
	userID   string
	mission  domain.Mission
	phase    Phase
	loading  bool
	rejected bool
}

// NewAcceptFlow starts in the decision phase for a waiting mission.
func NewAcceptFlow(svc Service, userID string, m domain.Mission) *AcceptFlow {
	return &AcceptFlow{
		svc:     svc,
		userID:  userID,
		mission: m,
		phase:   PhaseDecision,
	}
}

func (f *AcceptFlow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *AcceptFlow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Mission returns the flow's snapshot of the mission.
func (f *AcceptFlow) Mission() domain.Mission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mission
}

// Accept moves decision -> checkin. Purely local; a no-op while loading or
// once already in check-in.
func (f *AcceptFlow) Accept() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading || f.rejected || f.phase != PhaseDecision {
		return
	}
	f.phase = PhaseCheckIn
}

// ConfirmCheckIn commits the accept on the server, then fetches the
// questionnaire and hands off to the engine. The server response is
// authoritative for the accepted status; nothing is mutated before it
// returns. On failure the flow stays in check-in for a retry; a
// MissionUpdated event already emitted (accept succeeded, questionnaire
// fetch failed) remains valid.
func (f *AcceptFlow) ConfirmCheckIn(ctx context.Context) ([]Event, error) {
	f.mu.Lock()
	if f.rejected {
		f.mu.Unlock()
		return nil, ErrAlreadyRejected
	}
	if f.phase != PhaseCheckIn {
		f.mu.Unlock()
		return nil, ErrNotInCheckIn
	}
	if f.loading {
		f.mu.Unlock()
		return nil, ErrActionInFlight
	}
	f.loading = true
	missionID := f.mission.ID
	f.mu.Unlock()

	updated, err := f.svc.AcceptMission(ctx, missionID, f.userID)
	if err != nil {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
		return nil, fmt.Errorf("accept mission: %w", err)
	}

	f.mu.Lock()
	f.mission = updated
	f.mu.Unlock()
	events := []Event{MissionUpdated{Mission: updated}}

	questions, err := f.svc.Questionnaire(ctx, missionID, f.userID)
	f.mu.Lock()
	f.loading = false
	f.mu.Unlock()
	if err != nil {
		return events, fmt.Errorf("load questionnaire: %w", err)
	}
	events = append(events, QuestionnaireReady{Mission: updated, Questions: questions})
	return events, nil
}

// Reject refuses the mission from either phase. On success the pending
// mission is gone for this user and the flow is closed: no accept or
// check-in call can leave it afterwards.
func (f *AcceptFlow) Reject(ctx context.Context) ([]Event, error) {
	f.mu.Lock()
	if f.rejected {
		f.mu.Unlock()
		return nil, ErrAlreadyRejected
	}
	if f.loading {
		f.mu.Unlock()
		return nil, ErrActionInFlight
	}
	f.loading = true
	missionID := f.mission.ID
	f.mu.Unlock()

	err := f.svc.RejectMission(ctx, missionID, f.userID)
	f.mu.Lock()
	f.loading = false
	if err == nil {
		f.rejected = true
		f.mission.Status = domain.StatusRejected
	}
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("reject mission: %w", err)
	}
	return []Event{Rejected{}}, nil
}
