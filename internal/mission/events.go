package mission

import "myspy/internal/domain"

// Event is a state change reported upward by a flow component. The hosting
// screen consumes events by type switch instead of receiving closures.
type Event interface {
	isEvent()
}

// StatusChanged reports a local status transition the host must mirror on
// its cached mission copy.
type StatusChanged struct {
	Status domain.Status
}

// MissionUpdated carries the authoritative mission returned by the server
// after a state-changing call.
type MissionUpdated struct {
	Mission domain.Mission
}

// QuestionnaireReady hands control from the accept flow to the
// questionnaire engine.
type QuestionnaireReady struct {
	Mission   domain.Mission
	Questions []domain.Question
}

// Rejected means the mission was refused; the pending mission is gone for
// this user.
type Rejected struct{}

// Completed means every question was answered and the completion call
// succeeded; the questionnaire shows its terminal state.
type Completed struct{}

// Finished means the user left a completed questionnaire; the host should
// clear the pending mission and refresh.
type Finished struct{}

// Aborted means the user paused the flow without changing server state.
type Aborted struct{}

func (StatusChanged) isEvent()      {}
func (MissionUpdated) isEvent()     {}
func (QuestionnaireReady) isEvent() {}
func (Rejected) isEvent()           {}
func (Completed) isEvent()          {}
func (Finished) isEvent()           {}
func (Aborted) isEvent()            {}
