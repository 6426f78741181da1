package domain

// Status is the lifecycle state of a mission. Progression is monotonic
// forward (waiting -> accepted -> in_progress -> completed); rejected is
// terminal from any non-completed state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether the status admits no further transition.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// CanTransitionTo reports whether a transition from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusRejected {
		return true
	}
	switch s {
	case StatusWaiting:
		return target == StatusAccepted
	case StatusAccepted:
		return target == StatusInProgress
	case StatusInProgress:
		return target == StatusCompleted
	default:
		return false
	}
}

// QuestionType discriminates the answer value a question expects.
type QuestionType string

const (
	QuestionRating  QuestionType = "rating"
	QuestionBoolean QuestionType = "boolean"
	QuestionText    QuestionType = "text"
	QuestionNumeric QuestionType = "numeric"
	QuestionUpload  QuestionType = "upload"
)

type Mission struct {
	ID                   string  `json:"_id"`
	EstablishmentID      string  `json:"establishmentId,omitempty"`
	EstablishmentName    string  `json:"establishmentName"`
	EstablishmentAddress string  `json:"establishmentAddress,omitempty"`
	SpyID                string  `json:"spyId,omitempty"`
	TicketValue          float64 `json:"ticketValue"`
	Status               Status  `json:"status"`
	CreatedAt            string  `json:"createdAt,omitempty"`
	UpdatedAt            string  `json:"updatedAt,omitempty"`
}

type Question struct {
	ID       string       `json:"_id"`
	Category string       `json:"category"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	MinValue *int         `json:"minValue,omitempty"`
	MaxValue *int         `json:"maxValue,omitempty"`
	// Answer is present when the server already recorded one; it seeds a
	// resumed questionnaire session.
	Answer any `json:"answer,omitempty"`
}

// RatingBounds returns the inclusive rating range, defaulting to 0-5 when
// the question carries no explicit bounds.
func (q Question) RatingBounds() (min, max int) {
	min, max = 0, 5
	if q.MinValue != nil {
		min = *q.MinValue
	}
	if q.MaxValue != nil {
		max = *q.MaxValue
	}
	return min, max
}

type User struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Address          string `json:"address,omitempty"`
	ProfileType      string `json:"profileType"`
	ProfileCompleted bool   `json:"profileCompleted"`
}

// Profile types used by the user search endpoint.
const (
	ProfileBusiness   = "business"
	ProfileIndividual = "individual"
	ProfileAdmin      = "admin"
)
