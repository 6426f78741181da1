package mission

import (
	"context"

	"myspy/internal/domain"
)

// Service is the slice of the remote API the mission flows drive. The
// concrete implementation is *api.Client.
type Service interface {
	PendingMission(ctx context.Context, userID string) (*domain.Mission, error)
	Questionnaire(ctx context.Context, missionID, userID string) ([]domain.Question, error)
	AcceptMission(ctx context.Context, missionID, userID string) (domain.Mission, error)
	RejectMission(ctx context.Context, missionID, userID string) error
	SubmitAnswer(ctx context.Context, missionID, userID, questionID string, answer any) error
	CompleteMission(ctx context.Context, missionID, userID string) error
}
