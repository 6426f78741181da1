package server

import "myspy/internal/domain"

// Request payloads

type UserActionRequest struct {
	UserID string `json:"userId"`
}

type AnswerRequest struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

type CreateMissionRequest struct {
	TicketValue     float64 `json:"ticketValue"`
	EstablishmentID string  `json:"establishmentId"`
	SpyID           string  `json:"spyId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Response payloads

type MissionEnvelope struct {
	Mission *domain.Mission `json:"mission"`
}

type QuestionsEnvelope struct {
	Questions []domain.Question `json:"questions"`
}

type UserPageResponse struct {
	Items []domain.User `json:"items"`
	Total int           `json:"total"`
	Pages int           `json:"pages"`
	Page  int           `json:"page"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}
