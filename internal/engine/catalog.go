package engine

import "myspy/internal/domain"

// DefaultQuestionnaire is the question set seeded into new missions when
// the administrator provides none.
func DefaultQuestionnaire() []domain.Question {
	five := 5
	zero := 0
	return []domain.Question{
		{
			Category: "Atendimento",
			Text:     "Como avalia a simpatia do atendimento?",
			Type:     domain.QuestionRating,
			MinValue: &zero,
			MaxValue: &five,
		},
		{
			Category: "Atendimento",
			Text:     "Foi cumprimentado ao entrar no estabelecimento?",
			Type:     domain.QuestionBoolean,
		},
		{
			Category: "Ambiente",
			Text:     "Como avalia a limpeza do espaço?",
			Type:     domain.QuestionRating,
			MinValue: &zero,
			MaxValue: &five,
		},
		{
			Category: "Consumo",
			Text:     "Qual foi o valor total da sua conta?",
			Type:     domain.QuestionNumeric,
		},
		{
			Category: "Consumo",
			Text:     "Descreva a sua experiência geral.",
			Type:     domain.QuestionText,
		},
		{
			Category: "Evidência",
			Text:     "Envie uma foto do recibo.",
			Type:     domain.QuestionUpload,
		},
	}
}
