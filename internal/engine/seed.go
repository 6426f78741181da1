package engine

import (
	"context"
	"fmt"

	"myspy/internal/domain"
)

// SeedDemo populates an empty stub database with a usable demo cast: an
// administrator, two establishments, and two spies, one of them holding a
// waiting mission. Idempotent: a non-empty users table is left alone.
func (e Engine) SeedDemo(ctx context.Context) error {
	var count int
	if err := e.DB.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	users := []struct {
		user     domain.User
		password string
	}{
		{domain.User{ID: "admin-1", Name: "Administração", Email: "admin@myspy.local", ProfileType: domain.ProfileAdmin, ProfileCompleted: true}, "admin"},
		{domain.User{ID: "est-1", Name: "Tasca do Zé", Email: "tasca@myspy.local", Address: "Rua das Flores 12, Porto", ProfileType: domain.ProfileBusiness, ProfileCompleted: true}, "tasca"},
		{domain.User{ID: "est-2", Name: "Café Central", Email: "central@myspy.local", Address: "Praça do Comércio 3, Lisboa", ProfileType: domain.ProfileBusiness, ProfileCompleted: true}, "central"},
		{domain.User{ID: "spy-1", Name: "Ana Martins", Email: "ana@myspy.local", ProfileType: domain.ProfileIndividual, ProfileCompleted: true}, "ana"},
		{domain.User{ID: "spy-2", Name: "Bruno Costa", Email: "bruno@myspy.local", ProfileType: domain.ProfileIndividual, ProfileCompleted: true}, "bruno"},
	}
	for _, u := range users {
		if _, err := e.RegisterUser(ctx, u.user, u.password); err != nil {
			return fmt.Errorf("seed user %s: %w", u.user.ID, err)
		}
	}

	if _, err := e.CreateMission(ctx, CreateMissionOptions{
		TicketValue:     25,
		EstablishmentID: "est-1",
		SpyID:           "spy-1",
		ActorID:         "admin-1",
	}); err != nil {
		return fmt.Errorf("seed mission: %w", err)
	}
	return nil
}
