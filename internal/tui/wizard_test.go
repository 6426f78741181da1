package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myspy/internal/api"
	"myspy/internal/domain"
)

type stubDirectory struct {
	users []domain.User
}

func (d *stubDirectory) SearchUsers(ctx context.Context, opts api.UserSearch) (api.UserPage, error) {
	return api.UserPage{Items: d.users, Total: len(d.users), Pages: 1, Page: 1}, nil
}

func (d *stubDirectory) CreateMission(ctx context.Context, req api.CreateMissionRequest) (domain.Mission, error) {
	return domain.Mission{ID: "m1", TicketValue: req.TicketValue, Status: domain.StatusWaiting}, nil
}

func typeString(model tea.Model, s string) tea.Model {
	for _, r := range s {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return model
}

func TestWizardTicketGate(t *testing.T) {
	app := NewWizardApp(&stubDirectory{})
	assert.Contains(t, app.View(), "Passo 1 de 3")

	// Enter without a valid ticket value stays on the step with an error.
	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view := model.View()
	assert.Contains(t, view, "Passo 1 de 3")
	assert.Contains(t, view, "ticket superior a zero")

	model = typeString(model, "25")
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, model.View(), "Passo 2 de 3")
}

func TestWizardSelectionFlow(t *testing.T) {
	dir := &stubDirectory{users: []domain.User{{ID: "est-1", Name: "Tasca", Address: "Rua 1"}}}
	app := NewWizardApp(dir)

	model := typeString(tea.Model(app), "25")
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	// Feed a search result through the channel bridge, then pick it.
	model, _ = model.Update(searchResultsMsg{users: dir.users})
	view := model.View()
	assert.Contains(t, view, "Tasca")
	assert.Contains(t, view, "Rua 1")

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, model.View(), "Passo 3 de 3")

	wiz, ok := model.(WizardApp)
	require.True(t, ok)
	est := wiz.wiz.Establishment()
	require.NotNil(t, est)
	assert.Equal(t, "est-1", est.ID)
}

func TestWizardCreatedView(t *testing.T) {
	app := NewWizardApp(&stubDirectory{})
	model, _ := app.Update(createdMsg{mission: domain.Mission{
		ID: "m1", EstablishmentName: "Tasca", TicketValue: 25, Status: domain.StatusWaiting,
	}})
	view := model.View()
	assert.Contains(t, view, "Missão criada!")
	assert.Contains(t, view, "Tasca")
}

func TestWizardEscAtTicketExits(t *testing.T) {
	app := NewWizardApp(&stubDirectory{})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
