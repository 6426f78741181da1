package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"myspy/internal/api"
	"myspy/internal/domain"
	"myspy/internal/wizard"
)

type searchResultsMsg struct {
	users []domain.User
}

type createdMsg struct {
	mission domain.Mission
	err     error
}

// WizardApp is the administrator's mission creation screen: ticket value,
// establishment search, spy search, then submission. The search steps use
// debounced search-as-you-type; results arrive over a channel bridged into
// the update loop.
type WizardApp struct {
	wiz      *wizard.Wizard
	searcher *wizard.Searcher
	dir      wizard.Directory
	results  chan []domain.User

	spinner spinner.Model
	input   textinput.Model
	options []domain.User
	cursor  int
	errMsg  string
	created *domain.Mission
	done    bool
}

// NewWizardApp builds the wizard against a user directory, normally the API
// client.
func NewWizardApp(dir wizard.Directory) WizardApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	ti := textinput.New()
	ti.Placeholder = "Valor do ticket (€)"
	ti.CharLimit = 64
	ti.Focus()
	return WizardApp{
		wiz:     wizard.New(dir),
		dir:     dir,
		results: make(chan []domain.User, 8),
		spinner: sp,
		input:   ti,
	}
}

func (a WizardApp) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.waitForResults())
}

// waitForResults blocks on the searcher's delivery channel and re-enters the
// update loop with each result set.
func (a WizardApp) waitForResults() tea.Cmd {
	ch := a.results
	return func() tea.Msg {
		return searchResultsMsg{users: <-ch}
	}
}

func (a WizardApp) submit() tea.Cmd {
	wiz := a.wiz
	return func() tea.Msg {
		m, err := wiz.Submit(context.Background())
		return createdMsg{mission: m, err: err}
	}
}

func (a WizardApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case searchResultsMsg:
		a.options = msg.users
		if a.cursor >= len(a.options) {
			a.cursor = 0
		}
		return a, a.waitForResults()

	case createdMsg:
		if msg.err != nil {
			a.errMsg = api.UserMessage(msg.err)
			return a, nil
		}
		m := msg.mission
		a.created = &m
		a.done = true
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a WizardApp) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.teardown()
		return a, tea.Quit
	}
	if a.done {
		a.teardown()
		return a, tea.Quit
	}
	if a.wiz.Submitting() {
		return a, nil
	}

	switch msg.String() {
	case "esc":
		if a.wiz.Back() {
			a.teardown()
			return a, tea.Quit
		}
		a.enterStep()
		return a, nil
	case "enter":
		return a.confirm()
	}

	switch a.wiz.Step() {
	case wizard.StepTicket:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		a.wiz.SetTicketInput(a.input.Value())
		return a, cmd

	case wizard.StepEstablishment, wizard.StepSpy:
		switch msg.String() {
		case "up", "ctrl+p":
			if a.cursor > 0 {
				a.cursor--
			}
			return a, nil
		case "down", "ctrl+n":
			if a.cursor < len(a.options)-1 {
				a.cursor++
			}
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		a.search(a.input.Value())
		return a, cmd
	}
	return a, nil
}

func (a *WizardApp) confirm() (tea.Model, tea.Cmd) {
	switch a.wiz.Step() {
	case wizard.StepTicket:
		if !a.wiz.Next() {
			a.errMsg = "indique um valor de ticket superior a zero"
			return *a, nil
		}
		a.errMsg = ""
		a.enterStep()
		return *a, nil

	case wizard.StepEstablishment:
		if a.cursor >= len(a.options) {
			return *a, nil
		}
		a.wiz.SelectEstablishment(a.options[a.cursor])
		if !a.wiz.Next() {
			return *a, nil
		}
		a.errMsg = ""
		a.enterStep()
		return *a, nil

	case wizard.StepSpy:
		if a.cursor >= len(a.options) {
			return *a, nil
		}
		a.wiz.SelectSpy(a.options[a.cursor])
		a.errMsg = ""
		return *a, a.submit()
	}
	return *a, nil
}

// enterStep resets the shared input and the search state for the step the
// wizard just moved to.
func (a *WizardApp) enterStep() {
	if a.searcher != nil {
		a.searcher.Close()
		a.searcher = nil
	}
	a.options = nil
	a.cursor = 0
	a.input.SetValue("")
	a.input.Focus()

	switch a.wiz.Step() {
	case wizard.StepTicket:
		a.input.Placeholder = "Valor do ticket (€)"
		a.input.SetValue(a.wiz.TicketInput())
		a.wiz.ClearEstablishment()
	case wizard.StepEstablishment:
		a.input.Placeholder = "Procurar estabelecimento"
		// Establishments are searched by role alone; only the spy step
		// filters on a completed profile.
		a.searcher = wizard.NewSearcher(a.dir, domain.ProfileBusiness, false)
		a.wiz.ClearSpy()
	case wizard.StepSpy:
		a.input.Placeholder = "Procurar espião"
		a.searcher = wizard.NewSearcher(a.dir, domain.ProfileIndividual, true)
	}
}

func (a *WizardApp) search(query string) {
	if a.searcher == nil {
		return
	}
	ch := a.results
	a.searcher.Search(query, func(users []domain.User) {
		ch <- users
	})
}

func (a *WizardApp) teardown() {
	if a.searcher != nil {
		a.searcher.Close()
		a.searcher = nil
	}
}

func (a WizardApp) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Criar Missão"))
	b.WriteString("\n")

	if a.done && a.created != nil {
		b.WriteString(successStyle.Render("Missão criada!"))
		b.WriteString("\n" + cardStyle.Render(strings.Join([]string{
			labelStyle.Render("Estabelecimento") + " " + valueStyle.Render(a.created.EstablishmentName),
			labelStyle.Render("Ticket") + " " + valueStyle.Render(fmt.Sprintf("€ %.2f", a.created.TicketValue)),
			labelStyle.Render("Estado") + " " + valueStyle.Render(a.created.Status.String()),
		}, "\n")))
		b.WriteString("\n" + helpStyle.Render("qualquer tecla para sair"))
		return b.String() + "\n"
	}

	switch a.wiz.Step() {
	case wizard.StepTicket:
		b.WriteString(labelStyle.Render("Passo 1 de 3 · valor do ticket"))
		b.WriteString("\n" + a.input.View())
	case wizard.StepEstablishment:
		b.WriteString(labelStyle.Render("Passo 2 de 3 · estabelecimento"))
		b.WriteString("\n" + a.input.View() + "\n")
		b.WriteString(a.optionsView())
	case wizard.StepSpy:
		b.WriteString(labelStyle.Render("Passo 3 de 3 · espião"))
		b.WriteString("\n" + a.input.View() + "\n")
		b.WriteString(a.optionsView())
	}

	if a.wiz.Submitting() {
		b.WriteString("\n" + a.spinner.View() + " A criar a missão...")
	}
	if a.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(a.errMsg))
	}
	b.WriteString("\n" + helpStyle.Render("enter continuar · esc voltar"))
	return b.String() + "\n"
}

func (a WizardApp) optionsView() string {
	if len(a.options) == 0 {
		if strings.TrimSpace(a.input.Value()) == "" {
			return helpStyle.Render("escreva para procurar")
		}
		return helpStyle.Render("sem resultados")
	}
	var lines []string
	for i, u := range a.options {
		line := u.Name
		if u.Address != "" {
			line += labelStyle.Render(" · " + u.Address)
		}
		if i == a.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
