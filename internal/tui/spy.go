// Package tui renders the My Spy screens in the terminal. The screens stay
// thin: every decision lives in the mission and wizard packages, and the
// models here only translate key presses into calls and events into views.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"myspy/internal/api"
	"myspy/internal/domain"
	"myspy/internal/mission"
)

type spyState int

const (
	stateLoading spyState = iota
	stateNoMission
	stateDecision
	stateCheckin
	stateQuestionnaire
	statePauseConfirm
	stateCompleted
)

type missionLoadedMsg struct {
	m *domain.Mission
}

type questionnaireMsg struct {
	events []mission.Event
	err    error
}

type rejectMsg struct {
	events []mission.Event
	err    error
}

type answerMsg struct {
	events []mission.Event
	err    error
}

// SpyApp drives one user's mission flow: pending mission, accept/check-in,
// questionnaire, completion.
type SpyApp struct {
	svc    mission.Service
	ctrl   *mission.Controller
	flow   *mission.AcceptFlow
	eng    *mission.Engine
	state  spyState
	userID string

	spinner    spinner.Model
	input      textinput.Model
	rating     int
	boolChoice *bool
	errMsg     string
}

// NewSpyApp wires the flow for a user whose preference profile is complete.
func NewSpyApp(svc mission.Service, ctrl *mission.Controller, userID string) SpyApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	ti := textinput.New()
	ti.Placeholder = "Digite a sua resposta"
	ti.CharLimit = 500
	return SpyApp{
		svc:     svc,
		ctrl:    ctrl,
		userID:  userID,
		state:   stateLoading,
		spinner: sp,
		input:   ti,
	}
}

func (a SpyApp) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadMission())
}

func (a SpyApp) loadMission() tea.Cmd {
	return func() tea.Msg {
		return missionLoadedMsg{m: a.ctrl.Load(context.Background())}
	}
}

func (a SpyApp) openQuestionnaire(m domain.Mission) tea.Cmd {
	return func() tea.Msg {
		questions, err := a.svc.Questionnaire(context.Background(), m.ID, a.userID)
		if err != nil {
			return questionnaireMsg{err: err}
		}
		return questionnaireMsg{events: []mission.Event{
			mission.QuestionnaireReady{Mission: m, Questions: questions},
		}}
	}
}

func (a SpyApp) confirmCheckin() tea.Cmd {
	flow := a.flow
	return func() tea.Msg {
		events, err := flow.ConfirmCheckIn(context.Background())
		return questionnaireMsg{events: events, err: err}
	}
}

func (a SpyApp) reject() tea.Cmd {
	flow := a.flow
	return func() tea.Msg {
		events, err := flow.Reject(context.Background())
		return rejectMsg{events: events, err: err}
	}
}

func (a SpyApp) submit(value any) tea.Cmd {
	eng := a.eng
	return func() tea.Msg {
		events, err := eng.SubmitAnswer(context.Background(), value)
		return answerMsg{events: events, err: err}
	}
}

func (a SpyApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case missionLoadedMsg:
		if msg.m == nil {
			a.state = stateNoMission
			return a, nil
		}
		if msg.m.Status == domain.StatusWaiting {
			a.flow = mission.NewAcceptFlow(a.svc, a.userID, *msg.m)
			a.state = stateDecision
			return a, nil
		}
		return a, a.openQuestionnaire(*msg.m)

	case questionnaireMsg:
		a.ctrl.Apply(msg.events)
		for _, ev := range msg.events {
			if ready, ok := ev.(mission.QuestionnaireReady); ok {
				a.eng = mission.NewEngine(a.svc, a.userID, ready.Mission, ready.Questions)
				a.state = stateQuestionnaire
				a.errMsg = ""
				a.primeInput()
				return a, nil
			}
		}
		if msg.err != nil {
			a.errMsg = errText(msg.err)
		}
		return a, nil

	case rejectMsg:
		if msg.err != nil {
			a.errMsg = errText(msg.err)
			return a, nil
		}
		a.ctrl.Apply(msg.events)
		return a, tea.Quit

	case answerMsg:
		a.ctrl.Apply(msg.events)
		if msg.err != nil {
			a.errMsg = errText(msg.err)
			return a, nil
		}
		a.errMsg = ""
		if a.eng.Completed() {
			a.state = stateCompleted
			return a, nil
		}
		a.primeInput()
		return a, nil

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a SpyApp) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	switch a.state {
	case stateNoMission:
		return a, tea.Quit

	case stateDecision:
		if a.flow.Loading() {
			return a, nil
		}
		switch msg.String() {
		case "enter", "a":
			a.flow.Accept()
			a.state = stateCheckin
			a.errMsg = ""
		case "r":
			return a, a.reject()
		case "esc", "q":
			return a, tea.Quit
		}
		return a, nil

	case stateCheckin:
		if a.flow.Loading() {
			return a, nil
		}
		switch msg.String() {
		case "enter":
			return a, a.confirmCheckin()
		case "r":
			return a, a.reject()
		case "esc", "q":
			return a, tea.Quit
		}
		return a, nil

	case stateQuestionnaire:
		return a.updateQuestionKeys(msg)

	case statePauseConfirm:
		switch msg.String() {
		case "s", "y", "enter":
			a.ctrl.Apply([]mission.Event{mission.Aborted{}})
			return a, tea.Quit
		case "n", "esc":
			a.state = stateQuestionnaire
		}
		return a, nil

	case stateCompleted:
		a.ctrl.Apply([]mission.Event{mission.Finished{}})
		return a, tea.Quit
	}
	return a, nil
}

func (a SpyApp) updateQuestionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q, ok := a.eng.Current()
	if !ok {
		return a, tea.Quit
	}
	if a.eng.Submitting() {
		return a, nil
	}
	switch msg.String() {
	case "esc":
		if a.eng.GoBack() {
			a.state = statePauseConfirm
		} else {
			a.errMsg = ""
			a.primeInput()
		}
		return a, nil
	case "enter":
		value, ok := a.answerValue(q)
		if !ok {
			return a, nil
		}
		return a, a.submit(value)
	}

	min, max := q.RatingBounds()
	switch q.Type {
	case domain.QuestionRating:
		switch msg.String() {
		case "left", "h":
			if a.rating > min {
				a.rating--
			}
		case "right", "l":
			if a.rating < max {
				a.rating++
			}
		}
	case domain.QuestionBoolean:
		switch msg.String() {
		case "left", "right", "tab":
			v := a.boolChoice == nil || !*a.boolChoice
			a.boolChoice = &v
		case "s":
			v := true
			a.boolChoice = &v
		case "n":
			v := false
			a.boolChoice = &v
		}
	default:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// answerValue builds the typed answer for the current question; ok is
// false while the input does not satisfy the question's predicate, which
// keeps submission disabled.
func (a SpyApp) answerValue(q domain.Question) (any, bool) {
	switch q.Type {
	case domain.QuestionRating:
		return a.rating, true
	case domain.QuestionBoolean:
		if a.boolChoice == nil {
			return nil, false
		}
		return *a.boolChoice, true
	case domain.QuestionText, domain.QuestionUpload:
		v := strings.TrimSpace(a.input.Value())
		if v == "" {
			return nil, false
		}
		return v, true
	case domain.QuestionNumeric:
		v, err := strconv.ParseFloat(strings.TrimSpace(a.input.Value()), 64)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// primeInput resets the inputs for the current question, pre-populating a
// previously recorded answer as the editable default.
func (a *SpyApp) primeInput() {
	q, ok := a.eng.Current()
	if !ok {
		return
	}
	min, _ := q.RatingBounds()
	a.rating = min
	a.boolChoice = nil
	a.input.SetValue("")
	prev, answered := a.eng.AnswerFor(q.ID)
	if !answered {
		if q.Type == domain.QuestionText || q.Type == domain.QuestionNumeric || q.Type == domain.QuestionUpload {
			a.input.Focus()
		}
		return
	}
	switch q.Type {
	case domain.QuestionRating:
		if n, ok := prev.(float64); ok {
			a.rating = int(n)
		} else if n, ok := prev.(int); ok {
			a.rating = n
		}
	case domain.QuestionBoolean:
		if b, ok := prev.(bool); ok {
			a.boolChoice = &b
		}
	case domain.QuestionNumeric:
		if n, ok := prev.(float64); ok {
			a.input.SetValue(strconv.FormatFloat(n, 'f', -1, 64))
		}
		a.input.Focus()
	default:
		if s, ok := prev.(string); ok {
			a.input.SetValue(s)
		}
		a.input.Focus()
	}
}

func (a SpyApp) View() string {
	var b strings.Builder
	switch a.state {
	case stateLoading:
		b.WriteString(titleStyle.Render("My Spy"))
		b.WriteString("\n" + a.spinner.View() + " A carregar a sua missão...")

	case stateNoMission:
		b.WriteString(titleStyle.Render("My Spy"))
		b.WriteString("\nNão tem missões pendentes.\n")
		b.WriteString(helpStyle.Render("qualquer tecla para sair"))

	case stateDecision:
		m := a.flow.Mission()
		b.WriteString(titleStyle.Render("Fazer Missão"))
		b.WriteString("\nVocê recebeu uma missão em " + valueStyle.Render(m.EstablishmentName) + ".\n")
		b.WriteString("Deseja aceitar esta missão agora?\n")
		b.WriteString(helpStyle.Render("enter aceitar · r recusar · esc sair"))

	case stateCheckin:
		m := a.flow.Mission()
		b.WriteString(titleStyle.Render("Antes de começares a tua missão…"))
		b.WriteString("\n" + cardStyle.Render(strings.Join([]string{
			labelStyle.Render("Nome do restaurante"),
			valueStyle.Render(m.EstablishmentName),
			labelStyle.Render("Morada"),
			valueStyle.Render(m.EstablishmentAddress),
			labelStyle.Render("Valor do voucher"),
			valueStyle.Render(fmt.Sprintf("€ %.2f", m.TicketValue)),
		}, "\n")))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter confirmar check-in · r informações incorretas · esc sair"))

	case stateQuestionnaire:
		b.WriteString(a.questionView())

	case statePauseConfirm:
		b.WriteString(titleStyle.Render("Pausar missão"))
		b.WriteString("\nDeseja pausar esta missão agora? Você poderá retomar mais tarde.\n")
		b.WriteString(helpStyle.Render("s pausar · n continuar"))

	case stateCompleted:
		b.WriteString(successStyle.Render("Missão concluída!"))
		b.WriteString("\nObrigado por enviar todas as respostas. Em breve o estabelecimento receberá a sua avaliação.\n")
		b.WriteString(helpStyle.Render("qualquer tecla para voltar ao início"))
	}

	if a.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(a.errMsg))
	}
	b.WriteString("\n")
	return b.String()
}

func (a SpyApp) questionView() string {
	q, ok := a.eng.Current()
	if !ok {
		return "Não há perguntas configuradas para esta missão.\n"
	}
	m := a.eng.Mission()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Responder Missão"))
	b.WriteString("\n" + cardStyle.Render(strings.Join([]string{
		labelStyle.Render("Estabelecimento") + " " + valueStyle.Render(m.EstablishmentName),
		labelStyle.Render(fmt.Sprintf("Ticket máximo: € %.2f", m.TicketValue)),
		labelStyle.Render(fmt.Sprintf("Progresso: %d de %d", a.eng.Index()+1, a.eng.Total())),
	}, "\n")))
	b.WriteString("\n" + labelStyle.Render(strings.ToUpper(q.Category)))
	b.WriteString("\n" + q.Text + "\n\n")

	switch q.Type {
	case domain.QuestionRating:
		min, max := q.RatingBounds()
		var scale []string
		for i := min; i <= max; i++ {
			label := strconv.Itoa(i)
			if i == a.rating {
				label = selectedStyle.Render("[" + label + "]")
			}
			scale = append(scale, label)
		}
		b.WriteString(strings.Join(scale, " "))
		b.WriteString("\n" + helpStyle.Render("←/→ escolher · enter continuar · esc voltar"))
	case domain.QuestionBoolean:
		sim, nao := "Sim", "Não"
		if a.boolChoice != nil && *a.boolChoice {
			sim = selectedStyle.Render("[Sim]")
		}
		if a.boolChoice != nil && !*a.boolChoice {
			nao = selectedStyle.Render("[Não]")
		}
		b.WriteString(sim + "   " + nao)
		b.WriteString("\n" + helpStyle.Render("s/n escolher · enter continuar · esc voltar"))
	default:
		b.WriteString(a.input.View())
		b.WriteString("\n" + helpStyle.Render("enter continuar · esc voltar"))
	}

	if a.eng.Submitting() {
		b.WriteString("\n" + a.spinner.View() + " A enviar...")
	}
	return b.String()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return api.UserMessage(err)
}
