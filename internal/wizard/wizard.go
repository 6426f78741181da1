// Package wizard implements the three-step mission creation flow used by
// administrators: ticket value, establishment selection, spy selection.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"myspy/internal/api"
	"myspy/internal/domain"
)

// Step is the wizard's state: ticket -> establishment -> spy, back-navigable.
type Step string

const (
	StepTicket        Step = "ticket"
	StepEstablishment Step = "establishment"
	StepSpy           Step = "spy"
)

// Directory is the slice of the API the wizard calls; *api.Client
// implements it.
type Directory interface {
	SearchUsers(ctx context.Context, opts api.UserSearch) (api.UserPage, error)
	CreateMission(ctx context.Context, req api.CreateMissionRequest) (domain.Mission, error)
}

var (
	// ErrIncomplete is returned when submission is attempted with a
	// missing field.
	ErrIncomplete = errors.New("complete todos os campos para criar a missão")
	// ErrSubmitting is returned while a creation request is pending.
	ErrSubmitting = errors.New("a creation request is already in flight")
)

// Wizard assembles a mission creation request step by step.
type Wizard struct {
	mu            sync.Mutex
	dir           Directory
	step          Step
	ticketInput   string
	establishment *domain.User
	spy           *domain.User
	submitting    bool
}

func New(dir Directory) *Wizard {
	return &Wizard{dir: dir, step: StepTicket}
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// SetTicketInput stores the raw ticket text as typed.
func (w *Wizard) SetTicketInput(input string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ticketInput = input
}

func (w *Wizard) TicketInput() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticketInput
}

// TicketValue parses the ticket input; ok is false unless the value is a
// finite number greater than zero.
func (w *Wizard) TicketValue() (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return parseTicket(w.ticketInput)
}

func parseTicket(input string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

func (w *Wizard) SelectEstablishment(u domain.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.establishment = &u
}

func (w *Wizard) ClearEstablishment() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.establishment = nil
}

func (w *Wizard) Establishment() *domain.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyUser(w.establishment)
}

func (w *Wizard) SelectSpy(u domain.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spy = &u
}

func (w *Wizard) ClearSpy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spy = nil
}

func (w *Wizard) Spy() *domain.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyUser(w.spy)
}

// CanAdvance reports whether the current step's gate is satisfied.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepTicket:
		_, ok := parseTicket(w.ticketInput)
		return ok
	case StepEstablishment:
		return w.establishment != nil
	case StepSpy:
		return w.spy != nil
	default:
		return false
	}
}

// Next advances one step when the gate is satisfied. It does not advance
// past the spy step; that submission goes through Submit.
func (w *Wizard) Next() bool {
	if !w.CanAdvance() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepTicket:
		w.step = StepEstablishment
		return true
	case StepEstablishment:
		w.step = StepSpy
		return true
	default:
		return false
	}
}

// Back moves one step backward; at the ticket step it reports an exit
// gesture instead.
func (w *Wizard) Back() (exit bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepEstablishment:
		w.step = StepTicket
	case StepSpy:
		w.step = StepEstablishment
	default:
		return true
	}
	return false
}

// Submit posts the assembled creation request. On failure the wizard stays
// on the spy step and the same submission can be retried.
func (w *Wizard) Submit(ctx context.Context) (domain.Mission, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return domain.Mission{}, ErrSubmitting
	}
	value, ok := parseTicket(w.ticketInput)
	if !ok || w.establishment == nil || w.spy == nil {
		w.mu.Unlock()
		return domain.Mission{}, ErrIncomplete
	}
	req := api.CreateMissionRequest{
		TicketValue:     value,
		EstablishmentID: w.establishment.ID,
		SpyID:           w.spy.ID,
	}
	w.submitting = true
	w.mu.Unlock()

	m, err := w.dir.CreateMission(ctx, req)
	w.mu.Lock()
	w.submitting = false
	w.mu.Unlock()
	if err != nil {
		return domain.Mission{}, fmt.Errorf("create mission: %w", err)
	}
	return m, nil
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
