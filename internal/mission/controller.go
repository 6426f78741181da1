package mission

import (
	"context"
	"log"
	"sync"

	"myspy/internal/domain"
)

// Controller owns the pending-mission lookup for one user and is the
// single source of truth for its status as perceived by the UI. Child
// flows receive snapshots and report changes back through events; they
// never hold their own writable copy.
type Controller struct {
	mu               sync.Mutex
	svc              Service
	logger           *log.Logger
	userID           string
	profileCompleted bool
	refreshToken     int
	generation       int
	mission          *domain.Mission
	lastErr          error
}

// NewController creates a controller for one user. The profile flag starts
// false; no fetch happens until it is set.
func NewController(svc Service, userID string, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{svc: svc, logger: logger, userID: userID}
}

// SetProfileCompleted gates the pending-mission lookup; an incomplete
// preference profile means no missions are offered.
func (c *Controller) SetProfileCompleted(done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileCompleted = done
	if !done {
		c.mission = nil
	}
}

// Load fetches the pending mission. A load superseded by a newer Load or
// Refresh never clobbers the newer result. Fetch failures are treated as
// "no pending mission": logged, recorded, not surfaced.
func (c *Controller) Load(ctx context.Context) *domain.Mission {
	c.mu.Lock()
	if c.userID == "" || !c.profileCompleted {
		c.mission = nil
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	m, err := c.svc.PendingMission(ctx, c.userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A newer load or refresh superseded this one.
		return copyMission(c.mission)
	}
	if err != nil {
		c.logger.Printf("pending mission load failed for user %s: %v", c.userID, err)
		c.lastErr = err
		c.mission = nil
		return nil
	}
	c.lastErr = nil
	c.mission = m
	return copyMission(c.mission)
}

// Refresh forces a re-fetch, used after a mission was created, rejected,
// or completed elsewhere.
func (c *Controller) Refresh(ctx context.Context) *domain.Mission {
	c.mu.Lock()
	c.refreshToken++
	c.mu.Unlock()
	return c.Load(ctx)
}

// Mission returns a copy of the cached pending mission, or nil.
func (c *Controller) Mission() *domain.Mission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMission(c.mission)
}

// LastError returns the swallowed error of the most recent failed load.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Apply reconciles events reported by a child flow with the cached copy,
// without re-fetching. Returns true when the caller should refresh the
// surrounding mission list.
func (c *Controller) Apply(events []Event) (refresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range events {
		switch ev := ev.(type) {
		case StatusChanged:
			if c.mission != nil {
				c.mission.Status = ev.Status
			}
		case MissionUpdated:
			m := ev.Mission
			c.mission = &m
		case Rejected, Finished:
			c.mission = nil
			refresh = true
		}
	}
	return refresh
}

func copyMission(m *domain.Mission) *domain.Mission {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
