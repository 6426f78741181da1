package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"myspy/internal/api"
	"myspy/internal/domain"
)

// DefaultDebounce is the pause after the last keystroke before a search
// request goes out.
const DefaultDebounce = 250 * time.Millisecond

const searchLimit = 8

// Searcher runs the debounced search-as-you-type lookup behind the
// establishment and spy steps. A newer query supersedes the in-flight
// request: the older request is cancelled and its response discarded even
// if it arrives later. An empty trimmed query short-circuits without a
// request and clears the options.
type Searcher struct {
	mu               sync.Mutex
	dir              Directory
	profileType      string
	profileCompleted bool
	debounce         time.Duration
	seq              int
	cancel           context.CancelFunc
	timer            *time.Timer
}

func NewSearcher(dir Directory, profileType string, profileCompleted bool) *Searcher {
	return &Searcher{
		dir:              dir,
		profileType:      profileType,
		profileCompleted: profileCompleted,
		debounce:         DefaultDebounce,
	}
}

// SetDebounce overrides the debounce interval.
func (s *Searcher) SetDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Search schedules a lookup for query and delivers the result to deliver.
// Superseded and cancelled requests deliver nothing. deliver runs on the
// searcher's goroutine.
func (s *Searcher) Search(query string, deliver func([]domain.User)) {
	q := strings.TrimSpace(query)
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if q == "" {
		s.mu.Unlock()
		deliver(nil)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.timer = time.AfterFunc(s.debounce, func() {
		page, err := s.dir.SearchUsers(ctx, api.UserSearch{
			Query:            q,
			Limit:            searchLimit,
			ProfileType:      s.profileType,
			ProfileCompleted: s.profileCompleted,
		})
		s.mu.Lock()
		stale := seq != s.seq
		s.mu.Unlock()
		if stale {
			return
		}
		if err != nil {
			// Aborted or failed lookups render as an empty result set,
			// matching the silent handling in the UI.
			if !errors.Is(err, context.Canceled) {
				deliver(nil)
			}
			return
		}
		deliver(page.Items)
	})
	s.mu.Unlock()
}

// Close cancels any scheduled or in-flight lookup; called when the step is
// torn down.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
