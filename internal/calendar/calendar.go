package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/metrics"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/rs/zerolog"
)

// ErrStaleResponse is returned by LoadSlots when the branch changed or a
// newer load was issued while the request was in flight. The response has
// been dropped.
var ErrStaleResponse = errors.New("calendar: stale slot response dropped")

// SlotSource lists the open slots of a branch.
type SlotSource interface {
	Availability(ctx context.Context, branch string) ([]models.TimeSlot, error)
}

type Option func(*Calendar)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) { c.now = now }
}

func WithLogger(l *zerolog.Logger) Option {
	return func(c *Calendar) {
		if l != nil {
			c.logger = l
		}
	}
}

// Calendar is the availability calendar of one wizard session.
type Calendar struct {
	mu         sync.Mutex
	source     SlotSource
	windowDays int
	now        func() time.Time
	logger     *zerolog.Logger

	branch     string
	generation uint64
	slots      []models.TimeSlot
	loaded     bool
	month      time.Time
	sel        Selection
}

func New(source SlotSource, windowDays int, opts ...Option) *Calendar {
	nop := zerolog.Nop()
	c := &Calendar{
		source:     source,
		windowDays: windowDays,
		now:        time.Now,
		logger:     &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.windowDays <= 0 {
		c.windowDays = models.DefaultWindowDays
	}
	c.month = MonthOf(c.now())
	return c
}

func (c *Calendar) window() Window {
	return NewWindow(c.now(), c.windowDays)
}

// Window returns the current bookable window.
func (c *Calendar) Window() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window()
}

func (c *Calendar) Branch() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.branch
}

// SetBranch makes branch the active one. Switching branches discards the
// slot list and the selection, and invalidates in-flight loads.
func (c *Calendar) SetBranch(branch string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setBranchLocked(branch)
}

func (c *Calendar) setBranchLocked(branch string) {
	if c.branch == branch {
		return
	}
	c.branch = branch
	c.generation++
	c.slots = nil
	c.loaded = false
	c.sel = Selection{}
}

// LoadSlots fetches the slots of branch and applies them only if branch is
// still active and no newer load was started meanwhile.
func (c *Calendar) LoadSlots(ctx context.Context, branch string) error {
	c.mu.Lock()
	c.setBranchLocked(branch)
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	slots, err := c.source.Availability(ctx, branch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.branch != branch || c.generation != gen {
		metrics.IncStaleSlots()
		c.logger.Debug().Str("branch", branch).Str("active", c.branch).Msg("dropping stale slot response")
		return ErrStaleResponse
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("branch", branch).Msg("availability fetch failed")
		return err
	}

	scoped := make([]models.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Branch == "" {
			s.Branch = branch
		}
		if s.Branch == branch {
			scoped = append(scoped, s)
		}
	}
	c.slots = scoped
	c.loaded = true
	c.sel = c.sel.Reconcile(c.slots)
	return nil
}

// Loaded reports whether a slot list for the active branch is present.
func (c *Calendar) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Slots returns a copy of the loaded slot list.
func (c *Calendar) Slots() []models.TimeSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.TimeSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

func (c *Calendar) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// Grid renders the displayed month.
func (c *Calendar) Grid() Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return MonthGrid(c.month, c.window(), c.slots, c.sel.Date)
}

// DaySlots returns the slots of the selected date.
func (c *Calendar) DaySlots() []models.TimeSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.Date == "" {
		return nil
	}
	return SlotsForDate(c.slots, c.sel.Date)
}

// SelectDate selects an interactive date and clears any selected slot.
func (c *Calendar) SelectDate(date string) error {
	d, err := ParseDate(date)
	if err != nil {
		return apperr.Validation("date", "invalid date %q", date)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.window().Contains(d) {
		return apperr.Validation("date", "%s is outside the booking window", date)
	}
	if len(SlotsForDate(c.slots, date)) == 0 {
		return apperr.Validation("date", "no available slots on %s", date)
	}
	c.month = MonthOf(d)
	c.sel = c.sel.WithDate(date)
	return nil
}

// SelectSlot selects one of the selected date's slots by its start string.
func (c *Calendar) SelectSlot(start string) (models.TimeSlot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.Date == "" {
		return models.TimeSlot{}, apperr.Validation("slot", "select a date first")
	}
	for _, s := range SlotsForDate(c.slots, c.sel.Date) {
		if s.Start == start {
			c.sel = c.sel.WithSlot(s)
			return s, nil
		}
	}
	return models.TimeSlot{}, apperr.Validation("slot", "%s is not available on %s", start, c.sel.Date)
}

// NextMonth moves the grid forward one month and clears the selection.
func (c *Calendar) NextMonth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanGoNext(c.month, c.window()) {
		return apperr.Validation("month", "no availability beyond %s", c.window().Last.Format(dateLayout))
	}
	c.month = c.month.AddDate(0, 1, 0)
	c.sel = Selection{}
	return nil
}

// PrevMonth moves the grid back one month and clears the selection.
func (c *Calendar) PrevMonth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanGoPrev(c.month, c.window()) {
		return apperr.Validation("month", "cannot go before the current month")
	}
	c.month = c.month.AddDate(0, -1, 0)
	c.sel = Selection{}
	return nil
}

// State is the serialisable form of a Calendar.
type State struct {
	Branch    string            `json:"branch"`
	Month     string            `json:"month"`
	Slots     []models.TimeSlot `json:"slots"`
	Loaded    bool              `json:"loaded"`
	Selection Selection         `json:"selection"`
}

func (c *Calendar) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots := make([]models.TimeSlot, len(c.slots))
	copy(slots, c.slots)
	return State{
		Branch:    c.branch,
		Month:     c.month.Format("2006-01"),
		Slots:     slots,
		Loaded:    c.loaded,
		Selection: c.sel,
	}
}

// Restore loads a snapshot. A month that fell out of the window snaps back
// to the current month.
func (c *Calendar) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.branch = s.Branch
	c.generation++
	c.slots = append([]models.TimeSlot(nil), s.Slots...)
	c.loaded = s.Loaded
	c.sel = s.Selection

	w := c.window()
	c.month = MonthOf(w.Today)
	if m, err := time.Parse("2006-01", s.Month); err == nil {
		if !m.Before(MonthOf(w.Today)) && !m.After(w.Last) {
			c.month = m
		}
	}
}

// ClearSelection drops the selected date and slot, keeping the slot list.
func (c *Calendar) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = Selection{}
}
