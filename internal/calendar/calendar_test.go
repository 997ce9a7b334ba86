package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, time.January, 9, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

func slot(branch, start string) models.TimeSlot {
	return models.TimeSlot{Branch: branch, Start: start}
}

func TestMonthGridCellCount(t *testing.T) {
	w := NewWindow(today, 90)
	for _, m := range []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC),
	} {
		g := MonthGrid(m, w, nil, "")
		assert.Equal(t, g.Offset+DaysIn(m), len(g.Cells), m.Format("2006-01"))
		for i := 0; i < g.Offset; i++ {
			assert.True(t, g.Cells[i].Blank())
		}
	}

	jan := MonthGrid(today, w, nil, "")
	assert.Equal(t, 1, jan.Offset) // 2024-01-01 is a Monday
	assert.Equal(t, 31, jan.Days)
	assert.Equal(t, "January 2024", jan.Title())
	assert.Equal(t, 29, DaysIn(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWindowBoundary(t *testing.T) {
	w := NewWindow(today, 90)
	day90 := today.AddDate(0, 0, 90)
	day91 := today.AddDate(0, 0, 91)
	slots := []models.TimeSlot{
		slot("lwr", day90.Format("2006-01-02")+"T09:00:00-06:00"),
		slot("lwr", day91.Format("2006-01-02")+"T09:00:00-06:00"),
		slot("lwr", "2024-01-08T09:00:00-06:00"),
	}

	find := func(g Grid, date string) Cell {
		for _, c := range g.Cells {
			if c.Date == date {
				return c
			}
		}
		t.Fatalf("cell %s not found", date)
		return Cell{}
	}

	g := MonthGrid(day90, w, slots, "")
	assert.True(t, find(g, day90.Format("2006-01-02")).Interactive)
	assert.False(t, find(g, day91.Format("2006-01-02")).Interactive)
	assert.Equal(t, 1, find(g, day91.Format("2006-01-02")).SlotCount)

	past := MonthGrid(today, w, slots, "")
	assert.False(t, find(past, "2024-01-08").Interactive)
	assert.True(t, find(past, "2024-01-09").InWindow)
	assert.False(t, find(past, "2024-01-09").Interactive)
}

func TestNavigationGuards(t *testing.T) {
	w := NewWindow(today, 90) // last day 2024-04-08
	jan := MonthOf(today)

	assert.False(t, CanGoPrev(jan, w))
	assert.True(t, CanGoNext(jan, w))
	assert.True(t, CanGoPrev(jan.AddDate(0, 1, 0), w))
	assert.True(t, CanGoNext(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), w))
	assert.False(t, CanGoNext(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), w))
}

func TestSlotsForDate(t *testing.T) {
	slots := []models.TimeSlot{
		slot("lwr", "2024-01-10T09:00:00-06:00"),
		slot("lwr", "2024-01-10T23:30:00-06:00"),
		slot("lwr", "2024-01-11T00:30:00Z"),
	}
	got := SlotsForDate(slots, "2024-01-10")
	assert.Len(t, got, 2)
	assert.Equal(t, "11:30 PM", FormatSlotTime(got[1]))
	assert.Empty(t, SlotsForDate(slots, "2024-01-12"))
}

type fakeSource struct {
	slots   map[string][]models.TimeSlot
	err     error
	release map[string]chan struct{}
	started chan string
}

func (f *fakeSource) Availability(ctx context.Context, branch string) ([]models.TimeSlot, error) {
	if f.started != nil {
		f.started <- branch
	}
	if ch, ok := f.release[branch]; ok {
		<-ch
	}
	return f.slots[branch], f.err
}

func TestCalendarSelection(t *testing.T) {
	src := &fakeSource{slots: map[string][]models.TimeSlot{
		"lwr": {
			{Start: "2024-01-10T09:00:00-06:00"},
			{Start: "2024-01-10T13:00:00-06:00"},
			{Start: "2024-01-12T09:00:00-06:00"},
		},
	}}
	c := New(src, 90, WithClock(fixedClock))
	require.NoError(t, c.LoadSlots(context.Background(), "lwr"))
	assert.Equal(t, "lwr", c.Slots()[0].Branch)
	assert.Equal(t, NoSelection, c.Selection().State())

	err := c.SelectDate("2024-01-11")
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, c.SelectDate("2024-01-10"))
	assert.Equal(t, DateSelected, c.Selection().State())
	assert.Len(t, c.DaySlots(), 2)

	_, err = c.SelectSlot("2024-01-12T09:00:00-06:00")
	assert.True(t, apperr.IsValidation(err))

	s, err := c.SelectSlot("2024-01-10T13:00:00-06:00")
	require.NoError(t, err)
	assert.Equal(t, "lwr", s.Branch)
	assert.Equal(t, SlotSelected, c.Selection().State())

	require.NoError(t, c.SelectDate("2024-01-12"))
	assert.Equal(t, DateSelected, c.Selection().State())
	assert.True(t, c.Selection().Slot.IsZero())

	assert.True(t, c.Grid().Cells[c.Grid().Offset+11].Selected)
}

func TestCalendarMonthNavigationClearsSelection(t *testing.T) {
	src := &fakeSource{slots: map[string][]models.TimeSlot{"lwr": {{Start: "2024-01-10T09:00:00-06:00"}}}}
	c := New(src, 90, WithClock(fixedClock))
	require.NoError(t, c.LoadSlots(context.Background(), "lwr"))
	require.NoError(t, c.SelectDate("2024-01-10"))

	assert.True(t, apperr.IsValidation(c.PrevMonth()))
	require.NoError(t, c.NextMonth())
	assert.Equal(t, NoSelection, c.Selection().State())
	require.NoError(t, c.NextMonth())
	require.NoError(t, c.NextMonth())
	assert.Equal(t, time.April, c.Grid().Month.Month())
	assert.True(t, apperr.IsValidation(c.NextMonth()))
	require.NoError(t, c.PrevMonth())
}

func TestCalendarReloadDropsTakenSlot(t *testing.T) {
	src := &fakeSource{slots: map[string][]models.TimeSlot{"lwr": {
		{Start: "2024-01-10T09:00:00-06:00"},
		{Start: "2024-01-10T13:00:00-06:00"},
	}}}
	c := New(src, 90, WithClock(fixedClock))
	ctx := context.Background()
	require.NoError(t, c.LoadSlots(ctx, "lwr"))
	require.NoError(t, c.SelectDate("2024-01-10"))
	_, err := c.SelectSlot("2024-01-10T13:00:00-06:00")
	require.NoError(t, err)

	require.NoError(t, c.LoadSlots(ctx, "lwr"))
	assert.Equal(t, SlotSelected, c.Selection().State())

	src.slots["lwr"] = []models.TimeSlot{{Start: "2024-01-10T09:00:00-06:00"}}
	require.NoError(t, c.LoadSlots(ctx, "lwr"))
	sel := c.Selection()
	assert.Equal(t, DateSelected, sel.State())
	assert.Equal(t, "2024-01-10", sel.Date)
	assert.True(t, sel.Slot.IsZero())

	src.slots["lwr"] = []models.TimeSlot{{Start: "2024-01-12T09:00:00-06:00"}}
	require.NoError(t, c.LoadSlots(ctx, "lwr"))
	assert.Equal(t, NoSelection, c.Selection().State())
}

func TestCalendarBranchChangeResets(t *testing.T) {
	src := &fakeSource{slots: map[string][]models.TimeSlot{
		"lwr": {{Start: "2024-01-10T09:00:00-06:00"}},
		"kc":  {{Start: "2024-01-11T09:00:00-06:00"}},
	}}
	c := New(src, 90, WithClock(fixedClock))
	require.NoError(t, c.LoadSlots(context.Background(), "lwr"))
	require.NoError(t, c.SelectDate("2024-01-10"))

	c.SetBranch("kc")
	assert.Equal(t, NoSelection, c.Selection().State())
	assert.Empty(t, c.Slots())
	assert.False(t, c.Loaded())
}

func TestCalendarDropsStaleResponse(t *testing.T) {
	src := &fakeSource{
		slots: map[string][]models.TimeSlot{
			"lwr": {{Start: "2024-01-10T09:00:00-06:00"}},
			"kc":  {{Start: "2024-01-11T09:00:00-06:00"}},
		},
		release: map[string]chan struct{}{"lwr": make(chan struct{})},
		started: make(chan string, 2),
	}
	c := New(src, 90, WithClock(fixedClock))

	done := make(chan error, 1)
	go func() { done <- c.LoadSlots(context.Background(), "lwr") }()
	assert.Equal(t, "lwr", <-src.started)

	require.NoError(t, c.LoadSlots(context.Background(), "kc"))
	<-src.started
	close(src.release["lwr"])

	assert.True(t, errors.Is(<-done, ErrStaleResponse))
	assert.Equal(t, "kc", c.Branch())
	require.Len(t, c.Slots(), 1)
	assert.Equal(t, "kc", c.Slots()[0].Branch)
}

func TestCalendarSnapshotRestore(t *testing.T) {
	src := &fakeSource{slots: map[string][]models.TimeSlot{"lwr": {{Start: "2024-02-10T09:00:00-06:00"}}}}
	c := New(src, 90, WithClock(fixedClock))
	require.NoError(t, c.LoadSlots(context.Background(), "lwr"))
	require.NoError(t, c.SelectDate("2024-02-10"))

	state := c.Snapshot()
	assert.Equal(t, "2024-02", state.Month)

	restored := New(src, 90, WithClock(fixedClock))
	restored.Restore(state)
	assert.Equal(t, "lwr", restored.Branch())
	assert.Equal(t, DateSelected, restored.Selection().State())
	assert.Equal(t, time.February, restored.Grid().Month.Month())
}
