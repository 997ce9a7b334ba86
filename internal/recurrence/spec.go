// Package recurrence turns recurrence presets into RFC 5545 rule strings.
package recurrence

import "time"

// Spec is one of None, Daily, Weekly, Monthly, Yearly, Weekday or Custom.
type Spec interface {
	preset() string
}

type None struct{}

// Daily repeats every day.
type Daily struct{}

// Weekly repeats every week on the anchor's weekday.
type Weekly struct{}

// Monthly repeats on the same ordinal weekday as the anchor, for example
// the 2nd Tuesday of every month.
type Monthly struct{}

// Yearly repeats on the anchor's month and day of month.
type Yearly struct{}

// Weekday repeats Monday through Friday.
type Weekday struct{}

// Custom repeats every Interval units. Weekdays is only meaningful for
// Weeks; when empty the anchor's weekday is used.
type Custom struct {
	Interval int
	Unit     Unit
	Weekdays []time.Weekday
	End      End
}

func (None) preset() string    { return PresetNone }
func (Daily) preset() string   { return PresetDaily }
func (Weekly) preset() string  { return PresetWeekly }
func (Monthly) preset() string { return PresetMonthly }
func (Yearly) preset() string  { return PresetYearly }
func (Weekday) preset() string { return PresetWeekday }
func (Custom) preset() string  { return PresetCustom }

// Preset names as used by forms and the API.
const (
	PresetNone    = "none"
	PresetDaily   = "daily"
	PresetWeekly  = "weekly"
	PresetMonthly = "monthly"
	PresetYearly  = "yearly"
	PresetWeekday = "weekday"
	PresetCustom  = "custom"
)

// Presets lists the preset names in display order.
var Presets = []string{PresetNone, PresetDaily, PresetWeekly, PresetMonthly, PresetYearly, PresetWeekday, PresetCustom}

// PresetOf returns the preset name of spec. A nil spec is "none".
func PresetOf(spec Spec) string {
	if spec == nil {
		return PresetNone
	}
	return spec.preset()
}

type Unit string

const (
	Days   Unit = "days"
	Weeks  Unit = "weeks"
	Months Unit = "months"
	Years  Unit = "years"
)

func (u Unit) freq() (string, bool) {
	switch u {
	case Days:
		return "DAILY", true
	case Weeks:
		return "WEEKLY", true
	case Months:
		return "MONTHLY", true
	case Years:
		return "YEARLY", true
	}
	return "", false
}

// End is one of Never, OnDate or AfterCount.
type End interface {
	endKind() string
}

type Never struct{}

// OnDate ends the series after the given calendar date.
type OnDate struct {
	Date time.Time
}

// AfterCount ends the series after Count occurrences.
type AfterCount struct {
	Count int
}

func (Never) endKind() string      { return EndNever }
func (OnDate) endKind() string     { return EndDate }
func (AfterCount) endKind() string { return EndCount }

const (
	EndNever = "never"
	EndDate  = "date"
	EndCount = "count"
)
