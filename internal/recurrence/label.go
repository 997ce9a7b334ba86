package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Label describes spec for the anchor the way the preset picker shows it.
func Label(spec Spec, anchor time.Time) string {
	switch s := spec.(type) {
	case nil, None:
		return "Does not repeat"
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly on " + anchor.Weekday().String()
	case Monthly:
		return fmt.Sprintf("Monthly on %s %s", Ordinal(OrdinalOccurrence(anchor)), anchor.Weekday())
	case Yearly:
		return fmt.Sprintf("Annually on %s %d", anchor.Month(), anchor.Day())
	case Weekday:
		return "Every weekday (Monday to Friday)"
	case Custom:
		return customLabel(s, anchor)
	}
	return "Custom"
}

func customLabel(s Custom, anchor time.Time) string {
	unit := strings.TrimSuffix(string(s.Unit), "s")
	var b strings.Builder
	if s.Interval == 1 {
		fmt.Fprintf(&b, "Every %s", unit)
	} else {
		fmt.Fprintf(&b, "Every %d %ss", s.Interval, unit)
	}
	if s.Unit == Weeks {
		days := s.Weekdays
		if len(days) == 0 {
			days = []time.Weekday{anchor.Weekday()}
		}
		names := make([]string, 0, len(days))
		for _, code := range strings.Split(joinWeekdays(days), ",") {
			names = append(names, weekdayByCode[code].String())
		}
		b.WriteString(" on " + strings.Join(names, ", "))
	}
	switch end := s.End.(type) {
	case OnDate:
		b.WriteString(", until " + end.Date.Format("Jan 2, 2006"))
	case AfterCount:
		if end.Count == 1 {
			b.WriteString(", once")
		} else {
			fmt.Fprintf(&b, ", %d times", end.Count)
		}
	}
	return b.String()
}

var weekdayByCode = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// Option is one entry of the preset picker.
type Option struct {
	Preset string `json:"preset"`
	Label  string `json:"label"`
}

// Options lists the fixed presets with labels for the anchor.
func Options(anchor time.Time) []Option {
	specs := []Spec{None{}, Daily{}, Weekly{}, Monthly{}, Yearly{}, Weekday{}}
	out := make([]Option, 0, len(specs)+1)
	for _, s := range specs {
		out = append(out, Option{Preset: PresetOf(s), Label: Label(s, anchor)})
	}
	return append(out, Option{Preset: PresetCustom, Label: "Custom"})
}
