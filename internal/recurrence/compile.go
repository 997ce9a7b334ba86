package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"

	"github.com/teambition/rrule-go"
)

const untilLayout = "20060102T150405Z"

// Compile builds the bare rule (no "RRULE:" prefix, no DTSTART) for spec
// anchored at the event start. None compiles to "".
//
// An end date before the anchor's date is a ValidationError; any other
// malformed input is a CompilationError.
func Compile(spec Spec, anchor time.Time) (string, error) {
	if spec == nil {
		return "", nil
	}
	if _, ok := spec.(None); ok {
		return "", nil
	}
	if anchor.IsZero() {
		return "", apperr.Compilation("anchor start is required", nil)
	}

	var rule string
	switch s := spec.(type) {
	case Daily:
		rule = "FREQ=DAILY;INTERVAL=1"
	case Weekly:
		rule = "FREQ=WEEKLY;INTERVAL=1;BYDAY=" + WeekdayCode(anchor.Weekday())
	case Monthly:
		rule = fmt.Sprintf("FREQ=MONTHLY;INTERVAL=1;BYDAY=+%d%s", OrdinalOccurrence(anchor), WeekdayCode(anchor.Weekday()))
	case Yearly:
		rule = fmt.Sprintf("FREQ=YEARLY;INTERVAL=1;BYMONTH=%d;BYMONTHDAY=%d", int(anchor.Month()), anchor.Day())
	case Weekday:
		rule = "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,TU,WE,TH,FR"
	case Custom:
		var err error
		if rule, err = compileCustom(s, anchor); err != nil {
			return "", err
		}
	default:
		return "", apperr.Compilation(fmt.Sprintf("unknown preset %T", spec), nil)
	}

	if err := verify(rule, anchor); err != nil {
		return "", err
	}
	return rule, nil
}

func compileCustom(s Custom, anchor time.Time) (string, error) {
	if s.Interval < 1 {
		return "", apperr.Compilation("interval must be positive", nil)
	}
	freq, ok := s.Unit.freq()
	if !ok {
		return "", apperr.Compilation(fmt.Sprintf("unknown unit %q", s.Unit), nil)
	}
	if len(s.Weekdays) > 0 && s.Unit != Weeks {
		return "", apperr.Compilation("weekdays are only allowed for weekly repetition", nil)
	}

	parts := []string{"FREQ=" + freq, fmt.Sprintf("INTERVAL=%d", s.Interval)}

	if s.Unit == Weeks {
		days := s.Weekdays
		if len(days) == 0 {
			days = []time.Weekday{anchor.Weekday()}
		}
		parts = append(parts, "BYDAY="+joinWeekdays(days))
	}

	switch end := s.End.(type) {
	case nil, Never:
	case OnDate:
		if end.Date.IsZero() {
			return "", apperr.Compilation("end date is required", nil)
		}
		until, err := untilOf(end.Date, anchor)
		if err != nil {
			return "", err
		}
		parts = append(parts, "UNTIL="+until.UTC().Format(untilLayout))
	case AfterCount:
		if end.Count < 1 {
			return "", apperr.Compilation("occurrence count must be positive", nil)
		}
		parts = append(parts, fmt.Sprintf("COUNT=%d", end.Count))
	default:
		return "", apperr.Compilation(fmt.Sprintf("unknown end condition %T", s.End), nil)
	}

	return strings.Join(parts, ";"), nil
}

// untilOf returns the last instant of the end date in the anchor's zone.
func untilOf(date, anchor time.Time) (time.Time, error) {
	y, m, d := date.Date()
	endDay := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	ay, am, ad := anchor.Date()
	anchorDay := time.Date(ay, am, ad, 0, 0, 0, 0, anchor.Location())
	if endDay.Before(anchorDay) {
		return time.Time{}, apperr.Validation("end", "recurrence end date %s is before the start %s",
			endDay.Format("2006-01-02"), anchorDay.Format("2006-01-02"))
	}
	return endDay.AddDate(0, 0, 1).Add(-time.Second), nil
}

func joinWeekdays(days []time.Weekday) string {
	seen := make(map[time.Weekday]bool, len(days))
	uniq := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	// Monday first, Sunday last.
	sort.Slice(uniq, func(i, j int) bool {
		return (uniq[i]+6)%7 < (uniq[j]+6)%7
	})
	codes := make([]string, len(uniq))
	for i, d := range uniq {
		codes[i] = WeekdayCode(d)
	}
	return strings.Join(codes, ",")
}

// verify runs the rule through the rrule parser so that a string the
// calendar store would reject is never produced.
func verify(rule string, anchor time.Time) error {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return apperr.Compilation("rule rejected by parser", err)
	}
	opt.Dtstart = anchor
	if _, err := rrule.NewRRule(*opt); err != nil {
		return apperr.Compilation("rule rejected by parser", err)
	}
	return nil
}
