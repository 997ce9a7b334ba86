package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
)

// Form carries the flat recurrence fields of the event editor.
type Form struct {
	Preset            string   `json:"recurrencePreset"`
	CustomInterval    int      `json:"customInterval"`
	CustomUnit        string   `json:"customUnit"`
	CustomDays        []string `json:"customDays"`
	CustomEndType     string   `json:"customEndType"`
	CustomEndDate     string   `json:"customEndDate"`
	CustomOccurrences int      `json:"customOccurrences"`
}

// DefaultForm is the editor's initial recurrence state.
func DefaultForm() Form {
	return Form{
		Preset:            PresetNone,
		CustomInterval:    1,
		CustomUnit:        string(Days),
		CustomEndType:     EndNever,
		CustomOccurrences: 1,
	}
}

// FromForm builds a Spec from the form fields. Unparseable custom fields
// are CompilationErrors so the caller can degrade to no recurrence.
func FromForm(f Form) (Spec, error) {
	switch strings.ToLower(strings.TrimSpace(f.Preset)) {
	case "", PresetNone:
		return None{}, nil
	case PresetDaily:
		return Daily{}, nil
	case PresetWeekly:
		return Weekly{}, nil
	case PresetMonthly:
		return Monthly{}, nil
	case PresetYearly:
		return Yearly{}, nil
	case PresetWeekday:
		return Weekday{}, nil
	case PresetCustom:
		return customFromForm(f)
	}
	return nil, apperr.Compilation(fmt.Sprintf("unknown preset %q", f.Preset), nil)
}

func customFromForm(f Form) (Spec, error) {
	c := Custom{Interval: f.CustomInterval, Unit: Unit(strings.ToLower(f.CustomUnit)), End: Never{}}

	// Selected days are kept by the form across unit changes; only weekly
	// repetition uses them.
	if c.Unit == Weeks {
		for _, name := range f.CustomDays {
			d, err := ParseWeekday(name)
			if err != nil {
				return nil, err
			}
			c.Weekdays = append(c.Weekdays, d)
		}
	}

	switch strings.ToLower(f.CustomEndType) {
	case "", EndNever:
	case EndDate:
		date, err := time.Parse("2006-01-02", f.CustomEndDate)
		if err != nil {
			return nil, apperr.Compilation("invalid end date", err)
		}
		c.End = OnDate{Date: date}
	case EndCount:
		c.End = AfterCount{Count: f.CustomOccurrences}
	default:
		return nil, apperr.Compilation(fmt.Sprintf("unknown end type %q", f.CustomEndType), nil)
	}
	return c, nil
}

// ParseWeekday accepts a full English day name or its first two letters.
func ParseWeekday(name string) (time.Weekday, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if len(s) >= 2 {
		if d, ok := weekdayByCode[s[:2]]; ok {
			return d, nil
		}
	}
	return 0, apperr.Compilation(fmt.Sprintf("unknown weekday %q", name), nil)
}
