package recurrence

import (
	"errors"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/metrics"

	"github.com/rs/zerolog"
)

// DegradedWarning is shown when a recurrence had to be dropped.
const DegradedWarning = "Recurrence could not be applied; the event was saved without repeating."

// CompileOrDegrade compiles spec, turning a CompilationError into an empty
// rule plus a warning so the caller can still save a one-off event. A
// ValidationError is returned as is.
func CompileOrDegrade(spec Spec, anchor time.Time, logger *zerolog.Logger) (rule string, warning string, err error) {
	rule, err = Compile(spec, anchor)
	if err == nil {
		return rule, "", nil
	}
	return degrade(err, PresetOf(spec), logger)
}

// CompileForm parses the editor fields and compiles them with the same
// degradation rules as CompileOrDegrade.
func CompileForm(f Form, anchor time.Time, logger *zerolog.Logger) (rule string, warning string, err error) {
	spec, err := FromForm(f)
	if err != nil {
		return degrade(err, f.Preset, logger)
	}
	return CompileOrDegrade(spec, anchor, logger)
}

func degrade(err error, preset string, logger *zerolog.Logger) (string, string, error) {
	var compErr *apperr.CompilationError
	if !errors.As(err, &compErr) {
		return "", "", err
	}

	metrics.IncRecurrenceDegraded()
	if logger != nil {
		logger.Warn().Err(err).Str("preset", preset).Msg("recurrence dropped, saving as a single event")
	}
	return "", DegradedWarning, nil
}

// RRuleLines wraps a compiled rule for transmission.
func RRuleLines(rule string) []string {
	if rule == "" {
		return []string{}
	}
	return []string{"RRULE:" + rule}
}
