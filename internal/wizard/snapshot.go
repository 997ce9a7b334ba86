package wizard

import (
	"encoding/json"
	"fmt"

	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/models"
)

const stateVersion = 1

// State is the persisted form of a wizard session.
type State struct {
	Version   int                 `json:"version"`
	SessionID string              `json:"sessionId"`
	Step      Step                `json:"step"`
	Draft     models.BookingDraft `json:"draft"`
	Dropdowns VehicleDropdowns    `json:"dropdowns"`
	Calendar  calendar.State      `json:"calendar"`
	Notice    string              `json:"notice,omitempty"`
}

func (w *Wizard) Snapshot() State {
	return State{
		Version:   stateVersion,
		SessionID: w.sessionID,
		Step:      w.step,
		Draft:     w.draft,
		Dropdowns: w.dropdowns,
		Calendar:  w.cal.Snapshot(),
		Notice:    w.notice,
	}
}

// MarshalState encodes the snapshot as JSON.
func (w *Wizard) MarshalState() ([]byte, error) {
	return json.Marshal(w.Snapshot())
}

// Restore rebuilds a session from a snapshot.
func Restore(deps Deps, st State) (*Wizard, error) {
	if st.Version != stateVersion {
		return nil, fmt.Errorf("unsupported wizard state version %d", st.Version)
	}
	if !st.Step.Valid() {
		return nil, fmt.Errorf("invalid wizard step %d", st.Step)
	}
	w := New(st.SessionID, deps)
	w.step = st.Step
	w.draft = st.Draft
	w.dropdowns = st.Dropdowns
	if len(w.dropdowns.Year.Options) == 0 {
		w.dropdowns.Year = newVehicleDropdowns(w.deps.Now()).Year
	}
	w.cal.Restore(st.Calendar)
	w.notice = st.Notice
	return w, nil
}

// UnmarshalState decodes a JSON snapshot and restores it.
func UnmarshalState(deps Deps, data []byte) (*Wizard, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode wizard state: %w", err)
	}
	return Restore(deps, st)
}
