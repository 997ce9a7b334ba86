package wizard

import (
	"strconv"
	"time"

	"github.com/detailongo/dotg-team/internal/models"
)

type LoadState string

const (
	LoadIdle    LoadState = "idle"
	LoadLoading LoadState = "loading"
	LoadLoaded  LoadState = "loaded"
	LoadFailed  LoadState = "failed"
)

// Dropdown is one dependent vehicle selector.
type Dropdown struct {
	Options  []string  `json:"options"`
	Selected string    `json:"selected"`
	State    LoadState `json:"state"`
}

func (d Dropdown) Has(option string) bool {
	for _, o := range d.Options {
		if o == option {
			return true
		}
	}
	return false
}

// VehicleDropdowns is the Year, Make, Model chain. Changing an upstream
// selection clears everything below it.
type VehicleDropdowns struct {
	Year  Dropdown `json:"year"`
	Make  Dropdown `json:"make"`
	Model Dropdown `json:"model"`
}

func newVehicleDropdowns(now time.Time) VehicleDropdowns {
	return VehicleDropdowns{
		Year:  Dropdown{Options: YearOptions(now), State: LoadLoaded},
		Make:  Dropdown{State: LoadIdle},
		Model: Dropdown{State: LoadIdle},
	}
}

// YearOptions lists model years from the current year down to 1995.
func YearOptions(now time.Time) []string {
	out := make([]string, 0, now.Year()-models.EarliestVehicleYear+1)
	for y := now.Year(); y >= models.EarliestVehicleYear; y-- {
		out = append(out, strconv.Itoa(y))
	}
	return out
}
