package models

// SizeClass is the vehicle size bucket used for the price multiplier.
type SizeClass string

const (
	SizeUnset         SizeClass = ""
	SizeSedan         SizeClass = "Sedan"
	SizeSmallMidSUV   SizeClass = "Small/Mid-SUV"
	SizeLargeSUV      SizeClass = "Large-SUV"
	SizeSmallMidTruck SizeClass = "Small/Mid-Truck"
	SizeLargeTruck    SizeClass = "Large-Truck"
	SizeTransitVan1   SizeClass = "Transit-Van-1"
	SizeTransitVan2   SizeClass = "Transit-Van-2"
)

// SizeClasses lists the selectable size classes in display order.
var SizeClasses = []SizeClass{
	SizeSedan,
	SizeSmallMidSUV,
	SizeLargeSUV,
	SizeSmallMidTruck,
	SizeLargeTruck,
	SizeTransitVan1,
	SizeTransitVan2,
}

func (s SizeClass) Valid() bool {
	if s == SizeUnset {
		return true
	}
	for _, c := range SizeClasses {
		if c == s {
			return true
		}
	}
	return false
}

type Condition string

const (
	ConditionUnset    Condition = ""
	ConditionClean    Condition = "clean"
	ConditionModerate Condition = "moderate"
	ConditionHeavy    Condition = "heavy"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionUnset, ConditionClean, ConditionModerate, ConditionHeavy:
		return true
	}
	return false
}

// VehicleProfile is filled in on the vehicle step. Year, make and model
// come from the dependent catalog dropdowns.
type VehicleProfile struct {
	SizeClass SizeClass `json:"vehicleSize"`
	Year      string    `json:"vehicleYear"`
	Make      string    `json:"vehicleMake"`
	Model     string    `json:"vehicleModel"`
	Condition Condition `json:"condition"`
}
