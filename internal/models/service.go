package models

import (
	"encoding/json"
	"sort"
)

type Package string

const (
	PackageUnset    Package = ""
	PackageInterior Package = "interior"
	PackageExterior Package = "exterior"
	PackageBoth     Package = "both"
)

// Packages lists the selectable packages in display order.
var Packages = []Package{PackageInterior, PackageExterior, PackageBoth}

func (p Package) Valid() bool {
	switch p {
	case PackageUnset, PackageInterior, PackageExterior, PackageBoth:
		return true
	}
	return false
}

type Addon string

const (
	AddonCeramic Addon = "ceramic"
	AddonPaint   Addon = "paint"
	AddonPetHair Addon = "petHair"
)

// Addons lists the selectable add-ons in display order.
var Addons = []Addon{AddonPetHair, AddonCeramic, AddonPaint}

func (a Addon) Valid() bool {
	switch a {
	case AddonCeramic, AddonPaint, AddonPetHair:
		return true
	}
	return false
}

// AddonSet is an immutable set of add-ons. Mutators return a new set and
// never touch the receiver's backing array.
type AddonSet struct {
	items []Addon
}

func NewAddonSet(addons ...Addon) AddonSet {
	var s AddonSet
	for _, a := range addons {
		s = s.With(a)
	}
	return s
}

func (s AddonSet) Has(a Addon) bool {
	for _, it := range s.items {
		if it == a {
			return true
		}
	}
	return false
}

func (s AddonSet) Len() int { return len(s.items) }

// Items returns a sorted copy of the set.
func (s AddonSet) Items() []Addon {
	out := make([]Addon, len(s.items))
	copy(out, s.items)
	return out
}

func (s AddonSet) With(a Addon) AddonSet {
	if s.Has(a) {
		return s
	}
	out := make([]Addon, 0, len(s.items)+1)
	out = append(out, s.items...)
	out = append(out, a)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return AddonSet{items: out}
}

func (s AddonSet) Without(a Addon) AddonSet {
	if !s.Has(a) {
		return s
	}
	out := make([]Addon, 0, len(s.items))
	for _, it := range s.items {
		if it != a {
			out = append(out, it)
		}
	}
	return AddonSet{items: out}
}

func (s AddonSet) Toggle(a Addon) AddonSet {
	if s.Has(a) {
		return s.Without(a)
	}
	return s.With(a)
}

func (s AddonSet) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []Addon{}
	}
	return json.Marshal(items)
}

func (s *AddonSet) UnmarshalJSON(data []byte) error {
	var raw []Addon
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewAddonSet(raw...)
	return nil
}

// ServicePackage is the package plus add-ons chosen on the vehicle step.
type ServicePackage struct {
	Package Package  `json:"package"`
	Addons  AddonSet `json:"addons"`
}
