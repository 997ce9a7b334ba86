package models

import "time"

// TimeSlot is an available start instant at one branch. Start is kept as
// the literal ISO-8601 string returned by the availability service.
type TimeSlot struct {
	Branch string `json:"branch"`
	Start  string `json:"start"`
}

// Date returns the literal YYYY-MM-DD component of Start, without any
// time-zone conversion.
func (s TimeSlot) Date() string {
	if len(s.Start) < 10 {
		return ""
	}
	return s.Start[:10]
}

func (s TimeSlot) IsZero() bool { return s.Start == "" }

// Branch is a service location with its own calendar and phone number.
type Branch struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Phone         string `yaml:"phone" json:"phone"`
	EmployeeName  string `yaml:"employee_name" json:"employeeName"`
	EmployeeEmail string `yaml:"employee_email" json:"employeeEmail"`
	TimeZone      string `yaml:"time_zone" json:"timeZone"`
}

// Clock renders the slot start as "03:04 PM" in the slot's own offset.
// An unparsable start yields "".
func (s TimeSlot) Clock() string {
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, s.Start); err == nil {
			return t.Format("03:04 PM")
		}
	}
	return ""
}

var slotLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}
