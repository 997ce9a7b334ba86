package wizard

import "fmt"

type Step int

const (
	StepContact  Step = 1
	StepVehicle  Step = 2
	StepPetHair  Step = 3
	StepSchedule Step = 4
	StepCustomer Step = 5
	StepPayment  Step = 6
	StepDone     Step = 7
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepVehicle:
		return "vehicle"
	case StepPetHair:
		return "pet_hair"
	case StepSchedule:
		return "schedule"
	case StepCustomer:
		return "customer"
	case StepPayment:
		return "payment"
	case StepDone:
		return "done"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Valid() bool { return s >= StepContact && s <= StepDone }

type Event string

const (
	EventNext           Event = "next"
	EventBack           Event = "back"
	EventPetHairYes     Event = "pet_hair_yes"
	EventPetHairNo      Event = "pet_hair_no"
	EventConfirmBilling Event = "confirm_billing"
	EventSkipPayment    Event = "skip_payment"
	EventBookAnother    Event = "book_another"
)

// transitions is the complete step graph. Guards and side effects live in
// the Wizard; an event missing here is rejected.
var transitions = map[Step]map[Event]Step{
	StepContact: {
		EventNext: StepVehicle,
	},
	StepVehicle: {
		EventNext: StepPetHair,
		EventBack: StepContact,
	},
	StepPetHair: {
		EventPetHairYes: StepVehicle,
		EventPetHairNo:  StepSchedule,
		EventBack:       StepVehicle,
	},
	StepSchedule: {
		EventNext: StepCustomer,
		EventBack: StepPetHair,
	},
	StepCustomer: {
		EventNext: StepPayment,
		EventBack: StepSchedule,
	},
	StepPayment: {
		EventConfirmBilling: StepDone,
		EventSkipPayment:    StepDone,
		EventBack:           StepCustomer,
	},
	StepDone: {
		EventBookAnother: StepContact,
	},
}

// Target returns the step ev leads to from s.
func Target(s Step, ev Event) (Step, bool) {
	to, ok := transitions[s][ev]
	return to, ok
}

// Allowed lists the events accepted on s.
func Allowed(s Step) []Event {
	order := []Event{EventBack, EventNext, EventPetHairYes, EventPetHairNo, EventConfirmBilling, EventSkipPayment, EventBookAnother}
	var out []Event
	for _, ev := range order {
		if _, ok := transitions[s][ev]; ok {
			out = append(out, ev)
		}
	}
	return out
}
