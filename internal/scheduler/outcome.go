package scheduler

// OutcomeKind classifies one booking attempt.
type OutcomeKind int

const (
	OutcomeBooked OutcomeKind = iota
	OutcomeAlreadyBooked
	OutcomeWaitingList
	OutcomeSlotNotFound
	OutcomeFailed
)

// Outcome is the result of the booking-attempt procedure. Message is
// only set for OutcomeFailed and carries the provider's reason.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeBooked:
		return "booked"
	case OutcomeAlreadyBooked:
		return "already booked"
	case OutcomeWaitingList:
		return "waiting list"
	case OutcomeSlotNotFound:
		return "slot not found"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}
