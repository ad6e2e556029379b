package subscription

import "github.com/amishk599/jobfinder/internal/model"

// State is where a subscriber is in the verification flow.
type State int

const (
	Unregistered State = iota
	PendingVerification
	Verified   // verified, no keyword
	Subscribed // verified with a keyword; receives digests
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case PendingVerification:
		return "pending_verification"
	case Verified:
		return "verified"
	case Subscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// StateOf derives the state of a user row. A nil user is Unregistered.
func StateOf(u *model.User) State {
	switch {
	case u == nil:
		return Unregistered
	case !u.Verified:
		return PendingVerification
	case u.Subscribed():
		return Subscribed
	default:
		return Verified
	}
}
