// File: internal/product/status.go
package product

import "launchpad_backend/internal/common"

// Transition names a moderation status change.
type Transition string

const (
	TransitionSubmit    Transition = "submit"
	TransitionApprove   Transition = "approve"
	TransitionReject    Transition = "reject"
	TransitionSuspend   Transition = "suspend"
	TransitionReinstate Transition = "reinstate"
)

type edge struct {
	from []Status
	to   Status
}

var transitions = map[Transition]edge{
	TransitionSubmit:    {from: []Status{StatusDraft, StatusRejected}, to: StatusSubmitted},
	TransitionApprove:   {from: []Status{StatusSubmitted}, to: StatusPublished},
	TransitionReject:    {from: []Status{StatusSubmitted}, to: StatusRejected},
	TransitionSuspend:   {from: []Status{StatusPublished}, to: StatusSuspended},
	TransitionReinstate: {from: []Status{StatusSuspended}, to: StatusPublished},
}

// NextStatus returns the status reached by applying t to current, or an
// *common.InvalidTransitionError when t is not allowed from current.
func NextStatus(current Status, t Transition) (Status, error) {
	e, ok := transitions[t]
	if !ok {
		return current, &common.InvalidTransitionError{Current: string(current), Requested: string(t)}
	}
	for _, from := range e.from {
		if from == current {
			return e.to, nil
		}
	}
	return current, &common.InvalidTransitionError{Current: string(current), Requested: string(e.to)}
}
