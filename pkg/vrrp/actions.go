package vrrp

// actionsKind discriminates the small set of shapes an action stream
// can take, mirroring a closed sum type.
type actionsKind int

const (
	actionsEmpty actionsKind = iota
	actionsSingle
	actionsTransitionToActive
	actionsShutdownActive
)

// Actions is the lazy, finite, single-pass stream of Action values
// produced by one call to Router.HandleInput. It unfolds the two
// compound sequences (TransitionToActive, ShutdownActive) one Action
// at a time rather than materializing a slice, mirroring the
// teacher's channel-fed action delivery without the channel: the
// caller must fully drain an Actions value (via Next or Collect)
// before calling HandleInput again.
type Actions struct {
	kind actionsKind

	// actionsSingle
	single   Action
	consumed bool

	// actionsTransitionToActive, actionsShutdownActive
	params *Parameters
	offset int
}

func emptyActions() Actions {
	return Actions{kind: actionsEmpty}
}

func singleAction(a Action) Actions {
	return Actions{kind: actionsSingle, single: a}
}

func transitionToActiveActions(params *Parameters) Actions {
	return Actions{kind: actionsTransitionToActive, params: params}
}

func shutdownActiveActions(params *Parameters) Actions {
	return Actions{kind: actionsShutdownActive, params: params}
}

// Next returns the next Action in the stream, or ok=false once
// exhausted.
func (a *Actions) Next() (Action, bool) {
	switch a.kind {
	case actionsSingle:
		if a.consumed {
			return Action{}, false
		}
		a.consumed = true
		return a.single, true

	case actionsTransitionToActive:
		switch a.offset {
		case 0:
			a.offset++
			return activateAction(), true
		case 1:
			a.offset++
			return sendAdvertisementAction(), true
		default:
			idx := a.offset - 2
			ip, ok := a.params.Addresses.Get(idx)
			if !ok {
				return Action{}, false
			}
			a.offset++
			return sendGratuitousARPAction(a.params.MACAddress(), ip), true
		}

	case actionsShutdownActive:
		switch a.offset {
		case 0:
			a.offset++
			return sendShutdownAdvertisementAction(), true
		case 1:
			a.offset++
			return deactivateAction(), true
		default:
			return Action{}, false
		}

	default: // actionsEmpty
		return Action{}, false
	}
}

// Collect drains the stream into a slice, for tests and for
// embedders that would rather not write a manual loop.
func (a Actions) Collect() []Action {
	var out []Action
	for {
		action, ok := a.Next()
		if !ok {
			return out
		}
		out = append(out, action)
	}
}
