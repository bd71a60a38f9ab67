package vrrp

import (
	"bytes"
	"encoding/binary"
	"net"
	"time"
)

// Router is the VRRP finite-state machine for one (VRID, interface)
// virtual router. It holds its Parameters and current State and is a
// pure function from (state, parameters, now, input) to (next state,
// action stream): it never performs I/O, never blocks, and never
// observes time except through the instant the caller passes it.
//
// Router is not safe for concurrent use. HandleInput's returned
// Actions must be fully drained before the next call; an embedder
// that wants to run many virtual routers uses one Router per
// (VRID, interface) and serializes calls to each from a single
// goroutine (see Instance).
type Router struct {
	params *Parameters
	state  State
}

// NewRouter constructs a Router in the Initialized state.
func NewRouter(params *Parameters) *Router {
	return &Router{params: params, state: State{Kind: StateInitialized}}
}

// Parameters returns the router's static configuration.
func (r *Router) Parameters() *Parameters {
	return r.params
}

// State returns the router's current state. Observational only; for
// diagnostics and tests.
func (r *Router) State() State {
	return r.state
}

// NextTimer returns the instant at which the router next needs a
// TimerInput: the adver timer while Active, the active-down timer
// while Backup, or now+advertisement_interval while Initialized (a
// placeholder — no timer is actually required until Startup).
func (r *Router) NextTimer(now time.Time) time.Time {
	switch r.state.Kind {
	case StateActive:
		return r.state.Active.AdverTimer
	case StateBackup:
		return r.state.Backup.ActiveDownTimer
	default:
		return now.Add(r.params.AdvInterval.Duration())
	}
}

// HandleInput advances the state machine by one input and returns the
// resulting action stream. Any input not named for the current state
// yields no state change and an empty stream.
func (r *Router) HandleInput(now time.Time, in Input) Actions {
	switch r.state.Kind {
	case StateInitialized:
		return r.handleInitialized(now, in)
	case StateActive:
		return r.handleActive(now, in)
	case StateBackup:
		return r.handleBackup(now, in)
	default:
		return emptyActions()
	}
}

func (r *Router) handleInitialized(now time.Time, in Input) Actions {
	switch in.Kind {
	case InputCommand:
		if in.Command != CommandStartup {
			return emptyActions() // Shutdown: no-op
		}
		if r.params.Mode.Kind == ModeOwner {
			r.state = State{Kind: StateActive, Active: ActiveState{
				AdverTimer: now.Add(r.params.AdvInterval.Duration()),
			}}
			return transitionToActiveActions(r.params)
		}
		adv := r.params.AdvInterval
		r.state = State{Kind: StateBackup, Backup: BackupState{
			ActiveAdverInterval: adv,
			ActiveDownTimer:     now.Add(r.params.ActiveDownInterval(adv).Duration()),
		}}
		return emptyActions()

	case InputPacket:
		if in.Packet.Kind == ReceivedIP {
			return singleAction(routeAction(RouteReject))
		}
		return emptyActions()

	default: // InputTimer
		return emptyActions()
	}
}

func (r *Router) handleActive(now time.Time, in Input) Actions {
	switch in.Kind {
	case InputCommand:
		if in.Command != CommandShutdown {
			return emptyActions() // Startup: no-op, already Active
		}
		r.state = State{Kind: StateInitialized}
		return shutdownActiveActions(r.params)

	case InputTimer:
		adverTimer := r.state.Active.AdverTimer
		if now.Before(adverTimer) {
			return emptyActions()
		}
		r.state = State{Kind: StateActive, Active: ActiveState{
			AdverTimer: now.Add(r.params.AdvInterval.Duration()),
		}}
		return singleAction(sendAdvertisementAction())

	case InputPacket:
		return r.handleActivePacket(now, in.Packet)

	default:
		return emptyActions()
	}
}

func (r *Router) handleActivePacket(now time.Time, pkt ReceivedPacket) Actions {
	switch pkt.Kind {
	case ReceivedShutdownAdvertisement:
		// Spur: reassert mastership immediately.
		r.state = State{Kind: StateActive, Active: ActiveState{
			AdverTimer: now.Add(r.params.AdvInterval.Duration()),
		}}
		return singleAction(sendAdvertisementAction())

	case ReceivedAdvertisement:
		if r.senderWins(pkt) {
			r.state = State{Kind: StateBackup, Backup: BackupState{
				ActiveAdverInterval: pkt.Interval,
				ActiveDownTimer:     now.Add(r.params.ActiveDownInterval(pkt.Interval).Duration()),
			}}
			return singleAction(deactivateAction())
		}
		r.state = State{Kind: StateActive, Active: ActiveState{
			AdverTimer: now.Add(r.params.AdvInterval.Duration()),
		}}
		return singleAction(sendAdvertisementAction())

	case ReceivedRequestARP:
		if !r.params.Addresses.Contains(pkt.TargetIP) {
			return emptyActions()
		}
		return singleAction(sendReplyARPAction(
			r.params.MACAddress(), pkt.TargetIP, pkt.SenderMAC, pkt.SenderIP,
		))

	case ReceivedIP:
		if !macEqual(pkt.TargetMAC, r.params.MACAddress()) {
			return emptyActions()
		}
		if r.params.Addresses.Contains(pkt.TargetIP) && r.params.ShouldAccept() {
			return singleAction(routeAction(RouteAccept))
		}
		return singleAction(routeAction(RouteForward))

	default:
		return emptyActions()
	}
}

// senderWins reports whether an Advertisement received while Active
// beats this router's own priority: strictly higher priority wins
// outright; an exact tie is broken by the higher primary IPv4 address
// in network byte order.
func (r *Router) senderWins(pkt ReceivedPacket) bool {
	self := uint32(r.params.Priority())
	sender := uint32(pkt.Priority)
	if sender != self {
		return sender > self
	}
	return ipv4Greater(pkt.SenderIP, r.params.PrimaryIP())
}

func (r *Router) handleBackup(now time.Time, in Input) Actions {
	backup := r.state.Backup

	switch in.Kind {
	case InputCommand:
		if in.Command == CommandShutdown {
			r.state = State{Kind: StateInitialized}
			return emptyActions()
		}
		// Startup while Backup: promote if the deadline already elapsed.
		if !now.Before(backup.ActiveDownTimer) {
			r.promote(now)
			return transitionToActiveActions(r.params)
		}
		return emptyActions()

	case InputTimer:
		if !now.Before(backup.ActiveDownTimer) {
			r.promote(now)
			return transitionToActiveActions(r.params)
		}
		return emptyActions()

	case InputPacket:
		return r.handleBackupPacket(now, in.Packet)

	default:
		return emptyActions()
	}
}

func (r *Router) promote(now time.Time) {
	r.state = State{Kind: StateActive, Active: ActiveState{
		AdverTimer: now.Add(r.params.AdvInterval.Duration()),
	}}
}

func (r *Router) handleBackupPacket(now time.Time, pkt ReceivedPacket) Actions {
	switch pkt.Kind {
	case ReceivedShutdownAdvertisement:
		// Skew_Time short-circuit: the Active is yielding, challenge soon.
		r.state = State{Kind: StateBackup, Backup: BackupState{
			ActiveAdverInterval: pkt.Interval,
			ActiveDownTimer:     now.Add(r.params.SkewTime(pkt.Interval).Duration()),
		}}
		return emptyActions()

	case ReceivedAdvertisement:
		if !r.params.ShouldPreempt() || uint32(pkt.Priority) >= uint32(r.params.Priority()) {
			r.state = State{Kind: StateBackup, Backup: BackupState{
				ActiveAdverInterval: pkt.Interval,
				ActiveDownTimer:     now.Add(r.params.ActiveDownInterval(pkt.Interval).Duration()),
			}}
		}
		// Preempt-eligible and strictly lower priority: let the timer run out.
		return emptyActions()

	case ReceivedRequestARP:
		return emptyActions() // only the Active answers ARP

	case ReceivedIP:
		return singleAction(routeAction(RouteReject))

	default:
		return emptyActions()
	}
}

func macEqual(a, b net.HardwareAddr) bool {
	return bytes.Equal(a, b)
}

// ipv4Greater reports whether a > b as a 32-bit unsigned integer in
// network byte order.
func ipv4Greater(a, b net.IP) bool {
	av, bv := a.To4(), b.To4()
	return binary.BigEndian.Uint32(av) > binary.BigEndian.Uint32(bv)
}
