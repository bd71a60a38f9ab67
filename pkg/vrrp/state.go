package vrrp

import "time"

// StateKind discriminates the three states a Router can occupy.
type StateKind int

const (
	StateInitialized StateKind = iota
	StateBackup
	StateActive
)

func (k StateKind) String() string {
	switch k {
	case StateInitialized:
		return "INITIALIZED"
	case StateBackup:
		return "BACKUP"
	case StateActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// State is the Router's current position in the VRRP state machine.
// Only the field matching Kind is meaningful.
type State struct {
	Kind   StateKind
	Backup BackupState
	Active ActiveState
}

// BackupState carries the deadline at which the current Active is
// presumed dead, and the advertisement interval observed from it
// (used to recompute the timer on every subsequent advertisement).
type BackupState struct {
	ActiveDownTimer     time.Time
	ActiveAdverInterval Interval
}

// ActiveState carries the instant at which the next advertisement is
// due.
type ActiveState struct {
	AdverTimer time.Time
}

func (s State) String() string {
	return s.Kind.String()
}
