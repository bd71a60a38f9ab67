package vrrp

// Priority is the 8-bit VRRP priority value carried in advertisements
// and configured on a Backup. Comparisons widen to uint32, and the
// skew-time formula multiplies in uint64, so that 256-priority and the
// interval scaling below cannot wrap.
type Priority uint8

const (
	// PriorityShutdown marks an advertisement from an Active that is
	// giving up mastership immediately.
	PriorityShutdown Priority = 0
	// PriorityOwner marks the address owner; Parameters.Priority
	// returns it whenever Mode is ModeOwner.
	PriorityOwner Priority = 255
	// DefaultPriority is the protocol's recommended default for a
	// Backup that has no particular preference.
	DefaultPriority Priority = 100
)

// SkewTime computes ((256-priority) * interval) / 256 with truncating
// division, widened to uint64 per the spec's arithmetic requirement.
func (p Priority) SkewTime(interval Interval) Interval {
	return Interval(uint64(interval) * uint64(256-uint32(p)) / 256)
}

// ActiveDownInterval computes 3*interval + SkewTime(interval).
func (p Priority) ActiveDownInterval(interval Interval) Interval {
	return interval.scale(3).add(p.SkewTime(interval))
}
