package vrrp

import "net"

// Parameters is the immutable, per-virtual-router static
// configuration: VRID, virtual addresses, advertisement interval, and
// Owner/Backup mode. Once constructed via NewParameters it never
// changes; the Router only ever reads it.
type Parameters struct {
	VRID        VRID
	Addresses   VirtualAddresses
	AdvInterval Interval
	Mode        Mode
}

// NewParameters validates and constructs Parameters. Construction
// fails when the virtual address list is empty, the VRID is zero, or
// a Backup's configured priority is outside 1..=254 (0 is reserved
// for shutdown advertisements, 255 marks the address owner).
func NewParameters(vrid VRID, addresses VirtualAddresses, advInterval Interval, mode Mode) (*Parameters, error) {
	if vrid == 0 {
		return nil, ErrInvalidVRID
	}
	if len(addresses) == 0 {
		return nil, ErrEmptyVirtualAddresses
	}
	if mode.Kind == ModeBackup {
		p := mode.Backup.Priority
		if p == PriorityShutdown || p == PriorityOwner {
			return nil, ErrInvalidPriority
		}
	}
	return &Parameters{
		VRID:        vrid,
		Addresses:   addresses,
		AdvInterval: advInterval,
		Mode:        mode,
	}, nil
}

// MACAddress returns the virtual router MAC derived from the VRID.
func (p *Parameters) MACAddress() net.HardwareAddr {
	return p.VRID.MACAddress()
}

// Priority returns the effective priority: 255 for an Owner, the
// configured priority for a Backup.
func (p *Parameters) Priority() Priority {
	if p.Mode.Kind == ModeOwner {
		return PriorityOwner
	}
	return p.Mode.Backup.Priority
}

// PrimaryIP returns the address the Router compares a sender's address
// against to break an equal-priority tie: the first virtual address
// for an Owner, the configured primary IP for a Backup. Transport does
// not use it: outgoing advertisements carry the interface's first
// IPv4 address as their source.
func (p *Parameters) PrimaryIP() net.IP {
	if p.Mode.Kind == ModeOwner {
		return p.Addresses.First()
	}
	return p.Mode.Backup.PrimaryIP
}

// ShouldAccept reports whether this router, once Active, accepts IP
// traffic addressed to a virtual address rather than merely
// forwarding it. Always true for an Owner.
func (p *Parameters) ShouldAccept() bool {
	if p.Mode.Kind == ModeOwner {
		return true
	}
	return p.Mode.Backup.Accept
}

// ShouldPreempt reports whether a Backup ignores advertisements from a
// lower-priority Active, letting its active-down timer run out so it
// takes over when that timer fires. Always true for an Owner.
func (p *Parameters) ShouldPreempt() bool {
	if p.Mode.Kind == ModeOwner {
		return true
	}
	return p.Mode.Backup.Preempt
}

// SkewTime is ((256-priority) * interval) / 256 for this router's own
// priority.
func (p *Parameters) SkewTime(interval Interval) Interval {
	return p.Priority().SkewTime(interval)
}

// ActiveDownInterval is 3*interval + SkewTime(interval) for this
// router's own priority.
func (p *Parameters) ActiveDownInterval(interval Interval) Interval {
	return p.Priority().ActiveDownInterval(interval)
}
