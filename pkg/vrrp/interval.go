package vrrp

import "time"

// Interval is a count of centiseconds (10ms units), the unit VRRPv3
// uses for Max Advertise Interval on the wire. It is backed by a
// 32-bit word, satisfying the "wide enough to hold at least 16 bits"
// requirement; skew_time (and so active_down_interval) does its
// scale-by-256 step in 64 bits, so that step never wraps.
type Interval uint32

// IntervalFromSeconds builds an Interval from a whole number of
// seconds, the unit most CLI flags and config files use.
func IntervalFromSeconds(seconds uint32) Interval {
	return IntervalFromCentis(seconds * 100)
}

// IntervalFromCentis builds an Interval directly from centiseconds,
// the unit carried on the wire.
func IntervalFromCentis(centiseconds uint32) Interval {
	return Interval(centiseconds)
}

// Duration converts losslessly to a host duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * 10 * time.Millisecond
}

// Centiseconds returns the raw wire value.
func (i Interval) Centiseconds() uint32 {
	return uint32(i)
}

func (i Interval) add(o Interval) Interval {
	return i + o
}

func (i Interval) scale(n uint32) Interval {
	return Interval(uint32(i) * n)
}

func (i Interval) div(n uint32) Interval {
	return Interval(uint32(i) / n)
}
