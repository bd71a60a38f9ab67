package vrrp

import "errors"

// Construction errors. The core refuses to come into existence in an
// inconsistent configuration; these are the only errors it ever
// returns. Runtime anomalies (an unexpected input for the current
// state) are silent no-ops by design and are never reported as errors.
var (
	ErrEmptyVirtualAddresses = errors.New("vrrp: virtual address list must not be empty")
	ErrInvalidVRID           = errors.New("vrrp: vrid must be in 1..=255")
	ErrInvalidPriority       = errors.New("vrrp: backup priority must be in 1..=254")
	ErrNotIPv4               = errors.New("vrrp: only IPv4 addresses are supported")

	// Wire errors, returned by Codec.Unmarshal for a malformed or
	// foreign advertisement. The caller (Transport) drops the
	// datagram silently rather than propagating these further.
	ErrPacketTooShort     = errors.New("vrrp: packet too short")
	ErrUnsupportedVersion = errors.New("vrrp: only VRRPv3 is supported")
	ErrBadChecksum        = errors.New("vrrp: checksum mismatch")
)
