package vrrp

import (
	"net"
)

// VRID is a Virtual Router Identifier, 1..=255. Zero is not a valid
// VRID and is refused by NewVRID.
type VRID uint8

// NewVRID validates v and returns it as a VRID.
func NewVRID(v uint8) (VRID, error) {
	if v == 0 {
		return 0, ErrInvalidVRID
	}
	return VRID(v), nil
}

// MACAddress derives the canonical IPv4 virtual router MAC address,
// 00-00-5E-00-01-{VRID}, per RFC 9568 section 7.3.
func (v VRID) MACAddress() net.HardwareAddr {
	return net.HardwareAddr{0x00, 0x00, 0x5E, 0x00, 0x01, byte(v)}
}
