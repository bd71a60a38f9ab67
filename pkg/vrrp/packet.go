package vrrp

import (
	"encoding/binary"
	"net"
)

// Wire constants for VRRPv3 (RFC 5798). This codec speaks v3 only:
// the 12-bit centisecond Max Advertise Interval field that v3 adds
// over v2 is exactly the Interval resolution the core state machine
// needs, so there is no reason to also support the coarser v2 wire
// format (see SPEC_FULL.md §4.4).
const (
	wireVersion = 3

	typeAdvertisement = 1

	// VRRPProtocol is the IPv4 protocol number VRRP advertisements
	// travel under.
	VRRPProtocol = 112

	// MulticastGroup is the all-VRRP-routers IPv4 multicast address.
	MulticastGroup = "224.0.0.18"

	minPacketLen = 8
)

// Codec marshals and unmarshals VRRPv3 advertisements. It is pure and
// stateless; Transport calls it to turn wire bytes into Packet values
// and back.
type Codec struct{}

// Packet is a VRRPv3 advertisement, on or off the wire.
type Packet struct {
	VRID        VRID
	Priority    Priority
	Interval    Interval // Max Advertise Interval, centisecond resolution, 12 bits
	IPAddresses []net.IP
}

// NewPacket builds an advertisement for the given VRID, priority, and
// interval, owning the given virtual addresses.
func NewPacket(vrid VRID, priority Priority, interval Interval, ips []net.IP) *Packet {
	return &Packet{
		VRID:        vrid,
		Priority:    priority,
		Interval:    interval,
		IPAddresses: ips,
	}
}

// Marshal encodes p as a VRRPv3 advertisement. Every address in
// IPAddresses must be IPv4; the codec does not speak VRRP-for-IPv6.
func (Codec) Marshal(p *Packet) ([]byte, error) {
	for _, ip := range p.IPAddresses {
		if ip.To4() == nil {
			return nil, ErrNotIPv4
		}
	}

	centis := p.Interval.Centiseconds()
	if centis > 0xFFF {
		centis = 0xFFF // clamp: 12-bit wire field, callers should not exceed it
	}

	size := minPacketLen + 4*len(p.IPAddresses)
	buf := make([]byte, size)

	buf[0] = (wireVersion << 4) | typeAdvertisement
	buf[1] = byte(p.VRID)
	buf[2] = byte(p.Priority)
	buf[3] = byte(len(p.IPAddresses))
	binary.BigEndian.PutUint16(buf[4:6], uint16(centis)&0x0FFF)
	// buf[6:8] checksum, filled in below

	offset := minPacketLen
	for _, ip := range p.IPAddresses {
		copy(buf[offset:offset+4], ip.To4())
		offset += 4
	}

	checksum := checksum16(buf)
	binary.BigEndian.PutUint16(buf[6:8], checksum)

	return buf, nil
}

// Unmarshal decodes a VRRPv3 advertisement from the wire. It rejects
// packets of the wrong version or with a bad checksum, but otherwise
// performs no VRID/priority/interval validation — that is the
// Parameters and Router's job once the packet is handed up as a
// ReceivedPacket.
func (Codec) Unmarshal(data []byte) (*Packet, error) {
	if len(data) < minPacketLen {
		return nil, ErrPacketTooShort
	}

	version := (data[0] >> 4) & 0x0F
	if version != wireVersion {
		return nil, ErrUnsupportedVersion
	}

	if checksum16(data) != 0 {
		return nil, ErrBadChecksum
	}

	count := int(data[3])
	need := minPacketLen + 4*count
	if len(data) < need {
		return nil, ErrPacketTooShort
	}

	interval := binary.BigEndian.Uint16(data[4:6]) & 0x0FFF

	ips := make([]net.IP, count)
	offset := minPacketLen
	for i := 0; i < count; i++ {
		ip := make(net.IP, 4)
		copy(ip, data[offset:offset+4])
		ips[i] = ip
		offset += 4
	}

	return &Packet{
		VRID:        VRID(data[1]),
		Priority:    Priority(data[2]),
		Interval:    IntervalFromCentis(uint32(interval)),
		IPAddresses: ips,
	}, nil
}

// checksum16 computes the one's-complement-of-one's-complement-sum
// checksum VRRP uses. Marshal calls it with the checksum field still
// zeroed, producing the value to stamp; Unmarshal calls it over the
// wire bytes as received, checksum field included, and a correctly
// stamped packet folds to 0xFFFF and complements to zero.
func checksum16(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 != 0 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}
