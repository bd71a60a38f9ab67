package vrrp

import "net"

// InputKind discriminates the three shapes an Input can take.
type InputKind int

const (
	InputCommand InputKind = iota
	InputTimer
	InputPacket
)

// CommandKind is an operator-issued command.
type CommandKind int

const (
	CommandStartup CommandKind = iota
	CommandShutdown
)

// Input is one event delivered to Router.HandleInput: a command, an
// expired timer, or a parsed packet, always stamped with the caller's
// current instant.
type Input struct {
	Kind    InputKind
	Command CommandKind
	Packet  ReceivedPacket
}

// StartupInput requests the router come up.
func StartupInput() Input {
	return Input{Kind: InputCommand, Command: CommandStartup}
}

// ShutdownInput requests the router go down.
func ShutdownInput() Input {
	return Input{Kind: InputCommand, Command: CommandShutdown}
}

// TimerInput reports that the timer previously requested via
// Router.NextTimer has fired. Firing early is benign: the router
// re-checks the deadline against the instant it is given.
func TimerInput() Input {
	return Input{Kind: InputTimer}
}

// PacketInput wraps a parsed packet as an Input.
func PacketInput(p ReceivedPacket) Input {
	return Input{Kind: InputPacket, Packet: p}
}

// ReceivedPacketKind discriminates the four packet shapes the core
// understands. Wire parsing and validation happen entirely outside
// the core; by the time a ReceivedPacket reaches HandleInput it is
// already well-formed.
type ReceivedPacketKind int

const (
	ReceivedShutdownAdvertisement ReceivedPacketKind = iota
	ReceivedAdvertisement
	ReceivedRequestARP
	ReceivedIP
)

// ReceivedPacket is a parsed inbound packet. Only the fields relevant
// to Kind are meaningful.
type ReceivedPacket struct {
	Kind ReceivedPacketKind

	// ReceivedShutdownAdvertisement, ReceivedAdvertisement
	Interval Interval
	SenderIP net.IP
	Priority Priority // meaningful only for ReceivedAdvertisement

	// ReceivedRequestARP
	SenderMAC net.HardwareAddr
	TargetIP  net.IP

	// ReceivedIP
	TargetMAC net.HardwareAddr
}

// ShutdownAdvertisementPacket builds a ReceivedPacket for an inbound
// VRRP advertisement with priority 0.
func ShutdownAdvertisementPacket(interval Interval) ReceivedPacket {
	return ReceivedPacket{Kind: ReceivedShutdownAdvertisement, Interval: interval}
}

// AdvertisementPacket builds a ReceivedPacket for an inbound VRRP
// advertisement with a nonzero priority.
func AdvertisementPacket(senderIP net.IP, priority Priority, interval Interval) ReceivedPacket {
	return ReceivedPacket{
		Kind:     ReceivedAdvertisement,
		SenderIP: senderIP,
		Priority: priority,
		Interval: interval,
	}
}

// RequestARPPacket builds a ReceivedPacket for an inbound ARP request.
func RequestARPPacket(senderMAC net.HardwareAddr, senderIP, targetIP net.IP) ReceivedPacket {
	return ReceivedPacket{
		Kind:      ReceivedRequestARP,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetIP:  targetIP,
	}
}

// IPPacket builds a ReceivedPacket for an inbound IPv4 datagram.
func IPPacket(targetMAC net.HardwareAddr, targetIP net.IP) ReceivedPacket {
	return ReceivedPacket{
		Kind:      ReceivedIP,
		TargetMAC: targetMAC,
		TargetIP:  targetIP,
	}
}
