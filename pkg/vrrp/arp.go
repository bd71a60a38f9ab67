package vrrp

import (
	"net"
	"time"

	"github.com/mdlayher/arp"
)

// broadcastMAC is the Ethernet broadcast address, used as both the
// ARP target hardware address and the frame destination for
// gratuitous ARP.
var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ARPClient announces and answers ARP for the virtual addresses an
// Instance owns while Active. It wraps github.com/mdlayher/arp, the
// same client Trisia-govrrp uses for its gratuitous-ARP announcer.
type ARPClient struct {
	client *arp.Client
}

// NewARPClient opens an ARP client bound to iface.
func NewARPClient(iface *net.Interface) (*ARPClient, error) {
	client, err := arp.Dial(iface)
	if err != nil {
		return nil, err
	}
	return &ARPClient{client: client}, nil
}

// Close releases the underlying ARP socket.
func (c *ARPClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// AnnounceGratuitous broadcasts a gratuitous ARP reply binding ip to
// mac, refreshing every neighbor's ARP cache. Called once per virtual
// address on transition to Active.
func (c *ARPClient) AnnounceGratuitous(mac net.HardwareAddr, ip net.IP) error {
	if err := c.client.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		return err
	}

	packet, err := arp.NewPacket(arp.OperationReply, mac, ip, broadcastMAC, ip)
	if err != nil {
		return err
	}
	return c.client.WriteTo(packet, broadcastMAC)
}

// Reply sends a unicast ARP reply to an ARP request, binding senderMAC
// to senderIP from the Active's point of view.
func (c *ARPClient) Reply(senderMAC net.HardwareAddr, senderIP net.IP, targetMAC net.HardwareAddr, targetIP net.IP) error {
	if err := c.client.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		return err
	}

	packet, err := arp.NewPacket(arp.OperationReply, senderMAC, senderIP, targetMAC, targetIP)
	if err != nil {
		return err
	}
	return c.client.WriteTo(packet, targetMAC)
}

// Listen blocks receiving ARP packets and invokes handler for each
// one until the client is closed or the handler returns false.
func (c *ARPClient) Listen(handler func(*arp.Packet) bool) error {
	for {
		packet, _, err := c.client.Read()
		if err != nil {
			return err
		}
		if !handler(packet) {
			return nil
		}
	}
}
