package vrrp

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"
)

// Transport is a raw IPv4 socket bound to one interface, joined to
// the VRRP multicast group. It carries every VRRP advertisement in and
// out (ARP goes through ARPClient); Router never sees a socket.
type Transport struct {
	iface    *net.Interface
	conn     *ipv4.RawConn
	sourceIP net.IP
	codec    Codec
}

// NewTransport opens a raw VRRP socket on ifaceName, joins the
// all-VRRP-routers multicast group, and discovers the interface's
// first IPv4 address, used as the source of every advertisement it
// sends. Priority ties are broken on Parameters.PrimaryIP, not on this
// address.
func NewTransport(ifaceName string) (*Transport, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("vrrp: interface %s: %w", ifaceName, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("vrrp: addresses of %s: %w", ifaceName, err)
	}

	var sourceIP net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			sourceIP = v4
			break
		}
	}
	if sourceIP == nil {
		return nil, fmt.Errorf("vrrp: no IPv4 address on interface %s", ifaceName)
	}

	conn, err := net.ListenPacket(fmt.Sprintf("ip4:%d", VRRPProtocol), "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("vrrp: listen: %w", err)
	}

	rawConn, err := ipv4.NewRawConn(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("vrrp: raw conn: %w", err)
	}

	if err := joinMulticast(conn, iface); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("vrrp: join multicast: %w", err)
	}

	return &Transport{iface: iface, conn: rawConn, sourceIP: sourceIP}, nil
}

func joinMulticast(conn net.PacketConn, iface *net.Interface) error {
	group := net.ParseIP(MulticastGroup)

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(iface, &net.UDPAddr{IP: group}); err != nil {
		return err
	}
	if err := p.SetMulticastInterface(iface); err != nil {
		return err
	}
	return p.SetMulticastTTL(255)
}

// Close releases the socket.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// Interface returns the bound network interface.
func (t *Transport) Interface() *net.Interface {
	return t.iface
}

// SourceIP returns the interface's primary IPv4 address.
func (t *Transport) SourceIP() net.IP {
	return t.sourceIP
}

// Send marshals and multicasts pkt.
func (t *Transport) Send(pkt *Packet) error {
	data, err := t.codec.Marshal(pkt)
	if err != nil {
		return fmt.Errorf("vrrp: marshal: %w", err)
	}

	header := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TOS:      0xc0,
		TotalLen: ipv4.HeaderLen + len(data),
		TTL:      255,
		Protocol: VRRPProtocol,
		Dst:      net.ParseIP(MulticastGroup),
		Src:      t.sourceIP,
	}

	if err := t.conn.WriteTo(header, data, nil); err != nil {
		return fmt.Errorf("vrrp: send: %w", err)
	}
	return nil
}

// Receive blocks for the next inbound VRRP advertisement and returns
// its parsed form along with the IPv4 source address it arrived
// from. It is the caller's job to loop.
func (t *Transport) Receive() (*Packet, net.IP, error) {
	buf := make([]byte, 1500)

	for {
		header, payload, _, err := t.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if err == syscall.EINTR {
				continue
			}
			return nil, nil, fmt.Errorf("vrrp: read: %w", err)
		}

		if header.Protocol != VRRPProtocol {
			continue
		}

		pkt, err := t.codec.Unmarshal(payload)
		if err != nil {
			continue // malformed or foreign advertisement, drop silently
		}

		return pkt, header.Src, nil
	}
}
