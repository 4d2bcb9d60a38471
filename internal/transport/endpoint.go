package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/ipv6"
)

// Endpoint wraps the dual-stack unicast socket client datagrams travel over.
type Endpoint struct {
	conn *net.UDPConn
}

// Bind opens the unicast socket on the wildcard IPv6 address. Listening on
// the plain "udp" network keeps IPV6_V6ONLY off, so IPv4 peers arrive as
// mapped addresses.
func Bind(port uint16) (*Endpoint, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv6unspecified, Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("bind port %d: %w", port, err)
	}
	return &Endpoint{conn: conn}, nil
}

// Recv polls for one datagram. n == 0 with a nil error means the socket is
// drained for this tick.
func (e *Endpoint) Recv(buf []byte) (int, Address, error) {
	if e == nil || e.conn == nil {
		return 0, None, errors.New("endpoint not bound")
	}
	//1.- An immediate deadline turns the blocking read into a poll.
	if err := e.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, None, err
	}
	n, from, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, None, nil
		}
		return 0, None, err
	}
	return n, FromUDPAddr(from), nil
}

// Send transmits one datagram. Partial writes do not occur on UDP sockets;
// any error is a hard per-peer fault for the caller to handle.
func (e *Endpoint) Send(payload []byte, to Address) error {
	if e == nil || e.conn == nil {
		return errors.New("endpoint not bound")
	}
	n, err := e.conn.WriteToUDP(payload, to.UDPAddr())
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("short send: %d of %d bytes", n, len(payload))
	}
	return nil
}

// LocalPort returns the bound port.
func (e *Endpoint) LocalPort() uint16 {
	if e == nil || e.conn == nil {
		return 0
	}
	if addr, ok := e.conn.LocalAddr().(*net.UDPAddr); ok {
		return uint16(addr.Port)
	}
	return 0
}

// Close releases the socket.
func (e *Endpoint) Close() error {
	if e == nil || e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// Multicast is the discovery socket: joined to the announcement group with
// hop limit one so announcements stay on the local segment, loopback
// enabled so a client on the same host still sees them.
type Multicast struct {
	conn  *net.UDPConn
	pc    *ipv6.PacketConn
	group *net.UDPAddr
}

// JoinMulticast opens the discovery socket and subscribes it to group:port.
func JoinMulticast(group string, port uint16) (*Multicast, error) {
	ip := net.ParseIP(group)
	if ip == nil {
		return nil, fmt.Errorf("invalid multicast group %q", group)
	}
	conn, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6unspecified, Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("bind multicast port %d: %w", port, err)
	}
	//1.- Drop to the packet-conn layer for the IPv6 socket options the
	// stdlib does not expose.
	pc := ipv6.NewPacketConn(conn)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: ip}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join group %s: %w", group, err)
	}
	if err := pc.SetMulticastHopLimit(1); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set hop limit: %w", err)
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable loopback: %w", err)
	}
	return &Multicast{conn: conn, pc: pc, group: &net.UDPAddr{IP: ip, Port: int(port)}}, nil
}

// Announce publishes one datagram to the group.
func (m *Multicast) Announce(payload []byte) error {
	if m == nil || m.conn == nil {
		return errors.New("multicast endpoint not joined")
	}
	n, err := m.conn.WriteToUDP(payload, m.group)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("short announce: %d of %d bytes", n, len(payload))
	}
	return nil
}

// Close leaves the group and releases the socket.
func (m *Multicast) Close() error {
	if m == nil || m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
