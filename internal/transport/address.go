// Package transport owns the datagram endpoints: a dual-stack unicast socket
// for client traffic and a multicast socket for server discovery. Sockets are
// polled, never blocked on; the tick loop drains them cooperatively.
package transport

import (
	"fmt"
	"net"
)

// Address is a 16-byte IPv6 address (IPv4 mapped) plus port. Equality is
// byte-wise, which makes it usable as a lookup key.
type Address struct {
	IP   [16]byte
	Port uint16
}

// None is the sentinel for unbound endpoints; local bot clients carry it.
var None Address

// IsNone reports whether a is the unbound sentinel.
func (a Address) IsNone() bool { return a == None }

// String formats the address for logs.
func (a Address) String() string {
	return fmt.Sprintf("[%s]:%d", net.IP(a.IP[:]).String(), a.Port)
}

// FromUDPAddr canonicalizes a peer address into the 16-byte form.
func FromUDPAddr(u *net.UDPAddr) Address {
	var a Address
	if u == nil {
		return a
	}
	ip := u.IP.To16()
	if ip == nil {
		return a
	}
	copy(a.IP[:], ip)
	a.Port = uint16(u.Port)
	return a
}

// UDPAddr converts back to the net form for sending.
func (a Address) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IP(a.IP[:]), Port: int(a.Port)}
}
