// Package session maintains the client table: one slot per participant,
// remote or local, with the per-stream sequence counters, activity
// timestamps, and misbehavior accounting the protocol driver relies on.
package session

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/pool"
	"lwar/server/internal/transport"
	"lwar/server/internal/wire"
)

// MaxClients bounds the client table.
const MaxClients = 8

// Client is one participant slot.
type Client struct {
	Player entity.Player

	Addr   transport.Address
	Remote bool
	Dead   bool

	// HasLeft suppresses the LEAVE broadcast when a graceful disconnect is
	// later followed by the timeout that reclaims the slot.
	HasLeft bool

	NextOutReliableSeqno   uint32
	NextOutUnreliableSeqno uint32
	LastInReliableSeqno    uint32
	LastInUnreliableSeqno  uint32

	LastInAck     uint32
	LastInFrameno uint32
	LastActivity  int64

	Misbehavior int

	// PingMs is the smoothed reliable-ack round trip estimate.
	PingMs uint16
}

// ID returns the player identifier derived from the slot.
func (c *Client) ID() wire.Id { return c.Player.ID }

// Table is the pool-backed client registry plus the connected bit-set the
// queue checks destinations against.
type Table struct {
	Connected pool.BitSet

	clients *pool.Pool[Client]
}

// NewTable builds an empty table with MaxClients slots.
func NewTable() *Table {
	t := &Table{}
	t.clients = pool.New[Client](MaxClients,
		func(i uint16, c *Client) {
			gen := c.Player.ID.Gen
			*c = Client{
				NextOutReliableSeqno:   1,
				NextOutUnreliableSeqno: 1,
			}
			c.Player.Init(i)
			c.Player.ID.Gen = gen
		},
		func(i uint16, c *Client) {
			c.Player.ID.Gen++
		})
	return t
}

// Len returns the number of occupied slots, dead-but-unreclaimed included.
func (t *Table) Len() int { return t.clients.Len() }

// CreateRemote allocates a slot for the peer at addr. A full table returns
// nil.
func (t *Table) CreateRemote(addr transport.Address) *Client {
	c := t.clients.Alloc()
	if c == nil {
		return nil
	}
	c.Addr = addr
	c.Remote = true
	t.Connected = t.Connected.Insert(c.Player.ID.N)
	return c
}

// CreateLocal allocates a bot slot with the sentinel address. Local slots
// never appear in the connected set; nothing is transmitted to them.
func (t *Table) CreateLocal() *Client {
	c := t.clients.Alloc()
	if c == nil {
		return nil
	}
	c.Addr = transport.None
	c.Remote = false
	return c
}

// Remove marks the slot dead and withdraws it from the connected set. The
// memory is reclaimed by Cleanup after the send stage.
func (t *Table) Remove(c *Client) {
	if c == nil || c.Dead {
		return
	}
	c.Dead = true
	t.Connected = t.Connected.Remove(c.Player.ID.N)
}

// Cleanup reclaims slots marked dead.
func (t *Table) Cleanup(onFree func(c *Client)) {
	t.clients.FreePred(func(_ uint16, c *Client) bool {
		if !c.Dead {
			return false
		}
		if onFree != nil {
			onFree(c)
		}
		return true
	})
}

// Lookup finds the remote client bound to addr. The table never exceeds
// eight slots, so the linear scan is fine.
func (t *Table) Lookup(addr transport.Address) *Client {
	if addr.IsNone() {
		return nil
	}
	var found *Client
	t.ForEach(func(c *Client) bool {
		if c.Remote && !c.Dead && c.Addr == addr {
			found = c
			return false
		}
		return true
	})
	return found
}

// ByID resolves a player identifier, rejecting stale generations and dead
// slots.
func (t *Table) ByID(id wire.Id) *Client {
	c := t.clients.At(id.N)
	if c == nil || !t.clients.Live(id.N) || c.Player.ID.Gen != id.Gen || c.Dead {
		return nil
	}
	return c
}

// ForEach visits occupied slots in allocation order.
func (t *Table) ForEach(fn func(c *Client) bool) {
	t.clients.ForEach(func(_ uint16, c *Client) bool { return fn(c) })
}
