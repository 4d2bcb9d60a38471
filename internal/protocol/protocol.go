// Package protocol drives the wire conversation: inbound dispatch with
// sequence validation and misbehavior scoring, the outbound flush with
// datagram chunking and snapshot batching, timeout eviction, and the
// discovery announcements.
package protocol

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/logging"
	"lwar/server/internal/metrics"
	"lwar/server/internal/physics"
	"lwar/server/internal/queue"
	"lwar/server/internal/session"
	"lwar/server/internal/trace"
	"lwar/server/internal/transport"
	"lwar/server/internal/wire"
)

// Conn is the unicast endpoint surface the driver sends and receives on.
type Conn interface {
	Recv(buf []byte) (int, transport.Address, error)
	Send(payload []byte, to transport.Address) error
}

// Announcer is the multicast surface discovery datagrams go out on.
type Announcer interface {
	Announce(payload []byte) error
}

// Options wires a driver to its collaborators.
type Options struct {
	Conn      Conn
	Announcer Announcer
	Table     *session.Table
	Queue     *queue.Queue
	World     *entity.World
	Recorder  *metrics.Recorder
	Tracer    *trace.Writer
	Logger    *logging.Logger

	Port uint16

	UpdateIntervalMs    int64
	TimeoutIntervalMs   int64
	DiscoveryIntervalMs int64
	StatsIntervalMs     int64
	MisbehaviorLimit    int
}

// Driver is the protocol engine. All methods run on the tick goroutine.
type Driver struct {
	opts Options
	log  *logging.Logger

	now int64

	nextUpdate    int64
	nextDiscovery int64
	nextStats     int64

	nsend   uint64
	nresend uint64
	nrecv   uint64
}

// NewDriver builds a driver from its wiring.
func NewDriver(opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = logging.L()
	}
	return &Driver{opts: opts, log: opts.Logger}
}

// NotifyEntityAdded broadcasts ADD for entities visible to clients.
func (d *Driver) NotifyEntityAdded(e *entity.Entity) {
	if e.Dead || len(e.Type.Formats) == 0 {
		return
	}
	playerID := wire.NoEntity
	if e.Player != nil {
		playerID = e.Player.ID
	}
	d.opts.Queue.Broadcast(&wire.Add{Entity: e.ID, Player: playerID, Type: e.Type.ID})
}

// NotifyEntityRemoved broadcasts REMOVE for entities visible to clients.
func (d *Driver) NotifyEntityRemoved(e *entity.Entity) {
	if len(e.Type.Formats) == 0 {
		return
	}
	d.opts.Queue.Broadcast(&wire.Remove{Entity: e.ID})
}

// NotifyKill broadcasts the kill credit.
func (d *Driver) NotifyKill(killer, victim *entity.Player) {
	d.opts.Queue.Broadcast(&wire.Kill{Killer: killer.ID, Victim: victim.ID})
}

// NotifyCollision broadcasts the impact with its contact point.
func (d *Driver) NotifyCollision(c *physics.Collision) {
	d.opts.Queue.Broadcast(&wire.Collision{
		E0: c.E[0].ID,
		E1: c.E[1].ID,
		X:  int16(c.X.X),
		Y:  int16(c.X.Y),
	})
}

// Cleanup reclaims queued messages nobody needs anymore.
func (d *Driver) Cleanup() {
	d.opts.Queue.Cleanup()
}

// timeout evicts a client: everyone else learns the slot dropped unless the
// client already said goodbye.
func (d *Driver) timeout(c *session.Client) {
	if !c.HasLeft {
		d.opts.Queue.Broadcast(&wire.Leave{Player: c.ID(), Reason: wire.LeaveDropped})
	}
	d.opts.Table.Remove(c)
	d.log.Info("client removed",
		logging.Int("slot", int(c.ID().N)),
		logging.String("name", c.Player.Name))
}
