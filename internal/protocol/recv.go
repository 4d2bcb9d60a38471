package protocol

import (
	"lwar/server/internal/entity"
	"lwar/server/internal/logging"
	"lwar/server/internal/metrics"
	"lwar/server/internal/session"
	"lwar/server/internal/trace"
	"lwar/server/internal/transport"
	"lwar/server/internal/wire"
)

// Recv drains every pending inbound datagram and dispatches its messages in
// arrival order.
func (d *Driver) Recv(now int64) {
	d.now = now
	d.nrecv = 0
	rec := d.opts.Recorder
	rec.TimerStart(metrics.TimerRecv)

	raw := make([]byte, wire.MaxPacketLength+wire.MaxNameLength+16)
	for {
		n, from, err := d.opts.Conn.Recv(raw)
		if err != nil {
			//1.- A hard receive fault is not attributable to one datagram;
			// log it and stop draining for this tick.
			d.log.Warn("receive failed", logging.Error(err))
			break
		}
		if n == 0 {
			break
		}
		d.nrecv++
		d.opts.Tracer.Record(now, trace.DirRecv, from.String(), raw[:n])
		d.scanPacket(raw[:n], from)
	}

	rec.TimerStop(metrics.TimerRecv)
	rec.CounterSet(metrics.CounterRecv, d.nrecv)
}

// scanPacket validates the header and feeds each framed message through the
// sequence check into the handler.
func (d *Driver) scanPacket(payload []byte, from transport.Address) {
	var b wire.Buffer
	if !b.SetPayload(payload) {
		return
	}
	ack, ok := wire.UnpackHeader(&b)
	if !ok {
		// Foreign or truncated header: drop silently, no state changes.
		return
	}

	c := d.opts.Table.Lookup(from)
	if c != nil {
		if ack > c.LastInAck {
			//1.- The raised ack clears retransmission state and feeds the
			// ping estimate.
			d.opts.Queue.ObserveAck(c, c.LastInAck, ack, d.now)
			c.LastInAck = ack
		}
		if d.now > c.LastActivity {
			c.LastActivity = d.now
		}
	}

	for {
		m, seqno, ok := wire.UnpackMessage(&b)
		if !ok {
			return
		}
		if d.checkSeqno(c, m.Tag(), seqno) {
			d.handle(c, from, m, seqno)
		}
	}
}

// checkSeqno enforces the per-stream acceptance rules and advances the
// counters. Messages from unknown peers pass through; the handler decides
// what an unknown peer may do.
func (d *Driver) checkSeqno(c *session.Client, tag wire.Tag, seqno uint32) bool {
	if c == nil {
		return true
	}
	if tag.Reliable() {
		if seqno != c.LastInReliableSeqno+1 {
			return false
		}
		c.LastInReliableSeqno = seqno
		return true
	}
	if seqno <= c.LastInUnreliableSeqno {
		return false
	}
	c.LastInUnreliableSeqno = seqno
	return true
}

// misbehaved scores a protocol violation when cond holds.
func (d *Driver) misbehaved(c *session.Client, cond bool, what string) bool {
	if cond && c != nil {
		c.Misbehavior++
		d.log.Debug("misbehavior",
			logging.Int("slot", int(c.ID().N)),
			logging.String("violation", what))
	}
	return cond
}

func (d *Driver) wrongID(c *session.Client, id wire.Id) bool {
	return d.misbehaved(c, c.ID() != id, "wrong player id")
}

func (d *Driver) handle(c *session.Client, from transport.Address, m wire.Payload, seqno uint32) {
	switch msg := m.(type) {
	case *wire.Connect:
		d.handleConnect(c, from, msg, seqno)

	case *wire.Disconnect:
		if c == nil || c.HasLeft {
			return
		}
		//1.- Removal stays deferred until the timeout so straggling
		// datagrams keep resolving to the slot; the broadcast goes out now.
		c.HasLeft = true
		d.opts.Queue.Broadcast(&wire.Leave{Player: c.ID(), Reason: wire.LeaveQuit})

	case *wire.Chat:
		if c == nil || d.wrongID(c, msg.Player) {
			return
		}
		if len(msg.Text) > wire.MaxChatLength {
			msg.Text = msg.Text[:wire.MaxChatLength]
		}
		d.opts.Queue.Broadcast(msg)

	case *wire.Selection:
		if c == nil || d.wrongID(c, msg.Player) {
			return
		}
		c.Player.Select(&d.opts.World.Types, msg.Ship, msg.Weapons)
		d.opts.Queue.Broadcast(msg)

	case *wire.Name:
		if c == nil || d.wrongID(c, msg.Player) {
			return
		}
		c.Player.Name = clampName(msg.Nick)
		d.opts.Queue.Broadcast(msg)

	case *wire.Input:
		if c == nil || d.wrongID(c, msg.Player) {
			return
		}
		d.handleInput(c, msg)

	default:
		d.misbehaved(c, c != nil, "invalid message id")
	}
}

func (d *Driver) handleConnect(c *session.Client, from transport.Address, msg *wire.Connect, seqno uint32) {
	if msg.Rev != wire.NetworkRevision {
		d.sendReject(from, seqno, wire.RejectVersionMismatch)
		return
	}
	if d.misbehaved(c, c != nil, "reconnect") {
		return
	}
	nc := d.opts.Table.CreateRemote(from)
	if nc == nil {
		d.sendReject(from, seqno, wire.RejectFull)
		return
	}
	d.checkSeqno(nc, msg.Tag(), seqno)
	nc.LastActivity = d.now
	nc.Player.Name = clampName(msg.Nick)
	d.log.Info("client connected",
		logging.Int("slot", int(nc.ID().N)),
		logging.String("name", nc.Player.Name))

	//1.- Everyone, the newcomer included, learns about the join; the
	// newcomer additionally gets the current game state.
	d.opts.Queue.Broadcast(&wire.Join{Player: nc.ID(), Nick: nc.Player.Name})
	d.queueGameState(nc)
}

// queueGameState downloads the world to a fresh client: every other player,
// every visible entity, and the sync marker ending the burst.
func (d *Driver) queueGameState(nc *session.Client) {
	q := d.opts.Queue
	d.opts.Table.ForEach(func(c *session.Client) bool {
		if c != nc && !c.Dead {
			q.Unicast(nc, &wire.Join{Player: c.ID(), Nick: c.Player.Name})
		}
		return true
	})
	d.opts.World.ForEach(func(e *entity.Entity) bool {
		if e.Dead || len(e.Type.Formats) == 0 {
			return true
		}
		playerID := wire.NoEntity
		if e.Player != nil {
			playerID = e.Player.ID
		}
		q.Unicast(nc, &wire.Add{Entity: e.ID, Player: playerID, Type: e.Type.ID})
		return true
	})
	q.Unicast(nc, &wire.Synced{})
}

// handleInput folds dropped frames into the latest sample and latches it.
func (d *Driver) handleInput(c *session.Client, msg *wire.Input) {
	if msg.FrameNo < c.LastInFrameno {
		return
	}
	//1.- The AND mask collapses the per-frame button bits of the gap, so a
	// button reads pressed if it was down at any point since the last
	// accepted frame.
	gap := msg.FrameNo - c.LastInFrameno
	var mask uint8
	if gap >= 8 {
		mask = 0xFF
	} else {
		mask = ^uint8(0xFF << gap)
	}
	c.LastInFrameno = msg.FrameNo

	folded := *msg
	for _, b := range []*uint8{
		&folded.Forwards, &folded.Backwards, &folded.TurnLeft, &folded.TurnRight,
		&folded.StrafeLeft, &folded.StrafeRight,
		&folded.Fire1, &folded.Fire2, &folded.Fire3, &folded.Fire4,
	} {
		*b &= mask
	}
	c.Player.Input(&folded)
}

func clampName(name string) string {
	if len(name) > wire.MaxNameLength {
		return name[:wire.MaxNameLength]
	}
	return name
}
