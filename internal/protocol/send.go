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

// Send runs the outbound flush for every remote client, evicting the silent
// and the misbehaved on the way. Without force, the pass is rate-limited by
// the update interval.
func (d *Driver) Send(now int64, force bool) {
	d.now = now
	if !force {
		if now < d.nextUpdate {
			return
		}
		d.nextUpdate = now + d.opts.UpdateIntervalMs
	}

	rec := d.opts.Recorder
	rec.TimerStart(metrics.TimerSend)
	d.nsend = 0
	d.nresend = 0

	d.opts.Table.ForEach(func(c *session.Client) bool {
		switch {
		case !c.Remote || c.Dead:
			// Local bots receive nothing.
		case c.LastActivity+d.opts.TimeoutIntervalMs < now:
			d.timeout(c)
		case c.Misbehavior > d.opts.MisbehaviorLimit:
			d.sendKick(c)
			d.timeout(c)
		default:
			if err := d.sendMessagesFor(c); err != nil {
				//1.- A hard send fault on one client must not stall the
				// rest; force its timeout path and carry on.
				d.log.Warn("send failed, dropping client",
					logging.Int("slot", int(c.ID().N)), logging.Error(err))
				d.timeout(c)
			}
		}
		return true
	})

	rec.TimerStop(metrics.TimerSend)
	rec.CounterSet(metrics.CounterSend, d.nsend)
	rec.CounterSet(metrics.CounterResend, d.nresend)
}

// sendMessagesFor assembles and transmits this client's datagrams: queued
// messages first, then one snapshot batch per registered format.
func (d *Driver) sendMessagesFor(c *session.Client) error {
	var b wire.Buffer
	wire.PackHeader(&b, c.LastInReliableSeqno)

	if err := d.sendQueueFor(c, &b); err != nil {
		return err
	}
	for _, f := range d.opts.World.Formats {
		if err := d.sendUpdatesFor(c, &b, f); err != nil {
			return err
		}
	}
	return d.flush(c, &b, false)
}

// sendQueueFor drains the queue iterator into the buffer, flushing whenever
// a message no longer fits.
func (d *Driver) sendQueueFor(c *session.Client, b *wire.Buffer) error {
	it := d.opts.Queue.Messages(c, d.now)
	for {
		m, seqno, tries, ok := it.Next()
		if !ok {
			return nil
		}
		if tries > 0 {
			d.nresend++
		}
		if !wire.PackMessage(b, seqno, m) {
			if err := d.flush(c, b, true); err != nil {
				return err
			}
			if !wire.PackMessage(b, seqno, m) {
				// No message is allowed to outgrow an empty datagram.
				d.log.Error("message larger than a datagram, dropping",
					logging.Int("tag", int(m.Tag())))
			}
		}
	}
}

// sendUpdatesFor emits the format's membership as one or more UPDATE batches,
// continuing a split batch in the next datagram.
func (d *Driver) sendUpdatesFor(c *session.Client, b *wire.Buffer, f *entity.Format) error {
	n := f.Count()
	k := 0
	for _, e := range f.Members() {
		if e.Dead {
			continue
		}
		for k == 0 {
			//1.- Open a batch sized to the remaining room, or flush to get
			// a fresh datagram when not even one record fits.
			k = n
			if room := b.UpdateCapacity(f.RecordLen); room < k {
				k = room
			}
			if k > 255 {
				k = 255
			}
			if k == 0 {
				if err := d.flush(c, b, true); err != nil {
					return err
				}
				continue
			}
			seqno := c.NextOutUnreliableSeqno
			c.NextOutUnreliableSeqno++
			wire.PackMessage(b, seqno, &wire.UpdateHeader{Kind: f.Kind, Count: uint8(k)})
		}
		b.PutRecord(func(b *wire.Buffer) { f.Pack(b, e) })
		k--
		n--
	}
	return nil
}

// flush transmits the buffer when it carries payload and, when reinit is
// set, starts the next datagram with a fresh header.
func (d *Driver) flush(c *session.Client, b *wire.Buffer, reinit bool) error {
	if b.HasData() {
		payload := b.Bytes()
		d.opts.Tracer.Record(d.now, trace.DirSend, c.Addr.String(), payload)
		if err := d.opts.Conn.Send(payload, c.Addr); err != nil {
			return err
		}
		d.nsend++
	}
	b.Reset()
	if reinit {
		wire.PackHeader(b, c.LastInReliableSeqno)
	}
	return nil
}

// sendReject answers a refused handshake directly; no slot exists to queue
// on.
func (d *Driver) sendReject(to transport.Address, ack uint32, reason uint8) {
	var b wire.Buffer
	wire.PackHeader(&b, ack)
	wire.PackMessage(&b, 1, &wire.Reject{Reason: reason})
	d.opts.Tracer.Record(d.now, trace.DirSend, to.String(), b.Bytes())
	if err := d.opts.Conn.Send(b.Bytes(), to); err != nil {
		d.log.Warn("reject send failed", logging.Error(err))
		return
	}
	d.nsend++
}

// sendKick tells a misbehaving client directly why it is being dropped; the
// queue would never reach it again.
func (d *Driver) sendKick(c *session.Client) {
	var b wire.Buffer
	wire.PackHeader(&b, c.LastInReliableSeqno)
	seqno := c.NextOutReliableSeqno
	c.NextOutReliableSeqno++
	wire.PackMessage(&b, seqno, &wire.Leave{Player: c.ID(), Reason: wire.LeaveMisbehaved})
	d.opts.Tracer.Record(d.now, trace.DirSend, c.Addr.String(), b.Bytes())
	if err := d.opts.Conn.Send(b.Bytes(), c.Addr); err != nil {
		d.log.Warn("kick send failed", logging.Error(err))
		return
	}
	d.nsend++
}
