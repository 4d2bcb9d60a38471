// Package queue buffers outbound messages per destination: every queued
// message carries a client bit-set plus per-client sequence and retry
// metadata, and a resumable iterator feeds the packet packer one message at
// a time so datagrams can be flushed mid-walk.
package queue

import (
	"lwar/server/internal/logging"
	"lwar/server/internal/pool"
	"lwar/server/internal/session"
	"lwar/server/internal/wire"
)

// MaxQueue bounds the in-flight message pool.
const MaxQueue = 4096

type perClient struct {
	seqno   uint32
	tries   int
	lastTx  int64
	firstTx int64
}

// QueuedMessage is one outstanding outbound message.
type QueuedMessage struct {
	Msg  wire.Payload
	Dest pool.BitSet

	per [session.MaxClients]perClient
}

// Queue owns the message pool and the relevance policy deciding what each
// client still needs.
type Queue struct {
	table        *session.Table
	retransmitMs int64
	log          *logging.Logger

	messages *pool.Pool[QueuedMessage]
}

// New builds an empty queue bound to the client table.
func New(table *session.Table, retransmitMs int64, log *logging.Logger) *Queue {
	if log == nil {
		log = logging.L()
	}
	return &Queue{
		table:        table,
		retransmitMs: retransmitMs,
		log:          log,
		messages: pool.New[QueuedMessage](MaxQueue,
			func(_ uint16, qm *QueuedMessage) {
				*qm = QueuedMessage{}
			}, nil),
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int { return q.messages.Len() }

// Unicast queues m for a single client.
func (q *Queue) Unicast(c *session.Client, m wire.Payload) {
	if c == nil || c.Dead {
		return
	}
	qm := q.create(m)
	if qm == nil {
		return
	}
	q.enqueue(c, qm)
}

// Broadcast queues m for every connected remote client.
func (q *Queue) Broadcast(m wire.Payload) {
	qm := q.create(m)
	if qm == nil {
		return
	}
	q.table.ForEach(func(c *session.Client) bool {
		if c.Remote && !c.Dead {
			q.enqueue(c, qm)
		}
		return true
	})
}

// create allocates a slot. Exhaustion drops the message: availability beats
// crashing, and the retransmission machinery recovers reliable state only
// for clients that are still draining their queue anyway.
func (q *Queue) create(m wire.Payload) *QueuedMessage {
	qm := q.messages.Alloc()
	if qm == nil {
		q.log.Error("outbound queue exhausted, dropping message",
			logging.Int("tag", int(m.Tag())))
		return nil
	}
	qm.Msg = m
	return qm
}

func (q *Queue) enqueue(c *session.Client, qm *QueuedMessage) {
	slot := c.Player.ID.N
	qm.Dest = qm.Dest.Insert(slot)
	//1.- Draw the per-destination seqno from the matching output stream.
	if qm.Msg.Tag().Reliable() {
		qm.per[slot].seqno = c.NextOutReliableSeqno
		c.NextOutReliableSeqno++
	} else {
		qm.per[slot].seqno = c.NextOutUnreliableSeqno
		c.NextOutUnreliableSeqno++
	}
	qm.per[slot].tries = 0
	qm.per[slot].lastTx = 0
	qm.per[slot].firstTx = 0
}

// Cleanup reclaims messages no connected client still needs.
func (q *Queue) Cleanup() {
	connected := q.table.Connected
	q.messages.FreePred(func(_ uint16, qm *QueuedMessage) bool {
		return qm.Dest.Disjoint(connected)
	})
}

// Iterator walks the queue for one client, yielding relevant messages in
// enqueue order. It keeps its position across datagram flushes within the
// send pass.
type Iterator struct {
	q    *Queue
	c    *session.Client
	now  int64
	next int
}

// Messages starts a send-pass walk for c at the current tick time.
func (q *Queue) Messages(c *session.Client, now int64) *Iterator {
	return &Iterator{q: q, c: c, now: now, next: q.messages.First()}
}

// Next yields the next relevant message together with the seqno to transmit
// and the number of earlier transmissions. ok is false when the walk is done.
func (it *Iterator) Next() (m wire.Payload, seqno uint32, tries int, ok bool) {
	slot := it.c.Player.ID.N
	for it.next != -1 {
		i := it.next
		it.next = it.q.messages.Next(i)

		qm := it.q.messages.At(uint16(i))
		pc := &qm.per[slot]
		//1.- Skip messages this client is not a destination of.
		if !qm.Dest.Contains(slot) {
			continue
		}
		//2.- Unreliable messages go out exactly once per destination.
		if !qm.Msg.Tag().Reliable() {
			qm.Dest = qm.Dest.Remove(slot)
			return qm.Msg, pc.seqno, 0, true
		}
		//3.- Respect the retransmission pacing.
		if pc.tries > 0 && pc.lastTx+it.q.retransmitMs > it.now {
			continue
		}
		//4.- Acknowledged messages leave the destination set.
		if pc.seqno <= it.c.LastInAck {
			qm.Dest = qm.Dest.Remove(slot)
			continue
		}
		//5.- Transmit, remembering the cadence metadata.
		if pc.tries == 0 {
			pc.firstTx = it.now
		}
		pc.lastTx = it.now
		tries = pc.tries
		pc.tries++
		return qm.Msg, pc.seqno, tries, true
	}
	return nil, 0, 0, false
}

// pingAlpha is the EWMA weight of a fresh round-trip sample.
const pingAlpha = 0.125

// ObserveAck folds a raised ack into the client's smoothed ping using the
// first-transmission timestamps of the newly covered reliable messages.
func (q *Queue) ObserveAck(c *session.Client, oldAck, newAck uint32, now int64) {
	if newAck <= oldAck {
		return
	}
	slot := c.Player.ID.N
	var sample int64 = -1
	q.messages.ForEach(func(_ uint16, qm *QueuedMessage) bool {
		if !qm.Dest.Contains(slot) || !qm.Msg.Tag().Reliable() {
			return true
		}
		pc := &qm.per[slot]
		if pc.seqno > oldAck && pc.seqno <= newAck && pc.tries > 0 {
			if rtt := now - pc.firstTx; sample < 0 || rtt < sample {
				sample = rtt
			}
		}
		return true
	})
	if sample < 0 {
		return
	}
	//1.- Smooth the estimate so one delayed ack does not spike the board.
	smoothed := float64(c.PingMs)*(1-pingAlpha) + float64(sample)*pingAlpha
	if c.PingMs == 0 {
		smoothed = float64(sample)
	}
	if smoothed > 65535 {
		smoothed = 65535
	}
	c.PingMs = uint16(smoothed)
}
