package queue

import (
	"net"
	"testing"

	"lwar/server/internal/logging"
	"lwar/server/internal/session"
	"lwar/server/internal/transport"
	"lwar/server/internal/wire"
)

const retransmitMs = 100

func testQueue(t *testing.T) (*Queue, *session.Table) {
	t.Helper()
	table := session.NewTable()
	return New(table, retransmitMs, logging.NewTestLogger()), table
}

func remote(table *session.Table, port int) *session.Client {
	return table.CreateRemote(transport.FromUDPAddr(&net.UDPAddr{IP: net.IPv6loopback, Port: port}))
}

func drain(it *Iterator) int {
	n := 0
	for {
		if _, _, _, ok := it.Next(); !ok {
			return n
		}
		n++
	}
}

func TestUnreliableSendsExactlyOnce(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	q.Unicast(c, &wire.Collision{})
	if got := drain(q.Messages(c, 10)); got != 1 {
		t.Fatalf("first pass sent %d messages, want 1", got)
	}
	//1.- The destination bit is cleared, so later passes stay silent.
	if got := drain(q.Messages(c, 20)); got != 0 {
		t.Fatalf("unreliable message re-sent")
	}
	//2.- With no destinations left the slot is reclaimed.
	q.Cleanup()
	if q.Len() != 0 {
		t.Fatalf("spent message not reclaimed")
	}
}

func TestReliableRetransmitPacing(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	q.Unicast(c, &wire.Join{Player: c.ID(), Nick: "a"})

	m, seqno, tries, ok := q.Messages(c, 0).Next()
	if !ok || tries != 0 {
		t.Fatalf("first transmission missing: ok=%v tries=%d", ok, tries)
	}
	if m.Tag() != wire.TagJoin || seqno != 1 {
		t.Fatalf("unexpected yield: tag=%d seqno=%d", m.Tag(), seqno)
	}
	//1.- Inside the retransmit interval the message is deferred.
	if got := drain(q.Messages(c, retransmitMs-1)); got != 0 {
		t.Fatalf("retransmitted before the interval elapsed")
	}
	//2.- Once the interval passes it goes out again with the same seqno.
	m2, seqno2, tries2, ok := q.Messages(c, retransmitMs+1).Next()
	if !ok || tries2 != 1 || seqno2 != seqno || m2 != m {
		t.Fatalf("retransmission wrong: ok=%v tries=%d seqno=%d", ok, tries2, seqno2)
	}
}

func TestAckClearsReliableDestination(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	q.Unicast(c, &wire.Join{Player: c.ID(), Nick: "a"})
	drain(q.Messages(c, 0))

	//1.- The ack covers seqno 1; the next pass clears the bit silently.
	c.LastInAck = 1
	if got := drain(q.Messages(c, retransmitMs+1)); got != 0 {
		t.Fatalf("acknowledged message retransmitted")
	}
	q.Cleanup()
	if q.Len() != 0 {
		t.Fatalf("acknowledged message not reclaimed")
	}
}

func TestBroadcastStampsIndependentSeqnos(t *testing.T) {
	q, table := testQueue(t)
	a := remote(table, 1000)
	b := remote(table, 1001)
	//1.- Skew b's reliable stream so the per-client stamping is visible.
	q.Unicast(b, &wire.Synced{})
	q.Broadcast(&wire.Join{Player: a.ID(), Nick: "a"})

	_, seqnoA, _, okA := q.Messages(a, 0).Next()
	it := q.Messages(b, 0)
	_, first, _, _ := it.Next()
	_, second, _, okB := it.Next()
	if !okA || !okB {
		t.Fatalf("broadcast did not reach both clients")
	}
	if seqnoA != 1 {
		t.Fatalf("client a seqno %d, want 1", seqnoA)
	}
	if first != 1 || second != 2 {
		t.Fatalf("client b seqnos %d,%d, want 1,2", first, second)
	}
}

func TestBroadcastSkipsLocalClients(t *testing.T) {
	q, table := testQueue(t)
	bot := table.CreateLocal()
	remote(table, 1000)
	q.Broadcast(&wire.Synced{})
	if got := drain(q.Messages(bot, 0)); got != 0 {
		t.Fatalf("broadcast queued for a local bot")
	}
}

func TestCleanupDropsMessagesForDeadClients(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	q.Unicast(c, &wire.Join{Player: c.ID(), Nick: "a"})
	table.Remove(c)
	q.Cleanup()
	if q.Len() != 0 {
		t.Fatalf("message for a dead client survived cleanup")
	}
}

func TestPoolExhaustionDropsMessage(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	for i := 0; i < MaxQueue; i++ {
		q.Unicast(c, &wire.Synced{})
	}
	//1.- The pool is full; the next enqueue must drop, not panic.
	q.Unicast(c, &wire.Synced{})
	if q.Len() != MaxQueue {
		t.Fatalf("queue length %d, want %d", q.Len(), MaxQueue)
	}
}

func TestObserveAckMeasuresPing(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	q.Unicast(c, &wire.Join{Player: c.ID(), Nick: "a"})
	drain(q.Messages(c, 1000))
	//1.- The ack lands 40ms after the first transmission.
	q.ObserveAck(c, 0, 1, 1040)
	if c.PingMs != 40 {
		t.Fatalf("ping %d, want 40", c.PingMs)
	}
}

func TestIteratorSurvivesInterleavedFlushes(t *testing.T) {
	q, table := testQueue(t)
	c := remote(table, 1000)
	for i := 0; i < 3; i++ {
		q.Unicast(c, &wire.Synced{})
	}
	//1.- Pull one message at a time from a single iterator, as the send pass
	// does between datagram flushes: each queued message comes out once.
	it := q.Messages(c, 0)
	seen := 0
	for {
		_, _, _, ok := it.Next()
		if !ok {
			break
		}
		seen++
	}
	if seen != 3 {
		t.Fatalf("iterator yielded %d messages, want 3", seen)
	}
}
