package metrics

import (
	"testing"
	"time"
)

type captureSink struct {
	starts  []Timer
	stops   []Timer
	elapsed []time.Duration
	set     map[Counter]uint64
}

func (s *captureSink) TimerStart(t Timer) { s.starts = append(s.starts, t) }
func (s *captureSink) TimerStop(t Timer, elapsed time.Duration) {
	s.stops = append(s.stops, t)
	s.elapsed = append(s.elapsed, elapsed)
}
func (s *captureSink) CounterSet(c Counter, value uint64) {
	if s.set == nil {
		s.set = map[Counter]uint64{}
	}
	s.set[c] = value
}

func TestRecorderForwardsToSink(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(sink)
	r.TimerStart(TimerPhysics)
	r.TimerStop(TimerPhysics)
	r.CounterSet(CounterSend, 7)

	if len(sink.starts) != 1 || sink.starts[0] != TimerPhysics {
		t.Fatalf("start not forwarded: %v", sink.starts)
	}
	if len(sink.stops) != 1 || sink.stops[0] != TimerPhysics {
		t.Fatalf("stop not forwarded: %v", sink.stops)
	}
	if sink.set[CounterSend] != 7 {
		t.Fatalf("counter not forwarded: %v", sink.set)
	}
}

func TestSnapshotHoldsLatestValues(t *testing.T) {
	r := NewRecorder(nil)
	r.CounterSet(CounterRecv, 3)
	r.TimerStart(TimerRecv)
	r.TimerStop(TimerRecv)
	snap := r.Latest()
	if snap.Counters[CounterRecv] != 3 {
		t.Fatalf("snapshot counter %d", snap.Counters[CounterRecv])
	}
	if snap.TimerMicros[TimerRecv] < 0 {
		t.Fatalf("negative timer measurement")
	}
}

func TestStopWithoutStartIsHarmless(t *testing.T) {
	r := NewRecorder(nil)
	r.TimerStop(TimerSend)
	if r.Latest().TimerMicros[TimerSend] != 0 {
		t.Fatalf("phantom measurement recorded")
	}
}
