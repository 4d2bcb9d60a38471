// Package server is the coordinator: it owns every pool and endpoint, wires
// the subsystems together, and runs the strict per-tick stage order the
// simulation depends on.
package server

import (
	"fmt"
	"math/rand"

	"lwar/server/internal/bots"
	"lwar/server/internal/config"
	"lwar/server/internal/entity"
	"lwar/server/internal/logging"
	"lwar/server/internal/metrics"
	"lwar/server/internal/monitor"
	"lwar/server/internal/physics"
	"lwar/server/internal/protocol"
	"lwar/server/internal/queue"
	"lwar/server/internal/rules"
	"lwar/server/internal/session"
	"lwar/server/internal/trace"
	"lwar/server/internal/transport"
)

// Server owns the whole core. Every method runs on the tick goroutine; the
// monitor observes through published snapshots only.
type Server struct {
	cfg *config.Config
	log *logging.Logger
	rec *metrics.Recorder

	table  *session.Table
	queue  *queue.Queue
	world  *entity.World
	rules  *rules.Rules
	engine *physics.Engine
	driver *protocol.Driver
	botCtl *bots.Controller

	endpoint  *transport.Endpoint
	multicast *transport.Multicast
	tracer    *trace.Writer
	monitor   *monitor.Monitor

	// self owns the world's neutral entities so every ADD carries a valid
	// player id; it stays off the scoreboard.
	self *session.Client

	running   bool
	startedAt int64
	curClock  int64
	prevClock int64
}

// New assembles a server from its configuration. No sockets are touched
// until Init.
func New(cfg *config.Config, log *logging.Logger, sink metrics.Sink) *Server {
	if log == nil {
		log = logging.L()
	}
	s := &Server{
		cfg: cfg,
		log: log,
		rec: metrics.NewRecorder(sink),
	}
	s.table = session.NewTable()
	s.queue = queue.New(s.table, cfg.RetransmitInterval.Milliseconds(), log)
	s.world = entity.NewWorld()
	s.rules = rules.New(cfg.Planets, rand.New(rand.NewSource(rand.Int63())))
	s.engine = physics.NewEngine(log)
	s.monitor = monitor.New(log)
	return s
}

// Monitor exposes the status surface for the HTTP host.
func (s *Server) Monitor() *monitor.Monitor { return s.monitor }

// Init binds the sockets, installs the rule set, populates the world, and
// wires the event hooks. Discovery is optional: a failed multicast join
// degrades to a warning.
func (s *Server) Init() error {
	endpoint, err := transport.Bind(s.cfg.Port)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	s.endpoint = endpoint

	mc, err := transport.JoinMulticast(config.MulticastGroup, s.cfg.MulticastPort())
	if err != nil {
		s.log.Warn("discovery disabled", logging.Error(err))
	} else {
		s.multicast = mc
	}

	if s.cfg.TracePath != "" {
		tracer, err := trace.NewWriter(s.cfg.TracePath)
		if err != nil {
			s.log.Warn("datagram trace disabled", logging.Error(err))
		} else {
			s.tracer = tracer
		}
	}

	var announcer protocol.Announcer
	if s.multicast != nil {
		announcer = s.multicast
	}
	s.driver = protocol.NewDriver(protocol.Options{
		Conn:                s.endpoint,
		Announcer:           announcer,
		Table:               s.table,
		Queue:               s.queue,
		World:               s.world,
		Recorder:            s.rec,
		Tracer:              s.tracer,
		Logger:              s.log,
		Port:                s.endpoint.LocalPort(),
		UpdateIntervalMs:    s.cfg.UpdateInterval.Milliseconds(),
		TimeoutIntervalMs:   s.cfg.TimeoutInterval.Milliseconds(),
		DiscoveryIntervalMs: s.cfg.DiscoveryInterval.Milliseconds(),
		StatsIntervalMs:     s.cfg.StatsInterval.Milliseconds(),
		MisbehaviorLimit:    s.cfg.MisbehaviorLimit,
	})

	//1.- Entity and collision events flow into the protocol queue.
	s.world.OnAdd = s.driver.NotifyEntityAdded
	s.world.OnRemove = s.driver.NotifyEntityRemoved
	s.world.OnKill = s.driver.NotifyKill
	s.engine.OnCollision = s.driver.NotifyCollision

	//2.- Gameplay comes last: the self slot owns the neutral world.
	s.rules.Install(s.world)
	s.self = s.table.CreateLocal()
	if s.self == nil {
		return fmt.Errorf("server init: client table unavailable for the world owner")
	}
	s.self.Player.Name = "server"
	s.rules.Populate(s.world, &s.self.Player)

	s.botCtl = bots.NewController(s.cfg.Bots, s.table, s.world, s.log)

	s.running = true
	s.log.Info("initialized",
		logging.Int("port", int(s.endpoint.LocalPort())),
		logging.Int("planets", s.cfg.Planets),
		logging.Int("bots", s.cfg.Bots))
	return nil
}

// Port returns the bound unicast port.
func (s *Server) Port() uint16 {
	if s.endpoint == nil {
		return 0
	}
	return s.endpoint.LocalPort()
}

// Tick advances the world to now (a monotonic millisecond clock). The stage
// order is fixed: receive, players, entities, physics, stats, send, cleanup.
func (s *Server) Tick(now int64, force bool) {
	if !s.running {
		return
	}
	s.rec.TimerStart(metrics.TimerTotal)
	defer s.rec.TimerStop(metrics.TimerTotal)

	s.prevClock = s.curClock
	s.curClock = now
	if s.prevClock == 0 {
		//1.- The first frame only establishes the clock base.
		s.startedAt = now
		return
	}
	deltaMs := s.curClock - s.prevClock

	s.driver.Discovery(now)
	s.driver.Recv(now)

	s.botCtl.Update()
	s.rules.PlayersUpdate(s.table, s.world)

	s.rec.TimerStart(metrics.TimerEntities)
	s.world.Update(deltaMs)
	s.rec.TimerStop(metrics.TimerEntities)

	s.rec.TimerStart(metrics.TimerPhysics)
	s.engine.Update(s.world, float32(deltaMs)/1000)
	s.world.Reap()
	s.rec.TimerStop(metrics.TimerPhysics)

	s.driver.QueueStats(now)
	s.driver.Send(now, force)

	//2.- Cleanup order matters: messages, then clients, then entities.
	s.driver.Cleanup()
	s.table.Cleanup(func(c *session.Client) {
		s.world.RemoveFor(&c.Player)
	})
	s.world.Cleanup()

	s.publishStatus(now)
}

func (s *Server) publishStatus(now int64) {
	snap := s.rec.Latest()
	clients, botCount := 0, 0
	s.table.ForEach(func(c *session.Client) bool {
		if c.Dead || c == s.self {
			return true
		}
		if c.Remote {
			clients++
		} else {
			botCount++
		}
		return true
	})
	s.monitor.Publish(monitor.Status{
		UptimeMs:    now - s.startedAt,
		TickMs:      now,
		Clients:     clients,
		Bots:        botCount,
		Entities:    s.world.Len(),
		QueueDepth:  s.queue.Len(),
		RecvPackets: snap.Counters[metrics.CounterRecv],
		SentPackets: snap.Counters[metrics.CounterSend],
		Resends:     snap.Counters[metrics.CounterResend],
		RecvMicros:  snap.TimerMicros[metrics.TimerRecv],
		SendMicros:  snap.TimerMicros[metrics.TimerSend],
		PhysMicros:  snap.TimerMicros[metrics.TimerPhysics],
	})
}

// Shutdown releases the sockets and the trace journal.
func (s *Server) Shutdown() {
	s.running = false
	if s.endpoint != nil {
		_ = s.endpoint.Close()
	}
	if s.multicast != nil {
		_ = s.multicast.Close()
	}
	if err := s.tracer.Close(); err != nil {
		s.log.Warn("trace close failed", logging.Error(err))
	}
	s.log.Info("terminated")
}
