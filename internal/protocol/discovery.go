package protocol

import (
	"lwar/server/internal/logging"
	"lwar/server/internal/session"
	"lwar/server/internal/wire"
)

// Discovery announces the server on the multicast group on its cadence.
func (d *Driver) Discovery(now int64) {
	if d.opts.Announcer == nil || now < d.nextDiscovery {
		return
	}
	d.nextDiscovery = now + d.opts.DiscoveryIntervalMs

	var b wire.Buffer
	wire.PackDiscovery(&b, wire.Discovery{
		AppID: wire.AppID,
		Rev:   wire.NetworkRevision,
		Port:  d.opts.Port,
	})
	if err := d.opts.Announcer.Announce(b.Bytes()); err != nil {
		d.log.Warn("discovery announce failed", logging.Error(err))
	}
}

// QueueStats broadcasts the scoreboard on its cadence. The server's own
// slot carries the world entities and stays off the board.
func (d *Driver) QueueStats(now int64) {
	if now < d.nextStats {
		return
	}
	d.nextStats = now + d.opts.StatsIntervalMs

	stats := &wire.Stats{}
	d.opts.Table.ForEach(func(c *session.Client) bool {
		if c.Dead || c.ID().N == 0 {
			return true
		}
		stats.Entries = append(stats.Entries, wire.StatsEntry{
			Player: c.ID(),
			Kills:  c.Player.Kills,
			Deaths: c.Player.Deaths,
			Ping:   c.PingMs,
		})
		return true
	})
	if len(stats.Entries) == 0 {
		return
	}
	d.opts.Queue.Broadcast(stats)
}
