// Package bots fills otherwise empty servers with local players. Bot clients
// occupy regular table slots with the sentinel address, so the whole
// simulation treats them like any other participant; only the transport
// ignores them.
package bots

import (
	"fmt"

	"lwar/server/internal/entity"
	"lwar/server/internal/geom"
	"lwar/server/internal/logging"
	"lwar/server/internal/rules"
	"lwar/server/internal/session"
)

// fireRange is how close a target must be before a bot holds the trigger.
const fireRange = 3000

// Controller owns the bot slots and synthesizes their input every tick.
type Controller struct {
	table *session.Table
	world *entity.World
	log   *logging.Logger

	bots []*session.Client
}

// NewController allocates count bot slots. Allocation stops with a warning when
// the table fills; remote players take precedence by configuring fewer bots.
func NewController(count int, table *session.Table, world *entity.World, log *logging.Logger) *Controller {
	if log == nil {
		log = logging.L()
	}
	c := &Controller{table: table, world: world, log: log}
	for i := 0; i < count; i++ {
		bot := table.CreateLocal()
		if bot == nil {
			c.log.Warn("client table full, fewer bots than configured",
				logging.Int("requested", count), logging.Int("created", i))
			break
		}
		bot.Player.Name = fmt.Sprintf("bot-%d", i+1)
		c.bots = append(c.bots, bot)
	}
	return c
}

// Update steers every bot: keep a loadout selected, chase the nearest
// foreign ship, and fire inside range. Runs on the tick goroutine before
// the player stage consumes the latched input.
func (c *Controller) Update() {
	for _, bot := range c.bots {
		if bot.Dead {
			continue
		}
		c.steer(&bot.Player)
	}
}

func (c *Controller) steer(p *entity.Player) {
	//1.- Ship deaths clear the selection; restore it so the respawn stage
	// brings the bot back.
	if p.Ship.SelectedType == nil {
		p.Select(&c.world.Types, rules.TypeShip,
			[entity.NumSlots]uint8{rules.TypeGun, 0, 0, 0})
	}
	ship := p.Ship.Entity
	if ship == nil {
		return
	}

	target := c.nearestFoe(p, ship)
	if target == nil {
		//2.- Nothing to hunt: drift and hold fire.
		p.Accel = geom.Zero
		setTrigger(p, ship, false)
		return
	}

	dx := target.X.Sub(ship.X)
	p.Aim = dx
	p.Accel = geom.Vec{X: 1}
	//3.- Fire only when the bore roughly lines up with the target.
	bearing := dx.Rotate(-ship.Phi).Normalize()
	aligned := bearing.X > 0.9
	setTrigger(p, ship, aligned && dx.Len() < fireRange)
}

func (c *Controller) nearestFoe(p *entity.Player, ship *entity.Entity) *entity.Entity {
	var best *entity.Entity
	var bestDist float32
	c.world.ForEach(func(e *entity.Entity) bool {
		if e.Dead || e.Type.ID != rules.TypeShip || e.Player == p {
			return true
		}
		d := geom.DistSq(e.X, ship.X)
		if best == nil || d < bestDist {
			best = e
			bestDist = d
		}
		return true
	})
	return best
}

func setTrigger(p *entity.Player, ship *entity.Entity, firing bool) {
	if w := p.Weapons[0].Entity; w != nil {
		w.Active = firing
		return
	}
	ship.Active = firing
}
