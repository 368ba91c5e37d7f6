package main

import (
	"github.com/jbantin/multiplayer-proto/protocol"
)

// Join spawns a player for the session and sends it the welcome and the full
// state right away. A session that already has a player is ignored.
func (g *Game) Join(id, username string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.world.Player(id); ok {
		g.metrics.IncIgnored()
		return false
	}
	p := g.world.SpawnPlayer(id, username)
	g.metrics.IncAccepted()
	g.events.Track(EvtPlayerJoin, id, eventData(map[string]any{"username": p.Username}))
	Log.Infow("player joined", "session", id, "username", p.Username, "x", p.X, "y", p.Y)

	if s, ok := g.sessions[id]; ok {
		sendTo(s, newOutbound(protocol.MsgWelcome, protocol.WelcomeMsg{ID: id, Tick: g.tick}))
		g.sendState(s)
	}
	return true
}

// Move applies one movement command synchronously and acknowledges its sequence number.
// Commands from sessions without a player are dropped.
func (g *Game) Move(id string, dir protocol.Direction, seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.world.Player(id)
	if !ok {
		g.metrics.IncIgnored()
		return false
	}
	p.LastAckedSeq = seq
	p.Step(dir, g.world.Width, g.world.Height, g.world.Blocked)
	g.metrics.IncAccepted()
	return true
}

// Aim overwrites the player's facing angle. Non-finite angles are dropped.
func (g *Game) Aim(id string, angle float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.world.Player(id)
	if !ok || !Finite(angle) {
		g.metrics.IncIgnored()
		return false
	}
	p.Angle = angle
	g.metrics.IncAccepted()
	return true
}

// Fire spawns a projectile from the player's authoritative position along angle.
// Non-finite angles are dropped.
func (g *Game) Fire(id string, angle float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.world.Player(id)
	if !ok || !Finite(angle) {
		g.metrics.IncIgnored()
		return false
	}
	vx, vy := VelocityFromAngle(angle, ProjectileSpeed)
	g.world.SpawnProjectile(p.X, p.Y, vx, vy, p.ID)
	g.metrics.IncAccepted()
	g.metrics.IncFired()
	return true
}
