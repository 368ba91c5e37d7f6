package main

import (
	"context"
	"sync"
	"time"

	"github.com/jbantin/multiplayer-proto/protocol"
)

// DefaultTickInterval is the simulation cadence of the reference deployment
const DefaultTickInterval = 15 * time.Millisecond

// Session receives encoded frames for one connection. Enqueue must not block.
type Session interface {
	Encoding() protocol.Encoding
	Enqueue(frame []byte)
}

// EventSink records gameplay events for offline analysis
type EventSink interface {
	Track(evtType, sessionID, data string)
}

type nopSink struct{}

func (nopSink) Track(string, string, string) {}

// Game owns the world and serializes every command and tick under one lock
type Game struct {
	mu       sync.Mutex
	world    *World
	tileMap  *TileMap
	sessions map[string]Session
	tick     uint64
	hits     []protocol.HitEffect

	metrics *Metrics
	events  EventSink
}

// NewGame creates a game over the tile map with its starting enemy
func NewGame(m *TileMap, seed uint64) *Game {
	g := &Game{
		world:    NewWorld(NewTileObstacleIndex(m), seed),
		tileMap:  m,
		sessions: make(map[string]Session),
		metrics:  &Metrics{},
		events:   nopSink{},
	}
	g.world.SpawnEnemy(EnemySpawnX, EnemySpawnY)
	return g
}

// SetEvents installs the analytics sink
func (g *Game) SetEvents(s EventSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s == nil {
		s = nopSink{}
	}
	g.events = s
}

// Metrics returns the live counters
func (g *Game) Metrics() *Metrics { return g.metrics }

// Run ticks the game until ctx is done. A slow tick delays the next one;
// ticks never overlap.
func (g *Game) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			g.Tick()
			elapsed := time.Since(start)
			g.metrics.AddTick(elapsed.Nanoseconds())
			if elapsed > interval {
				g.metrics.IncOverrun()
				Log.Debugw("tick overran interval", "elapsed", elapsed, "interval", interval)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Connect registers a session and sends it the map and the current state.
// A session whose player already exists also gets its welcome.
func (g *Game) Connect(id string, s Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id] = s
	sendTo(s, newOutbound(protocol.MsgMap, g.tileMap.Snapshot()))
	if _, ok := g.world.Player(id); ok {
		sendTo(s, newOutbound(protocol.MsgWelcome, protocol.WelcomeMsg{ID: id, Tick: g.tick}))
	}
	g.sendState(s)
}

// Disconnect drops the session and removes its player immediately
func (g *Game) Disconnect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, id)
	if g.world.RemovePlayer(id) {
		g.events.Track(EvtPlayerLeave, id, "")
		Log.Infow("player left", "session", id, "players", g.world.PlayerCount())
	}
}

// Tick advances the simulation one step and broadcasts the result
func (g *Game) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	g.updateEnemies()
	g.updateProjectiles()
	g.broadcastState()
}

// updateEnemies runs the AI of every enemy in id order
func (g *Game) updateEnemies() {
	for _, id := range g.world.EnemyIDs() {
		e := g.world.enemies[id]
		if shot := e.Update(g.world, g.world.Blocked); shot != nil {
			g.world.SpawnProjectile(shot.X, shot.Y, shot.VX, shot.VY, shot.OwnerID)
			g.metrics.IncFired()
		}
	}
}

// updateProjectiles moves every projectile in id order and resolves what it hits
func (g *Game) updateProjectiles() {
	w := g.world
	players := w.PlayerIDs()
	for _, id := range w.ProjectileIDs() {
		proj := w.projectiles[id]
		proj.Advance()

		if w.Blocked(proj.Box()) || proj.OutOfBounds(w.Width, w.Height) {
			w.RemoveProjectile(id)
			continue
		}

		for _, pid := range players {
			if pid == proj.OwnerID {
				continue
			}
			target, ok := w.players[pid]
			if !ok {
				continue
			}
			if CirclesOverlap(proj.X, proj.Y, proj.Radius, target.X, target.Y, PlayerRadius) {
				g.resolveHit(proj, target)
				break
			}
		}
	}
}

// resolveHit applies damage, handles the kill and consumes the projectile
func (g *Game) resolveHit(proj *Projectile, target *Player) {
	g.metrics.IncHit()
	if target.TakeDamage(ProjectileDamage) {
		g.world.Respawn(target)
		g.metrics.IncKill()
		if shooter, ok := g.world.players[proj.OwnerID]; ok {
			shooter.Score++
		}
		g.events.Track(EvtPlayerKill, target.ID, eventData(map[string]any{
			"shooter": proj.OwnerID,
			"victim":  target.Username,
		}))
	}
	g.hits = append(g.hits, protocol.HitEffect{
		Position: protocol.Vec{X: proj.X, Y: proj.Y},
		Velocity: protocol.Vec{X: proj.VX, Y: proj.VY},
	})
	g.world.RemoveProjectile(proj.ID)
}

// broadcastState sends this tick's hit effects and the full world to every session
func (g *Game) broadcastState() {
	msgs := make([]*outbound, 0, len(g.hits)+3)
	for _, h := range g.hits {
		msgs = append(msgs, newOutbound(protocol.MsgHit, h))
	}
	g.hits = g.hits[:0]
	msgs = append(msgs, g.stateMessages()...)
	g.broadcast(msgs...)
}

// stateMessages builds the players, projectiles and enemies snapshots
func (g *Game) stateMessages() []*outbound {
	return []*outbound{
		newOutbound(protocol.MsgPlayers, g.world.PlayersSnapshot()),
		newOutbound(protocol.MsgProjectiles, g.world.ProjectilesSnapshot()),
		newOutbound(protocol.MsgEnemies, g.world.EnemiesSnapshot()),
	}
}

// sendState pushes the full world to one session
func (g *Game) sendState(s Session) {
	sendTo(s, g.stateMessages()...)
}

// broadcast sends messages to every session, encoding each once per encoding
func (g *Game) broadcast(msgs ...*outbound) {
	for _, s := range g.sessions {
		sendTo(s, msgs...)
	}
}

// PlayerCount returns the number of players
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world.PlayerCount()
}

// SessionCount returns the number of connected sessions
func (g *Game) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// CurrentTick returns the number of ticks run so far
func (g *Game) CurrentTick() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}
