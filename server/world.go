package main

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/jbantin/multiplayer-proto/protocol"
)

// maxSpawnAttempts bounds the safe-spawn rejection sampling
const maxSpawnAttempts = 100

// SpawnArea is the half-open rectangle [MinX, MaxX) x [MinY, MaxY) spawn points are drawn from
type SpawnArea struct {
	MinX, MinY, MaxX, MaxY float64
}

var (
	// JoinArea is where new players appear
	JoinArea = SpawnArea{MinX: 128, MinY: 128, MaxX: WorldWidth - 128, MaxY: WorldHeight - 128}
	// RespawnArea is where killed players reappear
	RespawnArea = SpawnArea{MinX: 50, MinY: 100, MaxX: WorldWidth - 50, MaxY: WorldHeight - 100}
)

func (a SpawnArea) contains(x, y float64) bool {
	return x >= a.MinX && x < a.MaxX && y >= a.MinY && y < a.MaxY
}

// World owns every live entity. It is not safe for concurrent use; Game
// serializes all access under its lock.
type World struct {
	Width, Height float64

	obstacles *ObstacleIndex
	rng       *rand.Rand

	players     map[string]*Player
	projectiles map[uint64]*Projectile
	enemies     map[uint64]*Enemy

	nextProjectile uint64
	nextEnemy      uint64
}

// NewWorld creates an empty world over the obstacle index
func NewWorld(obstacles *ObstacleIndex, seed uint64) *World {
	return &World{
		Width:       WorldWidth,
		Height:      WorldHeight,
		obstacles:   obstacles,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		players:     make(map[string]*Player),
		projectiles: make(map[uint64]*Projectile),
		enemies:     make(map[uint64]*Enemy),
	}
}

// Blocked reports whether r intersects an obstacle
func (w *World) Blocked(r Rect) bool {
	return RectBlocked(w.obstacles, r)
}

// SpawnPlayer places a new player at a safe point of the join area
func (w *World) SpawnPlayer(id, username string) *Player {
	x, y, _ := w.SafeSpawn(JoinArea)
	color := fmt.Sprintf("hsl(%.0f,100%%,50%%)", w.rng.Float64()*255)
	p := NewPlayer(id, username, color, x, y)
	w.players[id] = p
	return p
}

// RemovePlayer deletes a player, reporting whether it existed
func (w *World) RemovePlayer(id string) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

// Player looks up a player by session id
func (w *World) Player(id string) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// SpawnProjectile adds a projectile under the next id
func (w *World) SpawnProjectile(x, y, vx, vy float64, ownerID string) *Projectile {
	w.nextProjectile++
	p := &Projectile{
		ID:      w.nextProjectile,
		OwnerID: ownerID,
		X:       x,
		Y:       y,
		VX:      vx,
		VY:      vy,
		Radius:  ProjectileRadius,
	}
	w.projectiles[p.ID] = p
	return p
}

// RemoveProjectile deletes a projectile, reporting whether it existed
func (w *World) RemoveProjectile(id uint64) bool {
	if _, ok := w.projectiles[id]; !ok {
		return false
	}
	delete(w.projectiles, id)
	return true
}

// SpawnEnemy adds an enemy under the next id. If (x, y) is inside an
// obstacle the enemy is placed at a clear point of the respawn area instead.
func (w *World) SpawnEnemy(x, y float64) *Enemy {
	if w.Blocked(EnemyHitbox(x, y)) {
		nx, ny, _ := w.clearPoint(RespawnArea, EnemyHitbox)
		Log.Warnw("enemy spawn point blocked, relocating", "x", x, "y", y, "to_x", nx, "to_y", ny)
		x, y = nx, ny
	}
	w.nextEnemy++
	e := NewEnemy(w.nextEnemy, x, y)
	w.enemies[e.ID] = e
	return e
}

// SafeSpawn samples the area until the player hitbox is clear. After
// maxSpawnAttempts misses it falls back to the first clear tile centre inside
// the area (row-major), then to the world centre; ok is false in that case.
func (w *World) SafeSpawn(area SpawnArea) (x, y float64, ok bool) {
	return w.clearPoint(area, PlayerHitbox)
}

func (w *World) clearPoint(area SpawnArea, hitbox func(x, y float64) Rect) (x, y float64, ok bool) {
	for i := 0; i < maxSpawnAttempts; i++ {
		x = area.MinX + w.rng.Float64()*(area.MaxX-area.MinX)
		y = area.MinY + w.rng.Float64()*(area.MaxY-area.MinY)
		if !w.Blocked(hitbox(x, y)) {
			return x, y, true
		}
	}

	x, y, found := w.fallbackSpawn(area, hitbox)
	if found {
		Log.Warnw("safe spawn fell back to tile scan", "attempts", maxSpawnAttempts, "x", x, "y", y)
	} else {
		Log.Warnw("no clear spawn point, using world centre", "attempts", maxSpawnAttempts)
	}
	return x, y, false
}

func (w *World) fallbackSpawn(area SpawnArea, hitbox func(x, y float64) Rect) (x, y float64, ok bool) {
	cols := int(w.Width / TileSize)
	rows := int(w.Height / TileSize)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cx := float64(c)*TileSize + TileSize/2
			cy := float64(r)*TileSize + TileSize/2
			if area.contains(cx, cy) && !w.Blocked(hitbox(cx, cy)) {
				return cx, cy, true
			}
		}
	}
	return w.Width / 2, w.Height / 2, false
}

// Respawn restores a killed player's health at a safe point of the respawn area
func (w *World) Respawn(p *Player) {
	p.X, p.Y, _ = w.SafeSpawn(RespawnArea)
	p.Health = PlayerMaxHealth
}

// PlayerPosition implements PlayerLocator
func (w *World) PlayerPosition(id string) (x, y float64, ok bool) {
	p, ok := w.players[id]
	if !ok {
		return 0, 0, false
	}
	return p.X, p.Y, true
}

// NearestPlayer implements PlayerLocator. Equidistant players resolve to the lowest id.
func (w *World) NearestPlayer(x, y float64) (string, bool) {
	best := ""
	bestDist := 0.0
	for id, p := range w.players {
		dx, dy := p.X-x, p.Y-y
		d := dx*dx + dy*dy
		if best == "" || d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best, best != ""
}

// PlayerIDs returns the ids of all players in ascending order
func (w *World) PlayerIDs() []string {
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ProjectileIDs returns the ids of all projectiles in ascending order
func (w *World) ProjectileIDs() []uint64 {
	ids := make([]uint64, 0, len(w.projectiles))
	for id := range w.projectiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// EnemyIDs returns the ids of all enemies in ascending order
func (w *World) EnemyIDs() []uint64 {
	ids := make([]uint64, 0, len(w.enemies))
	for id := range w.enemies {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// PlayerCount returns the number of players
func (w *World) PlayerCount() int { return len(w.players) }

// ProjectileCount returns the number of projectiles in flight
func (w *World) ProjectileCount() int { return len(w.projectiles) }

// PlayersSnapshot copies every player into wire form
func (w *World) PlayersSnapshot() protocol.PlayersSnapshot {
	out := make(protocol.PlayersSnapshot, len(w.players))
	for id, p := range w.players {
		out[id] = p.ToState()
	}
	return out
}

// ProjectilesSnapshot copies every projectile into wire form
func (w *World) ProjectilesSnapshot() protocol.ProjectilesSnapshot {
	out := make(protocol.ProjectilesSnapshot, len(w.projectiles))
	for id, p := range w.projectiles {
		out[id] = p.ToState()
	}
	return out
}

// EnemiesSnapshot copies every enemy into wire form
func (w *World) EnemiesSnapshot() protocol.EnemiesSnapshot {
	out := make(protocol.EnemiesSnapshot, len(w.enemies))
	for id, e := range w.enemies {
		out[id] = e.ToState()
	}
	return out
}
