// Package protocol defines the wire contract between the game server and its clients.
package protocol

import "strings"

// Client -> Server message types
const (
	MsgJoin = "join"
	MsgMove = "move"
	MsgAim  = "aim"
	MsgFire = "fire"
)

// Server -> Client message types
const (
	MsgWelcome     = "welcome"
	MsgMap         = "map"
	MsgPlayers     = "players"
	MsgProjectiles = "projectiles"
	MsgEnemies     = "enemies"
	MsgHit         = "hit"
)

// Direction is a movement command code
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// ParseDirection accepts the canonical codes and the browser key codes
// (KeyW/KeyA/KeyS/KeyD). ok is false for anything else.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "up", "keyw":
		return DirUp, true
	case "down", "keys":
		return DirDown, true
	case "left", "keya":
		return DirLeft, true
	case "right", "keyd":
		return DirRight, true
	}
	return "", false
}

// Delta returns the unit displacement for the direction
func (d Direction) Delta() (dx, dy float64) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// Vec is a 2D position or velocity
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JoinMsg is sent when a session wants a player in the world
type JoinMsg struct {
	Username string `json:"username"`
}

// MoveMsg is one movement key press, tagged with the client's sequence number
type MoveMsg struct {
	Dir string `json:"dir"`
	Seq uint64 `json:"seq"`
}

// AimMsg carries the pointer angle in radians
type AimMsg struct {
	Angle float64 `json:"angle"`
}

// FireMsg requests a shot. X/Y are the client's view of its own position;
// the server fires from its authoritative position instead.
type FireMsg struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// WelcomeMsg tells a new connection its session id
type WelcomeMsg struct {
	ID   string `json:"id"`
	Tick uint64 `json:"tick"`
}

// MapSnapshot carries the tile layers for rendering and client-side prediction
type MapSnapshot struct {
	Layers   [][]int `json:"layers"`
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
	TileSize float64 `json:"tileSize"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Radius   float64 `json:"radius"`
	Speed    float64 `json:"speed"`
	Health   int     `json:"health"`
	Score    int     `json:"score"`
	Color    string  `json:"color"`
	Username string  `json:"username"`
	Seq      uint64  `json:"sequenceNumber"` // last acknowledged move
}

// ProjectileState is broadcast per projectile
type ProjectileState struct {
	ID       uint64  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Velocity Vec     `json:"velocity"`
	OwnerID  string  `json:"playerId"`
	Radius   float64 `json:"radius"`
}

// EnemyState is broadcast per enemy
type EnemyState struct {
	ID       uint64  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Velocity Vec     `json:"velocity"`
	Radius   float64 `json:"radius"`
	Health   int     `json:"health"`
	Color    string  `json:"color"`
	TargetID string  `json:"targetPlayerId,omitempty"`
}

// PlayersSnapshot is keyed by session id
type PlayersSnapshot map[string]PlayerState

// ProjectilesSnapshot is keyed by projectile id
type ProjectilesSnapshot map[uint64]ProjectileState

// EnemiesSnapshot is keyed by enemy id
type EnemiesSnapshot map[uint64]EnemyState

// HitEffect is a presentation-only event emitted when a projectile strikes a player
type HitEffect struct {
	Position Vec `json:"hitPosition"`
	Velocity Vec `json:"velocity"`
}
