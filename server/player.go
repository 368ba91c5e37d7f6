package main

import (
	"strings"

	"github.com/jbantin/multiplayer-proto/protocol"
)

const (
	PlayerRadius    = 15.0
	PlayerSpeed     = 3.0 // pixels per move command
	PlayerMaxHealth = 100
	PlayerHitboxW   = 32.0
	PlayerHitboxH   = 64.0
	WorldWidth      = MapCols * TileSize
	WorldHeight     = MapRows * TileSize

	// playable-area margins; the outer tile ring is reserved
	marginLeft   = 64.0
	marginTop    = 96.0
	marginRight  = 64.0
	marginBottom = 64.0

	maxNameLen  = 16
	defaultName = "Player"
)

// Player represents a player in the game
type Player struct {
	ID           string
	Username     string
	Color        string
	X, Y         float64
	Angle        float64
	Health       int
	Score        int
	LastAckedSeq uint64
}

// NewPlayer creates a player with full health at the given position
func NewPlayer(id, username, color string, x, y float64) *Player {
	return &Player{
		ID:       id,
		Username: SanitizeName(username),
		Color:    color,
		X:        x,
		Y:        y,
		Health:   PlayerMaxHealth,
	}
}

// SanitizeName trims a display name to maxNameLen characters, defaulting when empty
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	return name
}

// Step applies one movement command inside a world of the given size.
// The moved axis is clamped to the margins, and restored to its previous
// value if the hitbox then overlaps an obstacle. It reports whether the
// player ended up somewhere new.
func (p *Player) Step(dir protocol.Direction, width, height float64, blocked func(Rect) bool) bool {
	dx, dy := dir.Delta()
	if dx == 0 && dy == 0 {
		return false
	}
	oldX, oldY := p.X, p.Y

	if dx != 0 {
		p.X = Clamp(p.X+dx*PlayerSpeed, PlayerRadius+marginLeft, width-PlayerRadius-marginRight)
		if blocked(PlayerHitbox(p.X, p.Y)) {
			p.X = oldX
		}
	} else {
		p.Y = Clamp(p.Y+dy*PlayerSpeed, PlayerRadius+marginTop, height-PlayerRadius-marginBottom)
		if blocked(PlayerHitbox(p.X, p.Y)) {
			p.Y = oldY
		}
	}
	return p.X != oldX || p.Y != oldY
}

// TakeDamage reduces health, never below zero, and returns true if the player died
func (p *Player) TakeDamage(dmg int) bool {
	p.Health -= dmg
	if p.Health <= 0 {
		p.Health = 0
		return true
	}
	return false
}

// ToState converts to protocol state
func (p *Player) ToState() protocol.PlayerState {
	return protocol.PlayerState{
		ID:       p.ID,
		X:        p.X,
		Y:        p.Y,
		Angle:    p.Angle,
		Radius:   PlayerRadius,
		Speed:    PlayerSpeed,
		Health:   p.Health,
		Score:    p.Score,
		Color:    p.Color,
		Username: p.Username,
		Seq:      p.LastAckedSeq,
	}
}
