package main

import (
	"math"

	"github.com/jbantin/multiplayer-proto/protocol"
)

const (
	ProjectileSpeed  = 8.0 // pixels per tick
	ProjectileRadius = 4.0
	ProjectileDamage = 20
)

// Projectile is a shot in flight
type Projectile struct {
	ID      uint64
	OwnerID string
	X, Y    float64
	VX, VY  float64
	Radius  float64
}

// VelocityFromAngle returns a velocity of the given speed along angle (radians)
func VelocityFromAngle(angle, speed float64) (vx, vy float64) {
	return math.Cos(angle) * speed, math.Sin(angle) * speed
}

// Advance moves the projectile one tick
func (p *Projectile) Advance() {
	p.X += p.VX
	p.Y += p.VY
}

// OutOfBounds reports whether the projectile left the world by more than its radius
func (p *Projectile) OutOfBounds(width, height float64) bool {
	return p.X+p.Radius < 0 || p.X-p.Radius > width ||
		p.Y+p.Radius < 0 || p.Y-p.Radius > height
}

// Box is the rectangle tested against obstacles
func (p *Projectile) Box() Rect {
	return ProjectileBox(p.X, p.Y, p.Radius)
}

// ToState converts to protocol state
func (p *Projectile) ToState() protocol.ProjectileState {
	return protocol.ProjectileState{
		ID:       p.ID,
		X:        p.X,
		Y:        p.Y,
		Velocity: protocol.Vec{X: p.VX, Y: p.VY},
		OwnerID:  p.OwnerID,
		Radius:   p.Radius,
	}
}
