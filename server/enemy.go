package main

import (
	"math"
	"strconv"

	"github.com/jbantin/multiplayer-proto/protocol"
)

const (
	EnemyRadius        = 15.0
	EnemyMaxHealth     = 100
	EnemySpeed         = 2.0 // pixels per tick per axis
	EnemyHitboxSize    = 30.0
	EnemyColor         = "red"
	EnemySpawnX        = 500.0
	EnemySpawnY        = 500.0
	EnemyRetargetTicks = 20
	EnemyShootTicks    = 60

	enemyOwnerPrefix = "enemy-" // session ids never carry it
)

// PlayerLocator is the read-only view of live players the enemy AI steers by
type PlayerLocator interface {
	PlayerPosition(id string) (x, y float64, ok bool)
	NearestPlayer(x, y float64) (id string, ok bool)
}

// FireIntent is a shot the AI wants spawned this tick
type FireIntent struct {
	X, Y    float64
	VX, VY  float64
	OwnerID string
}

// Enemy is an AI-controlled shooter
type Enemy struct {
	ID          uint64
	X, Y        float64
	VX, VY      float64
	Health      int
	Color       string
	TargetID    string
	TargetTimer int // ticks until the next retarget
	ShootTimer  int // ticks until the next shot
}

// NewEnemy creates an idle enemy at the given position
func NewEnemy(id uint64, x, y float64) *Enemy {
	return &Enemy{
		ID:          id,
		X:           x,
		Y:           y,
		Health:      EnemyMaxHealth,
		Color:       EnemyColor,
		TargetTimer: EnemyRetargetTicks,
		ShootTimer:  EnemyShootTicks,
	}
}

// OwnerID tags projectiles fired by this enemy
func (e *Enemy) OwnerID() string {
	return enemyOwnerPrefix + strconv.FormatUint(e.ID, 10)
}

// Update runs one tick of targeting, seeking and firing. blocked reports
// whether a rectangle hits an obstacle. The returned intent is nil unless
// the enemy fires this tick.
func (e *Enemy) Update(view PlayerLocator, blocked func(Rect) bool) *FireIntent {
	e.TargetTimer--
	tx, ty, ok := 0.0, 0.0, false
	if e.TargetID != "" {
		tx, ty, ok = view.PlayerPosition(e.TargetID)
	}
	if e.TargetTimer <= 0 || !ok {
		e.TargetTimer = EnemyRetargetTicks
		e.TargetID, ok = view.NearestPlayer(e.X, e.Y)
		if ok {
			tx, ty, ok = view.PlayerPosition(e.TargetID)
		}
	}

	if e.ShootTimer > 0 {
		e.ShootTimer--
	}

	if !ok {
		// idle until someone joins
		e.TargetID = ""
		e.VX, e.VY = 0, 0
		return nil
	}

	e.seek(tx, ty, blocked)

	if e.ShootTimer > 0 {
		return nil
	}
	e.ShootTimer = EnemyShootTicks
	vx, vy := VelocityFromAngle(math.Atan2(ty-e.Y, tx-e.X), ProjectileSpeed)
	return &FireIntent{X: e.X, Y: e.Y, VX: vx, VY: vy, OwnerID: e.OwnerID()}
}

// seek moves toward (tx, ty) one axis at a time, undoing an axis that lands in an obstacle
func (e *Enemy) seek(tx, ty float64, blocked func(Rect) bool) {
	dist := Distance(e.X, e.Y, tx, ty)
	if dist == 0 {
		e.VX, e.VY = 0, 0
		return
	}
	e.VX = (tx - e.X) / dist * EnemySpeed
	e.VY = (ty - e.Y) / dist * EnemySpeed

	oldX := e.X
	e.X += e.VX
	if blocked(EnemyHitbox(e.X, e.Y)) {
		e.X = oldX
	}
	oldY := e.Y
	e.Y += e.VY
	if blocked(EnemyHitbox(e.X, e.Y)) {
		e.Y = oldY
	}
}

// ToState converts to protocol state
func (e *Enemy) ToState() protocol.EnemyState {
	return protocol.EnemyState{
		ID:       e.ID,
		X:        e.X,
		Y:        e.Y,
		Velocity: protocol.Vec{X: e.VX, Y: e.VY},
		Radius:   EnemyRadius,
		Health:   e.Health,
		Color:    e.Color,
		TargetID: e.TargetID,
	}
}
