package main

import "math"

// Rect is an axis-aligned rectangle anchored at its top-left corner
type Rect struct {
	X, Y, W, H float64
}

// Overlaps reports whether two rectangles intersect. Touching edges do not count.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// PlayerHitbox is the 32x64 box players collide with obstacles through
func PlayerHitbox(x, y float64) Rect {
	return Rect{X: x - PlayerHitboxW/2, Y: y - PlayerHitboxH/2, W: PlayerHitboxW, H: PlayerHitboxH}
}

// EnemyHitbox is the box centred on an enemy
func EnemyHitbox(x, y float64) Rect {
	return Rect{X: x - EnemyHitboxSize/2, Y: y - EnemyHitboxSize/2, W: EnemyHitboxSize, H: EnemyHitboxSize}
}

// ProjectileBox is the 2r x 2r box centred on a projectile
func ProjectileBox(x, y, r float64) Rect {
	return Rect{X: x - r, Y: y - r, W: 2 * r, H: 2 * r}
}

// RectBlocked reports whether r intersects an obstacle. A nil index blocks nothing.
func RectBlocked(idx *ObstacleIndex, r Rect) bool {
	if idx == nil {
		return false
	}
	return idx.Overlaps(r.X, r.Y, r.W, r.H)
}

// CirclesOverlap checks if two circles overlap. Touching circles do not.
func CirclesOverlap(ax, ay, ar, bx, by, br float64) bool {
	return math.Hypot(bx-ax, by-ay) < ar+br
}
