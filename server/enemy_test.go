package main

import (
	"math"
	"testing"
)

// fakeLocator is a PlayerLocator over fixed positions
type fakeLocator map[string][2]float64

func (f fakeLocator) PlayerPosition(id string) (float64, float64, bool) {
	p, ok := f[id]
	return p[0], p[1], ok
}

func (f fakeLocator) NearestPlayer(x, y float64) (string, bool) {
	best, bestDist := "", 0.0
	for id, p := range f {
		d := math.Hypot(p[0]-x, p[1]-y)
		if best == "" || d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best, best != ""
}

func TestEnemyIdleWithoutPlayers(t *testing.T) {
	e := NewEnemy(1, 500, 500)
	for i := 0; i < 200; i++ {
		if shot := e.Update(fakeLocator{}, noObstacles); shot != nil {
			t.Fatalf("idle enemy fired on update %d", i)
		}
	}
	if e.X != 500 || e.Y != 500 || e.VX != 0 || e.VY != 0 {
		t.Errorf("idle enemy moved: %+v", e)
	}
	if e.TargetID != "" {
		t.Errorf("expected no target, got %q", e.TargetID)
	}
	if e.ShootTimer != 0 {
		t.Errorf("shoot timer should floor at 0, got %d", e.ShootTimer)
	}
}

func TestEnemySeeksNearest(t *testing.T) {
	e := NewEnemy(1, 500, 500)
	players := fakeLocator{"far": {1500, 500}, "near": {600, 500}}

	e.Update(players, noObstacles)
	if e.TargetID != "near" {
		t.Errorf("expected target near, got %q", e.TargetID)
	}
	if e.X != 500+EnemySpeed || e.Y != 500 {
		t.Errorf("expected (502, 500), got (%f, %f)", e.X, e.Y)
	}
	if e.VX != EnemySpeed || e.VY != 0 {
		t.Errorf("expected velocity (2, 0), got (%f, %f)", e.VX, e.VY)
	}
}

func TestEnemyRetargetsOnTimer(t *testing.T) {
	e := NewEnemy(1, 500, 500)
	players := fakeLocator{"a": {600, 500}, "b": {1000, 500}}

	e.Update(players, noObstacles)
	if e.TargetID != "a" {
		t.Fatalf("expected target a, got %q", e.TargetID)
	}

	players["b"] = [2]float64{510, 500}
	for i := 0; i < EnemyRetargetTicks-1; i++ {
		e.Update(players, noObstacles)
		if e.TargetID != "a" {
			t.Fatalf("retargeted early on update %d", i+2)
		}
	}
	e.Update(players, noObstacles)
	if e.TargetID != "b" {
		t.Errorf("expected retarget to b, got %q", e.TargetID)
	}
}

func TestEnemyRetargetsWhenTargetLeaves(t *testing.T) {
	e := NewEnemy(1, 500, 500)
	players := fakeLocator{"a": {600, 500}, "b": {1000, 500}}
	e.Update(players, noObstacles)

	delete(players, "a")
	e.Update(players, noObstacles)
	if e.TargetID != "b" {
		t.Errorf("expected immediate retarget to b, got %q", e.TargetID)
	}
}

func TestEnemyBlockedAxisReverts(t *testing.T) {
	e := NewEnemy(1, 500, 500)
	players := fakeLocator{"a": {600, 600}}
	wallRight := func(r Rect) bool { return r.X+r.W > 515 }

	e.Update(players, wallRight)
	if e.X != 500 {
		t.Errorf("x should be reverted, got %f", e.X)
	}
	if e.Y <= 500 {
		t.Errorf("y should still advance, got %f", e.Y)
	}
}

func TestEnemyFiringCadence(t *testing.T) {
	e := NewEnemy(3, 500, 500)
	players := fakeLocator{"a": {500, 1500}}

	var fired []int
	var last *FireIntent
	for i := 1; i <= 2*EnemyShootTicks; i++ {
		if shot := e.Update(players, noObstacles); shot != nil {
			fired = append(fired, i)
			last = shot
		}
	}
	if len(fired) != 2 || fired[0] != EnemyShootTicks || fired[1] != 2*EnemyShootTicks {
		t.Fatalf("expected shots on updates 60 and 120, got %v", fired)
	}
	if last.OwnerID != "enemy-3" {
		t.Errorf("expected owner enemy-3, got %q", last.OwnerID)
	}
	if math.Abs(last.VX) > 1e-9 || math.Abs(last.VY-ProjectileSpeed) > 1e-9 {
		t.Errorf("expected shot straight down at speed 8, got (%f, %f)", last.VX, last.VY)
	}
	if last.X != e.X || last.Y != e.Y {
		t.Error("shot should leave from the enemy position")
	}
}

func TestEnemyToState(t *testing.T) {
	e := NewEnemy(2, 10, 20)
	e.TargetID = "a"
	s := e.ToState()
	if s.ID != 2 || s.Color != EnemyColor || s.Health != EnemyMaxHealth || s.Radius != EnemyRadius || s.TargetID != "a" {
		t.Errorf("unexpected state %+v", s)
	}
}
