package main

import (
	"sync/atomic"
)

// Metrics holds live counters for monitoring and debugging
type Metrics struct {
	TickCount         int64
	TotalTickNs       int64
	TickOverruns      int64 // ticks that took longer than the interval
	InputsAccepted    int64
	InputsIgnored     int64 // commands from sessions without a player
	MalformedMessages int64
	FramesDropped     int64 // oldest frames evicted from full session queues
	ProjectilesFired  int64
	Hits              int64
	Kills             int64
}

func (m *Metrics) IncOverrun()   { atomic.AddInt64(&m.TickOverruns, 1) }
func (m *Metrics) IncAccepted()  { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncIgnored()   { atomic.AddInt64(&m.InputsIgnored, 1) }
func (m *Metrics) IncMalformed() { atomic.AddInt64(&m.MalformedMessages, 1) }
func (m *Metrics) IncDropped()   { atomic.AddInt64(&m.FramesDropped, 1) }
func (m *Metrics) IncFired()     { atomic.AddInt64(&m.ProjectilesFired, 1) }
func (m *Metrics) IncHit()       { atomic.AddInt64(&m.Hits, 1) }
func (m *Metrics) IncKill()      { atomic.AddInt64(&m.Kills, 1) }

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot returns a read-only copy for HTTP output
func (m *Metrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"tick_count":         ticks,
		"avg_tick_ms":        avgMs,
		"tick_overruns":      atomic.LoadInt64(&m.TickOverruns),
		"inputs_accepted":    atomic.LoadInt64(&m.InputsAccepted),
		"inputs_ignored":     atomic.LoadInt64(&m.InputsIgnored),
		"malformed_messages": atomic.LoadInt64(&m.MalformedMessages),
		"frames_dropped":     atomic.LoadInt64(&m.FramesDropped),
		"projectiles_fired":  atomic.LoadInt64(&m.ProjectilesFired),
		"hits":               atomic.LoadInt64(&m.Hits),
		"kills":              atomic.LoadInt64(&m.Kills),
	}
}
