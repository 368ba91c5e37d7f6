// Package predict implements client-side prediction and reconciliation against
// authoritative server snapshots.
//
// The local player's movement is applied to a predicted target as soon as it is
// issued and kept in a pending log until the server acknowledges its sequence
// number. Every snapshot resets the target to the authoritative position and
// replays whatever is still pending on top of it. The displayed position chases
// the target with exponential smoothing instead of snapping.
package predict

import "sort"

// DefaultSmoothing is the fraction of the remaining distance covered per render step
const DefaultSmoothing = 0.5

// Vec is a 2D position
type Vec struct {
	X, Y float64
}

// Input is one locally applied movement, tagged with its sequence number
type Input struct {
	Seq    uint64
	DX, DY float64
}

// Replay applies every pending input on top of the authoritative position.
func Replay(auth Vec, pending []Input) Vec {
	out := auth
	for _, in := range pending {
		out.X += in.DX
		out.Y += in.DY
	}
	return out
}

// Smooth moves displayed toward target by factor of the gap. factor is clamped to [0, 1].
func Smooth(displayed, target Vec, factor float64) Vec {
	if factor < 0 {
		factor = 0
	} else if factor > 1 {
		factor = 1
	}
	return Vec{
		X: displayed.X + (target.X-displayed.X)*factor,
		Y: displayed.Y + (target.Y-displayed.Y)*factor,
	}
}

// Predictor tracks the local player's pending inputs and displayed position.
// It is not safe for concurrent use.
type Predictor struct {
	Smoothing float64

	seq       uint64
	pending   []Input
	target    Vec
	displayed Vec
	acked     uint64
	synced    bool
}

// NewPredictor creates a Predictor using DefaultSmoothing
func NewPredictor() *Predictor {
	return &Predictor{Smoothing: DefaultSmoothing}
}

// Apply records a local movement, applies it to the predicted target and returns
// the input to send to the server.
func (p *Predictor) Apply(dx, dy float64) Input {
	p.seq++
	in := Input{Seq: p.seq, DX: dx, DY: dy}
	p.pending = append(p.pending, in)
	p.target.X += dx
	p.target.Y += dy
	return in
}

// Reconcile consumes the authoritative position and last acknowledged sequence
// number from a snapshot. Acked inputs are dropped; the rest are replayed.
func (p *Predictor) Reconcile(auth Vec, ack uint64) {
	if ack > p.acked {
		p.acked = ack
	}
	keep := p.pending[:0]
	for _, in := range p.pending {
		if in.Seq > p.acked {
			keep = append(keep, in)
		}
	}
	p.pending = keep
	p.target = Replay(auth, p.pending)
	if !p.synced {
		// first snapshot: nothing sensible to smooth from
		p.displayed = p.target
		p.synced = true
	}
}

// Step advances the displayed position one render step and returns it
func (p *Predictor) Step() Vec {
	p.displayed = Smooth(p.displayed, p.target, p.Smoothing)
	return p.displayed
}

// Pending returns a copy of the unacknowledged inputs, oldest first
func (p *Predictor) Pending() []Input {
	out := make([]Input, len(p.pending))
	copy(out, p.pending)
	return out
}

// Target is the corrected position the display converges to
func (p *Predictor) Target() Vec { return p.target }

// Displayed is the position last returned by Step
func (p *Predictor) Displayed() Vec { return p.displayed }

// Acked is the highest sequence number the server has acknowledged
func (p *Predictor) Acked() uint64 { return p.acked }

// Interpolator smooths remote entities toward their latest authoritative positions.
// Remote entities have no local prediction.
type Interpolator struct {
	Smoothing float64

	displayed map[string]Vec
	target    map[string]Vec
}

// NewInterpolator creates an Interpolator using DefaultSmoothing
func NewInterpolator() *Interpolator {
	return &Interpolator{
		Smoothing: DefaultSmoothing,
		displayed: make(map[string]Vec),
		target:    make(map[string]Vec),
	}
}

// Update records a new authoritative position. Unknown entities appear at it directly.
func (ip *Interpolator) Update(id string, pos Vec) {
	if _, ok := ip.displayed[id]; !ok {
		ip.displayed[id] = pos
	}
	ip.target[id] = pos
}

// Retain forgets every entity not in ids
func (ip *Interpolator) Retain(ids map[string]bool) {
	for id := range ip.target {
		if !ids[id] {
			delete(ip.target, id)
			delete(ip.displayed, id)
		}
	}
}

// Step advances every entity one render step
func (ip *Interpolator) Step() {
	for id, t := range ip.target {
		ip.displayed[id] = Smooth(ip.displayed[id], t, ip.Smoothing)
	}
}

// Position returns the displayed position of an entity
func (ip *Interpolator) Position(id string) (Vec, bool) {
	v, ok := ip.displayed[id]
	return v, ok
}

// IDs returns the tracked entity ids in sorted order
func (ip *Interpolator) IDs() []string {
	ids := make([]string, 0, len(ip.target))
	for id := range ip.target {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
