package main

import (
	"math"

	"github.com/google/uuid"
)

// NewSessionID returns a random id for a websocket session
func NewSessionID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// Finite reports whether v is neither NaN nor an infinity
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
