package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jbantin/multiplayer-proto/protocol"
)

const (
	TileSize       = 64.0
	MapCols        = 32
	MapRows        = 32
	collisionLayer = 3 // ground, decoration, foreground, collisions
)

// TileMap is the static level: render layers plus the collision layer
type TileMap struct {
	Cols     int
	Rows     int
	TileSize float64
	Layers   [][]int
}

// tiledFile is the subset of the Tiled JSON export we read
type tiledFile struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	TileWidth int `json:"tilewidth"`
	Layers    []struct {
		Name string `json:"name"`
		Data []int  `json:"data"`
	} `json:"layers"`
}

// LoadTileMap reads a Tiled JSON map. The world is fixed at 32x32 tiles of 64px;
// missing dimensions default to that and any other size is rejected.
func LoadTileMap(path string) (*TileMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	var f tiledFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", path, err)
	}

	m := &TileMap{Cols: f.Width, Rows: f.Height, TileSize: float64(f.TileWidth)}
	if m.Cols == 0 {
		m.Cols = MapCols
	}
	if m.Rows == 0 {
		m.Rows = MapRows
	}
	if m.TileSize == 0 {
		m.TileSize = TileSize
	}
	if m.Cols != MapCols || m.Rows != MapRows || m.TileSize != TileSize {
		return nil, fmt.Errorf("map %s: %dx%d tiles of %gpx, want %dx%d of %gpx",
			path, m.Cols, m.Rows, m.TileSize, MapCols, MapRows, TileSize)
	}
	for i, l := range f.Layers {
		if len(l.Data) != m.Cols*m.Rows {
			return nil, fmt.Errorf("map %s: layer %d (%s) has %d tiles, want %d", path, i, l.Name, len(l.Data), m.Cols*m.Rows)
		}
		m.Layers = append(m.Layers, l.Data)
	}
	if len(m.Layers) == 0 {
		return nil, fmt.Errorf("map %s: no layers", path)
	}
	return m, nil
}

// DefaultTileMap builds the arena used when no map file is configured:
// a solid border and a handful of pillars.
func DefaultTileMap() *TileMap {
	n := MapCols * MapRows
	ground := make([]int, n)
	walls := make([]int, n)
	for i := range ground {
		ground[i] = 1
	}
	for r := 0; r < MapRows; r++ {
		for c := 0; c < MapCols; c++ {
			if r == 0 || c == 0 || r == MapRows-1 || c == MapCols-1 {
				walls[r*MapCols+c] = 1
			}
		}
	}
	pillars := [][2]int{
		{12, 4}, {12, 5}, {19, 4}, {19, 5},
		{4, 12}, {5, 12}, {26, 19}, {27, 19},
		{15, 15}, {16, 15}, {15, 16}, {16, 16},
		{10, 24}, {21, 24}, {24, 10},
	}
	for _, p := range pillars {
		walls[p[1]*MapCols+p[0]] = 2
	}
	return &TileMap{
		Cols:     MapCols,
		Rows:     MapRows,
		TileSize: TileSize,
		Layers:   [][]int{ground, make([]int, n), make([]int, n), walls},
	}
}

// Collision returns the layer whose non-zero tiles block movement. Maps with
// fewer than four layers use their last one.
func (m *TileMap) Collision() []int {
	if len(m.Layers) > collisionLayer {
		return m.Layers[collisionLayer]
	}
	return m.Layers[len(m.Layers)-1]
}

// Width is the world width in pixels
func (m *TileMap) Width() float64 { return float64(m.Cols) * m.TileSize }

// Height is the world height in pixels
func (m *TileMap) Height() float64 { return float64(m.Rows) * m.TileSize }

// Snapshot is the map message sent to every new connection
func (m *TileMap) Snapshot() protocol.MapSnapshot {
	return protocol.MapSnapshot{
		Layers:   m.Layers,
		Cols:     m.Cols,
		Rows:     m.Rows,
		TileSize: m.TileSize,
	}
}
