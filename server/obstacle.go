package main

// Obstacle is the top-left corner of one blocking square
type Obstacle struct {
	X, Y float64
}

// ObstacleIndex answers rectangle-vs-obstacle queries. Obstacles are bucketed
// into a fixed grid so a query only visits the cells its rectangle touches.
// The index is immutable after construction and safe for concurrent reads.
type ObstacleIndex struct {
	size      float64 // obstacle width and height
	cellSize  float64
	cols      int
	rows      int
	cells     [][]int32 // indices into obstacles
	obstacles []Obstacle
}

// ObstaclesFromTiles emits an obstacle for every non-zero tile
func ObstaclesFromTiles(tiles []int, cols int, tileSize float64) []Obstacle {
	var out []Obstacle
	for i, t := range tiles {
		if t == 0 {
			continue
		}
		out = append(out, Obstacle{
			X: float64(i%cols) * tileSize,
			Y: float64(i/cols) * tileSize,
		})
	}
	return out
}

// NewObstacleIndex buckets obstacles of the given size over a width x height world
func NewObstacleIndex(obstacles []Obstacle, size, width, height float64) *ObstacleIndex {
	cellSize := size
	if cellSize <= 0 {
		cellSize = TileSize
	}
	idx := &ObstacleIndex{
		size:      size,
		cellSize:  cellSize,
		cols:      int(width/cellSize) + 1,
		rows:      int(height/cellSize) + 1,
		obstacles: append([]Obstacle(nil), obstacles...),
	}
	idx.cells = make([][]int32, idx.cols*idx.rows)
	for i, o := range idx.obstacles {
		minCX, minCY, maxCX, maxCY := idx.span(o.X, o.Y, size, size)
		for cy := minCY; cy <= maxCY; cy++ {
			for cx := minCX; cx <= maxCX; cx++ {
				c := cy*idx.cols + cx
				idx.cells[c] = append(idx.cells[c], int32(i))
			}
		}
	}
	return idx
}

// NewTileObstacleIndex builds the index for a tile map's collision layer
func NewTileObstacleIndex(m *TileMap) *ObstacleIndex {
	return NewObstacleIndex(ObstaclesFromTiles(m.Collision(), m.Cols, m.TileSize), m.TileSize, m.Width(), m.Height())
}

// span returns the clamped cell range covered by a rectangle
func (idx *ObstacleIndex) span(x, y, w, h float64) (minCX, minCY, maxCX, maxCY int) {
	minCX = clampCell(int(x/idx.cellSize), idx.cols)
	maxCX = clampCell(int((x+w)/idx.cellSize), idx.cols)
	minCY = clampCell(int(y/idx.cellSize), idx.rows)
	maxCY = clampCell(int((y+h)/idx.cellSize), idx.rows)
	return
}

func clampCell(c, n int) int {
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

// Overlaps reports whether the rectangle intersects any obstacle
func (idx *ObstacleIndex) Overlaps(x, y, w, h float64) bool {
	minCX, minCY, maxCX, maxCY := idx.span(x, y, w, h)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, i := range idx.cells[cy*idx.cols+cx] {
				o := idx.obstacles[i]
				if x < o.X+idx.size && x+w > o.X && y < o.Y+idx.size && y+h > o.Y {
					return true
				}
			}
		}
	}
	return false
}

// Len returns the number of obstacles
func (idx *ObstacleIndex) Len() int { return len(idx.obstacles) }

// Obstacles returns a copy of every obstacle
func (idx *ObstacleIndex) Obstacles() []Obstacle {
	return append([]Obstacle(nil), idx.obstacles...)
}
