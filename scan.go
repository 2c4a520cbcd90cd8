// seehuhn.de/go/rasterquery - query raster datasets with vector shapes
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rasterquery

import (
	"math"
	"slices"

	"seehuhn.de/go/geom/vec"
)

// edge represents a non-horizontal line segment in bitmap coordinates.
type edge struct {
	x0, y0 float64 // start point
	x1, y1 float64 // end point
	dxdy   float64 // (x1-x0)/(y1-y0), precomputed for x-intercept calculation
}

// bitmap is a dense binary pixel grid. Pixel (x, y) covers the unit
// square [x,x+1) x [y,y+1); a pixel is set when its value is non-zero.
type bitmap struct {
	width  int
	height int
	pix    []byte
}

// reset resizes the bitmap and clears all pixels, reusing the backing
// array where possible.
func (b *bitmap) reset(width, height int) {
	size := width * height
	b.width = width
	b.height = height
	b.pix = slices.Grow(b.pix[:0], size)[:size]
	clear(b.pix)
}

func (b *bitmap) set(x, y int, v byte) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.pix[y*b.width+x] = v
}

// scanner paints polygon rings into a bitmap. One instance is reused
// for many rings; internal buffers grow as needed but never shrink.
//
// A scanner is not safe for concurrent use.
type scanner struct {
	bm bitmap

	// Internal buffers (reused across calls)
	edges []edge    // edge list for the current ring
	xs    []float64 // x-crossings for the current scanline
}

// collectEdges builds the edge list for one ring, skipping horizontal
// edges (they never cross a scanline center). The ring need not repeat
// its first vertex; a closing edge is added implicitly.
func (s *scanner) collectEdges(ring []vec.Vec2) {
	s.edges = s.edges[:0]
	n := len(ring)
	for i := range n {
		p0 := ring[i]
		p1 := ring[(i+1)%n]
		dy := p1.Y - p0.Y
		if dy == 0 {
			continue
		}
		s.edges = append(s.edges, edge{
			x0: p0.X, y0: p0.Y,
			x1: p1.X, y1: p1.Y,
			dxdy: (p1.X - p0.X) / dy,
		})
	}
}

// fillRing paints v into every bitmap pixel whose center lies inside
// the ring. Membership is decided by even-odd parity of the edge
// crossings on the pixel-center scanline, with the half-open rule
// min(y0,y1) <= yc < max(y0,y1) so that vertices are counted once.
func (s *scanner) fillRing(ring []vec.Vec2, v byte) {
	s.collectEdges(ring)
	if len(s.edges) == 0 {
		return
	}

	// Restrict the scanline loop to the ring's vertical extent.
	yLo, yHi := s.edges[0].y0, s.edges[0].y0
	for _, e := range s.edges {
		yLo = min(yLo, e.y0, e.y1)
		yHi = max(yHi, e.y0, e.y1)
	}
	rowMin := max(int(math.Floor(yLo)), 0)
	rowMax := min(int(math.Ceil(yHi)), s.bm.height)

	for row := rowMin; row < rowMax; row++ {
		yc := float64(row) + 0.5

		// Collect x-crossings for this scanline.
		s.xs = s.xs[:0]
		for _, e := range s.edges {
			if (e.y0 <= yc && yc < e.y1) || (e.y1 <= yc && yc < e.y0) {
				s.xs = append(s.xs, e.x0+e.dxdy*(yc-e.y0))
			}
		}
		if len(s.xs) < 2 {
			continue
		}
		slices.Sort(s.xs)

		// Fill between crossing pairs: pixel x is inside when its
		// center x+0.5 lies within [xa, xb].
		for i := 0; i+1 < len(s.xs); i += 2 {
			xa, xb := s.xs[i], s.xs[i+1]
			lo := max(int(math.Ceil(xa-0.5)), 0)
			hi := min(int(math.Floor(xb-0.5)), s.bm.width-1)
			if lo > hi {
				continue
			}
			rowPix := s.bm.pix[row*s.bm.width:]
			for x := lo; x <= hi; x++ {
				rowPix[x] = v
			}
		}
	}
}

// outlineRing paints a one-pixel border along the ring's segments
// using Bresenham line traversal between the pixels containing each
// pair of consecutive vertices.
func (s *scanner) outlineRing(ring []vec.Vec2) {
	n := len(ring)
	if n == 0 {
		return
	}
	for i := range n {
		p0 := ring[i]
		p1 := ring[(i+1)%n]
		s.line(
			int(math.Floor(p0.X)), int(math.Floor(p0.Y)),
			int(math.Floor(p1.X)), int(math.Floor(p1.Y)),
		)
	}
}

// line paints the Bresenham line from (x0,y0) to (x1,y1).
func (s *scanner) line(x0, y0, x1, y1 int) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy < 0 {
		dy = -dy
	}
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}

	err := dx - dy
	for {
		s.bm.set(x0, y0, 1)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}
