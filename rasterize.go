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

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
	"seehuhn.de/go/geom/vec"
)

// DefaultScaleFactor is the supersampling factor used when
// RasterizeOptions.ScaleFactor is zero. Coverage error decreases as
// O(1/factor); 4 is the trade-off point between accuracy and the
// quadratic growth of the supersampled bitmap.
const DefaultScaleFactor = 4

// RasterizeOptions selects which parts of a shape are painted and how
// precisely fractional coverage is estimated.
type RasterizeOptions struct {
	// ExtOutline paints a one-pixel border along each exterior ring.
	ExtOutline bool

	// ExtFill paints the area enclosed by each exterior ring.
	ExtFill bool

	// IntOutline paints a one-pixel border along each interior ring.
	IntOutline bool

	// IntFill keeps interior rings (holes) filled instead of punching
	// them out of the exterior fill.
	IntFill bool

	// ScaleFactor is the supersampling factor, >= 1.
	// Zero selects DefaultScaleFactor.
	ScaleFactor int
}

// DefaultRasterizeOptions returns the options used by Query when none
// are given: exterior fill only, with the default scale factor.
func DefaultRasterizeOptions() RasterizeOptions {
	return RasterizeOptions{ExtFill: true, ScaleFactor: DefaultScaleFactor}
}

// WeightGrid is the output of the scan-conversion estimator: a dense
// grid of fractional pixel coverage values in [0, 1] over the shape's
// pixel bounding box. Cell (i, j) of the grid corresponds to raster
// pixel (X0+i, Y0+j).
type WeightGrid struct {
	X0, Y0 int // raster pixel coordinates of the grid's first cell

	// W holds the weights, indexed as W.At(row, col) = W.At(j, i).
	W *mat.Dense
}

// Dims returns the grid size as (width, height) in cells.
func (g *WeightGrid) Dims() (width, height int) {
	r, c := g.W.Dims()
	return c, r
}

// At returns the weight of the cell for raster pixel (x, y).
func (g *WeightGrid) At(x, y int) float64 {
	return g.W.At(y-g.Y0, x-g.X0)
}

// Rasterize estimates the fractional pixel coverage of a polygon or
// multi-polygon expressed in pixel coordinates. Partial overlaps are
// estimated by scaling the shape by the scale factor, painting it into
// a binary bitmap, and block-averaging back to the original
// resolution.
//
// Shapes whose bounding box collapses to a single pixel, or to a
// single-pixel-wide row or column, take an exact fast path instead.
func Rasterize(g orb.Geometry, opts RasterizeOptions) (*WeightGrid, error) {
	var est estimator
	return est.rasterize(g, opts)
}

// estimator runs the supersample-and-downscale scan conversion.
// One instance is reused across shapes; its buffers grow as needed but
// never shrink.
//
// An estimator is not safe for concurrent use.
type estimator struct {
	scan  scanner
	verts []vec.Vec2 // scratch for scaled ring vertices
}

func (e *estimator) rasterize(g orb.Geometry, opts RasterizeOptions) (*WeightGrid, error) {
	parts, err := polygonParts(g)
	if err != nil {
		return nil, err
	}

	sf := opts.ScaleFactor
	if sf == 0 {
		sf = DefaultScaleFactor
	}
	if sf < 1 {
		return nil, errScaleFactor
	}

	// Pixel-space bounding box, in whole cells. A bound lying exactly
	// on a cell boundary does not extend into the next cell.
	b := g.Bound()
	x0 := int(math.Floor(b.Min.X()))
	y0 := int(math.Floor(b.Min.Y()))
	x1 := max(x0, int(math.Ceil(b.Max.X()))-1)
	y1 := max(y0, int(math.Ceil(b.Max.Y()))-1)
	width := x1 - x0 + 1
	height := y1 - y0 + 1

	// Degenerate fast paths are exact; no estimation needed.
	switch {
	case width == 1 && height == 1:
		return &WeightGrid{X0: x0, Y0: y0, W: mat.NewDense(1, 1, []float64{1})}, nil
	case width == 1:
		return &WeightGrid{X0: x0, Y0: y0, W: uniformGrid(height, 1)}, nil
	case height == 1:
		return &WeightGrid{X0: x0, Y0: y0, W: uniformGrid(1, width)}, nil
	}

	// Tiny shapes gain nothing from supersampling.
	if width+height <= 2*sf {
		sf = 1
	}

	e.scan.bm.reset(width*sf, height*sf)
	for _, pg := range parts {
		e.paintPolygon(pg, x0, y0, sf, opts)
	}

	return &WeightGrid{X0: x0, Y0: y0, W: e.downscale(width, height, sf)}, nil
}

// paintPolygon paints one polygon part into the supersampled bitmap.
// Paint order matters: exterior fill first, then hole punching, then
// outlines, so that outlines add boundary weight without being erased.
func (e *estimator) paintPolygon(pg orb.Polygon, x0, y0, sf int, opts RasterizeOptions) {
	if len(pg) == 0 {
		return
	}

	if opts.ExtFill {
		e.scan.fillRing(e.scaleRing(pg[0], x0, y0, sf), 1)
	}
	if !opts.IntFill {
		for _, ring := range pg[1:] {
			e.scan.fillRing(e.scaleRing(ring, x0, y0, sf), 0)
		}
	} else if !opts.ExtFill {
		for _, ring := range pg[1:] {
			e.scan.fillRing(e.scaleRing(ring, x0, y0, sf), 1)
		}
	}
	if opts.ExtOutline {
		e.scan.outlineRing(e.scaleRing(pg[0], x0, y0, sf))
	}
	if opts.IntOutline {
		for _, ring := range pg[1:] {
			e.scan.outlineRing(e.scaleRing(ring, x0, y0, sf))
		}
	}
}

// scaleRing maps a ring into bitmap coordinates: scale by sf about the
// origin, then translate so the grid's first cell starts at (0, 0).
// The returned slice aliases the estimator's scratch buffer and is
// only valid until the next call.
func (e *estimator) scaleRing(ring orb.Ring, x0, y0, sf int) []vec.Vec2 {
	e.verts = slices.Grow(e.verts[:0], len(ring))[:len(ring)]
	ox := float64(x0 * sf)
	oy := float64(y0 * sf)
	for i, pt := range ring {
		e.verts[i] = vec.Vec2{
			X: pt.X()*float64(sf) - ox,
			Y: pt.Y()*float64(sf) - oy,
		}
	}
	return e.verts
}

// downscale block-averages the supersampled bitmap into the final
// weight grid: each sf x sf block of set/unset bits becomes one
// fractional coverage value.
func (e *estimator) downscale(width, height, sf int) *mat.Dense {
	w := mat.NewDense(height, width, nil)
	bm := &e.scan.bm
	norm := 1 / float64(sf*sf)
	for j := range height {
		for i := range width {
			sum := 0
			for jj := j * sf; jj < (j+1)*sf; jj++ {
				row := bm.pix[jj*bm.width:]
				for ii := i * sf; ii < (i+1)*sf; ii++ {
					sum += int(row[ii])
				}
			}
			w.Set(j, i, float64(sum)*norm)
		}
	}
	return w
}

// uniformGrid returns an r x c grid with every cell set to 1/(r*c).
// This is the degenerate-line path: the shape collapses to a
// single-pixel-wide row or column and its mass is split uniformly.
func uniformGrid(r, c int) *mat.Dense {
	w := mat.NewDense(r, c, nil)
	v := 1 / float64(r*c)
	for j := range r {
		for i := range c {
			w.Set(j, i, v)
		}
	}
	return w
}

// polygonParts flattens a polygon or multi-polygon into its parts.
func polygonParts(g orb.Geometry) ([]orb.Polygon, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}, nil
	case orb.MultiPolygon:
		return []orb.Polygon(g), nil
	default:
		return nil, errGeometryType(g)
	}
}
