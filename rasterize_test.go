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
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

// rect returns a closed rectangular ring in pixel coordinates.
func rect(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}
}

// gridSum adds up all weights of a grid.
func gridSum(g *WeightGrid) float64 {
	w, h := g.Dims()
	sum := 0.0
	for j := range h {
		for i := range w {
			sum += g.W.At(j, i)
		}
	}
	return sum
}

func TestRasterizeSinglePixel(t *testing.T) {
	// A shape contained in one cell covers that cell completely.
	shp := orb.Polygon{rect(3.2, 5.1, 3.8, 5.9)}
	g, err := Rasterize(shp, DefaultRasterizeOptions())
	if err != nil {
		t.Fatal(err)
	}
	w, h := g.Dims()
	if w != 1 || h != 1 {
		t.Fatalf("grid is %dx%d, want 1x1", w, h)
	}
	if g.X0 != 3 || g.Y0 != 5 {
		t.Errorf("grid origin is (%d,%d), want (3,5)", g.X0, g.Y0)
	}
	if v := g.At(3, 5); v != 1.0 {
		t.Errorf("weight is %g, want 1.0", v)
	}
}

func TestRasterizeDegenerateLines(t *testing.T) {
	// A shape one cell wide splits its mass uniformly over its cells.
	tests := []struct {
		name string
		ring orb.Ring
		w, h int
	}{
		{"column", rect(3, 2, 3.4, 7), 1, 5},
		{"row", rect(2, 3, 7, 3.4), 5, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Rasterize(orb.Polygon{tc.ring}, DefaultRasterizeOptions())
			if err != nil {
				t.Fatal(err)
			}
			w, h := g.Dims()
			if w != tc.w || h != tc.h {
				t.Fatalf("grid is %dx%d, want %dx%d", w, h, tc.w, tc.h)
			}
			n := tc.w * tc.h
			for j := range h {
				for i := range w {
					if v := g.W.At(j, i); v != 1/float64(n) {
						t.Errorf("cell (%d,%d): weight %g, want %g", i, j, v, 1/float64(n))
					}
				}
			}
			if s := gridSum(g); math.Abs(s-1) > 1e-12 {
				t.Errorf("total mass is %g, want 1", s)
			}
		})
	}
}

// TestRasterizeAlignedSquare checks the exactness guarantee: a square
// aligned with the pixel grid yields weight 1.0 in every covered cell,
// for every scale factor.
func TestRasterizeAlignedSquare(t *testing.T) {
	tests := []struct {
		name string
		ring orb.Ring
		w, h int
	}{
		{"4x4", rect(2, 3, 6, 7), 4, 4},
		{"10x10", rect(0, 0, 10, 10), 10, 10},
	}
	for _, tc := range tests {
		for _, sf := range []int{1, 2, 4, 8} {
			opts := RasterizeOptions{ExtFill: true, ScaleFactor: sf}
			t.Run(fmt.Sprintf("%s/sf=%d", tc.name, sf), func(t *testing.T) {
				g, err := Rasterize(orb.Polygon{tc.ring}, opts)
				if err != nil {
					t.Fatal(err)
				}
				w, h := g.Dims()
				if w != tc.w || h != tc.h {
					t.Fatalf("sf=%d: grid is %dx%d, want %dx%d", sf, w, h, tc.w, tc.h)
				}
				for j := range h {
					for i := range w {
						if v := g.W.At(j, i); v != 1.0 {
							t.Errorf("sf=%d: cell (%d,%d): weight %g, want exactly 1.0", sf, i, j, v)
						}
					}
				}
			})
		}
	}
}

func TestRasterizePartialRow(t *testing.T) {
	// A rectangle covering the top half of its last pixel row gets
	// weight 0.5 there and 1.0 everywhere else.
	shp := orb.Polygon{rect(0, 0, 8, 4.5)}
	g, err := Rasterize(shp, DefaultRasterizeOptions())
	if err != nil {
		t.Fatal(err)
	}
	w, h := g.Dims()
	if w != 8 || h != 5 {
		t.Fatalf("grid is %dx%d, want 8x5", w, h)
	}
	for j := range h {
		want := 1.0
		if j == 4 {
			want = 0.5
		}
		for i := range w {
			if v := g.W.At(j, i); v != want {
				t.Errorf("cell (%d,%d): weight %g, want %g", i, j, v, want)
			}
		}
	}
}

func TestRasterizeWeightRange(t *testing.T) {
	// Weights of a filled shape stay in [0, 1], with at least one
	// positive cell.
	tri := orb.Polygon{orb.Ring{{0, 0}, {9, 2}, {4, 8}, {0, 0}}}
	g, err := Rasterize(tri, DefaultRasterizeOptions())
	if err != nil {
		t.Fatal(err)
	}
	w, h := g.Dims()
	positive := 0
	for j := range h {
		for i := range w {
			v := g.W.At(j, i)
			if v < 0 || v > 1 {
				t.Errorf("cell (%d,%d): weight %g outside [0,1]", i, j, v)
			}
			if v > 0 {
				positive++
			}
		}
	}
	if positive == 0 {
		t.Error("no cell has positive weight")
	}
}

func TestRasterizeHoles(t *testing.T) {
	outer := rect(0, 0, 8, 8)
	hole := rect(2, 2, 6, 6)
	shp := orb.Polygon{outer, hole}

	t.Run("punched", func(t *testing.T) {
		g, err := Rasterize(shp, DefaultRasterizeOptions())
		if err != nil {
			t.Fatal(err)
		}
		if v := g.At(3, 3); v != 0 {
			t.Errorf("hole cell has weight %g, want 0", v)
		}
		if v := g.At(0, 0); v != 1.0 {
			t.Errorf("rim cell has weight %g, want 1.0", v)
		}
	})

	t.Run("int fill", func(t *testing.T) {
		opts := RasterizeOptions{ExtFill: true, IntFill: true}
		g, err := Rasterize(shp, opts)
		if err != nil {
			t.Fatal(err)
		}
		if v := g.At(3, 3); v != 1.0 {
			t.Errorf("hole cell has weight %g, want 1.0", v)
		}
	})

	t.Run("holes only", func(t *testing.T) {
		opts := RasterizeOptions{IntFill: true}
		g, err := Rasterize(shp, opts)
		if err != nil {
			t.Fatal(err)
		}
		if v := g.At(3, 3); v != 1.0 {
			t.Errorf("hole cell has weight %g, want 1.0", v)
		}
		if v := g.At(0, 0); v != 0 {
			t.Errorf("rim cell has weight %g, want 0", v)
		}
	})
}

// TestRasterizeOutlineAdds checks that outlines only add coverage:
// combining an outline with a fill never reduces any weight below the
// fill-only result.
func TestRasterizeOutlineAdds(t *testing.T) {
	shp := orb.Polygon{rect(0, 0, 8, 8), rect(2, 2, 6, 6)}

	fill, err := Rasterize(shp, DefaultRasterizeOptions())
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultRasterizeOptions()
	opts.ExtOutline = true
	opts.IntOutline = true
	both, err := Rasterize(shp, opts)
	if err != nil {
		t.Fatal(err)
	}

	w, h := fill.Dims()
	for j := range h {
		for i := range w {
			if both.W.At(j, i) < fill.W.At(j, i) {
				t.Errorf("cell (%d,%d): outline reduced weight from %g to %g",
					i, j, fill.W.At(j, i), both.W.At(j, i))
			}
		}
	}

	// An interior outline must put weight back on the hole boundary.
	if v := both.At(2, 2); v <= 0 {
		t.Errorf("hole boundary cell has weight %g, want > 0", v)
	}
}

func TestRasterizeOutlineOnly(t *testing.T) {
	shp := orb.Polygon{rect(0, 0, 8, 8)}
	opts := RasterizeOptions{ExtOutline: true}
	g, err := Rasterize(shp, opts)
	if err != nil {
		t.Fatal(err)
	}
	if v := g.At(0, 0); v <= 0 {
		t.Errorf("border cell has weight %g, want > 0", v)
	}
	if v := g.At(4, 4); v != 0 {
		t.Errorf("interior cell has weight %g, want 0", v)
	}
}

func TestRasterizeMultiPolygon(t *testing.T) {
	shp := orb.MultiPolygon{
		{rect(0, 0, 4, 4)},
		{rect(8, 8, 12, 12)},
	}
	g, err := Rasterize(shp, DefaultRasterizeOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v := g.At(1, 1); v != 1.0 {
		t.Errorf("first part: weight %g, want 1.0", v)
	}
	if v := g.At(9, 9); v != 1.0 {
		t.Errorf("second part: weight %g, want 1.0", v)
	}
	// The gap between the parts stays empty.
	if v := g.At(6, 6); v != 0 {
		t.Errorf("gap: weight %g, want 0", v)
	}
}

func TestRasterizeErrors(t *testing.T) {
	square := orb.Polygon{rect(0, 0, 4, 4)}

	_, err := Rasterize(square, RasterizeOptions{ExtFill: true, ScaleFactor: -1})
	if !errors.Is(err, errScaleFactor) {
		t.Errorf("negative scale factor: got %v", err)
	}

	_, err = Rasterize(orb.Point{1, 2}, DefaultRasterizeOptions())
	if err == nil {
		t.Error("point geometry: expected an error")
	}
}

// TestRasterizeEstimatorReuse runs many shapes through one estimator
// to exercise the buffer reuse paths.
func TestRasterizeEstimatorReuse(t *testing.T) {
	var est estimator
	for n := 1; n <= 20; n++ {
		shp := orb.Polygon{rect(0, 0, float64(n), float64(n))}
		g, err := est.rasterize(shp, DefaultRasterizeOptions())
		if err != nil {
			t.Fatal(err)
		}
		w, h := g.Dims()
		if w != n || h != n {
			t.Fatalf("size %d: grid is %dx%d", n, w, h)
		}
		if s := gridSum(g); math.Abs(s-float64(n*n)) > 1e-9 {
			t.Errorf("size %d: total mass %g, want %d", n, s, n*n)
		}
	}
}
