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

// Package rasterquery answers the question: for each shape in a set of
// vector polygons, which pixels of a possibly tiled raster does it
// cover, and with what fractional weight? It is used to sample raster
// surfaces against administrative or survey polygons and aggregate
// statistics per polygon.
//
// Fractional coverage is estimated by deterministic supersampling:
// the shape is scaled up, scan-converted into a binary bitmap, and
// block-averaged back down. Tiled rasters are loaded lazily, one tile
// at a time, with reference-counted eviction when a footprint index
// is available.
package rasterquery

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"

	"github.com/paulmach/orb"
)

// DefaultTilePattern extracts a tile's grid origin from its filename,
// which must end in {x}_{y}.tif.
const DefaultTilePattern = `([0-9]+)_([0-9]+)\.tif$`

// Shape pairs an identifier with a polygonal geometry
// (orb.Polygon or orb.MultiPolygon).
type Shape struct {
	ID   string
	Geom orb.Geometry
}

// Layer is an ordered set of shapes in a common spatial reference.
type Layer struct {
	// SRS is the spatial reference of the shapes as well-known text.
	// An empty string means "same as the dataset".
	SRS string

	Shapes []Shape
}

// Projector reprojects geometries between spatial references. It is
// the boundary to the vector geometry engine; reprojection errors
// propagate unmodified.
type Projector interface {
	Project(g orb.Geometry, srcSRS, dstSRS string) (orb.Geometry, error)
}

// Options configures dataset construction. The zero value is valid.
type Options struct {
	// Projector reprojects query layers whose spatial reference
	// differs from the dataset's. Without one, such queries fail.
	Projector Projector

	// MaxTiles bounds the number of resident tiles; the least
	// recently used tile is evicted when the bound is exceeded.
	// Zero means unbounded.
	MaxTiles int

	// TilePattern overrides DefaultTilePattern. It must contain
	// exactly two capture groups, for the x and y grid origin.
	TilePattern string
}

// QueryOptions configures a single query.
type QueryOptions struct {
	// Rasterize controls coverage estimation.
	// Nil uses DefaultRasterizeOptions.
	Rasterize *RasterizeOptions

	// MissingFirst emits out-of-bounds shapes before surviving
	// shapes instead of after them.
	MissingFirst bool
}

// Dataset is a queryable raster, tiled or untiled, described by a
// catalog. The tile cache is mutated only by the running query; a
// Dataset must not be used from multiple goroutines concurrently.
type Dataset struct {
	frame      *Frame
	store      *tileStore
	index      []indexEntry
	projector  Projector
	colorTable [][4]uint8
	est        estimator
}

// New creates a Dataset from a catalog descriptor and a tile reader.
// Malformed tile-filename patterns and unreadable index entries are
// reported here, before any query executes. Untiled datasets read
// their single raster block immediately.
func New(cat *Catalog, reader TileReader, opts *Options) (*Dataset, error) {
	var o Options
	if opts != nil {
		o = *opts
	}

	frame, err := NewFrame(cat.Size[0], cat.Size[1], cat.GeoTransform, cat.CoordinateSystem)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		frame:      frame,
		store:      newTileStore(cat.Path, cat.GridSize, o.MaxTiles, reader),
		projector:  o.Projector,
		colorTable: cat.ColorTable,
	}

	if len(cat.Index) > 0 {
		pattern, err := newTilePattern(o.TilePattern)
		if err != nil {
			return nil, err
		}
		d.index, err = parseIndex(cat.Index, pattern)
		if err != nil {
			return nil, err
		}
	}

	// An untiled raster is one implicit tile spanning the whole
	// extent; it lives for the dataset's lifetime.
	if cat.GridSize == 0 {
		if err := d.store.ensure(tileKey{}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Frame returns the dataset's coordinate frame.
func (d *Dataset) Frame() *Frame { return d.frame }

// ColorTable returns the catalog's color table, or nil.
func (d *Dataset) ColorTable() [][4]uint8 { return d.colorTable }

// Query looks up raster values and fractional coverage weights for
// every shape in the layer. Results are produced lazily, one shape
// per pull; stopping early skips the remaining work. Shapes outside
// the raster bounds yield an empty result.
//
// A tile load failure is reported as the error of the affected
// shape's pair; iteration then continues with the next shape.
func (d *Dataset) Query(layer *Layer, opts *QueryOptions) iter.Seq2[Result, error] {
	var qo QueryOptions
	if opts != nil {
		qo = *opts
	}
	ro := DefaultRasterizeOptions()
	if qo.Rasterize != nil {
		ro = *qo.Rasterize
	}

	return func(yield func(Result, error) bool) {
		shapes := layer.Shapes

		// Reproject the whole shape set once, never per shape.
		if layer.SRS != "" && layer.SRS != d.frame.SRS() {
			if d.projector == nil {
				yield(Result{}, fmt.Errorf("rasterquery: layer is in a different spatial reference and no projector is configured"))
				return
			}
			reprojected := make([]Shape, len(shapes))
			for i, s := range shapes {
				g, err := d.projector.Project(s.Geom, layer.SRS, d.frame.SRS())
				if err != nil {
					yield(Result{}, err)
					return
				}
				reprojected[i] = Shape{ID: s.ID, Geom: g}
			}
			shapes = reprojected
		}

		// Filter shapes against the raster footprint.
		bound := d.frame.Bound()
		var alive []Shape
		var missing []string
		for _, s := range shapes {
			if s.Geom != nil && s.Geom.Bound().Intersects(bound) {
				alive = append(alive, s)
			} else {
				missing = append(missing, s.ID)
			}
		}

		// With a footprint index, precompute which shapes touch which
		// tiles and process shapes in ascending tile-origin order so
		// that shapes sharing a tile are handled contiguously.
		var tileRefs map[tileKey]int
		var shapeTiles [][]tileKey
		if d.index != nil {
			order := make([]int, len(alive))
			for i := range order {
				order[i] = i
			}
			slices.SortStableFunc(order, func(a, b int) int {
				ka := d.sortKey(alive[a])
				kb := d.sortKey(alive[b])
				if ka.y != kb.y {
					return ka.y - kb.y
				}
				return ka.x - kb.x
			})
			sorted := make([]Shape, len(alive))
			for i, j := range order {
				sorted[i] = alive[j]
			}
			alive = sorted

			tileRefs = make(map[tileKey]int)
			shapeTiles = make([][]tileKey, len(alive))
			for _, e := range d.index {
				for i, s := range alive {
					if s.Geom.Bound().Intersects(e.bound) {
						tileRefs[e.key]++
						shapeTiles[i] = append(shapeTiles[i], e.key)
					}
				}
			}
		}

		emitMissing := func() bool {
			for _, id := range missing {
				if !yield(Result{ID: id}, nil) {
					return false
				}
			}
			return true
		}

		if qo.MissingFirst && !emitMissing() {
			return
		}
		for i, s := range alive {
			res, err := d.queryShape(s, ro, shapeTiles, tileRefs, i)
			if !yield(res, err) {
				return
			}
			// Drop tiles no pending shape references.
			if tileRefs != nil {
				for _, k := range shapeTiles[i] {
					if tileRefs[k] == 0 {
						d.store.evict(k)
						delete(tileRefs, k)
					}
				}
			}
		}
		if !qo.MissingFirst {
			emitMissing()
		}
	}
}

// queryShape processes one surviving shape: eager tile loading and
// reference-count bookkeeping, rasterization, cell extraction, and
// value lookup.
func (d *Dataset) queryShape(s Shape, ro RasterizeOptions, shapeTiles [][]tileKey, tileRefs map[tileKey]int, i int) (Result, error) {
	// Eagerly load every tile this shape touches. The reference
	// counts are decremented even if a load fails, so that eviction
	// bookkeeping survives failed shapes.
	var loadErr error
	if tileRefs != nil {
		for _, k := range shapeTiles[i] {
			if err := d.store.ensure(k); err != nil && loadErr == nil {
				loadErr = err
			}
			tileRefs[k]--
		}
	}
	if loadErr != nil {
		return Result{ID: s.ID}, loadErr
	}

	pxGeom, err := d.frame.ShapeToPixel(s.Geom)
	if err != nil {
		return Result{ID: s.ID}, err
	}
	grid, err := d.est.rasterize(pxGeom, ro)
	if err != nil {
		return Result{ID: s.ID}, err
	}

	pixels, weights := d.extractCells(grid)
	values, err := d.store.getBatch(pixels)
	if err != nil {
		return Result{ID: s.ID}, err
	}
	return Result{ID: s.ID, Values: values, Weights: weights}, nil
}

// extractCells turns a weight grid into pixel/weight pairs, dropping
// zero-weight cells and cells outside the raster. A shape whose grid
// carries no positive weight (a degenerate zero-area shape) falls
// back to the grid's first cell so it still yields one sample.
func (d *Dataset) extractCells(grid *WeightGrid) ([]Pixel, []float64) {
	width, height := grid.Dims()
	var pixels []Pixel
	var weights []float64
	for j := range height {
		y := grid.Y0 + j
		if y < 0 || y >= d.frame.Height() {
			continue
		}
		for i := range width {
			x := grid.X0 + i
			if x < 0 || x >= d.frame.Width() {
				continue
			}
			if w := grid.W.At(j, i); w > 0 {
				pixels = append(pixels, Pixel{X: x, Y: y})
				weights = append(weights, w)
			}
		}
	}
	if len(pixels) == 0 {
		x := min(max(grid.X0, 0), d.frame.Width()-1)
		y := min(max(grid.Y0, 0), d.frame.Height()-1)
		pixels = []Pixel{{X: x, Y: y}}
		weights = []float64{grid.W.At(0, 0)}
	}
	return pixels, weights
}

// sortKey returns the grid origin of the tile containing the shape's
// upper-left corner, the scheduling sort key.
func (d *Dataset) sortKey(s Shape) tileKey {
	b := s.Geom.Bound()
	x, y := d.frame.ToPixel(b.Min.X(), b.Max.Y())
	return d.store.key(x, y)
}

// tilePattern extracts grid origins from tile filenames.
type tilePattern struct {
	re *regexp.Regexp
}

func newTilePattern(expr string) (*tilePattern, error) {
	if expr == "" {
		expr = DefaultTilePattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("rasterquery: malformed tile pattern: %w", err)
	}
	if re.NumSubexp() != 2 {
		return nil, fmt.Errorf("rasterquery: tile pattern %q must have exactly two capture groups", expr)
	}
	return &tilePattern{re: re}, nil
}

func (p *tilePattern) keyFromFilename(name string) (tileKey, error) {
	m := p.re.FindStringSubmatch(name)
	if m == nil {
		return tileKey{}, fmt.Errorf("rasterquery: tile filename %q does not match pattern %q", name, p.re)
	}
	x, err := strconv.Atoi(m[1])
	if err != nil {
		return tileKey{}, fmt.Errorf("rasterquery: tile filename %q: %w", name, err)
	}
	y, err := strconv.Atoi(m[2])
	if err != nil {
		return tileKey{}, fmt.Errorf("rasterquery: tile filename %q: %w", name, err)
	}
	return tileKey{x: x, y: y}, nil
}
