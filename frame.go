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
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Frame describes the geometry of a raster: its origin, pixel size,
// dimensions and spatial reference. It converts between geographic
// coordinates and integer pixel coordinates, with (0,0) being the
// upper-left pixel at (origin lon, origin lat).
//
// A Frame is immutable once constructed and safe for concurrent reads.
type Frame struct {
	originLon float64
	originLat float64
	pxWidth   float64 // horizontal pixel size, > 0
	pxHeight  float64 // vertical pixel size, < 0 for north-up rasters
	width     int     // raster width in pixels
	height    int     // raster height in pixels
	srs       string  // spatial reference, well-known text
}

// NewFrame creates a Frame from raster dimensions and an affine
// geo-transform in GDAL order:
//
//	[origin lon, pixel width, 0, origin lat, 0, pixel height]
//
// The rotation terms (indices 2 and 4) must be zero; sheared or
// rotated rasters are not supported.
func NewFrame(width, height int, transform [6]float64, srs string) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("rasterquery: invalid raster size %dx%d", width, height)
	}
	if transform[1] == 0 || transform[5] == 0 {
		return nil, fmt.Errorf("rasterquery: geo-transform has zero pixel size")
	}
	if transform[2] != 0 || transform[4] != 0 {
		return nil, fmt.Errorf("rasterquery: rotated geo-transforms are not supported")
	}
	return &Frame{
		originLon: transform[0],
		originLat: transform[3],
		pxWidth:   transform[1],
		pxHeight:  transform[5],
		width:     width,
		height:    height,
		srs:       srs,
	}, nil
}

// Width returns the raster width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the raster height in pixels.
func (f *Frame) Height() int { return f.height }

// SRS returns the raster's spatial reference as well-known text.
func (f *Frame) SRS() string { return f.srs }

// GeoTransform returns the affine geo-transform in GDAL order.
func (f *Frame) GeoTransform() [6]float64 {
	return [6]float64{f.originLon, f.pxWidth, 0, f.originLat, 0, f.pxHeight}
}

// ToPixel converts a geographic coordinate to the integer pixel
// containing it, using sign-aware floor division. For a north-up
// raster the pixel height is negative, so increasing latitude maps to
// decreasing row numbers.
func (f *Frame) ToPixel(lon, lat float64) (x, y int) {
	x = int(math.Floor((lon - f.originLon) / f.pxWidth))
	y = int(math.Floor((lat - f.originLat) / f.pxHeight))
	return x, y
}

// FromPixel returns the geographic coordinate of the upper-left corner
// of pixel (x, y). It is the inverse of ToPixel for cell corners.
func (f *Frame) FromPixel(x, y int) (lon, lat float64) {
	lon = f.originLon + float64(x)*f.pxWidth
	lat = f.originLat + float64(y)*f.pxHeight
	return lon, lat
}

// Extent returns the raster footprint in geographic coordinates.
func (f *Frame) Extent() (xmin, xmax, ymin, ymax float64) {
	xmin = f.originLon
	xmax = f.originLon + f.pxWidth*float64(f.width)
	ymax = f.originLat
	ymin = f.originLat + f.pxHeight*float64(f.height)
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}
	return xmin, xmax, ymin, ymax
}

// Bound returns the raster footprint as an orb.Bound in the raster's
// spatial reference.
func (f *Frame) Bound() orb.Bound {
	xmin, xmax, ymin, ymax := f.Extent()
	return orb.Bound{
		Min: orb.Point{xmin, ymin},
		Max: orb.Point{xmax, ymax},
	}
}

// BBox returns the raster footprint as a closed polygon, for
// intersection tests against query shapes.
func (f *Frame) BBox() orb.Polygon {
	return f.Bound().ToPolygon()
}

// ShapeToPixel maps every vertex of a polygon or multi-polygon into
// pixel space using ToPixel. The result carries integral coordinates
// as floats, ready for rasterization.
func (f *Frame) ShapeToPixel(g orb.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return f.polygonToPixel(g), nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, pg := range g {
			out[i] = f.polygonToPixel(pg)
		}
		return out, nil
	default:
		return nil, errGeometryType(g)
	}
}

func (f *Frame) polygonToPixel(pg orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(pg))
	for i, ring := range pg {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			x, y := f.ToPixel(pt.X(), pt.Y())
			r[j] = orb.Point{float64(x), float64(y)}
		}
		out[i] = r
	}
	return out
}
