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
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Catalog is the persisted descriptor of a raster dataset. The engine
// consumes catalogs, it never writes them; they are produced by
// external tooling alongside the raster files.
type Catalog struct {
	// Path is the raster file (untiled) or the common tile path
	// prefix (tiled).
	Path string `json:"Path"`

	// CoordinateSystem is the raster's spatial reference as
	// well-known text.
	CoordinateSystem string `json:"CoordinateSystem"`

	// GeoTransform holds the affine transform in GDAL order.
	GeoTransform [6]float64 `json:"GeoTransform"`

	// Size is the raster size as (width, height) in pixels.
	Size [2]int `json:"Size"`

	// ColorTable optionally maps cell values to RGBA colors.
	ColorTable [][4]uint8 `json:"ColorTable,omitempty"`

	// GridSize is the tile edge length in pixels. Its presence
	// signals a tiled dataset; zero means untiled.
	GridSize int `json:"GridSize,omitempty"`

	// Index optionally holds a GeoJSON feature collection mapping
	// tile filenames (property "location") to tile footprints in the
	// raster's spatial reference.
	Index json.RawMessage `json:"Index,omitempty"`
}

// ReadCatalog reads and parses a catalog descriptor file.
func ReadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rasterquery: reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a JSON catalog descriptor and validates the
// fields the engine depends on.
func ParseCatalog(data []byte) (*Catalog, error) {
	cat := &Catalog{}
	if err := json.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("rasterquery: parsing catalog: %w", err)
	}
	if cat.Size[0] <= 0 || cat.Size[1] <= 0 {
		return nil, fmt.Errorf("rasterquery: catalog has invalid size %dx%d", cat.Size[0], cat.Size[1])
	}
	if cat.GridSize < 0 {
		return nil, fmt.Errorf("rasterquery: catalog has negative grid size %d", cat.GridSize)
	}
	if len(cat.Index) > 0 && cat.GridSize == 0 {
		return nil, fmt.Errorf("rasterquery: catalog has a tile index but no grid size")
	}
	return cat, nil
}

// indexEntry associates a tile with its footprint.
type indexEntry struct {
	key   tileKey
	bound orb.Bound
}

// parseIndex decodes the catalog's footprint index. Every feature
// must carry a "location" property matching the tile filename
// pattern; a mismatch is a configuration error raised here, before
// any query executes.
func parseIndex(raw json.RawMessage, pattern *tilePattern) ([]indexEntry, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("rasterquery: parsing tile index: %w", err)
	}
	entries := make([]indexEntry, 0, len(fc.Features))
	for _, f := range fc.Features {
		loc, ok := f.Properties["location"].(string)
		if !ok {
			return nil, fmt.Errorf("rasterquery: tile index feature without location property")
		}
		key, err := pattern.keyFromFilename(loc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, indexEntry{key: key, bound: f.Geometry.Bound()})
	}
	return entries, nil
}
