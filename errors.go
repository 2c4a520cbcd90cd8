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
)

// Errors returned by the engine. Configuration errors surface from
// constructors, before any query runs; resource errors surface from
// the in-flight lookup and are never retried internally.
var (
	// ErrUnsupportedFormat indicates a raster block in a format the
	// tile reader cannot decode.
	ErrUnsupportedFormat = errors.New("rasterquery: unsupported raster format")

	errScaleFactor = errors.New("rasterquery: scale factor must be >= 1")
)

// TileLoadError reports a failure to read a tile's backing block at
// query time. The caller decides whether to retry.
type TileLoadError struct {
	Path string
	Err  error
}

func (e *TileLoadError) Error() string {
	return fmt.Sprintf("rasterquery: loading tile %q: %v", e.Path, e.Err)
}

func (e *TileLoadError) Unwrap() error {
	return e.Err
}

func errGeometryType(g any) error {
	return fmt.Errorf("rasterquery: unsupported geometry type %T", g)
}
