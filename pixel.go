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
	"reflect"
)

// PixelType identifies the cell type of a raster band, using the GDAL
// data type codes for interoperability with catalogs written by GDAL
// tooling.
type PixelType int

const (
	PixelUint8      PixelType = 1
	PixelUint16     PixelType = 2
	PixelInt16      PixelType = 3
	PixelUint32     PixelType = 4
	PixelInt32      PixelType = 5
	PixelFloat32    PixelType = 6
	PixelFloat64    PixelType = 7
	PixelComplex64  PixelType = 10
	PixelComplex128 PixelType = 11
)

// pixelKinds maps each pixel type to the Go kind of its cell values.
// kindTypes is the reverse mapping, derived at init and validated to
// be a bijection so that a missing entry fails at startup instead of
// at read time.
var pixelKinds = map[PixelType]reflect.Kind{
	PixelUint8:      reflect.Uint8,
	PixelUint16:     reflect.Uint16,
	PixelInt16:      reflect.Int16,
	PixelUint32:     reflect.Uint32,
	PixelInt32:      reflect.Int32,
	PixelFloat32:    reflect.Float32,
	PixelFloat64:    reflect.Float64,
	PixelComplex64:  reflect.Complex64,
	PixelComplex128: reflect.Complex128,
}

var kindTypes map[reflect.Kind]PixelType

func init() {
	kindTypes = make(map[reflect.Kind]PixelType, len(pixelKinds))
	for t, k := range pixelKinds {
		if other, ok := kindTypes[k]; ok {
			panic(fmt.Sprintf("rasterquery: pixel types %d and %d map to the same kind %v", other, t, k))
		}
		kindTypes[k] = t
	}
}

// Kind returns the Go kind of the pixel type's cell values.
func (t PixelType) Kind() (reflect.Kind, bool) {
	k, ok := pixelKinds[t]
	return k, ok
}

func (t PixelType) String() string {
	if k, ok := pixelKinds[t]; ok {
		return k.String()
	}
	return fmt.Sprintf("PixelType(%d)", int(t))
}

// Buffer is a typed block of raster cell values. Cell values are
// exposed as float64, which represents every supported integer type
// exactly.
type Buffer interface {
	// Type returns the cell type of the buffer.
	Type() PixelType

	// Len returns the number of cells.
	Len() int

	// Value returns the cell at index i.
	Value(i int) float64
}

type Uint8Buffer []uint8

func (b Uint8Buffer) Type() PixelType { return PixelUint8 }
func (b Uint8Buffer) Len() int { return len(b) }
func (b Uint8Buffer) Value(i int) float64 { return float64(b[i]) }

type Uint16Buffer []uint16

func (b Uint16Buffer) Type() PixelType { return PixelUint16 }
func (b Uint16Buffer) Len() int { return len(b) }
func (b Uint16Buffer) Value(i int) float64 { return float64(b[i]) }

type Int16Buffer []int16

func (b Int16Buffer) Type() PixelType { return PixelInt16 }
func (b Int16Buffer) Len() int { return len(b) }
func (b Int16Buffer) Value(i int) float64 { return float64(b[i]) }

type Uint32Buffer []uint32

func (b Uint32Buffer) Type() PixelType { return PixelUint32 }
func (b Uint32Buffer) Len() int { return len(b) }
func (b Uint32Buffer) Value(i int) float64 { return float64(b[i]) }

type Int32Buffer []int32

func (b Int32Buffer) Type() PixelType { return PixelInt32 }
func (b Int32Buffer) Len() int { return len(b) }
func (b Int32Buffer) Value(i int) float64 { return float64(b[i]) }

type Float32Buffer []float32

func (b Float32Buffer) Type() PixelType { return PixelFloat32 }
func (b Float32Buffer) Len() int { return len(b) }
func (b Float32Buffer) Value(i int) float64 { return float64(b[i]) }

type Float64Buffer []float64

func (b Float64Buffer) Type() PixelType { return PixelFloat64 }
func (b Float64Buffer) Len() int { return len(b) }
func (b Float64Buffer) Value(i int) float64 { return b[i] }
