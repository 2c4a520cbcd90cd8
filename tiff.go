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
	"image"
	"io"
	"io/fs"
	"os"

	"golang.org/x/image/tiff"
)

// TIFFReader is a TileReader that decodes single-band TIFF tiles.
// With a nil FS, paths are resolved against the local filesystem;
// hosts with rasters in object storage supply an fs.FS that fetches
// blocks remotely.
//
// Supported cell layouts are 8-bit and 16-bit grayscale and paletted
// images; anything else is reported as ErrUnsupportedFormat.
type TIFFReader struct {
	FS fs.FS
}

func (r *TIFFReader) ReadTile(path string) (Buffer, int, int, error) {
	var src io.ReadCloser
	var err error
	if r.FS != nil {
		src, err = r.FS.Open(path)
	} else {
		src, err = os.Open(path)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	defer src.Close()

	img, err := tiff.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding %q: %w", path, err)
	}
	return bufferFromImage(img)
}

// bufferFromImage converts a decoded image into a typed pixel buffer
// in row-major order.
func bufferFromImage(img image.Image) (Buffer, int, int, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	switch img := img.(type) {
	case *image.Gray:
		return packRows(img.Pix, img.Stride, width, height), width, height, nil
	case *image.Paletted:
		return packRows(img.Pix, img.Stride, width, height), width, height, nil
	case *image.Gray16:
		buf := make(Uint16Buffer, width*height)
		for y := range height {
			row := img.Pix[y*img.Stride:]
			for x := range width {
				buf[y*width+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
		return buf, width, height, nil
	default:
		return nil, 0, 0, fmt.Errorf("%w: %T", ErrUnsupportedFormat, img)
	}
}

// packRows strips the stride from an 8-bit pixel slice.
func packRows(pix []byte, stride, width, height int) Uint8Buffer {
	if stride == width && len(pix) == width*height {
		return Uint8Buffer(pix)
	}
	buf := make(Uint8Buffer, width*height)
	for y := range height {
		copy(buf[y*width:(y+1)*width], pix[y*stride:])
	}
	return buf
}
