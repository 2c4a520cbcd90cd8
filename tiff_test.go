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
	"bytes"
	"errors"
	"image"
	"testing"
	"testing/fstest"

	"golang.org/x/image/tiff"
)

// encodeTIFF encodes an image as an uncompressed TIFF.
func encodeTIFF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTIFFReaderGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(10 * i)
	}
	fsys := fstest.MapFS{
		"tiles/0_0.tif": {Data: encodeTIFF(t, img)},
	}
	r := &TIFFReader{FS: fsys}

	buf, width, height, err := r.ReadTile("tiles/0_0.tif")
	if err != nil {
		t.Fatal(err)
	}
	if width != 3 || height != 2 {
		t.Fatalf("size is %dx%d", width, height)
	}
	if buf.Type() != PixelUint8 {
		t.Errorf("pixel type is %v", buf.Type())
	}
	if buf.Len() != 6 {
		t.Fatalf("Len() = %d", buf.Len())
	}
	for i := range 6 {
		if v := buf.Value(i); v != float64(10*i) {
			t.Errorf("cell %d is %g, want %d", i, v, 10*i)
		}
	}
}

func TestTIFFReaderGray16(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	want := []uint16{0, 300, 60000, 7}
	for i, v := range want {
		img.Pix[2*i] = byte(v >> 8)
		img.Pix[2*i+1] = byte(v)
	}
	fsys := fstest.MapFS{
		"t.tif": {Data: encodeTIFF(t, img)},
	}
	r := &TIFFReader{FS: fsys}

	buf, _, _, err := r.ReadTile("t.tif")
	if err != nil {
		t.Fatal(err)
	}
	if buf.Type() != PixelUint16 {
		t.Errorf("pixel type is %v", buf.Type())
	}
	for i, v := range want {
		if got := buf.Value(i); got != float64(v) {
			t.Errorf("cell %d is %g, want %d", i, got, v)
		}
	}
}

func TestTIFFReaderErrors(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	fsys := fstest.MapFS{
		"rgba.tif": {Data: encodeTIFF(t, rgba)},
		"junk.tif": {Data: []byte("not a tiff")},
	}
	r := &TIFFReader{FS: fsys}

	_, _, _, err := r.ReadTile("rgba.tif")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("rgba: got %v, want ErrUnsupportedFormat", err)
	}

	if _, _, _, err := r.ReadTile("junk.tif"); err == nil {
		t.Error("junk: expected an error")
	}
	if _, _, _, err := r.ReadTile("missing.tif"); err == nil {
		t.Error("missing: expected an error")
	}
}

func TestPackRows(t *testing.T) {
	// A strided pixel slice loses its padding bytes.
	pix := []byte{
		1, 2, 3, 99,
		4, 5, 6, 99,
	}
	buf := packRows(pix, 4, 3, 2)
	want := Uint8Buffer{1, 2, 3, 4, 5, 6}
	if len(buf) != len(want) {
		t.Fatalf("Len() = %d", len(buf))
	}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("cell %d is %d, want %d", i, buf[i], want[i])
		}
	}
}
