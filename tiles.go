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
	"log/slog"
)

// TileReader decodes raster blocks. It is the boundary to the raster
// I/O backend: implementations resolve the path (local file, object
// storage, test fixture) and return the block's pixel buffer in
// row-major order together with its dimensions.
type TileReader interface {
	ReadTile(path string) (buf Buffer, width, height int, err error)
}

// Pixel is a raster pixel coordinate.
type Pixel struct {
	X, Y int
}

// tileKey addresses a tile by its grid-aligned pixel-space origin,
// a multiple of the grid size.
type tileKey struct {
	x, y int
}

// tile is an owned rectangular block of raster values.
type tile struct {
	key    tileKey
	width  int
	height int
	buf    Buffer

	// LRU list links; nil when the store has no tile bound.
	prev, next *tile
}

// tileStore owns the in-memory tiles of one dataset, loading them
// lazily on first access. An untiled dataset has exactly one implicit
// tile covering the whole raster which never gets evicted.
//
// The store performs no reference counting; the query driver proves
// that no pending shape references a tile before calling evict.
// A tileStore is not safe for concurrent use: lazy load-and-insert is
// not atomic.
type tileStore struct {
	path     string
	gridSize int // tile edge length in pixels; 0 = untiled
	reader   TileReader

	tiles map[tileKey]*tile

	// Optional LRU bound on resident tiles; 0 means unbounded.
	// Most recently used tile is at lru.next.
	maxTiles int
	lru      tile // sentinel node
}

func newTileStore(path string, gridSize, maxTiles int, reader TileReader) *tileStore {
	s := &tileStore{
		path:     path,
		gridSize: gridSize,
		reader:   reader,
		maxTiles: maxTiles,
		tiles:    make(map[tileKey]*tile),
	}
	s.lru.prev = &s.lru
	s.lru.next = &s.lru
	return s
}

// key returns the grid origin of the tile containing pixel (x, y),
// using floor division. Untiled stores have a single tile at (0, 0).
func (s *tileStore) key(x, y int) tileKey {
	if s.gridSize == 0 {
		return tileKey{}
	}
	return tileKey{
		x: floorDiv(x, s.gridSize) * s.gridSize,
		y: floorDiv(y, s.gridSize) * s.gridSize,
	}
}

// filename returns the backing block path for a tile, following the
// {path}{x}_{y}.tif convention for tiled datasets.
func (s *tileStore) filename(k tileKey) string {
	if s.gridSize == 0 {
		return s.path
	}
	return fmt.Sprintf("%s%d_%d.tif", s.path, k.x, k.y)
}

// tileFor returns the tile with the given key, loading it on miss.
func (s *tileStore) tileFor(k tileKey) (*tile, error) {
	if t, ok := s.tiles[k]; ok {
		s.touch(t)
		return t, nil
	}
	return s.load(k)
}

// load reads a tile's backing block and inserts it into the store.
func (s *tileStore) load(k tileKey) (*tile, error) {
	name := s.filename(k)
	buf, width, height, err := s.reader.ReadTile(name)
	if err != nil {
		return nil, &TileLoadError{Path: name, Err: err}
	}
	t := &tile{key: k, width: width, height: height, buf: buf}
	s.tiles[k] = t
	s.touch(t)
	logger().Debug("tile loaded",
		slog.String("path", name),
		slog.Int("resident", len(s.tiles)))

	// Enforce the LRU bound, never evicting the tile just loaded and
	// never evicting the single tile of an untiled store.
	if s.maxTiles > 0 && s.gridSize > 0 {
		for len(s.tiles) > s.maxTiles {
			oldest := s.lru.prev
			if oldest == &s.lru || oldest == t {
				break
			}
			s.evict(oldest.key)
		}
	}
	return t, nil
}

// ensure makes a tile resident without reading a value from it.
func (s *tileStore) ensure(k tileKey) error {
	_, err := s.tileFor(k)
	return err
}

// has reports whether a tile is resident.
func (s *tileStore) has(k tileKey) bool {
	_, ok := s.tiles[k]
	return ok
}

// resident returns the number of tiles currently held in memory.
func (s *tileStore) resident() int {
	return len(s.tiles)
}

// get returns the raster value at pixel (x, y), loading the covering
// tile on miss.
func (s *tileStore) get(x, y int) (float64, error) {
	k := s.key(x, y)
	t, err := s.tileFor(k)
	if err != nil {
		return 0, err
	}
	return t.buf.Value((y-k.y)*t.width + (x - k.x)), nil
}

// getBatch returns the raster values for a list of pixels, in input
// order. The untiled path indexes the single resident block directly;
// the tiled path resolves tiles per pixel.
func (s *tileStore) getBatch(pixels []Pixel) ([]float64, error) {
	values := make([]float64, len(pixels))
	if s.gridSize == 0 {
		t, err := s.tileFor(tileKey{})
		if err != nil {
			return nil, err
		}
		for i, p := range pixels {
			values[i] = t.buf.Value(p.Y*t.width + p.X)
		}
		return values, nil
	}
	for i, p := range pixels {
		v, err := s.get(p.X, p.Y)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// evict removes a tile from the store. The caller is responsible for
// proving that no pending shape still references the tile.
func (s *tileStore) evict(k tileKey) {
	t, ok := s.tiles[k]
	if !ok {
		return
	}
	s.unlink(t)
	delete(s.tiles, k)
	logger().Debug("tile evicted",
		slog.String("path", s.filename(k)),
		slog.Int("resident", len(s.tiles)))
}

// touch moves a tile to the front of the LRU list.
func (s *tileStore) touch(t *tile) {
	s.unlink(t)
	t.prev = &s.lru
	t.next = s.lru.next
	t.prev.next = t
	t.next.prev = t
}

func (s *tileStore) unlink(t *tile) {
	if t.prev != nil {
		t.prev.next = t.next
		t.next.prev = t.prev
	}
	t.prev = nil
	t.next = nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
