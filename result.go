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
	"gonum.org/v1/gonum/stat"
)

// Result holds the answer of a raster query for one shape: the raster
// values of the covered pixels and the fraction of each pixel covered
// by the shape, in 1:1 positional correspondence. Both slices are
// empty when the shape lies outside the raster bounds.
type Result struct {
	ID      string
	Values  []float64
	Weights []float64
}

// Empty reports whether the shape was outside the raster bounds.
func (r Result) Empty() bool {
	return len(r.Values) == 0
}

// WeightedMean returns the coverage-weighted mean of the sampled
// values, the natural estimate for continuous-field rasters.
// It returns NaN for an empty result.
func (r Result) WeightedMean() float64 {
	return stat.Mean(r.Values, r.Weights)
}

// WeightedStdDev returns the coverage-weighted sample standard
// deviation of the sampled values.
func (r Result) WeightedStdDev() float64 {
	return stat.StdDev(r.Values, r.Weights)
}

// Counts returns the total coverage weight per distinct value, the
// weighted equivalent of a bincount. This is the natural aggregate
// for classification rasters: the weight of class c approximates the
// number of pixels of class c covered by the shape.
func (r Result) Counts() map[float64]float64 {
	counts := make(map[float64]float64, len(r.Values))
	for i, v := range r.Values {
		counts[v] += r.Weights[i]
	}
	return counts
}
