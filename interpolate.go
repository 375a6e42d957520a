/*
Copyright © 2018 the RapidMoc authors.
This file is part of RapidMoc.

RapidMoc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RapidMoc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RapidMoc.  If not, see <http://www.gnu.org/licenses/>.
*/

package rapidmoc

import (
	"math"

	"github.com/ctessum/sparse"
)

// Interpolate regrids src onto the coordinate grid of target, interpolating
// linearly along depth and longitude. Target points outside the source
// coordinate range are set to NaN rather than extrapolated. Points whose
// coordinates exactly match a source coordinate take the source value
// directly, so interpolating a section onto its own grid returns the
// original values.
func Interpolate(src, target *ZonalSection) (*InterpolatedSection, error) {
	if len(src.Longitude) < 2 {
		return nil, &InterpolationError{Source: src.Name, Target: target.Name,
			Reason: "degenerate source longitude grid"}
	}
	if !strictlyIncreasing(src.Longitude) {
		return nil, &InterpolationError{Source: src.Name, Target: target.Name,
			Reason: "source longitude grid is not strictly increasing"}
	}
	if src.Surface() != target.Surface() {
		return nil, &InterpolationError{Source: src.Name, Target: target.Name,
			Reason: "source and target differ in depth dimension"}
	}
	if !src.Surface() {
		if len(src.Depth) < 2 {
			return nil, &InterpolationError{Source: src.Name, Target: target.Name,
				Reason: "degenerate source depth grid"}
		}
		if !strictlyIncreasing(src.Depth) {
			return nil, &InterpolationError{Source: src.Name, Target: target.Name,
				Reason: "source depth grid is not strictly increasing"}
		}
	}
	nt := src.Data.Shape[0]
	if nt != target.Data.Shape[0] {
		return nil, &InterpolationError{Source: src.Name, Target: target.Name,
			Reason: "source and target have different numbers of time records"}
	}

	out := &InterpolatedSection{ZonalSection{
		Name: src.Name, Kind: src.Kind, Units: src.Units,
		Longitude: target.Longitude, Depth: target.Depth, Time: src.Time,
		Bounds: src.Bounds,
	}}
	if src.Surface() {
		data := sparse.ZerosDense(nt, len(target.Longitude))
		for t := 0; t < nt; t++ {
			col := make([]float64, len(src.Longitude))
			for i := range col {
				col[i] = src.Data.Get(t, i)
			}
			for i, x := range target.Longitude {
				data.Set(interp1d(src.Longitude, col, x), t, i)
			}
		}
		out.Data = data
		return out, nil
	}

	nzt, nxt := len(target.Depth), len(target.Longitude)
	nzs, nxs := len(src.Depth), len(src.Longitude)
	data := sparse.ZerosDense(nt, nzt, nxt)
	zcol := make([]float64, nzs)
	row := make([]float64, nxs)
	onDepth := sparse.ZerosDense(nzt, nxs) // scratch: source columns on target depths
	for t := 0; t < nt; t++ {
		for i := 0; i < nxs; i++ {
			for k := 0; k < nzs; k++ {
				zcol[k] = src.Data.Get(t, k, i)
			}
			for k, z := range target.Depth {
				onDepth.Set(interp1d(src.Depth, zcol, z), k, i)
			}
		}
		for k := 0; k < nzt; k++ {
			for i := 0; i < nxs; i++ {
				row[i] = onDepth.Get(k, i)
			}
			for i, x := range target.Longitude {
				data.Set(interp1d(src.Longitude, row, x), t, k, i)
			}
		}
	}
	out.Data = data
	return out, nil
}

// interp1d linearly interpolates y(xs) at x. xs must be strictly
// increasing. x outside [xs[0], xs[n-1]] yields NaN; an exact coordinate
// match returns the corresponding y unchanged.
func interp1d(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if x < xs[0] || x > xs[n-1] {
		return math.NaN()
	}
	// Binary search for the bracketing interval.
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	if x == xs[lo] {
		return ys[lo]
	}
	if x == xs[hi] {
		return ys[hi]
	}
	w := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + w*(ys[hi]-ys[lo])
}
