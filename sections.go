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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// FieldKind identifies the physical field held by a ZonalSection.
type FieldKind int

const (
	Temperature FieldKind = iota
	Salinity
	WindStress
	MeridionalVelocity
)

func (k FieldKind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Salinity:
		return "salinity"
	case WindStress:
		return "zonal wind stress"
	case MeridionalVelocity:
		return "meridional velocity"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// ZonalSection is one physical field sampled along a fixed-latitude
// transect. Data is shaped (time, depth, longitude) for interior fields and
// (time, longitude) for surface fields (Depth == nil). Sections are
// immutable after construction.
type ZonalSection struct {
	Name  string // NetCDF variable name
	Kind  FieldKind
	Units string

	Longitude []float64 // [degrees east], strictly increasing
	Depth     []float64 // [m], strictly increasing; nil for surface fields
	Time      []time.Time

	Data *sparse.DenseArray

	// Bounds records the configured selection applied at load time.
	Bounds struct {
		MinLon, MaxLon     float64
		MinDepth, MaxDepth float64
	}
}

// Surface reports whether the section has no depth dimension.
func (s *ZonalSection) Surface() bool { return s.Depth == nil }

// InterpolatedSection is a ZonalSection whose coordinate grid has been
// replaced by a target section's grid. It is a distinct type so that the
// transport calculator can require regridded inputs.
type InterpolatedSection struct {
	ZonalSection
}

// newZonalSection validates the coordinate/data shape invariant.
func newZonalSection(kind FieldKind, name, units string, lon, depth []float64, times []time.Time, data *sparse.DenseArray) (*ZonalSection, error) {
	want := []int{len(times), len(depth), len(lon)}
	if depth == nil {
		want = []int{len(times), len(lon)}
	}
	if len(data.Shape) != len(want) {
		return nil, fmt.Errorf("expected %d dimensions, have %d", len(want), len(data.Shape))
	}
	for i, n := range want {
		if data.Shape[i] != n {
			return nil, fmt.Errorf("dimension %d: coordinate length %d does not match data length %d", i, n, data.Shape[i])
		}
	}
	if !strictlyIncreasing(lon) {
		return nil, fmt.Errorf("longitude coordinate is not strictly increasing")
	}
	if depth != nil && !strictlyIncreasing(depth) {
		return nil, fmt.Errorf("depth coordinate is not strictly increasing")
	}
	return &ZonalSection{
		Name: name, Kind: kind, Units: units,
		Longitude: lon, Depth: depth, Time: times, Data: data,
	}, nil
}

func strictlyIncreasing(x []float64) bool {
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return false
		}
	}
	return true
}

// LoadSection reads the configured variable for the given field kind from
// the NetCDF file(s) matching pattern, restricted to the configured
// longitude and depth bounds. Multiple matching files are concatenated
// along the time dimension in lexical order.
func LoadSection(pattern string, cfg *Config, kind FieldKind) (*ZonalSection, error) {
	varName, err := cfg.VarName(kind)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &DataLoadError{File: pattern, Variable: varName, Err: err}
	}
	if len(files) == 0 {
		return nil, &DataLoadError{File: pattern, Variable: varName, Err: fmt.Errorf("no files match pattern")}
	}
	sort.Strings(files)

	var sec *ZonalSection
	for _, file := range files {
		next, err := loadSectionFile(file, cfg, kind, varName)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			sec = next
			continue
		}
		sec, err = concatTime(sec, next)
		if err != nil {
			return nil, &DataLoadError{File: file, Variable: varName, Err: err}
		}
	}
	return sec, nil
}

func loadSectionFile(file string, cfg *Config, kind FieldKind, varName string) (*ZonalSection, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}

	dims := ff.Header.Dimensions(varName)
	lens := ff.Header.Lengths(varName)
	if len(dims) == 0 {
		return nil, &DataLoadError{File: file, Variable: varName, Err: fmt.Errorf("variable not in file")}
	}

	data, err := readNCF(ff, varName)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}

	// Squeeze singleton dimensions other than time: model output along a
	// section commonly keeps a latitude axis of length 1.
	dims, lens, data = squeeze(dims, lens, data)

	var lonDim, depthDim, timeDim string
	switch len(dims) {
	case 3:
		timeDim, depthDim, lonDim = dims[0], dims[1], dims[2]
	case 2:
		timeDim, lonDim = dims[0], dims[1]
	default:
		return nil, &DataLoadError{File: file, Variable: varName,
			Err: fmt.Errorf("unrecognized grid: %d non-singleton dimensions %v", len(dims), dims)}
	}

	lon, err := coordVector(ff, lonDim)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}
	var depth []float64
	if depthDim != "" {
		if depth, err = coordVector(ff, depthDim); err != nil {
			return nil, &DataLoadError{File: file, Variable: varName, Err: err}
		}
	}
	times, err := timeVector(ff, timeDim)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}

	// Descending coordinates are flipped to ascending before the bounds
	// are applied, so downstream code only ever sees increasing grids.
	if isDecreasing(lon) {
		lon, data = flipAxis(lon, data, len(data.Shape)-1)
	}
	if depth != nil && isDecreasing(depth) {
		depth, data = flipAxis(depth, data, 1)
	}

	units := attrString(ff, varName, "units")
	if kind == Temperature && isKelvin(units) {
		data = offsetArray(data, -273.15)
		units = "degC"
	}

	lon, depth, data, err = applyBounds(cfg, lon, depth, data)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}

	sec, err := newZonalSection(kind, varName, units, lon, depth, times, data)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: varName, Err: err}
	}
	sec.Bounds.MinLon, sec.Bounds.MaxLon = cfg.MinLon, cfg.MaxLon
	sec.Bounds.MinDepth, sec.Bounds.MaxDepth = cfg.MinDepth, cfg.MaxDepth
	return sec, nil
}

// readNCF reads the full contents of a NetCDF variable into a DenseArray,
// converting from the on-disk type to float64.
func readNCF(ff *cdf.File, varName string) (*sparse.DenseArray, error) {
	lens := ff.Header.Lengths(varName)
	r := ff.Reader(varName, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable: %v", err)
	}
	data := sparse.ZerosDense(lens...)
	switch b := buf.(type) {
	case []float32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []float64:
		copy(data.Elements, b)
	case []int32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported variable type %T", buf)
	}
	fill := attrFloat(ff, varName, "_FillValue")
	if !math.IsNaN(fill) {
		for i, v := range data.Elements {
			if v == fill {
				data.Elements[i] = math.NaN()
			}
		}
	}
	return data, nil
}

// coordVector reads a 1-D coordinate variable as float64.
func coordVector(ff *cdf.File, name string) ([]float64, error) {
	lens := ff.Header.Lengths(name)
	if len(lens) != 1 {
		return nil, fmt.Errorf("coordinate variable %s is not 1-D", name)
	}
	arr, err := readNCF(ff, name)
	if err != nil {
		return nil, fmt.Errorf("coordinate variable %s: %v", name, err)
	}
	return arr.Elements, nil
}

// timeVector reads a time coordinate variable and decodes its epoch from
// the CF units attribute ("days since ..." or similar).
func timeVector(ff *cdf.File, name string) ([]time.Time, error) {
	vals, err := coordVector(ff, name)
	if err != nil {
		return nil, err
	}
	epoch, step, err := parseTimeUnits(attrString(ff, name, "units"))
	if err != nil {
		return nil, fmt.Errorf("time variable %s: %v", name, err)
	}
	times := make([]time.Time, len(vals))
	for i, v := range vals {
		times[i] = cfTime(epoch, v, step)
	}
	return times, nil
}

// cfTime converts a CF time offset into a time.Time. Whole days are added
// with AddDate: offsets from distant calendar epochs such as
// "days since 0001-01-01" exceed what a Duration can hold.
func cfTime(epoch time.Time, val float64, step time.Duration) time.Time {
	secs := val * step.Seconds()
	days := math.Floor(secs / 86400)
	rem := secs - days*86400
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(rem * float64(time.Second)))
}

// parseTimeUnits decodes a CF-style time units string such as
// "days since 1900-01-01 00:00:00" into an epoch and a step duration.
func parseTimeUnits(units string) (time.Time, time.Duration, error) {
	fields := strings.Fields(units)
	if len(fields) < 3 || fields[1] != "since" {
		return time.Time{}, 0, fmt.Errorf("unrecognized time units %q", units)
	}
	var step time.Duration
	switch strings.TrimSuffix(fields[0], "s") + "s" {
	case "seconds":
		step = time.Second
	case "hours":
		step = time.Hour
	case "days":
		step = 24 * time.Hour
	default:
		return time.Time{}, 0, fmt.Errorf("unrecognized time step %q", fields[0])
	}
	stamp := strings.Join(fields[2:], " ")
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05Z", "2006-01-02"} {
		if epoch, err := time.Parse(layout, stamp); err == nil {
			return epoch, step, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("unrecognized time epoch %q", stamp)
}

// attrString returns a string attribute, or "" if it is absent.
func attrString(ff *cdf.File, varName, attr string) string {
	v := ff.Header.GetAttribute(varName, attr)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// attrFloat returns a numeric attribute, or NaN if it is absent.
func attrFloat(ff *cdf.File, varName, attr string) float64 {
	switch v := ff.Header.GetAttribute(varName, attr).(type) {
	case []float32:
		if len(v) > 0 {
			return float64(v[0])
		}
	case []float64:
		if len(v) > 0 {
			return v[0]
		}
	}
	return math.NaN()
}

func isKelvin(units string) bool {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "k", "kelvin", "degk", "degrees_kelvin":
		return true
	}
	return false
}

func offsetArray(data *sparse.DenseArray, offset float64) *sparse.DenseArray {
	out := sparse.ZerosDense(data.Shape...)
	for i, v := range data.Elements {
		out.Elements[i] = v + offset
	}
	return out
}

// squeeze drops singleton dimensions after the leading (time) dimension.
func squeeze(dims []string, lens []int, data *sparse.DenseArray) ([]string, []int, *sparse.DenseArray) {
	outDims := []string{dims[0]}
	outLens := []int{lens[0]}
	for i := 1; i < len(dims); i++ {
		if lens[i] == 1 {
			continue
		}
		outDims = append(outDims, dims[i])
		outLens = append(outLens, lens[i])
	}
	out := sparse.ZerosDense(outLens...)
	copy(out.Elements, data.Elements)
	return outDims, outLens, out
}

func isDecreasing(x []float64) bool {
	return len(x) > 1 && x[len(x)-1] < x[0]
}

// flipAxis reverses coordinate coord and the matching axis of data.
func flipAxis(coord []float64, data *sparse.DenseArray, axis int) ([]float64, *sparse.DenseArray) {
	n := len(coord)
	outCoord := make([]float64, n)
	for i, v := range coord {
		outCoord[n-1-i] = v
	}
	out := sparse.ZerosDense(data.Shape...)
	idx := make([]int, len(data.Shape))
	for i, v := range data.Elements {
		// Unravel the flat index.
		rem := i
		for d := len(data.Shape) - 1; d >= 0; d-- {
			idx[d] = rem % data.Shape[d]
			rem /= data.Shape[d]
		}
		idx[axis] = n - 1 - idx[axis]
		out.Set(v, idx...)
	}
	return outCoord, out
}

// applyBounds restricts the grid to the configured longitude and depth
// ranges. An empty selection is an error.
func applyBounds(cfg *Config, lon, depth []float64, data *sparse.DenseArray) ([]float64, []float64, *sparse.DenseArray, error) {
	i0, i1 := boundIndices(lon, cfg.MinLon, cfg.MaxLon)
	if i0 >= i1 {
		return nil, nil, nil, fmt.Errorf("longitude bounds [%g, %g] select no data", cfg.MinLon, cfg.MaxLon)
	}
	k0, k1 := 0, 1
	if depth != nil {
		k0, k1 = boundIndices(depth, cfg.MinDepth, cfg.MaxDepth)
		if k0 >= k1 {
			return nil, nil, nil, fmt.Errorf("depth bounds [%g, %g] select no data", cfg.MinDepth, cfg.MaxDepth)
		}
	}

	nt := data.Shape[0]
	outLon := append([]float64{}, lon[i0:i1]...)
	if depth == nil {
		out := sparse.ZerosDense(nt, i1-i0)
		for t := 0; t < nt; t++ {
			for i := i0; i < i1; i++ {
				out.Set(data.Get(t, i), t, i-i0)
			}
		}
		return outLon, nil, out, nil
	}
	outDepth := append([]float64{}, depth[k0:k1]...)
	out := sparse.ZerosDense(nt, k1-k0, i1-i0)
	for t := 0; t < nt; t++ {
		for k := k0; k < k1; k++ {
			for i := i0; i < i1; i++ {
				out.Set(data.Get(t, k, i), t, k-k0, i-i0)
			}
		}
	}
	return outLon, outDepth, out, nil
}

// boundIndices returns the half-open index range of x within [min, max].
func boundIndices(x []float64, min, max float64) (int, int) {
	i0 := len(x)
	for i, v := range x {
		if v >= min {
			i0 = i
			break
		}
	}
	i1 := i0
	for i := i0; i < len(x); i++ {
		if x[i] > max {
			break
		}
		i1 = i + 1
	}
	return i0, i1
}

// concatTime appends b to a along the time dimension. The spatial grids
// must be identical.
func concatTime(a, b *ZonalSection) (*ZonalSection, error) {
	if a.Kind != b.Kind || a.Name != b.Name {
		return nil, fmt.Errorf("cannot concatenate %s with %s", a.Name, b.Name)
	}
	if !sameGrid(a.Longitude, b.Longitude) || !sameGrid(a.Depth, b.Depth) {
		return nil, fmt.Errorf("files in a multi-file dataset have different grids")
	}
	times := append(append([]time.Time{}, a.Time...), b.Time...)
	shape := append([]int{len(times)}, a.Data.Shape[1:]...)
	data := sparse.ZerosDense(shape...)
	copy(data.Elements, a.Data.Elements)
	copy(data.Elements[len(a.Data.Elements):], b.Data.Elements)
	out := *a
	out.Time = times
	out.Data = data
	return &out, nil
}

func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
