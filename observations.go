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
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// The RAPID observational archives are NetCDF-4/HDF5 files, so they are
// read with go-native-netcdf rather than the classic-format reader used for
// model output.

// StreamfunctionObs is the observed overturning streamfunction,
// shaped (time, depth) [Sv].
type StreamfunctionObs struct {
	Time           []time.Time
	Depth          []float64
	Streamfunction *sparse.DenseArray
}

// FloridaCurrentObs is the observed Florida Current cable transport [Sv].
type FloridaCurrentObs struct {
	Time      []time.Time
	Transport []float64
}

// VolumeTransportObs holds the observed RAPID layer transports [Sv].
type VolumeTransportObs struct {
	Time           []time.Time
	MOC            []float64
	Ekman          []float64
	UpperMidOcean  []float64
	FloridaCurrent []float64
}

// HeatTransportObs holds the observed heat transport components [PW].
type HeatTransportObs struct {
	Time           []time.Time
	Total          []float64
	Ekman          []float64
	FloridaCurrent []float64
	Interior       []float64
}

// Observations collects the configured reference datasets. A nil field
// means the corresponding dataset was not configured; downstream
// comparisons for that kind are skipped entirely.
type Observations struct {
	Streamfunction *StreamfunctionObs
	FloridaCurrent *FloridaCurrentObs
	Volume         *VolumeTransportObs
	Heat           *HeatTransportObs
}

// LoadObservations loads each observational dataset named in cfg,
// optionally time-averaged according to cfg.TimeAvg. Unconfigured datasets
// are left nil; a configured but unreadable dataset is an error.
func LoadObservations(cfg *ObsConfig) (*Observations, error) {
	obs := &Observations{}
	if cfg == nil {
		return obs, nil
	}
	if cfg.TimeAvg != "" && cfg.TimeAvg != "monthly" && cfg.TimeAvg != "annual" {
		return nil, &ConfigError{Option: "observations.time_avg",
			Reason: fmt.Sprintf("unrecognized value %q (want \"monthly\" or \"annual\")", cfg.TimeAvg)}
	}
	var err error
	if cfg.Streamfunctions != "" {
		if obs.Streamfunction, err = loadStreamfunctionObs(cfg.Streamfunctions, cfg.TimeAvg); err != nil {
			return nil, err
		}
	}
	if cfg.FloridaCurrent != "" {
		if obs.FloridaCurrent, err = loadFloridaCurrentObs(cfg.FloridaCurrent, cfg.TimeAvg); err != nil {
			return nil, err
		}
	}
	if cfg.VolumeTransports != "" {
		if obs.Volume, err = loadVolumeTransportObs(cfg.VolumeTransports, cfg.TimeAvg); err != nil {
			return nil, err
		}
	}
	if cfg.HeatTransports != "" {
		if obs.Heat, err = loadHeatTransportObs(cfg.HeatTransports, cfg.TimeAvg); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

func loadStreamfunctionObs(file, timeAvg string) (*StreamfunctionObs, error) {
	nc, err := netcdf.Open(file)
	if err != nil {
		return nil, &DataLoadError{File: file, Err: err}
	}
	defer nc.Close()
	times, err := obsTimes(nc, file)
	if err != nil {
		return nil, err
	}
	depth, err := obsVector(nc, file, "depth")
	if err != nil {
		return nil, err
	}
	sf, err := obsMatrix(nc, file, "stream_function_mar", len(times), len(depth))
	if err != nil {
		return nil, err
	}
	o := &StreamfunctionObs{Time: times, Depth: depth, Streamfunction: sf}
	if timeAvg != "" {
		groups := timeGroups(o.Time, timeAvg)
		o.Time = groupTimes(o.Time, groups)
		o.Streamfunction = groupMatrix(o.Streamfunction, groups)
	}
	return o, nil
}

func loadFloridaCurrentObs(file, timeAvg string) (*FloridaCurrentObs, error) {
	nc, err := netcdf.Open(file)
	if err != nil {
		return nil, &DataLoadError{File: file, Err: err}
	}
	defer nc.Close()
	times, err := obsTimes(nc, file)
	if err != nil {
		return nil, err
	}
	transport, err := obsVector(nc, file, "florida_current_transport")
	if err != nil {
		return nil, err
	}
	o := &FloridaCurrentObs{Time: times, Transport: transport}
	if timeAvg != "" {
		groups := timeGroups(o.Time, timeAvg)
		o.Time = groupTimes(o.Time, groups)
		o.Transport = groupMeans(o.Transport, groups)
	}
	return o, nil
}

func loadVolumeTransportObs(file, timeAvg string) (*VolumeTransportObs, error) {
	nc, err := netcdf.Open(file)
	if err != nil {
		return nil, &DataLoadError{File: file, Err: err}
	}
	defer nc.Close()
	times, err := obsTimes(nc, file)
	if err != nil {
		return nil, err
	}
	o := &VolumeTransportObs{Time: times}
	for _, v := range []struct {
		name string
		dst  *[]float64
	}{
		{"moc_mar_hc10", &o.MOC},
		{"t_ek10", &o.Ekman},
		{"t_umo10", &o.UpperMidOcean},
		{"t_gs10", &o.FloridaCurrent},
	} {
		if *v.dst, err = obsVector(nc, file, v.name); err != nil {
			return nil, err
		}
	}
	if timeAvg != "" {
		groups := timeGroups(o.Time, timeAvg)
		o.Time = groupTimes(o.Time, groups)
		o.MOC = groupMeans(o.MOC, groups)
		o.Ekman = groupMeans(o.Ekman, groups)
		o.UpperMidOcean = groupMeans(o.UpperMidOcean, groups)
		o.FloridaCurrent = groupMeans(o.FloridaCurrent, groups)
	}
	return o, nil
}

func loadHeatTransportObs(file, timeAvg string) (*HeatTransportObs, error) {
	nc, err := netcdf.Open(file)
	if err != nil {
		return nil, &DataLoadError{File: file, Err: err}
	}
	defer nc.Close()
	times, err := obsTimes(nc, file)
	if err != nil {
		return nil, err
	}
	o := &HeatTransportObs{Time: times}
	for _, v := range []struct {
		name string
		dst  *[]float64
	}{
		{"Q_sum", &o.Total},
		{"Q_ek", &o.Ekman},
		{"Q_fc", &o.FloridaCurrent},
		{"Q_int", &o.Interior},
	} {
		if *v.dst, err = obsVector(nc, file, v.name); err != nil {
			return nil, err
		}
	}
	if timeAvg != "" {
		groups := timeGroups(o.Time, timeAvg)
		o.Time = groupTimes(o.Time, groups)
		o.Total = groupMeans(o.Total, groups)
		o.Ekman = groupMeans(o.Ekman, groups)
		o.FloridaCurrent = groupMeans(o.FloridaCurrent, groups)
		o.Interior = groupMeans(o.Interior, groups)
	}
	return o, nil
}

// obsTimes reads and decodes the time coordinate of an observation file.
func obsTimes(nc api.Group, file string) ([]time.Time, error) {
	v, err := nc.GetVariable("time")
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: "time", Err: err}
	}
	vals, err := toFloats(v.Values)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: "time", Err: err}
	}
	units := ""
	if u, has := v.Attributes.Get("units"); has {
		if s, ok := u.(string); ok {
			units = s
		}
	}
	epoch, step, err := parseTimeUnits(units)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: "time", Err: err}
	}
	times := make([]time.Time, len(vals))
	for i, val := range vals {
		times[i] = cfTime(epoch, val, step)
	}
	return times, nil
}

// obsVector reads a 1-D observation variable as float64.
func obsVector(nc api.Group, file, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: name, Err: err}
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: name, Err: err}
	}
	out, err := toFloats(vals)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: name, Err: err}
	}
	return out, nil
}

// obsMatrix reads a 2-D observation variable shaped (nt, nz), accepting the
// transposed (nz, nt) layout used by some archive versions.
func obsMatrix(nc api.Group, file, name string, nt, nz int) (*sparse.DenseArray, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: name, Err: err}
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: name, Err: err}
	}
	rows, err := toFloatRows(vals)
	if err != nil {
		return nil, &DataLoadError{File: file, Variable: name, Err: err}
	}
	out := sparse.ZerosDense(nt, nz)
	switch {
	case len(rows) == nt && (nt == 0 || len(rows[0]) == nz):
		for t := range rows {
			for k := range rows[t] {
				out.Set(rows[t][k], t, k)
			}
		}
	case len(rows) == nz && (nz == 0 || len(rows[0]) == nt):
		for k := range rows {
			for t := range rows[k] {
				out.Set(rows[k][t], t, k)
			}
		}
	default:
		return nil, &DataLoadError{File: file, Variable: name,
			Err: fmt.Errorf("shape does not match time (%d) and depth (%d) coordinates", nt, nz)}
	}
	return out, nil
}

func toFloats(vals interface{}) ([]float64, error) {
	switch v := vals.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", vals)
	}
}

func toFloatRows(vals interface{}) ([][]float64, error) {
	switch v := vals.(type) {
	case [][]float64:
		return v, nil
	case [][]float32:
		out := make([][]float64, len(v))
		for i, row := range v {
			out[i] = make([]float64, len(row))
			for j, x := range row {
				out[i][j] = float64(x)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", vals)
	}
}

// timeGroups assigns each time index to a calendar month or year bucket,
// preserving first-appearance order.
func timeGroups(times []time.Time, timeAvg string) [][]int {
	keys := make(map[string]int)
	var groups [][]int
	for i, t := range times {
		key := t.Format("2006")
		if timeAvg == "monthly" {
			key = t.Format("2006-01")
		}
		g, ok := keys[key]
		if !ok {
			g = len(groups)
			keys[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func groupTimes(times []time.Time, groups [][]int) []time.Time {
	out := make([]time.Time, len(groups))
	for g, idx := range groups {
		out[g] = times[idx[0]]
	}
	return out
}

func groupMeans(x []float64, groups [][]int) []float64 {
	out := make([]float64, len(groups))
	buf := make([]float64, 0)
	for g, idx := range groups {
		buf = buf[:0]
		for _, i := range idx {
			buf = append(buf, x[i])
		}
		out[g] = stat.Mean(buf, nil)
	}
	return out
}

func groupMatrix(m *sparse.DenseArray, groups [][]int) *sparse.DenseArray {
	nz := m.Shape[1]
	out := sparse.ZerosDense(len(groups), nz)
	col := make([]float64, 0)
	for g, idx := range groups {
		for k := 0; k < nz; k++ {
			col = col[:0]
			for _, t := range idx {
				col = append(col, m.Get(t, k))
			}
			out.Set(stat.Mean(col, nil), g, k)
		}
	}
	return out
}
