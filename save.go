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
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// sfOutEpoch is the epoch used for the output time coordinate.
var sfOutEpoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Filepath returns the output file path for the result, built from the
// output directory, the run name, and the configured date format applied to
// the first and last time records.
func (r *TransportResult) Filepath(outdir, name, dateFormat string) string {
	t0 := r.Time[0].Format(dateFormat)
	t1 := r.Time[len(r.Time)-1].Format(dateFormat)
	base := fmt.Sprintf("%s_natl_meridional_transports_at_%gN_%s-%s.nc",
		name, r.Latitude, t0, t1)
	return filepath.Join(outdir, base)
}

// Write writes the result to w as a NetCDF classic file.
func (r *TransportResult) Write(w *os.File) error {
	nt := len(r.Time)
	nz := len(r.Depth)

	h := cdf.NewHeader([]string{"time", "depth"}, []int{nt, nz})
	h.AddAttribute("", "title", "RAPID AMOC transport diagnostics")
	h.AddAttribute("", "name", r.Name)
	h.AddAttribute("", "latitude", []float64{r.Latitude})
	h.AddAttribute("", "history", "created by rapidmoc "+Version)

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "days since 1900-01-01 00:00:00")
	h.AddVariable("depth", []string{"depth"}, []float64{0})
	h.AddAttribute("depth", "units", "m")

	series := []struct {
		name, long string
		data       []float64
	}{
		{"ekman", "Ekman transport", r.Ekman},
		{"geoint", "geostrophic interior transport", r.Geostrophic},
		{"residual", "mass-balance residual transport", r.Residual},
		{"net", "net section transport", r.Net},
		{"moc", "overturning strength", r.MOC},
		{"fw_net", "freshwater transport", r.Freshwater},
	}
	if r.FloridaCurrent != nil {
		series = append(series, struct {
			name, long string
			data       []float64
		}{"fc", "Florida Current transport", r.FloridaCurrent})
	}
	for _, s := range series {
		h.AddVariable(s.name, []string{"time"}, []float64{0})
		h.AddAttribute(s.name, "long_name", s.long)
		h.AddAttribute(s.name, "units", "Sv")
	}
	h.AddVariable("q_net", []string{"time"}, []float64{0})
	h.AddAttribute("q_net", "long_name", "meridional heat transport")
	h.AddAttribute("q_net", "units", "PW")

	h.AddVariable("sf_model", []string{"time", "depth"}, []float64{0})
	h.AddAttribute("sf_model", "long_name", "overturning streamfunction from model velocities")
	h.AddAttribute("sf_model", "units", "Sv")
	h.AddVariable("sf_rapid", []string{"time", "depth"}, []float64{0})
	h.AddAttribute("sf_rapid", "long_name", "overturning streamfunction from RAPID-style components")
	h.AddAttribute("sf_rapid", "units", "Sv")

	h.Define()
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("rapidmoc: creating output file: %v", err)
	}

	timeVals := make([]float64, nt)
	for i, t := range r.Time {
		timeVals[i] = t.Sub(sfOutEpoch).Hours() / 24
	}
	vectors := map[string][]float64{
		"time":   timeVals,
		"depth":  r.Depth,
		"ekman":  r.Ekman,
		"geoint": r.Geostrophic,
		"residual": r.Residual,
		"net":    r.Net,
		"moc":    r.MOC,
		"q_net":  r.Heat,
		"fw_net": r.Freshwater,
	}
	if r.FloridaCurrent != nil {
		vectors["fc"] = r.FloridaCurrent
	}
	for name, vals := range vectors {
		if err := writeNCFVector(f, name, vals); err != nil {
			return err
		}
	}
	if err := writeNCFArray(f, "sf_model", r.Streamfunction); err != nil {
		return err
	}
	return writeNCFArray(f, "sf_rapid", r.RapidStreamfunction)
}

// SaveTransports writes r to its configured output location and returns the
// path written. The file is closed on every exit path.
func SaveTransports(r *TransportResult, outdir, name, dateFormat string) (string, error) {
	path := r.Filepath(outdir, name, dateFormat)
	w, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("rapidmoc: creating %s: %v", path, err)
	}
	if err := r.Write(w); err != nil {
		w.Close()
		os.Remove(path)
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("rapidmoc: closing %s: %v", path, err)
	}
	return path, nil
}

func writeNCFVector(f *cdf.File, name string, vals []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(vals); err != nil {
		return fmt.Errorf("rapidmoc: writing variable %s: %v", name, err)
	}
	return nil
}

func writeNCFArray(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("rapidmoc: writing variable %s: dims are %d but array length is %d",
			name, n, len(data.Elements))
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data.Elements); err != nil {
		return fmt.Errorf("rapidmoc: writing variable %s: %v", name, err)
	}
	return nil
}
