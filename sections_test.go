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
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
)

// testConfig returns a configuration matching the grids written by
// writeModelFile.
func testConfig() *Config {
	georef := 4750.
	return &Config{
		Name:     "test",
		Latitude: 26.5,
		MinLon:   -80, MaxLon: -13,
		MinDepth: 0, MaxDepth: 6000,

		TempVar: "thetao", SalVar: "so", TauVar: "tauuo", VelVar: "vo",

		Rho0: 1025, Cp: 3985,
		Alpha: 1.67e-4, Beta: 7.8e-4,
		TRef: 10, SRef: 35,

		GeoRef:       &georef,
		EkmanDepth:   100,
		NetTransport: 0,
	}
}

// modelGrid describes a synthetic section grid for writeModelFile.
type modelGrid struct {
	lon, depth []float64 // depth nil for surface fields
	timeVals   []float64 // offsets in timeUnits (days since 2004-01-01 by default)
	timeUnits  string
	units      string
	// value returns the field value at (t, k, i); k is 0 for surface
	// fields.
	value func(t, k, i int) float64
}

// writeModelFile writes a synthetic NetCDF model output file containing
// varName on the given grid.
func writeModelFile(t *testing.T, path, varName string, g modelGrid) {
	t.Helper()
	dims := []string{"time", "depth", "lon"}
	lens := []int{len(g.timeVals), len(g.depth), len(g.lon)}
	varDims := dims
	if g.depth == nil {
		dims = []string{"time", "lon"}
		lens = []int{len(g.timeVals), len(g.lon)}
		varDims = dims
	}
	h := cdf.NewHeader(dims, lens)
	h.AddVariable("time", []string{"time"}, []float64{0})
	timeUnits := g.timeUnits
	if timeUnits == "" {
		timeUnits = "days since 2004-01-01 00:00:00"
	}
	h.AddAttribute("time", "units", timeUnits)
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	if g.depth != nil {
		h.AddVariable("depth", []string{"depth"}, []float64{0})
	}
	h.AddVariable(varName, varDims, []float32{0})
	if g.units != "" {
		h.AddAttribute(varName, "units", g.units)
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	writeVec := func(name string, vals []float64) {
		end := f.Header.Lengths(name)
		start := make([]int, len(end))
		if _, err := f.Writer(name, start, end).Write(vals); err != nil {
			t.Fatal(err)
		}
	}
	writeVec("time", g.timeVals)
	writeVec("lon", g.lon)
	if g.depth != nil {
		writeVec("depth", g.depth)
	}

	nz := 1
	if g.depth != nil {
		nz = len(g.depth)
	}
	vals := make([]float32, len(g.timeVals)*nz*len(g.lon))
	n := 0
	for tt := range g.timeVals {
		for k := 0; k < nz; k++ {
			for i := range g.lon {
				vals[n] = float32(g.value(tt, k, i))
				n++
			}
		}
	}
	end := f.Header.Lengths(varName)
	start := make([]int, len(end))
	if _, err := f.Writer(varName, start, end).Write(vals); err != nil {
		t.Fatal(err)
	}
}

func defaultGrid() modelGrid {
	return modelGrid{
		lon:      []float64{-75, -65, -55, -45, -35, -25},
		depth:    []float64{250, 750, 1250, 1750, 2250, 2750},
		timeVals: []float64{0, 31},
		value:    func(t, k, i int) float64 { return 10 },
	}
}

func TestLoadSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thetao.nc")
	g := defaultGrid()
	g.value = func(tt, k, i int) float64 { return float64(tt*100 + k*10 + i) }
	writeModelFile(t, path, "thetao", g)

	cfg := testConfig()
	sec, err := LoadSection(path, cfg, Temperature)
	if err != nil {
		t.Fatal(err)
	}
	if sec.Kind != Temperature {
		t.Errorf("kind: got %v", sec.Kind)
	}
	if len(sec.Time) != 2 {
		t.Errorf("time records: got %d, want 2", len(sec.Time))
	}
	if got := sec.Time[0].Format("2006-01-02"); got != "2004-01-01" {
		t.Errorf("first time record: got %s, want 2004-01-01", got)
	}
	if len(sec.Longitude) != len(g.lon) || len(sec.Depth) != len(g.depth) {
		t.Errorf("grid: got (%d, %d), want (%d, %d)",
			len(sec.Longitude), len(sec.Depth), len(g.lon), len(g.depth))
	}
	if got, want := sec.Data.Get(1, 2, 3), 123.; got != want {
		t.Errorf("data value: got %g, want %g", got, want)
	}
	if sec.Bounds.MinLon != cfg.MinLon || sec.Bounds.MaxDepth != cfg.MaxDepth {
		t.Errorf("bounds not recorded from configuration")
	}
}

func TestLoadSectionBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vo.nc")
	writeModelFile(t, path, "vo", defaultGrid())

	cfg := testConfig()
	cfg.MinLon, cfg.MaxLon = -66, -24 // drops the first longitude
	cfg.MaxDepth = 2000               // drops the two deepest levels
	sec, err := LoadSection(path, cfg, MeridionalVelocity)
	if err != nil {
		t.Fatal(err)
	}
	if len(sec.Longitude) != 5 {
		t.Errorf("longitudes: got %d, want 5", len(sec.Longitude))
	}
	if sec.Longitude[0] != -65 {
		t.Errorf("western longitude: got %g, want -65", sec.Longitude[0])
	}
	if len(sec.Depth) != 4 {
		t.Errorf("depths: got %d, want 4", len(sec.Depth))
	}
	if sec.Depth[len(sec.Depth)-1] != 1750 {
		t.Errorf("deepest level: got %g, want 1750", sec.Depth[len(sec.Depth)-1])
	}
}

func TestLoadSectionEmptySelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vo.nc")
	writeModelFile(t, path, "vo", defaultGrid())

	cfg := testConfig()
	cfg.MinLon, cfg.MaxLon = 10, 20 // east of all data
	_, err := LoadSection(path, cfg, MeridionalVelocity)
	var loadErr *DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want DataLoadError", err)
	}
}

func TestLoadSectionMissingVariable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thetao.nc")
	writeModelFile(t, path, "somethingelse", defaultGrid())

	_, err := LoadSection(path, testConfig(), Temperature)
	var loadErr *DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want DataLoadError", err)
	}
	if loadErr.Variable != "thetao" {
		t.Errorf("error variable: got %s, want thetao", loadErr.Variable)
	}
}

func TestLoadSectionMissingFile(t *testing.T) {
	_, err := LoadSection(filepath.Join(t.TempDir(), "nope*.nc"), testConfig(), Temperature)
	var loadErr *DataLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want DataLoadError", err)
	}
}

func TestLoadSectionKelvin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thetao.nc")
	g := defaultGrid()
	g.units = "K"
	g.value = func(t, k, i int) float64 { return 283.15 }
	writeModelFile(t, path, "thetao", g)

	sec, err := LoadSection(path, testConfig(), Temperature)
	if err != nil {
		t.Fatal(err)
	}
	if sec.Units != "degC" {
		t.Errorf("units: got %q, want degC", sec.Units)
	}
	if got := sec.Data.Get(0, 0, 0); math.Abs(got-10) > 1.e-4 {
		t.Errorf("converted temperature: got %g, want 10", got)
	}
}

func TestLoadSectionMultiFile(t *testing.T) {
	dir := t.TempDir()
	g1 := defaultGrid()
	g1.timeVals = []float64{0}
	g1.value = func(t, k, i int) float64 { return 1 }
	writeModelFile(t, filepath.Join(dir, "vo_a.nc"), "vo", g1)
	g2 := defaultGrid()
	g2.timeVals = []float64{31}
	g2.value = func(t, k, i int) float64 { return 2 }
	writeModelFile(t, filepath.Join(dir, "vo_b.nc"), "vo", g2)

	sec, err := LoadSection(filepath.Join(dir, "vo_*.nc"), testConfig(), MeridionalVelocity)
	if err != nil {
		t.Fatal(err)
	}
	if len(sec.Time) != 2 {
		t.Fatalf("time records: got %d, want 2", len(sec.Time))
	}
	if !sec.Time[0].Before(sec.Time[1]) {
		t.Errorf("time records out of order after concatenation")
	}
	if sec.Data.Get(0, 0, 0) != 1 || sec.Data.Get(1, 0, 0) != 2 {
		t.Errorf("data not concatenated in file order")
	}
}

func TestLoadSectionSurfaceField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tauuo.nc")
	g := defaultGrid()
	g.depth = nil
	g.value = func(t, k, i int) float64 { return 0.1 }
	writeModelFile(t, path, "tauuo", g)

	sec, err := LoadSection(path, testConfig(), WindStress)
	if err != nil {
		t.Fatal(err)
	}
	if !sec.Surface() {
		t.Fatal("wind stress section should be a surface field")
	}
	if len(sec.Data.Shape) != 2 {
		t.Errorf("shape: got %v, want 2-D", sec.Data.Shape)
	}
}

func TestCFTime(t *testing.T) {
	// 731580 days from 0001-01-01: years 1-2003 hold 485 leap days, so
	// 2003*365 + 485 days later is 2004-01-01.
	epoch := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		val  float64
		step time.Duration
		want string
	}{
		{731580, 24 * time.Hour, "2004-01-01 00:00:00"},
		{731580.5, 24 * time.Hour, "2004-01-01 12:00:00"},
		{731580 * 24, time.Hour, "2004-01-01 00:00:00"},
		{15, 24 * time.Hour, "0001-01-16 00:00:00"},
	}
	for _, test := range tests {
		got := cfTime(epoch, test.val, test.step)
		if got.Format("2006-01-02 15:04:05") != test.want {
			t.Errorf("%g steps of %v: got %v, want %s", test.val, test.step, got, test.want)
		}
	}
}

func TestLoadSectionDistantEpoch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vo.nc")
	g := defaultGrid()
	g.timeUnits = "days since 0001-01-01 00:00:00"
	g.timeVals = []float64{731580, 731611}
	writeModelFile(t, path, "vo", g)

	sec, err := LoadSection(path, testConfig(), MeridionalVelocity)
	if err != nil {
		t.Fatal(err)
	}
	if got := sec.Time[0].Format("2006-01-02"); got != "2004-01-01" {
		t.Errorf("first time record: got %s, want 2004-01-01", got)
	}
	if got := sec.Time[1].Format("2006-01-02"); got != "2004-02-01" {
		t.Errorf("second time record: got %s, want 2004-02-01", got)
	}
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units string
		ok    bool
	}{
		{"days since 1900-01-01 00:00:00", true},
		{"hours since 2004-01-01", true},
		{"seconds since 1970-01-01 00:00:00", true},
		{"fortnights since 1900-01-01", false},
		{"", false},
	}
	for _, test := range tests {
		_, _, err := parseTimeUnits(test.units)
		if (err == nil) != test.ok {
			t.Errorf("%q: err=%v, want ok=%v", test.units, err, test.ok)
		}
	}
}

func TestBoundIndices(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	tests := []struct {
		min, max float64
		i0, i1   int
	}{
		{0, 4, 0, 5},
		{0.5, 3.5, 1, 4},
		{1, 3, 1, 4},
		{10, 20, 5, 5},
	}
	for _, test := range tests {
		i0, i1 := boundIndices(x, test.min, test.max)
		if i0 != test.i0 || i1 != test.i1 {
			t.Errorf("[%g, %g]: got (%d, %d), want (%d, %d)",
				test.min, test.max, i0, i1, test.i0, test.i1)
		}
	}
}
