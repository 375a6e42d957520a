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

package rapidmocutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rapidmoc"
)

// writeSection writes a synthetic model section file for one variable on a
// fixed test grid.
func writeSection(t *testing.T, path, varName string, surface bool, val float64) {
	t.Helper()
	lon := []float64{-75, -65, -55, -45, -35, -25}
	depth := []float64{250, 750, 1250, 1750, 2250, 2750}
	timeVals := []float64{0, 31}

	dims := []string{"time", "depth", "lon"}
	lens := []int{len(timeVals), len(depth), len(lon)}
	if surface {
		dims = []string{"time", "lon"}
		lens = []int{len(timeVals), len(lon)}
	}
	h := cdf.NewHeader(dims, lens)
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "days since 2004-01-01 00:00:00")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	if !surface {
		h.AddVariable("depth", []string{"depth"}, []float64{0})
	}
	h.AddVariable(varName, dims, []float32{0})
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
	writeVec("time", timeVals)
	writeVec("lon", lon)
	if !surface {
		writeVec("depth", depth)
	}
	n := len(timeVals) * len(lon)
	if !surface {
		n *= len(depth)
	}
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = float32(val)
	}
	end := f.Header.Lengths(varName)
	start := make([]int, len(end))
	if _, err := f.Writer(varName, start, end).Write(vals); err != nil {
		t.Fatal(err)
	}
}

// testInputs writes the four input section files and returns their paths.
func testInputs(t *testing.T, dir string) (tfile, sfile, taufile, vfile string) {
	t.Helper()
	tfile = filepath.Join(dir, "thetao.nc")
	sfile = filepath.Join(dir, "so.nc")
	taufile = filepath.Join(dir, "tauuo.nc")
	vfile = filepath.Join(dir, "vo.nc")
	writeSection(t, tfile, "thetao", false, 10)
	writeSection(t, sfile, "so", false, 35)
	writeSection(t, taufile, "tauuo", true, 0.1)
	writeSection(t, vfile, "vo", false, 0.01)
	return
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	tfile, sfile, taufile, vfile := testInputs(t, dir)

	cfg := baseCfg()
	cfg.Set("output.outdir", dir)
	cfg.Set("output.date_format", "20060102")
	cfg.Set("output.plot", false)
	cfg.Set("physics.georef", 2750.0)

	path, err := Run(logrus.New(), cfg, tfile, sfile, taufile, vfile)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file not written: %v", err)
	}
}

func TestRunWithPlots(t *testing.T) {
	dir := t.TempDir()
	tfile, sfile, taufile, vfile := testInputs(t, dir)

	cfg := baseCfg()
	cfg.Set("output.outdir", dir)
	cfg.Set("output.date_format", "20060102")
	cfg.Set("output.plot", true)
	cfg.Set("physics.georef", 2750.0)

	if _, err := Run(logrus.New(), cfg, tfile, sfile, taufile, vfile); err != nil {
		t.Fatal(err)
	}
	figs, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(figs) != 3 {
		t.Errorf("figures written: got %d, want 3", len(figs))
	}
}

func TestRunMissingGeoref(t *testing.T) {
	dir := t.TempDir()
	tfile, sfile, taufile, vfile := testInputs(t, dir)

	cfg := baseCfg()
	cfg.Set("output.outdir", dir)
	cfg.Set("output.date_format", "20060102")
	cfg.Set("output.plot", false)

	_, err := Run(logrus.New(), cfg, tfile, sfile, taufile, vfile)
	var cfgErr *rapidmoc.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want ConfigError", err)
	}
	// A failed run must not leave an output file behind.
	if matches, _ := filepath.Glob(filepath.Join(dir, "*transports*.nc")); len(matches) != 0 {
		t.Errorf("output written despite failure: %v", matches)
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	tfile, sfile, taufile, vfile := testInputs(t, dir)

	cfgfile := filepath.Join(dir, "config.toml")
	config := fmt.Sprintf(`
[output]
name = "e2e"
outdir = %q
date_format = "20060102"
plot = false

[section]
latitude = 26.5
minlon = -80.0
maxlon = -13.0
mindepth = 0.0
maxdepth = 6000.0

[physics]
georef = 2750.0
`, dir)
	if err := os.WriteFile(cfgfile, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	Root.SetArgs([]string{"run", cfgfile, tfile, sfile, taufile, vfile})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "e2e_natl_meridional_transports_at_26.5N_*.nc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("output files: got %v, want 1 match", matches)
	}
}

func TestRunCommandFlagOverrides(t *testing.T) {
	// Command-line flags beat the values in the configuration file.
	t.Cleanup(func() {
		resetFlag(t, "name", "simulated")
		resetFlag(t, "outdir", ".")
	})
	dirA := t.TempDir()
	dirB := t.TempDir()
	tfile, sfile, taufile, vfile := testInputs(t, dirA)

	cfgfile := filepath.Join(dirA, "config.toml")
	config := fmt.Sprintf(`
[output]
name = "fromfile"
outdir = %q
date_format = "20060102"
plot = false

[section]
latitude = 26.5
minlon = -80.0
maxlon = -13.0
mindepth = 0.0
maxdepth = 6000.0

[physics]
georef = 2750.0
`, dirA)
	if err := os.WriteFile(cfgfile, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	Root.SetArgs([]string{"run", "--name", "fromflag", "--outdir", dirB,
		cfgfile, tfile, sfile, taufile, vfile})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	inB, err := filepath.Glob(filepath.Join(dirB, "fromflag_natl_meridional_transports_at_26.5N_*.nc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(inB) != 1 {
		t.Errorf("flag-directed output: got %v, want 1 match in %s", inB, dirB)
	}
	if inA, _ := filepath.Glob(filepath.Join(dirA, "*transports*.nc")); len(inA) != 0 {
		t.Errorf("output written to config-file directory despite --outdir: %v", inA)
	}
}

func TestVersionCommand(t *testing.T) {
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
}
