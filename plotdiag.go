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
	"image/color"
	"math"
	"path/filepath"
	"time"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	modelColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rapidColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	obsColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	fcColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// PlotDiagnostics renders the comparison figures for r into outdir. Each
// observation comparison is drawn only when the corresponding dataset was
// configured; with no observations the figures show model data alone.
func PlotDiagnostics(r *TransportResult, obs *Observations, name, outdir, dateFormat string) error {
	if obs == nil {
		obs = &Observations{}
	}
	if err := plotStreamfunctions(r, obs.Streamfunction, name, outdir, dateFormat); err != nil {
		return err
	}
	if err := plotVolumeTransports(r, obs.Volume, obs.FloridaCurrent, name, outdir, dateFormat); err != nil {
		return err
	}
	return plotHeatTransports(r, obs.Heat, name, outdir, dateFormat)
}

// plotStreamfunctions draws the time-mean overturning streamfunction
// profiles against depth, with the observed profile when available.
func plotStreamfunctions(r *TransportResult, obs *StreamfunctionObs, name, outdir, dateFormat string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: overturning streamfunction at %gN", name, r.Latitude)
	p.X.Label.Text = "Transport (Sv)"
	p.Y.Label.Text = "Depth (m)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	model := timeMeanProfile(r.Streamfunction)
	rapid := timeMeanProfile(r.RapidStreamfunction)

	lnModel, err := plotter.NewLine(profileXYs(model, r.Depth))
	if err != nil {
		return fmt.Errorf("rapidmoc: plotting streamfunctions: %v", err)
	}
	lnModel.Color = modelColor
	p.Add(lnModel)
	p.Legend.Add("model", lnModel)

	lnRapid, err := plotter.NewLine(profileXYs(rapid, r.Depth))
	if err != nil {
		return fmt.Errorf("rapidmoc: plotting streamfunctions: %v", err)
	}
	lnRapid.Color = rapidColor
	lnRapid.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(lnRapid)
	p.Legend.Add("model (RAPID approx)", lnRapid)

	if obs != nil {
		obsProfile := timeMeanProfile(obs.Streamfunction)
		lnObs, err := plotter.NewLine(profileXYs(obsProfile, obs.Depth))
		if err != nil {
			return fmt.Errorf("rapidmoc: plotting streamfunctions: %v", err)
		}
		lnObs.Color = obsColor
		p.Add(lnObs)
		label := "RAPID observations"
		if r2, ok := profileRSquared(model, r.Depth, obsProfile, obs.Depth); ok {
			label = fmt.Sprintf("RAPID observations (r2=%.2f)", r2)
		}
		p.Legend.Add(label, lnObs)
	}
	p.Legend.Top = false
	return p.Save(5*vg.Inch, 6*vg.Inch, plotPath(outdir, name, r, "streamfunctions", dateFormat))
}

// plotVolumeTransports draws the volume transport component time series.
func plotVolumeTransports(r *TransportResult, obs *VolumeTransportObs, fcObs *FloridaCurrentObs, name, outdir, dateFormat string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: volume transports at %gN", name, r.Latitude)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Transport (Sv)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	for _, s := range []struct {
		label string
		times []time.Time
		vals  []float64
		c     color.RGBA
		dash  bool
	}{
		{"MOC (model)", r.Time, r.MOC, modelColor, false},
		{"Ekman (model)", r.Time, r.Ekman, rapidColor, false},
	} {
		if err := addSeries(p, s.label, s.times, s.vals, s.c, s.dash); err != nil {
			return err
		}
	}
	if r.FloridaCurrent != nil {
		if err := addSeries(p, "Florida Current (model)", r.Time, r.FloridaCurrent, fcColor, false); err != nil {
			return err
		}
	}
	if obs != nil {
		if err := addSeries(p, "MOC (RAPID)", obs.Time, obs.MOC, obsColor, true); err != nil {
			return err
		}
		if err := addSeries(p, "Ekman (RAPID)", obs.Time, obs.Ekman, obsColor, false); err != nil {
			return err
		}
	}
	if fcObs != nil {
		if err := addSeries(p, "Florida Current (cable)", fcObs.Time, fcObs.Transport, fcColor, true); err != nil {
			return err
		}
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, plotPath(outdir, name, r, "volume_transports", dateFormat))
}

// plotHeatTransports draws the heat transport time series.
func plotHeatTransports(r *TransportResult, obs *HeatTransportObs, name, outdir, dateFormat string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: heat transport at %gN", name, r.Latitude)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Heat transport (PW)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	if err := addSeries(p, "total (model)", r.Time, r.Heat, modelColor, false); err != nil {
		return err
	}
	if obs != nil {
		if err := addSeries(p, "total (RAPID)", obs.Time, obs.Total, obsColor, true); err != nil {
			return err
		}
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, plotPath(outdir, name, r, "heat_transports", dateFormat))
}

// addSeries adds a labeled time series line to p, annotating the label with
// the series mean and sample standard deviation.
func addSeries(p *plot.Plot, label string, times []time.Time, vals []float64, c color.RGBA, dashed bool) error {
	xys := make(plotter.XYs, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(times[i].Unix()), Y: v})
	}
	ln, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("rapidmoc: plotting %s: %v", label, err)
	}
	ln.Color = c
	if dashed {
		ln.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}
	p.Add(ln)
	mean := stats.StatsMean(vals)
	sd := 0.
	if len(vals) > 1 {
		sd = stats.StatsSampleStandardDeviation(vals)
	}
	p.Legend.Add(fmt.Sprintf("%s: %.1f±%.1f", label, mean, sd), ln)
	return nil
}

// profileRSquared regresses the observed streamfunction profile against the
// model profile interpolated onto the observed depths.
func profileRSquared(model, modelDepth, obs, obsDepth []float64) (float64, bool) {
	var x, y []float64
	for k, d := range obsDepth {
		v := interp1d(modelDepth, model, d)
		if math.IsNaN(v) || math.IsNaN(obs[k]) {
			continue
		}
		x = append(x, v)
		y = append(y, obs[k])
	}
	if len(x) < 3 {
		return 0, false
	}
	_, _, r2, _, _, _ := stats.LinearRegression(x, y)
	return r2, true
}

func timeMeanProfile(sf *sparse.DenseArray) []float64 {
	nt, nz := sf.Shape[0], sf.Shape[1]
	out := make([]float64, nz)
	for k := 0; k < nz; k++ {
		var sum float64
		var n int
		for t := 0; t < nt; t++ {
			v := sf.Get(t, k)
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			out[k] = sum / float64(n)
		} else {
			out[k] = math.NaN()
		}
	}
	return out
}

func profileXYs(vals, depth []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(vals))
	for k, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: v, Y: depth[k]})
	}
	return xys
}

func plotPath(outdir, name string, r *TransportResult, kind, dateFormat string) string {
	t0 := r.Time[0].Format(dateFormat)
	t1 := r.Time[len(r.Time)-1].Format(dateFormat)
	return filepath.Join(outdir, fmt.Sprintf("%s_%s_at_%gN_%s-%s.png", name, kind, r.Latitude, t0, t1))
}
