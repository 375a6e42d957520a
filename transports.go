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
	"time"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// physical constants
const (
	gravity           = 9.81        // m/s2
	earthRotationRate = 7.292116e-5 // rad/s
	earthRadius       = 6371229.    // m
	degToRad          = math.Pi / 180.

	m3sPerSv  = 1.e6  // m3/s per Sverdrup
	wattPerPW = 1.e15 // W per petawatt
)

// TransportResult holds the integrated transport diagnostics for one zonal
// section. All volume transports are in Sverdrups and heat transports in
// petawatts; each diagnostic is a time series aligned with Time.
type TransportResult struct {
	Name     string
	Latitude float64

	Time  []time.Time
	Depth []float64 // [m], strictly increasing

	Ekman          []float64 // wind-driven transport [Sv]
	Geostrophic    []float64 // interior thermal-wind transport [Sv]
	FloridaCurrent []float64 // western-boundary transport [Sv]; nil when not configured
	Residual       []float64 // closure correction and ageostrophic remainder [Sv]
	Net            []float64 // section-integrated volume transport [Sv]
	MOC            []float64 // overturning strength, max of the streamfunction [Sv]

	Heat       []float64 // meridional heat transport [PW]
	Freshwater []float64 // meridional freshwater transport [Sv]

	// Streamfunction is the overturning streamfunction computed from the
	// (mass-corrected) model velocities, shaped (time, depth) [Sv].
	Streamfunction *sparse.DenseArray
	// RapidStreamfunction is the RAPID-style approximation built from the
	// Ekman, geostrophic, and western-boundary components [Sv].
	RapidStreamfunction *sparse.DenseArray
}

// CalcTransportsFromSections computes the RAPID transport decomposition for
// one zonal section. The temperature and salinity sections must already be
// interpolated onto the velocity grid; the wind stress section stays on its
// native grid. The computation is pure: the input sections are not modified
// and no files are touched.
func CalcTransportsFromSections(cfg *Config, v, tau *ZonalSection, tOnV, sOnV *InterpolatedSection) (*TransportResult, error) {
	if v == nil || tau == nil || tOnV == nil || sOnV == nil {
		return nil, &ComputationError{Quantity: "transports", Reason: "missing input section"}
	}
	if v.Surface() {
		return nil, &ComputationError{Quantity: "transports", Reason: "velocity section has no depth dimension"}
	}
	if !sameShape(v.Data.Shape, tOnV.Data.Shape) || !sameShape(v.Data.Shape, sOnV.Data.Shape) {
		return nil, &ComputationError{Quantity: "transports",
			Reason: "temperature/salinity shape does not match velocity shape"}
	}
	if tau.Data.Shape[0] != v.Data.Shape[0] {
		return nil, &ComputationError{Quantity: "ekman transport",
			Reason: "wind stress and velocity have different numbers of time records"}
	}
	if cfg.GeoRef == nil {
		return nil, &ConfigError{Option: "physics.georef",
			Reason: "level of no motion must be set to compute geostrophic transport"}
	}
	f := cfg.CoriolisParameter()
	if math.IsNaN(f) || math.Abs(f) < 1.e-10 {
		return nil, &ComputationError{Quantity: "ekman transport",
			Reason: "Coriolis parameter vanishes at the configured latitude"}
	}

	nt := v.Data.Shape[0]
	nz := len(v.Depth)
	nx := len(v.Longitude)

	dx := cellWidths(v.Longitude, cfg.Latitude)
	dz := cellHeights(v.Depth)
	dxTau := cellWidths(tau.Longitude, cfg.Latitude)

	kref := refLevel(v.Depth, *cfg.GeoRef)
	ekWeights := layerWeights(v.Depth, dz, cfg.EkmanDepth)

	r := &TransportResult{
		Name:     cfg.Name,
		Latitude: cfg.Latitude,
		Time:     v.Time,
		Depth:    v.Depth,

		Ekman:       make([]float64, nt),
		Geostrophic: make([]float64, nt),
		Residual:    make([]float64, nt),
		Net:         make([]float64, nt),
		MOC:         make([]float64, nt),
		Heat:        make([]float64, nt),
		Freshwater:  make([]float64, nt),

		Streamfunction:      sparse.ZerosDense(nt, nz),
		RapidStreamfunction: sparse.ZerosDense(nt, nz),
	}
	if cfg.FloridaCurrent != nil {
		r.FloridaCurrent = make([]float64, nt)
	}

	for t := 0; t < nt; t++ {
		// Ekman transport from the zonally integrated wind stress.
		var ek float64
		for i := 0; i < len(tau.Longitude); i++ {
			tx := tau.Data.Get(t, i)
			if math.IsNaN(tx) {
				continue
			}
			ek += -tx * dxTau[i] / (cfg.Rho0 * f)
		}
		r.Ekman[t] = ek / m3sPerSv

		// Geostrophic interior from thermal wind on the zonal density
		// gradient, referenced to the level of no motion.
		vgeo, dxMid := thermalWind(cfg, f, t, tOnV, sOnV, kref)
		geoProfile := make([]float64, nz)
		var geo float64
		for k := 0; k < nz; k++ {
			for p := 0; p < nx-1; p++ {
				if cfg.FloridaCurrent != nil && inRange(midLon(v.Longitude, p), cfg.FloridaCurrent) {
					continue
				}
				vg := vgeo.Get(k, p)
				if math.IsNaN(vg) {
					continue
				}
				geoProfile[k] += vg * dxMid[p] * dz[k]
			}
			geo += geoProfile[k]
		}
		r.Geostrophic[t] = geo / m3sPerSv

		// Direct section integral of the model velocities and the
		// barotropic correction closing the configured mass balance.
		var direct, area float64
		for k := 0; k < nz; k++ {
			for i := 0; i < nx; i++ {
				vv := v.Data.Get(t, k, i)
				if math.IsNaN(vv) {
					continue
				}
				direct += vv * dx[i] * dz[k]
				area += dx[i] * dz[k]
			}
		}
		if area == 0 {
			return nil, &ComputationError{Quantity: "net transport",
				Reason: "velocity section contains no valid data"}
		}
		target := cfg.NetTransport * m3sPerSv
		vCorr := (target - direct) / area

		// Florida Current: direct integral over the western-boundary
		// sub-section, including the barotropic correction.
		var fc float64
		if cfg.FloridaCurrent != nil {
			for k := 0; k < nz; k++ {
				for i := 0; i < nx; i++ {
					if !inRange(v.Longitude[i], cfg.FloridaCurrent) {
						continue
					}
					vv := v.Data.Get(t, k, i)
					if math.IsNaN(vv) {
						continue
					}
					fc += (vv + vCorr) * dx[i] * dz[k]
				}
			}
			r.FloridaCurrent[t] = fc / m3sPerSv
		}

		r.Net[t] = target / m3sPerSv
		r.Residual[t] = r.Net[t] - r.Ekman[t] - r.Geostrophic[t] - fc/m3sPerSv

		// Overturning streamfunction by cumulative depth integration of
		// the corrected transport profile.
		var psi, psiRapid float64
		for k := 0; k < nz; k++ {
			var layer float64
			for i := 0; i < nx; i++ {
				vv := v.Data.Get(t, k, i)
				if math.IsNaN(vv) {
					continue
				}
				layer += (vv + vCorr) * dx[i] * dz[k]
			}
			psi += layer
			r.Streamfunction.Set(psi/m3sPerSv, t, k)

			// RAPID-style approximation: Ekman spread over the Ekman
			// layer, plus thermal-wind interior, plus the western
			// boundary taken from the model velocities.
			rapidLayer := ek*ekWeights[k] + geoProfile[k]
			if cfg.FloridaCurrent != nil {
				for i := 0; i < nx; i++ {
					if !inRange(v.Longitude[i], cfg.FloridaCurrent) {
						continue
					}
					vv := v.Data.Get(t, k, i)
					if math.IsNaN(vv) {
						continue
					}
					rapidLayer += (vv + vCorr) * dx[i] * dz[k]
				}
			}
			psiRapid += rapidLayer
			r.RapidStreamfunction.Set(psiRapid/m3sPerSv, t, k)
		}
		r.MOC[t] = maxOverDepth(r.Streamfunction, t)

		// Heat and freshwater transports from velocity-weighted tracer
		// integrals over the section.
		var q, fwNum, sSum, sArea float64
		for k := 0; k < nz; k++ {
			for i := 0; i < nx; i++ {
				vv := v.Data.Get(t, k, i)
				th := tOnV.Data.Get(t, k, i)
				sa := sOnV.Data.Get(t, k, i)
				if math.IsNaN(vv) {
					continue
				}
				if !math.IsNaN(th) {
					q += (vv + vCorr) * th * dx[i] * dz[k]
				}
				if !math.IsNaN(sa) {
					sSum += sa * dx[i] * dz[k]
					sArea += dx[i] * dz[k]
				}
			}
		}
		r.Heat[t] = cfg.Rho0 * cfg.Cp * q / wattPerPW
		if sArea > 0 {
			sBar := sSum / sArea
			for k := 0; k < nz; k++ {
				for i := 0; i < nx; i++ {
					vv := v.Data.Get(t, k, i)
					sa := sOnV.Data.Get(t, k, i)
					if math.IsNaN(vv) || math.IsNaN(sa) {
						continue
					}
					fwNum += (vv + vCorr) * (sa - sBar) * dx[i] * dz[k]
				}
			}
			r.Freshwater[t] = -fwNum / sBar / m3sPerSv
		}
	}
	return r, nil
}

// thermalWind returns the geostrophic velocity between adjacent velocity
// columns at time t, shaped (depth, column pairs), together with the
// distance between the column centers. Velocities are referenced to zero at
// the level of no motion index kref.
func thermalWind(cfg *Config, f float64, t int, tOnV, sOnV *InterpolatedSection, kref int) (*sparse.DenseArray, []float64) {
	nz := len(tOnV.Depth)
	nx := len(tOnV.Longitude)
	depth := tOnV.Depth

	dxMid := make([]float64, nx-1)
	for p := 0; p < nx-1; p++ {
		dxMid[p] = earthRadius * math.Cos(cfg.Latitude*degToRad) *
			(tOnV.Longitude[p+1] - tOnV.Longitude[p]) * degToRad
	}

	// Vertical shear dv/d(depth) = g/(rho0 f) * drho/dx at each pair.
	shear := sparse.ZerosDense(nz, nx-1)
	for k := 0; k < nz; k++ {
		for p := 0; p < nx-1; p++ {
			rhoW := density(cfg, tOnV.Data.Get(t, k, p), sOnV.Data.Get(t, k, p))
			rhoE := density(cfg, tOnV.Data.Get(t, k, p+1), sOnV.Data.Get(t, k, p+1))
			shear.Set(gravity/(cfg.Rho0*f)*(rhoE-rhoW)/dxMid[p], k, p)
		}
	}

	vgeo := sparse.ZerosDense(nz, nx-1)
	for p := 0; p < nx-1; p++ {
		vgeo.Set(0, kref, p)
		for k := kref - 1; k >= 0; k-- {
			dv := 0.5 * (shear.Get(k, p) + shear.Get(k+1, p)) * (depth[k+1] - depth[k])
			vgeo.Set(vgeo.Get(k+1, p)-dv, k, p)
		}
		for k := kref + 1; k < nz; k++ {
			dv := 0.5 * (shear.Get(k, p) + shear.Get(k-1, p)) * (depth[k] - depth[k-1])
			vgeo.Set(vgeo.Get(k-1, p)+dv, k, p)
		}
	}
	return vgeo, dxMid
}

// density is the linear equation of state about the configured reference
// state. NaN tracer values yield NaN density.
func density(cfg *Config, theta, s float64) float64 {
	return cfg.Rho0 * (1 - cfg.Alpha*(theta-cfg.TRef) + cfg.Beta*(s-cfg.SRef))
}

// refLevel returns the index of the deepest level at or above the level of
// no motion.
func refLevel(depth []float64, georef float64) int {
	kref := 0
	for k, d := range depth {
		if d <= georef {
			kref = k
		}
	}
	return kref
}

// cellWidths returns the zonal width [m] of each grid column.
func cellWidths(lon []float64, lat float64) []float64 {
	scale := earthRadius * math.Cos(lat*degToRad) * degToRad
	return cellSpans(lon, scale)
}

// cellHeights returns the vertical extent [m] of each grid level.
func cellHeights(depth []float64) []float64 {
	return cellSpans(depth, 1)
}

// cellSpans converts cell-center coordinates into cell spans using midpoint
// edges, with one-sided spans at the boundaries.
func cellSpans(x []float64, scale float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 1 {
		out[0] = scale
		return out
	}
	for i := range x {
		switch i {
		case 0:
			out[i] = (x[1] - x[0]) * scale
		case n - 1:
			out[i] = (x[n-1] - x[n-2]) * scale
		default:
			out[i] = (x[i+1] - x[i-1]) / 2 * scale
		}
	}
	return out
}

// layerWeights returns the fraction of each grid level lying within the
// surface layer of the given thickness. The weights sum to 1.
func layerWeights(depth, dz []float64, layerDepth float64) []float64 {
	w := make([]float64, len(depth))
	var total float64
	for k := range depth {
		top := depth[k] - dz[k]/2
		bottom := depth[k] + dz[k]/2
		overlap := math.Min(bottom, layerDepth) - math.Max(top, 0)
		if overlap > 0 {
			w[k] = overlap
			total += overlap
		}
	}
	if total == 0 { // Ekman layer shallower than the first level.
		w[0] = 1
		return w
	}
	for k := range w {
		w[k] /= total
	}
	return w
}

func midLon(lon []float64, p int) float64 { return 0.5 * (lon[p] + lon[p+1]) }

func inRange(x float64, r *LonRange) bool { return x >= r.Min && x <= r.Max }

func maxOverDepth(sf *sparse.DenseArray, t int) float64 {
	max := math.Inf(-1)
	for k := 0; k < sf.Shape[1]; k++ {
		if v := sf.Get(t, k); v > max {
			max = v
		}
	}
	return max
}

func sameShape(a, b []int) bool {
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

// Summary returns time-mean values of the main diagnostics as dimensioned
// quantities for reporting.
func (r *TransportResult) Summary() map[string]*unit.Unit {
	return map[string]*unit.Unit{
		"moc":        unit.New(stats.StatsMean(r.MOC)*m3sPerSv, unit.Meter3PerSecond),
		"ekman":      unit.New(stats.StatsMean(r.Ekman)*m3sPerSv, unit.Meter3PerSecond),
		"heat":       unit.New(stats.StatsMean(r.Heat)*wattPerPW, unit.Watt),
		"freshwater": unit.New(stats.StatsMean(r.Freshwater)*m3sPerSv, unit.Meter3PerSecond),
	}
}
