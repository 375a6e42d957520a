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
)

// LonRange is a closed longitude interval [Min, Max] in degrees east.
type LonRange struct {
	Min, Max float64
}

// Config holds the section geometry, NetCDF variable names, and physical
// constants consumed by the section loader and the transport calculator.
// It is constructed once by the command layer and never mutated afterwards;
// every pipeline stage reads the same value.
type Config struct {
	// Name identifies the section in output files and plots.
	Name string

	// Latitude is the latitude of the zonal section [degrees north].
	Latitude float64

	// Section bounds [degrees east, m]. Data outside these bounds is
	// discarded at load time.
	MinLon, MaxLon     float64
	MinDepth, MaxDepth float64

	// FloridaCurrent, if non-nil, is the longitude range of the western
	// boundary sub-section whose transport is reported separately.
	FloridaCurrent *LonRange

	// NetCDF variable names for each input file.
	TempVar, SalVar, TauVar, VelVar string

	// Rho0 is the Boussinesq reference density [kg/m3].
	Rho0 float64
	// Cp is the specific heat capacity of seawater [J/(kg K)].
	Cp float64
	// Alpha and Beta are the thermal expansion [1/K] and haline
	// contraction [1/(g/kg)] coefficients of the linear equation of state,
	// referenced to TRef [degC] and SRef [g/kg].
	Alpha, Beta float64
	TRef, SRef  float64

	// GeoRef is the level of no motion [m] anchoring the thermal-wind
	// integration. It must be set when geostrophic transport is computed.
	GeoRef *float64

	// EkmanDepth is the depth [m] over which the Ekman transport is
	// distributed when building the overturning streamfunction.
	EkmanDepth float64

	// NetTransport is the mass-balance closure target for the section [Sv].
	NetTransport float64

	// Coriolis, if non-nil, overrides the Coriolis parameter derived
	// from Latitude [1/s].
	Coriolis *float64
}

// CoriolisParameter returns the Coriolis parameter for the section [1/s].
func (c *Config) CoriolisParameter() float64 {
	if c.Coriolis != nil {
		return *c.Coriolis
	}
	return 2 * earthRotationRate * math.Sin(c.Latitude*degToRad)
}

// VarName returns the configured NetCDF variable name for the given field.
func (c *Config) VarName(kind FieldKind) (string, error) {
	var name, option string
	switch kind {
	case Temperature:
		name, option = c.TempVar, "temperature.var"
	case Salinity:
		name, option = c.SalVar, "salinity.var"
	case WindStress:
		name, option = c.TauVar, "windstress.var"
	case MeridionalVelocity:
		name, option = c.VelVar, "velocity.var"
	default:
		return "", fmt.Errorf("rapidmoc: unknown field kind %v", kind)
	}
	if name == "" {
		return "", &ConfigError{Option: option, Reason: "variable name not set"}
	}
	return name, nil
}

// ObsConfig names the observational reference datasets to compare against.
// An empty path means the corresponding dataset is not configured and its
// comparison is skipped; it is not an error.
type ObsConfig struct {
	// TimeAvg is "" (no averaging), "monthly", or "annual".
	TimeAvg string

	Streamfunctions  string
	FloridaCurrent   string
	VolumeTransports string
	HeatTransports   string
}
