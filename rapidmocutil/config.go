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
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/rapidmoc"
	"github.com/spf13/cast"
)

// SectionConfig extracts an immutable section configuration from cfg. The
// returned value is passed read-only to every pipeline stage; keys that are
// optional by design (level of no motion, explicit Coriolis parameter, the
// Florida Current sub-section) are nil when absent rather than defaulted.
func SectionConfig(cfg *viper.Viper) (*rapidmoc.Config, error) {
	c := &rapidmoc.Config{
		Name:     cfg.GetString("output.name"),
		Latitude: cast.ToFloat64(cfg.Get("section.latitude")),
		MinLon:   cast.ToFloat64(cfg.Get("section.minlon")),
		MaxLon:   cast.ToFloat64(cfg.Get("section.maxlon")),
		MinDepth: cast.ToFloat64(cfg.Get("section.mindepth")),
		MaxDepth: cast.ToFloat64(cfg.Get("section.maxdepth")),

		TempVar: cfg.GetString("temperature.var"),
		SalVar:  cfg.GetString("salinity.var"),
		TauVar:  cfg.GetString("windstress.var"),
		VelVar:  cfg.GetString("velocity.var"),

		Rho0:  cast.ToFloat64(cfg.Get("physics.rho0")),
		Cp:    cast.ToFloat64(cfg.Get("physics.cp")),
		Alpha: cast.ToFloat64(cfg.Get("physics.alpha")),
		Beta:  cast.ToFloat64(cfg.Get("physics.beta")),
		TRef:  cast.ToFloat64(cfg.Get("physics.tref")),
		SRef:  cast.ToFloat64(cfg.Get("physics.sref")),

		EkmanDepth:   cast.ToFloat64(cfg.Get("physics.ekman_depth")),
		NetTransport: cast.ToFloat64(cfg.Get("physics.net_transport")),
	}
	if c.MinLon >= c.MaxLon {
		return nil, &rapidmoc.ConfigError{Option: "section.minlon",
			Reason: "section.minlon must be less than section.maxlon"}
	}
	if c.MinDepth >= c.MaxDepth {
		return nil, &rapidmoc.ConfigError{Option: "section.mindepth",
			Reason: "section.mindepth must be less than section.maxdepth"}
	}
	if c.Rho0 <= 0 {
		return nil, &rapidmoc.ConfigError{Option: "physics.rho0",
			Reason: "reference density must be positive"}
	}
	if cfg.IsSet("physics.georef") {
		georef := cast.ToFloat64(cfg.Get("physics.georef"))
		c.GeoRef = &georef
	}
	if cfg.IsSet("physics.coriolis") {
		f := cast.ToFloat64(cfg.Get("physics.coriolis"))
		c.Coriolis = &f
	}
	if cfg.IsSet("section.fc_minlon") != cfg.IsSet("section.fc_maxlon") {
		return nil, &rapidmoc.ConfigError{Option: "section.fc_minlon",
			Reason: "section.fc_minlon and section.fc_maxlon must be set together"}
	}
	if cfg.IsSet("section.fc_minlon") {
		c.FloridaCurrent = &rapidmoc.LonRange{
			Min: cast.ToFloat64(cfg.Get("section.fc_minlon")),
			Max: cast.ToFloat64(cfg.Get("section.fc_maxlon")),
		}
		if c.FloridaCurrent.Min >= c.FloridaCurrent.Max {
			return nil, &rapidmoc.ConfigError{Option: "section.fc_minlon",
				Reason: "section.fc_minlon must be less than section.fc_maxlon"}
		}
	}
	return c, nil
}

// ObsConfig extracts the observation configuration from cfg. Each dataset
// key is carried over only when present; absence means the comparison is
// intentionally skipped.
func ObsConfig(cfg *viper.Viper) *rapidmoc.ObsConfig {
	return &rapidmoc.ObsConfig{
		TimeAvg:          cfg.GetString("observations.time_avg"),
		Streamfunctions:  os.ExpandEnv(cfg.GetString("observations.streamfunctions")),
		FloridaCurrent:   os.ExpandEnv(cfg.GetString("observations.florida_current")),
		VolumeTransports: os.ExpandEnv(cfg.GetString("observations.volume_transports")),
		HeatTransports:   os.ExpandEnv(cfg.GetString("observations.heat_transports")),
	}
}

// checkOutdir makes sure the output directory exists, expanding any
// environment variables.
func checkOutdir(outdir string) (string, error) {
	outdir = os.ExpandEnv(outdir)
	if _, err := os.Stat(outdir); err != nil {
		return outdir, &rapidmoc.ConfigError{Option: "output.outdir",
			Reason: "the output directory doesn't exist: " + err.Error()}
	}
	return outdir, nil
}
