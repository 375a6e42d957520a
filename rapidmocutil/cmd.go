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
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rapidmoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger = logrus.StandardLogger()

var options []struct {
	name, flag, usage, shorthand string
	defaultVal                   interface{}
	flagsets                     []*pflag.FlagSet
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Options are the configuration options available to RapidMoc. The
	// option name is the configuration-file key; flag, when set, renames
	// the corresponding command-line flag.
	options = []struct {
		name, flag, usage, shorthand string
		defaultVal                   interface{}
		flagsets                     []*pflag.FlagSet
	}{
		{
			name: "output.name",
			flag: "name",
			usage: `
              name is used in output file names and plot titles.
              Overrides the value in the configuration file.`,
			defaultVal: "simulated",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output.outdir",
			flag: "outdir",
			usage: `
              outdir is the directory that output data and figures are
              written to. Overrides the value in the configuration file.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output.date_format",
			usage: `
              output.date_format is the Go reference-time layout used to
              format dates in output file names.`,
			defaultVal: "20060102",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output.plot",
			usage: `
              output.plot specifies whether to render comparison figures
              against the configured observations.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "section.latitude",
			usage: `
              section.latitude is the latitude of the zonal section
              [degrees north].`,
			defaultVal: 26.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "section.minlon",
			usage: `
              section.minlon is the western limit of the section
              [degrees east].`,
			defaultVal: -81.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "section.maxlon",
			usage: `
              section.maxlon is the eastern limit of the section
              [degrees east].`,
			defaultVal: -12.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "section.mindepth",
			usage: `
              section.mindepth is the shallow limit of the section [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "section.maxdepth",
			usage: `
              section.maxdepth is the deep limit of the section [m].`,
			defaultVal: 6000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "temperature.var",
			usage: `
              temperature.var is the NetCDF variable name of potential
              temperature in the temperature input file.`,
			defaultVal: "thetao",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "salinity.var",
			usage: `
              salinity.var is the NetCDF variable name of salinity in the
              salinity input file.`,
			defaultVal: "so",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "windstress.var",
			usage: `
              windstress.var is the NetCDF variable name of zonal wind
              stress in the wind stress input file.`,
			defaultVal: "tauuo",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "velocity.var",
			usage: `
              velocity.var is the NetCDF variable name of meridional
              velocity in the velocity input file.`,
			defaultVal: "vo",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.rho0",
			usage: `
              physics.rho0 is the Boussinesq reference density [kg/m3].`,
			defaultVal: 1025.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.cp",
			usage: `
              physics.cp is the specific heat capacity of seawater
              [J/(kg K)].`,
			defaultVal: 3985.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.alpha",
			usage: `
              physics.alpha is the thermal expansion coefficient of the
              linear equation of state [1/K].`,
			defaultVal: 1.67e-4,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.beta",
			usage: `
              physics.beta is the haline contraction coefficient of the
              linear equation of state [1/(g/kg)].`,
			defaultVal: 7.8e-4,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.tref",
			usage: `
              physics.tref is the reference temperature of the linear
              equation of state [degC].`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.sref",
			usage: `
              physics.sref is the reference salinity of the linear
              equation of state [g/kg].`,
			defaultVal: 35.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.ekman_depth",
			usage: `
              physics.ekman_depth is the depth over which the Ekman
              transport is distributed when building the RAPID-style
              streamfunction [m].`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "physics.net_transport",
			usage: `
              physics.net_transport is the mass-balance closure target
              for the section [Sv].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RAPIDMOC")

	for _, option := range options {
		flagName := option.flag
		if flagName == "" {
			flagName = option.name
		}
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(flagName))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(flagName, v, option.usage)
				} else {
					set.StringP(flagName, option.shorthand, v, option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(flagName, v, option.usage)
				} else {
					set.BoolP(flagName, option.shorthand, v, option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(flagName, v, option.usage)
				} else {
					set.Float64P(flagName, option.shorthand, v, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(flagName))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig reads in the configuration file at the given path.
func setConfig(cfgpath string) error {
	Cfg.SetConfigFile(cfgpath)
	if err := Cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("rapidmoc: problem reading configuration file: %v", err)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "rapidmoc",
	Short: "Calculate RAPID AMOC diagnostics using ocean model data.",
	Long: `RapidMoc calculates Atlantic meridional overturning circulation transport
diagnostics from ocean model output along a fixed-latitude section,
reproducing the methodology of the RAPID mooring array at 26.5N, and
compares the result against the RAPID observational datasets.

Configuration can be changed by using a configuration file (passed as the
first positional argument of the run command), by using command-line
arguments, or by setting environment variables in the format 'RAPIDMOC_var'
where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of RapidMoc.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("RapidMoc v%s\n", rapidmoc.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run config_file tfile sfile taufile vfile",
	Short: "Compute the transport diagnostics for one section.",
	Long: `run reads the temperature, salinity, zonal wind stress, and meridional
velocity files (paths may be glob patterns for multi-file datasets),
computes the RAPID transport decomposition for the configured section, and
writes the result to the configured output directory.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfig(args[0]); err != nil {
			return err
		}
		path, err := Run(logger, Cfg, args[1], args[2], args[3], args[4])
		if err != nil {
			return err
		}
		cmd.Printf("SAVING: %s\n", path)
		return nil
	},
	DisableAutoGenTag: true,
}
