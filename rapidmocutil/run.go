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
)

// Run executes the full diagnostic pipeline: load the four input sections,
// interpolate temperature and salinity onto the velocity grid, compute the
// transport decomposition, render comparison figures when requested, and
// write the result. It returns the path of the output file. Any stage error
// aborts the run before the output file is created.
func Run(log *logrus.Logger, cfg *viper.Viper, tfile, sfile, taufile, vfile string) (string, error) {
	c, err := SectionConfig(cfg)
	if err != nil {
		return "", err
	}
	outdir, err := checkOutdir(cfg.GetString("output.outdir"))
	if err != nil {
		return "", err
	}
	dateFormat := cfg.GetString("output.date_format")

	type input struct {
		file string
		kind rapidmoc.FieldKind
	}
	sections := make(map[rapidmoc.FieldKind]*rapidmoc.ZonalSection)
	for _, in := range []input{
		{tfile, rapidmoc.Temperature},
		{sfile, rapidmoc.Salinity},
		{taufile, rapidmoc.WindStress},
		{vfile, rapidmoc.MeridionalVelocity},
	} {
		log.WithFields(logrus.Fields{
			"file":  in.file,
			"field": in.kind.String(),
		}).Info("loading section")
		sec, err := rapidmoc.LoadSection(in.file, c, in.kind)
		if err != nil {
			return "", err
		}
		sections[in.kind] = sec
	}
	v := sections[rapidmoc.MeridionalVelocity]
	tau := sections[rapidmoc.WindStress]

	log.Info("interpolating temperature and salinity onto the velocity grid")
	tOnV, err := rapidmoc.Interpolate(sections[rapidmoc.Temperature], v)
	if err != nil {
		return "", err
	}
	sOnV, err := rapidmoc.Interpolate(sections[rapidmoc.Salinity], v)
	if err != nil {
		return "", err
	}

	log.Info("computing transports")
	trans, err := rapidmoc.CalcTransportsFromSections(c, v, tau, tOnV, sOnV)
	if err != nil {
		return "", err
	}
	for quantity, value := range trans.Summary() {
		log.WithField(quantity, fmt.Sprint(value)).Info("time-mean diagnostic")
	}

	if cfg.GetBool("output.plot") {
		obs, err := rapidmoc.LoadObservations(ObsConfig(cfg))
		if err != nil {
			return "", err
		}
		log.Info("rendering comparison figures")
		if err := rapidmoc.PlotDiagnostics(trans, obs, c.Name, outdir, dateFormat); err != nil {
			return "", err
		}
	}

	return rapidmoc.SaveTransports(trans, outdir, c.Name, dateFormat)
}
