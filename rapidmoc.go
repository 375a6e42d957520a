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

// Package rapidmoc computes RAPID-array-style Atlantic meridional
// overturning circulation transport diagnostics from ocean model output
// along a fixed-latitude section, and compares the result against the RAPID
// observational reference datasets.
//
// The pipeline is strictly linear: four sections are loaded from NetCDF
// model output, temperature and salinity are interpolated onto the velocity
// grid, the transport decomposition is computed, and the result is plotted
// against any configured observations and written to a NetCDF file.
package rapidmoc

// Version gives the version number.
const Version = "1.1.0"
