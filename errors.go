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

import "fmt"

// ConfigError indicates a missing or invalid configuration option.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rapidmoc: configuration option %s: %s", e.Option, e.Reason)
}

// DataLoadError indicates that an input or observation file could not be
// read: the file is missing or unreadable, the named variable is not in the
// file, or the configured bounds select no data.
type DataLoadError struct {
	File     string
	Variable string
	Err      error
}

func (e *DataLoadError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("rapidmoc: loading variable %s from %s: %v", e.Variable, e.File, e.Err)
	}
	return fmt.Sprintf("rapidmoc: loading %s: %v", e.File, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// InterpolationError indicates a precondition violation during regridding:
// a non-monotonic or degenerate source grid, or incompatible section shapes.
type InterpolationError struct {
	Source string
	Target string
	Reason string
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("rapidmoc: interpolating %s onto %s grid: %s", e.Source, e.Target, e.Reason)
}

// ComputationError indicates that the transport calculation could not
// proceed: mismatched section shapes, an invalid physical constant, or a
// failed mass-balance closure.
type ComputationError struct {
	Quantity string
	Reason   string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("rapidmoc: computing %s: %s", e.Quantity, e.Reason)
}
