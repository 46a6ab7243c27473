/*
Copyright © 2024 the hydromap authors.
This file is part of hydromap.

hydromap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hydromap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hydromap.  If not, see <http://www.gnu.org/licenses/>.
*/

package hydromap

import (
	"math"
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// ForcingVars lists the meteorological stack names expected by the
// simulation, in the order they are reported.
var ForcingVars = []string{
	"PRE", "PRS", "RHU", "SSD", "WIN", "TEM_AVG", "TEM_MAX", "TEM_MIN",
}

// ForcingStack is one open meteorological raster stack with dimensions
// (time, lat, lon).
type ForcingStack struct {
	Name string

	file *os.File
	cf   *cdf.File

	grid      Grid
	scale     float64
	stepHours int
	start     time.Time
	steps     int
}

// Close releases the underlying file.
func (s *ForcingStack) Close() error { return s.file.Close() }

// OpenForcingStack opens one forcing stack and reads its geometry and
// calendar attributes.
func OpenForcingStack(path, name string) (*ForcingStack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "%v", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, inputErrorf(path, "%v", err)
	}
	s := &ForcingStack{Name: name, file: f, cf: cf}

	dims := cf.Header.Lengths(name)
	if len(dims) != 3 {
		f.Close()
		return nil, inputErrorf(path, "variable %s has %d dimensions, want 3",
			name, len(dims))
	}
	s.steps = dims[0]
	if s.steps == 0 {
		// Record variable: the record count comes from the file size.
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, inputErrorf(path, "%v", err)
		}
		s.steps = int(cf.Header.NumRecs(fi.Size()))
	}
	s.grid.Nrows = dims[1]
	s.grid.Ncols = dims[2]
	s.grid.Cellsize = attrFloat(cf, "", "cellsize_m")
	s.grid.Xll = attrFloat(cf, "", "xllcorner")
	s.grid.Yll = attrFloat(cf, "", "yllcorner")
	s.grid.CellsizeDeg = attrFloat(cf, "", "cellsize_deg")
	s.grid.Nodata = int(attrFloat(cf, "", "NODATA_value"))
	s.stepHours = int(attrFloat(cf, "", "STEP_TIME"))
	s.start = time.Unix(int64(attrFloat(cf, "", "START_EPOCH")), 0).UTC()
	s.scale = attrFloat(cf, name, "scale_factor")
	if s.scale == 0 {
		s.scale = 1
	}
	return s, nil
}

// frame reads the raster at the given stack-local time index.
func (s *ForcingStack) frame(index int) (*sparse.DenseArray, error) {
	data, err := readFrame(s.cf, s.Name, index)
	if err != nil {
		return nil, inputErrorf(s.file.Name(), "%v", err)
	}
	if s.scale != 1 {
		for i, v := range data.Elements {
			if !isNodataValue(v, s.grid.Nodata) {
				data.Elements[i] = v * s.scale
			}
		}
	}
	return data, nil
}

// ForcingSet bundles the eight meteorological stacks of a run.
type ForcingSet struct {
	grid      Grid
	stepHours int
	stacks    map[string]*ForcingStack
}

// OpenForcings opens all forcing stacks and validates that they agree
// with the terrain grid and with each other on geometry and step time,
// and that they cover the simulation window [start, start+nSteps·Δt].
// Any mismatch is fatal.
func OpenForcings(paths map[string]string, g Grid, clock StepClock, nSteps int) (*ForcingSet, error) {
	set := &ForcingSet{grid: g, stacks: make(map[string]*ForcingStack)}
	for _, name := range ForcingVars {
		path, ok := paths[name]
		if !ok {
			return nil, inputErrorf("", "no path configured for forcing %s", name)
		}
		s, err := OpenForcingStack(path, name)
		if err != nil {
			set.Close()
			return nil, err
		}
		if !s.grid.SameShape(g) {
			set.Close()
			return nil, inputErrorf(path,
				"forcing %s grid %dx%d (cell %g m) does not match terrain %dx%d (cell %g m)",
				name, s.grid.Nrows, s.grid.Ncols, s.grid.Cellsize,
				g.Nrows, g.Ncols, g.Cellsize)
		}
		if s.stepHours != clock.StepHours {
			set.Close()
			return nil, inputErrorf(path,
				"forcing %s step time %d h does not match simulation step %d h",
				name, s.stepHours, clock.StepHours)
		}
		winStart := clock.Time(0)
		winEnd := clock.Time(nSteps)
		cover := s.start.Add(time.Duration(s.steps*s.stepHours) * time.Hour)
		if winStart.Before(s.start) || winEnd.After(cover) {
			set.Close()
			return nil, inputErrorf(path,
				"forcing %s covers [%v, %v] but the simulation window is [%v, %v]",
				name, s.start, cover, winStart, winEnd)
		}
		set.stacks[name] = s
		set.stepHours = s.stepHours
	}
	return set, nil
}

// Close releases every stack.
func (s *ForcingSet) Close() {
	for _, st := range s.stacks {
		st.Close()
	}
}

// ForcingFrame is the complete set of per-cell meteorological fields of
// one time step.
type ForcingFrame struct {
	grid Grid
	step int
	data map[string]*sparse.DenseArray
}

// Frame assembles the forcing frame of simulation step `step` on clock
// `clock`.
func (s *ForcingSet) Frame(clock StepClock, step int) (*ForcingFrame, error) {
	frame := &ForcingFrame{grid: s.grid, step: step,
		data: make(map[string]*sparse.DenseArray)}
	when := clock.Time(step)
	for name, st := range s.stacks {
		index := int(when.Sub(st.start).Hours()) / st.stepHours
		data, err := st.frame(index)
		if err != nil {
			return nil, err
		}
		frame.data[name] = data
	}
	return frame, nil
}

// forcingCell is the meteorology of one cell for one step.
type forcingCell struct {
	Prec     float64 // precipitation over the step [m]
	TemAvg   float64 // average air temperature [°C]
	TemMin   float64 // minimum air temperature [°C]
	TemMax   float64 // maximum air temperature [°C]
	Wind     float64 // wind speed [m/s]
	Rhu      float64 // relative humidity [%]
	AirPres  float64 // air pressure [kPa]
	Sunshine float64 // sunshine duration [h/step]
}

// At extracts the forcing of one cell, verifying that no field is NaN.
func (f *ForcingFrame) At(row, col int) (forcingCell, error) {
	get := func(name string) (float64, error) {
		v := f.data[name].Get(row, col)
		if math.IsNaN(v) {
			return 0, domainErrorf(row, col, f.step, "NaN %s forcing", name)
		}
		return v, nil
	}
	var c forcingCell
	var err error
	if c.Prec, err = get("PRE"); err != nil {
		return c, err
	}
	c.Prec /= 1000 // mm -> m
	if c.AirPres, err = get("PRS"); err != nil {
		return c, err
	}
	if c.Rhu, err = get("RHU"); err != nil {
		return c, err
	}
	if c.Sunshine, err = get("SSD"); err != nil {
		return c, err
	}
	if c.Wind, err = get("WIN"); err != nil {
		return c, err
	}
	if c.TemAvg, err = get("TEM_AVG"); err != nil {
		return c, err
	}
	if c.TemMax, err = get("TEM_MAX"); err != nil {
		return c, err
	}
	if c.TemMin, err = get("TEM_MIN"); err != nil {
		return c, err
	}
	return c, nil
}

// attrFloat reads a numeric attribute from a cdf file, tolerating the
// integer and float storage classes.
func attrFloat(cf *cdf.File, varName, attr string) float64 {
	switch v := cf.Header.GetAttribute(varName, attr).(type) {
	case []float64:
		if len(v) > 0 {
			return v[0]
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0])
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0])
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0])
		}
	}
	return 0
}

// readFrame reads the 2-D raster at time index `index` of variable
// `name`, converting whatever storage class the file uses to float64.
func readFrame(cf *cdf.File, name string, index int) (*sparse.DenseArray, error) {
	dims := cf.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, outputErrorf("", "variable %v not in file", name)
	}
	dims = dims[1:]
	nread := 1
	for _, d := range dims {
		nread *= d
	}
	start := []int{index, 0, 0}
	end := []int{index + 1, dims[0], dims[1]}
	r := cf.Reader(name, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float64:
		copy(data.Elements, b)
	case []float32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int8:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, outputErrorf("", "variable %v: unsupported storage class", name)
	}
	return data, nil
}
