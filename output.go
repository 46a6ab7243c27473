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

// Result writing: one raster stack per enabled output variable and one
// text file per outlet.

package hydromap

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
)

// outputVariable describes one gridded output: where its value comes
// from, its unit, and the scale factor of its integer storage.
type outputVariable struct {
	name  string
	units string
	scale float64
	value func(c *Cell) float64
}

// outputVariables lists every gridded quantity the model can emit.
var outputVariables = []outputVariable{
	{"Rs", "kJ/m2/h", 0.1, func(c *Cell) float64 { return c.Out.Rs }},
	{"L_sky", "kJ/m2/h", 0.1, func(c *Cell) float64 { return c.Out.Lsky }},
	{"Rno", "kJ/m2/h", 0.1, func(c *Cell) float64 { return c.Out.Rno }},
	{"Rnu", "kJ/m2/h", 0.1, func(c *Cell) float64 { return c.Out.Rnu }},
	{"Ep", "m/h", 1e-7, func(c *Cell) float64 { return c.Out.Ep }},
	{"EI_o", "m", 1e-6, func(c *Cell) float64 { return c.Out.EIo }},
	{"EI_u", "m", 1e-6, func(c *Cell) float64 { return c.Out.EIu }},
	{"ET_o", "m", 1e-6, func(c *Cell) float64 { return c.Out.ETo }},
	{"ET_u", "m", 1e-6, func(c *Cell) float64 { return c.Out.ETu }},
	{"ET_s", "m", 1e-6, func(c *Cell) float64 { return c.Out.ETs }},
	{"Interception_o", "m", 1e-6, func(c *Cell) float64 { return c.InterceptionO }},
	{"Interception_u", "m", 1e-6, func(c *Cell) float64 { return c.InterceptionU }},
	{"SM_Upper", "fraction", 1e-4, func(c *Cell) float64 { return c.SMUpper }},
	{"SM_Lower", "fraction", 1e-4, func(c *Cell) float64 { return c.SMLower }},
	{"SW_Infiltration", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWInfiltration }},
	{"SW_Percolation_Upper", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWPercolationUpper }},
	{"SW_Percolation_Lower", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWPercolationLower }},
	{"SW_Run_Infil", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWRunInfil }},
	{"SW_Run_Satur", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWRunSatur }},
	{"SW_SUB_Qin", "m3/h", 1e-3, func(c *Cell) float64 { return c.Out.SWSubQin }},
	{"SW_SUB_Qout", "m3/h", 1e-3, func(c *Cell) float64 { return c.Out.SWSubQout }},
	{"SW_SUB_z", "m", 1e-4, func(c *Cell) float64 { return c.Out.SWSubZ }},
	{"SW_SUB_rise_upper", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWSubRiseUpper }},
	{"SW_SUB_rise_lower", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWSubRiseLower }},
	{"SW_SUB_rf", "m", 1e-6, func(c *Cell) float64 { return c.Out.SWSubRf }},
	{"SW_SUB_Qc", "m3/h", 1e-3, func(c *Cell) float64 { return c.Out.SWSubQc }},
	{"Q_Channel", "m3/h", 1e-3, func(c *Cell) float64 { return c.Out.QChannel }},
}

// OutputNames lists the names of every available gridded output
// variable.
func OutputNames() []string {
	names := make([]string, len(outputVariables))
	for i, v := range outputVariables {
		names[i] = v.name
	}
	return names
}

// outputStack is one open result stack being written step by step.
type outputStack struct {
	outputVariable
	file *os.File
	cf   *cdf.File
}

// OutputRecorder writes the enabled gridded output variables, one
// NetCDF stack each, as the simulation advances.
type OutputRecorder struct {
	grid   Grid
	stacks []*outputStack
}

// NewOutputRecorder creates one result stack per enabled variable in
// dir. Unknown names in enabled are a ConfigError.
func NewOutputRecorder(dir string, enabled map[string]bool, g Grid, clock StepClock) (*OutputRecorder, error) {
	byName := make(map[string]outputVariable, len(outputVariables))
	for _, v := range outputVariables {
		byName[v.name] = v
	}
	for name := range enabled {
		if _, ok := byName[name]; !ok {
			return nil, configErrorf("", 0, "unknown output variable %q", name)
		}
	}
	rec := &OutputRecorder{grid: g}
	for _, v := range outputVariables {
		if !enabled[v.name] {
			continue
		}
		path := filepath.Join(dir, v.name+".nc")
		h := cdf.NewHeader([]string{"time", "lat", "lon"},
			[]int{0, g.Nrows, g.Ncols})
		addGridAttrs(h, g)
		h.AddAttribute("", "STEP_TIME", []int32{int32(clock.StepHours)})
		h.AddAttribute("", "START_EPOCH", []int32{int32(clock.Epoch())})
		h.AddVariable(v.name, []string{"time", "lat", "lon"}, []int32{0})
		h.AddAttribute(v.name, "units", v.units)
		h.AddAttribute(v.name, "scale_factor", []float64{v.scale})
		h.Define()

		ff, err := os.Create(path)
		if err != nil {
			rec.Close()
			return nil, outputErrorf(path, "%v", err)
		}
		cf, err := cdf.Create(ff, h)
		if err != nil {
			ff.Close()
			rec.Close()
			return nil, outputErrorf(path, "%v", err)
		}
		rec.stacks = append(rec.stacks, &outputStack{
			outputVariable: v, file: ff, cf: cf})
	}
	return rec, nil
}

// RecordStep appends the current step's frame of every enabled
// variable.
func (r *OutputRecorder) RecordStep(d *Model) error {
	g := r.grid
	n := g.Nrows * g.Ncols
	buf := make([]int32, n)
	for _, s := range r.stacks {
		for i := range buf {
			buf[i] = int32(g.Nodata)
		}
		for _, c := range d.land {
			buf[c.Row*g.Ncols+c.Col] = int32(math.Round(s.value(c) / s.scale))
		}
		start := []int{d.Step, 0, 0}
		end := []int{d.Step + 1, g.Nrows, g.Ncols}
		w := s.cf.Writer(s.name, start, end)
		if _, err := w.Write(buf); err != nil {
			return outputErrorf(s.file.Name(), "%v", err)
		}
	}
	return nil
}

// Close finalises the record counts and closes every stack.
func (r *OutputRecorder) Close() error {
	var firstErr error
	for _, s := range r.stacks {
		if err := cdf.UpdateNumRecs(s.file); err != nil && firstErr == nil {
			firstErr = outputErrorf(s.file.Name(), "%v", err)
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = outputErrorf(s.file.Name(), "%v", err)
		}
	}
	return firstErr
}

// RecordOutputs returns a DomainManipulator appending the step's frames
// to the enabled output stacks.
func RecordOutputs() DomainManipulator {
	return func(d *Model) error {
		if d.frames == nil {
			return nil
		}
		return d.frames.RecordStep(d)
	}
}

// outletChannels names the discharge columns of the outlet text files.
var outletChannels = []string{"Qout_SF", "Qout_Sub", "Qout_Channel", "Qout_outlet"}

// WriteOutletSeries writes one text file per outlet: '#'-prefixed
// header lines followed by whitespace-separated columns per time step
// for the enabled discharge channels.
func WriteOutletSeries(dir string, series []*OutletSeries, enabled map[string]bool) error {
	for s := range enabled {
		known := false
		for _, c := range outletChannels {
			if s == c {
				known = true
			}
		}
		if !known {
			return configErrorf("", 0, "unknown discharge channel %q", s)
		}
	}
	for idx, s := range series {
		path := filepath.Join(dir, fmt.Sprintf("outlet%d.txt", idx))
		f, err := os.Create(path)
		if err != nil {
			return outputErrorf(path, "%v", err)
		}
		w := bufio.NewWriter(f)
		fmt.Fprintf(w, "# outlet: %d\n# row: %d\n# col: %d\n# unit: m3/s\n# length: %d\n# variables:\n",
			idx, s.Row, s.Col, len(s.QTotal))
		cols := make([][]float64, 0, len(outletChannels))
		for _, name := range outletChannels {
			if !enabled[name] {
				continue
			}
			fmt.Fprintf(w, "# - %s\n", name)
			switch name {
			case "Qout_SF":
				cols = append(cols, s.QSurface)
			case "Qout_Sub":
				cols = append(cols, s.QSubsurface)
			case "Qout_Channel":
				cols = append(cols, s.QChannel)
			case "Qout_outlet":
				cols = append(cols, s.QTotal)
			}
		}
		for t := range s.QTotal {
			for ci, col := range cols {
				if ci > 0 {
					w.WriteByte(' ')
				}
				fmt.Fprintf(w, "%.3f", col[t])
			}
			w.WriteByte('\n')
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return outputErrorf(path, "%v", err)
		}
		if err := f.Close(); err != nil {
			return outputErrorf(path, "%v", err)
		}
	}
	return nil
}
