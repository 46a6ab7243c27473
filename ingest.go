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

// Forcing ingestion: assembling a stack of pre-gridded ASCII frames
// into one NetCDF forcing file with scale-factor integer storage.

package hydromap

import (
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
)

// ForcingIngest describes one forcing-stack assembly job.
type ForcingIngest struct {
	// VarName is the stack variable name (one of ForcingVars).
	VarName string
	// FrameTemplate is the path of the per-step ASCII frames, with
	// [STEP] standing in for the zero-based step index.
	FrameTemplate string
	// Steps is the number of frames.
	Steps int
	// Scale is the scale_factor of the integer storage.
	Scale float64
	// Clock provides the start epoch and the step length.
	Clock StepClock
	// Grid is the terrain geometry every frame must match.
	Grid Grid
}

// framePath resolves the ASCII frame path of one step.
func (ing *ForcingIngest) framePath(step int) string {
	return strings.Replace(ing.FrameTemplate, "[STEP]", strconv.Itoa(step), -1)
}

// IngestForcing assembles the frames into the NetCDF stack at outPath.
// The stored values are the frame integers unchanged (the frames are
// expected pre-scaled, e.g. 0.1 mm units for precipitation); the scale
// factor is recorded as a variable attribute for readers.
func IngestForcing(ing *ForcingIngest, outPath string) error {
	ok := false
	for _, v := range ForcingVars {
		if v == ing.VarName {
			ok = true
		}
	}
	if !ok {
		return configErrorf("", 0, "unknown forcing variable %q", ing.VarName)
	}

	h := cdf.NewHeader([]string{"time", "lat", "lon"},
		[]int{0, ing.Grid.Nrows, ing.Grid.Ncols})
	addGridAttrs(h, ing.Grid)
	h.AddAttribute("", "STEP_TIME", []int32{int32(ing.Clock.StepHours)})
	h.AddAttribute("", "START_EPOCH", []int32{int32(ing.Clock.Epoch())})
	h.AddVariable(ing.VarName, []string{"time", "lat", "lon"}, []int32{0})
	h.AddAttribute(ing.VarName, "scale_factor", []float64{ing.Scale})
	h.Define()

	ff, err := os.Create(outPath)
	if err != nil {
		return outputErrorf(outPath, "%v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return outputErrorf(outPath, "%v", err)
	}

	buf := make([]int32, ing.Grid.Nrows*ing.Grid.Ncols)
	for s := 0; s < ing.Steps; s++ {
		frame, err := ReadASCIIGrid(ing.framePath(s))
		if err != nil {
			return err
		}
		if frame.Ncols != ing.Grid.Ncols || frame.Nrows != ing.Grid.Nrows {
			return inputErrorf(ing.framePath(s),
				"frame is %dx%d, want %dx%d", frame.Nrows, frame.Ncols,
				ing.Grid.Nrows, ing.Grid.Ncols)
		}
		for i, v := range frame.Data.Elements {
			buf[i] = int32(v)
		}
		start := []int{s, 0, 0}
		end := []int{s + 1, ing.Grid.Nrows, ing.Grid.Ncols}
		w := f.Writer(ing.VarName, start, end)
		if _, err := w.Write(buf); err != nil {
			return outputErrorf(outPath, "%v", err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return outputErrorf(outPath, "%v", err)
	}
	return nil
}
