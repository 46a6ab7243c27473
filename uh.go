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

// One-time construction of the grid Unit Hydrographs: terrain slope,
// the slope-area velocity field, per-outlet upstream masks via D8
// tracing, flow times, and the linear-reservoir-plus-delay ordinates.

package hydromap

import (
	"math"
	"os"
	"strconv"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// UHParams govern the Unit Hydrograph construction. A cached UH
// artifact is only reused while these match.
type UHParams struct {
	// VelocityAvg, VelocityMax and VelocityMin bound the overland flow
	// velocity field [m/h].
	VelocityAvg, VelocityMax, VelocityMin float64
	// B and C are the slope and accumulated-area exponents of the
	// slope-area term.
	B, C float64
	// Beta is the reservoir share of the per-cell residence time.
	Beta float64
	// StepHours is the routing time step [h].
	StepHours int
}

// OutletUH is the Unit Hydrograph of one outlet.
type OutletUH struct {
	// Row and Col locate the outlet cell.
	Row, Col int
	// Mask flags the upstream cells contributing to this outlet.
	Mask *IntRaster
	// UH is the per-cell hydrograph tensor with shape
	// [steps, nrows, ncols]; masked-out cells hold the nodata value.
	UH *sparse.DenseArray
	// Steps is the hydrograph horizon in time steps.
	Steps int
}

// UHSet is the complete Unit Hydrograph artifact of a terrain.
type UHSet struct {
	Params  UHParams
	Grid    Grid
	Outlets []*OutletUH

	// Slope, FlowDistance, SlopeArea and Velocity are the intermediate
	// terrain fields, kept for diagnostics output.
	Slope, FlowDistance, SlopeArea, Velocity *FloatRaster
}

// GridSlope derives the per-cell slope and flow distance from the DEM
// and the D8 directions. A cell whose flow leaves the grid uses its own
// elevation as the downstream elevation (slope 0).
func GridSlope(dem, fdr *IntRaster) (slope, flowDistance *FloatRaster, err error) {
	slope = NewFloatRaster(dem.Grid)
	flowDistance = NewFloatRaster(dem.Grid)
	err = eachValidErr(dem, func(i, j, z1 int) error {
		dir, err := ParseDirection(fdr.Get(i, j), i, j)
		if err != nil {
			return err
		}
		dr, dc := dir.Offset()
		dist := dir.DistanceFactor() * dem.Cellsize
		z2 := z1
		if dem.Contains(i+dr, j+dc) && !dem.IsNodata(i+dr, j+dc) {
			z2 = dem.Get(i+dr, j+dc)
		}
		slope.Set(math.Abs(float64(z2-z1))/dist, i, j)
		flowDistance.Set(dist, i, j)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return slope, flowDistance, nil
}

// GridSlopeArea computes the slope-area term SA = slopeᵇ·(FAC·A)ᶜ for
// every cell and its basin average.
func GridSlopeArea(fac *IntRaster, slope *FloatRaster, b, c float64) (sa *FloatRaster, avg float64) {
	sa = NewFloatRaster(fac.Grid)
	cellArea := fac.CellArea()
	sum, count := 0., 0
	fac.EachValid(func(i, j, acc int) {
		v := math.Pow(slope.Get(i, j), b) * math.Pow(float64(acc)*cellArea, c)
		sa.Set(v, i, j)
		sum += v
		count++
	})
	if count > 0 {
		avg = sum / float64(count)
	}
	return sa, avg
}

// GridVelocity scales the basin-average velocity by the relative
// slope-area term, clamped to [vMin, vMax].
func GridVelocity(sa *FloatRaster, saAvg, vAvg, vMax, vMin float64) *FloatRaster {
	v := NewFloatRaster(sa.Grid)
	sa.EachValid(func(i, j int, s float64) {
		vel := s / saAvg * vAvg
		if vel > vMax {
			vel = vMax
		}
		if vel < vMin {
			vel = vMin
		}
		v.Set(vel, i, j)
	})
	return v
}

// OutletMask traces every cell along its D8 path; cells whose trace
// reaches the outlet before leaving the grid form the outlet's
// upstream mask (value 1, nodata elsewhere).
func OutletMask(outletRow, outletCol int, fdr *IntRaster) (*IntRaster, error) {
	mask := NewIntRaster(fdr.Grid)
	mask.Set(1, outletRow, outletCol)
	const out = 0 // transient mark for cells known to drain elsewhere

	err := eachValidErr(fdr, func(i, j, _ int) error {
		ti, tj := i, j
		in := false
		for fdr.Contains(ti, tj) && !fdr.IsNodata(ti, tj) {
			if mask.Get(ti, tj) == 1 {
				in = true
				break
			}
			if mask.Get(ti, tj) == out {
				break
			}
			dir, err := ParseDirection(fdr.Get(ti, tj), ti, tj)
			if err != nil {
				return err
			}
			dr, dc := dir.Offset()
			ti, tj = ti+dr, tj+dc
		}
		if in {
			mask.Set(1, i, j)
		} else {
			mask.Set(out, i, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Clear the transient marks back to nodata.
	for i := 0; i < mask.Nrows; i++ {
		for j := 0; j < mask.Ncols; j++ {
			if mask.Get(i, j) == out {
				mask.Set(mask.Nodata, i, j)
			}
		}
	}
	return mask, nil
}

// GridFlowTime sums the per-cell travel times L/V along each masked
// cell's D8 path to the outlet.
func GridFlowTime(mask, fdr *IntRaster, velocity, flowDistance *FloatRaster,
	outletRow, outletCol int) (*FloatRaster, error) {
	ft := NewFloatRaster(mask.Grid)
	err := eachValidErr(mask, func(i, j, _ int) error {
		ti, tj := i, j
		t := flowDistance.Get(ti, tj) / velocity.Get(ti, tj)
		for !(ti == outletRow && tj == outletCol) {
			dir, err := ParseDirection(fdr.Get(ti, tj), ti, tj)
			if err != nil {
				return err
			}
			dr, dc := dir.Offset()
			ti, tj = ti+dr, tj+dc
			t += flowDistance.Get(ti, tj) / velocity.Get(ti, tj)
		}
		ft.Set(t, i, j)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ft, nil
}

// uhOrdinate evaluates the linear-reservoir-plus-delay hydrograph of a
// cell with flow time split into delay ts and reservoir residence tr,
// at bin index t of width dt. The bin is identified by its right edge
// (t+1)·dt.
func uhOrdinate(t int, dt, ts, tr float64) float64 {
	edge := float64(t+1) * dt
	switch {
	case edge < ts:
		return 0
	case edge <= ts+dt:
		return (1 / dt) * (math.E - math.Exp(1-(edge-ts)/tr))
	default:
		return (1 / dt) * math.Exp(-(edge-ts)/tr) * (math.Exp(dt/tr) - 1)
	}
}

// BuildOutletUH constructs the scaled Unit Hydrograph tensor of one
// outlet. Each masked cell's series is normalised so that its sum
// equals 1/Δt: an impulse of 1 m of runoff delivers exactly 1 m of
// volume at the outlet over the hydrograph horizon.
func BuildOutletUH(mask *IntRaster, flowTime *FloatRaster, params UHParams,
	outletRow, outletCol int) *OutletUH {
	dt := float64(params.StepHours)

	ftMax := 0.
	mask.EachValid(func(i, j, _ int) {
		if t := flowTime.Get(i, j); t > ftMax {
			ftMax = t
		}
	})
	steps := int(ftMax/dt)*4 + 1

	g := mask.Grid
	uh := sparse.ZerosDense(steps, g.Nrows, g.Ncols)
	for i := range uh.Elements {
		uh.Elements[i] = float64(g.Nodata)
	}
	mask.EachValid(func(i, j, _ int) {
		ft := flowTime.Get(i, j)
		ts := ft * (1 - params.Beta)
		tr := ft * params.Beta
		series := make([]float64, steps)
		for t := 0; t < steps; t++ {
			series[t] = uhOrdinate(t, dt, ts, tr)
		}
		sum := floats.Sum(series)
		for t := 0; t < steps; t++ {
			uh.Set(series[t]/dt/sum, t, i, j)
		}
	})
	return &OutletUH{Row: outletRow, Col: outletCol, Mask: mask, UH: uh, Steps: steps}
}

// BuildUH constructs the Unit Hydrograph set of a terrain for every
// outlet cell.
func BuildUH(t *Terrain, params UHParams) (*UHSet, error) {
	slope, flowDistance, err := GridSlope(t.DEM, t.FDR)
	if err != nil {
		return nil, err
	}
	sa, saAvg := GridSlopeArea(t.FAC, slope, params.B, params.C)
	velocity := GridVelocity(sa, saAvg, params.VelocityAvg,
		params.VelocityMax, params.VelocityMin)

	set := &UHSet{
		Params: params, Grid: t.Grid(),
		Slope: slope, FlowDistance: flowDistance,
		SlopeArea: sa, Velocity: velocity,
	}
	var outlets [][2]int
	t.Outlet.EachValid(func(i, j, v int) {
		if v == 1 {
			outlets = append(outlets, [2]int{i, j})
		}
	})
	for _, o := range outlets {
		mask, err := OutletMask(o[0], o[1], t.FDR)
		if err != nil {
			return nil, err
		}
		ft, err := GridFlowTime(mask, t.FDR, velocity, flowDistance, o[0], o[1])
		if err != nil {
			return nil, err
		}
		set.Outlets = append(set.Outlets, BuildOutletUH(mask, ft, params, o[0], o[1]))
	}
	return set, nil
}

// fingerprintMatches reports whether a cached artifact was built with
// the same governing parameters.
func (p UHParams) fingerprintMatches(o UHParams) bool {
	return p.StepHours == o.StepHours &&
		floatEqual(p.B, o.B) && floatEqual(p.C, o.C) &&
		floatEqual(p.VelocityAvg, o.VelocityAvg) &&
		floatEqual(p.VelocityMax, o.VelocityMax) &&
		floatEqual(p.VelocityMin, o.VelocityMin) &&
		floatEqual(p.Beta, o.Beta)
}

func floatEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// WriteUH stores the Unit Hydrograph set as a NetCDF artifact carrying
// the parameter fingerprint as global attributes.
func WriteUH(path string, set *UHSet) error {
	g := set.Grid
	dims := []string{"lat", "lon"}
	lengths := []int{g.Nrows, g.Ncols}
	for i, o := range set.Outlets {
		dims = append(dims, uhTimeDim(i))
		lengths = append(lengths, o.Steps)
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "comment", "grid Unit Hydrograph artifact")
	addGridAttrs(h, g)
	h.AddAttribute("", "outlet_count", []int32{int32(len(set.Outlets))})
	h.AddAttribute("", "STEP_TIME", []int32{int32(set.Params.StepHours)})
	h.AddAttribute("", "b", []float64{set.Params.B})
	h.AddAttribute("", "c", []float64{set.Params.C})
	h.AddAttribute("", "beta", []float64{set.Params.Beta})
	h.AddAttribute("", "Velocity_avg", []float64{set.Params.VelocityAvg})
	h.AddAttribute("", "Velocity_max", []float64{set.Params.VelocityMax})
	h.AddAttribute("", "Velocity_min", []float64{set.Params.VelocityMin})

	for _, v := range []struct {
		name string
		unit string
	}{
		{"Slope", "m/m"}, {"FlowDistance", "m"}, {"SlopeArea", "-"}, {"Velocity", "m/h"},
	} {
		h.AddVariable(v.name, []string{"lat", "lon"}, []float64{0})
		h.AddAttribute(v.name, "units", v.unit)
	}
	for i, o := range set.Outlets {
		mv := uhMaskVar(i)
		h.AddVariable(mv, []string{"lat", "lon"}, []int32{0})
		h.AddAttribute(mv, "outlet_index_row", []int32{int32(o.Row)})
		h.AddAttribute(mv, "outlet_index_col", []int32{int32(o.Col)})
		uv := uhVar(i)
		h.AddVariable(uv, []string{uhTimeDim(i), "lat", "lon"}, []float64{0})
		h.AddAttribute(uv, "UH_steps", []int32{int32(o.Steps)})
		h.AddAttribute(uv, "units", "1/h")
	}
	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		return outputErrorf(path, "%v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return outputErrorf(path, "%v", err)
	}
	if err := writeFloats(f, "Slope", set.Slope.Data.Elements); err != nil {
		return outputErrorf(path, "%v", err)
	}
	if err := writeFloats(f, "FlowDistance", set.FlowDistance.Data.Elements); err != nil {
		return outputErrorf(path, "%v", err)
	}
	if err := writeFloats(f, "SlopeArea", set.SlopeArea.Data.Elements); err != nil {
		return outputErrorf(path, "%v", err)
	}
	if err := writeFloats(f, "Velocity", set.Velocity.Data.Elements); err != nil {
		return outputErrorf(path, "%v", err)
	}
	for i, o := range set.Outlets {
		if err := writeInts(f, uhMaskVar(i), o.Mask.Data.Elements); err != nil {
			return outputErrorf(path, "%v", err)
		}
		if err := writeFloats(f, uhVar(i), o.UH.Elements); err != nil {
			return outputErrorf(path, "%v", err)
		}
	}
	return nil
}

// ReadUH loads a Unit Hydrograph artifact, returning ok=false when the
// file is absent or its fingerprint does not match params.
func ReadUH(path string, g Grid, params UHParams) (*UHSet, bool, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, false, nil // absent: rebuild
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, false, nil // unreadable: rebuild
	}
	cached := UHParams{
		StepHours:   int(attrFloat(f, "", "STEP_TIME")),
		B:           attrFloat(f, "", "b"),
		C:           attrFloat(f, "", "c"),
		Beta:        attrFloat(f, "", "beta"),
		VelocityAvg: attrFloat(f, "", "Velocity_avg"),
		VelocityMax: attrFloat(f, "", "Velocity_max"),
		VelocityMin: attrFloat(f, "", "Velocity_min"),
	}
	if !params.fingerprintMatches(cached) {
		return nil, false, nil
	}

	set := &UHSet{Params: cached, Grid: g}
	n := int(attrFloat(f, "", "outlet_count"))
	for i := 0; i < n; i++ {
		mask := NewIntRaster(g)
		if err := readIntsInto(f, uhMaskVar(i), mask.Data.Elements); err != nil {
			return nil, false, inputErrorf(path, "%v", err)
		}
		steps := int(attrFloat(f, uhVar(i), "UH_steps"))
		uh := sparse.ZerosDense(steps, g.Nrows, g.Ncols)
		if err := readFloatsInto(f, uhVar(i), uh.Elements); err != nil {
			return nil, false, inputErrorf(path, "%v", err)
		}
		set.Outlets = append(set.Outlets, &OutletUH{
			Row:   int(attrFloat(f, uhMaskVar(i), "outlet_index_row")),
			Col:   int(attrFloat(f, uhMaskVar(i), "outlet_index_col")),
			Mask:  mask,
			UH:    uh,
			Steps: steps,
		})
	}
	return set, true, nil
}

func uhTimeDim(i int) string { return "time" + strconv.Itoa(i) }
func uhMaskVar(i int) string { return "Mask" + strconv.Itoa(i) }
func uhVar(i int) string     { return "UH" + strconv.Itoa(i) }

// eachValidErr iterates the in-domain cells of r, stopping at the
// first error.
func eachValidErr(r *IntRaster, f func(row, col, v int) error) error {
	for i := 0; i < r.Nrows; i++ {
		for j := 0; j < r.Ncols; j++ {
			if v := r.Data.Get(i, j); v != r.Nodata {
				if err := f(i, j, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
