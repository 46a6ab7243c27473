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
	"context"
	"fmt"
)

// Model holds the current state of a hydrological simulation: the grid
// of cells, the parameter libraries, the clock and the manipulator
// pipelines that initialise and advance the domain.
type Model struct {
	// InitFuncs are run (in order) before the simulation starts.
	InitFuncs []DomainManipulator
	// RunFuncs are run (in order) at every time step.
	RunFuncs []DomainManipulator

	Grid  Grid
	Clock StepClock

	// Dt is the time step [h].
	Dt float64
	// NSteps is the number of steps to simulate.
	NSteps int
	// Step is the index of the step currently being computed.
	Step int

	Soil SoilParams
	Veg  VegParams

	SoilLib *SoilLib
	VegLib  *VegLib

	// WindHeight is the wind speed measurement height [m].
	WindHeight float64
	// AngstromA and AngstromB are the Ångström radiation coefficients.
	AngstromA, AngstromB float64
	// StreamDepth and StreamWidth describe the channel geometry used
	// in the cell-to-stream exchange [m].
	StreamDepth, StreamWidth float64
	// ChannelK is the linear-reservoir constant of stream reaches
	// [1/h].
	ChannelK float64

	// cells holds one entry per grid position in row-major order; nil
	// marks nodata positions outside the model domain.
	cells []*Cell
	// land lists the in-domain cells in row-major order.
	land []*Cell
	// streams lists the stream cells in row-major order.
	streams []*Cell
	// outlets lists the outlet cells in row-major order.
	outlets []*Cell

	// uh holds the per-outlet unit hydrographs, aligned with outlets.
	uh *UHSet
	// runoffHistory is a ring buffer of per-cell surface runoff [m]:
	// runoffHistory[s%len] belongs to step s.
	runoffHistory [][]float64

	// forcing supplies one frame of meteorological fields per step.
	forcing *ForcingSet
	// currentFrame is the forcing frame of the step being computed.
	currentFrame *ForcingFrame

	// discharge accumulates the per-outlet output series.
	discharge []*OutletSeries

	// frames collects gridded per-step outputs for the enabled
	// variables.
	frames *OutputRecorder
}

// SoilParams are the soil-column constants of a run.
type SoilParams struct {
	// Thickness is the total modelled soil column depth [m].
	Thickness float64
	// ThicknessUpper and ThicknessLower are the two unsaturated layer
	// thicknesses [m].
	ThicknessUpper, ThicknessLower float64
	// WaterTableInit is the spin-up water table depth [m].
	WaterTableInit float64
}

// VegParams are the vegetation constants of a run. The overstory is
// described per class by the vegetation library; the understory is a
// single grass-like layer shared by the whole domain.
type VegParams struct {
	// ReferenceHeight is the above-canopy reference height [m].
	ReferenceHeight float64
	// UnderstoryPresent toggles the understory layer.
	UnderstoryPresent bool

	// Understory layer parameters.
	LAIU          float64 // understory leaf area index
	AlbedoU       float64 // understory shortwave reflectance
	RoughnessU    float64 // understory roughness length [m]
	DisplacementU float64 // understory displacement height [m]
	RminU         float64 // understory minimum stomatal resistance [s/cm]
	RmaxU         float64 // understory maximum resistance [s/cm]
	RGLU          float64 // understory PAR level where rs doubles [W/m²]

	// AlbedoSoil is the ground/soil shortwave reflectance.
	AlbedoSoil float64
}

// DomainManipulator is a function that operates on the whole model
// domain.
type DomainManipulator func(d *Model) error

// CellManipulator is a function that advances a single cell by Δt
// hours.
type CellManipulator func(c *Cell, Δt float64)

// Cell holds the state of one grid cell.
type Cell struct {
	Row, Col int

	// Static terrain attributes.
	Elev     float64    `desc:"Ground surface elevation" units:"m"`
	Dir      Direction8 // D8 flow direction
	FlowAcc  int        // number of upstream cells
	Stream   bool       // cell contains a channel reach
	Outlet   bool       // cell is a basin outlet
	VegClass int
	// CanopyFrac is the fraction of the cell covered by the overstory
	// canopy.
	CanopyFrac float64
	SoilClass  int

	// topsoil and subsoil are the resolved soil parameter records.
	topsoil, subsoil *SoilClass
	// veg is the resolved vegetation parameter record.
	veg *VegClass

	// neighbors holds the row-major index of the 8 adjacent cells
	// (Direction8 order), or -1 outside the domain.
	neighbors [8]int
	// downstream is the row-major index of the D8 downstream cell, or
	// -1 where flow leaves the grid.
	downstream int

	// zOffset and zOffsetNeighbor reference the water tables of the
	// cell and its neighbors to the highest adjacent ground surface,
	// so that lateral gradients include the terrain slope.
	zOffset         float64
	zOffsetNeighbor [8]float64

	// Dynamic state.
	InterceptionO float64 `desc:"Overstory intercepted water" units:"m"`
	InterceptionU float64 `desc:"Understory intercepted water" units:"m"`
	SMUpper       float64 `desc:"Upper soil layer moisture" units:"fraction"`
	SMLower       float64 `desc:"Lower soil layer moisture" units:"fraction"`
	WaterTable    float64 `desc:"Water table depth, positive downward" units:"m"`

	SnowGround Snowpack // snowpack on the ground
	SnowCanopy Snowpack // snowpack held by the canopy

	// Saturated-zone working state.
	QoutSub float64    `desc:"Lateral saturated outflow" units:"m³/h"`
	QinSub  float64    `desc:"Lateral saturated inflow" units:"m³/h"`
	qSub    [8]float64 // per-direction lateral outflow [m³/h]
	Qc      float64    `desc:"Cell-to-stream exchange" units:"m³/h"`

	// SWRiseUpper, SWRiseLower and SWReturnFlow carry water-table rise
	// and return flow into the next unsaturated update [m].
	SWRiseUpper, SWRiseLower, SWReturnFlow float64

	// Channel reach state (stream cells only).
	ChanQin  float64 `desc:"Reach inflow" units:"m³/h"`
	ChanQout float64 `desc:"Reach outflow" units:"m³/h"`
	ChanV    float64 `desc:"Reach storage" units:"m³"`
	ChanK    float64 `desc:"Reach reservoir constant" units:"1/h"`

	// Out holds the fluxes produced during the current step.
	Out StepOutputs
}

// StepOutputs collects every quantity a cell produces during one step.
type StepOutputs struct {
	Rs       float64 `desc:"Sky shortwave radiation" units:"kJ/m²/h"`
	Lsky     float64 `desc:"Sky longwave radiation" units:"kJ/m²/h"`
	Rno      float64 `desc:"Overstory net radiation" units:"kJ/m²/h"`
	Rnu      float64 `desc:"Understory net radiation" units:"kJ/m²/h"`
	Ep       float64 `desc:"Potential evaporation rate" units:"m/h"`
	EIo      float64 `desc:"Overstory interception evaporation" units:"m"`
	EIu      float64 `desc:"Understory interception evaporation" units:"m"`
	ETo      float64 `desc:"Overstory transpiration" units:"m"`
	ETu      float64 `desc:"Understory transpiration" units:"m"`
	ETs      float64 `desc:"Soil evaporation" units:"m"`
	PrecRain float64 `desc:"Rainfall part of precipitation" units:"m"`
	PrecSnow float64 `desc:"Snowfall part of precipitation" units:"m"`

	SWInfiltration     float64 `desc:"Surface infiltration" units:"m"`
	SWPercolationUpper float64 `desc:"Percolation from upper soil layer" units:"m"`
	SWPercolationLower float64 `desc:"Percolation from lower soil layer" units:"m"`
	SWRunInfil         float64 `desc:"Infiltration-excess surface runoff" units:"m"`
	SWRunSatur         float64 `desc:"Saturation-excess surface runoff" units:"m"`

	SWSubQin       float64 `desc:"Lateral saturated inflow" units:"m³/h"`
	SWSubQout      float64 `desc:"Lateral saturated outflow" units:"m³/h"`
	SWSubZ         float64 `desc:"Water table depth" units:"m"`
	SWSubRiseUpper float64 `desc:"Water-table rise into upper layer" units:"m"`
	SWSubRiseLower float64 `desc:"Water-table rise into lower layer" units:"m"`
	SWSubRf        float64 `desc:"Return flow" units:"m"`
	SWSubQc        float64 `desc:"Cell-to-stream exchange" units:"m³/h"`

	QChannel float64 `desc:"Channel discharge" units:"m³/h"`
}

// SurfaceRunoff returns the total overland runoff of the step [m].
func (o *StepOutputs) SurfaceRunoff() float64 {
	return o.SWRunInfil + o.SWRunSatur
}

// Cells returns the in-domain cells in row-major order.
func (d *Model) Cells() []*Cell { return d.land }

// Streams returns the stream cells in row-major order.
func (d *Model) Streams() []*Cell { return d.streams }

// Outlets returns the outlet cells in row-major order.
func (d *Model) Outlets() []*Cell { return d.outlets }

// CellAt returns the cell at (row, col), or nil for nodata positions.
func (d *Model) CellAt(row, col int) *Cell {
	if !d.Grid.Contains(row, col) {
		return nil
	}
	return d.cells[row*d.Grid.Ncols+col]
}

// cellIndex returns the row-major index of a cell.
func (d *Model) cellIndex(c *Cell) int { return c.Row*d.Grid.Ncols + c.Col }

// Init runs the initialisation pipeline.
func (d *Model) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run advances the simulation until NSteps steps have completed. The
// cancellation signal is checked at step boundaries only; a canceled
// run leaves the state at the last committed step.
func (d *Model) Run(ctx context.Context) error {
	for d.Step = 0; d.Step < d.NSteps; d.Step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// InitCells builds the cell array from the terrain rasters and the
// parameter libraries, links the D8 and 8-neighbour topology, and
// initialises the dynamic state to the configured spin-up values.
func InitCells(t *Terrain, soilLib *SoilLib, vegLib *VegLib) DomainManipulator {
	return func(d *Model) error {
		g := t.Grid()
		d.Grid = g
		d.SoilLib = soilLib
		d.VegLib = vegLib
		d.cells = make([]*Cell, g.Nrows*g.Ncols)
		for i := 0; i < g.Nrows; i++ {
			for j := 0; j < g.Ncols; j++ {
				if t.DEM.IsNodata(i, j) {
					continue
				}
				dir, err := ParseDirection(t.FDR.Get(i, j), i, j)
				if err != nil {
					return err
				}
				c := &Cell{
					Row:        i,
					Col:        j,
					Elev:       float64(t.DEM.Get(i, j)),
					Dir:        dir,
					FlowAcc:    t.FAC.Get(i, j),
					Stream:     t.STR.Get(i, j) == 1,
					Outlet:     t.Outlet.Get(i, j) == 1,
					VegClass:   t.VegType.Get(i, j),
					CanopyFrac: float64(t.VegFrac.Get(i, j)) / 100,
					SoilClass:  t.SoilType.Get(i, j),
					downstream: -1,
				}
				c.topsoil, err = soilLib.Class(c.SoilClass)
				if err != nil {
					return locateDomainError(err, i, j)
				}
				// One record per texture class; the subsoil shares the
				// class in the absence of a separate subsoil raster.
				c.subsoil = c.topsoil
				c.veg, err = vegLib.Class(c.VegClass)
				if err != nil {
					return locateDomainError(err, i, j)
				}

				c.SMUpper = c.topsoil.FieldCapacity
				c.SMLower = c.subsoil.FieldCapacity
				c.WaterTable = d.Soil.WaterTableInit
				if c.Stream {
					c.ChanK = d.ChannelK
				}
				d.cells[i*g.Ncols+j] = c
				d.land = append(d.land, c)
				if c.Stream {
					d.streams = append(d.streams, c)
				}
				if c.Outlet {
					d.outlets = append(d.outlets, c)
				}
			}
		}
		d.linkNeighbors()
		return nil
	}
}

// linkNeighbors records for each cell the indices of its 8 adjacent
// in-domain cells, the downstream cell along its D8 direction, and the
// elevation offsets used to reference water tables across the terrain.
func (d *Model) linkNeighbors() {
	g := d.Grid
	for _, c := range d.land {
		demMax := c.Elev
		for k := 0; k < 8; k++ {
			dir := Direction8(k)
			dr, dc := dir.Offset()
			n := d.CellAt(c.Row+dr, c.Col+dc)
			if n == nil {
				c.neighbors[k] = -1
				continue
			}
			c.neighbors[k] = n.Row*g.Ncols + n.Col
			if n.Elev > demMax {
				demMax = n.Elev
			}
		}
		c.zOffset = demMax - c.Elev
		for k := 0; k < 8; k++ {
			if c.neighbors[k] < 0 {
				continue
			}
			n := d.cells[c.neighbors[k]]
			c.zOffsetNeighbor[k] = demMax - n.Elev
		}

		dr, dc := c.Dir.Offset()
		if n := d.CellAt(c.Row+dr, c.Col+dc); n != nil {
			c.downstream = n.Row*g.Ncols + n.Col
		}
	}
}

// Downstream returns the D8 downstream cell, or nil where flow leaves
// the grid.
func (d *Model) Downstream(c *Cell) *Cell {
	if c.downstream < 0 {
		return nil
	}
	return d.cells[c.downstream]
}

// locateDomainError attaches a grid location to a library lookup
// failure.
func locateDomainError(err error, row, col int) error {
	if me, ok := err.(*ModelError); ok {
		me.Row, me.Col = row, col
		return me
	}
	return fmt.Errorf("(row %d, col %d): %v", row, col, err)
}
