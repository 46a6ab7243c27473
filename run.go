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
	"fmt"
	"io"
	"time"
)

// SimulationConfig carries everything assembled from a run
// configuration file that the simulation pipeline needs.
type SimulationConfig struct {
	Terrain *Terrain
	SoilLib *SoilLib
	VegLib  *VegLib
	Forcing *ForcingSet
	UH      *UHSet
	Outputs *OutputRecorder

	Clock  StepClock
	NSteps int

	Soil SoilParams
	Veg  VegParams

	WindHeight           float64
	AngstromA, AngstromB float64
	StreamDepth          float64
	StreamWidth          float64
	ChannelK             float64
}

// NewSimulation assembles a Model with the standard per-step pipeline:
// forcing load, per-cell vertical physics, the lateral saturated pass,
// overland-runoff convolution, channel routing, discharge aggregation
// and output recording.
func NewSimulation(cfg SimulationConfig, logWriter io.Writer) *Model {
	d := &Model{
		Clock:       cfg.Clock,
		Dt:          float64(cfg.Clock.StepHours),
		NSteps:      cfg.NSteps,
		Soil:        cfg.Soil,
		Veg:         cfg.Veg,
		WindHeight:  cfg.WindHeight,
		AngstromA:   cfg.AngstromA,
		AngstromB:   cfg.AngstromB,
		StreamDepth: cfg.StreamDepth,
		StreamWidth: cfg.StreamWidth,
		ChannelK:    cfg.ChannelK,
		forcing:     cfg.Forcing,
		frames:      cfg.Outputs,
	}
	d.InitFuncs = []DomainManipulator{
		InitCells(cfg.Terrain, cfg.SoilLib, cfg.VegLib),
		InitRouting(cfg.UH),
	}
	d.RunFuncs = []DomainManipulator{
		LoadForcing(),
		CellPhysics(),
		SaturatedFlow(),
		RouteSurface(),
		RouteChannels(),
		RecordDischarge(),
		RecordOutputs(),
	}
	if logWriter != nil {
		d.RunFuncs = append(d.RunFuncs, Log(logWriter))
	}
	return d
}

// Log returns a DomainManipulator writing simulation status messages
// to w.
func Log(w io.Writer) DomainManipulator {
	startTime := time.Now()
	stepTime := time.Now()
	return func(d *Model) error {
		fmt.Fprintf(w, "Step %-6d  %s  walltime=%6.3gh  Δwalltime=%4.2gs\n",
			d.Step, d.Clock.Time(d.Step).Format("2006-01-02 15:04"),
			time.Since(startTime).Hours(), time.Since(stepTime).Seconds())
		stepTime = time.Now()
		return nil
	}
}

// WaterStorage returns the total water held by a cell's column [m]:
// interception, soil moisture, snow and the saturated zone.
func (d *Model) WaterStorage(c *Cell) float64 {
	sat := 0.
	if c.WaterTable <= d.Soil.ThicknessUpper {
		sat = (d.Soil.ThicknessUpper-c.WaterTable)*c.topsoil.Porosity +
			d.Soil.ThicknessLower*c.subsoil.Porosity
	} else if c.WaterTable <= d.Soil.Thickness {
		sat = (d.Soil.Thickness - c.WaterTable) * c.subsoil.Porosity
	}
	return c.InterceptionO + c.InterceptionU +
		c.SMUpper*d.Soil.ThicknessUpper + c.SMLower*d.Soil.ThicknessLower +
		c.SnowGround.W + c.SnowCanopy.W + sat
}
