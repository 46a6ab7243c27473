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

// Lateral flow in the saturated zone: a local linear-kinematic flow
// field routed across the 8 neighbours of each cell, with baseflow
// exchange between stream cells and their reaches and water-table
// rise/return-flow bookkeeping.

package hydromap

import "math"

// satGradientCoefficient returns γ_k, the flow coefficient between a
// cell (referenced water table depth zRef) and its neighbour k
// (referenced depth ztRef): positive when the neighbour's table is
// deeper, so that water leaves toward the lower head, and zero
// otherwise.
func satGradientCoefficient(ks, soilThickness, n, zRef, ztRef float64) float64 {
	if ztRef <= zRef {
		return 0
	}
	return -(zRef - ztRef) * (ks * soilThickness / n)
}

// satOutflow computes the total lateral outflow [m³/h] of a cell and
// its split over the 8 directions. h = (1 − z/D)ⁿ scales the flow by
// the saturated share of the transmissivity.
func satOutflow(c *Cell, cells []*Cell, soilThickness float64) {
	n := 2*c.topsoil.PoreSizeDisP + 3
	h := math.Pow(1-c.WaterTable/soilThickness, n)

	var gamma [8]float64
	gammaSum := 0.
	c.QoutSub = 0
	for k := 0; k < 8; k++ {
		if c.neighbors[k] < 0 {
			continue
		}
		nb := cells[c.neighbors[k]]
		ztRef := c.zOffsetNeighbor[k] + nb.WaterTable
		gamma[k] = satGradientCoefficient(c.topsoil.SatHydrauCond,
			soilThickness, n, c.WaterTable+c.zOffset, ztRef)
		gammaSum += gamma[k]
		c.QoutSub += h * gamma[k]
	}
	if gammaSum <= 0 {
		for k := range c.qSub {
			c.qSub[k] = 0
		}
		c.QoutSub = 0
		return
	}
	for k := 0; k < 8; k++ {
		c.qSub[k] = gamma[k] / gammaSum * c.QoutSub
	}
}

// StreamExchange returns Q_c [m³/h], the subsurface flow between a
// grid cell and the channel reach it hosts. Positive flow runs from
// the cell into the stream (water table above the streambed).
func StreamExchange(z, reachLength, streamDepth, streamWidth float64,
	soil *SoilClass, soilThickness float64) float64 {
	n := 2*soil.PoreSizeDisP + 3
	trans := soil.SatHydrauCond * soilThickness / n *
		math.Pow(1-z/soilThickness, n)
	return 4 * reachLength * (streamDepth - z) / streamWidth * trans
}

// satStabilityLimit returns the largest admissible sub-step [h] for the
// explicit lateral scheme: Δt·max(K_s·D/(n·φ·cellsize²)) ≤ ½.
func (d *Model) satStabilityLimit() float64 {
	maxRate := 0.
	for _, c := range d.land {
		n := 2*c.topsoil.PoreSizeDisP + 3
		rate := c.topsoil.SatHydrauCond * d.Soil.Thickness /
			(n * c.topsoil.Porosity * d.Grid.Cellsize * d.Grid.Cellsize)
		if rate > maxRate {
			maxRate = rate
		}
	}
	if maxRate <= 0 {
		return d.Dt
	}
	return 0.5 / maxRate
}

// SaturatedFlow returns a DomainManipulator performing the lateral
// saturated-zone update: pass 1 computes the per-direction outflows
// from the current water tables, pass 2 aggregates inflows, pass 3
// updates water tables, return flow and rise. When the explicit-scheme
// stability criterion rejects the model step, the step is subdivided;
// if even the finest admissible subdivision fails, a NumericError is
// returned.
func SaturatedFlow() DomainManipulator {
	const maxSubdivisions = 64
	return func(d *Model) error {
		limit := d.satStabilityLimit()
		nSub := 1
		if limit < d.Dt {
			nSub = int(math.Ceil(d.Dt / limit))
		}
		if nSub > maxSubdivisions {
			return numericErrorf(-1, -1, d.Step,
				"saturated-zone stability requires %d sub-steps of the %g h step; "+
					"limit is %d", nSub, d.Dt, maxSubdivisions)
		}
		dt := d.Dt / float64(nSub)

		// The per-layer percolation feeding the saturated zone is a
		// whole-step quantity; hand it to the first sub-step only.
		first := true
		for s := 0; s < nSub; s++ {
			d.saturatedPass(dt, first)
			first = false
		}

		for _, c := range d.land {
			c.Out.SWSubQin = c.QinSub
			c.Out.SWSubQout = c.QoutSub
			c.Out.SWSubZ = c.WaterTable
			c.Out.SWSubRiseUpper = c.SWRiseUpper
			c.Out.SWSubRiseLower = c.SWRiseLower
			c.Out.SWSubRf = c.SWReturnFlow
			c.Out.SWSubQc = c.Qc
		}
		return nil
	}
}

// saturatedPass advances the lateral flow field by dt hours.
// includePercolation hands the step's deep percolation to the water
// table; it is true for the first sub-step only.
func (d *Model) saturatedPass(dt float64, includePercolation bool) {
	// Pass 1: outflows from the current water tables.
	for _, c := range d.land {
		satOutflow(c, d.cells, d.Soil.Thickness)
	}

	// Pass 2: aggregate inflows; neighbour k contributes through its
	// direction pointing back at the cell.
	for _, c := range d.land {
		c.QinSub = 0
		for k := 0; k < 8; k++ {
			if c.neighbors[k] < 0 {
				continue
			}
			nb := d.cells[c.neighbors[k]]
			c.QinSub += nb.qSub[Direction8(k).Opposite()]
		}
		if c.Stream {
			c.Qc = StreamExchange(c.WaterTable, d.Grid.Cellsize,
				d.StreamDepth, d.StreamWidth, c.topsoil, d.Soil.Thickness)
		}
	}

	// Pass 3: water-table update with rise and return flow.
	area := d.Grid.CellArea()
	for _, c := range d.land {
		porosity := c.subsoil.Porosity
		if c.WaterTable <= d.Soil.ThicknessUpper {
			porosity = c.topsoil.Porosity
		}
		dW := (c.QoutSub+c.Qc-c.QinSub)/area*dt
		if includePercolation {
			dW -= c.Out.SWPercolationLower
			c.SWRiseUpper = 0
			c.SWRiseLower = 0
			c.SWReturnFlow = 0
		}
		dZ := dW / porosity

		switch z := c.WaterTable + dZ; {
		case z > d.Soil.Thickness:
			c.WaterTable = d.Soil.Thickness
		case z < 0:
			// The table reaches the ground: the surplus becomes
			// return flow and the rise saturates the upper layer.
			c.SWReturnFlow += -z * porosity
			c.SWRiseUpper += porosity * c.WaterTable
			c.WaterTable = 0
		default:
			if dW < 0 {
				// Rising table: the freed pore volume is credited to
				// the layer the table now sits in.
				if c.WaterTable > d.Soil.ThicknessUpper {
					c.SWRiseLower += -dW
				} else {
					c.SWRiseUpper += -dW
				}
			}
			c.WaterTable = z
		}
	}
}
