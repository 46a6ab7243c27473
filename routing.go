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

// Streamflow generation: linear-reservoir routing along the channel
// network, convolution of overland runoff with the per-outlet Unit
// Hydrographs, and discharge aggregation at the outlets.

package hydromap

import "math"

// ChannelRouting advances one stream reach by one step: the reach acts
// as a linear reservoir with constant k [1/h] fed by the upstream
// inflow qin and the lateral subsurface contribution qc [m³/h].
func ChannelRouting(qin, qc, v, k, stepTime float64) (vNew, qout float64) {
	vNew = (qin+qc)/k + (v-(qin+qc)/k)*math.Exp(-k*stepTime)
	qout = (qin + qc) - (vNew-v)/stepTime
	return vNew, qout
}

// RouteChannels returns a DomainManipulator advancing every stream
// reach: first every reach's inflow is zeroed, then the previous
// outflows are accumulated downstream, then the new outflows are
// computed.
func RouteChannels() DomainManipulator {
	return func(d *Model) error {
		for _, c := range d.streams {
			c.ChanQin = 0
		}
		for _, c := range d.streams {
			if dn := d.Downstream(c); dn != nil && dn.Stream {
				dn.ChanQin += c.ChanQout
			}
		}
		for _, c := range d.streams {
			c.ChanV, c.ChanQout = ChannelRouting(c.ChanQin, c.Qc, c.ChanV,
				c.ChanK, d.Dt)
			c.Out.QChannel = c.ChanQout
		}
		return nil
	}
}

// OutletSeries is the discharge time series of one outlet [m³/s].
type OutletSeries struct {
	Row, Col int

	// QSurface is the UH-convolved overland runoff.
	QSurface []float64
	// QSubsurface is the summed cell-to-stream exchange over the
	// outlet's upstream mask.
	QSubsurface []float64
	// QChannel is the routed channel discharge at the outlet cell.
	QChannel []float64
	// QTotal is the total streamflow.
	QTotal []float64
}

// InitRouting returns a DomainManipulator that attaches the Unit
// Hydrograph set to the model, sizes the runoff ring buffer to the
// longest hydrograph horizon, and prepares the outlet series.
func InitRouting(uh *UHSet) DomainManipulator {
	return func(d *Model) error {
		d.uh = uh
		maxSteps := 1
		for _, o := range uh.Outlets {
			if o.Steps > maxSteps {
				maxSteps = o.Steps
			}
		}
		d.runoffHistory = make([][]float64, maxSteps)
		n := d.Grid.Nrows * d.Grid.Ncols
		for i := range d.runoffHistory {
			d.runoffHistory[i] = make([]float64, n)
		}
		d.discharge = make([]*OutletSeries, len(uh.Outlets))
		for i, o := range uh.Outlets {
			d.discharge[i] = &OutletSeries{
				Row: o.Row, Col: o.Col,
				QSurface:    make([]float64, d.NSteps),
				QSubsurface: make([]float64, d.NSteps),
				QChannel:    make([]float64, d.NSteps),
				QTotal:      make([]float64, d.NSteps),
			}
		}
		return nil
	}
}

// RouteSurface returns a DomainManipulator that records the step's
// overland runoff (including return flow) into the ring buffer and
// convolves the history with each outlet's Unit Hydrograph.
func RouteSurface() DomainManipulator {
	return func(d *Model) error {
		frame := d.runoffHistory[d.Step%len(d.runoffHistory)]
		for i := range frame {
			frame[i] = 0
		}
		for _, c := range d.land {
			frame[d.cellIndex(c)] = c.Out.SurfaceRunoff() + c.Out.SWSubRf
		}

		area := d.Grid.CellArea()
		for oi, o := range d.uh.Outlets {
			q := 0.
			horizon := o.Steps
			if horizon > d.Step+1 {
				horizon = d.Step + 1
			}
			for t := 0; t < horizon; t++ {
				past := d.runoffHistory[(d.Step-t)%len(d.runoffHistory)]
				o.Mask.EachValid(func(i, j, _ int) {
					idx := i*d.Grid.Ncols + j
					q += o.UH.Get(t, i, j) * past[idx]
				})
			}
			// UH [1/h] × runoff depth [m] × cell area [m²] -> m³/h.
			d.discharge[oi].QSurface[d.Step] = q * area / 3600 // m³/s
		}
		return nil
	}
}

// RecordDischarge returns a DomainManipulator aggregating the per-step
// outlet discharge: surface, subsurface and channel components
// [m³/s].
func RecordDischarge() DomainManipulator {
	return func(d *Model) error {
		for oi, o := range d.uh.Outlets {
			s := d.discharge[oi]
			sub := 0.
			o.Mask.EachValid(func(i, j, _ int) {
				if c := d.CellAt(i, j); c != nil && c.Stream && c.Qc > 0 {
					sub += c.Qc
				}
			})
			s.QSubsurface[d.Step] = sub / 3600
			if c := d.CellAt(o.Row, o.Col); c != nil && c.Stream {
				s.QChannel[d.Step] = c.ChanQout / 3600
			}
			s.QTotal[d.Step] = s.QSurface[d.Step] + s.QSubsurface[d.Step] +
				s.QChannel[d.Step]
		}
		return nil
	}
}

// Discharge returns the per-outlet discharge series accumulated so
// far.
func (d *Model) Discharge() []*OutletSeries { return d.discharge }
