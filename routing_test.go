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
	"testing"
)

// TestChannelReservoirRecession drives a single reach with a one-step
// inflow pulse and checks the recession against the analytical
// exponential of the linear reservoir.
func TestChannelReservoirRecession(t *testing.T) {
	const (
		k  = 0.1 // 1/h
		dt = 1.0 // h
	)
	v := 0.
	var qout float64

	// Pulse step: 1 m³/h inflow for one hour.
	v, qout = ChannelRouting(1, 0, v, k, dt)
	if qout <= 0 || qout >= 1 {
		t.Fatalf("pulse outflow = %g, want within (0, 1)", qout)
	}

	// Recession: with no further inflow the storage decays as
	// V(n+1) = V(n)·e^{-kΔt}, so consecutive outflows keep the exact
	// ratio e^{-kΔt}.
	decay := math.Exp(-k * dt)
	var prev float64
	v, prev = ChannelRouting(0, 0, v, k, dt)
	q0 := prev
	for n := 1; n < 50; n++ {
		var q float64
		v, q = ChannelRouting(0, 0, v, k, dt)
		if absDifferent(q/prev, decay, 1e-9) {
			t.Fatalf("step %d: recession ratio %g, want %g", n, q/prev, decay)
		}
		if want := q0 * math.Pow(decay, float64(n)); absDifferent(q, want, 1e-6) {
			t.Fatalf("step %d: Q = %g, want %g", n, q, want)
		}
		prev = q
	}
}

func TestChannelMassConservation(t *testing.T) {
	// Over a long enough horizon the reach releases everything it
	// received.
	const k, dt = 0.2, 1.0
	v := 0.
	total := 0.
	var q float64
	v, q = ChannelRouting(5, 0, v, k, dt)
	total += q * dt
	for n := 0; n < 200; n++ {
		v, q = ChannelRouting(0, 0, v, k, dt)
		total += q * dt
	}
	if absDifferent(total, 5, 1e-6) {
		t.Errorf("released volume = %g, want 5", total)
	}
}

// TestRouteChannelsNetwork checks the network update order: reach
// outflows arrive at the downstream reach's inflow on the next step.
func TestRouteChannelsNetwork(t *testing.T) {
	terr := testTerrain(3, 1) // a single stream column draining south
	d := testModel(t, terr, 3)
	top := d.CellAt(0, 0)
	mid := d.CellAt(1, 0)
	out := d.CellAt(2, 0)
	if !top.Stream || !mid.Stream || !out.Stream {
		t.Fatal("test terrain column should be all stream")
	}

	top.Qc = 1 // steady lateral feed into the top reach only
	route := RouteChannels()
	if err := route(d); err != nil {
		t.Fatal(err)
	}
	if top.ChanQout <= 0 {
		t.Fatalf("top reach outflow = %g", top.ChanQout)
	}
	if mid.ChanQin != 0 {
		t.Fatalf("mid reach received inflow %g in the same step", mid.ChanQin)
	}
	firstOut := top.ChanQout
	if err := route(d); err != nil {
		t.Fatal(err)
	}
	if absDifferent(mid.ChanQin, firstOut, 1e-12) {
		t.Errorf("mid inflow = %g, want the top's previous outflow %g",
			mid.ChanQin, firstOut)
	}
	if out.ChanQin != 0 {
		// The front needs one more step per reach.
		t.Errorf("outlet inflow = %g before the wave arrives", out.ChanQin)
	}
	if err := route(d); err != nil {
		t.Fatal(err)
	}
	if out.ChanQin <= 0 {
		t.Error("outlet reach never received the routed wave")
	}
}
