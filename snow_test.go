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

// TestPartitionRainSnowExact verifies the partition law: rain and snow
// always sum exactly to the precipitation, for any temperature.
func TestPartitionRainSnowExact(t *testing.T) {
	for tem := -20.0; tem <= 20; tem += 0.1 {
		rain, snow := PartitionRainSnow(0.0123, tem)
		if rain+snow != 0.0123 {
			t.Fatalf("T=%g: rain %g + snow %g != 0.0123", tem, rain, snow)
		}
		if rain < 0 || snow < 0 {
			t.Fatalf("T=%g: negative phase: %g, %g", tem, rain, snow)
		}
	}
	if rain, snow := PartitionRainSnow(0.01, -5); snow != 0.01 || rain != 0 {
		t.Errorf("cold partition: rain %g, snow %g", rain, snow)
	}
	if rain, snow := PartitionRainSnow(0.01, 10); rain != 0.01 || snow != 0 {
		t.Errorf("warm partition: rain %g, snow %g", rain, snow)
	}
	// The midpoint of the ramp splits evenly.
	rain, snow := PartitionRainSnow(0.01, (rainSnowTemMin+rainSnowTemMax)/2)
	if absDifferent(rain, snow, 1e-15) {
		t.Errorf("midpoint partition uneven: %g vs %g", rain, snow)
	}
}

func TestSnowAlbedoDecay(t *testing.T) {
	// Both decay curves start from 0.85 at age 0 and fall day by day;
	// melt decays faster; the albedo stays within [0, 0.9].
	prev := freshSnowAlbedo
	for age := 24.0; age <= 24*60; age += 24 {
		acc := SnowAlbedo(age, true)
		melt := SnowAlbedo(age, false)
		if acc >= prev {
			t.Fatalf("age %g: accumulation albedo not decaying: %g >= %g", age, acc, prev)
		}
		if melt >= acc {
			t.Fatalf("age %g: melt albedo %g should be below accumulation %g", age, melt, acc)
		}
		if melt < 0 || acc > freshSnowAlbedo {
			t.Fatalf("age %g: albedo out of range: %g, %g", age, melt, acc)
		}
		prev = acc
	}
}

func TestFreshSnowDensity(t *testing.T) {
	cold := FreshSnowDensity(-20)
	warm := FreshSnowDensity(0)
	if cold >= warm {
		t.Errorf("colder snow should fall lighter: %g >= %g", cold, warm)
	}
	// 67.92 + 51.25·e⁰ = 119.17 kg/m³ at 0 °C.
	if different(warm, 119.17, 1e-3) {
		t.Errorf("fresh density at 0 °C = %g, want ≈119.17", warm)
	}
}

func TestRichardsonNumberClamp(t *testing.T) {
	// Strongly stable conditions clamp at the upper limit.
	riU := 1 / (math.Log(10/snowSurfaceRoughness) + 5)
	ri := RichardsonNumber(20, -10, 0.1, 10)
	if absDifferent(ri, riU, 1e-12) {
		t.Errorf("stable Ri = %g, want clamped to %g", ri, riU)
	}
	// Unstable conditions (cold air over warm snow) give Ri < 0 and a
	// smaller corrected resistance.
	ri = RichardsonNumber(-10, 0, 2, 10)
	if ri >= 0 {
		t.Errorf("unstable Ri = %g, want < 0", ri)
	}
	if r := StabilityCorrectedResistance(1, ri); r >= 1 {
		t.Errorf("unstable correction %g should lower the resistance", r)
	}
	if r := StabilityCorrectedResistance(1, 0.1); r <= 1 {
		t.Errorf("stable correction %g should raise the resistance", r)
	}
}

func TestSnowpackSeed(t *testing.T) {
	var s Snowpack
	// 10 mm of snow holds up to 10/0.94·0.06 ≈ 0.64 mm of rain.
	runoff := s.seed(0.0005, 0.01, -2)
	if runoff != 0 {
		t.Errorf("runoff = %g on a pack that can hold the rain", runoff)
	}
	if s.Wliq > snowLiquidHoldingCapacity*s.W+1e-15 {
		t.Errorf("liquid %g exceeds the holding capacity of %g", s.Wliq, s.W)
	}
	if s.Albedo != freshSnowAlbedo {
		t.Errorf("fresh albedo = %g", s.Albedo)
	}

	// Heavy rain on a thin new pack overflows immediately.
	var s2 Snowpack
	runoff = s2.seed(0.02, 0.001, 1)
	if runoff <= 0 {
		t.Error("expected immediate runoff from rain exceeding the holding capacity")
	}
	if absDifferent(runoff+s2.W, 0.02+0.001, 1e-15) {
		t.Errorf("mass not conserved at seeding: %g + %g != %g",
			runoff, s2.W, 0.021)
	}
}

// TestSnowAccumulationMelt drives a pack through ten cold days of
// snowfall and then melts it with a constant positive energy flux,
// checking the total snow runoff against the accumulated snowfall.
func TestSnowAccumulationMelt(t *testing.T) {
	const (
		stepTime  = 24.0  // h
		snowfall  = 0.005 // m SWE per day
		coldDays  = 10
	)
	var s Snowpack
	totalIn := 0.
	totalRunoff := 0.

	for day := 0; day < coldDays; day++ {
		totalIn += snowfall
		if s.W == 0 {
			totalRunoff += s.seed(0, snowfall, -5)
		} else {
			var flux snowFluxes // isolated pack: no energy exchange
			totalRunoff += s.massBalance(flux, 0, snowfall, stepTime)
			s.compact(snowfall, stepTime)
			s.age(snowfall, stepTime)
		}
	}
	if different(s.W, float64(coldDays)*snowfall, 1e-3) {
		t.Fatalf("after accumulation W = %g, want ≈%g", s.W, float64(coldDays)*snowfall)
	}
	if s.Tem > 0 {
		t.Errorf("cold pack temperature = %g", s.Tem)
	}

	// Melt: +200 kJ/m²/h melts ≈14 mm/d, so the pack should be gone
	// within a week.
	days := 0
	for ; s.W > 0 && days < 30; days++ {
		flux := snowFluxes{NetRadiation: 200}
		totalRunoff += s.massBalance(flux, 0, 0, stepTime)
		s.compact(0, stepTime)
		s.age(0, stepTime)
	}
	if s.W != 0 {
		t.Fatalf("pack not melted after %d days: W = %g", days, s.W)
	}
	if absDifferent(totalRunoff, totalIn, 1e-3) {
		t.Errorf("total runoff = %g, want within 1 mm of %g", totalRunoff, totalIn)
	}
}

func TestSnowDensityCompaction(t *testing.T) {
	s := Snowpack{W: 0.1, Wice: 0.1, Tem: -2, Density: 150}
	before := s.Density
	s.compact(0, 24)
	if s.Density <= before {
		t.Errorf("density should grow under load: %g -> %g", before, s.Density)
	}
	// A wet pack compacts faster than a dry one.
	dry := Snowpack{W: 0.1, Wice: 0.1, Tem: 0, Density: 200}
	wet := Snowpack{W: 0.1, Wice: 0.09, Wliq: 0.01, Tem: 0, Density: 200}
	dry.compact(0, 24)
	wet.compact(0, 24)
	if wet.Density <= dry.Density {
		t.Errorf("wet pack %g should compact beyond dry pack %g", wet.Density, dry.Density)
	}
}

func TestCanopySnowCapacity(t *testing.T) {
	// The capacity grows with leaf area and shrinks as warmer snow
	// falls denser.
	if CanopySnowCapacity(-5, 4) <= CanopySnowCapacity(-5, 1) {
		t.Error("capacity should grow with LAI")
	}
	if CanopySnowCapacity(2, 3) >= CanopySnowCapacity(-15, 3) {
		t.Error("capacity should shrink with warmer snowfall")
	}
	if CanopySnowCapacity(-5, 0) != 0 {
		t.Error("a leafless canopy holds no snow")
	}
}
