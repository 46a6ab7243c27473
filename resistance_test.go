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

import "testing"

func TestWindSpeedProfile(t *testing.T) {
	// The logarithmic profile is the identity at the observation
	// height and increases with height.
	ws := WindSpeedProfile(10, 10, 2, 0.2, 0.04)
	if absDifferent(ws, 2, 1e-12) {
		t.Errorf("same-height wind = %g, want 2", ws)
	}
	if up := WindSpeedProfile(10, 20, 2, 0.2, 0.04); up <= 2 {
		t.Errorf("wind at 20 m = %g, want > 2", up)
	}
}

func TestAeroResistanceDecreasesWithWind(t *testing.T) {
	raSlow := AeroResistanceOverstory(1, 10, 20, 14, 9.2, 0.9, 0.2, 0.04)
	raFast := AeroResistanceOverstory(4, 10, 20, 14, 9.2, 0.9, 0.2, 0.04)
	if raSlow <= 0 || raFast <= 0 {
		t.Fatalf("resistances must be positive: %g, %g", raSlow, raFast)
	}
	if raFast >= raSlow {
		t.Errorf("resistance should fall with wind: %g -> %g", raSlow, raFast)
	}
	// Quadrupling the wind speed divides the neutral resistance by
	// exactly four.
	if different(raSlow/raFast, 4, 1e-9) {
		t.Errorf("resistance ratio = %g, want 4", raSlow/raFast)
	}

	ruSlow := AeroResistanceUnderstory(1, 10, 0.2, 0.04)
	ruFast := AeroResistanceUnderstory(4, 10, 0.2, 0.04)
	if ruFast >= ruSlow {
		t.Errorf("understory resistance should fall with wind: %g -> %g", ruSlow, ruFast)
	}
}

func TestStomatalTemperatureFactor(t *testing.T) {
	// Saturates near freezing, minimal near 25 °C.
	if f := stomatalTemperatureFactor(0); f != stomatalFactorLimit {
		t.Errorf("f1(0) = %g, want the clamp value", f)
	}
	if f := stomatalTemperatureFactor(2); f != stomatalFactorLimit {
		t.Errorf("f1(2) = %g, want the clamp value", f)
	}
	f25 := stomatalTemperatureFactor(25)
	// 1/(0.08·25 − 0.0016·625) = 1.
	if absDifferent(f25, 1, 1e-12) {
		t.Errorf("f1(25) = %g, want 1", f25)
	}
	if f := stomatalTemperatureFactor(10); f <= f25 {
		t.Errorf("f1(10) = %g should exceed f1(25) = %g", f, f25)
	}
}

func TestStomatalVaporFactor(t *testing.T) {
	// Saturated air gives no deficit: factor 1.
	if f := stomatalVaporFactor(20, 20, 100); absDifferent(f, 1, 1e-12) {
		t.Errorf("f2 at saturation = %g, want 1", f)
	}
	// Drier air raises the factor; a deficit beyond the closure
	// threshold clamps.
	f60 := stomatalVaporFactor(15, 25, 60)
	f90 := stomatalVaporFactor(15, 25, 90)
	if f60 <= f90 {
		t.Errorf("drier air should resist more: %g <= %g", f60, f90)
	}
	if f := stomatalVaporFactor(35, 45, 1); f != stomatalFactorLimit {
		t.Errorf("extreme deficit f2 = %g, want the clamp value", f)
	}
}

func TestStomatalMoistureFactor(t *testing.T) {
	const wp, free = 0.12, 0.28
	if f := stomatalMoistureFactor(0.10, wp, free); f != 0 {
		t.Errorf("below wilting point f4 = %g, want 0", f)
	}
	if f := stomatalMoistureFactor(0.35, wp, free); f != 1 {
		t.Errorf("above free moisture f4 = %g, want 1", f)
	}
	if f := stomatalMoistureFactor(free, wp, free); absDifferent(f, 1, 1e-12) {
		t.Errorf("f4 at free moisture = %g, want 1", f)
	}
	// Between the bounds the factor exceeds 1 and grows toward the
	// wilting point.
	fDry := stomatalMoistureFactor(0.14, wp, free)
	fWet := stomatalMoistureFactor(0.25, wp, free)
	if fDry <= fWet || fWet < 1 {
		t.Errorf("f4 ordering wrong: dry %g, wet %g", fDry, fWet)
	}
}

func TestStomatalResistanceUnits(t *testing.T) {
	// Benign midsummer conditions: every factor near 1, so the leaf
	// resistance is close to rs_min/36 (s/cm to h/m).
	rs := StomatalResistance(25, 20, 30, 100, 1000, 30, 8, 50, 0.4, 0.12, 0.28)
	if rs <= 0 {
		t.Fatalf("rs = %g", rs)
	}
	if rs < 8.0/36*0.9 || rs > 8.0/36*3 {
		t.Errorf("rs = %g, want near %g", rs, 8.0/36)
	}
	// Canopy resistance falls with leaf area.
	if CanopyResistance(rs, 3) >= CanopyResistance(rs, 1) {
		t.Error("canopy resistance should fall with LAI")
	}
}
