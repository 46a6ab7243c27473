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

func TestReadSoilLib(t *testing.T) {
	lib, err := ReadSoilLib(testSoilLibFile(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	loam, err := lib.Class(1)
	if err != nil {
		t.Fatal(err)
	}
	if loam.Texture != "LOAM" {
		t.Errorf("texture = %q", loam.Texture)
	}
	// %Vol converted to fractions, mm/h to m/h, cm to m.
	if absDifferent(loam.Porosity, 0.463, 1e-12) {
		t.Errorf("porosity = %g, want 0.463", loam.Porosity)
	}
	if absDifferent(loam.SatHydrauCond, 0.0132, 1e-12) {
		t.Errorf("K_s = %g, want 0.0132", loam.SatHydrauCond)
	}
	if absDifferent(loam.Bubbling, 0.1115, 1e-12) {
		t.Errorf("bubbling = %g, want 0.1115", loam.Bubbling)
	}
	if absDifferent(loam.WiltingPoint, 0.12, 1e-12) {
		t.Errorf("wilting point = %g, want 0.12", loam.WiltingPoint)
	}

	clay, err := lib.Class(2)
	if err != nil {
		t.Fatal(err)
	}
	if clay.SatHydrauCond >= loam.SatHydrauCond {
		t.Error("clay should conduct slower than loam")
	}

	if _, err := lib.Class(99); err == nil {
		t.Fatal("expected a domain error for the missing class")
	} else if me, ok := err.(*ModelError); !ok || me.Kind != DomainError {
		t.Fatalf("got %v, want a DomainError", err)
	}
}

func TestReadVegLib(t *testing.T) {
	lib, err := ReadVegLib(testVegLibFile(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	forest, err := lib.Class(1)
	if err != nil {
		t.Fatal(err)
	}
	if !forest.Overstory {
		t.Error("forest should have an overstory")
	}
	for m := 0; m < 12; m++ {
		if forest.LAI[m] != 3.0 {
			t.Fatalf("month %d LAI = %g", m+1, forest.LAI[m])
		}
	}
	if forest.CanTop != 14 || forest.WindH != 10 {
		t.Errorf("canopy top = %g, wind height = %g", forest.CanTop, forest.WindH)
	}
	grass, err := lib.Class(2)
	if err != nil {
		t.Fatal(err)
	}
	if grass.Overstory {
		t.Error("grassland should not have an overstory")
	}
	if _, err := lib.Class(42); err == nil {
		t.Error("expected a domain error for the missing class")
	}
}
