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
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestASCIIGridRoundTrip checks the ingestion idempotence property:
// write → read → write is byte-identical for integer rasters.
func TestASCIIGridRoundTrip(t *testing.T) {
	terr := testTerrain(4, 5)
	dir := t.TempDir()
	p1 := filepath.Join(dir, "dem1.asc")
	p2 := filepath.Join(dir, "dem2.asc")
	if err := WriteASCIIGrid(p1, terr.DEM); err != nil {
		t.Fatal(err)
	}
	r, err := ReadASCIIGrid(p1)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteASCIIGrid(p2, r); err != nil {
		t.Fatal(err)
	}
	b1, err := os.ReadFile(p1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(p2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Error("ASCII round-trip is not byte-identical")
	}
}

func TestTerrainArtifactRoundTrip(t *testing.T) {
	terr := testTerrain(4, 4)
	path := filepath.Join(t.TempDir(), "terrain.nc")
	if err := WriteTerrain(path, terr); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTerrain(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Grid().SameShape(terr.Grid()) {
		t.Fatalf("grid mismatch: %+v vs %+v", got.Grid(), terr.Grid())
	}
	if got.Grid().Nodata != terr.Grid().Nodata {
		t.Errorf("nodata = %d, want %d", got.Grid().Nodata, terr.Grid().Nodata)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if got.DEM.Get(i, j) != terr.DEM.Get(i, j) {
				t.Fatalf("DEM(%d,%d) = %d, want %d", i, j,
					got.DEM.Get(i, j), terr.DEM.Get(i, j))
			}
			if got.FDR.Get(i, j) != terr.FDR.Get(i, j) {
				t.Fatalf("FDR(%d,%d) mismatch", i, j)
			}
		}
	}
}

// TestTerrainValidateRejectsBadFDR checks that terrain ingestion fails
// fast on an illegal flow-direction code.
func TestTerrainValidateRejectsBadFDR(t *testing.T) {
	terr := testTerrain(3, 3)
	terr.FDR.Set(3, 1, 1) // not a D8 code
	err := terr.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	me, ok := err.(*ModelError)
	if !ok || me.Kind != DomainError {
		t.Fatalf("got %v, want a DomainError", err)
	}
	if me.Row != 1 || me.Col != 1 {
		t.Errorf("error located at (%d,%d), want (1,1)", me.Row, me.Col)
	}
}
