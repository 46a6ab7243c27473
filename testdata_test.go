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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}

// testSoilLibFile writes a two-class soil library (1: loam, 2: clay)
// and returns its path. Columns: code, texture, wilting point, field
// capacity, saturation, residual [%Vol], available water [cm/cm],
// K_s [mm/h], bulk density, porosity [%Vol], b, air-entry head [cm],
// bubbling pressure [cm].
func testSoilLibFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "SOIL_LIB.txt")
	rows := []string{
		"# test soil library",
		"1\tLOAM\t12.0\t28.0\t46.0\t2.7\t0.15\t13.2\t1.43\t46.3\t5.39\t11.15\t11.15",
		"2\tCLAY\t27.2\t39.5\t48.2\t9.0\t0.12\t0.60\t1.38\t48.2\t11.55\t37.30\t37.30",
	}
	if err := os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

// testVegLibFile writes a two-class vegetation library (1: conifer
// forest with overstory, 2: grassland without) and returns its path.
func testVegLibFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "VEG_LIB.txt")
	monthly := func(v float64) string {
		f := make([]string, 12)
		for i := range f {
			f[i] = fmt.Sprintf("%g", v)
		}
		return strings.Join(f, "\t")
	}
	forest := strings.Join([]string{
		"1", "1", "2.0", "8.0", "50.0",
		monthly(3.0),  // LAI
		monthly(0.18), // albedo
		monthly(0.9),  // roughness
		monthly(9.2),  // displacement
		"1.0", "14.0", "2.0", "10.0", "30.0", "0.5", "0.5", "0.2",
	}, "\t")
	grass := strings.Join([]string{
		"2", "0", "2.0", "1.2", "50.0",
		monthly(1.5),
		monthly(0.20),
		monthly(0.04),
		monthly(0.2),
		"0.0", "0.5", "0.0", "10.0", "100.0", "0.5", "0.5", "0.0",
	}, "\t")
	content := "# test vegetation library\n" + forest + "\n" + grass + "\n"
	if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLibs(t *testing.T) (*SoilLib, *VegLib) {
	t.Helper()
	dir := t.TempDir()
	soil, err := ReadSoilLib(testSoilLibFile(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	veg, err := ReadVegLib(testVegLibFile(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	return soil, veg
}

// testGrid returns the geometry shared by the synthetic test terrains.
func testGrid(nrows, ncols int) Grid {
	return Grid{
		Ncols: ncols, Nrows: nrows,
		Cellsize:    100,
		CellsizeDeg: 0.001,
		Xll:         102.0, Yll: 30.0,
		Nodata: -9999,
	}
}

// fillRaster creates an IntRaster with every cell set to v.
func fillRaster(g Grid, v int) *IntRaster {
	r := NewIntRaster(g)
	for i := 0; i < g.Nrows; i++ {
		for j := 0; j < g.Ncols; j++ {
			r.Set(v, i, j)
		}
	}
	return r
}

// testTerrain builds a synthetic terrain: a uniform west-to-east slope
// draining east along each row, the last column draining south into an
// outlet at the lower-right corner. The last column is a stream.
func testTerrain(nrows, ncols int) *Terrain {
	g := testGrid(nrows, ncols)
	t := &Terrain{
		DEM:      NewIntRaster(g),
		FDR:      NewIntRaster(g),
		FAC:      NewIntRaster(g),
		STR:      fillRaster(g, 0),
		Outlet:   fillRaster(g, 0),
		VegType:  fillRaster(g, 1),
		VegFrac:  fillRaster(g, 80),
		SoilType: fillRaster(g, 1),
	}
	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			t.DEM.Set(10+(ncols-1-j)+(nrows-1-i), i, j)
			if j == ncols-1 {
				t.FDR.Set(4, i, j) // south
				t.STR.Set(1, i, j)
				t.FAC.Set((i+1)*ncols-1, i, j)
			} else {
				t.FDR.Set(1, i, j) // east
				t.FAC.Set(j, i, j)
			}
		}
	}
	// The outlet cell keeps its southward direction so that flow
	// leaves the grid there.
	t.Outlet.Set(1, nrows-1, ncols-1)
	return t
}

// testModel assembles a Model over the synthetic terrain with the
// standard parameterisation used across the tests.
func testModel(t *testing.T, terr *Terrain, nSteps int) *Model {
	t.Helper()
	soilLib, vegLib := testLibs(t)
	d := &Model{
		Clock:  NewStepClock(1990, time.June, 1, 0, 24),
		Dt:     24,
		NSteps: nSteps,
		Soil: SoilParams{
			Thickness:      2.0,
			ThicknessUpper: 0.2,
			ThicknessLower: 1.8,
			WaterTableInit: 0.3,
		},
		Veg: VegParams{
			ReferenceHeight:   20,
			UnderstoryPresent: true,
			LAIU:              1.0,
			AlbedoU:           0.18,
			RoughnessU:        0.04,
			DisplacementU:     0.2,
			RminU:             1.2,
			RmaxU:             50,
			RGLU:              30,
			AlbedoSoil:        0.10,
		},
		WindHeight:  10,
		AngstromA:   0.25,
		AngstromB:   0.5,
		StreamDepth: 1.0,
		StreamWidth: 5.0,
		ChannelK:    0.1,
	}
	d.InitFuncs = []DomainManipulator{InitCells(terr, soilLib, vegLib)}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	return d
}
