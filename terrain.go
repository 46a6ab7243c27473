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

// Static terrain ingestion: the eight single-band rasters of a model
// domain, their ESRI ASCII grid form, and the consolidated terrain.nc
// artifact.

package hydromap

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
)

// terrainVars names the raster bands of the terrain artifact, in file
// order.
var terrainVars = []string{
	"DEM", "FDR", "FAC", "STR", "OUTLET", "VEGTYPE", "VEGFRAC", "SOILTYPE",
}

// Terrain bundles the static rasters of a model domain.
type Terrain struct {
	DEM      *IntRaster // elevation [m]
	FDR      *IntRaster // D8 flow direction codes
	FAC      *IntRaster // flow accumulation [cell count]
	STR      *IntRaster // stream mask (0/1)
	Outlet   *IntRaster // outlet mask (0/1)
	VegType  *IntRaster // vegetation class id
	VegFrac  *IntRaster // canopy fraction [percent]
	SoilType *IntRaster // soil class id
}

// Grid returns the shared grid geometry.
func (t *Terrain) Grid() Grid { return t.DEM.Grid }

// bands returns the rasters in terrainVars order.
func (t *Terrain) bands() []*IntRaster {
	return []*IntRaster{t.DEM, t.FDR, t.FAC, t.STR, t.Outlet,
		t.VegType, t.VegFrac, t.SoilType}
}

// Validate checks the terrain invariants: all bands share the grid,
// and every in-domain flow direction code is legal.
func (t *Terrain) Validate() error {
	g := t.Grid()
	for i, b := range t.bands() {
		if !b.Grid.SameShape(g) {
			return inputErrorf("", "terrain band %s does not match the DEM grid",
				terrainVars[i])
		}
	}
	return eachValidErr(t.FDR, func(i, j, code int) error {
		_, err := ParseDirection(code, i, j)
		return err
	})
}

// ReadASCIIGrid reads an ESRI ASCII integer raster.
func ReadASCIIGrid(path string) (*IntRaster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "%v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var g Grid
	header := map[string]*float64{}
	var ncols, nrows, nodata, cellsize, xll, yll float64
	header["ncols"] = &ncols
	header["nrows"] = &nrows
	header["nodata_value"] = &nodata
	header["cellsize"] = &cellsize
	header["xllcorner"] = &xll
	header["yllcorner"] = &yll

	line := 0
	for i := 0; i < 6; i++ {
		if !scanner.Scan() {
			return nil, inputErrorf(path, "truncated header")
		}
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			return nil, inputErrorf(path, "line %d: malformed header line", line)
		}
		dst, ok := header[strings.ToLower(fields[0])]
		if !ok {
			return nil, inputErrorf(path, "line %d: unknown header key %q", line, fields[0])
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, inputErrorf(path, "line %d: %v", line, err)
		}
		*dst = v
	}
	g.Ncols = int(ncols)
	g.Nrows = int(nrows)
	g.Nodata = int(nodata)
	g.CellsizeDeg = cellsize
	g.Xll, g.Yll = xll, yll

	r := NewIntRaster(g)
	row := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if row >= g.Nrows || len(fields) != g.Ncols {
			return nil, inputErrorf(path, "line %d: expected %d columns over %d rows",
				line, g.Ncols, g.Nrows)
		}
		for col, fv := range fields {
			v, err := strconv.Atoi(fv)
			if err != nil {
				return nil, inputErrorf(path, "line %d: %v", line, err)
			}
			r.Set(v, row, col)
		}
		row++
	}
	if row != g.Nrows {
		return nil, inputErrorf(path, "got %d data rows, want %d", row, g.Nrows)
	}
	return r, nil
}

// WriteASCIIGrid writes an integer raster in ESRI ASCII form. The
// output round-trips byte-identically through ReadASCIIGrid.
func WriteASCIIGrid(path string, r *IntRaster) error {
	f, err := os.Create(path)
	if err != nil {
		return outputErrorf(path, "%v", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", r.Ncols)
	fmt.Fprintf(w, "nrows %d\n", r.Nrows)
	fmt.Fprintf(w, "xllcorner %s\n", strconv.FormatFloat(r.Xll, 'g', -1, 64))
	fmt.Fprintf(w, "yllcorner %s\n", strconv.FormatFloat(r.Yll, 'g', -1, 64))
	fmt.Fprintf(w, "cellsize %s\n", strconv.FormatFloat(r.CellsizeDeg, 'g', -1, 64))
	fmt.Fprintf(w, "NODATA_value %d\n", r.Nodata)
	for i := 0; i < r.Nrows; i++ {
		for j := 0; j < r.Ncols; j++ {
			if j > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.Itoa(r.Get(i, j)))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return outputErrorf(path, "%v", err)
	}
	return nil
}

// WriteTerrain stores the terrain bands in one NetCDF artifact.
func WriteTerrain(path string, t *Terrain) error {
	if err := t.Validate(); err != nil {
		return err
	}
	g := t.Grid()
	h := cdf.NewHeader([]string{"lat", "lon"}, []int{g.Nrows, g.Ncols})
	h.AddAttribute("", "comment", "static terrain data file")
	addGridAttrs(h, g)
	for _, name := range terrainVars {
		h.AddVariable(name, []string{"lat", "lon"}, []int32{0})
	}
	h.AddAttribute("DEM", "units", "m")
	h.AddAttribute("FAC", "units", "cells")
	h.AddAttribute("VEGFRAC", "units", "percent")
	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		return outputErrorf(path, "%v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return outputErrorf(path, "%v", err)
	}
	for i, b := range t.bands() {
		if err := writeInts(f, terrainVars[i], b.Data.Elements); err != nil {
			return outputErrorf(path, "%v", err)
		}
	}
	return nil
}

// ReadTerrain loads a terrain artifact.
func ReadTerrain(path string) (*Terrain, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, inputErrorf(path, "%v", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, inputErrorf(path, "%v", err)
	}
	g := gridFromAttrs(f)
	if g.Ncols <= 0 || g.Nrows <= 0 {
		return nil, inputErrorf(path, "missing or invalid grid attributes")
	}
	t := &Terrain{}
	dst := []**IntRaster{&t.DEM, &t.FDR, &t.FAC, &t.STR, &t.Outlet,
		&t.VegType, &t.VegFrac, &t.SoilType}
	for i, name := range terrainVars {
		r := NewIntRaster(g)
		if err := readIntsInto(f, name, r.Data.Elements); err != nil {
			return nil, inputErrorf(path, "%v", err)
		}
		*dst[i] = r
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
