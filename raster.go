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
	"github.com/ctessum/sparse"
)

// Grid describes the geometry shared by every raster in a model run.
// Row 0 is the northernmost row and column 0 the westmost column.
type Grid struct {
	Ncols, Nrows int
	// Cellsize is the square cell edge length [m].
	Cellsize float64
	// Xll and Yll are the geographic coordinates of the lower-left
	// corner of the grid.
	Xll, Yll float64
	// CellsizeDeg is the cell size in decimal degrees, used to derive
	// per-row latitudes from Yll.
	CellsizeDeg float64
	// Nodata is the sentinel marking cells outside the model domain.
	Nodata int
}

// SameShape reports whether g and o agree on the grid dimensions and
// cell size.
func (g Grid) SameShape(o Grid) bool {
	return g.Ncols == o.Ncols && g.Nrows == o.Nrows && g.Cellsize == o.Cellsize
}

// CellArea returns the area of one grid cell [m²].
func (g Grid) CellArea() float64 { return g.Cellsize * g.Cellsize }

// Contains reports whether (row, col) lies inside the grid bounds.
func (g Grid) Contains(row, col int) bool {
	return row >= 0 && row < g.Nrows && col >= 0 && col < g.Ncols
}

// Lat returns the latitude of the center of the given row [decimal
// degrees].
func (g Grid) Lat(row int) float64 {
	return g.Yll + (float64(g.Nrows-1-row)+0.5)*g.CellsizeDeg
}

// IntRaster is a nodata-aware view over an integer raster band.
type IntRaster struct {
	Grid
	Data *sparse.DenseArrayInt
}

// NewIntRaster allocates a raster with every cell set to the grid's
// nodata sentinel.
func NewIntRaster(g Grid) *IntRaster {
	r := &IntRaster{Grid: g, Data: sparse.ZerosDenseInt(g.Nrows, g.Ncols)}
	for i := range r.Data.Elements {
		r.Data.Elements[i] = g.Nodata
	}
	return r
}

// Get returns the value at (row, col).
func (r *IntRaster) Get(row, col int) int { return r.Data.Get(row, col) }

// Set stores v at (row, col).
func (r *IntRaster) Set(v, row, col int) { r.Data.Set(v, row, col) }

// IsNodata reports whether (row, col) lies outside the model domain.
func (r *IntRaster) IsNodata(row, col int) bool {
	return r.Data.Get(row, col) == r.Nodata
}

// EachValid calls f for every in-domain cell in row-major order.
func (r *IntRaster) EachValid(f func(row, col, v int)) {
	for i := 0; i < r.Nrows; i++ {
		for j := 0; j < r.Ncols; j++ {
			if v := r.Data.Get(i, j); v != r.Nodata {
				f(i, j, v)
			}
		}
	}
}

// FloatRaster is a nodata-aware view over a float raster band. The
// nodata sentinel of the underlying grid marks missing cells.
type FloatRaster struct {
	Grid
	Data *sparse.DenseArray
}

// NewFloatRaster allocates a raster with every cell set to the grid's
// nodata sentinel.
func NewFloatRaster(g Grid) *FloatRaster {
	r := &FloatRaster{Grid: g, Data: sparse.ZerosDense(g.Nrows, g.Ncols)}
	for i := range r.Data.Elements {
		r.Data.Elements[i] = float64(g.Nodata)
	}
	return r
}

// Get returns the value at (row, col).
func (r *FloatRaster) Get(row, col int) float64 { return r.Data.Get(row, col) }

// Set stores v at (row, col).
func (r *FloatRaster) Set(v float64, row, col int) { r.Data.Set(v, row, col) }

// IsNodata reports whether (row, col) lies outside the model domain.
func (r *FloatRaster) IsNodata(row, col int) bool {
	return isNodataValue(r.Data.Get(row, col), r.Nodata)
}

// EachValid calls f for every in-domain cell in row-major order.
func (r *FloatRaster) EachValid(f func(row, col int, v float64)) {
	for i := 0; i < r.Nrows; i++ {
		for j := 0; j < r.Ncols; j++ {
			v := r.Data.Get(i, j)
			if !isNodataValue(v, r.Nodata) {
				f(i, j, v)
			}
		}
	}
}

// isNodataValue compares a float against an integer nodata sentinel,
// allowing for storage round-trips through float32.
func isNodataValue(v float64, nodata int) bool {
	d := v - float64(nodata)
	if d < 0 {
		d = -d
	}
	return d < 1e-5
}
