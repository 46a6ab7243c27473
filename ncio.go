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

// Shared NetCDF plumbing for the terrain, forcing, output and UH
// artifacts.

package hydromap

import (
	"fmt"

	"github.com/ctessum/cdf"
)

// addGridAttrs attaches the grid geometry as global attributes.
func addGridAttrs(h *cdf.Header, g Grid) {
	h.AddAttribute("", "ncols", []int32{int32(g.Ncols)})
	h.AddAttribute("", "nrows", []int32{int32(g.Nrows)})
	h.AddAttribute("", "xllcorner", []float64{g.Xll})
	h.AddAttribute("", "yllcorner", []float64{g.Yll})
	h.AddAttribute("", "cellsize_m", []float64{g.Cellsize})
	h.AddAttribute("", "cellsize_deg", []float64{g.CellsizeDeg})
	h.AddAttribute("", "NODATA_value", []int32{int32(g.Nodata)})
}

// gridFromAttrs reads the grid geometry back from global attributes.
func gridFromAttrs(f *cdf.File) Grid {
	return Grid{
		Ncols:       int(attrFloat(f, "", "ncols")),
		Nrows:       int(attrFloat(f, "", "nrows")),
		Cellsize:    attrFloat(f, "", "cellsize_m"),
		CellsizeDeg: attrFloat(f, "", "cellsize_deg"),
		Xll:         attrFloat(f, "", "xllcorner"),
		Yll:         attrFloat(f, "", "yllcorner"),
		Nodata:      int(attrFloat(f, "", "NODATA_value")),
	}
}

// writeFloats writes a full float64 variable.
func writeFloats(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data)
	return err
}

// writeInts writes a full int variable as int32.
func writeInts(f *cdf.File, name string, data []int) error {
	buf := make([]int32, len(data))
	for i, v := range data {
		buf[i] = int32(v)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(buf)
	return err
}

// readFloatsInto reads a full variable into a float64 slice, accepting
// any numeric storage class.
func readFloatsInto(f *cdf.File, name string, out []float64) error {
	r := f.Reader(name, nil, nil)
	buf := r.Zero(len(out))
	if _, err := r.Read(buf); err != nil {
		return err
	}
	switch b := buf.(type) {
	case []float64:
		copy(out, b)
	case []float32:
		for i, v := range b {
			out[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			out[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			out[i] = float64(v)
		}
	default:
		return fmt.Errorf("variable %v: unsupported storage class", name)
	}
	return nil
}

// readIntsInto reads a full variable into an int slice.
func readIntsInto(f *cdf.File, name string, out []int) error {
	r := f.Reader(name, nil, nil)
	buf := r.Zero(len(out))
	if _, err := r.Read(buf); err != nil {
		return err
	}
	switch b := buf.(type) {
	case []int32:
		for i, v := range b {
			out[i] = int(v)
		}
	case []int16:
		for i, v := range b {
			out[i] = int(v)
		}
	case []float64:
		for i, v := range b {
			out[i] = int(v)
		}
	case []float32:
		for i, v := range b {
			out[i] = int(v)
		}
	default:
		return fmt.Errorf("variable %v: unsupported storage class", name)
	}
	return nil
}
