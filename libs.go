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
	"bufio"
	"os"
	"strconv"
	"strings"
)

// SoilClass holds the hydraulic parameters of one soil texture class.
// Moisture quantities are stored as volumetric fractions and lengths in
// meters; the library file carries %Vol, mm/h and cm and is converted on
// read.
type SoilClass struct {
	Code    int
	Texture string

	WiltingPoint  float64 // wilting point [fraction]
	FieldCapacity float64 // field capacity [fraction]
	Saturation    float64 // saturation [fraction]
	Residual      float64 // residual moisture content [fraction]
	AvailWater    float64 // plant-available water [cm/cm]
	SatHydrauCond float64 // saturated hydraulic conductivity [m/h]
	BulkDensity   float64 // matric bulk density [g/cm³]
	Porosity      float64 // porosity [fraction]
	PoreSizeDisP  float64 // pore size distribution parameter b
	AirEntryHead  float64 // air-entry pressure head [m]
	Bubbling      float64 // bubbling pressure [m]
}

// SoilLib is the immutable soil parameter library, keyed by texture
// class code.
type SoilLib struct {
	classes map[int]*SoilClass
}

// Class returns the parameters of the given soil class. A class id
// missing from the library is a domain error.
func (l *SoilLib) Class(id int) (*SoilClass, error) {
	c, ok := l.classes[id]
	if !ok {
		return nil, domainErrorf(-1, -1, -1, "soil class %d missing from library", id)
	}
	return c, nil
}

// ReadSoilLib parses a tab-delimited soil library file. Lines starting
// with '#' and trailing '#' comments are ignored.
func ReadSoilLib(path string) (*SoilLib, error) {
	rows, err := readTabTable(path)
	if err != nil {
		return nil, err
	}
	lib := &SoilLib{classes: make(map[int]*SoilClass)}
	for _, r := range rows {
		if len(r.fields) < 13 {
			return nil, configErrorf(path, r.line,
				"soil library row has %d columns, want 13", len(r.fields))
		}
		p := newFieldParser(path, r)
		c := &SoilClass{
			Code:          p.int(0),
			Texture:       r.fields[1],
			WiltingPoint:  p.float(2) / 100,
			FieldCapacity: p.float(3) / 100,
			Saturation:    p.float(4) / 100,
			Residual:      p.float(5) / 100,
			AvailWater:    p.float(6),
			SatHydrauCond: p.float(7) / 1000, // mm/h -> m/h
			BulkDensity:   p.float(8),
			Porosity:      p.float(9) / 100,
			PoreSizeDisP:  p.float(10),
			AirEntryHead:  p.float(11) / 100, // cm -> m
			Bubbling:      p.float(12) / 100, // cm -> m
		}
		if p.err != nil {
			return nil, p.err
		}
		lib.classes[c.Code] = c
	}
	return lib, nil
}

// VegClass holds the parameters of one vegetation class. The monthly
// vectors are indexed by zero-based month.
type VegClass struct {
	ID        int
	Overstory bool

	Rarc float64 // architectural resistance [s/m]; carried but not consumed
	Rmin float64 // minimum stomatal resistance [s/cm]
	Rmax float64 // maximum (cuticular) resistance [s/cm]

	LAI          [12]float64
	Albedo       [12]float64
	Roughness    [12]float64 // roughness length [m]
	Displacement [12]float64 // displacement height [m]

	SAI     float64 // stem area index
	CanTop  float64 // height of canopy top [m]
	CanBott float64 // height of canopy bottom [m]
	WindH   float64 // wind measurement height [m]
	RGL     float64 // radiation level where rs doubles [W/m²]
	SolAtn  float64 // radiation attenuation factor
	WndAtn  float64 // wind attenuation through the overstory
	Trunk   float64 // trunk fraction of tree height
}

// VegLib is the immutable vegetation parameter library, keyed by class
// id.
type VegLib struct {
	classes map[int]*VegClass
}

// Class returns the parameters of the given vegetation class. A class
// id missing from the library is a domain error.
func (l *VegLib) Class(id int) (*VegClass, error) {
	c, ok := l.classes[id]
	if !ok {
		return nil, domainErrorf(-1, -1, -1, "vegetation class %d missing from library", id)
	}
	return c, nil
}

// ReadVegLib parses a tab-delimited vegetation library file with one
// row per class: id, overstory flag, Rarc, Rmin, Rmax, 12 monthly LAI,
// 12 monthly albedo, 12 monthly roughness, 12 monthly displacement,
// then SAI, canopy top, canopy bottom, wind height, RGL, radiation
// attenuation, wind attenuation and trunk ratio.
func ReadVegLib(path string) (*VegLib, error) {
	const ncols = 5 + 4*12 + 8
	rows, err := readTabTable(path)
	if err != nil {
		return nil, err
	}
	lib := &VegLib{classes: make(map[int]*VegClass)}
	for _, r := range rows {
		if len(r.fields) < ncols {
			return nil, configErrorf(path, r.line,
				"vegetation library row has %d columns, want %d", len(r.fields), ncols)
		}
		p := newFieldParser(path, r)
		c := &VegClass{
			ID:        p.int(0),
			Overstory: p.int(1) == 1,
			Rarc:      p.float(2),
			Rmin:      p.float(3),
			Rmax:      p.float(4),
		}
		at := 5
		for m := 0; m < 12; m++ {
			c.LAI[m] = p.float(at + m)
		}
		at += 12
		for m := 0; m < 12; m++ {
			c.Albedo[m] = p.float(at + m)
		}
		at += 12
		for m := 0; m < 12; m++ {
			c.Roughness[m] = p.float(at + m)
		}
		at += 12
		for m := 0; m < 12; m++ {
			c.Displacement[m] = p.float(at + m)
		}
		at += 12
		c.SAI = p.float(at)
		c.CanTop = p.float(at + 1)
		c.CanBott = p.float(at + 2)
		c.WindH = p.float(at + 3)
		c.RGL = p.float(at + 4)
		c.SolAtn = p.float(at + 5)
		c.WndAtn = p.float(at + 6)
		c.Trunk = p.float(at + 7)
		if p.err != nil {
			return nil, p.err
		}
		lib.classes[c.ID] = c
	}
	return lib, nil
}

type tableRow struct {
	line   int
	fields []string
}

// readTabTable reads a tab-delimited text file, stripping '#' comments
// and blank lines.
func readTabTable(path string) ([]tableRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configErrorf(path, 0, "%v", err)
	}
	defer f.Close()
	var rows []tableRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		rows = append(rows, tableRow{line: line, fields: strings.Fields(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, configErrorf(path, line, "%v", err)
	}
	return rows, nil
}

// fieldParser accumulates the first conversion error of a table row so
// that callers can parse a full row and check once.
type fieldParser struct {
	path string
	row  tableRow
	err  error
}

func newFieldParser(path string, row tableRow) *fieldParser {
	return &fieldParser{path: path, row: row}
}

func (p *fieldParser) int(i int) int {
	v, err := strconv.Atoi(p.row.fields[i])
	if err != nil && p.err == nil {
		p.err = configErrorf(p.path, p.row.line, "column %d: %v", i+1, err)
	}
	return v
}

func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.row.fields[i], 64)
	if err != nil && p.err == nil {
		p.err = configErrorf(p.path, p.row.line, "column %d: %v", i+1, err)
	}
	return v
}
