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
	"encoding/gob"
	"fmt"
	"io"
)

// StateDataVersion identifies the checkpoint layout. It must match
// between Save and Load.
const StateDataVersion = "1"

// cellState is the dynamic portion of a cell's state stored in a
// checkpoint.
type cellState struct {
	Row, Col      int
	InterceptionO float64
	InterceptionU float64
	SMUpper       float64
	SMLower       float64
	WaterTable    float64
	SnowGround    Snowpack
	SnowCanopy    Snowpack
	ChanV         float64
	ChanQout      float64
}

type versionedState struct {
	DataVersion string
	Step        int
	Cells       []cellState
}

// Save returns a DomainManipulator writing the dynamic cell state to w
// as a gob checkpoint, for restarting a spun-up model.
func Save(w io.Writer) DomainManipulator {
	return func(d *Model) error {
		if len(d.land) == 0 {
			return fmt.Errorf("hydromap: no cells to save")
		}
		state := versionedState{DataVersion: StateDataVersion, Step: d.Step}
		for _, c := range d.land {
			state.Cells = append(state.Cells, cellState{
				Row: c.Row, Col: c.Col,
				InterceptionO: c.InterceptionO,
				InterceptionU: c.InterceptionU,
				SMUpper:       c.SMUpper,
				SMLower:       c.SMLower,
				WaterTable:    c.WaterTable,
				SnowGround:    c.SnowGround,
				SnowCanopy:    c.SnowCanopy,
				ChanV:         c.ChanV,
				ChanQout:      c.ChanQout,
			})
		}
		if err := gob.NewEncoder(w).Encode(state); err != nil {
			return fmt.Errorf("hydromap: saving state: %v", err)
		}
		return nil
	}
}

// Load returns a DomainManipulator restoring the dynamic cell state
// from a checkpoint previously written by Save. It must run after the
// cells have been initialised.
func Load(r io.Reader) DomainManipulator {
	return func(d *Model) error {
		var state versionedState
		if err := gob.NewDecoder(r).Decode(&state); err != nil {
			return fmt.Errorf("hydromap: loading state: %v", err)
		}
		if state.DataVersion != StateDataVersion {
			return fmt.Errorf("hydromap: checkpoint version %s is not compatible with %s",
				state.DataVersion, StateDataVersion)
		}
		for _, s := range state.Cells {
			c := d.CellAt(s.Row, s.Col)
			if c == nil {
				return fmt.Errorf("hydromap: checkpoint cell (%d, %d) is outside the domain",
					s.Row, s.Col)
			}
			c.InterceptionO = s.InterceptionO
			c.InterceptionU = s.InterceptionU
			c.SMUpper = s.SMUpper
			c.SMLower = s.SMLower
			c.WaterTable = s.WaterTable
			c.SnowGround = s.SnowGround
			c.SnowCanopy = s.SnowCanopy
			c.ChanV = s.ChanV
			c.ChanQout = s.ChanQout
		}
		return nil
	}
}
