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

// Command build-uh constructs the grid Unit Hydrographs of a terrain.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/hydromap/hydromaputil"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: build-uh configfile")
		os.Exit(2)
	}
	cfg := hydromaputil.InitializeConfig()
	if _, err := hydromaputil.BuildUH(cfg, os.Args[1], false); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(hydromaputil.ExitCode(err))
	}
}
