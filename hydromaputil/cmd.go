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

// Package hydromaputil builds the command-line interface of the
// hydromap model.
package hydromaputil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/hydromap"
)

// Cfg holds the command tree and the default-parameter registry.
type Cfg struct {
	*viper.Viper

	Root                                            *cobra.Command
	versionCmd                                      *cobra.Command
	ingestTerrainCmd, ingestForcingsCmd             *cobra.Command
	buildUHCmd, simulateCmd                         *cobra.Command
}

// Version is the hydromap version number.
const Version = "0.1.0"

// options are the tunable model parameters with their defaults. A run
// configuration file may override any of them; everything not present
// in the file keeps the default registered here.
var options = []struct {
	name       string
	usage      string
	defaultVal interface{}
}{
	{"SOIL_THICKNESS", "total soil column depth [m]", 2.0},
	{"SOIL_D1", "upper soil layer thickness [m]", 0.2},
	{"SOIL_D2", "lower soil layer thickness [m]", 1.8},
	{"WT_INIT", "spin-up water table depth [m]", 0.3},
	{"WIND_HEIGHT", "wind speed measurement height [m]", 10.0},
	{"AS", "Ångström coefficient a_s", 0.25},
	{"BS", "Ångström coefficient b_s", 0.5},
	{"STREAM_DEPTH", "streambed depth below the surface [m]", 1.0},
	{"STREAM_WIDTH", "stream channel width [m]", 5.0},
	{"ROUTE_CHANNEL_K", "channel linear-reservoir constant [1/h]", 0.1},
	{"CANOPY_ZR", "above-canopy reference height [m]", 20.0},
	{"UNDERSTORY", "understory present (0/1)", 1},
	{"UNDERSTORY_LAI", "understory leaf area index", 1.0},
	{"UNDERSTORY_ALBEDO", "understory shortwave reflectance", 0.18},
	{"UNDERSTORY_Z0", "understory roughness length [m]", 0.04},
	{"UNDERSTORY_D", "understory displacement height [m]", 0.2},
	{"UNDERSTORY_RS_MIN", "understory minimum stomatal resistance [s/cm]", 1.2},
	{"UNDERSTORY_RS_MAX", "understory maximum resistance [s/cm]", 50.0},
	{"UNDERSTORY_RGL", "understory PAR level where rs doubles [W/m2]", 30.0},
	{"ALBEDO_SOIL", "ground/soil shortwave reflectance", 0.10},
	{"VELOCITY_AVG", "basin-average overland flow velocity [m/h]", 1000.0},
	{"VELOCITY_MAX", "maximum overland flow velocity [m/h]", 4000.0},
	{"VELOCITY_MIN", "minimum overland flow velocity [m/h]", 100.0},
	{"UH_B", "slope exponent of the slope-area term", 0.5},
	{"UH_C", "area exponent of the slope-area term", 0.25},
	{"UH_BETA", "reservoir share of the cell residence time", 0.5},
}

// InitializeConfig builds the command tree.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}
	for _, o := range options {
		cfg.SetDefault(o.name, o.defaultVal)
	}

	cfg.Root = &cobra.Command{
		Use:   "hydromap",
		Short: "A spatially distributed hydrological model.",
		Long: `hydromap simulates the terrestrial water cycle over a rectangular grid
of land cells: coupled two-layer canopy evapotranspiration, snowpack
energy balance, unsaturated and saturated soil water movement, and
streamflow routing through grid Unit Hydrographs and a channel network.

Each subcommand takes the path of one configuration file (plain text,
'key,value' per line, '#' comments) as its sole argument.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hydromap v%s\n", Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.ingestTerrainCmd = &cobra.Command{
		Use:   "ingest-terrain configfile",
		Short: "Assemble the terrain rasters into one artifact",
		Long: `ingest-terrain reads the static terrain rasters (DEM, flow direction,
flow accumulation, stream mask, outlet mask, vegetation class, canopy
fraction and soil class; ESRI ASCII form) and writes the consolidated
terrain NetCDF artifact used by build-uh and simulate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return IngestTerrain(cfg, args[0])
		},
		DisableAutoGenTag: true,
	}

	cfg.ingestForcingsCmd = &cobra.Command{
		Use:   "ingest-forcings configfile",
		Short: "Assemble gridded weather frames into a forcing stack",
		Long: `ingest-forcings reads per-step gridded weather frames (ESRI ASCII
form) for one variable and writes the NetCDF forcing stack consumed by
simulate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return IngestForcings(cfg, args[0])
		},
		DisableAutoGenTag: true,
	}

	cfg.buildUHCmd = &cobra.Command{
		Use:   "build-uh configfile",
		Short: "Construct the grid Unit Hydrographs",
		Long: `build-uh derives the overland flow velocity field from the terrain
and constructs the per-outlet Unit Hydrograph tensors, caching them in
a NetCDF artifact fingerprinted by the governing parameters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := BuildUH(cfg, args[0], false)
			return err
		},
		DisableAutoGenTag: true,
	}

	cfg.simulateCmd = &cobra.Command{
		Use:   "simulate configfile",
		Short: "Run the hydrological simulation",
		Long: `simulate advances the model over the configured time window, writing
one raster stack per enabled output variable and one text file per
outlet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Simulate(cfg, args[0])
		},
		DisableAutoGenTag: true,
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.ingestTerrainCmd,
		cfg.ingestForcingsCmd, cfg.buildUHCmd, cfg.simulateCmd)
	return cfg
}

// floatOpt returns a float parameter: the configuration file value
// when present, the registered default otherwise.
func (cfg *Cfg) floatOpt(c *hydromap.Config, key string) float64 {
	return c.FloatDefault(key, cfg.GetFloat64(key))
}

// intOpt returns an integer parameter with registry fallback.
func (cfg *Cfg) intOpt(c *hydromap.Config, key string) int {
	return c.IntDefault(key, cfg.GetInt(key))
}

// ExitCode maps an error to the process exit code: configuration (2),
// input (3), domain (4), numeric (5) and output (6) failures; 1
// otherwise, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if me, ok := err.(*hydromap.ModelError); ok {
		return me.Kind.ExitCode()
	}
	return 1
}

// logger is the CLI logger.
var logger = logrus.New()
