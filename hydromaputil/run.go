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

package hydromaputil

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spatialmodel/hydromap"
)

// IngestTerrain assembles the eight terrain ASCII rasters named by the
// configuration file into the terrain NetCDF artifact.
func IngestTerrain(cfg *Cfg, configPath string) error {
	c, err := hydromap.ReadConfig(configPath)
	if err != nil {
		return err
	}
	paths := map[string]string{
		"DEM":      c.Str("FP_DEM"),
		"FDR":      c.Str("FP_FDR"),
		"FAC":      c.Str("FP_FAC"),
		"STR":      c.Str("FP_STR"),
		"OUTLET":   c.Str("FP_OUTLET"),
		"VEGTYPE":  c.Str("FP_VEGTYPE"),
		"VEGFRAC":  c.Str("FP_VEGFRAC"),
		"SOILTYPE": c.Str("FP_SOILTYPE"),
	}
	cellsizeM := c.Float("CELLSIZE_M")
	outPath := c.Str("FP_GEO")
	if err := c.Err(); err != nil {
		return err
	}

	read := func(name string) (*hydromap.IntRaster, error) {
		r, err := hydromap.ReadASCIIGrid(paths[name])
		if err != nil {
			return nil, err
		}
		r.Cellsize = cellsizeM
		return r, nil
	}
	t := &hydromap.Terrain{}
	if t.DEM, err = read("DEM"); err != nil {
		return err
	}
	if t.FDR, err = read("FDR"); err != nil {
		return err
	}
	if t.FAC, err = read("FAC"); err != nil {
		return err
	}
	if t.STR, err = read("STR"); err != nil {
		return err
	}
	if t.Outlet, err = read("OUTLET"); err != nil {
		return err
	}
	if t.VegType, err = read("VEGTYPE"); err != nil {
		return err
	}
	if t.VegFrac, err = read("VEGFRAC"); err != nil {
		return err
	}
	if t.SoilType, err = read("SOILTYPE"); err != nil {
		return err
	}
	logger.WithField("out", outPath).Info("writing terrain artifact")
	return hydromap.WriteTerrain(outPath, t)
}

// IngestForcings assembles per-step ASCII weather frames into one
// NetCDF forcing stack.
func IngestForcings(cfg *Cfg, configPath string) error {
	c, err := hydromap.ReadConfig(configPath)
	if err != nil {
		return err
	}
	terrain, err := hydromap.ReadTerrain(c.Str("FP_GEO"))
	if err != nil {
		return err
	}
	clock := readClock(c)
	ing := &hydromap.ForcingIngest{
		VarName:       c.Str("VAR_NAME"),
		FrameTemplate: c.Str("FP_FRAMES"),
		Steps:         c.Int("N_STEPS"),
		Scale:         c.Float("SCALE_FACTOR"),
		Clock:         clock,
		Grid:          terrain.Grid(),
	}
	outPath := c.Str("FP_OUT")
	if err := c.Err(); err != nil {
		return err
	}
	logger.WithField("var", ing.VarName).WithField("out", outPath).
		Info("writing forcing stack")
	return hydromap.IngestForcing(ing, outPath)
}

// BuildUH loads the cached Unit Hydrograph artifact, or constructs and
// caches it when absent or built with different parameters. With force
// set, a fresh build always runs.
func BuildUH(cfg *Cfg, configPath string, force bool) (*hydromap.UHSet, error) {
	c, err := hydromap.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	terrain, err := hydromap.ReadTerrain(c.Str("FP_GEO"))
	if err != nil {
		return nil, err
	}
	uhPath := c.Str("FP_UH")
	params := hydromap.UHParams{
		VelocityAvg: cfg.floatOpt(c, "VELOCITY_AVG"),
		VelocityMax: cfg.floatOpt(c, "VELOCITY_MAX"),
		VelocityMin: cfg.floatOpt(c, "VELOCITY_MIN"),
		B:           cfg.floatOpt(c, "UH_B"),
		C:           cfg.floatOpt(c, "UH_C"),
		Beta:        cfg.floatOpt(c, "UH_BETA"),
		StepHours:   c.Int("STEP_TIME"),
	}
	c.RangeCheck("UH_BETA", params.Beta, 0, 1)
	c.RangeCheck("STEP_TIME", float64(params.StepHours), 1, 24)
	c.RangeCheck("VELOCITY_MIN", params.VelocityMin, 0, params.VelocityMax)
	if err := c.Err(); err != nil {
		return nil, err
	}

	if !force {
		if set, ok, err := hydromap.ReadUH(uhPath, terrain.Grid(), params); err != nil {
			return nil, err
		} else if ok {
			logger.WithField("path", uhPath).Info("reusing cached Unit Hydrographs")
			return set, nil
		}
	}
	logger.Info("building Unit Hydrographs")
	set, err := hydromap.BuildUH(terrain, params)
	if err != nil {
		return nil, err
	}
	if err := hydromap.WriteUH(uhPath, set); err != nil {
		return nil, err
	}
	logger.WithField("path", uhPath).WithField("outlets", len(set.Outlets)).
		Info("cached Unit Hydrographs")
	return set, nil
}

// Simulate runs the model over the configured window.
func Simulate(cfg *Cfg, configPath string) error {
	c, err := hydromap.ReadConfig(configPath)
	if err != nil {
		return err
	}
	terrain, err := hydromap.ReadTerrain(c.Str("FP_GEO"))
	if err != nil {
		return err
	}
	soilLib, err := hydromap.ReadSoilLib(c.Str("FP_SOILLIB"))
	if err != nil {
		return err
	}
	vegLib, err := hydromap.ReadVegLib(c.Str("FP_VEGLIB"))
	if err != nil {
		return err
	}
	clock := readClock(c)
	nSteps := c.Int("N_STEPS")
	c.RangeCheck("N_STEPS", float64(nSteps), 1, 1e9)

	forcingPaths := map[string]string{}
	for _, name := range hydromap.ForcingVars {
		forcingPaths[name] = c.Str("FP_" + name)
	}
	if err := c.Err(); err != nil {
		return err
	}
	forcing, err := hydromap.OpenForcings(forcingPaths, terrain.Grid(), clock, nSteps)
	if err != nil {
		return err
	}
	defer forcing.Close()

	uh, err := BuildUH(cfg, configPath, false)
	if err != nil {
		return err
	}

	outDir := c.Str("PATH_OUT")
	enabled := map[string]bool{}
	for _, name := range hydromap.OutputNames() {
		if c.Flag("OUT_"+name, false) {
			enabled[name] = true
		}
	}
	qEnabled := map[string]bool{
		"Qout_SF":      c.Flag("OUT_Qout_SF", false),
		"Qout_Sub":     c.Flag("OUT_Qout_Sub", false),
		"Qout_Channel": c.Flag("OUT_Qout_Channel", false),
		"Qout_outlet":  c.Flag("OUT_Qout_outlet", true),
	}
	if err := c.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o777); err != nil {
		return err
	}
	outputs, err := hydromap.NewOutputRecorder(outDir, enabled, terrain.Grid(), clock)
	if err != nil {
		return err
	}

	soilThickness := cfg.floatOpt(c, "SOIL_THICKNESS")
	sim := hydromap.SimulationConfig{
		Terrain: terrain,
		SoilLib: soilLib,
		VegLib:  vegLib,
		Forcing: forcing,
		UH:      uh,
		Outputs: outputs,
		Clock:   clock,
		NSteps:  nSteps,
		Soil: hydromap.SoilParams{
			Thickness:      soilThickness,
			ThicknessUpper: cfg.floatOpt(c, "SOIL_D1"),
			ThicknessLower: cfg.floatOpt(c, "SOIL_D2"),
			WaterTableInit: cfg.floatOpt(c, "WT_INIT"),
		},
		Veg: hydromap.VegParams{
			ReferenceHeight:   cfg.floatOpt(c, "CANOPY_ZR"),
			UnderstoryPresent: cfg.intOpt(c, "UNDERSTORY") == 1,
			LAIU:              cfg.floatOpt(c, "UNDERSTORY_LAI"),
			AlbedoU:           cfg.floatOpt(c, "UNDERSTORY_ALBEDO"),
			RoughnessU:        cfg.floatOpt(c, "UNDERSTORY_Z0"),
			DisplacementU:     cfg.floatOpt(c, "UNDERSTORY_D"),
			RminU:             cfg.floatOpt(c, "UNDERSTORY_RS_MIN"),
			RmaxU:             cfg.floatOpt(c, "UNDERSTORY_RS_MAX"),
			RGLU:              cfg.floatOpt(c, "UNDERSTORY_RGL"),
			AlbedoSoil:        cfg.floatOpt(c, "ALBEDO_SOIL"),
		},
		WindHeight:  cfg.floatOpt(c, "WIND_HEIGHT"),
		AngstromA:   cfg.floatOpt(c, "AS"),
		AngstromB:   cfg.floatOpt(c, "BS"),
		StreamDepth: cfg.floatOpt(c, "STREAM_DEPTH"),
		StreamWidth: cfg.floatOpt(c, "STREAM_WIDTH"),
		ChannelK:    cfg.floatOpt(c, "ROUTE_CHANNEL_K"),
	}
	if err := c.Err(); err != nil {
		return err
	}

	d := hydromap.NewSimulation(sim, logger.Writer())
	if err := d.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("steps", nSteps).Info("simulation starting")
	start := time.Now()
	if err := d.Run(ctx); err != nil {
		outputs.Close()
		return err
	}
	if err := outputs.Close(); err != nil {
		return err
	}
	if err := hydromap.WriteOutletSeries(outDir, d.Discharge(), qEnabled); err != nil {
		return err
	}
	logger.WithField("walltime", time.Since(start)).Info("simulation completed")
	return nil
}

// readClock reads the start date and step length from a configuration
// file.
func readClock(c *hydromap.Config) hydromap.StepClock {
	return hydromap.NewStepClock(
		c.Int("START_YEAR"),
		time.Month(c.Int("START_MONTH")),
		c.Int("START_DAY"),
		c.IntDefault("START_HOUR", 0),
		c.Int("STEP_TIME"),
	)
}
