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

// The per-cell physics of one time step: radiation partitioning, snow
// accumulation and melt, two-layer evapotranspiration, and unsaturated
// soil water movement. Cells are independent within the step, so the
// phase may run concurrently over cells; the lateral saturated pass and
// routing stay serialised behind it.

package hydromap

import (
	"runtime"
	"sync"
)

// LoadForcing returns a DomainManipulator that reads the forcing frame
// of the current step into the model.
func LoadForcing() DomainManipulator {
	return func(d *Model) error {
		f, err := d.forcing.Frame(d.Clock, d.Step)
		if err != nil {
			return err
		}
		d.currentFrame = f
		return nil
	}
}

// CellPhysics returns a DomainManipulator that advances the vertical
// physics of every cell over the current step, distributing the cells
// over the available processors.
func CellPhysics() DomainManipulator {
	nprocs := runtime.GOMAXPROCS(0)
	return func(d *Model) error {
		var wg sync.WaitGroup
		errs := make([]error, nprocs)
		wg.Add(nprocs)
		for p := 0; p < nprocs; p++ {
			go func(p int) {
				defer wg.Done()
				for i := p; i < len(d.land); i += nprocs {
					if err := d.stepCell(d.land[i]); err != nil {
						errs[p] = err
						return
					}
				}
			}(p)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// stepCell advances one cell through radiation, snow, ET and the
// unsaturated zone.
func (d *Model) stepCell(c *Cell) error {
	in, err := d.currentFrame.At(c.Row, c.Col)
	if err != nil {
		return err
	}
	c.Out = StepOutputs{}

	year, month, day := d.Clock.Date(d.Step)
	mon := int(month) - 1
	lat := d.Grid.Lat(c.Row)

	veg := c.veg
	laiO := veg.LAI[mon]
	overstory := veg.Overstory && c.CanopyFrac >= 1e-4
	understory := d.Veg.UnderstoryPresent
	fracCanopy := c.CanopyFrac
	if !overstory {
		fracCanopy = 0
		laiO = 0
	}

	// Radiation: sky fluxes, converted from MJ/m²/d to kJ/m²/h, then
	// partitioned over the stories.
	rs := DownwardShortwave(year, month, day, lat, in.Sunshine,
		d.AngstromA, d.AngstromB) * mjDayToKJHour
	lSky := DownwardLongwave(year, month, day, lat, in.TemAvg, in.Rhu,
		in.Sunshine, 0) * mjDayToKJHour
	c.Out.Rs = rs
	c.Out.Lsky = lSky

	radia := PartitionRadiation(rs, lSky, fracCanopy,
		veg.Albedo[mon], d.Veg.AlbedoU, d.Veg.AlbedoSoil,
		in.TemAvg, in.TemAvg, in.TemAvg, laiO, d.Veg.LAIU, understory)
	c.Out.Rno = radia.Overstory
	c.Out.Rnu = radia.Understory

	// Snow: precipitation phase partition, canopy interception, and
	// the two energy-balance packs. waterToSurface is the liquid water
	// continuing into the interception/soil chain [m].
	rain, snow := PartitionRainSnow(in.Prec, in.TemAvg)
	c.Out.PrecRain = rain
	c.Out.PrecSnow = snow
	waterToSurface := d.stepSnow(c, &in, rain, snow, rs, lSky, fracCanopy, laiO, mon)

	// Resistances and the two-layer evapotranspiration cascade.
	smAvg := c.SMUpper
	var resistCanopyO, resistAeroO float64
	if overstory {
		rpO := visFract * radia.OverstoryShort * 1000 / 3600 // kJ/m²/h -> W/m²
		rsO := StomatalResistance(in.TemAvg, in.TemMin, in.TemMax, in.Rhu,
			rpO, veg.RGL, veg.Rmin, veg.Rmax,
			smAvg, c.topsoil.WiltingPoint, c.topsoil.FieldCapacity)
		resistCanopyO = CanopyResistance(rsO, laiO)
		resistAeroO = AeroResistanceOverstory(in.Wind, d.WindHeight,
			d.Veg.ReferenceHeight, veg.CanTop,
			veg.Displacement[mon], veg.Roughness[mon],
			d.Veg.DisplacementU, d.Veg.RoughnessU)
	} else {
		resistCanopyO, resistAeroO = 1, 1
	}
	var resistCanopyU, resistAeroU float64
	if understory {
		rpU := visFract * radia.UnderstoryShort * 1000 / 3600
		rsU := StomatalResistance(in.TemAvg, in.TemMin, in.TemMax, in.Rhu,
			rpU, d.Veg.RGLU, d.Veg.RminU, d.Veg.RmaxU,
			smAvg, c.topsoil.WiltingPoint, c.topsoil.FieldCapacity)
		resistCanopyU = CanopyResistance(rsU, d.Veg.LAIU)
		resistAeroU = AeroResistanceUnderstory(in.Wind, d.WindHeight,
			d.Veg.DisplacementU, d.Veg.RoughnessU)
	} else {
		resistCanopyU = 1
		resistAeroU = AeroResistanceUnderstory(in.Wind, d.WindHeight,
			d.Veg.DisplacementU, d.Veg.RoughnessU)
	}

	soilFe := SoilDesorption(c.SMUpper, c.topsoil, d.Dt)
	et := evapotranspire(&in, radia, waterToSurface,
		&c.InterceptionO, &c.InterceptionU,
		resistCanopyO, resistCanopyU, resistAeroO, resistAeroU,
		laiO, d.Veg.LAIU, fracCanopy, soilFe, understory, d.Dt)
	c.Out.Ep = et.Ep
	c.Out.EIo, c.Out.ETo = et.EIo, et.ETo
	c.Out.EIu, c.Out.ETu = et.EIu, et.ETu
	c.Out.ETs = et.ETs

	// Unsaturated zone. The water-table rise and return flow computed
	// by the previous step's lateral pass enter the layer balances
	// here.
	unsat := unsaturatedMove(et.PrecNet/d.Dt,
		c.Out.ETo, c.Out.ETu, c.Out.ETs,
		&c.SMUpper, &c.SMLower,
		c.SWRiseUpper, c.SWRiseLower, c.SWReturnFlow,
		d.Soil.ThicknessUpper, d.Soil.ThicknessLower,
		c.topsoil, c.subsoil, d.Dt)
	c.Out.SWInfiltration = unsat.Infiltration
	c.Out.SWPercolationUpper = unsat.PercolationUpper
	c.Out.SWPercolationLower = unsat.PercolationLower
	c.Out.SWRunInfil = unsat.RunoffInfil
	c.Out.SWRunSatur = unsat.RunoffSatur
	return nil
}

// stepSnow advances the canopy and ground snowpacks of one cell and
// returns the liquid water delivered to the surface water balance [m].
// With no snow anywhere, the rainfall passes through unchanged.
func (d *Model) stepSnow(c *Cell, in *forcingCell, rain, snow, rs, lSky,
	fracCanopy, laiO float64, mon int) float64 {

	if snow <= 0 && c.SnowGround.W <= 0 && c.SnowCanopy.W <= 0 {
		return rain
	}
	veg := c.veg

	// Canopy pack: intercepts part of the snowfall up to the
	// temperature-dependent capacity; overflow and released mass feed
	// the ground pack.
	canopyRain := rain * fracCanopy
	canopySnowIn := 0.
	groundSnowIn := snow
	if fracCanopy > 0 {
		capacity := CanopySnowCapacity(in.TemAvg, laiO)
		canopySnowIn = canopySnowFallFraction * fracCanopy * snow
		if room := capacity - c.SnowCanopy.W; canopySnowIn > room {
			if room < 0 {
				room = 0
			}
			canopySnowIn = room
		}
		groundSnowIn = snow - canopySnowIn
	}

	canopyDrip := 0.  // liquid leaving the canopy pack [m]
	canopyMelt := 0.  // released solid mass joining the ground pack [m]
	if fracCanopy > 0 && (c.SnowCanopy.W > 0 || canopySnowIn > 0) {
		if c.SnowCanopy.W == 0 {
			canopyDrip = c.SnowCanopy.seed(canopyRain, canopySnowIn, in.TemAvg)
		} else {
			var flux snowFluxes
			c.SnowCanopy.Ras = CanopySnowAeroResistance(in.Wind, d.WindHeight,
				veg.Displacement[mon], veg.Roughness[mon])
			if in.TemAvg > 0 {
				c.SnowCanopy.Ras = StabilityCorrectedResistance(c.SnowCanopy.Ras,
					RichardsonNumber(in.TemAvg, c.SnowCanopy.Tem, in.Wind, d.WindHeight))
			}
			flux.NetRadiation = snowNetRadiation(lSky, rs,
				c.SnowCanopy.Tem, c.SnowCanopy.Albedo)
			flux.Sensible = snowSensibleFlux(in.TemAvg, c.SnowCanopy.Tem, c.SnowCanopy.Ras)
			flux.Latent = snowLatentFlux(in.TemAvg, c.SnowCanopy.Tem, in.AirPres,
				in.Rhu, c.SnowCanopy.Ras, c.SnowCanopy.Wliq > 0)
			flux.Advected = snowAdvectedFlux(in.TemAvg, canopyRain, canopySnowIn, d.Dt)
			canopyDrip = c.SnowCanopy.massBalance(flux, canopyRain, canopySnowIn, d.Dt)
			c.SnowCanopy.compact(canopySnowIn, d.Dt)
			c.SnowCanopy.age(canopySnowIn, d.Dt)
		}
		// Mass release: snow held beyond the (possibly shrunken)
		// capacity collapses onto the ground pack.
		capacity := CanopySnowCapacity(in.TemAvg, laiO)
		if c.SnowCanopy.W > capacity {
			canopyMelt = c.SnowCanopy.W - capacity
			frac := capacity / c.SnowCanopy.W
			c.SnowCanopy.Wice *= frac
			c.SnowCanopy.Wliq *= frac
			c.SnowCanopy.W = c.SnowCanopy.Wice + c.SnowCanopy.Wliq
		}
	} else {
		canopyDrip = canopyRain
	}

	// Ground pack.
	groundRain := rain*(1-fracCanopy) + canopyDrip
	groundSnowIn += canopyMelt
	if c.SnowGround.W <= 0 && groundSnowIn <= 0 {
		// No pack forms: the liquid continues into the surface
		// balance.
		c.SnowGround.reset()
		return groundRain
	}
	var runoff float64
	if c.SnowGround.W == 0 {
		runoff = c.SnowGround.seed(groundRain, groundSnowIn, in.TemAvg)
	} else {
		var flux snowFluxes
		c.SnowGround.Ras = SnowAeroResistance(in.Wind, d.WindHeight,
			c.SnowGround.Depth())
		if in.TemAvg > 0 {
			c.SnowGround.Ras = StabilityCorrectedResistance(c.SnowGround.Ras,
				RichardsonNumber(in.TemAvg, c.SnowGround.Tem, in.Wind, d.WindHeight))
		}
		flux.NetRadiation = snowNetRadiation(lSky,
			SnowSurfaceShortwave(rs, veg.Albedo[mon], laiO, fracCanopy),
			c.SnowGround.Tem, c.SnowGround.Albedo)
		flux.Sensible = snowSensibleFlux(in.TemAvg, c.SnowGround.Tem, c.SnowGround.Ras)
		flux.Latent = snowLatentFlux(in.TemAvg, c.SnowGround.Tem, in.AirPres,
			in.Rhu, c.SnowGround.Ras, c.SnowGround.Wliq > 0)
		flux.Advected = snowAdvectedFlux(in.TemAvg, groundRain, groundSnowIn, d.Dt)
		runoff = c.SnowGround.massBalance(flux, groundRain, groundSnowIn, d.Dt)
		c.SnowGround.compact(groundSnowIn, d.Dt)
		c.SnowGround.age(groundSnowIn, d.Dt)
	}
	return runoff
}
