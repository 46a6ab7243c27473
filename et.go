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

// Two-layer evapotranspiration after Wigmosta et al. (1994), with the
// wet-fraction partition of Dickinson et al. (1993).

package hydromap

import "math"

// interceptionCapacityFactor converts LAI × canopy fraction into the
// maximum interception storage [m] (Dickinson et al. 1991).
const interceptionCapacityFactor = 0.0001

// VaporPressureSlope returns the slope of the saturation vapor pressure
// curve [kPa/°C] at the given air temperatures [°C].
func VaporPressureSlope(temAvg, temMin, temMax float64) float64 {
	return 4098 * saturatedVaporPressure(temAvg) /
		math.Pow(0.5*(temMin+temMax)+237.3, 2)
}

// PsychrometricConstant returns the psychrometric constant [kPa/°C] at
// air pressure airPres [kPa].
func PsychrometricConstant(airPres float64) float64 {
	return 0.665e-3 * airPres
}

// PotentialEvaporation returns the potential evaporation rate [m/h]
// from a wet surface at the aerodynamic level described by resistAero
// [h/m], following the Penman form of Wigmosta et al. (1994). radiaNet
// is the net radiation flux density [kJ/m²/h].
func PotentialEvaporation(temAvg, temMin, temMax, airPres, rhu,
	radiaNet, resistAero float64) float64 {
	es := 0.5 * (saturatedVaporPressure(temMax) + saturatedVaporPressure(temMin))
	ea := rhu * es / 100
	delta := VaporPressureSlope(temAvg, temMin, temMax)
	gamma := PsychrometricConstant(airPres)

	ep := (delta*radiaNet + densityAir*specificHeatAir*(es-ea)/resistAero) /
		(lambdaV * (delta + gamma)) // kg/m²/h
	return ep / densityWater // m/h
}

// Transpiration returns the transpiration rate [m/h] from dry
// vegetative surfaces, scaling the potential evaporation by a
// Penman-Monteith canopy term.
func Transpiration(ep, temAvg, temMin, temMax, airPres,
	resistCanopy, resistAero float64) float64 {
	delta := VaporPressureSlope(temAvg, temMin, temMax)
	gamma := PsychrometricConstant(airPres)
	return ep * (delta + gamma) / (delta + gamma*(1+resistCanopy/resistAero))
}

// WetFraction returns the fraction of a story's surface acting as free
// water (Dickinson et al. 1993), given the intercepted water at the
// start of the step, the precipitation input [m], the story LAI and
// canopy fraction.
func WetFraction(prec, interception, lai, fracCanopy float64) float64 {
	ic := interceptionCapacityFactor * lai * fracCanopy
	if ic <= 0 {
		return 0
	}
	aw := math.Pow((interception+prec)/ic, 2./3.)
	if aw > 1 {
		return 1
	}
	if aw < 0 {
		return 0
	}
	return aw
}

// SoilEvaporation returns the actual soil evaporation rate [m/h],
// limited by either the atmospheric demand or the rate at which the
// soil can deliver water to the surface.
func SoilEvaporation(epSoil, desorptionRate float64) float64 {
	return math.Min(epSoil, desorptionRate)
}

// storyBalance advances the water balance of one story (overstory or
// understory) over a step of stepTime hours. It updates the story's
// interception storage and returns the evaporated (ei) and transpired
// (et) depths [m] along with the throughfall leaving the story [m].
func storyBalance(in *forcingCell, precInput, ep float64,
	interception *float64, resistCanopy, resistAero, lai, fracCanopy float64,
	stepTime float64) (ei, et, throughfall float64) {

	ic := interceptionCapacityFactor * lai * fracCanopy
	if ep > 0 {
		etRate := Transpiration(ep, in.TemAvg, in.TemMin, in.TemMax, in.AirPres,
			resistCanopy, resistAero)
		aw := WetFraction(precInput, *interception, lai, fracCanopy)
		water := *interception + precInput
		if water <= 0 || aw <= 0 {
			// Nothing to evaporate: the whole story transpires.
			ei = 0
			et = etRate * stepTime
		} else if tw := water / (ep * aw); tw <= stepTime {
			// The free water dries out after tw hours: the wet part
			// evaporates until then, the dry part transpires all
			// along, and the dried part joins it.
			ei = ep * aw * tw
			et = etRate*(1-aw)*stepTime + etRate*aw*(stepTime-tw)
		} else {
			// Free water lasts the whole step.
			ei = ep * stepTime
			if ei > water {
				ei = water
			}
			et = 0
		}
		if ei < 0 {
			ei = 0
		}
		if et < 0 {
			et = 0
		}
	}

	precExcess := *interception + precInput - ei
	if precExcess <= ic {
		*interception = precExcess
		throughfall = 0
	} else {
		*interception = ic
		throughfall = precExcess - ic
	}
	return ei, et, throughfall
}

// etResult carries the outputs of one evapotranspiration step.
type etResult struct {
	Ep            float64 // potential evaporation rate [m/h]
	EIo, ETo      float64 // overstory evaporation and transpiration [m]
	EIu, ETu      float64 // understory evaporation and transpiration [m]
	ETs           float64 // soil evaporation [m]
	Throughfall   float64 // water leaving the overstory [m]
	PrecNet       float64 // net precipitation into the soil process [m]
}

// evapotranspire runs the two-layer evapotranspiration cascade for one
// cell and step. prec is the liquid water input at the top of the
// profile [m], radiaNet the net radiation of the uppermost active
// story, soilFe the soil desorption over the step [m], and stepTime the
// step length [h]. The interception stores are updated in place.
func evapotranspire(in *forcingCell, radiaNet NetRadiation, prec float64,
	interceptionO, interceptionU *float64,
	resistCanopyO, resistCanopyU, resistAeroO, resistAeroU float64,
	laiO, laiU, fracCanopy, soilFe float64,
	understory bool, stepTime float64) etResult {

	var out etResult

	overstory := fracCanopy >= 1e-4
	if !overstory {
		fracCanopy = 0
	}

	if overstory {
		rnet := radiaNet.Overstory
		out.Ep = PotentialEvaporation(in.TemAvg, in.TemMin, in.TemMax,
			in.AirPres, in.Rhu, rnet, resistAeroO)
		out.EIo, out.ETo, out.Throughfall = storyBalance(in, prec, out.Ep,
			interceptionO, resistCanopyO, resistAeroO, laiO, fracCanopy, stepTime)
	} else {
		var rnet float64
		if understory {
			rnet = radiaNet.Understory
		} else {
			rnet = radiaNet.Ground
		}
		out.ETo, out.EIo = 0, 0
		out.Throughfall = prec
		*interceptionO = 0
		out.Ep = PotentialEvaporation(in.TemAvg, in.TemMin, in.TemMax,
			in.AirPres, in.Rhu, rnet, resistAeroU)
	}

	// Residual demand after the overstory has taken its share.
	epU := out.Ep - (out.ETo+out.EIo)/stepTime

	if understory {
		var tf float64
		out.EIu, out.ETu, tf = storyBalance(in, out.Throughfall, epU,
			interceptionU, resistCanopyU, resistAeroU, laiU, 1.0, stepTime)
		out.PrecNet = tf
		out.ETs = 0
	} else {
		// Bare soil: evaporation is limited by desorption.
		out.ETs = SoilEvaporation(epU, soilFe/stepTime) * stepTime
		if out.ETs < 0 {
			out.ETs = 0
		}
		out.EIu, out.ETu = 0, 0
		*interceptionU = 0
		out.PrecNet = out.Throughfall - out.ETs
		if out.PrecNet < 0 {
			out.PrecNet = 0
		}
	}
	return out
}
