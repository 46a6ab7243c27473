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

// Aerodynamic and canopy resistances for the evapotranspiration
// calculation, following the three-layer wind profile of Storck (2000)
// and the stomatal resistance factors of Dickinson et al. (1991, 1993)
// and Feddes et al. (1978).

package hydromap

import "math"

// vonKarman is Von Kármán's constant.
const vonKarman = 0.4

// canopyExtinction is the dimensionless extinction coefficient of the
// exponential wind profile inside the canopy.
const canopyExtinction = 2.5

// WindSpeedProfile translates a wind speed ws1 [m/s] observed at height
// z1 to height z2 assuming a logarithmic profile over a surface with
// displacement height d and roughness length z0.
func WindSpeedProfile(z1, z2, ws1, d, z0 float64) float64 {
	return ws1 * math.Log((z2-d)/z0) / math.Log((z1-d)/z0)
}

// AeroResistanceOverstory returns the aerodynamic resistance [h/m] to
// vapor transport between the overstory and the above-canopy reference
// height zr, assuming neutral conditions and the three-layer Storck
// (2000) profile. The observed wind speed wsObs [m/s] at height wsObsZ
// is first moved to zr through a logarithmic profile over the ground
// surface (displacement dg, roughness z0g).
func AeroResistanceOverstory(wsObs, wsObsZ, zr, canopyH, d, z0, dg, z0g float64) float64 {
	wsZr := WindSpeedProfile(wsObsZ, zr, wsObs, dg, z0g)
	// zw bounds the roughness sublayer below the upper logarithmic
	// profile.
	zw := 1.5*canopyH - 0.5*d
	ra := math.Log((zr-d)/z0) / (wsZr * vonKarman * vonKarman) *
		(canopyH/(canopyExtinction*(zw-d))*
			(math.Exp(canopyExtinction*(1-(d+z0)/canopyH))-1) +
			(zw-canopyH)/(zw-d) +
			math.Log((zr-d)/(zw-d))) // s/m
	return ra / 3600 // h/m
}

// AeroResistanceUnderstory returns the aerodynamic resistance [h/m] for
// the soil surface, snow, or understory, using a logarithmic profile
// referenced at za = 2 m above the displacement plane.
func AeroResistanceUnderstory(wsObs, wsObsZ, d, z0 float64) float64 {
	za := 2 + d + z0
	wsZa := WindSpeedProfile(wsObsZ, za, wsObs, d, z0)
	ra := math.Pow(math.Log((za-d)/z0), 2) / (wsZa * vonKarman * vonKarman) // s/m
	return ra / 3600                                                       // h/m
}

// StomatalResistance returns the stomatal resistance of individual
// leaves [h/m] as the product of the minimum resistance [s/cm] and four
// environmental factors.
func StomatalResistance(temAvg, temMin, temMax, rhu,
	rp, rpc, rsMin, rsMax, sm, smWilting, smFree float64) float64 {
	rs := rsMin *
		stomatalTemperatureFactor(temAvg) *
		stomatalVaporFactor(temMin, temMax, rhu) *
		stomatalRadiationFactor(rp, rpc, rsMin, rsMax) *
		stomatalMoistureFactor(sm, smWilting, smFree)
	return rs / 36 // s/cm -> h/m
}

// CanopyResistance aggregates the leaf stomatal resistance [h/m] over
// the canopy leaf area (Wigmosta et al. 1994).
func CanopyResistance(rs, lai float64) float64 { return rs / lai }

// stomatalFactorLimit caps the unbounded temperature and vapor factors.
const stomatalFactorLimit = 1e3

// stomatalTemperatureFactor is the air-temperature influence on
// stomatal resistance (Dickinson et al. 1993); the parabola is
// undefined at and below 0 °C, so the factor saturates near freezing.
func stomatalTemperatureFactor(t float64) float64 {
	if t <= 2 {
		return stomatalFactorLimit
	}
	f := 1 / (0.08*t - 0.0016*t*t)
	if f < 0 || f > stomatalFactorLimit {
		return stomatalFactorLimit
	}
	return f
}

// stomatalVaporFactor is the vapor-pressure-deficit influence on
// stomatal resistance (Dickinson et al. 1993).
func stomatalVaporFactor(temMin, temMax, rhu float64) float64 {
	// ec is the vapor pressure deficit causing stomatal closure [kPa].
	const ec = 4.0
	es := 0.5 * (saturatedVaporPressure(temMax) + saturatedVaporPressure(temMin))
	ea := rhu * es / 100
	den := 1 - (es-ea)/ec
	if den <= 0 {
		return stomatalFactorLimit
	}
	f := 1 / den
	if f > stomatalFactorLimit {
		return stomatalFactorLimit
	}
	return f
}

// stomatalRadiationFactor is the photosynthetically-active-radiation
// influence on stomatal resistance (Dickinson et al. 1993). rp is the
// PAR flux on the leaf surface and rpc the light level at which the
// resistance is twice its minimum.
func stomatalRadiationFactor(rp, rpc, rsMin, rsMax float64) float64 {
	return (1 + rp/rpc) / (rsMin/rsMax + rp/rpc)
}

// stomatalMoistureFactor is the soil-moisture influence on stomatal
// resistance (Feddes et al. 1978). The factor is 1 above smFree and
// grows without bound as the moisture falls toward the wilting point;
// at or below the wilting point it is 0, which makes the stomatal
// resistance zero.
func stomatalMoistureFactor(sm, smWilting, smFree float64) float64 {
	switch {
	case sm <= smWilting:
		return 0
	case sm <= smFree:
		return (smFree - smWilting) / (sm - smWilting)
	default:
		return 1
	}
}
