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
	"math"
	"time"
)

// Physical constants.
const (
	gravity          = 9.80   // acceleration of gravity [m/s²]
	densityWater     = 1000.  // density of liquid water [kg/m³]
	densityAir       = 1.2922 // air density [kg/m³]
	densityIce       = 917.   // ice density [kg/m³]
	lambdaV          = 2500.  // latent heat of vaporization [kJ/kg]
	lambdaS          = 2838.  // latent heat of sublimation [kJ/kg]
	lambdaF          = 334.   // latent heat of fusion [kJ/kg]
	specificHeatAir  = 1.005  // specific heat of air [kJ/(kg·°C)]
	specificHeatIce  = 2.1    // specific heat of ice [kJ/(kg·°C)]
	specificHeatWater = 4.22  // specific heat of water [kJ/(kg·°C)]
)

// stefanBoltzmannHourly is the Stefan-Boltzmann constant expressed in
// kJ/(m²·K⁴·h): 4.903e-9 MJ/(m²·K⁴·d) × 1000/24.
const stefanBoltzmannHourly = 4.903e-9 * 1000 / 24

// mjDayToKJHour converts a daily radiation total [MJ/m²/d] to an hourly
// flux density [kJ/m²/h].
const mjDayToKJHour = 1000. / 24.

// visFract is the fraction of net shortwave radiation that is
// photosynthetically active (Dickinson 1991).
const visFract = 0.5

// solarGeometry returns the inverse relative sun-earth distance d_r, the
// solar declination δ [rad], and the sunset hour angle ω_s [rad] for a
// date. Where no sunset hour angle exists (polar day or night), ok is
// false.
func solarGeometry(year int, month time.Month, day int, lat float64) (dr, del, ws float64, ok bool) {
	j := float64(dayOfYear(year, month, day))
	dr = 1 + 0.033*math.Cos(2*math.Pi/365*j)
	del = 0.408 * math.Sin(2*math.Pi/365*j-1.39)
	x := -math.Tan(lat*math.Pi/180) * math.Tan(del)
	if x < -1 || x > 1 {
		return dr, del, 0, false
	}
	return dr, del, math.Acos(x), true
}

// Extraterrestrial returns the extraterrestrial radiation R_a
// [MJ/m²/d] and the maximum possible sunshine duration N [h] for a date
// and latitude [decimal degrees]. During polar night or day both are
// returned as zero rather than failing.
func Extraterrestrial(year int, month time.Month, day int, lat float64) (ra, n float64) {
	dr, del, ws, ok := solarGeometry(year, month, day, lat)
	if !ok {
		return 0, 0
	}
	latr := lat * math.Pi / 180
	// 37.59 = 24·60/π × Gsc with the solar constant Gsc = 0.082 MJ/m²/min.
	ra = 37.59 * dr * (ws*math.Sin(latr)*math.Sin(del) + math.Cos(latr)*math.Cos(del)*math.Sin(ws))
	n = 24 / math.Pi * ws
	return ra, n
}

// DownwardShortwave returns the sky shortwave radiation received at the
// surface [MJ/m²/d], following the Ångström formulation with
// coefficients as and bs and sunshine duration ssd [h].
func DownwardShortwave(year int, month time.Month, day int, lat, ssd, as, bs float64) float64 {
	ra, n := Extraterrestrial(year, month, day, lat)
	if ra == 0 {
		return 0
	}
	return (as + bs*ssd/n) * ra
}

// DownwardLongwave returns the sky longwave radiation received at the
// surface [MJ/m²/d], using a cloudiness-adjusted sky emissivity. ff is
// the fractional forest cover of the cell.
func DownwardLongwave(year int, month time.Month, day int, lat, temAir, rhu, ssd, ff float64) float64 {
	es := saturatedVaporPressure(temAir)
	ea := rhu * es / 100

	emissivityClr := 0.83 - 0.18*math.Exp(-1.54*ea)
	_, n := Extraterrestrial(year, month, day, lat)
	frac := 0.
	if n > 0 {
		frac = ssd / n
	}
	emissivitySky := (1 - frac) + frac*emissivityClr
	emissivityAt := (1-ff)*emissivitySky + ff

	const sigma = 4.90e-9 // Stefan-Boltzmann constant [MJ/(m²·K⁴·d)]
	return emissivityAt * sigma * math.Pow(temAir+273.15, 4)
}

// NetRadiation is the partition of sky shortwave and longwave radiation
// over the overstory, understory and ground.
type NetRadiation struct {
	Overstory       float64 // net radiation absorbed by the overstory [kJ/m²/h]
	OverstoryShort  float64 // net shortwave absorbed by the overstory [kJ/m²/h]
	Understory      float64 // net radiation absorbed by the understory [kJ/m²/h]
	UnderstoryShort float64 // net shortwave absorbed by the understory [kJ/m²/h]
	Ground          float64 // net radiation absorbed by the ground [kJ/m²/h]
}

// PartitionRadiation splits sky radiation (rs, lSky, both [kJ/m²/h])
// between the overstory, understory and ground. Surface temperatures
// are taken as the air temperature when cell surface temperatures are
// not tracked. refO, refU and refS are the shortwave reflectances of
// the three surfaces, and ff the canopy fraction.
func PartitionRadiation(rs, lSky, ff, refO, refU, refS,
	temO, temU, temS, laiO, laiU float64, understory bool) NetRadiation {

	lo := stefanBoltzmannHourly * math.Pow(temO+273.15, 4)
	lu := stefanBoltzmannHourly * math.Pow(temU+273.15, 4)
	ls := stefanBoltzmannHourly * math.Pow(temS+273.15, 4)

	var out NetRadiation
	out.OverstoryShort = ff * (1 - refO) * rs
	out.Overstory = ff*((1-refO)*rs+lSky-lo) + ff*(1-math.Exp(-laiO))*(lu-lo)

	// The understory receives shortwave attenuated through the canopy
	// where the canopy is present and the full sky flux elsewhere.
	out.UnderstoryShort = rs*math.Exp(-laiO)*(1-refU)*ff + rs*(1-refU)*(1-ff)
	out.Understory = out.UnderstoryShort + ff*(lo-lu) + (1-ff)*(lSky-lu)

	// Ground: what is transmitted through both canopies.
	trans := ff*math.Exp(-laiO) + (1 - ff)
	if understory {
		out.Ground = rs*trans*math.Exp(-laiU)*(1-refS) + lu - ls
	} else {
		out.Ground = rs*trans*(1-refS) + ff*lo + (1-ff)*lSky - ls
	}
	return out
}

// SnowSurfaceShortwave returns the shortwave flux reaching a ground
// snowpack under a partial canopy: the open fraction passes the sky
// flux, the covered fraction is attenuated by canopy absorption and
// extinction.
func SnowSurfaceShortwave(rs, canopyAlbedo, lai, ff float64) float64 {
	return rs*(1-canopyAlbedo)*math.Exp(-lai)*ff + rs*(1-ff)
}

// saturatedVaporPressure returns the saturation water-vapor pressure
// [kPa] over liquid water at temperature t [°C].
func saturatedVaporPressure(t float64) float64 {
	return 0.6108 * math.Exp(17.277*t/(t+273.3))
}

// saturatedVaporPressureIce returns the saturation vapor pressure [kPa]
// over an ice surface at temperature t [°C].
func saturatedVaporPressureIce(t float64) float64 {
	return 0.6108 * math.Exp(21.870*t/(t+265.5))
}
