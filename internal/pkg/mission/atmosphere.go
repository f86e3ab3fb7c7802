package mission

import "math"

// International Standard Atmosphere constants.
const (
	SeaLevelTemperature = 288.15   // K
	SeaLevelPressure    = 101325.0 // Pa
	SeaLevelDensity     = 1.225    // kg/m**3
	lapseRate           = 0.0065   // K/m
	tropopause          = 11000.0  // m
	gasConstant         = 287.05287
	gravity             = 9.80665
)

// Temperature returns the ISA static temperature at altitude h in meters.
func Temperature(h float64) float64 {
	if h < tropopause {
		return SeaLevelTemperature - lapseRate*h
	}
	return SeaLevelTemperature - lapseRate*tropopause
}

// Pressure returns the ISA static pressure at altitude h in meters.
func Pressure(h float64) float64 {
	if h < tropopause {
		return SeaLevelPressure * math.Pow(Temperature(h)/SeaLevelTemperature, gravity/(gasConstant*lapseRate))
	}
	p11 := Pressure(tropopause - 1e-9)
	return p11 * math.Exp(-gravity*(h-tropopause)/(gasConstant*Temperature(h)))
}

// Density returns the ISA air density at altitude h in meters.
func Density(h float64) float64 {
	return Pressure(h) / (gasConstant * Temperature(h))
}
