package live

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// SolarPosition returns the apparent solar altitude (above the horizon,
// refraction corrected) and azimuth (clockwise from north) in degrees.
func SolarPosition(lat, lon float64, t time.Time) (altitude, azimuth float64) {
	pos := suncalc.GetPosition(t.UTC(), lat, lon)
	elevation := deg(pos.Altitude)
	// suncalc measures azimuth from south towards west
	return elevation + refraction(elevation), mod(deg(pos.Azimuth)+180, 360)
}

// refraction is the NOAA approximation of atmospheric refraction in degrees;
// suncalc reports the geometric altitude only.
func refraction(e float64) float64 {
	var arcsec float64
	switch {
	case e > 85:
		return 0
	case e > 5:
		t := math.Tan(rad(e))
		arcsec = 58.1/t - 0.07/math.Pow(t, 3) + 0.000086/math.Pow(t, 5)
	case e > -0.575:
		arcsec = 1735 + e*(-518.2+e*(103.4+e*(-12.79+e*0.711)))
	default:
		arcsec = -20.772 / math.Tan(rad(e))
	}
	return arcsec / 3600
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

func mod(a, m float64) float64 {
	r := math.Mod(a, m)
	if r < 0 {
		r += m
	}
	return r
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
