package globeengine

import (
	"math"
	"time"
)

// SubsolarPoint returns the geographic point where the sun is at zenith at
// time t, using the NOAA low-accuracy solar position approximation: Julian
// century fraction since J2000.0, equation of time and solar declination.
// Good to a fraction of a degree, which is far below one screen pixel here.
func SubsolarPoint(t time.Time) (lat, lon float64) {
	t = t.UTC()

	// Julian day from Unix time, then centuries since J2000.0.
	jd := float64(t.Unix())/86400.0 + 2440587.5
	jc := (jd - 2451545.0) / 36525.0

	meanLon := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360)
	meanAnom := 357.52911 + jc*(35999.05029-0.0001537*jc)
	eccent := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	sinM := math.Sin(meanAnom * degToRad)
	sin2M := math.Sin(2 * meanAnom * degToRad)
	sin3M := math.Sin(3 * meanAnom * degToRad)
	eqCenter := sinM*(1.914602-jc*(0.004817+0.000014*jc)) + sin2M*(0.019993-0.000101*jc) + sin3M*0.000289

	trueLon := meanLon + eqCenter
	appLon := trueLon - 0.00569 - 0.00478*math.Sin((125.04-1934.136*jc)*degToRad)

	obliq := 23 + (26+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60)/60
	obliqCorr := obliq + 0.00256*math.Cos((125.04-1934.136*jc)*degToRad)

	decl := math.Asin(math.Sin(obliqCorr*degToRad)*math.Sin(appLon*degToRad)) * radToDeg

	// Equation of time in minutes.
	y := math.Tan(obliqCorr * degToRad / 2)
	y *= y
	eqTime := 4 * radToDeg * (y*math.Sin(2*meanLon*degToRad) -
		2*eccent*sinM +
		4*eccent*y*sinM*math.Cos(2*meanLon*degToRad) -
		0.5*y*y*math.Sin(4*meanLon*degToRad) -
		1.25*eccent*eccent*sin2M)

	minutes := float64(t.Hour())*60 + float64(t.Minute()) + float64(t.Second())/60
	trueSolarMin := minutes + eqTime // true solar time at Greenwich
	hourAngle := trueSolarMin/4 - 180

	return decl, wrapDegrees(-hourAngle)
}

// Antipode returns the point diametrically opposite (lat, lon).
func Antipode(lat, lon float64) (float64, float64) {
	return -lat, wrapDegrees(lon + 180)
}

// NightCircle returns the night hemisphere at time t as a circular polygon:
// steps points at an angular distance of 90 degrees from the sub-solar
// antipode, ordered by bearing, as [lon, lat] pairs. It is cheap enough to
// recompute every frame.
func NightCircle(t time.Time, steps int) [][]float64 {
	sunLat, sunLon := SubsolarPoint(t)
	cLat, cLon := Antipode(sunLat, sunLon)
	return geoCircle(cLat, cLon, 90, steps)
}

// geoCircle samples the circle of the given angular radius (degrees) around a
// center point, walking the bearing from 0 to 360.
func geoCircle(cLat, cLon, radius float64, steps int) [][]float64 {
	lat0 := cLat * degToRad
	lon0 := cLon * degToRad
	d := radius * degToRad

	pts := make([][]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		brg := float64(i) / float64(steps) * 2 * math.Pi
		lat := math.Asin(math.Sin(lat0)*math.Cos(d) + math.Cos(lat0)*math.Sin(d)*math.Cos(brg))
		lon := lon0 + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat0), math.Cos(d)-math.Sin(lat0)*math.Sin(lat))
		pts = append(pts, []float64{wrapDegrees(lon * radToDeg), lat * radToDeg})
	}
	return pts
}

// NightOutlineFlat returns the night region for the flat projection families:
// the terminator latitude swept across every longitude, closed over the pole
// that is in darkness. Derived from the same sub-solar point as NightCircle.
func NightOutlineFlat(t time.Time) [][]float64 {
	sunLat, sunLon := SubsolarPoint(t)
	// At the equinoxes the terminator degenerates to a meridian pair; nudge
	// the declination so the tangent below stays finite.
	if math.Abs(sunLat) < 0.01 {
		sunLat = math.Copysign(0.01, sunLat+1e-12)
	}
	tanDecl := math.Tan(sunLat * degToRad)

	pts := make([][]float64, 0, 184)
	for lon := -180.0; lon <= 180.0; lon += 2 {
		lat := math.Atan(-math.Cos((lon-sunLon)*degToRad)/tanDecl) * radToDeg
		pts = append(pts, []float64{lon, lat})
	}
	darkPole := -90.0
	if sunLat < 0 {
		darkPole = 90.0
	}
	pts = append(pts, []float64{180, darkPole}, []float64{-180, darkPole})
	return pts
}

// AngularDistance returns the great-circle distance between two points in
// degrees.
func AngularDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1, p2 := lat1*degToRad, lat2*degToRad
	dl := (lon2 - lon1) * degToRad
	c := math.Sin(p1)*math.Sin(p2) + math.Cos(p1)*math.Cos(p2)*math.Cos(dl)
	if c > 1 {
		c = 1
	}
	if c < -1 {
		c = -1
	}
	return math.Acos(c) * radToDeg
}
