package mockapi

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle
// distance.
const earthRadiusMeters = 6371000

// haversineMeters returns the great-circle distance between two
// coordinates.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// authorize evaluates the link policy against the presented
// credentials. It returns whether each required factor passed; the
// handler decides how much of that to reveal, since the real server
// does not disambiguate when both factors are required.
func (l *Link) authorize(passcode string, lat, lon *float64) (passOK, locOK bool) {
	passOK = !l.PasswordRequired() || passcode == l.Passcode
	if !l.LocationRequired() {
		return passOK, true
	}
	if lat == nil || lon == nil {
		return passOK, false
	}
	distance := haversineMeters(l.Geofence.Lat, l.Geofence.Lon, *lat, *lon)
	return passOK, distance <= l.Geofence.RadiusMeters
}
