package service

import (
	"math"
	"sort"

	"github.com/hopon/hopon-api/internal/model"
)

// earthRadiusKM is the mean Earth radius used by HaversineKM.
const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points given in
// decimal degrees.
func HaversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// SortByDistance annotates events with their distance from (lat, lng) and
// orders them nearest first. Events without a distance keep their relative
// order at the end. A nil lat or lng leaves every distance nil.
func SortByDistance(events []model.Event, lat, lng *float64) []model.NearbyEvent {
	nearby := make([]model.NearbyEvent, len(events))
	for i, e := range events {
		nearby[i] = model.NearbyEvent{Event: e}
		if lat != nil && lng != nil && e.HasCoordinates() {
			d := HaversineKM(*lat, *lng, *e.Latitude, *e.Longitude)
			nearby[i].DistanceKM = &d
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		di, dj := nearby[i].DistanceKM, nearby[j].DistanceKM
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return nearby
}
