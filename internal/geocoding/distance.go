package geocoding

import (
	"fmt"
	"math"
	"sort"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
)

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points,
// rounded to two decimals
func HaversineKm(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	km := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
	return math.Round(km*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RankedEmpresa is a company annotated with its distance to the origin
type RankedEmpresa struct {
	models.Empresa
	Distancia      float64 `json:"distancia"`
	DistanciaTexto string  `json:"distancia_texto"`
}

// Rank filters out companies without coordinates and sorts the rest
// featured-first, then nearest-first. Ties keep input order. Pure.
func Rank(empresas []models.Empresa, origin Coordinate) []RankedEmpresa {
	ranked := make([]RankedEmpresa, 0, len(empresas))
	for _, e := range empresas {
		if !e.HasCoordinates() {
			continue
		}
		km := HaversineKm(origin, Coordinate{Lat: *e.Lat, Lng: *e.Lng})
		ranked = append(ranked, RankedEmpresa{
			Empresa:        e,
			Distancia:      km,
			DistanciaTexto: FormatDistance(km),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Destacada != ranked[j].Destacada {
			return ranked[i].Destacada
		}
		return ranked[i].Distancia < ranked[j].Distancia
	})
	return ranked
}

// FormatDistance renders a distance for display: meters under 1km, one
// decimal under 10km, whole kilometers beyond. A value whose meters
// round up to 1000 crosses into the km form instead of reading "1000 m".
func FormatDistance(km float64) string {
	switch {
	case math.Round(km*1000) < 1000:
		return fmt.Sprintf("%.0f m", math.Round(km*1000))
	case km < 10:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%.0f km", km)
	}
}
