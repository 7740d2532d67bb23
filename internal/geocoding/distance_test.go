package geocoding

import (
	"testing"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
)

func ptr(f float64) *float64 { return &f }

// one degree of latitude is ~111.19 km
func latForKm(km float64) float64 { return km / 111.19 }

func TestRankFeaturedFirstThenClosest(t *testing.T) {
	origin := Coordinate{Lat: 0, Lng: 0}
	empresas := []models.Empresa{
		{ID: 1, Nombre: "A", Destacada: true, Lat: ptr(latForKm(5)), Lng: ptr(0.0)},
		{ID: 2, Nombre: "B", Destacada: false, Lat: ptr(latForKm(1)), Lng: ptr(0.0)},
		{ID: 3, Nombre: "C", Destacada: true, Lat: ptr(latForKm(10)), Lng: ptr(0.0)},
	}

	ranked := Rank(empresas, origin)
	if len(ranked) != 3 {
		t.Fatalf("Expected 3 ranked companies, got %d", len(ranked))
	}

	wantOrder := []string{"A", "C", "B"}
	for i, want := range wantOrder {
		if ranked[i].Nombre != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, ranked[i].Nombre)
		}
	}
}

func TestRankSkipsCompaniesWithoutCoordinates(t *testing.T) {
	empresas := []models.Empresa{
		{ID: 1, Nombre: "with", Lat: ptr(-34.6), Lng: ptr(-58.45)},
		{ID: 2, Nombre: "without"},
		{ID: 3, Nombre: "half", Lat: ptr(-34.6)},
	}

	ranked := Rank(empresas, Coordinate{Lat: -34.6, Lng: -58.4})
	if len(ranked) != 1 {
		t.Fatalf("Expected 1 ranked company, got %d", len(ranked))
	}
	if ranked[0].Nombre != "with" {
		t.Errorf("Unexpected company ranked: %s", ranked[0].Nombre)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Obelisco to La Plata cathedral, roughly 53 km
	obelisco := Coordinate{Lat: -34.6037, Lng: -58.3816}
	laPlata := Coordinate{Lat: -34.9215, Lng: -57.9545}

	km := HaversineKm(obelisco, laPlata)
	if km < 50 || km > 56 {
		t.Errorf("Expected ~53 km, got %.2f", km)
	}

	if d := HaversineKm(obelisco, obelisco); d != 0 {
		t.Errorf("Distance to self should be 0, got %.2f", d)
	}
}

func TestFormatDistance(t *testing.T) {
	cases := []struct {
		km   float64
		want string
	}{
		{0.5, "500 m"},
		{0.999, "999 m"},
		{0.9994, "999 m"},
		{0.9996, "1.0 km"},
		{1.0, "1.0 km"},
		{2.5, "2.5 km"},
		{9.94, "9.9 km"},
		{10.0, "10 km"},
		{12.3, "12 km"},
	}
	for _, tc := range cases {
		if got := FormatDistance(tc.km); got != tc.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tc.km, got, tc.want)
		}
	}
}
