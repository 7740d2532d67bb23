package geocoding

import (
	"testing"
)

func TestNormalizeEquivalence(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"Av. Corrientes 1234, CABA, Argentina", "av corrientes 1234 caba"},
		{"AV CORRIENTES 1234 CABA", "av corrientes 1234 caba"},
		{"Av.  Corrientes   1234", "av corrientes 1234"},
		{"Calle Falsa 123, Springfield", "calle-falsa 123 springfield"},
		{"Mitre 450, Quilmes, Buenos Aires, Argentina", "mitre 450 quilmes buenos aires"},
	}

	for _, tc := range cases {
		na, nb := Normalize(tc.a), Normalize(tc.b)
		if na != nb {
			t.Errorf("Normalize(%q) = %q, Normalize(%q) = %q; expected equal", tc.a, na, tc.b, nb)
		}
	}
}

func TestNormalizeIdempotence(t *testing.T) {
	inputs := []string{
		"Av. Rivadavia 5000, CABA, Argentina",
		"  MITRE  450 ",
		"argentina",
		"Ruta 2 km 45, La Plata, Argentina, Argentina",
		"",
	}
	for _, s := range inputs {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", s, once, twice)
		}
	}
}

func TestNormalizeDropsTrailingCountryOnly(t *testing.T) {
	// "argentina" in the middle of an address must survive
	got := Normalize("Av. Argentina 100, Neuquén")
	if got != "av argentina 100 neuquén" {
		t.Errorf("Unexpected normalization: %q", got)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("Av. Corrientes 1234, CABA, Argentina")
	b := CacheKey("av corrientes 1234 caba")
	if a != b {
		t.Errorf("Equivalent addresses produced different keys: %s vs %s", a, b)
	}
	if len(a) != 40 {
		t.Errorf("Expected 40-char hex sha1 key, got %d chars", len(a))
	}
}

func TestFullAddress(t *testing.T) {
	got := FullAddress("Av. Rivadavia 5000", "CABA", "Buenos Aires")
	if got != "Av. Rivadavia 5000, CABA, Buenos Aires" {
		t.Errorf("Unexpected full address: %q", got)
	}

	got = FullAddress("Mitre 450", "", "")
	if got != "Mitre 450" {
		t.Errorf("Expected bare address when qualifiers are empty, got %q", got)
	}

	got = FullAddress("Mitre 450", "", "Córdoba")
	if got != "Mitre 450, Córdoba" {
		t.Errorf("Empty locality should be skipped, got %q", got)
	}
}
