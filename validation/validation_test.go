package validation

import "testing"

func TestRequired(t *testing.T) {
	v := Violations{}
	Required("nom", "", v)
	Required("prenom", "Awa", v)
	if v.Empty() {
		t.Fatalf("expected violation for empty nom")
	}
	if _, ok := v["nom"]; !ok {
		t.Fatalf("missing nom violation: %+v", v)
	}
	if _, ok := v["prenom"]; ok {
		t.Fatalf("prenom should be valid")
	}
}

func TestISODate(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"2025-01-15", true},
		{"", true},
		{"15/01/2025", false},
		{"2025-13-40", false},
	}
	for _, c := range cases {
		v := Violations{}
		ISODate("date", c.value, v)
		if c.ok != v.Empty() {
			t.Fatalf("ISODate(%q): violations=%v", c.value, v)
		}
	}
}

func TestYear(t *testing.T) {
	cases := []struct {
		value int
		ok    bool
	}{
		{2025, true},
		{1900, true},
		{1899, false},
		{0, false},
		{2201, false},
	}
	for _, c := range cases {
		v := Violations{}
		Year("annee", c.value, v)
		if c.ok != v.Empty() {
			t.Fatalf("Year(%d): violations=%v", c.value, v)
		}
	}
}

func TestPositiveFloat(t *testing.T) {
	v := Violations{}
	PositiveFloat("montant", 10, v)
	if !v.Empty() {
		t.Fatalf("10 is positive: %v", v)
	}
	PositiveFloat("montant", 0, v)
	if v.Empty() {
		t.Fatalf("0 should be rejected")
	}
}
