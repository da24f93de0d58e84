package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeName(""))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNormalizeName_Uppercase(t *testing.T) {
	assert.Equal(t, "ACME STEEL", NormalizeName("Acme Steel"))
}

func TestNormalizeName_KeepsLegalSuffix(t *testing.T) {
	assert.Equal(t, "ACME STEEL INC", NormalizeName("Acme Steel Inc."))
	assert.Equal(t, "ACME STEEL LLC", NormalizeName("Acme Steel, LLC"))
}

func TestNormalizeName_Punctuation(t *testing.T) {
	assert.Equal(t, "SMITH AND JONES", NormalizeName("Smith & Jones"))
	assert.Equal(t, "JOES ROOFING", NormalizeName("Joe's Roofing"))
	assert.Equal(t, "TRI STATE HAULING", NormalizeName("Tri-State  Hauling"))
}

func TestAggressiveNormalizeName_StripsSuffixes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Steel Inc", "ACME STEEL"},
		{"Acme Steel Inc.", "ACME STEEL"},
		{"Acme Steel Incorporated", "ACME STEEL"},
		{"Acme Steel Corp", "ACME STEEL"},
		{"Acme Steel Corporation", "ACME STEEL"},
		{"Acme Steel, LLC", "ACME STEEL"},
		{"Acme Steel L.L.C.", "ACME STEEL"},
		{"Acme Steel Ltd", "ACME STEEL"},
		{"Acme Steel L.P.", "ACME STEEL"},
		{"Acme Steel PLLC", "ACME STEEL"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AggressiveNormalizeName(tc.in), "input %q", tc.in)
	}
}

func TestAggressiveNormalizeName_MatchesAcrossPhrasings(t *testing.T) {
	a := AggressiveNormalizeName("Acme Inc")
	b := AggressiveNormalizeName("ACME INCORPORATED")
	assert.Equal(t, a, b)
}

func TestNormalizeStreet_Designators(t *testing.T) {
	assert.Equal(t, "123 MAIN ST", NormalizeStreet("123 Main Street"))
	assert.Equal(t, "450 W 5TH AVE STE 200", NormalizeStreet("450 West 5th Avenue, Suite 200"))
	assert.Equal(t, "", NormalizeStreet("  "))
}

func TestZip5(t *testing.T) {
	assert.Equal(t, "60614", Zip5("60614-1234"))
	assert.Equal(t, "60614", Zip5("60614"))
	assert.Equal(t, "", Zip5(" "))
}

func TestCityMatch_Exact(t *testing.T) {
	assert.True(t, CityMatch("Chicago", "CHICAGO"))
}

func TestCityMatch_EmptyIsUnknown(t *testing.T) {
	assert.True(t, CityMatch("", "Chicago"))
	assert.True(t, CityMatch("Chicago", ""))
}

func TestCityMatch_AbbreviationNormalization(t *testing.T) {
	assert.True(t, CityMatch("Saint Louis", "St. Louis"))
	assert.True(t, CityMatch("Fort Wayne", "Ft Wayne"))
	assert.True(t, CityMatch("North Las Vegas", "N Las Vegas"))
}

func TestCityMatch_Containment(t *testing.T) {
	assert.True(t, CityMatch("Indpls", "Indianapolis"))
}

func TestCityMatch_Typo(t *testing.T) {
	assert.True(t, CityMatch("Pittsburg", "Pittsburgh"))
	assert.True(t, CityMatch("Cincinatti", "Cincinnati"))
}

func TestCityMatch_DifferentCities(t *testing.T) {
	assert.False(t, CityMatch("Springfield", "Shelbyville"))
	assert.False(t, CityMatch("Dallas", "Houston"))
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("abc", "abc"))
	assert.Equal(t, 1, editDistance("abc", "abd"))
	assert.Equal(t, 3, editDistance("", "abc"))
	assert.Equal(t, 2, editDistance("kitten", "sitten"[:5]+"g"))
}
