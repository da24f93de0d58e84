package resolve

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeRegistryFile(t *testing.T, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Registrations")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "registry.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func registryMapping() XLSXMapping {
	return XLSXMapping{
		System:      "contractor_registry",
		IDHeader:    "Registration No",
		NameHeader:  "Business Name",
		StateHeader: "State",
		CityHeader:  "City",
		ZipHeader:   "Zip Code",
	}
}

func TestReadXLSXRecords(t *testing.T) {
	path := writeRegistryFile(t, [][]string{
		{"Registration No", "Business Name", "State", "City", "Zip Code"},
		{"R-100", "Acme Steel, Inc.", "NY", "Buffalo", "14201-2200"},
		{"R-101", "Riverside Bakery LLC", "TX", "Austin", "78701"},
		{"", "Missing Id Co", "TX", "", ""},
		{"R-102", "", "TX", "", ""},
	})

	recs, err := ReadXLSXRecords(path, registryMapping())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "contractor_registry", recs[0].SourceSystem)
	assert.Equal(t, "R-100", recs[0].SourceID)
	assert.Equal(t, "ACME STEEL INC", recs[0].NormalizedName)
	assert.Equal(t, "ACME STEEL", recs[0].AggressiveName)
	assert.Equal(t, "14201", recs[0].Zip)
	assert.Equal(t, "RIVERSIDE BAKERY", recs[1].AggressiveName)
}

func TestReadXLSXRecords_HeaderCaseInsensitive(t *testing.T) {
	path := writeRegistryFile(t, [][]string{
		{"REGISTRATION NO", "business name"},
		{"R-1", "Acme Co"},
	})

	recs, err := ReadXLSXRecords(path, registryMapping())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "R-1", recs[0].SourceID)
}

func TestReadXLSXRecords_MissingHeader(t *testing.T) {
	path := writeRegistryFile(t, [][]string{
		{"Some Other Column", "Business Name"},
		{"R-1", "Acme Co"},
	})

	_, err := ReadXLSXRecords(path, registryMapping())
	assert.ErrorContains(t, err, "Registration No")
}

func TestReadXLSXRecords_MappingValidation(t *testing.T) {
	_, err := ReadXLSXRecords("registry.xlsx", XLSXMapping{System: "contractor_registry"})
	assert.Error(t, err)
}
