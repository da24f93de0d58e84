package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDescriptorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dependents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dependent_tables:
  - table: labor_data.establishment_links
    column: employer_id
    unique_with: establishment_id
  - table: labor_data.case_findings
    column: employer_id
enrichment_tables:
  - table: labor_data.employer_identifiers
    column: employer_id
    fill_columns: [ein, duns]
`), 0o600))

	m := MergeConfig{
		DependentTablesFile: path,
		DependentTables:     []DependentTable{{Table: "labor_data.filings", Column: "employer_id"}},
	}
	require.NoError(t, m.loadDescriptorFile())

	// File entries append to, not replace, the inline list.
	require.Len(t, m.DependentTables, 3)
	assert.Equal(t, "labor_data.filings", m.DependentTables[0].Table)
	assert.Equal(t, "establishment_id", m.DependentTables[1].UniqueWith)
	require.Len(t, m.EnrichmentTables, 1)
	assert.Equal(t, []string{"ein", "duns"}, m.EnrichmentTables[0].FillColumns)
}

func TestLoadDescriptorFile_Missing(t *testing.T) {
	m := MergeConfig{DependentTablesFile: "/nonexistent/dependents.yaml"}
	assert.Error(t, m.loadDescriptorFile())
}
