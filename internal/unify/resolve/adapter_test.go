package resolve

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/employer-unify/internal/config"
	"github.com/sells-group/employer-unify/internal/model"
)

func TestAdapter_BuildQuery(t *testing.T) {
	a := NewAdapter(nil, config.SourceTable{
		System:      "whd",
		Table:       "public.whd_cases",
		IDColumn:    "case_id",
		NameColumn:  "legal_name",
		StateColumn: "st",
	})

	q := a.buildQuery()
	assert.Contains(t, q, `COALESCE("case_id"::TEXT, '')`)
	assert.Contains(t, q, `COALESCE("legal_name"::TEXT, '')`)
	assert.Contains(t, q, `COALESCE("st"::TEXT, '')`)
	assert.Contains(t, q, `FROM "public"."whd_cases"`)
	// Unmapped columns select as literal empty strings so the scan shape
	// stays fixed at seven columns.
	assert.Contains(t, q, "''")
}

func TestAdapter_Records(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM \"public\".\"whd_cases\"").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "state", "city", "street", "zip", "identifier"}).
			AddRow("case-7", "Acme Steel, Inc.", "ny", "Buffalo", "123 Main Street", "14201-2200", "12-3456789").
			AddRow("case-8", "Riverside Bakery LLC", "tx", "", "", "", ""))

	a := NewAdapter(mock, config.SourceTable{
		System:     "whd",
		Table:      "public.whd_cases",
		IDColumn:   "case_id",
		NameColumn: "legal_name",
	})
	recs, err := a.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "whd", recs[0].SourceSystem)
	assert.Equal(t, "case-7", recs[0].SourceID)
	assert.Equal(t, "Acme Steel, Inc.", recs[0].DisplayName)
	assert.Equal(t, "ACME STEEL INC", recs[0].NormalizedName)
	assert.Equal(t, "ACME STEEL", recs[0].AggressiveName)
	assert.Equal(t, "NY", recs[0].State)
	assert.Equal(t, "14201", recs[0].Zip)
	assert.Equal(t, "RIVERSIDE BAKERY", recs[1].AggressiveName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Records_MissingRequiredColumns(t *testing.T) {
	a := NewAdapter(nil, config.SourceTable{System: "whd", Table: "public.whd_cases"})
	_, err := a.Records(context.Background())
	assert.Error(t, err)
}

func TestLoadRecords_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_labor_data_source_records"}, sourceRecordColumns).
		WillReturnResult(2)
	mock.ExpectExec("INSERT INTO \"labor_data\".\"source_records\"").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	recs := []model.SourceRecord{
		NewSourceRecord("whd", "case-7", "Acme Steel, Inc.", "NY", "Buffalo", "123 Main St", "14201", ""),
		NewSourceRecord("whd", "case-8", "Riverside Bakery LLC", "TX", "", "", "", ""),
	}
	n, err := LoadRecords(context.Background(), mock, recs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRecords_Empty(t *testing.T) {
	n, err := LoadRecords(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
