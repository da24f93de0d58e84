package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "t"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "t", Columns: []string{"a"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_labor_data_source_records"}, []string{"source_system", "source_id", "display_name"}).
		WillReturnResult(2)
	mock.ExpectExec("INSERT INTO \"labor_data\".\"source_records\"").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	cfg := UpsertConfig{
		Table:        "labor_data.source_records",
		Columns:      []string{"source_system", "source_id", "display_name"},
		ConflictKeys: []string{"source_system", "source_id"},
	}
	rows := [][]any{{"whd", "1", "ACME"}, {"whd", "2", "GLOBEX"}}

	n, err := BulkUpsert(context.Background(), mock, cfg, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_employers"}, []string{"a"}).
		WillReturnError(fmt.Errorf("copy failed"))
	mock.ExpectRollback()

	cfg := UpsertConfig{Table: "employers", Columns: []string{"a"}, ConflictKeys: []string{"a"}}
	_, err = BulkUpsert(context.Background(), mock, cfg, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
