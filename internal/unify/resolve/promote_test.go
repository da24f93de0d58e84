package resolve

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/employer-unify/internal/model"
)

func TestPromote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT source_system, source_id, display_name").
		WithArgs("whd").
		WillReturnRows(sourceRecordRows().AddRow(
			"whd", "case-9", "Riverside Bakery LLC", "RIVERSIDE BAKERY LLC", "RIVERSIDE BAKERY",
			"TX", "Austin", "", "78701", "",
		))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO labor_data.employers").
		WithArgs("Riverside Bakery LLC", "RIVERSIDE BAKERY LLC", "RIVERSIDE BAKERY",
			"TX", "Austin", "", "78701", "").
		WillReturnRows(pgxmock.NewRows([]string{"employer_id"}).AddRow(int64(101)))
	mock.ExpectExec("INSERT INTO labor_data.match_log").
		WithArgs("whd", "case-9", int64(101),
			string(model.TierDeterministic), model.MethodPromoted,
			string(model.BandHigh), 1.0, string(model.StatusActive), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	summary, err := Promote(context.Background(), mock, "whd")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromote_NothingUnmatched(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT source_system, source_id, display_name").
		WithArgs("whd").
		WillReturnRows(sourceRecordRows())

	summary, err := Promote(context.Background(), mock, "whd")
	require.NoError(t, err)
	assert.Zero(t, summary.Promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
