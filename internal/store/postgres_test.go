package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-resolver/internal/model"
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newTestPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS resolutions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateResolution(t *testing.T) {
	st, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO resolutions").
		WithArgs(pgxmock.AnyArg(), "Hồ Hoàn Kiếm", 21.0278, 105.8342, StatusResolved,
			string(model.SourceOSM), "Hoan Kiem Lake", 21.028511, 105.852245, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := st.CreateResolution(context.Background(), Resolution{
		Destination:  "Hồ Hoàn Kiếm",
		OriginLat:    21.0278,
		OriginLng:    105.8342,
		Status:       StatusResolved,
		Source:       string(model.SourceOSM),
		ResolvedName: "Hoan Kiem Lake",
		Lat:          model.Float64(21.028511),
		Lng:          model.Float64(105.852245),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateResolution_NullColumns(t *testing.T) {
	st, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO resolutions").
		WithArgs(pgxmock.AnyArg(), "nowhere", 21.0, 105.8, StatusUnresolved,
			nil, nil, nil, nil, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := st.CreateResolution(context.Background(), Resolution{
		Destination: "nowhere",
		OriginLat:   21.0,
		OriginLng:   105.8,
		Status:      StatusUnresolved,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateResolution_Error(t *testing.T) {
	st, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO resolutions").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := st.CreateResolution(context.Background(), Resolution{
		Destination: "x", Status: StatusUnresolved,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert resolution")
}

func TestPostgres_ListResolutions(t *testing.T) {
	st, mock := newTestPostgresStore(t)

	now := time.Now().UTC()
	lat, lng := 21.028511, 105.852245
	rows := pgxmock.NewRows([]string{
		"id", "destination", "origin_lat", "origin_lng", "status",
		"source", "resolved_name", "lat", "lng", "created_at",
	}).AddRow(
		"id-1", "Hồ Hoàn Kiếm", 21.0278, 105.8342, StatusResolved,
		strPtr(string(model.SourceProtobufPB)), strPtr("Hoan Kiem Lake"), &lat, &lng, now,
	).AddRow(
		"id-2", "nowhere", 21.0, 105.8, StatusUnresolved,
		(*string)(nil), (*string)(nil), (*float64)(nil), (*float64)(nil), now,
	)

	mock.ExpectQuery("SELECT .+ FROM resolutions ORDER BY created_at DESC").
		WillReturnRows(rows)

	got, err := st.ListResolutions(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, string(model.SourceProtobufPB), got[0].Source)
	require.NotNil(t, got[0].Lat)
	assert.InDelta(t, 21.028511, *got[0].Lat, 1e-9)
	assert.Empty(t, got[1].Source)
	assert.Nil(t, got[1].Lat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListResolutions_FilterPlaceholders(t *testing.T) {
	st, mock := newTestPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "destination", "origin_lat", "origin_lng", "status",
		"source", "resolved_name", "lat", "lng", "created_at",
	})
	mock.ExpectQuery(`WHERE status = \$1 AND destination = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs(StatusResolved, "Văn Miếu", 5).
		WillReturnRows(rows)

	got, err := st.ListResolutions(context.Background(), Filter{
		Status:      StatusResolved,
		Destination: "Văn Miếu",
		Limit:       5,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
