package service

import (
	"context"
	"fmt"
	"os"
	"testing"

	"gesetzebank/internal/law/repository"
	"gesetzebank/internal/location"
	"gesetzebank/internal/syncer"
	"gesetzebank/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

const lawXML = `<dokumente>
  <norm doknr="BJNR000010000" builddate="20230101120000">
    <metadaten>
      <jurabk>TG</jurabk>
      <ausfertigung-datum>2000-01-01</ausfertigung-datum>
      <langue>Testgesetz</langue>
    </metadaten>
  </norm>
  <norm doknr="BJNR000010000NE000200000" builddate="20230101120000">
    <metadaten>
      <enbez>§ 1</enbez>
    </metadaten>
  </norm>
</dokumente>`

func TestIngestFromLocationNewLaw(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := location.NewStore(t.TempDir())
	require.NoError(t, store.CreateOrReplace("tg", "20230101120000", map[string][]byte{
		"tg.xml": []byte(lawXML),
	}))

	mock.ExpectQuery("SELECT gii_slug, source_timestamp FROM laws").
		WillReturnRows(sqlmock.NewRows([]string{"gii_slug", "source_timestamp"}))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM laws WHERE doknr = \\$1").
		WithArgs("BJNR000010000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO laws").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO content_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT id, slug, gii_slug FROM laws").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "gii_slug"}))

	svc := NewIngestService(repository.NewLawRepository(db), store, nil)
	require.NoError(t, svc.IngestFromLocation(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestFromLocationSkipsUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := location.NewStore(t.TempDir())
	require.NoError(t, store.CreateOrReplace("tg", "20230101120000", map[string][]byte{
		"tg.xml": []byte(lawXML),
	}))

	// The stored copy is not newer than the persisted one, so nothing is
	// parsed or written.
	mock.ExpectQuery("SELECT gii_slug, source_timestamp FROM laws").
		WillReturnRows(sqlmock.NewRows([]string{"gii_slug", "source_timestamp"}).
			AddRow("tg", "20230101120000"))
	mock.ExpectQuery("SELECT id, slug, gii_slug FROM laws").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "gii_slug"}))

	svc := NewIngestService(repository.NewLawRepository(db), store, nil)
	require.NoError(t, svc.IngestFromLocation(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestFromLocationRemovalGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"gii_slug", "source_timestamp"})
	for i := 0; i < syncer.MaxRemovals+1; i++ {
		rows.AddRow(fmt.Sprintf("law_%d", i), "1")
	}
	mock.ExpectQuery("SELECT gii_slug, source_timestamp FROM laws").WillReturnRows(rows)

	// No delete is ever issued: the guard fires before any side effect.
	svc := NewIngestService(repository.NewLawRepository(db), location.NewStore(t.TempDir()), nil)
	err = svc.IngestFromLocation(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncer.ErrDubiousRemovals))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFixupSlugDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT id, slug, gii_slug FROM laws").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "gii_slug"}).
			AddRow(1, "aeg", "aeg_1994").
			AddRow(2, "aeg", "aeg").
			AddRow(3, "bimschv", "bimschv_1").
			AddRow(4, "bimschv", "bimschv_2"))

	// aeg_1994 keeps "aeg" per the override table, so only three laws move.
	mock.ExpectExec("UPDATE laws SET slug").WithArgs("aeg_2", int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE laws SET slug").WithArgs("bimschv_1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE laws SET slug").WithArgs("bimschv_2", int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewIngestService(repository.NewLawRepository(db), nil, nil)
	require.NoError(t, svc.FixupSlugDuplicates())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFixupSlugDuplicatesStrictMode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, slug, gii_slug FROM laws").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "gii_slug"}).
			AddRow(1, "xyz", "xyz_1990").
			AddRow(2, "xyz", "xyz_2004"))

	svc := NewIngestService(repository.NewLawRepository(db), nil, nil)
	svc.StrictCollisions = true
	err = svc.FixupSlugDuplicates()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unconfigured slug collision")
}
