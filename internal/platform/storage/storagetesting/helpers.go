package storagetesting

import (
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	pgmodels "github.com/MichalMitros/evend-publisher/internal/platform/storage/gen/postgres/public/model"
	"github.com/MichalMitros/evend-publisher/internal/platform/storage/gen/postgres/public/table"
	pg "github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"

	_ "github.com/lib/pq"
)

// Open opens connection to DB.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("please provide database URL via DATABASE_URL environment variable")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("can't open connection to %q: %s", dbURL, err)
	}

	return db
}

// InsertRuns is a helper test function to insert runs.
func InsertRuns(t *testing.T, exc qrm.Executable, runs ...pgmodels.Run) {
	t.Helper()

	if len(runs) == 0 {
		return
	}

	_, err := table.Run.INSERT(table.Run.AllColumns).MODELS(runs).Exec(exc)
	if err != nil {
		t.Fatal("can't insert runs", err)
	}
}

// InsertDailyImports is a helper test function to insert daily import counters.
func InsertDailyImports(t *testing.T, exc qrm.Executable, counters ...pgmodels.DailyImport) {
	t.Helper()

	if len(counters) == 0 {
		return
	}

	_, err := table.DailyImport.INSERT(table.DailyImport.AllColumns).MODELS(counters).Exec(exc)
	if err != nil {
		t.Fatal("can't insert daily imports", err)
	}
}

// GetRuns is a helper test function to get all runs.
func GetRuns(t *testing.T, queryable qrm.Queryable) []pgmodels.Run {
	t.Helper()

	runs := []pgmodels.Run{}
	err := table.Run.SELECT(table.Run.AllColumns).
		WHERE(table.Run.ID.IS_NOT_NULL()).
		ORDER_BY(table.Run.ID.ASC()).
		Query(queryable, &runs)
	if err != nil && !errors.Is(err, qrm.ErrNoRows) {
		t.Fatal("can't get runs", err)
	}

	return runs
}

// GetImported is a helper test function to get the counter of tenant on day.
func GetImported(t *testing.T, queryable qrm.Queryable, tenantID string, day time.Time) int32 {
	t.Helper()

	var counter pgmodels.DailyImport
	err := table.DailyImport.SELECT(table.DailyImport.AllColumns).
		WHERE(pg.AND(
			table.DailyImport.TenantID.EQ(pg.String(tenantID)),
			table.DailyImport.Day.EQ(pg.DateT(day)),
		)).
		Query(queryable, &counter)
	if errors.Is(err, qrm.ErrNoRows) {
		return 0
	}
	if err != nil {
		t.Fatal("can't get daily import", err)
	}

	return counter.Imported
}

// CleanupData removes all runs and daily import counters.
func CleanupData(t *testing.T, exc qrm.Executable) {
	t.Helper()

	_, err := table.DailyImport.DELETE().WHERE(table.DailyImport.TenantID.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete daily imports data", err)
	}

	_, err = table.Run.DELETE().WHERE(table.Run.ID.IS_NOT_NULL()).Exec(exc)
	if err != nil {
		t.Fatal("can't delete runs data", err)
	}
}
