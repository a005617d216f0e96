package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/platform/storage/gen/postgres/public/table"

	pgmodels "github.com/MichalMitros/evend-publisher/internal/platform/storage/gen/postgres/public/model"
	pg "github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
)

// ErrRunNotFound is returned when there is no run to read or update.
var ErrRunNotFound = errors.New("run not found")

// interruptedMessage is a status of runs closed because a newer run of the tenant started.
const interruptedMessage = "interrupted"

// Postgres is storage for publish runs and daily import counters.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres returns new Postgres.
func NewPostgres(db *sql.DB) Postgres {
	return Postgres{
		db:  db,
		now: time.Now,
	}
}

// StartRun creates new unfinished run of tenant and returns it.
// Runs of the tenant left unfinished, e.g. by a crash, are closed as interrupted.
func (p Postgres) StartRun(ctx context.Context, tenantID string, totalListings int32) (*models.Run, error) {
	run := &models.Run{
		TenantID:      tenantID,
		TotalListings: totalListings,
	}

	err := runInTransaction(ctx, p.db, func(tx *sql.Tx) error {
		if err := closeUnfinishedRuns(ctx, tx, tenantID, p.now()); err != nil {
			return fmt.Errorf("can't close unfinished runs: %w", err)
		}

		newRun := toDBRun(run)
		err := table.Run.INSERT(
			table.Run.TenantID,
			table.Run.TotalListings,
		).
			MODEL(newRun).
			RETURNING(table.Run.ID, table.Run.CreatedAt).
			QueryContext(ctx, tx, newRun)
		if err != nil {
			return fmt.Errorf("can't insert run into database: %w", err)
		}

		run.ID = int(newRun.ID)
		run.CreatedAt = newRun.CreatedAt

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("can't add run: %w", err)
	}

	return run, nil
}

// FinishRun sets run as finished and updates run's statistics.
func (p Postgres) FinishRun(ctx context.Context, run *models.Run) error {
	columnList := table.Run.AllColumns.Except(table.Run.ID, table.Run.CreatedAt, table.Run.TenantID)

	result, err := table.Run.UPDATE(columnList).
		MODEL(toDBRun(run)).
		WHERE(table.Run.ID.EQ(pg.Int32(int32(run.ID)))).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't update run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't update run: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("can't update run %d: %w", run.ID, ErrRunNotFound)
	}

	return nil
}

// LatestRun returns the most recent run of tenant or ErrRunNotFound.
func (p Postgres) LatestRun(ctx context.Context, tenantID string) (*models.Run, error) {
	var run pgmodels.Run
	err := table.Run.SELECT(table.Run.AllColumns).
		WHERE(table.Run.TenantID.EQ(pg.String(tenantID))).
		ORDER_BY(table.Run.CreatedAt.DESC(), table.Run.ID.DESC()).
		LIMIT(1).
		QueryContext(ctx, p.db, &run)
	if errors.Is(err, qrm.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't get latest run: %w", err)
	}

	return ToModelRun(&run), nil
}

// AddImported adds count to the number of listings imported by tenant on the UTC day of day.
func (p Postgres) AddImported(ctx context.Context, tenantID string, day time.Time, count int32) error {
	if count <= 0 {
		return nil
	}

	_, err := table.DailyImport.INSERT(table.DailyImport.AllColumns).
		MODEL(pgmodels.DailyImport{
			TenantID: tenantID,
			Day:      utcDay(day),
			Imported: count,
		}).
		ON_CONFLICT(table.DailyImport.TenantID, table.DailyImport.Day).
		DO_UPDATE(
			pg.SET(
				table.DailyImport.Imported.SET(table.DailyImport.Imported.ADD(table.DailyImport.EXCLUDED.Imported)),
			),
		).
		ExecContext(ctx, p.db)
	if err != nil {
		return fmt.Errorf("can't add imported listings: %w", err)
	}

	return nil
}

// Imported returns the number of listings imported by tenant on the UTC day of day.
func (p Postgres) Imported(ctx context.Context, tenantID string, day time.Time) (int, error) {
	var counter pgmodels.DailyImport
	err := table.DailyImport.SELECT(table.DailyImport.Imported).
		WHERE(pg.AND(
			table.DailyImport.TenantID.EQ(pg.String(tenantID)),
			table.DailyImport.Day.EQ(pg.DateT(utcDay(day))),
		)).
		QueryContext(ctx, p.db, &counter)
	if errors.Is(err, qrm.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("can't get imported listings: %w", err)
	}

	return int(counter.Imported), nil
}

func closeUnfinishedRuns(ctx context.Context, db qrm.DB, tenantID string, now time.Time) error {
	_, err := table.Run.UPDATE().
		SET(
			table.Run.FinishedAt.SET(pg.TimestampzT(now)),
			table.Run.Success.SET(pg.Bool(false)),
			table.Run.StatusMessage.SET(pg.String(interruptedMessage)),
		).
		WHERE(pg.AND(
			table.Run.TenantID.EQ(pg.String(tenantID)),
			table.Run.FinishedAt.IS_NULL(),
		)).
		ExecContext(ctx, db)

	return err
}

func runInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var (
		tx  *sql.Tx
		err error
	)

	if tx, err = db.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("can't rollback transaction: %w (rollback reason: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}
