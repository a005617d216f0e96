package storage

import (
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"

	pgmodels "github.com/MichalMitros/evend-publisher/internal/platform/storage/gen/postgres/public/model"
)

//go:generate make -C ../../../ generate-db

func toDBRun(run *models.Run) *pgmodels.Run {
	return &pgmodels.Run{
		ID:                  int32(run.ID),
		TenantID:            run.TenantID,
		CreatedAt:           run.CreatedAt,
		FinishedAt:          run.FinishedAt,
		Success:             run.IsSuccess,
		StatusMessage:       run.StatusMessage,
		TotalListings:       run.TotalListings,
		PublishedListings:   run.PublishedListings,
		UnconfirmedListings: run.UnconfirmedListings,
		FailedListings:      run.FailedListings,
		SkippedListings:     run.SkippedListings,
	}
}

// ToModelRun converts postgres run model into models.Run.
func ToModelRun(run *pgmodels.Run) *models.Run {
	return &models.Run{
		ID:                  int(run.ID),
		TenantID:            run.TenantID,
		CreatedAt:           run.CreatedAt,
		FinishedAt:          run.FinishedAt,
		IsSuccess:           run.Success,
		StatusMessage:       run.StatusMessage,
		TotalListings:       run.TotalListings,
		PublishedListings:   run.PublishedListings,
		UnconfirmedListings: run.UnconfirmedListings,
		FailedListings:      run.FailedListings,
		SkippedListings:     run.SkippedListings,
	}
}

// utcDay truncates t to the start of its UTC day.
func utcDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
