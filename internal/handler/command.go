package handler

import (
	"context"

	"github.com/MichalMitros/evend-publisher/internal/launcher"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/pkg/v1/commander"
)

//go:generate mockery --name Launcher --filename launcher.go

// Launcher starts publishing jobs.
type Launcher interface {
	Launch(ctx context.Context, job models.Job) (*launcher.Handle, error)
	Status(jobID string) launcher.Status
}

func toJob(cmd commander.PublishCommand) models.Job {
	return models.Job{
		ID:       cmd.TenantID,
		FilePath: cmd.FilePath,
		Config: models.JobConfig{
			Credentials: models.Credentials{
				Email:    cmd.Credentials.Email,
				Password: cmd.Credentials.Password,
			},
			Shipping: models.Shipping{
				PickupEnabled:  cmd.Shipping.PickupEnabled,
				PickupLocation: cmd.Shipping.PickupLocation,
				PerItemFee:     cmd.Shipping.PerItemFee,
				ExtraFee:       cmd.Shipping.ExtraFee,
			},
			Defaults: cmd.Defaults,
		},
		RemoveFile: cmd.RemoveFile,
	}
}
