// Package launcher starts publishing jobs in the background and tracks them until they finish.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/publisher"
	"github.com/rs/zerolog"
)

//go:generate mockery --name Runner --filename runner.go
//go:generate mockery --name Decoder --filename decoder.go
//go:generate mockery --name Quota --filename quota.go

// Runner runs a single publishing job.
type Runner interface {
	Run(ctx context.Context, job models.Job) error
	State(jobID string) publisher.State
}

// Decoder decodes listings files.
type Decoder interface {
	DecodeFile(ctx context.Context, path string) (*models.ListingSource, error)
}

// Quota reads daily import counters.
type Quota interface {
	// Imported returns number of listings imported by tenant on the UTC day of day.
	Imported(ctx context.Context, tenantID string, day time.Time) (int, error)
}

// JobLog is the per-job log read by users.
type JobLog interface {
	Append(jobID, message string)
}

// Limits are import limits of a single tenant.
type Limits struct {
	MaxPerFile int
	MaxPerDay  int
}

// DefaultLimits returns production import limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPerFile: 500,
		MaxPerDay:  2000,
	}
}

// Handle is a started job.
type Handle struct {
	JobID    string
	Listings int

	done chan struct{}
	err  error
}

// Done is closed when the job finishes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns error of the finished job. It must be called after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

// Status is the state of a job known to the launcher.
type Status struct {
	JobID   string `json:"jobId"`
	State   string `json:"state"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// Option is custom configuration of Launcher.
type Option func(l *Launcher)

// WithClock sets function returning current time.
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) {
		l.now = now
	}
}

// Launcher validates publish requests and runs accepted jobs in their own goroutines.
type Launcher struct {
	ctx     context.Context
	runner  Runner
	decoder Decoder
	quota   Quota
	jobLog  JobLog
	limits  Limits
	now     func() time.Time
	logger  *zerolog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	running  map[string]*Handle
	finished map[string]error
}

// New returns new Launcher. Jobs run with ctx, so cancelling it stops every running job.
func New(
	ctx context.Context,
	runner Runner,
	decoder Decoder,
	quota Quota,
	jobLog JobLog,
	limits Limits,
	logger *zerolog.Logger,
	ops ...Option,
) *Launcher {
	l := &Launcher{
		ctx:      ctx,
		runner:   runner,
		decoder:  decoder,
		quota:    quota,
		jobLog:   jobLog,
		limits:   limits,
		now:      time.Now,
		logger:   logger,
		running:  map[string]*Handle{},
		finished: map[string]error{},
	}

	for _, op := range ops {
		op(l)
	}

	return l
}

// Launch checks job against configuration and quotas and starts it in the background.
// Rejected jobs never enter the admission queue.
func (l *Launcher) Launch(ctx context.Context, job models.Job) (*Handle, error) {
	logger := l.logger.With().Str("jobId", job.ID).Logger()

	handle, err := l.reserve(job.ID)
	if err != nil {
		l.reject(job, &logger, err)
		return nil, err
	}

	count, err := l.check(ctx, job)
	if err != nil {
		l.release(job.ID)
		l.reject(job, &logger, err)
		return nil, err
	}
	handle.Listings = count

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(job, handle, &logger)
	}()

	logger.Info().Int("listings", count).Msg("job started")

	return handle, nil
}

// Status returns status of job.
func (l *Launcher) Status(jobID string) Status {
	l.mu.Lock()
	_, running := l.running[jobID]
	runErr, finished := l.finished[jobID]
	l.mu.Unlock()

	status := Status{
		JobID:   jobID,
		State:   l.runner.State(jobID).String(),
		Running: running,
	}
	if finished && runErr != nil {
		status.Error = runErr.Error()
	}

	return status
}

// Wait blocks until every started job finishes.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) reserve(jobID string) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.running[jobID]; ok {
		return nil, platform.ErrAlreadyRunning
	}

	handle := &Handle{JobID: jobID, done: make(chan struct{})}
	l.running[jobID] = handle

	return handle, nil
}

func (l *Launcher) release(jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.running, jobID)
}

// check validates job and returns number of its listings.
func (l *Launcher) check(ctx context.Context, job models.Job) (int, error) {
	if err := job.Config.Validate(); err != nil {
		return 0, err
	}

	source, err := l.decoder.DecodeFile(ctx, job.FilePath)
	if err != nil {
		return 0, fmt.Errorf("can't read listings file: %w", err)
	}

	count := source.Count()
	if l.limits.MaxPerFile > 0 && count > l.limits.MaxPerFile {
		return 0, fmt.Errorf("%w: %d listings, at most %d allowed", ErrFileTooLarge, count, l.limits.MaxPerFile)
	}

	if l.limits.MaxPerDay > 0 {
		imported, err := l.quota.Imported(ctx, job.ID, l.now())
		if err != nil {
			return 0, fmt.Errorf("can't check daily quota: %w", err)
		}
		if imported+count > l.limits.MaxPerDay {
			return 0, fmt.Errorf("%w: %d already imported today, %d more requested, at most %d allowed",
				ErrQuotaExceeded, imported, count, l.limits.MaxPerDay)
		}
	}

	return count, nil
}

func (l *Launcher) run(job models.Job, handle *Handle, logger *zerolog.Logger) {
	err := l.runner.Run(l.ctx, job)

	switch {
	case err == nil:
		logger.Info().Msg("job finished")
	case errors.Is(err, publisher.ErrQueued):
		logger.Info().Err(err).Msg("job queued")
	default:
		logger.Error().Err(err).Msg("job failed")
	}

	l.removeFile(job, logger)

	l.mu.Lock()
	delete(l.running, job.ID)
	l.finished[job.ID] = err
	l.mu.Unlock()

	handle.err = err
	close(handle.done)
}

func (l *Launcher) reject(job models.Job, logger *zerolog.Logger, err error) {
	logger.Warn().Err(err).Msg("job rejected")

	// the log of a running job belongs to it.
	if !errors.Is(err, platform.ErrAlreadyRunning) {
		l.jobLog.Append(job.ID, fmt.Sprintf("import rejected: %v", err))
	}

	l.removeFile(job, logger)
}

func (l *Launcher) removeFile(job models.Job, logger *zerolog.Logger) {
	if !job.RemoveFile {
		return
	}

	if err := os.Remove(job.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Str("path", job.FilePath).Msg("can't remove listings file")
	}
}
