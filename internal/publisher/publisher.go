package publisher

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

//go:generate mockery --name Fetcher --filename fetcher.go
//go:generate mockery --name Storage --filename storage.go

// Fetcher fetches listing images.
type Fetcher interface {
	FetchFile(context.Context, string) (io.ReadCloser, error)
}

// Decoder decodes listings files.
type Decoder interface {
	DecodeFile(ctx context.Context, path string) (*models.ListingSource, error)
}

// Queue is the admission queue shared by all publishing processes.
type Queue interface {
	// Enter appends job to the queue, or refreshes its entry, and returns the queue content.
	Enter(ctx context.Context, jobID string, articles int) ([]models.QueueEntry, error)
	// Leave removes job from the queue.
	Leave(ctx context.Context, jobID string) error
	// EstimateWait returns estimated wait of the entry at position.
	EstimateWait(entries []models.QueueEntry, position int) time.Duration
}

// Checkpoints persists the last attempted row of each job.
type Checkpoints interface {
	Load(ctx context.Context, jobID, digest string) (models.Position, error)
	Save(ctx context.Context, jobID, digest string, pos models.Position) error
}

// Sessions persists authenticated browser sessions.
type Sessions interface {
	TryLoad(ctx context.Context, tenantID string) ([]models.Cookie, bool, error)
	Save(ctx context.Context, tenantID string, cookies []models.Cookie) error
}

// JobLog is the per-job log read by users.
type JobLog interface {
	Append(jobID, message string)
	Reset(jobID string)
}

// Storage is runs and daily quota storage.
type Storage interface {
	// StartRun creates new run of tenant, closing its runs left unfinished.
	StartRun(ctx context.Context, tenantID string, totalListings int32) (*models.Run, error)
	// FinishRun finishes provided run and updates its statistics.
	FinishRun(ctx context.Context, run *models.Run) error
	// AddImported adds count to listings imported by tenant on day.
	AddImported(ctx context.Context, tenantID string, day time.Time, count int32) error
}

// Clock provides times and delays.
type Clock interface {
	// Now returns current UTC time.
	Now() time.Time
	// Sleep waits for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// Deps are collaborators of Publisher.
type Deps struct {
	Decoder     Decoder
	Queue       Queue
	Checkpoints Checkpoints
	Sessions    Sessions
	Browsers    BrowserFactory
	Fetcher     Fetcher
	Storage     Storage
	JobLog      JobLog
}

// Config is publishing configuration.
type Config struct {
	BatchSize int
	// RestartEvery recycles the browser after this many batches. Zero keeps one browser per job.
	RestartEvery        int
	RowDelay            time.Duration
	BatchDelay          time.Duration
	BatchTimeout        time.Duration
	PageTimeout         time.Duration
	SubmitTimeout       time.Duration
	SessionCheckTimeout time.Duration
	// WaitInQueue polls the admission queue instead of failing with QueuedError.
	WaitInQueue       bool
	QueuePollInterval time.Duration
	ImageWorkers      int
	// TempDir holds downloaded images. Empty means the system temporary directory.
	TempDir string
	Site    Site
}

// DefaultConfig returns production publishing configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:           20,
		RestartEvery:        2,
		RowDelay:            2 * time.Second,
		BatchDelay:          3 * time.Second,
		BatchTimeout:        15 * time.Minute,
		PageTimeout:         20 * time.Second,
		SubmitTimeout:       20 * time.Second,
		SessionCheckTimeout: 5 * time.Second,
		QueuePollInterval:   10 * time.Second,
		ImageWorkers:        3,
		Site:                DefaultSite(),
	}
}

// Option is custom configuration of Publisher.
type Option func(p *Publisher)

// Publisher publishes listings files to e-Vend through browser automation.
type Publisher struct {
	deps   Deps
	cfg    Config
	clock  Clock
	logger *zerolog.Logger
	states sync.Map
}

// NewPublisher returns new Publisher.
func NewPublisher(deps Deps, cfg Config, logger *zerolog.Logger, ops ...Option) *Publisher {
	pub := &Publisher{
		deps:   deps,
		cfg:    cfg,
		clock:  systemClock{},
		logger: logger,
	}

	if pub.cfg.BatchSize <= 0 {
		pub.cfg.BatchSize = DefaultConfig().BatchSize
	}

	for _, op := range ops {
		op(pub)
	}

	return pub
}

// State returns the last state of job. Unknown jobs are in StateInit.
func (p *Publisher) State(jobID string) State {
	state, ok := p.states.Load(jobID)
	if !ok {
		return StateInit
	}

	return state.(State)
}

// Run publishes every listing of job's file not attempted by an earlier run of the same file.
func (p *Publisher) Run(ctx context.Context, job models.Job) error {
	logger := p.logger.With().Str("jobId", job.ID).Logger()
	p.transition(job.ID, &logger, StateInit)

	if err := job.Config.Validate(); err != nil {
		return p.fail(job, &logger, fmt.Errorf("can't start publishing: %w", err))
	}

	source, err := p.deps.Decoder.DecodeFile(ctx, job.FilePath)
	if err != nil {
		return p.fail(job, &logger, fmt.Errorf("can't read listings file: %w", err))
	}

	if err := p.admit(ctx, job, source.Count(), &logger); err != nil {
		return p.fail(job, &logger, err)
	}

	// insert new run in storage.
	run, err := p.deps.Storage.StartRun(ctx, job.ID, int32(source.Count()))
	if err != nil {
		p.leave(job.ID, &logger)
		return p.fail(job, &logger, fmt.Errorf("can't start run: %w", err))
	}

	stats, err := p.publish(ctx, job, source, &logger)
	p.leave(job.ID, &logger)

	return p.finishRun(ctx, job, run, stats, err, &logger)
}

// admit enters the admission queue and returns once job is first in line.
func (p *Publisher) admit(ctx context.Context, job models.Job, articles int, logger *zerolog.Logger) error {
	p.transition(job.ID, logger, StateQueued)

	for {
		entries, err := p.deps.Queue.Enter(ctx, job.ID, articles)
		if err != nil {
			return fmt.Errorf("can't enter admission queue: %w", err)
		}

		_, position, ok := lo.FindIndexOf(entries, func(e models.QueueEntry) bool { return e.ID == job.ID })
		if !ok {
			return fmt.Errorf("can't enter admission queue: job %s missing after enter", job.ID)
		}
		if position == 0 {
			return nil
		}

		queued := &QueuedError{
			Position: position + 1,
			Wait:     p.deps.Queue.EstimateWait(entries, position),
		}
		logger.Info().Int("position", queued.Position).Dur("wait", queued.Wait).Msg("job is queued")

		if !p.cfg.WaitInQueue {
			p.leave(job.ID, logger)
			return queued
		}

		p.deps.JobLog.Append(job.ID, fmt.Sprintf("waiting in queue at position #%d, estimated wait %s",
			queued.Position, queued.Wait.Round(time.Second)))

		if err := p.clock.Sleep(ctx, p.cfg.QueuePollInterval); err != nil {
			p.leave(job.ID, logger)
			return err
		}
	}
}

// publish processes listings batch by batch starting after the checkpoint.
func (p *Publisher) publish(
	ctx context.Context,
	job models.Job,
	source *models.ListingSource,
	logger *zerolog.Logger,
) (Stats, error) {
	var stats Stats

	resume, err := p.deps.Checkpoints.Load(ctx, job.ID, source.Digest())
	if err != nil {
		logger.Warn().Err(err).Msg("can't load checkpoint, starting from the beginning")
		resume = models.StartPosition
	}

	if resume == models.StartPosition {
		p.deps.JobLog.Reset(job.ID)
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("publishing %d listings", source.Count()))
	} else {
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("resuming after batch %d, row %d", resume.Batch+1, resume.Row+1))
	}

	batches := lo.Chunk(source.Listings(), p.cfg.BatchSize)

	var browser Browser
	defer func() {
		p.closeBrowser(browser, logger)
	}()

	for batchIndex, batch := range batches {
		if resume.Covers(batchIndex, len(batch)-1) {
			stats.Skipped += int32(len(batch))
			continue
		}

		if err := ctx.Err(); err != nil {
			return stats, err
		}

		p.transition(job.ID, logger, StateProcessingBatch)
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("batch %d/%d started", batchIndex+1, len(batches)))

		// the running job keeps its queue entry fresh so that it is never pruned as stale.
		if _, err := p.deps.Queue.Enter(ctx, job.ID, source.Count()); err != nil {
			logger.Warn().Err(err).Msg("can't refresh admission queue entry")
		}

		if browser == nil {
			browser, err = p.openSession(ctx, job, logger)
			if err != nil {
				return stats, err
			}
		}

		if err := p.runBatch(ctx, job, source.Digest(), browser, batchIndex, batch, resume, &stats, logger); err != nil {
			return stats, err
		}

		p.transition(job.ID, logger, StateBatchDone)
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("batch %d/%d finished", batchIndex+1, len(batches)))

		if batchIndex == len(batches)-1 {
			break
		}

		if p.cfg.RestartEvery > 0 && (batchIndex+1)%p.cfg.RestartEvery == 0 {
			p.closeBrowser(browser, logger)
			browser = nil
			p.deps.JobLog.Append(job.ID, "restarting browser")
		}

		if err := p.clock.Sleep(ctx, p.cfg.BatchDelay); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// runBatch publishes rows of one batch not covered by resume, checkpointing each row that was attempted.
func (p *Publisher) runBatch(
	ctx context.Context,
	job models.Job,
	digest string,
	browser Browser,
	batchIndex int,
	batch []models.Listing,
	resume models.Position,
	stats *Stats,
	logger *zerolog.Logger,
) error {
	batchCtx := ctx
	if p.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, p.cfg.BatchTimeout)
		defer cancel()
	}

	p.transition(job.ID, logger, StateRowLoop)

	for rowIndex, listing := range batch {
		if resume.Covers(batchIndex, rowIndex) {
			stats.Skipped++
			continue
		}

		if err := batchCtx.Err(); err != nil {
			return batchError(ctx, err)
		}

		form := NewForm(listing, job.Config)
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("publishing listing %d: %s", listing.Index+1, form.Title))

		outcome, submitted, err := p.publishRow(batchCtx, job, browser, form)
		if !submitted && batchCtx.Err() != nil {
			// the row never reached the site, so it stays unchecked and is retried on resume.
			p.deps.JobLog.Append(job.ID, fmt.Sprintf("listing %d interrupted before submit", listing.Index+1))
			return batchError(ctx, batchCtx.Err())
		}
		stats.record(outcome)
		p.logOutcome(job.ID, listing, form, outcome, err, logger)

		// a submitted row is recorded even when the job is being canceled.
		pos := models.Position{Batch: batchIndex, Row: rowIndex}
		if err := p.deps.Checkpoints.Save(context.WithoutCancel(ctx), job.ID, digest, pos); err != nil {
			logger.Error().Err(err).Int("batch", pos.Batch).Int("row", pos.Row).Msg("can't save checkpoint")
		}

		if err := p.clock.Sleep(batchCtx, p.cfg.RowDelay); err != nil {
			return batchError(ctx, err)
		}
	}

	return nil
}

func (p *Publisher) logOutcome(
	jobID string,
	listing models.Listing,
	form Form,
	outcome Outcome,
	err error,
	logger *zerolog.Logger,
) {
	switch outcome {
	case OutcomePublished:
		p.deps.JobLog.Append(jobID, fmt.Sprintf("listing published: %s", form.Title))
	case OutcomeUnconfirmed:
		p.deps.JobLog.Append(jobID, fmt.Sprintf("listing submitted without confirmation: %s", form.Title))
	default:
		p.deps.JobLog.Append(jobID, fmt.Sprintf("can't publish listing %d: %v", listing.Index+1, err))
		logger.Warn().Err(err).Int("row", listing.Index).Msg("can't publish listing")
	}
}

// batchError tells job cancellation from batch timeout.
func batchError(parent context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}

	return fmt.Errorf("%w: %w", ErrBatchTimeout, err)
}

func (p *Publisher) leave(jobID string, logger *zerolog.Logger) {
	if err := p.deps.Queue.Leave(context.Background(), jobID); err != nil {
		logger.Error().Err(err).Msg("can't leave admission queue")
	}
}

func (p *Publisher) fail(job models.Job, logger *zerolog.Logger, err error) error {
	p.transition(job.ID, logger, StateFailed)
	p.deps.JobLog.Append(job.ID, fmt.Sprintf("publishing stopped: %v", err))
	logger.Error().Err(err).Msg("publishing failed")

	return err
}

func (p *Publisher) finishRun(
	ctx context.Context,
	job models.Job,
	run *models.Run,
	stats Stats,
	status error,
	logger *zerolog.Logger,
) error {
	ctx = context.WithoutCancel(ctx)

	if status != nil {
		run.StatusMessage = lo.ToPtr(status.Error())
	}
	now := p.clock.Now()
	run.IsSuccess = lo.ToPtr(status == nil)
	run.FinishedAt = &now
	run.PublishedListings = lo.ToPtr(stats.Published)
	run.UnconfirmedListings = lo.ToPtr(stats.Unconfirmed)
	run.FailedListings = lo.ToPtr(stats.Failed)
	run.SkippedListings = lo.ToPtr(stats.Skipped)

	if attempted := stats.Attempted(); attempted > 0 {
		if err := p.deps.Storage.AddImported(ctx, job.ID, now, attempted); err != nil {
			logger.Error().Err(err).Int32("attempted", attempted).Msg("can't count imported listings")
		}
	}

	err := p.deps.Storage.FinishRun(ctx, run)

	if status != nil {
		_ = p.fail(job, logger, status)
	} else {
		p.transition(job.ID, logger, StateComplete)
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("all listings processed: %d published, %d unconfirmed, %d failed",
			stats.Published, stats.Unconfirmed, stats.Failed))
	}

	if err != nil && status == nil {
		return fmt.Errorf("can't finish publishing: %w", err)
	}

	if err != nil && status != nil {
		return fmt.Errorf("can't finish failed publishing: %w (fail reason: %w)", err, status)
	}

	return status
}

func (p *Publisher) transition(jobID string, logger *zerolog.Logger, state State) {
	p.states.Store(jobID, state)
	logger.Debug().Stringer("state", state).Msg("job state changed")
}

// WithClock sets Publisher's custom Clock.
func WithClock(c Clock) Option {
	return func(p *Publisher) {
		p.clock = c
	}
}
