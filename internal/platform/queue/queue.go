// Package queue implements the admission queue shared by all publisher processes on a host.
//
// The queue is a JSON array of entries in a single file. Every mutation runs under an
// exclusive lock on a sibling lock file and replaces the file atomically.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/fsutil"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultArticleCost is estimated publishing time of one article.
const DefaultArticleCost = 3 * time.Second

// Option is custom configuration of Queue.
type Option func(q *Queue)

// Queue is a file-backed FIFO of publishing jobs.
type Queue struct {
	path        string
	lockPath    string
	articleCost time.Duration
	staleAfter  time.Duration
	now         func() time.Time
	logger      *zerolog.Logger
}

// New returns new Queue stored at path.
func New(path string, logger *zerolog.Logger, ops ...Option) *Queue {
	q := &Queue{
		path:        path,
		lockPath:    path + ".lock",
		articleCost: DefaultArticleCost,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}

	for _, op := range ops {
		op(q)
	}

	return q
}

// Enter appends jobID to the queue unless it is already present and returns the queue content.
// Entering again refreshes the entry without changing its place.
func (q *Queue) Enter(ctx context.Context, jobID string, articles int) ([]models.QueueEntry, error) {
	return q.update(ctx, func(entries []models.QueueEntry) []models.QueueEntry {
		now := q.now()
		_, ix, ok := lo.FindIndexOf(entries, func(e models.QueueEntry) bool { return e.ID == jobID })
		if ok {
			entries[ix].UpdatedAt = now
			return entries
		}

		return append(entries, models.QueueEntry{
			ID:         jobID,
			Articles:   articles,
			EnqueuedAt: now,
			UpdatedAt:  now,
		})
	})
}

// Leave removes every entry of jobID. Leaving a queue without the job is a no-op.
func (q *Queue) Leave(ctx context.Context, jobID string) error {
	_, err := q.update(ctx, func(entries []models.QueueEntry) []models.QueueEntry {
		return lo.Filter(entries, func(e models.QueueEntry, _ int) bool { return e.ID != jobID })
	})

	return err
}

// Position returns zero-based place of jobID in the queue. It reports false if the job is not queued.
func (q *Queue) Position(ctx context.Context, jobID string) (int, bool, error) {
	entries, err := q.Snapshot(ctx)
	if err != nil {
		return 0, false, err
	}

	_, ix, ok := lo.FindIndexOf(entries, func(e models.QueueEntry) bool { return e.ID == jobID })

	return ix, ok, nil
}

// Snapshot returns current queue content.
func (q *Queue) Snapshot(ctx context.Context) ([]models.QueueEntry, error) {
	return q.update(ctx, nil)
}

// Jobs returns queued jobs with their positions and estimated waits.
func (q *Queue) Jobs(ctx context.Context) ([]models.QueuedJob, error) {
	entries, err := q.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(entries, func(e models.QueueEntry, ix int) models.QueuedJob {
		return models.QueuedJob{
			QueueEntry:    e,
			Position:      ix,
			EstimatedWait: q.EstimateWait(entries, ix),
		}
	}), nil
}

// EstimateWait returns estimated wait of the entry at position.
func (q *Queue) EstimateWait(entries []models.QueueEntry, position int) time.Duration {
	return models.EstimateWait(entries, position, q.articleCost)
}

// update applies fn to the queue under the lock. A nil fn only reads.
func (q *Queue) update(
	ctx context.Context,
	fn func([]models.QueueEntry) []models.QueueEntry,
) (entries []models.QueueEntry, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock, err := fsutil.Lock(q.lockPath)
	if err != nil {
		return nil, fmt.Errorf("can't lock queue: %w", err)
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}()

	entries = q.load()
	pruned := q.prune(entries)
	changed := len(pruned) != len(entries)
	entries = pruned

	if fn != nil {
		entries = fn(entries)
		changed = true
	}

	if !changed {
		return entries, nil
	}

	if err := q.save(entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (q *Queue) load() []models.QueueEntry {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.QueueEntry{}
	}
	if err != nil {
		q.logger.Warn().Err(err).Str("path", q.path).Msg("can't read queue file, treating it as empty")
		return []models.QueueEntry{}
	}

	var entries []models.QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		q.logger.Warn().Err(err).Str("path", q.path).Msg("queue file is corrupted, treating it as empty")
		return []models.QueueEntry{}
	}

	return entries
}

func (q *Queue) save(entries []models.QueueEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("can't encode queue: %w", err)
	}

	if err := fsutil.WriteFileAtomic(q.path, data, 0o644); err != nil {
		return fmt.Errorf("can't save queue: %w", err)
	}

	return nil
}

// prune drops entries not refreshed within staleAfter, left behind by crashed processes.
func (q *Queue) prune(entries []models.QueueEntry) []models.QueueEntry {
	if q.staleAfter <= 0 {
		return entries
	}

	deadline := q.now().Add(-q.staleAfter)

	return lo.Filter(entries, func(e models.QueueEntry, _ int) bool {
		lastSeen := e.UpdatedAt
		if lastSeen.IsZero() {
			lastSeen = e.EnqueuedAt
		}
		if lastSeen.IsZero() || !lastSeen.Before(deadline) {
			return true
		}

		q.logger.Warn().Str("jobId", e.ID).Time("lastSeen", lastSeen).Msg("dropping stale queue entry")
		return false
	})
}

// WithArticleCost sets estimated publishing time of one article.
func WithArticleCost(d time.Duration) Option {
	return func(q *Queue) {
		q.articleCost = d
	}
}

// WithStaleAfter drops entries not refreshed for d. Zero keeps entries forever.
func WithStaleAfter(d time.Duration) Option {
	return func(q *Queue) {
		q.staleAfter = d
	}
}

// WithClock sets Queue's custom time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}
