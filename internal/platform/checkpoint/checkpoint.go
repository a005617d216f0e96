// Package checkpoint persists the last attempted row of each publishing job.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MichalMitros/evend-publisher/internal/platform/fsutil"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/rs/zerolog"
)

// ErrRegression is an error returned when saved position is earlier than the stored one.
var ErrRegression = errors.New("checkpoint can't move backwards")

// ErrCorrupted is an error returned when stored checkpoint can't be parsed.
var ErrCorrupted = errors.New("checkpoint file is corrupted")

// Store keeps one checkpoint file per job in a directory.
//
// A checkpoint is bound to the digest of the listings file it was written for,
// so a different file of the same job starts from the beginning.
type Store struct {
	dir    string
	logger *zerolog.Logger
}

// New returns new Store keeping checkpoints in dir.
func New(dir string, logger *zerolog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Load returns job's checkpoint for the file with digest.
// It returns models.StartPosition when there is none.
func (s *Store) Load(_ context.Context, jobID, digest string) (models.Position, error) {
	pos, storedDigest, err := s.read(jobID)
	if err != nil {
		return models.StartPosition, err
	}

	if storedDigest != digest {
		if storedDigest != "" {
			s.logger.Info().Str("jobId", jobID).Msg("checkpoint belongs to another file, starting over")
		}
		return models.StartPosition, nil
	}

	return pos, nil
}

// Save stores pos as job's checkpoint for the file with digest.
func (s *Store) Save(_ context.Context, jobID, digest string, pos models.Position) error {
	current, storedDigest, err := s.read(jobID)
	if err != nil && !errors.Is(err, ErrCorrupted) {
		return err
	}

	if err == nil && storedDigest == digest && pos.Before(current) {
		return fmt.Errorf("%w: %d,%d is before %d,%d", ErrRegression, pos.Batch, pos.Row, current.Batch, current.Row)
	}

	line := fmt.Sprintf("%d,%d,%s\n", pos.Batch, pos.Row, digest)
	if err := fsutil.WriteFileAtomic(s.path(jobID), []byte(line), 0o644); err != nil {
		return fmt.Errorf("can't save checkpoint: %w", err)
	}

	return nil
}

// read returns stored position and digest. An empty digest means no checkpoint.
func (s *Store) read(jobID string) (models.Position, string, error) {
	data, err := os.ReadFile(s.path(jobID))
	if errors.Is(err, os.ErrNotExist) {
		return models.StartPosition, "", nil
	}
	if err != nil {
		return models.StartPosition, "", fmt.Errorf("can't read checkpoint: %w", err)
	}

	fields := strings.SplitN(strings.TrimSpace(string(data)), ",", 3)
	if len(fields) != 3 || fields[2] == "" {
		return models.StartPosition, "", ErrCorrupted
	}

	batch, batchErr := strconv.Atoi(fields[0])
	row, rowErr := strconv.Atoi(fields[1])
	if batchErr != nil || rowErr != nil || batch < 0 || row < -1 {
		return models.StartPosition, "", ErrCorrupted
	}

	return models.Position{Batch: batch, Row: row}, fields[2], nil
}

func (s *Store) path(jobID string) string {
	return filepath.Join(s.dir, "progress_"+fsutil.SafeName(jobID)+".txt")
}
