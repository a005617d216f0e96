// Package joblog writes per-job, human-readable progress logs polled by the web UI.
package joblog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/fsutil"
	"github.com/rs/zerolog"
)

// TimeLayout is the timestamp layout of log lines.
const TimeLayout = "2006-01-02T15:04:05"

// DefaultMaxBytes is the size after which a log file is rotated.
const DefaultMaxBytes = 1 << 20

const subscriberBuffer = 64

// Option is custom configuration of Sink.
type Option func(s *Sink)

// Sink appends timestamped lines to one log file per job.
type Sink struct {
	dir      string
	maxBytes int64
	now      func() time.Time
	logger   *zerolog.Logger

	mu   sync.Mutex
	subs map[string]map[chan string]struct{}
}

// New returns new Sink writing logs to dir.
func New(dir string, logger *zerolog.Logger, ops ...Option) *Sink {
	s := &Sink{
		dir:      dir,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		logger:   logger,
		subs:     make(map[string]map[chan string]struct{}),
	}

	for _, op := range ops {
		op(s)
	}

	return s
}

// Append writes message as a new line of job's log and passes it to subscribers.
// Write failures are reported to the process logger only.
func (s *Sink) Append(jobID, message string) {
	line := fmt.Sprintf("[%s] %s", s.now().Format(TimeLayout), message)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug().Str("jobId", jobID).Msg(message)

	if err := s.write(jobID, line+"\n"); err != nil {
		s.logger.Error().Err(err).Str("jobId", jobID).Msg("can't write job log")
	}

	for ch := range s.subs[jobID] {
		select {
		case ch <- line:
		default:
		}
	}
}

// Reset truncates job's log.
func (s *Sink) Reset(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(jobID)
	for _, p := range []string{path, path + ".1"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error().Err(err).Str("jobId", jobID).Msg("can't reset job log")
		}
	}
}

// Tail returns up to maxLines last lines of job's log, oldest first.
func (s *Sink) Tail(jobID string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(jobID)
	lines := make([]string, 0, maxLines)
	for _, p := range []string{path + ".1", path} {
		fileLines, err := readLines(p)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fileLines...)
		if len(lines) > maxLines {
			lines = lines[len(lines)-maxLines:]
		}
	}

	return lines, nil
}

// Subscribe returns a channel receiving job's new lines and a function cancelling the subscription.
// Lines are dropped for subscribers not keeping up.
func (s *Sink) Subscribe(jobID string) (<-chan string, func()) {
	ch := make(chan string, subscriberBuffer)

	s.mu.Lock()
	if s.subs[jobID] == nil {
		s.subs[jobID] = make(map[chan string]struct{})
	}
	s.subs[jobID][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[jobID], ch)
			if len(s.subs[jobID]) == 0 {
				delete(s.subs, jobID)
			}
			close(ch)
		})
	}
}

// Path returns path of job's log file.
func (s *Sink) Path(jobID string) string {
	return filepath.Join(s.dir, fsutil.SafeName(jobID)+"_import_log.txt")
}

func (s *Sink) write(jobID, line string) error {
	path := s.Path(jobID)

	if s.maxBytes > 0 {
		info, err := os.Stat(path)
		if err == nil && info.Size()+int64(len(line)) > s.maxBytes {
			if err := os.Rename(path, path+".1"); err != nil {
				return fmt.Errorf("can't rotate log: %w", err)
			}
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("can't open log: %w", err)
	}

	if _, err := file.WriteString(line); err != nil {
		_ = file.Close()
		return fmt.Errorf("can't append to log: %w", err)
	}

	return file.Close()
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't open log: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("can't read log: %w", err)
	}

	return lines, nil
}

// WithMaxBytes sets the size after which a log file is rotated. Zero disables rotation.
func WithMaxBytes(n int64) Option {
	return func(s *Sink) {
		s.maxBytes = n
	}
}

// WithClock sets Sink's custom time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}
