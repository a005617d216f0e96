package joblog_test

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/joblog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)

func newSink(t *testing.T, ops ...joblog.Option) *joblog.Sink {
	t.Helper()
	logger := zerolog.Nop()
	ops = append([]joblog.Option{joblog.WithClock(func() time.Time { return fixedTime })}, ops...)

	return joblog.New(t.TempDir(), &logger, ops...)
}

func TestUnitSinkAppendTail(t *testing.T) {
	t.Parallel()

	sink := newSink(t)

	sink.Append("job", "first")
	sink.Append("job", "second")
	sink.Append("job", "third")
	sink.Append("other", "unrelated")

	lines, err := sink.Tail("job", 2)
	require.NoError(t, err, "should read log")
	assert.Equal(t, []string{
		"[2024-05-01T09:30:15] second",
		"[2024-05-01T09:30:15] third",
	}, lines, "should return last lines in order")

	data, err := os.ReadFile(sink.Path("job"))
	require.NoError(t, err, "should read log file")
	assert.Equal(t,
		"[2024-05-01T09:30:15] first\n[2024-05-01T09:30:15] second\n[2024-05-01T09:30:15] third\n",
		string(data),
		"should write one line per message",
	)

	lines, err = sink.Tail("missing", 10)
	require.NoError(t, err, "should not fail on missing log")
	assert.Empty(t, lines, "should return no lines")
}

func TestUnitSinkReset(t *testing.T) {
	t.Parallel()

	sink := newSink(t)
	sink.Append("job", "old")
	sink.Reset("job")
	sink.Append("job", "new")

	lines, err := sink.Tail("job", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"[2024-05-01T09:30:15] new"}, lines, "should drop lines written before reset")
}

func TestUnitSinkRotation(t *testing.T) {
	t.Parallel()

	// every line is 29 bytes long.
	sink := newSink(t, joblog.WithMaxBytes(100))
	for i := range 5 {
		sink.Append("job", fmt.Sprintf("line %d", i))
	}

	_, err := os.Stat(sink.Path("job") + ".1")
	require.NoError(t, err, "should rotate log")

	lines, err := sink.Tail("job", 10)
	require.NoError(t, err)
	require.Len(t, lines, 5, "should read rotated and current files")
	assert.Equal(t, "[2024-05-01T09:30:15] line 0", lines[0], "should keep order across files")
	assert.Equal(t, "[2024-05-01T09:30:15] line 4", lines[4], "should keep order across files")
}

func TestUnitSinkConcurrentAppend(t *testing.T) {
	t.Parallel()

	sink := newSink(t)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Append("job", fmt.Sprintf("message %d", i))
		}()
	}
	wg.Wait()

	lines, err := sink.Tail("job", 100)
	require.NoError(t, err)
	assert.Len(t, lines, 50, "should not lose or interleave lines")
}

func TestUnitSinkSubscribe(t *testing.T) {
	t.Parallel()

	sink := newSink(t)
	lines, cancel := sink.Subscribe("job")

	sink.Append("other", "ignored")
	sink.Append("job", "hello")

	select {
	case line := <-lines:
		assert.Equal(t, "[2024-05-01T09:30:15] hello", line, "should receive job's line")
	case <-time.After(time.Second):
		t.Fatal("should receive line")
	}

	cancel()
	cancel()
	_, open := <-lines
	assert.False(t, open, "should close channel on cancel")

	sink.Append("job", "after cancel")
}
