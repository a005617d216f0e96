package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/decoder"
	"github.com/MichalMitros/evend-publisher/internal/handler"
	"github.com/MichalMitros/evend-publisher/internal/handler/mocks"
	"github.com/MichalMitros/evend-publisher/internal/launcher"
	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/joblog"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/platform/queue"
	"github.com/MichalMitros/evend-publisher/internal/platform/storage"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const csvContent = "titre,prix\nLampe,10\nChaise,20\n"

var configJSON = `{"credentials":{"email":"seller@example.com","password":"secret"},"shipping":{"pickupEnabled":false,"perItemFee":5}}`

type api struct {
	launcher  *mocks.Launcher
	runs      *mocks.Runs
	jobLog    *joblog.Sink
	queue     *queue.Queue
	uploadDir string
	router    http.Handler
}

func newAPI(t *testing.T, maxUpload int64) *api {
	t.Helper()

	logger := zerolog.Nop()
	dir := t.TempDir()
	a := &api{
		launcher:  mocks.NewLauncher(t),
		runs:      mocks.NewRuns(t),
		jobLog:    joblog.New(dir, &logger),
		queue:     queue.New(filepath.Join(dir, "queue.json"), &logger),
		uploadDir: t.TempDir(),
	}
	a.router = handler.NewHTTPHandler(a.launcher, a.jobLog, a.queue, a.runs, a.uploadDir, maxUpload, &logger).Router()

	return a
}

func (a *api) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

func uploadRequest(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if file != "" {
		part, err := writer.CreateFormFile("csv_file", "listings.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "should return json")

	return body
}

func TestUnitCreateJob(t *testing.T) {
	a := newAPI(t, 1<<20)

	var uploaded string
	a.launcher.On("Launch", mock.Anything, mock.MatchedBy(func(job models.Job) bool {
		content, err := os.ReadFile(job.FilePath)
		uploaded = job.FilePath
		return err == nil &&
			string(content) == csvContent &&
			job.ID == "tenant-1" &&
			job.RemoveFile &&
			job.Config.Credentials.Email == "seller@example.com" &&
			job.Config.Shipping.PerItemFee == 5
	})).Return(&launcher.Handle{JobID: "tenant-1", Listings: 2}, nil).Once()
	a.launcher.On("Status", "tenant-1").Return(launcher.Status{JobID: "tenant-1", State: "queued", Running: true}).Once()

	rec := a.do(uploadRequest(t, map[string]string{"tenant_id": "tenant-1", "config": configJSON}, csvContent))

	require.Equal(t, http.StatusAccepted, rec.Code, "should accept job")
	assert.JSONEq(t, `{"jobId":"tenant-1","state":"queued","running":true,"listings":2}`, rec.Body.String(), "should return job status")
	assert.Equal(t, a.uploadDir, filepath.Dir(uploaded), "should store upload in upload directory")
	assert.Equal(t, ".csv", filepath.Ext(uploaded), "should store upload as csv")
}

func TestUnitCreateJobErrors(t *testing.T) {
	tests := map[string]struct {
		fields     map[string]string
		file       string
		maxUpload  int64
		launchErr  error
		wantStatus int
	}{
		"missing tenant": {
			fields:     map[string]string{"config": configJSON},
			file:       csvContent,
			wantStatus: http.StatusBadRequest,
		},
		"invalid config": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": "{"},
			file:       csvContent,
			wantStatus: http.StatusBadRequest,
		},
		"missing file": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			wantStatus: http.StatusBadRequest,
		},
		"upload too large": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       strings.Repeat("a", 4096),
			maxUpload:  1024,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		"missing credentials": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       csvContent,
			launchErr:  platform.ErrMissingCredentials,
			wantStatus: http.StatusBadRequest,
		},
		"empty file": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       csvContent,
			launchErr:  fmt.Errorf("can't read listings file: %w", decoder.ErrEmptyFile),
			wantStatus: http.StatusBadRequest,
		},
		"already running": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       csvContent,
			launchErr:  platform.ErrAlreadyRunning,
			wantStatus: http.StatusConflict,
		},
		"too many listings": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       csvContent,
			launchErr:  launcher.ErrFileTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		"daily quota": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       csvContent,
			launchErr:  launcher.ErrQuotaExceeded,
			wantStatus: http.StatusTooManyRequests,
		},
		"unexpected error": {
			fields:     map[string]string{"tenant_id": "tenant-1", "config": configJSON},
			file:       csvContent,
			launchErr:  assert.AnError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a := newAPI(t, lo.Ternary(tt.maxUpload > 0, tt.maxUpload, 1<<20))
			if tt.launchErr != nil {
				a.launcher.On("Launch", mock.Anything, mock.Anything).Return(nil, tt.launchErr).Once()
			}

			rec := a.do(uploadRequest(t, tt.fields, tt.file))

			require.Equal(t, tt.wantStatus, rec.Code, "should return correct status")
			errBody, ok := decodeBody(t, rec)["error"].(map[string]any)
			require.True(t, ok, "should return error body")
			assert.NotEmpty(t, errBody["message"], "should return error message")
		})
	}
}

func TestUnitGetJob(t *testing.T) {
	createdAt := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		run        *models.Run
		runErr     error
		wantStatus int
		wantBody   string
	}{
		"with last run": {
			run: &models.Run{
				ID:                7,
				TenantID:          "tenant-1",
				CreatedAt:         createdAt,
				TotalListings:     45,
				PublishedListings: lo.ToPtr(int32(44)),
				FailedListings:    lo.ToPtr(int32(1)),
			},
			wantStatus: http.StatusOK,
			wantBody: `{"jobId":"tenant-1","state":"row_loop","running":true,
				"lastRun":{"id":7,"createdAt":"2024-05-01T10:00:00Z","total":45,"published":44,"failed":1}}`,
		},
		"without runs": {
			runErr:     storage.ErrRunNotFound,
			wantStatus: http.StatusOK,
			wantBody:   `{"jobId":"tenant-1","state":"row_loop","running":true}`,
		},
		"storage error": {
			runErr:     assert.AnError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			a := newAPI(t, 1<<20)
			a.launcher.On("Status", "tenant-1").Return(launcher.Status{JobID: "tenant-1", State: "row_loop", Running: true}).Once()
			a.runs.On("LatestRun", mock.Anything, "tenant-1").Return(tt.run, tt.runErr).Once()

			rec := a.do(httptest.NewRequest(http.MethodGet, "/jobs/tenant-1", nil))

			require.Equal(t, tt.wantStatus, rec.Code, "should return correct status")
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String(), "should return job status")
			}
		})
	}
}

func TestUnitJobLog(t *testing.T) {
	a := newAPI(t, 1<<20)
	for i := range 60 {
		a.jobLog.Append("tenant-1", fmt.Sprintf("line %d", i))
	}

	tests := map[string]struct {
		query      string
		wantStatus int
		wantLines  int
		wantLast   string
	}{
		"default lines": {
			wantStatus: http.StatusOK,
			wantLines:  50,
			wantLast:   "line 59",
		},
		"custom lines": {
			query:      "?lines=3",
			wantStatus: http.StatusOK,
			wantLines:  3,
			wantLast:   "line 59",
		},
		"more than written": {
			query:      "?lines=1000",
			wantStatus: http.StatusOK,
			wantLines:  60,
			wantLast:   "line 59",
		},
		"invalid lines": {
			query:      "?lines=abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := a.do(httptest.NewRequest(http.MethodGet, "/jobs/tenant-1/log"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rec.Code, "should return correct status")
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				JobID string   `json:"jobId"`
				Lines []string `json:"lines"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "tenant-1", body.JobID, "should return job ID")
			require.Len(t, body.Lines, tt.wantLines, "should return requested number of lines")
			assert.True(t, strings.HasSuffix(body.Lines[len(body.Lines)-1], tt.wantLast), "should end with the newest line")
		})
	}
}

func TestUnitJobLogUnknownJob(t *testing.T) {
	a := newAPI(t, 1<<20)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/jobs/unknown/log", nil))

	require.Equal(t, http.StatusOK, rec.Code, "should return empty log")
	assert.JSONEq(t, `{"jobId":"unknown","lines":[]}`, rec.Body.String(), "should return no lines")
}

func TestUnitJobLogStream(t *testing.T) {
	a := newAPI(t, 1<<20)
	server := httptest.NewServer(a.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/jobs/tenant-1/log/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "should connect to stream")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode, "should open stream")
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"), "should stream events")

	a.jobLog.Append("tenant-1", "listing published: Lampe")

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err, "should receive event")
	assert.True(t, strings.HasPrefix(line, "data: ["), "should send log line as event data")
	assert.True(t, strings.HasSuffix(line, "] listing published: Lampe\n"), "should send appended line")
}

func TestUnitQueue(t *testing.T) {
	a := newAPI(t, 1<<20)
	_, err := a.queue.Enter(context.Background(), "tenant-1", 20)
	require.NoError(t, err)
	_, err = a.queue.Enter(context.Background(), "tenant-2", 5)
	require.NoError(t, err)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/queue", nil))

	require.Equal(t, http.StatusOK, rec.Code, "should return queue")

	var body struct {
		Jobs []struct {
			ID                   string `json:"id"`
			Articles             int    `json:"articles"`
			Position             int    `json:"position"`
			EstimatedWaitSeconds int64  `json:"estimatedWaitSeconds"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 2, "should list queued jobs")
	assert.Equal(t, "tenant-1", body.Jobs[0].ID, "should keep queue order")
	assert.Equal(t, int64(0), body.Jobs[0].EstimatedWaitSeconds, "first job shouldn't wait")
	assert.Equal(t, 1, body.Jobs[1].Position, "should return position")
	assert.Equal(t, int64(60), body.Jobs[1].EstimatedWaitSeconds, "should estimate wait from articles ahead")
}

func TestUnitHealthz(t *testing.T) {
	a := newAPI(t, 1<<20)

	rec := a.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code, "should be healthy")
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String(), "should return ok")
}
