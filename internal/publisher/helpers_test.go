package publisher_test

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/decoder"
	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/checkpoint"
	"github.com/MichalMitros/evend-publisher/internal/platform/fsutil"
	"github.com/MichalMitros/evend-publisher/internal/platform/joblog"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/platform/queue"
	"github.com/MichalMitros/evend-publisher/internal/platform/session"
	"github.com/MichalMitros/evend-publisher/internal/publisher"
	"github.com/MichalMitros/evend-publisher/internal/publisher/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	tenantID    = "tenant-1"
	validCookie = "valid-session"
)

var now = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

// submission is a listing form as the site received it.
type submission struct {
	Fields map[string]string
	Images []string
}

// fakeSite plays the e-Vend server shared by every browser of a test.
type fakeSite struct {
	mu          sync.Mutex
	site        publisher.Site
	fileInputs  int
	loginFails  bool
	missing     map[string]bool
	confirm     func(n int) bool
	onSubmit    func(n int)
	onFormLoad  func(n int)
	formLoads   int
	logins      int
	submissions []submission
	browsers    []*fakeBrowser
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		site:       publisher.DefaultSite(),
		fileInputs: 3,
		missing:    map[string]bool{},
	}
}

// NewBrowser launches a fake browser with an empty cookie jar.
func (s *fakeSite) NewBrowser(context.Context) (publisher.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &fakeBrowser{site: s, fields: map[string]string{}}
	s.browsers = append(s.browsers, b)

	return b, nil
}

func (s *fakeSite) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := make([]string, 0, len(s.submissions))
	for _, sub := range s.submissions {
		titles = append(titles, sub.Fields["#titre"])
	}

	return titles
}

type fakeBrowser struct {
	site    *fakeSite
	url     string
	cookies []models.Cookie
	fields  map[string]string
	images  []string
	closed  bool
}

func (b *fakeBrowser) authenticated() bool {
	for _, c := range b.cookies {
		if c.Value == validCookie {
			return true
		}
	}

	return false
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	if url == b.site.site.NewListingURL {
		b.site.mu.Lock()
		n := b.site.formLoads
		b.site.formLoads++
		hook := b.site.onFormLoad
		b.site.mu.Unlock()

		if hook != nil {
			hook(n)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.url = url
	if url == b.site.site.NewListingURL {
		b.fields = map[string]string{}
		b.images = nil
	}

	return nil
}

func (b *fakeBrowser) WaitFor(_ context.Context, selector string, _ time.Duration) (bool, error) {
	b.site.mu.Lock()
	defer b.site.mu.Unlock()

	sel := b.site.site.Selectors
	if b.site.missing[selector] {
		return false, nil
	}

	switch selector {
	case sel.LoginEmail:
		return b.url == b.site.site.LoginURL, nil
	case sel.Dashboard:
		return b.url == b.site.site.LoginURL && b.authenticated(), nil
	case sel.FormReady:
		return b.url == b.site.site.NewListingURL && b.authenticated(), nil
	case sel.Success:
		n := len(b.site.submissions) - 1
		return b.site.confirm == nil || b.site.confirm(n), nil
	default:
		return false, nil
	}
}

func (b *fakeBrowser) Fill(_ context.Context, selector, value string, _ bool) error {
	if b.site.missing[selector] {
		return platform.ErrElementNotFound
	}
	b.fields[selector] = value

	return nil
}

func (b *fakeBrowser) CheckRadio(_ context.Context, name, value string) error {
	b.fields["radio:"+name] = value
	return nil
}

func (b *fakeBrowser) FileInputs(context.Context, string) (int, error) {
	return b.site.fileInputs, nil
}

func (b *fakeBrowser) Upload(_ context.Context, _ string, index int, path string) error {
	if index >= b.site.fileInputs {
		return platform.ErrElementNotFound
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b.images = append(b.images, string(content))

	return nil
}

func (b *fakeBrowser) Click(_ context.Context, selector string) error {
	sel := b.site.site.Selectors

	switch selector {
	case sel.LoginSubmit:
		b.site.mu.Lock()
		b.site.logins++
		fails := b.site.loginFails
		b.site.mu.Unlock()

		if !fails && b.fields[sel.LoginPassword] != "" {
			b.cookies = []models.Cookie{{Name: "sid", Value: validCookie, Domain: ".e-vend.ca", Path: "/"}}
		}
	case sel.Submit:
		b.site.mu.Lock()
		b.site.submissions = append(b.site.submissions, submission{
			Fields: maps.Clone(b.fields),
			Images: b.images,
		})
		n := len(b.site.submissions) - 1
		hook := b.site.onSubmit
		b.site.mu.Unlock()

		if hook != nil {
			hook(n)
		}
	}

	return nil
}

func (b *fakeBrowser) Cookies(context.Context) ([]models.Cookie, error) {
	return b.cookies, nil
}

func (b *fakeBrowser) SetCookies(_ context.Context, cookies []models.Cookie) error {
	b.cookies = cookies
	return nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

// fakeClock returns a fixed time and doesn't sleep.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
	hook   func(n int)
}

func (c *fakeClock) Now() time.Time {
	return now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps) - 1
	hook := c.hook
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	return ctx.Err()
}

// env is a publisher wired to file stores in a temporary directory.
type env struct {
	dir         string
	tempDir     string
	site        *fakeSite
	clock       *fakeClock
	storage     *mocks.Storage
	fetcher     *mocks.Fetcher
	queue       *queue.Queue
	checkpoints *checkpoint.Store
	sessions    *session.Store
	jobLog      *joblog.Sink
	cfg         publisher.Config
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dir := t.TempDir()
	logger := zerolog.Nop()
	cfg := publisher.DefaultConfig()
	cfg.TempDir = t.TempDir()

	return &env{
		dir:         dir,
		tempDir:     cfg.TempDir,
		site:        newFakeSite(),
		clock:       &fakeClock{},
		storage:     mocks.NewStorage(t),
		fetcher:     mocks.NewFetcher(t),
		queue:       queue.New(filepath.Join(dir, "queue.json"), &logger),
		checkpoints: checkpoint.New(dir, &logger),
		sessions:    session.New(dir, &logger),
		jobLog:      joblog.New(dir, &logger),
		cfg:         cfg,
	}
}

func (e *env) publisher() *publisher.Publisher {
	logger := zerolog.Nop()

	return publisher.NewPublisher(publisher.Deps{
		Decoder:     decoder.Decoder{},
		Queue:       e.queue,
		Checkpoints: e.checkpoints,
		Sessions:    e.sessions,
		Browsers:    e.site,
		Fetcher:     e.fetcher,
		Storage:     e.storage,
		JobLog:      e.jobLog,
	}, e.cfg, &logger, publisher.WithClock(e.clock))
}

func (e *env) job(t *testing.T, rows ...string) models.Job {
	t.Helper()

	path := filepath.Join(e.dir, "listings.csv")
	content := "titre,prix,stock,photo_defaut\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return models.Job{
		ID:       tenantID,
		FilePath: path,
		Config: models.JobConfig{
			Credentials: models.Credentials{Email: "seller@example.com", Password: "secret"},
			Shipping:    models.Shipping{PickupEnabled: true, PickupLocation: "Montréal", PerItemFee: 5},
		},
	}
}

func (e *env) log(t *testing.T) []string {
	t.Helper()

	lines, err := e.jobLog.Tail(tenantID, 10000)
	require.NoError(t, err)

	return lines
}

func (e *env) checkpoint(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(e.dir, "progress_"+fsutil.SafeName(tenantID)+".txt"))
	require.NoError(t, err)

	parts := strings.SplitN(string(data), ",", 3)
	require.Len(t, parts, 3, "checkpoint should hold batch, row and digest")

	return parts[0] + "," + parts[1]
}

func (e *env) expectRuns(times int) {
	e.storage.On("StartRun", mock.Anything, tenantID, mock.AnythingOfType("int32")).
		Return(func(_ context.Context, tenant string, total int32) (*models.Run, error) {
			return &models.Run{ID: 1, TenantID: tenant, TotalListings: total}, nil
		}).Times(times)
}

func listingRows(n int) []string {
	rows := make([]string, 0, n)
	for i := range n {
		rows = append(rows, fmt.Sprintf("Listing %d,%d.50,1,", i, i))
	}

	return rows
}

func listingTitles(from, to int) []string {
	titles := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		titles = append(titles, fmt.Sprintf("Listing %d", i))
	}

	return titles
}

func countContaining(lines []string, substr string) int {
	count := 0
	for _, line := range lines {
		if strings.Contains(line, substr) {
			count++
		}
	}

	return count
}

func countSuffix(lines []string, suffix string) int {
	count := 0
	for _, line := range lines {
		if strings.HasSuffix(line, suffix) {
			count++
		}
	}

	return count
}
