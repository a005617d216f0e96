package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MichalMitros/evend-publisher/cmd/publisher/config"
	"github.com/MichalMitros/evend-publisher/internal/publisher"
	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitParseDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/evend")

	var cfg config.Config
	require.NoError(t, env.Parse(&cfg), "shouldn't return any error")

	pub := cfg.PublisherConfig(publisher.DefaultSite())
	assert.Equal(t, publisher.DefaultConfig(), pub, "defaults should match publisher defaults")

	assert.Equal(t, 500, cfg.LauncherLimits().MaxPerFile, "should limit listings per file")
	assert.Equal(t, 2000, cfg.LauncherLimits().MaxPerDay, "should limit listings per day")
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge, "should keep sessions for a day")
	assert.Equal(t, 3*time.Second, cfg.Queue.ArticleCost, "should estimate 3s per article")
	assert.Equal(t, 5*time.Second, cfg.ImageTimeout, "should time out image downloads")
	assert.True(t, cfg.Chrome.Headless, "should run headless chrome")
	assert.Empty(t, cfg.RabbitMQ.URL, "shouldn't consume commands by default")
}

func TestUnitParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/evend")
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("ROW_DELAY", "500ms")
	t.Setenv("QUEUE_WAIT", "true")
	t.Setenv("MAX_PER_DAY", "100")

	var cfg config.Config
	require.NoError(t, env.Parse(&cfg), "shouldn't return any error")

	pub := cfg.PublisherConfig(publisher.DefaultSite())
	assert.Equal(t, 10, pub.BatchSize, "should override batch size")
	assert.Equal(t, 500*time.Millisecond, pub.RowDelay, "should override row delay")
	assert.True(t, pub.WaitInQueue, "should wait in queue")
	assert.Equal(t, 100, cfg.LauncherLimits().MaxPerDay, "should override daily limit")
}

func TestUnitParseMissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	var cfg config.Config
	assert.Error(t, env.Parse(&cfg), "should require database URL")
}

func TestUnitLoadSite(t *testing.T) {
	base := publisher.DefaultSite()

	tests := map[string]struct {
		content string
		want    func(s *publisher.Site)
		wantErr bool
	}{
		"overrides selectors": {
			content: "selectors:\n  submit: \"button.publish\"\n  fields:\n    titre: \"input[name=title]\"\n",
			want: func(s *publisher.Site) {
				s.Selectors.Submit = "button.publish"
				s.Selectors.Fields = map[string]string{"titre": "input[name=title]"}
			},
		},
		"overrides urls": {
			content: "login_url: https://staging.e-vend.ca/login\n",
			want: func(s *publisher.Site) {
				s.LoginURL = "https://staging.e-vend.ca/login"
			},
		},
		"invalid yaml": {
			content: "selectors: [",
			wantErr: true,
		},
		"cleared url": {
			content: "login_url: \"\"\n",
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "selectors.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			site, err := config.LoadSite(path, base)

			if tt.wantErr {
				require.Error(t, err, "should return error")
				return
			}
			require.NoError(t, err, "shouldn't return any error")

			want := publisher.DefaultSite()
			tt.want(&want)
			assert.Equal(t, want, site, "should override base site")
		})
	}
}

func TestUnitLoadSiteWithoutFile(t *testing.T) {
	site, err := config.LoadSite("", publisher.DefaultSite())

	require.NoError(t, err, "shouldn't return any error")
	assert.Equal(t, publisher.DefaultSite(), site, "should return base site")

	_, err = config.LoadSite(filepath.Join(t.TempDir(), "missing.yaml"), publisher.DefaultSite())
	assert.Error(t, err, "should fail for missing file")
}
