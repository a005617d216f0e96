package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/launcher"
	"github.com/MichalMitros/evend-publisher/internal/publisher"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	DataDir       string        `env:"DATA_DIR" envDefault:"./data"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	SelectorsFile string        `env:"SELECTORS_FILE"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	LogMaxBytes   int64         `env:"LOG_MAX_BYTES" envDefault:"1048576"`
	ImageTimeout  time.Duration `env:"IMAGE_TIMEOUT" envDefault:"5s"`

	HTTP      HTTP
	RabbitMQ  RabbitMQ
	Publisher Publisher
	Queue     Queue
	Limits    Limits
	Chrome    Chrome
}

// HTTP holds HTTP API configuration.
type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// RabbitMQ holds RabbitMQ configuration. Commands are not consumed when URL is empty.
type RabbitMQ struct {
	URL        string `env:"RABBITMQ_URL"`
	Exchange   string `env:"RABBITMQ_EXCHANGE" envDefault:"evend-ex"`
	Queue      string `env:"RABBITMQ_QUEUE" envDefault:"evend-publisher.commands"`
	RoutingKey string `env:"RABBITMQ_ROUTING_KEY" envDefault:"evend-publisher.commands"`
}

// Publisher holds publishing pace configuration.
type Publisher struct {
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"20"`
	RestartEvery  int           `env:"RESTART_EVERY" envDefault:"2"`
	RowDelay      time.Duration `env:"ROW_DELAY" envDefault:"2s"`
	BatchDelay    time.Duration `env:"BATCH_DELAY" envDefault:"3s"`
	BatchTimeout  time.Duration `env:"BATCH_TIMEOUT" envDefault:"15m"`
	PageTimeout   time.Duration `env:"PAGE_TIMEOUT" envDefault:"20s"`
	SubmitTimeout time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"20s"`
	ImageWorkers  int           `env:"IMAGE_WORKERS" envDefault:"3"`
}

// Queue holds admission queue configuration.
type Queue struct {
	ArticleCost  time.Duration `env:"QUEUE_ARTICLE_COST" envDefault:"3s"`
	Wait         bool          `env:"QUEUE_WAIT" envDefault:"false"`
	PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"10s"`
	StaleAfter   time.Duration `env:"QUEUE_STALE_AFTER" envDefault:"6h"`
}

// Limits holds per tenant import limits.
type Limits struct {
	MaxPerFile int `env:"MAX_PER_FILE" envDefault:"500"`
	MaxPerDay  int `env:"MAX_PER_DAY" envDefault:"2000"`
}

// Chrome holds browser configuration.
type Chrome struct {
	Headless bool   `env:"CHROME_HEADLESS" envDefault:"true"`
	Path     string `env:"CHROME_PATH"`
}

// PublisherConfig returns publisher configuration for site.
func (c Config) PublisherConfig(site publisher.Site) publisher.Config {
	cfg := publisher.DefaultConfig()
	cfg.BatchSize = c.Publisher.BatchSize
	cfg.RestartEvery = c.Publisher.RestartEvery
	cfg.RowDelay = c.Publisher.RowDelay
	cfg.BatchDelay = c.Publisher.BatchDelay
	cfg.BatchTimeout = c.Publisher.BatchTimeout
	cfg.PageTimeout = c.Publisher.PageTimeout
	cfg.SubmitTimeout = c.Publisher.SubmitTimeout
	cfg.ImageWorkers = c.Publisher.ImageWorkers
	cfg.WaitInQueue = c.Queue.Wait
	cfg.QueuePollInterval = c.Queue.PollInterval
	cfg.Site = site

	return cfg
}

// LauncherLimits returns import limits of the launcher.
func (c Config) LauncherLimits() launcher.Limits {
	return launcher.Limits{
		MaxPerFile: c.Limits.MaxPerFile,
		MaxPerDay:  c.Limits.MaxPerDay,
	}
}

// LoadSite overrides base with values of YAML file at path. Empty path returns base.
// Values missing from the file keep their base value.
func LoadSite(path string, base publisher.Site) (publisher.Site, error) {
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return publisher.Site{}, fmt.Errorf("can't read selectors file: %w", err)
	}

	site := base
	if err := yaml.Unmarshal(data, &site); err != nil {
		return publisher.Site{}, fmt.Errorf("can't decode selectors file: %w", err)
	}

	if site.LoginURL == "" || site.NewListingURL == "" {
		return publisher.Site{}, errors.New("selectors file must keep login and new listing URLs")
	}

	return site, nil
}
