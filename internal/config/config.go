// Load envs from .env
// Load YAML config
// Apply defaults, then validate once at startup

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

type Config struct {
	SearchQueries []SearchQuery `yaml:"search_queries" validate:"required,min=1,dive"`
	ResumeRules   []ResumeRule  `yaml:"resume_rules" validate:"dive"`
	CoverLetter   string        `yaml:"cover_letter"`

	//Traversal
	MaxPages  int `yaml:"max_pages" validate:"gte=1"`
	MaxCycles int `yaml:"max_cycles" validate:"gte=0"`

	//Ledger
	SaveInterval  int    `yaml:"save_interval" validate:"gte=1"`
	ProcessedFile string `yaml:"processed_file" validate:"required"`
	SkippedFile   string `yaml:"skipped_file" validate:"required"`

	Debug bool `yaml:"debug"`

	Browser  BrowserConfig  `yaml:"browser"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Delays   DelayConfig    `yaml:"delays"`
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
}

// SearchQuery is one saved hh.ru search. Keywords, when set, gate every
// vacancy title before an application is attempted.
type SearchQuery struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url" validate:"required,url"`
	Keywords []string `yaml:"keywords"`
}

// DisplayName returns the query name, or a shortened URL when unnamed.
func (q SearchQuery) DisplayName() string {
	if q.Name != "" {
		return q.Name
	}
	if len(q.URL) > 50 {
		return q.URL[:50]
	}
	return q.URL
}

// ResumeRule picks the résumé whose name contains Title when the vacancy
// title contains any of Keywords.
type ResumeRule struct {
	Title    string   `yaml:"title" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"required,min=1"`
}

type BrowserConfig struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	Headless    bool          `yaml:"headless"`
	UserDataDir string        `yaml:"user_data_dir"`
	CookiesPath string        `yaml:"cookies_path"`
	Humanize    bool          `yaml:"humanize"`
	AuthTimeout time.Duration `yaml:"auth_timeout" validate:"gte=0"`
	Screenshots string        `yaml:"screenshots_dir"`
}

type TimeoutConfig struct {
	ModalWait   time.Duration `yaml:"modal_wait" validate:"gt=0"`
	ElementWait time.Duration `yaml:"element_wait" validate:"gt=0"`
	PageLoad    time.Duration `yaml:"page_load" validate:"gt=0"`
}

type DelayConfig struct {
	BetweenApplies time.Duration `yaml:"between_applies" validate:"gte=0"`
	BetweenPages   time.Duration `yaml:"between_pages" validate:"gte=0"`
	BetweenCycles  time.Duration `yaml:"between_cycles" validate:"gte=0"`
}

// TelegramConfig is optional; cycle summaries are only sent when Token is set.
type TelegramConfig struct {
	Token  string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

// Enabled reports whether a bot token and chat are configured.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// Load reads .env, the YAML file at path and environment overrides, fills
// defaults and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes and applies the same env overrides, defaults and
// validation as Load.
func Parse(data []byte) (*Config, error) {
	// delays are seeded before decoding so an explicit 0 turns pacing off
	cfg := &Config{Delays: defaultDelays()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	//Override with env vars
	if err := env.Parse(&cfg.Telegram); err != nil {
		return nil, fmt.Errorf("parse telegram env: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parse database env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxPages == 0 {
		c.MaxPages = 5
	}
	if c.SaveInterval == 0 {
		c.SaveInterval = 10
	}
	if c.ProcessedFile == "" {
		c.ProcessedFile = "processed_vacancies.json"
	}
	if c.SkippedFile == "" {
		c.SkippedFile = "skipped_vacancies.json"
	}

	if c.Browser.BaseURL == "" {
		c.Browser.BaseURL = "https://hh.ru"
	}
	if c.Browser.AuthTimeout == 0 {
		c.Browser.AuthTimeout = 5 * time.Minute
	}
	if c.Browser.Screenshots == "" {
		c.Browser.Screenshots = "logs/screenshots"
	}

	if c.Timeouts.ModalWait == 0 {
		c.Timeouts.ModalWait = time.Second
	}
	if c.Timeouts.ElementWait == 0 {
		c.Timeouts.ElementWait = 500 * time.Millisecond
	}
	if c.Timeouts.PageLoad == 0 {
		c.Timeouts.PageLoad = 30 * time.Second
	}
}

func defaultDelays() DelayConfig {
	return DelayConfig{
		BetweenApplies: 2 * time.Second,
		BetweenPages:   3 * time.Second,
		BetweenCycles:  10 * time.Minute,
	}
}

// Validate checks the whole config tree and reports the first failing field.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
