package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"introscan/internal/page"
)

// Config holds everything introscan reads from the environment: the remote
// service location, the page constants of the target shop, and the
// pipeline's timing budget.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Selector SelectorConfig `mapstructure:"selector"`
}

// APIConfig locates the remote description service.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScanConfig carries the pipeline constants.
type ScanConfig struct {
	TargetID     string        `mapstructure:"target_id"`
	ExpandText   string        `mapstructure:"expand_text"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
}

// SelectorConfig carries the page-specific identity selectors.
type SelectorConfig struct {
	Name      string `mapstructure:"name"`
	Price     string `mapstructure:"price"`
	Thumbnail string `mapstructure:"thumbnail"`
}

// Load reads configuration from an optional yaml file and INTROSCAN_*
// environment variables, on top of defaults matching the production page.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("introscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/introscan")

	v.SetEnvPrefix("INTROSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment variables apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("scan.target_id", "INTRODUCE")
	v.SetDefault("scan.expand_text", "상세정보 펼쳐보기")
	v.SetDefault("scan.poll_interval", 500*time.Millisecond)
	v.SetDefault("scan.poll_attempts", 20)
	v.SetDefault("scan.wait_timeout", 10*time.Second)

	sel := page.DefaultSelectors()
	v.SetDefault("selector.name", sel.Name)
	v.SetDefault("selector.price", sel.Price)
	v.SetDefault("selector.thumbnail", sel.Thumbnail)
}

// Pipeline maps the scan section onto a pipeline configuration.
func (c *Config) Pipeline() page.Config {
	return page.Config{
		TargetID:     c.Scan.TargetID,
		ExpandText:   c.Scan.ExpandText,
		PollInterval: c.Scan.PollInterval,
		PollAttempts: c.Scan.PollAttempts,
		WaitTimeout:  c.Scan.WaitTimeout,
	}
}

// Selectors maps the selector section onto page selectors.
func (c *Config) Selectors() page.Selectors {
	return page.Selectors{
		Name:      c.Selector.Name,
		Price:     c.Selector.Price,
		Thumbnail: c.Selector.Thumbnail,
	}
}
