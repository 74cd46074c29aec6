/*
Package config loads scanner settings from defaults, an optional config file,
DLVSCAN_ environment variables and command line overrides, in increasing
order of precedence.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/shanehull/dlvscan/internal/fetch"
	"github.com/shanehull/dlvscan/internal/score"
)

const (
	EnvPrefix  = "DLVSCAN"
	DefaultURL = "https://www.moneycontrol.com/india/stockmarket/stock-deliverables/marketstatistics/indices/nifty-500-7.html"
)

type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Selection SelectionConfig `mapstructure:"selection"`
	Scoring   score.Policy    `mapstructure:"scoring"`
	Workers   int             `mapstructure:"workers" validate:"min=1,max=64"`
	AI        AIConfig        `mapstructure:"ai"`
	Email     EmailConfig     `mapstructure:"email"`
	Report    ReportConfig    `mapstructure:"report"`
	History   HistoryConfig   `mapstructure:"history"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Log       LogConfig       `mapstructure:"log"`
}

type SourceConfig struct {
	URL              string            `mapstructure:"url" validate:"required,url"`
	Headers          map[string]string `mapstructure:"headers"`
	Timeout          time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts      int               `mapstructure:"max_attempts" validate:"min=1"`
	RetryDelay       time.Duration     `mapstructure:"retry_delay" validate:"gte=0"`
	MinContentLength int               `mapstructure:"min_content_length" validate:"gte=0"`
	BlockMarkers     []string          `mapstructure:"block_markers"`
	MaxBytes         int64             `mapstructure:"max_bytes" validate:"gt=0"`
}

func (s SourceConfig) FetchConfig() fetch.Config {
	return fetch.Config{
		Headers:          s.Headers,
		Timeout:          s.Timeout,
		MaxAttempts:      s.MaxAttempts,
		RetryDelay:       s.RetryDelay,
		MinContentLength: s.MinContentLength,
		BlockMarkers:     s.BlockMarkers,
		MaxBytes:         s.MaxBytes,
	}
}

type SelectionConfig struct {
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=100"`
	MaxRows   int     `mapstructure:"max_rows" validate:"gte=0"`
}

type AIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model" validate:"required_with=APIKey"`
}

// Enabled reports whether commentary should be requested.
func (a AIConfig) Enabled() bool {
	return a.APIKey != ""
}

type EmailConfig struct {
	SMTPServer string   `mapstructure:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port" validate:"min=1,max=65535"`
	SMTPUser   string   `mapstructure:"smtp_user"`
	SMTPPass   string   `mapstructure:"smtp_pass"`
	FromEmail  string   `mapstructure:"from_email" validate:"omitempty,email"`
	ToEmails   []string `mapstructure:"to_emails" validate:"dive,email"`
	// Enabled is derived: every SMTP credential and at least one recipient is set.
	Enabled bool `mapstructure:"-"`
}

type ReportConfig struct {
	Format string `mapstructure:"format" validate:"oneof=text json yaml yml html markdown md"`
	Output string `mapstructure:"output"`
}

type HistoryConfig struct {
	Dir      string `mapstructure:"dir"`
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type ScheduleConfig struct {
	Cron     string `mapstructure:"cron" validate:"required"`
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", DefaultURL)
	v.SetDefault("source.headers", fetch.DefaultHeaders)
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.max_attempts", 3)
	v.SetDefault("source.retry_delay", 5*time.Second)
	v.SetDefault("source.min_content_length", fetch.DefaultMinContentLength)
	v.SetDefault("source.block_markers", fetch.DefaultBlockMarkers)
	v.SetDefault("source.max_bytes", 10*1024*1024)

	v.SetDefault("selection.threshold", 85.0)
	v.SetDefault("selection.max_rows", 0)

	p := score.DefaultPolicy()
	v.SetDefault("scoring.baseline_delivery", p.BaselineDelivery)
	v.SetDefault("scoring.volatility_per_point", p.VolatilityPerPoint)
	v.SetDefault("scoring.min_volatility_pct", p.MinVolatilityPct)
	v.SetDefault("scoring.max_volatility_pct", p.MaxVolatilityPct)
	v.SetDefault("scoring.probability_base", p.ProbabilityBase)
	v.SetDefault("scoring.probability_per_vol_pct", p.ProbabilityPerVolPct)
	v.SetDefault("scoring.min_probability", p.MinProbability)
	v.SetDefault("scoring.max_probability", p.MaxProbability)
	v.SetDefault("scoring.bullish_threshold", p.BullishThreshold)
	v.SetDefault("scoring.bullish_multiplier", p.BullishMultiplier)
	v.SetDefault("scoring.neutral_multiplier", p.NeutralMultiplier)
	v.SetDefault("scoring.risk_reward", p.RiskReward)

	v.SetDefault("workers", 4)

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")

	v.SetDefault("email.smtp_server", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_user", "")
	v.SetDefault("email.smtp_pass", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.to_emails", []string{})

	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")

	v.SetDefault("history.dir", "")
	v.SetDefault("history.timezone", "Asia/Kolkata")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("schedule.cron", "30 18 * * 1-5")
	v.SetDefault("schedule.timezone", "Asia/Kolkata")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads the configuration. path may be empty. overrides are viper keys
// (for example "selection.threshold") set from command line flags.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Secrets are also accepted under the names the scheduled job exports.
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	if err := v.BindEnv("email.smtp_pass", EnvPrefix+"_EMAIL_SMTP_PASS", "GMAIL_APP_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Email.ToEmails = splitList(cfg.Email.ToEmails)
	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = cfg.Email.SMTPUser
	}
	cfg.Email.Enabled = cfg.Email.SMTPServer != "" && cfg.Email.SMTPUser != "" &&
		cfg.Email.SMTPPass != "" && len(cfg.Email.ToEmails) > 0

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("invalid config: scoring: %w", err)
	}
	return nil
}

// splitList accepts both list values and a single comma separated string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
