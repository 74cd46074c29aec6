package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/dlvscan/internal/fetch"
	"github.com/shanehull/dlvscan/internal/score"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dlvscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GMAIL_APP_PASSWORD", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.Source.URL)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 3, cfg.Source.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Source.RetryDelay)
	assert.Equal(t, fetch.DefaultMinContentLength, cfg.Source.MinContentLength)
	assert.Equal(t, fetch.DefaultBlockMarkers, cfg.Source.BlockMarkers)
	assert.Equal(t, 85.0, cfg.Selection.Threshold)
	assert.Zero(t, cfg.Selection.MaxRows)
	assert.Equal(t, score.DefaultPolicy(), cfg.Scoring)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, "30 18 * * 1-5", cfg.Schedule.Cron)
	assert.Equal(t, "Asia/Kolkata", cfg.Schedule.Timezone)
	assert.False(t, cfg.Email.Enabled)
	assert.False(t, cfg.AI.Enabled())
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  url: https://example.com/deliverables
  retry_delay: 1s
selection:
  threshold: 90
  max_rows: 10
scoring:
  risk_reward: 3
email:
  smtp_user: scanner@example.com
  to_emails:
    - a@example.com
    - b@example.com
log:
  level: debug
`)
	t.Setenv("DLVSCAN_SELECTION_MAX_ROWS", "5")
	t.Setenv("GMAIL_APP_PASSWORD", "app-secret")
	t.Setenv("GEMINI_API_KEY", "gemini-secret")

	cfg, err := Load(path, map[string]any{"selection.threshold": 92.5})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/deliverables", cfg.Source.URL)
	assert.Equal(t, time.Second, cfg.Source.RetryDelay)
	assert.Equal(t, 92.5, cfg.Selection.Threshold, "flags beat the file")
	assert.Equal(t, 5, cfg.Selection.MaxRows, "env beats the file")
	assert.Equal(t, 3.0, cfg.Scoring.RiskReward)
	assert.Equal(t, 2.0, cfg.Scoring.BullishMultiplier)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.Equal(t, "app-secret", cfg.Email.SMTPPass)
	assert.Equal(t, "scanner@example.com", cfg.Email.FromEmail)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.ToEmails)
	assert.True(t, cfg.Email.Enabled)

	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "gemini-secret", cfg.AI.APIKey)
}

func TestLoad_RecipientsFromEnv(t *testing.T) {
	t.Setenv("DLVSCAN_EMAIL_TO_EMAILS", "a@example.com, b@example.com")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.ToEmails)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{name: "threshold above 100", overrides: map[string]any{"selection.threshold": 101}},
		{name: "negative cap", overrides: map[string]any{"selection.max_rows": -1}},
		{name: "bad url", overrides: map[string]any{"source.url": "not a url"}},
		{name: "zero attempts", overrides: map[string]any{"source.max_attempts": 0}},
		{name: "unknown format", overrides: map[string]any{"report.format": "pdf"}},
		{name: "bad timezone", overrides: map[string]any{"history.timezone": "Mars/Olympus"}},
		{name: "bad recipient", overrides: map[string]any{"email.to_emails": []string{"nobody"}}},
		{name: "risk reward below one", overrides: map[string]any{"scoring.risk_reward": 0.5}},
		{name: "bad log level", overrides: map[string]any{"log.level": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.overrides)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestSourceConfig_FetchConfig(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	fc := cfg.Source.FetchConfig()
	assert.Equal(t, cfg.Source.MaxAttempts, fc.MaxAttempts)
	assert.Equal(t, cfg.Source.Timeout, fc.Timeout)
	assert.Equal(t, int64(10*1024*1024), fc.MaxBytes)
}
