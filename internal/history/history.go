/*
Package history remembers which stocks were already reported today so that
repeated scheduled runs only e-mail when something new crosses the threshold.
*/
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shanehull/dlvscan/internal/types"
)

const (
	historyFileName     = "dlvscan_report_history.json"
	historyDirName      = "dlvscan"
	emptyReportSentinel = "__EMPTY_REPORT__"
)

type History struct {
	ReportDate string `json:"report_date"`
	// Reported maps a company to the delivery percentage it was reported with.
	Reported map[string]float64 `json:"reported"`
}

type Manager struct {
	history         History
	mutex           sync.Mutex
	historyFilePath string
	reportLocation  *time.Location
	logger          zerolog.Logger
	now             func() time.Time
}

// NewManager loads today's history from dir, or from a directory under the
// system temp dir when dir is empty. Days roll over in the tzName time zone.
func NewManager(ctx context.Context, dir string, tzName string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), historyDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone name '%s': %w", tzName, err)
	}

	m := &Manager{
		historyFilePath: filepath.Join(dir, historyFileName),
		reportLocation:  loc,
		logger:          zerolog.Ctx(ctx).With().Str("component", "history").Logger(),
		now:             time.Now,
	}

	m.loadHistory()
	return m, nil
}

func (m *Manager) loadHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	today := m.getCurrentReportDate()
	m.history = History{
		ReportDate: today,
		Reported:   make(map[string]float64),
	}

	data, err := os.ReadFile(m.historyFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug().Str("path", m.historyFilePath).Msg("History file not found. Starting fresh report.")
			return
		}
		m.logger.Warn().Err(err).Str("path", m.historyFilePath).Msg("Error reading history file. Starting fresh report.")
		return
	}

	var loaded History
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.logger.Warn().Err(err).Msg("Error unmarshalling history JSON. Starting fresh report.")
		return
	}

	if loaded.ReportDate == today && loaded.Reported != nil {
		m.history = loaded
		m.logger.Info().Int("reported", len(loaded.Reported)).Str("date", today).Msg("Loaded today's report history")
	} else {
		m.logger.Info().Str("history_date", loaded.ReportDate).Str("date", today).Msg("Starting new report history for today")
	}
}

func (m *Manager) rollover() {
	today := m.getCurrentReportDate()
	if m.history.ReportDate != today {
		m.history = History{ReportDate: today, Reported: make(map[string]float64)}
	}
}

// HasNew reports whether the report holds anything not yet reported today. An
// empty report counts as new once per day.
func (m *Manager) HasNew(report *types.Report) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rollover()

	if len(report.Picks) == 0 {
		_, sent := m.history.Reported[emptyReportSentinel]
		return !sent
	}

	for _, p := range report.Picks {
		if _, sent := m.history.Reported[p.Row.Company]; !sent {
			return true
		}
	}
	return false
}

// Record marks every pick of the report as reported and saves the history.
func (m *Manager) Record(report *types.Report) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rollover()

	if len(report.Picks) == 0 {
		m.history.Reported[emptyReportSentinel] = 0
	}
	for _, p := range report.Picks {
		m.history.Reported[p.Row.Company] = p.Row.DeliveryPct
	}
	return m.saveHistory()
}

func (m *Manager) saveHistory() error {
	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(m.historyFilePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", m.historyFilePath, err)
	}

	m.logger.Debug().Str("path", m.historyFilePath).Msg("Saved report history")
	return nil
}

func (m *Manager) HistoryFilePath() string {
	return m.historyFilePath
}

func (m *Manager) getCurrentReportDate() string {
	return m.now().In(m.reportLocation).Format("2006-01-02")
}
