// Package executor generates compliance reports for alerts. Each run goes
// through analyze, fetch supplementary data and synthesize stages and always
// ends with the report in a terminal status, unless the alert or report
// cannot be loaded.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/intel"
	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
)

// Generators recorded in State.Generator.
const (
	GeneratorGateway = "gateway"
	GeneratorMock    = "mock"
)

var errEmptyOutput = errors.New("empty output")

// Classifier classifies alert text. It must not fail.
type Classifier interface {
	Classify(ctx context.Context, content string) models.Classification
}

// AlertReader loads alerts.
type AlertReader interface {
	GetByID(ctx context.Context, id string) (*models.Alert, error)
}

// ReportWriter loads reports and moves them through their lifecycle.
type ReportWriter interface {
	GetByID(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, content string) error
}

// Config holds executor settings.
type Config struct {
	ProfileTimeout time.Duration // Bound on the stage 2 fetch (default: 30s)
}

// Executor runs report generation.
type Executor struct {
	alerts     AlertReader
	reports    ReportWriter
	classifier Classifier
	gateway    intel.Gateway
	profiles   ProfileSource
	config     Config
	logger     *zap.Logger
}

// New creates an executor. A nil gateway means reports are always written by
// MockReport; a nil profile source always yields DefaultProfile.
func New(alerts AlertReader, reports ReportWriter, classifier Classifier, gateway intel.Gateway, profiles ProfileSource, config Config, logger *zap.Logger) *Executor {
	if gateway == nil {
		gateway = intel.Unavailable
	}
	if profiles == nil {
		profiles = StaticProfile(DefaultProfile())
	}
	if config.ProfileTimeout <= 0 {
		config.ProfileTimeout = 30 * time.Second
	}
	return &Executor{
		alerts:     alerts,
		reports:    reports,
		classifier: classifier,
		gateway:    gateway,
		profiles:   profiles,
		config:     config,
		logger:     logger.Named("executor"),
	}
}

// Execute generates the report for alertID into reportID. It never returns
// an error: failures end as a failed report. When the alert or report does
// not exist the run is abandoned without touching the report.
func (e *Executor) Execute(ctx context.Context, reportID, alertID string) {
	logger := e.logger.With(zap.String("report_id", reportID), zap.String("alert_id", alertID))
	start := time.Now()

	// Set once the report is known to exist; only then may a panic mark it failed.
	var loaded bool
	defer func() {
		if r := recover(); r != nil {
			logger.Error("report generation panicked", zap.Any("panic", r), zap.Stack("stack"))
			if !loaded {
				metrics.ReportsTotal.WithLabelValues("aborted").Inc()
				return
			}
			e.markFailed(ctx, reportID, logger)
		}
	}()

	alert, err := e.alerts.GetByID(ctx, alertID)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("aborted").Inc()
		logger.Error("alert not found, abandoning report", zap.Error(err))
		return
	}
	report, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("aborted").Inc()
		logger.Error("report not found, abandoning report", zap.Error(err))
		return
	}
	if report.Status.IsTerminal() {
		metrics.ReportsTotal.WithLabelValues("aborted").Inc()
		logger.Warn("report already finished", zap.String("status", string(report.Status)))
		return
	}

	loaded = true

	if report.Status == models.ReportPending {
		if err := e.reports.UpdateStatus(ctx, reportID, models.ReportInProgress, ""); err != nil {
			logger.Error("failed to mark report in progress", zap.Error(err))
			e.markFailed(ctx, reportID, logger)
			return
		}
	}

	logger.Info("starting report generation")

	st := &State{Alert: alert}
	if err := runPipeline(ctx, st,
		Stage{Name: "analyze", Run: e.analyze},
		Stage{Name: "fetch profile", Run: e.fetchProfile},
		Stage{Name: "synthesize", Run: e.synthesize},
	); err != nil {
		logger.Error("report generation failed", zap.Error(err))
		e.markFailed(ctx, reportID, logger)
		return
	}

	if err := e.reports.UpdateStatus(ctx, reportID, models.ReportCompleted, st.Content); err != nil {
		logger.Error("failed to save report", zap.Error(err))
		e.markFailed(ctx, reportID, logger)
		return
	}

	metrics.ReportsTotal.WithLabelValues(string(models.ReportCompleted)).Inc()
	metrics.ReportDuration.WithLabelValues(st.Generator).Observe(time.Since(start).Seconds())
	logger.Info("report saved",
		zap.String("generator", st.Generator),
		zap.Int("length", len(st.Content)),
		zap.Duration("duration", time.Since(start)))
}

// markFailed makes one best-effort attempt to record the failure.
func (e *Executor) markFailed(ctx context.Context, reportID string, logger *zap.Logger) {
	metrics.ReportsTotal.WithLabelValues(string(models.ReportFailed)).Inc()
	if err := e.reports.UpdateStatus(context.WithoutCancel(ctx), reportID, models.ReportFailed, ""); err != nil {
		logger.Error("failed to mark report failed, report left inconsistent", zap.Error(err))
	}
}

func (e *Executor) analyze(ctx context.Context, st *State) error {
	st.Classification = e.classifier.Classify(ctx, st.Alert.Summary).Normalize(st.Alert.Summary)
	return nil
}

func (e *Executor) fetchProfile(ctx context.Context, st *State) error {
	fetchCtx, cancel := context.WithTimeout(ctx, e.config.ProfileTimeout)
	defer cancel()

	p, err := e.profiles.Fetch(fetchCtx)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("profile", "error").Inc()
		e.logger.Warn("profile fetch failed, using default profile", zap.Error(err))
		p = DefaultProfile()
	}
	st.Profile = p
	return nil
}

// synthesize writes the report. Any failure in the gateway workflow discards
// its partial output and the whole report is produced by MockReport instead.
func (e *Executor) synthesize(ctx context.Context, st *State) error {
	if !intel.Configured(e.gateway) {
		metrics.FallbacksTotal.WithLabelValues("report", "absent").Inc()
		e.logger.Debug("no gateway configured, generating mock report")
		e.useMock(st)
		return nil
	}

	scratch := *st
	err := runPipeline(ctx, &scratch,
		Stage{Name: "analysis", Run: e.gatewayAnalysis},
		Stage{Name: "company data", Run: e.gatewayProfile},
		Stage{Name: "report writing", Run: e.gatewayWrite},
	)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("report", "error").Inc()
		e.logger.Warn("gateway report workflow failed, falling back to mock", zap.Error(err))
		e.useMock(st)
		return nil
	}

	*st = scratch
	st.Generator = GeneratorGateway
	return nil
}

func (e *Executor) useMock(st *State) {
	st.Analysis = ""
	st.ProfileNote = ""
	st.Content = MockReport(st.Alert, st.Profile)
	st.Generator = GeneratorMock
}

const analysisPrompt = `You are a senior compliance analyst. Analyze this compliance alert:
%s

Assessed impact: %s. Action required: %s.
Provide a structured analysis including impact and required actions.`

const profilePrompt = `You are a company data specialist. Summarize the following company metadata
for compliance reporting, highlighting data residency and scale:
%s`

const writePrompt = `You are a compliance report writer. Write a comprehensive compliance report in Markdown based on:
1. Alert: %s
2. Company: %s
3. Impact level: %s

Analysis:
%s

Company data:
%s

Include an executive summary, findings, and recommendations.`

func (e *Executor) gatewayAnalysis(ctx context.Context, st *State) error {
	out, err := e.invoke(ctx, fmt.Sprintf(analysisPrompt,
		st.Alert.Summary, st.Classification.Impact, yesNo(st.Classification.ActionRequired)))
	if err != nil {
		return err
	}
	st.Analysis = out
	return nil
}

func (e *Executor) gatewayProfile(ctx context.Context, st *State) error {
	data, err := json.MarshalIndent(st.Profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	out, err := e.invoke(ctx, fmt.Sprintf(profilePrompt, data))
	if err != nil {
		return err
	}
	st.ProfileNote = out
	return nil
}

func (e *Executor) gatewayWrite(ctx context.Context, st *State) error {
	out, err := e.invoke(ctx, fmt.Sprintf(writePrompt,
		st.Alert.Summary, st.Profile.CompanyName, st.Alert.Impact.Level, st.Analysis, st.ProfileNote))
	if err != nil {
		return err
	}
	st.Content = out
	return nil
}

func (e *Executor) invoke(ctx context.Context, prompt string) (string, error) {
	out, err := e.gateway.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyOutput
	}
	return out, nil
}
