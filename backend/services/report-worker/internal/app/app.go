package app

import (
	"context"

	"go.uber.org/zap"

	"waterreport/backend/services/report-worker/internal/clients"
	"waterreport/backend/services/report-worker/internal/config"
	"waterreport/backend/services/report-worker/internal/mailer"
	"waterreport/backend/services/report-worker/internal/scheduler"
	"waterreport/backend/services/report-worker/internal/service"
)

// App wires report worker dependencies.
type App struct {
	scheduler *scheduler.Scheduler
	reports   *service.ReportService
	logger    *zap.Logger
}

// Options overrides external collaborators, mainly for tests.
type Options struct {
	HTTPClient clients.HTTPDoer
	SMTPDialer mailer.Dialer
	Clock      scheduler.Clock
}

// New constructs application components.
func New(cfg *config.Config, logger *zap.Logger, opts Options) *App {
	clock := opts.Clock
	if clock == nil {
		clock = scheduler.RealClock()
	}

	telemetry := clients.NewTelemetryClient(cfg, opts.HTTPClient, logger.Named("telemetry"))
	sender := mailer.NewSender(cfg, opts.SMTPDialer, logger.Named("mailer"))
	reports := service.NewReportService(cfg, telemetry, sender, clock.Now, logger.Named("report"))

	a := &App{reports: reports, logger: logger}
	a.scheduler = scheduler.New(cfg.Schedule.Trigger, cfg.Schedule.PollInterval, a.runDaily, clock, logger.Named("scheduler"))
	return a
}

func (a *App) runDaily(ctx context.Context) {
	summary := a.reports.RunDaily(ctx)
	a.logger.Info("daily report summary",
		zap.String("date", summary.Window.StartString()),
		zap.Int("readings", summary.Readings),
		zap.Bool("fetch_failed", summary.FetchFailed),
		zap.Int("reports", summary.Reports),
		zap.Int("format_failed", summary.FormatFailed),
		zap.Int("sent", summary.Sent),
		zap.Int("send_failed", summary.SendFailed),
	)
}

// Run blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("daily email worker started")
	return a.scheduler.Run(ctx)
}
