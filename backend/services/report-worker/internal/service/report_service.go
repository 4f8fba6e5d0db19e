package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"waterreport/backend/services/report-worker/internal/config"
	"waterreport/backend/services/report-worker/internal/failure"
	"waterreport/backend/services/report-worker/internal/models"
	"waterreport/backend/services/report-worker/internal/report"
)

// ReadingFetcher loads the day's readings. Readings are usable even when err is non-nil.
type ReadingFetcher interface {
	FetchReadings(ctx context.Context, window models.TimeWindow) ([]models.Reading, error)
}

// MailSender delivers one HTML email to one recipient.
type MailSender interface {
	Send(ctx context.Context, to, htmlBody string) error
}

// Summary describes one daily run.
type Summary struct {
	Window       models.TimeWindow
	Readings     int
	FetchFailed  bool
	Reports      int
	FormatFailed int
	Sent         int
	SendFailed   int
	Panicked     bool
}

// ReportService runs the daily fetch, render and mail flow.
type ReportService struct {
	fetcher    ReadingFetcher
	mailer     MailSender
	render     func([]models.Reading) (string, error)
	recipients []string
	combine    bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewReportService returns service instance. now defaults to time.Now.
func NewReportService(cfg *config.Config, fetcher ReadingFetcher, mailer MailSender, now func() time.Time, logger *zap.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	recipients := make([]string, len(cfg.Mail.Recipients))
	copy(recipients, cfg.Mail.Recipients)
	return &ReportService{
		fetcher:    fetcher,
		mailer:     mailer,
		render:     report.Render,
		recipients: recipients,
		combine:    cfg.Report.Combine,
		now:        now,
		logger:     logger,
	}
}

// RunDaily fetches today's readings and mails them, either as one combined report or one report
// per device. It never panics and never returns an error: failures are logged and counted.
func (s *ReportService) RunDaily(ctx context.Context) (summary Summary) {
	defer func() {
		if r := recover(); r != nil {
			summary.Panicked = true
			err := failure.New(failure.KindOrchestration, "daily report", fmt.Errorf("panic: %v", r))
			s.logger.Error("daily report aborted", zap.Error(err), zap.Stack("stack"))
		}
	}()

	summary.Window = models.DayWindow(s.now())
	date := summary.Window.StartString()

	readings, err := s.fetcher.FetchReadings(ctx, summary.Window)
	summary.Readings = len(readings)
	if err != nil {
		summary.FetchFailed = true
		s.logger.Warn("fetch incomplete, reporting partial readings",
			zap.Int("readings", len(readings)),
			zap.Error(err),
		)
	}

	if s.combine {
		s.deliver(ctx, &summary, readings, zap.String("date", date), zap.Bool("combined", true))
		return summary
	}

	for _, r := range readings {
		s.deliver(ctx, &summary, []models.Reading{r},
			zap.String("date", date),
			zap.String("device", r.DeviceFriendlyName.String()),
		)
	}
	return summary
}

func (s *ReportService) deliver(ctx context.Context, summary *Summary, readings []models.Reading, fields ...zap.Field) {
	summary.Reports++
	body, err := s.render(readings)
	if err != nil {
		summary.FormatFailed++
		s.logger.Warn("report formatting failed, skipping send", append(fields, zap.Error(err))...)
		return
	}

	for _, to := range s.recipients {
		if err := s.mailer.Send(ctx, to, body); err != nil {
			summary.SendFailed++
			s.logger.Error("report email failed",
				append(fields, zap.String("to", to), zap.String("stage", string(failure.StageOf(err))), zap.Error(err))...)
			continue
		}
		summary.Sent++
		s.logger.Info("report email sent", append(fields, zap.String("to", to))...)
	}
}
