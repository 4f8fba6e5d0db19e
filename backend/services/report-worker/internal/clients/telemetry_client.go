package clients

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"waterreport/backend/services/report-worker/internal/config"
	"waterreport/backend/services/report-worker/internal/failure"
	"waterreport/backend/services/report-worker/internal/models"
)

// LogBookRequest is the log book query for a single device.
type LogBookRequest struct {
	DeviceTagCode string            `json:"m_device_tag_code"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	DeviceIDs     []models.DeviceID `json:"device_ids"`
	SiteID        int64             `json:"site_id"`
	Duration      string            `json:"duration"`
	DatetimeLabel string            `json:"datetime_label"`
}

// LogBookResponse is the log book API reply. Data is nil when the key is absent.
type LogBookResponse struct {
	Data *[]models.Reading `json:"data"`
}

// TelemetryClient fetches daily readings from the energy dashboard API.
type TelemetryClient struct {
	base          *BaseClient
	path          string
	tagCode       string
	duration      string
	datetimeLabel string
	deviceIDs     models.DeviceIDs
	siteID        int64
	policy        config.FailurePolicy
	logger        *zap.Logger
}

// NewTelemetryClient returns client wrapper. A nil doer gets an http.Client with the configured timeout.
func NewTelemetryClient(cfg *config.Config, doer HTTPDoer, logger *zap.Logger) *TelemetryClient {
	if doer == nil {
		doer = NewDefaultHTTPClient(cfg.API.Timeout)
	}
	return &TelemetryClient{
		base:          NewBaseClient(cfg.APIBaseURL(), doer),
		path:          cfg.API.Path,
		tagCode:       cfg.API.DeviceTagCode,
		duration:      cfg.API.Duration,
		datetimeLabel: cfg.API.DatetimeLabel,
		deviceIDs:     cfg.Report.DeviceIDs,
		siteID:        cfg.Report.SiteID,
		policy:        cfg.API.FailurePolicy,
		logger:        logger,
	}
}

// FetchReadings queries each configured device in order and returns the first record of every reply.
// On a failed request the abort policy returns what was collected so far; the skip policy moves on
// to the next device. Either way the returned error is a failure.KindFetch and the readings are usable.
func (c *TelemetryClient) FetchReadings(ctx context.Context, window models.TimeWindow) ([]models.Reading, error) {
	readings := make([]models.Reading, 0, len(c.deviceIDs))
	var errs error

	for _, id := range c.deviceIDs {
		reading, found, err := c.fetchDevice(ctx, id, window)
		if err != nil {
			c.logger.Error("log book request failed",
				zap.String("device_id", id.String()),
				zap.String("policy", string(c.policy)),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("device %s: %w", id, err))
			if c.policy != config.FailurePolicySkip {
				break
			}
			continue
		}
		if !found {
			c.logger.Warn("log book returned no data", zap.String("device_id", id.String()))
			continue
		}
		readings = append(readings, reading)
	}

	if errs != nil {
		return readings, failure.New(failure.KindFetch, "fetch readings", errs)
	}
	return readings, nil
}

func (c *TelemetryClient) fetchDevice(ctx context.Context, id models.DeviceID, window models.TimeWindow) (models.Reading, bool, error) {
	req := LogBookRequest{
		DeviceTagCode: c.tagCode,
		StartTime:     window.StartString(),
		EndTime:       window.EndString(),
		DeviceIDs:     []models.DeviceID{id},
		SiteID:        c.siteID,
		Duration:      c.duration,
		DatetimeLabel: c.datetimeLabel,
	}

	var resp LogBookResponse
	if err := c.base.PostJSON(ctx, c.path, req, &resp); err != nil {
		return models.Reading{}, false, err
	}
	if resp.Data == nil {
		return models.Reading{}, false, errors.New("malformed response: missing data")
	}
	if len(*resp.Data) == 0 {
		return models.Reading{}, false, nil
	}
	return (*resp.Data)[0], true, nil
}
