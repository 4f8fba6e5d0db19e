package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"waterreport/backend/services/report-worker/internal/config"
	"waterreport/backend/services/report-worker/internal/failure"
	"waterreport/backend/services/report-worker/internal/models"
)

type logBookServer struct {
	mu       sync.Mutex
	requests []map[string]interface{}
	// handle returns the status and body for the n-th request (0-based).
	handle func(n int, deviceID string) (int, string)
}

func (s *logBookServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, payload)
	s.mu.Unlock()

	deviceID := ""
	if ids, ok := payload["device_ids"].([]interface{}); ok && len(ids) == 1 {
		deviceID = fmt.Sprint(ids[0])
	}
	status, body := s.handle(n, deviceID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *logBookServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func readingBody(deviceID string) string {
	return fmt.Sprintf(`{"data":[{"site_name":"Site 7","device_friendly_name":"Meter %s","time":"2024-05-01T00:00:00Z",
		"INITIAL_FLOW":100,"FINAL_FLOW":110,"TOTAL_CONSUMPTION":10},{"site_name":"ignored"}]}`, deviceID)
}

func newTestClient(t *testing.T, srv *httptest.Server, policy config.FailurePolicy, ids string) *TelemetryClient {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.API.Host = host
	cfg.API.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	cfg.API.Timeout = 200 * time.Millisecond
	cfg.API.FailurePolicy = policy
	cfg.Report.SiteID = 7
	require.NoError(t, cfg.Report.DeviceIDs.UnmarshalText([]byte(ids)))

	return NewTelemetryClient(cfg, nil, zap.NewNop())
}

func testWindow() models.TimeWindow {
	return models.DayWindow(time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local))
}

func TestFetchReadingsAllSucceed(t *testing.T) {
	backend := &logBookServer{handle: func(_ int, id string) (int, string) { return http.StatusOK, readingBody(id) }}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client := newTestClient(t, srv, config.FailurePolicyAbort, "[101, 102, 'c3']")
	readings, err := client.FetchReadings(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, readings, 3)
	assert.Equal(t, 3, backend.count())
	assert.Equal(t, "Meter 101", readings[0].DeviceFriendlyName.String())
	assert.Equal(t, "Meter 102", readings[1].DeviceFriendlyName.String())
	assert.Equal(t, "Meter c3", readings[2].DeviceFriendlyName.String())

	first := backend.requests[0]
	assert.Equal(t, "WATER-METER", first["m_device_tag_code"])
	assert.Equal(t, "2024-05-01T00:00:00Z", first["start_time"])
	assert.Equal(t, "2024-05-01T23:59:59Z", first["end_time"])
	assert.Equal(t, []interface{}{float64(101)}, first["device_ids"])
	assert.Equal(t, float64(7), first["site_id"])
	assert.Equal(t, "daily", first["duration"])
	assert.Equal(t, "Today", first["datetime_label"])
	assert.Equal(t, []interface{}{"c3"}, backend.requests[2]["device_ids"])
}

func TestFetchReadingsAbortsOnFirstFailure(t *testing.T) {
	backend := &logBookServer{handle: func(n int, id string) (int, string) {
		if n == 1 {
			return http.StatusInternalServerError, `{"detail":"boom"}`
		}
		return http.StatusOK, readingBody(id)
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client := newTestClient(t, srv, config.FailurePolicyAbort, "[1, 2, 3]")
	readings, err := client.FetchReadings(context.Background(), testWindow())

	require.Error(t, err)
	assert.Equal(t, failure.KindFetch, failure.KindOf(err))
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	require.Len(t, readings, 1)
	assert.Equal(t, "Meter 1", readings[0].DeviceFriendlyName.String())
	assert.Equal(t, 2, backend.count())
}

func TestFetchReadingsSkipPolicyContinues(t *testing.T) {
	backend := &logBookServer{handle: func(n int, id string) (int, string) {
		if n == 1 {
			return http.StatusOK, `not json`
		}
		return http.StatusOK, readingBody(id)
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client := newTestClient(t, srv, config.FailurePolicySkip, "[1, 2, 3]")
	readings, err := client.FetchReadings(context.Background(), testWindow())

	require.Error(t, err)
	assert.Equal(t, failure.KindFetch, failure.KindOf(err))
	assert.Contains(t, err.Error(), "device 2")
	require.Len(t, readings, 2)
	assert.Equal(t, "Meter 1", readings[0].DeviceFriendlyName.String())
	assert.Equal(t, "Meter 3", readings[1].DeviceFriendlyName.String())
	assert.Equal(t, 3, backend.count())
}

func TestFetchReadingsEmptyDataIsNotAFailure(t *testing.T) {
	backend := &logBookServer{handle: func(n int, id string) (int, string) {
		if n == 0 {
			return http.StatusOK, `{"data":[]}`
		}
		return http.StatusOK, readingBody(id)
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client := newTestClient(t, srv, config.FailurePolicyAbort, "[1, 2]")
	readings, err := client.FetchReadings(context.Background(), testWindow())

	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "Meter 2", readings[0].DeviceFriendlyName.String())
}

func TestFetchReadingsMissingDataKeyIsMalformed(t *testing.T) {
	backend := &logBookServer{handle: func(n int, id string) (int, string) {
		if n == 1 {
			return http.StatusOK, `{"detail":"site not found"}`
		}
		return http.StatusOK, readingBody(id)
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client := newTestClient(t, srv, config.FailurePolicyAbort, "[1, 2, 3]")
	readings, err := client.FetchReadings(context.Background(), testWindow())

	require.Error(t, err)
	assert.Equal(t, failure.KindFetch, failure.KindOf(err))
	assert.Contains(t, err.Error(), "missing data")
	require.Len(t, readings, 1)
	assert.Equal(t, 2, backend.count())
}

func TestFetchReadingsTimeoutAborts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, config.FailurePolicyAbort, "[1, 2]")
	readings, err := client.FetchReadings(context.Background(), testWindow())

	require.Error(t, err)
	assert.Equal(t, failure.KindFetch, failure.KindOf(err))
	assert.Empty(t, readings)
	assert.Equal(t, int32(1), calls.Load())
}
