package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/openrescue/dispatch/core/metrics"
	"github.com/openrescue/dispatch/core/model"
)

func TestInfluxSink_RecordRequestEvent(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.RequestEvent{
		RequestID:   "req1",
		Action:      "accepted",
		VehicleType: model.ResourceAmbulance,
		UnitID:      "Ambulance-1",
		Time:        now,
	}

	if err := sink.RecordRequestEvent([]coremetrics.RequestEvent{ev}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("request_event").
		AddTag("request_id", "req1").
		AddTag("action", "accepted").
		AddTag("component", "dispatch_coordinator").
		AddTag("vehicle_type", "ambulance").
		AddTag("unit_id", "Ambulance-1").
		AddField("count", 1).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordPresence(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	err := sink.RecordPresence(coremetrics.PresenceEvent{
		DriverID:    "d1",
		Coordinates: model.Coordinates{Lat: 48.85, Lon: 2.35},
		Time:        now,
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	if !strings.Contains(body, "driver_presence") || !strings.Contains(body, "driver_id=d1") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL, "token", "org", "bucket")
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink fallback, got %T", sink)
	}
}
