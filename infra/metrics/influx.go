package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corelogger "github.com/openrescue/dispatch/core/logger"
	coremetrics "github.com/openrescue/dispatch/core/metrics"
	"github.com/openrescue/dispatch/infra/logger"
)

// InfluxSink writes lifecycle events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelogger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRequestEvent writes lifecycle events as line protocol points.
func (s *InfluxSink) RecordRequestEvent(events []coremetrics.RequestEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range events {
		p := write.NewPointWithMeasurement("request_event").
			AddTag("request_id", ev.RequestID).
			AddTag("action", ev.Action).
			AddTag("component", "dispatch_coordinator").
			AddTag("vehicle_type", ev.VehicleType.String())
		if ev.UnitID != "" {
			p = p.AddTag("unit_id", ev.UnitID)
		}
		if ev.DriverID != "" {
			p = p.AddTag("driver_id", ev.DriverID)
		}
		p = p.AddField("count", 1).SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPresence writes a driver position update.
func (s *InfluxSink) RecordPresence(ev coremetrics.PresenceEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("driver_presence").
		AddTag("driver_id", ev.DriverID).
		AddTag("component", "driver_registry").
		AddField("lat", ev.Coordinates.Lat).
		AddField("lon", ev.Coordinates.Lon).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPoolState writes per-type free unit counts.
func (s *InfluxSink) RecordPoolState(evs []coremetrics.PoolStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("pool_state").
			AddTag("vehicle_type", ev.VehicleType.String()).
			AddTag("component", "reservation_pool").
			AddField("free_units", ev.FreeUnits).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
