package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/openrescue/dispatch/core/metrics"
	"github.com/openrescue/dispatch/core/model"
)

func TestPromSinkCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("NewPromSinkWithRegistry: %v", err)
	}
	err = sink.RecordRequestEvent([]coremetrics.RequestEvent{
		{RequestID: "r1", Action: "accepted", VehicleType: model.ResourceAmbulance, Time: time.Now()},
		{RequestID: "r2", Action: "accepted", VehicleType: model.ResourceAmbulance, Time: time.Now()},
	})
	if err != nil {
		t.Fatalf("RecordRequestEvent: %v", err)
	}
	ps := sink.(*PromSink)
	got := testutil.ToFloat64(ps.events.WithLabelValues("accepted", "ambulance"))
	if got != 2 {
		t.Fatalf("expected 2 events, got %v", got)
	}
}

func TestPromSinkPoolState(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("NewPromSinkWithRegistry: %v", err)
	}
	ps := sink.(*PromSink)
	err = ps.RecordPoolState([]coremetrics.PoolStateEvent{
		{VehicleType: model.ResourceFireEngine, FreeUnits: 7, Time: time.Now()},
	})
	if err != nil {
		t.Fatalf("RecordPoolState: %v", err)
	}
	if got := testutil.ToFloat64(ps.free.WithLabelValues("fireengine")); got != 7 {
		t.Fatalf("expected gauge 7, got %v", got)
	}
}

func TestPromSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second register must reuse collectors: %v", err)
	}
}
