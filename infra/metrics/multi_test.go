package metrics

import (
	"testing"

	coremetrics "github.com/openrescue/dispatch/core/metrics"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordRequestEvent([]coremetrics.RequestEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordPresence(coremetrics.PresenceEvent) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRequestEvent(nil); err != nil {
		t.Fatalf("record events: %v", err)
	}
	if err := m.RecordPresence(coremetrics.PresenceEvent{}); err != nil {
		t.Fatalf("record presence: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkSkipsUnsupported(t *testing.T) {
	m := NewMultiSink(coremetrics.NopSink{})
	if err := m.RecordPoolState(nil); err != nil {
		t.Fatalf("pool state: %v", err)
	}
}
