package metrics

import (
	"testing"
	"time"
)

func TestNew_StartTimeSet(t *testing.T) {
	before := time.Now()
	m := New()
	after := time.Now()

	if m.startTime.Before(before) || m.startTime.After(after) {
		t.Errorf("startTime %v not in expected range [%v, %v]", m.startTime, before, after)
	}
}

func TestZeroValue_SnapshotSafe(t *testing.T) {
	var m Metrics
	s := m.Snapshot()
	if s.Calls.RedactionsTotal != 0 {
		t.Errorf("expected 0 redactions, got %d", s.Calls.RedactionsTotal)
	}
	if len(s.EntitiesFoundByType) != 0 {
		t.Errorf("zero-value Metrics should report an empty type map, got %v", s.EntitiesFoundByType)
	}
}

func TestCallCounters(t *testing.T) {
	m := New()
	m.RedactionsTotal.Add(10)
	m.AnalyzeTotal.Add(4)
	m.UnredactTotal.Add(7)
	m.UnredactMisses.Add(1)

	s := m.Snapshot()
	if s.Calls.RedactionsTotal != 10 {
		t.Errorf("RedactionsTotal: got %d, want 10", s.Calls.RedactionsTotal)
	}
	if s.Calls.AnalyzeTotal != 4 {
		t.Errorf("AnalyzeTotal: got %d, want 4", s.Calls.AnalyzeTotal)
	}
	if s.Calls.UnredactTotal != 7 {
		t.Errorf("UnredactTotal: got %d, want 7", s.Calls.UnredactTotal)
	}
	if s.Calls.UnredactMisses != 1 {
		t.Errorf("UnredactMisses: got %d, want 1", s.Calls.UnredactMisses)
	}
}

func TestLayerCounters(t *testing.T) {
	m := New()
	m.NeuralInvocations.Add(5)
	m.NeuralFailures.Add(1)
	m.GenerativeInvocations.Add(3)
	m.GenerativeFailures.Add(2)

	s := m.Snapshot()
	if s.Layers.NeuralInvocations != 5 {
		t.Errorf("NeuralInvocations: got %d, want 5", s.Layers.NeuralInvocations)
	}
	if s.Layers.NeuralFailures != 1 {
		t.Errorf("NeuralFailures: got %d, want 1", s.Layers.NeuralFailures)
	}
	if s.Layers.GenerativeInvocations != 3 {
		t.Errorf("GenerativeInvocations: got %d, want 3", s.Layers.GenerativeInvocations)
	}
	if s.Layers.GenerativeFailures != 2 {
		t.Errorf("GenerativeFailures: got %d, want 2", s.Layers.GenerativeFailures)
	}
}

func TestRecordEntityFound(t *testing.T) {
	m := New()
	m.RecordEntityFound("EMAIL_ADDRESS")
	m.RecordEntityFound("EMAIL_ADDRESS")
	m.RecordEntityFound("US_SSN")

	s := m.Snapshot()
	if s.EntitiesFoundByType["EMAIL_ADDRESS"] != 2 {
		t.Errorf("EMAIL_ADDRESS: got %d, want 2", s.EntitiesFoundByType["EMAIL_ADDRESS"])
	}
	if s.EntitiesFoundByType["US_SSN"] != 1 {
		t.Errorf("US_SSN: got %d, want 1", s.EntitiesFoundByType["US_SSN"])
	}
	if _, present := s.EntitiesFoundByType["PHONE_NUMBER"]; present {
		t.Error("PHONE_NUMBER should be absent from snapshot when count is 0")
	}
}

func TestRecordEntityFound_UnknownTypeIgnored(t *testing.T) {
	m := New()
	// Should not panic or create a new entry for an unknown type.
	m.RecordEntityFound("SOME_CUSTOM_TAG")

	s := m.Snapshot()
	if _, present := s.EntitiesFoundByType["SOME_CUSTOM_TAG"]; present {
		t.Error("unknown type should not appear in snapshot")
	}
}

func TestRecordDocumentProjected(t *testing.T) {
	m := New()
	m.RecordDocumentProjected("docx")
	m.RecordDocumentProjected("docx")
	m.RecordDocumentProjected("pdf")

	s := m.Snapshot()
	if s.DocumentsByFormat["docx"] != 2 {
		t.Errorf("docx: got %d, want 2", s.DocumentsByFormat["docx"])
	}
	if s.DocumentsByFormat["pdf"] != 1 {
		t.Errorf("pdf: got %d, want 1", s.DocumentsByFormat["pdf"])
	}
	if _, present := s.DocumentsByFormat["xlsx"]; present {
		t.Error("xlsx should be absent from snapshot when count is 0")
	}
}

func TestSessionStoreSizeGauge(t *testing.T) {
	m := New()
	m.SessionStoreSize.Store(42)
	s := m.Snapshot()
	if s.SessionStoreSize != 42 {
		t.Errorf("SessionStoreSize: got %d, want 42", s.SessionStoreSize)
	}
}

func TestRecordRecognitionLatency_SingleSample(t *testing.T) {
	m := New()
	m.RecordRecognitionLatency(100 * time.Millisecond)

	s := m.Snapshot()
	if s.Latency.RecognitionMs.Count != 1 {
		t.Errorf("Count: got %d, want 1", s.Latency.RecognitionMs.Count)
	}
	if s.Latency.RecognitionMs.MinMs < 90 || s.Latency.RecognitionMs.MinMs > 110 {
		t.Errorf("MinMs: got %f, want ~100", s.Latency.RecognitionMs.MinMs)
	}
}

func TestRecordGenerativeLatency_MinMaxMean(t *testing.T) {
	m := New()
	m.RecordGenerativeLatency(50 * time.Millisecond)
	m.RecordGenerativeLatency(150 * time.Millisecond)
	m.RecordGenerativeLatency(100 * time.Millisecond)

	s := m.Snapshot()
	ls := s.Latency.GenerativeMs
	if ls.Count != 3 {
		t.Errorf("Count: got %d, want 3", ls.Count)
	}
	if ls.MinMs > 60 {
		t.Errorf("MinMs too high: %f", ls.MinMs)
	}
	if ls.MaxMs < 140 {
		t.Errorf("MaxMs too low: %f", ls.MaxMs)
	}
	if ls.MeanMs < 90 || ls.MeanMs > 110 {
		t.Errorf("MeanMs: got %f, want ~100", ls.MeanMs)
	}
}

func TestRecordNeuralAndDocumentLatency(t *testing.T) {
	m := New()
	m.RecordNeuralLatency(30 * time.Millisecond)
	m.RecordDocumentLatency(80 * time.Millisecond)

	s := m.Snapshot()
	if s.Latency.NeuralMs.Count != 1 {
		t.Errorf("NeuralMs.Count: got %d, want 1", s.Latency.NeuralMs.Count)
	}
	if s.Latency.DocumentMs.Count != 1 {
		t.Errorf("DocumentMs.Count: got %d, want 1", s.Latency.DocumentMs.Count)
	}
}

func TestSnapshotLatency_EmptyIsZeroValue(t *testing.T) {
	m := New()
	s := m.Snapshot()
	if s.Latency.RecognitionMs.Count != 0 {
		t.Errorf("empty recognition latency count should be 0")
	}
	if s.Latency.GenerativeMs.Count != 0 {
		t.Errorf("empty generative latency count should be 0")
	}
}

func TestSnapshot_UptimePositive(t *testing.T) {
	m := New()
	time.Sleep(5 * time.Millisecond)
	s := m.Snapshot()
	if s.UptimeSecs <= 0 {
		t.Errorf("UptimeSecs should be positive, got %f", s.UptimeSecs)
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		input float64
		want  float64
	}{
		{1.236, 1.24},
		{1.234, 1.23},
		{100.0, 100.0},
		{0.0, 0.0},
	}
	for _, c := range cases {
		got := round2(c.input)
		if got != c.want {
			t.Errorf("round2(%f) = %f, want %f", c.input, got, c.want)
		}
	}
}

func TestLatencyStats_Record(t *testing.T) {
	var s latencyStats
	s.record(10)
	s.record(20)
	s.record(15)

	snap := s.snapshot()
	if snap.Count != 3 {
		t.Errorf("Count: got %d, want 3", snap.Count)
	}
	if snap.MinMs != 10 {
		t.Errorf("MinMs: got %f, want 10", snap.MinMs)
	}
	if snap.MaxMs != 20 {
		t.Errorf("MaxMs: got %f, want 20", snap.MaxMs)
	}
	if snap.MeanMs != 15 {
		t.Errorf("MeanMs: got %f, want 15", snap.MeanMs)
	}
}

func TestLatencyStats_Empty(t *testing.T) {
	var s latencyStats
	snap := s.snapshot()
	if snap.Count != 0 || snap.MinMs != 0 || snap.MaxMs != 0 || snap.MeanMs != 0 {
		t.Errorf("empty stats snapshot should be zero, got %+v", snap)
	}
}
