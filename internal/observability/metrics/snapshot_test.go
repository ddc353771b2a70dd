package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotSummarisesConciergeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConciergeMetrics(reg)

	m.ObserveTurn("intake", "model")
	m.ObserveTurn("contact:name", "deterministic")
	m.ObserveTurn("completed", "deterministic")
	m.ObserveGuardOverride("premature_completion")
	m.ObserveNotification("completion", "sent")
	m.ObserveNotification("update", "failed")
	for i := 0; i < 19; i++ {
		m.ObserveLLMLatency("ok", 0.3)
	}
	m.ObserveLLMLatency("ok", 3)
	m.ObserveLLMLatency("error", 20)

	s := Snapshot(reg)
	assert.Equal(t, int64(3), s.Turns)
	assert.Equal(t, int64(1), s.GuardOverrides)
	assert.Equal(t, int64(1), s.NotificationsSent)
	assert.Equal(t, int64(21), s.LLMCalls)
	assert.Equal(t, int64(1), s.LLMFailures)
	assert.Equal(t, 500.0, s.LLMP95Ms)
}

func TestSnapshotEmptyRegistry(t *testing.T) {
	assert.Equal(t, Summary{}, Snapshot(prometheus.NewRegistry()))
}
