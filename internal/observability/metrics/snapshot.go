package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	turnsFamily         = "wayloft_concierge_turns_total"
	guardFamily         = "wayloft_concierge_guard_overrides_total"
	llmLatencyFamily    = "wayloft_concierge_llm_latency_seconds"
	notificationsFamily = "wayloft_notify_lead_notifications_total"
)

// Summary is a point-in-time read of the concierge counters.
type Summary struct {
	Turns             int64
	GuardOverrides    int64
	NotificationsSent int64
	LLMCalls          int64
	LLMFailures       int64
	LLMP95Ms          float64
}

// Snapshot summarises the concierge metrics held by gatherer.
func Snapshot(gatherer prometheus.Gatherer) Summary {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return Summary{}
	}

	var s Summary
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case turnsFamily:
			s.Turns = sumCounters(mf, "", "")
		case guardFamily:
			s.GuardOverrides = sumCounters(mf, "", "")
		case notificationsFamily:
			s.NotificationsSent = sumCounters(mf, "status", "sent")
		case llmLatencyFamily:
			s.LLMCalls, s.LLMFailures, s.LLMP95Ms = summariseLatency(mf)
		}
	}
	return s
}

// sumCounters adds every counter in the family, optionally only those with
// label name=value.
func sumCounters(mf *dto.MetricFamily, name, value string) int64 {
	var total float64
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		if name != "" && !hasLabel(metric, name, value) {
			continue
		}
		total += metric.GetCounter().GetValue()
	}
	return int64(total)
}

func summariseLatency(mf *dto.MetricFamily) (calls, failures int64, p95Ms float64) {
	cumulativeByUpper := map[float64]uint64{}
	var okCount uint64
	for _, metric := range mf.Metric {
		if metric == nil {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		calls += int64(h.GetSampleCount())
		if !hasLabel(metric, "status", "ok") {
			failures += int64(h.GetSampleCount())
			continue
		}
		okCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if okCount == 0 {
		return calls, failures, 0
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	// Upper bound of the first bucket that holds the 95th percentile; the
	// overflow bucket reports the largest finite bound.
	target := uint64(math.Ceil(0.95 * float64(okCount)))
	lastFinite := 0.0
	for _, upper := range uppers {
		if math.IsInf(upper, 1) {
			break
		}
		lastFinite = upper
		if cumulativeByUpper[upper] >= target {
			return calls, failures, upper * 1000
		}
	}
	return calls, failures, lastFinite * 1000
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.Label {
		if lp == nil {
			continue
		}
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
