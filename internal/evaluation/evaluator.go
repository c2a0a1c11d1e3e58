// Package evaluation measures the pipeline against a labeled replay:
// precision, recall, false-alert rate, and per-event alert latency.
//
// Everything here is a pure aggregation over the replay's assessments
// and ground-truth labels; nothing mutates pipeline state, and the
// same replay with the same configuration always yields the same
// report.
package evaluation

import (
	"github.com/mbd888/vitalflow/internal/scoring"
)

// Record pairs one window assessment with its ground truth: whether
// any labeled distress fell inside the window.
type Record struct {
	Assessment *scoring.Assessment
	Truth      bool
	// Timestamp is the window-end time the assessment was issued for.
	Timestamp float64
}

// Event is one contiguous ground-truth deterioration episode.
type Event struct {
	Onset float64 `json:"onset"`
	End   float64 `json:"end"`
}

// Latency is the alert delay measured for one alerted event.
type Latency struct {
	Event   Event   `json:"event"`
	Seconds float64 `json:"seconds"`
}

// Report aggregates the four headline metrics plus their inputs.
type Report struct {
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	FalseAlertRate float64 `json:"false_alert_rate"`

	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	TotalWindows   int `json:"total_windows"`

	Events        int       `json:"events"`
	EventsAlerted int       `json:"events_alerted"`
	EventsMissed  int       `json:"events_missed"`
	Latencies     []Latency `json:"latencies,omitempty"`
	MeanLatency   float64   `json:"mean_latency"`

	// States counts assessments per resulting state, to make the
	// pending/watch/uncertain/alert split visible in the report.
	States map[scoring.State]int `json:"states"`
}

// Evaluate computes the report for one full labeled replay.
//
// Precision and the positive/negative counts are window-level; recall
// is event-level (an event counts as caught if an anomaly=true
// assessment lands between its onset and one window past its end).
// False-alert rate is false alerts over all scored windows. Events
// never alerted contribute no latency sample and are counted as misses.
func Evaluate(records []Record, events []Event) Report {
	r := Report{
		States: make(map[scoring.State]int),
		Events: len(events),
	}

	for _, rec := range records {
		a := rec.Assessment
		r.TotalWindows++
		r.States[a.State]++
		switch {
		case a.Anomaly && rec.Truth:
			r.TruePositives++
		case a.Anomaly && !rec.Truth:
			r.FalsePositives++
		case !a.Anomaly && rec.Truth:
			r.FalseNegatives++
		}
	}

	alerts := r.TruePositives + r.FalsePositives
	if alerts > 0 {
		r.Precision = float64(r.TruePositives) / float64(alerts)
	}
	if r.TotalWindows > 0 {
		r.FalseAlertRate = float64(r.FalsePositives) / float64(r.TotalWindows)
	}

	var latencySum float64
	for _, ev := range events {
		lat, ok := firstAlertDuring(records, ev)
		if !ok {
			r.EventsMissed++
			continue
		}
		r.EventsAlerted++
		sample := Latency{Event: ev, Seconds: lat - ev.Onset}
		r.Latencies = append(r.Latencies, sample)
		latencySum += sample.Seconds
	}
	if len(events) > 0 {
		r.Recall = float64(r.EventsAlerted) / float64(len(events))
	} else if r.TruePositives+r.FalseNegatives > 0 {
		// No event list supplied: fall back to window-level recall.
		r.Recall = float64(r.TruePositives) / float64(r.TruePositives+r.FalseNegatives)
	}
	if len(r.Latencies) > 0 {
		r.MeanLatency = latencySum / float64(len(r.Latencies))
	}

	return r
}

// firstAlertDuring finds the timestamp of the first anomaly assessment
// at or after the event onset. An alert landing more than one window
// span past the event's end belongs to something else, so the event
// counts as missed; this keeps every latency sample non-negative and
// bounded by the event span plus one window. Records are in replay
// order, so the scan is a forward pass.
func firstAlertDuring(records []Record, ev Event) (float64, bool) {
	for _, rec := range records {
		if !rec.Assessment.Anomaly || rec.Timestamp < ev.Onset {
			continue
		}
		span := rec.Assessment.WindowEnd - rec.Assessment.WindowStart
		if rec.Timestamp > ev.End+span {
			return 0, false
		}
		return rec.Timestamp, true
	}
	return 0, false
}

// EventsFromLabels extracts contiguous true runs from per-sample
// ground-truth labels, aligned with the sample timestamps.
func EventsFromLabels(timestamps []float64, labels []bool) []Event {
	var events []Event
	open := false
	var onset float64
	for i, l := range labels {
		switch {
		case l && !open:
			open = true
			onset = timestamps[i]
		case !l && open:
			open = false
			events = append(events, Event{Onset: onset, End: timestamps[i-1]})
		}
	}
	if open {
		events = append(events, Event{Onset: onset, End: timestamps[len(timestamps)-1]})
	}
	return events
}
