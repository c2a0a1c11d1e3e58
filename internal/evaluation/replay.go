package evaluation

import (
	"context"

	"github.com/mbd888/vitalflow/internal/pipeline"
	"github.com/mbd888/vitalflow/internal/scoring"
	"github.com/mbd888/vitalflow/internal/vitals"
)

// Replay runs a labeled sample stream through a fresh pipeline session
// and evaluates the produced assessments against the labels. labels is
// aligned index-for-index with samples.
func Replay(cfg pipeline.Config, samples []vitals.Sample, labels []bool) (Report, []Record) {
	p := pipeline.New("replay", cfg)

	var assessments []*scoring.Assessment
	res := p.Ingest(context.Background(), samples)
	assessments = append(assessments, res.Assessments...)
	assessments = append(assessments, p.Flush()...)

	timestamps := make([]float64, len(samples))
	for i, s := range samples {
		timestamps[i] = s.Timestamp
	}
	events := EventsFromLabels(timestamps, labels)

	records := make([]Record, 0, len(assessments))
	for _, a := range assessments {
		records = append(records, Record{
			Assessment: a,
			Truth:      overlaps(events, a.WindowStart, a.WindowEnd),
			Timestamp:  a.WindowEnd,
		})
	}

	return Evaluate(records, events), records
}

// overlaps reports whether any event intersects [start, end].
func overlaps(events []Event, start, end float64) bool {
	for _, ev := range events {
		if ev.Onset <= end && ev.End >= start {
			return true
		}
	}
	return false
}
