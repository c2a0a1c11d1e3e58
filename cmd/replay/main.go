// Command replay runs a labeled vitals stream through the full scoring
// pipeline and prints the evaluation report.
//
// With no -csv flag it generates a synthetic ambulance run (deterioration
// ramp, motion bursts, sensor dropouts) from -seed and -duration. A CSV
// file has the columns timestamp,heart_rate,spo2,bp_systolic,motion,label
// with empty vital fields meaning sensor dropout.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/mbd888/vitalflow/internal/config"
	"github.com/mbd888/vitalflow/internal/evaluation"
	"github.com/mbd888/vitalflow/internal/scoring"
	"github.com/mbd888/vitalflow/internal/synth"
	"github.com/mbd888/vitalflow/internal/vitals"
)

func main() {
	var (
		seed     = flag.Int64("seed", 42, "synthetic stream random seed")
		duration = flag.Float64("duration", 1800, "synthetic stream duration in seconds")
		csvPath  = flag.String("csv", "", "labeled CSV file to replay instead of a synthetic stream")
		asJSON   = flag.Bool("json", false, "print the report as JSON")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var samples []vitals.Sample
	var labels []bool

	if *csvPath != "" {
		samples, labels, err = loadCSV(*csvPath)
		if err != nil {
			log.Fatalf("load %s: %v", *csvPath, err)
		}
	} else {
		gen := synth.DefaultConfig()
		gen.Seed = *seed
		gen.Duration = *duration
		stream := synth.Generate(gen)
		samples, labels = stream.Samples, stream.Labels
	}

	report, _ := evaluation.Replay(cfg.Pipeline(), samples, labels)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("encode report: %v", err)
		}
		return
	}

	printReport(report, len(samples))
}

func printReport(r evaluation.Report, samples int) {
	fmt.Printf("replayed %d samples over %d scored windows\n\n", samples, r.TotalWindows)

	fmt.Printf("precision:        %.3f\n", r.Precision)
	fmt.Printf("recall:           %.3f\n", r.Recall)
	fmt.Printf("false alert rate: %.3f\n", r.FalseAlertRate)
	fmt.Printf("true positives:   %d\n", r.TruePositives)
	fmt.Printf("false positives:  %d\n", r.FalsePositives)
	fmt.Printf("false negatives:  %d\n", r.FalseNegatives)

	fmt.Printf("\nevents: %d total, %d alerted, %d missed\n", r.Events, r.EventsAlerted, r.EventsMissed)
	if len(r.Latencies) > 0 {
		fmt.Printf("mean detection latency: %.1f s\n", r.MeanLatency)
		for _, l := range r.Latencies {
			fmt.Printf("  event onset=%.0fs end=%.0fs latency=%.1fs\n",
				l.Event.Onset, l.Event.End, l.Seconds)
		}
	}

	fmt.Printf("\nassessment states:\n")
	for _, state := range []scoring.State{scoring.StateNormal, scoring.StateWatch, scoring.StateUncertain, scoring.StateAlert} {
		fmt.Printf("  %-10s %d\n", state, r.States[state])
	}
}

// loadCSV parses a labeled stream. Header row is optional; empty vital
// fields are dropouts (NaN).
func loadCSV(path string) ([]vitals.Sample, []bool, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied path on a CLI
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var samples []vitals.Sample
	var labels []bool
	first := true

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		if first {
			first = false
			// Skip a header row
			if _, err := strconv.ParseFloat(rec[0], 64); err != nil {
				continue
			}
		}

		ts, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad timestamp %q: %w", rec[0], err)
		}
		motion, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad motion %q: %w", rec[4], err)
		}
		label, err := strconv.ParseBool(rec[5])
		if err != nil {
			return nil, nil, fmt.Errorf("bad label %q: %w", rec[5], err)
		}

		samples = append(samples, vitals.Sample{
			Timestamp:  ts,
			HeartRate:  vitalField(rec[1]),
			SpO2:       vitalField(rec[2]),
			BPSystolic: vitalField(rec[3]),
			Motion:     motion,
		})
		labels = append(labels, label)
	}

	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("no samples in file")
	}
	return samples, labels, nil
}

func vitalField(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
