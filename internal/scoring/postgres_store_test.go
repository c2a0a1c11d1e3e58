//go:build integration

package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/mbd888/vitalflow/internal/testutil"
)

func TestPostgresStoreRecordAndList(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		a := &Assessment{
			ID:          "va_test000000000000000000" + string(rune('0'+i)),
			StreamID:    "amb-204",
			WindowStart: float64(i * 10),
			WindowEnd:   float64(i*10 + 30),
			RiskScore:   0.42,
			Confidence:  0.9,
			Anomaly:     false,
			State:       StateNormal,
			ContributingFactors: []Factor{
				{Name: "heart_rate_level", Weight: 0.2},
			},
			Reasons:       []string{},
			Details:       "normal status",
			ArtifactRatio: 0.1,
			DropoutRatio:  0,
			EvaluatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	// Another stream must not leak into the listing
	other := &Assessment{
		ID: "va_other00000000000000000", StreamID: "amb-207",
		RiskScore: 0.1, Confidence: 1, State: StateNormal,
		EvaluatedAt: base,
	}
	if err := store.Record(ctx, other); err != nil {
		t.Fatalf("Record other stream: %v", err)
	}

	list, err := store.ListByStream(ctx, "amb-204", 10)
	if err != nil {
		t.Fatalf("ListByStream: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 assessments, got %d", len(list))
	}

	// Most recent first
	for i := 1; i < len(list); i++ {
		if list[i].EvaluatedAt.After(list[i-1].EvaluatedAt) {
			t.Error("assessments not sorted most recent first")
		}
	}

	got := list[0]
	if got.RiskScore != 0.42 || got.Confidence != 0.9 {
		t.Errorf("round-trip mismatch: risk=%f conf=%f", got.RiskScore, got.Confidence)
	}
	if len(got.ContributingFactors) != 1 || got.ContributingFactors[0].Name != "heart_rate_level" {
		t.Errorf("factors did not round-trip: %+v", got.ContributingFactors)
	}
	if got.State != StateNormal {
		t.Errorf("state did not round-trip: %q", got.State)
	}
}

func TestPostgresStoreListLimit(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		a := &Assessment{
			ID:          "va_limit0000000000000000" + string(rune('0'+i)),
			StreamID:    "amb-210",
			RiskScore:   0.1,
			Confidence:  1,
			State:       StateNormal,
			EvaluatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	list, err := store.ListByStream(ctx, "amb-210", 2)
	if err != nil {
		t.Fatalf("ListByStream: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected limit to cap results at 2, got %d", len(list))
	}
}
