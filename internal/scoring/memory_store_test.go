package scoring

import (
	"context"
	"testing"
)

func TestMemoryStoreRecordAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.Record(ctx, &Assessment{
			ID:        "va_" + string(rune('a'+i)),
			StreamID:  "amb-204",
			WindowEnd: float64(10 * (i + 1)),
			State:     StateNormal,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := s.Record(ctx, &Assessment{ID: "va_x", StreamID: "amb-207"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.ListByStream(ctx, "amb-204", 10)
	if err != nil {
		t.Fatalf("ListByStream: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 assessments, got %d", len(got))
	}
	// Most recent first.
	if got[0].WindowEnd != 30 || got[2].WindowEnd != 10 {
		t.Errorf("Expected newest-first order, got ends %v, %v, %v",
			got[0].WindowEnd, got[1].WindowEnd, got[2].WindowEnd)
	}
}

func TestMemoryStoreListLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, &Assessment{StreamID: "amb-204", WindowEnd: float64(i)})
	}

	got, err := s.ListByStream(ctx, "amb-204", 2)
	if err != nil {
		t.Fatalf("ListByStream: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 assessments, got %d", len(got))
	}
	if got[0].WindowEnd != 4 {
		t.Errorf("Expected newest window first, got %v", got[0].WindowEnd)
	}
}

func TestMemoryStoreUnknownStream(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.ListByStream(context.Background(), "nope", 10)
	if err != nil {
		t.Fatalf("ListByStream: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d", len(got))
	}
}

func TestMemoryStoreCopiesOnRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := &Assessment{StreamID: "amb-204", RiskScore: 0.2, Reasons: []string{"r1"}}
	_ = s.Record(ctx, a)
	a.RiskScore = 0.9
	a.Reasons[0] = "mutated"

	got, _ := s.ListByStream(ctx, "amb-204", 1)
	if got[0].RiskScore != 0.2 {
		t.Errorf("Stored assessment shares memory with caller: risk %v", got[0].RiskScore)
	}
	if got[0].Reasons[0] != "r1" {
		t.Errorf("Stored reasons share memory with caller: %v", got[0].Reasons)
	}
}
