package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mbd888/vitalflow/internal/scoring"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func assessmentEvent(streamID string, anomaly bool) *Event {
	return &Event{
		Type:      "assessment",
		Timestamp: time.Now(),
		Assessment: &scoring.Assessment{
			StreamID: streamID,
			Anomaly:  anomaly,
			State:    scoring.StateNormal,
		},
	}
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllStreams(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllStreams: true}}

	if !h.shouldSend(client, assessmentEvent("amb-204", false)) {
		t.Error("AllStreams client should receive every assessment")
	}
}

func TestShouldSend_StreamFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		StreamIDs: []string{"amb-204", "amb-207"},
	}}

	if !h.shouldSend(client, assessmentEvent("amb-204", false)) {
		t.Error("Should receive subscribed stream")
	}
	if !h.shouldSend(client, assessmentEvent("amb-207", false)) {
		t.Error("Should receive second subscribed stream")
	}
	if h.shouldSend(client, assessmentEvent("amb-999", false)) {
		t.Error("Should NOT receive unsubscribed stream")
	}
}

func TestShouldSend_AlertsOnly(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{AlertsOnly: true}}

	if h.shouldSend(client, assessmentEvent("amb-204", false)) {
		t.Error("AlertsOnly client should NOT receive normal assessments")
	}
	if !h.shouldSend(client, assessmentEvent("amb-204", true)) {
		t.Error("AlertsOnly client should receive anomaly assessments")
	}
}

func TestShouldSend_AlertsOnlyWithStreamFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		AlertsOnly: true,
		StreamIDs:  []string{"amb-204"},
	}}

	if h.shouldSend(client, assessmentEvent("amb-999", true)) {
		t.Error("Alert on an unsubscribed stream should be filtered")
	}
	if !h.shouldSend(client, assessmentEvent("amb-204", true)) {
		t.Error("Alert on the subscribed stream should pass")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllStreams: defaults to everything
	client := &Client{sub: Subscription{}}

	if !h.shouldSend(client, assessmentEvent("amb-204", false)) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(assessmentEvent("amb-204", false))
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllStreams: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["totalClients"].(int64) != 1 {
		t.Errorf("Expected 1 total client, got %v", stats["totalClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Lifetime total is monotonic
	if stats["totalClients"].(int64) != 1 {
		t.Errorf("Expected total still 1, got %v", stats["totalClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllStreams: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.BroadcastAssessment(&scoring.Assessment{
		StreamID:  "amb-204",
		RiskScore: 0.12,
		State:     scoring.StateNormal,
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only watching alerts
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AlertsOnly: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Normal assessment (should be filtered out)
	h.Broadcast(assessmentEvent("amb-204", false))
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive normal assessment")
	default:
		// Good - filtered out
	}

	// Alert (should be received)
	h.Broadcast(assessmentEvent("amb-204", true))

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive alert")
	}
}
