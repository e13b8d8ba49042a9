package kds

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockFetcher returns canned snapshots in sequence.
type mockFetcher struct {
	snapshots [][]Order
	errs      []error
	calls     int
}

func (m *mockFetcher) FetchOrders(ctx context.Context) ([]Order, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.snapshots) {
		return nil, nil
	}
	return m.snapshots[i], nil
}

func order(id, number string) Order {
	return Order{
		ID:            id,
		OrderNumber:   number,
		OrderType:     "dine_in",
		KitchenStatus: "pending",
		CreatedAt:     time.Now(),
	}
}

func TestPollerFirstSnapshotDoesNotChime(t *testing.T) {
	fetcher := &mockFetcher{snapshots: [][]Order{
		{order("a", "DPR-001"), order("b", "DPR-002")},
	}}
	p := NewPoller(fetcher, time.Minute)

	var fired []string
	p.OnNewOrder = func(o Order) { fired = append(fired, o.ID) }

	p.Poll(context.Background())

	if len(fired) != 0 {
		t.Fatalf("expected no new-order callbacks on first snapshot, got %v", fired)
	}
}

func TestPollerDetectsNewOrder(t *testing.T) {
	fetcher := &mockFetcher{snapshots: [][]Order{
		{order("a", "DPR-001")},
		{order("a", "DPR-001"), order("b", "DPR-002")},
	}}
	p := NewPoller(fetcher, time.Minute)

	var fired []string
	p.OnNewOrder = func(o Order) { fired = append(fired, o.ID) }

	p.Poll(context.Background())
	p.Poll(context.Background())

	if len(fired) != 1 || fired[0] != "b" {
		t.Fatalf("expected exactly one new order 'b', got %v", fired)
	}
}

func TestPollerDetectsNewOrderWhenCountUnchanged(t *testing.T) {
	// One order completes while another arrives: the list length stays at
	// two, but the new ID must still chime.
	fetcher := &mockFetcher{snapshots: [][]Order{
		{order("a", "DPR-001"), order("b", "DPR-002")},
		{order("b", "DPR-002"), order("c", "DPR-003")},
	}}
	p := NewPoller(fetcher, time.Minute)

	var fired []string
	p.OnNewOrder = func(o Order) { fired = append(fired, o.ID) }

	p.Poll(context.Background())
	p.Poll(context.Background())

	if len(fired) != 1 || fired[0] != "c" {
		t.Fatalf("expected exactly one new order 'c', got %v", fired)
	}
}

func TestPollerDoesNotRefireKnownOrders(t *testing.T) {
	snapshot := []Order{order("a", "DPR-001"), order("b", "DPR-002")}
	fetcher := &mockFetcher{snapshots: [][]Order{snapshot, snapshot, snapshot}}
	p := NewPoller(fetcher, time.Minute)

	var fired []string
	p.OnNewOrder = func(o Order) { fired = append(fired, o.ID) }

	for i := 0; i < 3; i++ {
		p.Poll(context.Background())
	}

	if len(fired) != 0 {
		t.Fatalf("expected no callbacks for unchanged snapshots, got %v", fired)
	}
}

func TestPollerKeepsSnapshotOnError(t *testing.T) {
	fetcher := &mockFetcher{
		snapshots: [][]Order{
			{order("a", "DPR-001")},
			nil, // replaced by error
			{order("a", "DPR-001"), order("b", "DPR-002")},
		},
		errs: []error{nil, errors.New("connection refused"), nil},
	}
	p := NewPoller(fetcher, time.Minute)

	var fired []string
	var failures int
	p.OnNewOrder = func(o Order) { fired = append(fired, o.ID) }
	p.OnError = func(err error) { failures++ }

	p.Poll(context.Background())
	p.Poll(context.Background())
	p.Poll(context.Background())

	if failures != 1 {
		t.Fatalf("expected 1 error callback, got %d", failures)
	}
	// The failed poll must not wipe the known set: only "b" is new.
	if len(fired) != 1 || fired[0] != "b" {
		t.Fatalf("expected exactly one new order 'b' after recovery, got %v", fired)
	}
}

func TestPollerHideFiltersUntilRefresh(t *testing.T) {
	snapshot := []Order{order("a", "DPR-001"), order("b", "DPR-002")}
	fetcher := &mockFetcher{snapshots: [][]Order{snapshot, snapshot}}
	p := NewPoller(fetcher, time.Minute)

	p.Poll(context.Background())

	p.Hide("a")
	visible := p.Visible(snapshot)
	if len(visible) != 1 || visible[0].ID != "b" {
		t.Fatalf("expected only 'b' visible after hiding 'a', got %d orders", len(visible))
	}

	// The next authoritative refresh clears local hides; if the server
	// still returns the order, it reappears.
	p.Poll(context.Background())
	visible = p.Visible(snapshot)
	if len(visible) != 2 {
		t.Fatalf("expected hide cleared after refresh, got %d visible orders", len(visible))
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	fetcher := &mockFetcher{}
	p := NewPoller(fetcher, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
