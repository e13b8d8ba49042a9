package kds

import (
	"context"
	"sync"
	"time"
)

// Fetcher returns the authoritative kitchen order list.
// Satisfied by *Client.
type Fetcher interface {
	FetchOrders(ctx context.Context) ([]Order, error)
}

// Poller periodically refreshes the kitchen order list and detects orders
// that appeared since the previous snapshot. Detection is by ID set
// difference, so one new order arriving while another completes is still
// noticed even though the list length stays the same.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration

	// OnRefresh receives every authoritative snapshot, already filtered
	// by local hides. Optional.
	OnRefresh func(orders []Order)

	// OnNewOrder fires once per order ID the previous snapshot didn't
	// contain. It does not fire for the very first snapshot; a display
	// restart must not replay chimes for the whole backlog. Optional.
	OnNewOrder func(order Order)

	// OnError receives fetch failures. The poller keeps the previous
	// snapshot and retries on the next tick. Optional.
	OnError func(err error)

	mu     sync.Mutex
	known  map[string]bool
	hidden map[string]bool
	seeded bool
}

// NewPoller creates a poller; callbacks are assigned before Run is called.
func NewPoller(fetcher Fetcher, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		known:    make(map[string]bool),
		hidden:   make(map[string]bool),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll fetches one snapshot and dispatches callbacks. Exposed so a push
// notification can force an early refresh between ticks.
func (p *Poller) Poll(ctx context.Context) {
	orders, err := p.fetcher.FetchOrders(ctx)
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}

	p.mu.Lock()

	next := make(map[string]bool, len(orders))
	var fresh []Order
	for _, o := range orders {
		next[o.ID] = true
		if p.seeded && !p.known[o.ID] {
			fresh = append(fresh, o)
		}
	}
	p.known = next
	p.seeded = true

	// The server list is authoritative; anything hidden locally that it no
	// longer returns is gone for real, and anything it still returns should
	// reappear rather than stay hidden forever.
	p.hidden = make(map[string]bool)

	p.mu.Unlock()

	if p.OnNewOrder != nil {
		for _, o := range fresh {
			p.OnNewOrder(o)
		}
	}
	if p.OnRefresh != nil {
		p.OnRefresh(orders)
	}
}

// Hide removes an order from the local view until the next refresh. Used for
// optimistic removal right after the cook taps an order done.
func (p *Poller) Hide(orderID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden[orderID] = true
}

// Visible filters a snapshot through the local hide set.
func (p *Poller) Visible(orders []Order) []Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.hidden) == 0 {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if !p.hidden[o.ID] {
			out = append(out, o)
		}
	}
	return out
}
