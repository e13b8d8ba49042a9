package offline

import (
	"context"
	"log"
	"sync"
)

// Submitter delivers one spooled sale to the server. A nil error means the
// server accepted the sale, including the case where it had already seen
// the same client reference.
type Submitter interface {
	SubmitSale(ctx context.Context, rec Record) error
}

// Syncer drains the spool to the server. Only one drain runs at a time;
// records are replayed strictly oldest first, and a record leaves the spool
// only after the server acknowledges it. A failed record stays for the next
// drain while later records still get their attempt.
type Syncer struct {
	queue     *Queue
	submitter Submitter

	drainMu sync.Mutex
	trigger chan struct{}
}

// NewSyncer creates a syncer over the given spool.
func NewSyncer(queue *Queue, submitter Submitter) *Syncer {
	return &Syncer{
		queue:     queue,
		submitter: submitter,
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger requests a drain. Requests arriving while a drain is pending
// coalesce into one.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run drains on every trigger until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if n, err := s.Drain(ctx); err != nil {
				log.Printf("ERROR: drain spool: %v", err)
			} else if n > 0 {
				log.Printf("Synced %d offline sale(s)", n)
			}
		}
	}
}

// Drain replays spooled records sequentially and returns how many the
// server accepted. If another drain is already in flight it returns
// immediately; the spool must never be replayed concurrently or a slow
// first attempt could race its own retry.
func (s *Syncer) Drain(ctx context.Context) (int, error) {
	if !s.drainMu.TryLock() {
		return 0, nil
	}
	defer s.drainMu.Unlock()

	records, err := s.queue.List()
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		if err := s.submitter.SubmitSale(ctx, rec); err != nil {
			// Keep the record for the next drain; later records may
			// still succeed (e.g. one sale rejected by validation
			// must not wedge the whole spool).
			log.Printf("ERROR: submit sale %s: %v", rec.ClientRef, err)
			continue
		}

		if err := s.queue.Remove(rec); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}
