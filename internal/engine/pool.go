package engine

import "github.com/herbtrace/ledger/internal/record"

// pool is the staging area for admitted-but-unsealed events.
//
// Append-only FIFO: events enter at the back in admission order and
// leave only via drain (sealing) or reinsertFront (seal cancellation).
// The pool carries no lock of its own - the Ledger's exclusive mutex
// guards every access, making admission and sealing mutually exclusive
// critical sections.
type pool struct {
	events []record.Event
}

func newPool() *pool {
	return &pool{events: make([]record.Event, 0, 64)}
}

// append adds an admitted event at the back.
func (p *pool) append(e record.Event) {
	p.events = append(p.events, e)
}

// size returns the number of pending events.
func (p *pool) size() int {
	return len(p.events)
}

// snapshot returns deep copies of the pending events in order.
func (p *pool) snapshot() []record.Event {
	out := make([]record.Event, len(p.events))
	for i, e := range p.events {
		out[i] = e.Clone()
	}
	return out
}

// drain atomically removes and returns the entire pool content in
// admission order. The returned slice is owned by the caller.
func (p *pool) drain() []record.Event {
	drained := p.events
	p.events = make([]record.Event, 0, 64)
	return drained
}

// reinsertFront puts a previously drained snapshot back at the front,
// ahead of anything admitted since the drain. Used when a seal is
// cancelled mid proof-of-work: admission order is preserved and no
// event is lost.
func (p *pool) reinsertFront(events []record.Event) {
	if len(events) == 0 {
		return
	}
	merged := make([]record.Event, 0, len(events)+len(p.events))
	merged = append(merged, events...)
	merged = append(merged, p.events...)
	p.events = merged
}
