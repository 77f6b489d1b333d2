package record

import "slices"

// Clone returns a deep copy of the event. Read APIs hand out clones so
// callers can never mutate pool or chain state through a returned value.
func (e Event) Clone() Event {
	e.Payload = clonePayload(e.Payload)
	if e.Outcome != nil {
		o := *e.Outcome
		o.Checks = slices.Clone(o.Checks)
		e.Outcome = &o
	}
	return e
}

// Clone returns a deep copy of the block and its events.
func (b Block) Clone() Block {
	events := make([]Event, len(b.Events))
	for i, e := range b.Events {
		events[i] = e.Clone()
	}
	b.Events = events
	return b
}

func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case CollectionPayload:
		if v.Quality != nil {
			q := *v.Quality
			v.Quality = &q
		}
		return v
	case QualityTestPayload:
		if v.Quality != nil {
			q := *v.Quality
			v.Quality = &q
		}
		return v
	case ManufacturingPayload:
		v.BatchIDs = slices.Clone(v.BatchIDs)
		return v
	default:
		// Remaining payloads are plain value structs.
		return p
	}
}
