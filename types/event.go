package types

// Event is one decoded readout cycle.
//
// The zero-chip Event with Empty set is the end-of-stream sentinel returned
// by event sources once input is exhausted. Chips are iterated with NextChip
// in source order; the per-chip accessors look chips up by identifier.
type Event struct {
	// EventID is the raw event identifier; not necessarily contiguous.
	EventID uint32
	// Chips holds the chips present in this event, in source order.
	Chips []Chip
	// Empty marks the end-of-stream sentinel.
	Empty bool

	cursor int
	index  map[ChipID]int
}

// EndOfStream returns the sentinel event signalling exhausted input.
func EndOfStream() *Event {
	return &Event{Empty: true}
}

// NewEvent builds an event from its chips.
// When a chip identifier repeats, lookups resolve to its first occurrence.
func NewEvent(eventID uint32, chips []Chip) *Event {
	ev := &Event{
		EventID: eventID,
		Chips:   chips,
		index:   make(map[ChipID]int, len(chips)),
	}
	for i, c := range chips {
		if _, dup := ev.index[c.ID]; !dup {
			ev.index[c.ID] = i
		}
	}
	return ev
}

// IsEmpty reports whether this is the end-of-stream sentinel.
func (e *Event) IsEmpty() bool {
	return e == nil || e.Empty
}

// EventIDRaw returns the raw event identifier.
func (e *Event) EventIDRaw() uint32 {
	return e.EventID
}

// ChipStream is one step of chip iteration: an identifier and its words.
type ChipStream struct {
	ID    ChipID
	Words []StreamWord
}

// NextChip returns the next chip in source order.
// ok is false once every chip has been returned.
func (e *Event) NextChip() (cs ChipStream, ok bool) {
	if e.IsEmpty() || e.cursor >= len(e.Chips) {
		return ChipStream{}, false
	}
	c := e.Chips[e.cursor]
	e.cursor++
	return ChipStream{ID: c.ID, Words: c.Words}, true
}

func (e *Event) chip(id ChipID) *Chip {
	if e.IsEmpty() {
		return nil
	}
	if e.index == nil {
		for i := range e.Chips {
			if e.Chips[i].ID == id {
				return &e.Chips[i]
			}
		}
		return nil
	}
	i, ok := e.index[id]
	if !ok {
		return nil
	}
	return &e.Chips[i]
}

// ChipHits returns the raw hits of the chip, or nil if it is absent.
func (e *Event) ChipHits(id ChipID) []RawHit {
	if c := e.chip(id); c != nil {
		return c.Hits
	}
	return nil
}

// ChipClusters returns the clusters of the chip, or nil if it is absent.
func (e *Event) ChipClusters(id ChipID) []Cluster {
	if c := e.chip(id); c != nil {
		return c.Clusters
	}
	return nil
}

// ChipNClusters returns the number of clusters reported for the chip.
func (e *Event) ChipNClusters(id ChipID) int {
	return len(e.ChipClusters(id))
}

// ChipWasSplit reports whether the decoder split the chip's data.
func (e *Event) ChipWasSplit(id ChipID) bool {
	if c := e.chip(id); c != nil {
		return c.WasSplit
	}
	return false
}
