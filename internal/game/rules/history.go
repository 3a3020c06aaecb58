package rules

import "sync"

// HistoryEntry is one recorded event in a game's timeline.
type HistoryEntry struct {
	Seq         int
	Type        EventType
	Turn        int
	CardID      string
	Amount      int
	Flag        bool
	Description string
}

// HistoryRecorder subscribes to an event bus and keeps an ordered log of
// everything that happened, for UI replay and persistence.
type HistoryRecorder struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	handle  int
}

// NewHistoryRecorder creates a recorder attached to the given bus.
func NewHistoryRecorder(bus *EventBus) *HistoryRecorder {
	r := &HistoryRecorder{}
	r.handle = bus.Subscribe(func(event Event) {
		r.record(event)
	})
	return r
}

func (r *HistoryRecorder) record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, HistoryEntry{
		Seq:         len(r.entries),
		Type:        event.Type,
		Turn:        event.Turn,
		CardID:      event.CardID,
		Amount:      event.Amount,
		Flag:        event.Flag,
		Description: event.Description,
	})
}

// Entries returns a snapshot of the recorded timeline.
func (r *HistoryRecorder) Entries() []HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]HistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *HistoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Detach unsubscribes the recorder from the bus it was created on.
func (r *HistoryRecorder) Detach(bus *EventBus) {
	bus.Unsubscribe(r.handle)
}
