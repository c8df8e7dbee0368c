package chat

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	sse "github.com/likerRr/sse-express"
)

// History keeps recently broadcasted events for a limited time so clients
// reconnecting with a last event ID can catch up. Events must carry integer
// IDs.
type History struct {
	cache *cache.Cache
}

// NewHistory creates a history keeping events for ttl. Expired events are
// purged every cleanup interval.
func NewHistory(ttl, cleanup time.Duration) *History {
	return &History{
		cache: cache.New(ttl, cleanup),
	}
}

// Add stores event in the history. Events without an integer ID are not
// stored.
func (h *History) Add(e *sse.Event) error {
	id, err := eventID(e)
	if err != nil {
		return err
	}
	h.cache.SetDefault(strconv.FormatInt(id, 10), e)
	return nil
}

// Since returns events with IDs greater than lastID ordered by ID. Malformed
// lastID yields no events.
func (h *History) Since(lastID string) []*sse.Event {
	from, err := strconv.ParseInt(lastID, 10, 64)
	if err != nil {
		return nil
	}

	type entry struct {
		id    int64
		event *sse.Event
	}
	var entries []entry
	for key, item := range h.cache.Items() {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= from {
			continue
		}
		entries = append(entries, entry{id: id, event: item.Object.(*sse.Event)})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id < entries[j].id
	})

	events := make([]*sse.Event, len(entries))
	for i := range entries {
		events[i] = entries[i].event
	}
	return events
}

// Len returns number of events currently kept.
func (h *History) Len() int {
	return h.cache.ItemCount()
}

func eventID(e *sse.Event) (int64, error) {
	switch id := e.ID.(type) {
	case int:
		return int64(id), nil
	case int64:
		return id, nil
	case string:
		return strconv.ParseInt(id, 10, 64)
	}
	return 0, fmt.Errorf("unsupported event id %v", e.ID)
}
