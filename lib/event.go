package lib

import (
	"sync"
)

/*
	This file implements the consensus event feed: a subscription surface emitting
	{height, status} updates for telemetry and observability consumers. Delivery
	is best effort and never blocks the consensus engine; a slow subscriber drops
	events rather than stalling the round.
*/

// EventStatus is the lifecycle stage of a height
type EventStatus string

const (
	EventProposed    EventStatus = "proposed"     // a candidate block was built or accepted for voting
	EventCommitted   EventStatus = "committed"    // the height was durably committed
	EventViewChanged EventStatus = "view_changed" // the round rotated leaders without committing
)

// Event is a single consensus progress update
type Event struct {
	Height uint64      `json:"height"`
	Status EventStatus `json:"status"`
}

// EventFeed fans consensus events out to subscribers
type EventFeed struct {
	l    sync.Mutex
	subs []chan Event
}

// NewEventFeed() creates an empty feed
func NewEventFeed() *EventFeed { return &EventFeed{} }

// Subscribe() registers a new subscriber and returns its channel
func (f *EventFeed) Subscribe() <-chan Event {
	f.l.Lock()
	defer f.l.Unlock()
	// buffered so a briefly slow consumer doesn't lose events
	ch := make(chan Event, 64)
	f.subs = append(f.subs, ch)
	return ch
}

// Publish() delivers the event to every subscriber without blocking
func (f *EventFeed) Publish(e Event) {
	f.l.Lock()
	defer f.l.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default: // subscriber fell behind, drop rather than stall consensus
		}
	}
}
