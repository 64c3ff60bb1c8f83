package impulse

import (
	"slices"

	"github.com/akmonengine/impulse/actor"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
)

type pairKey struct {
	bodyA actor.Handle
	bodyB actor.Handle
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(bodyA, bodyB actor.Handle) pairKey {
	if bodyB.Less(bodyA) {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

func (k pairKey) compare(other pairKey) int {
	switch {
	case k.bodyA != other.bodyA:
		if k.bodyA.Less(other.bodyA) {
			return -1
		}
		return 1
	case k.bodyB != other.bodyB:
		if k.bodyB.Less(other.bodyB) {
			return -1
		}
		return 1
	}
	return 0
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

type CollisionEnterEvent struct {
	BodyA actor.Handle
	BodyB actor.Handle
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA actor.Handle
	BodyB actor.Handle
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA actor.Handle
	BodyB actor.Handle
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

// Events tracks which pairs were in contact during the last steps and reports
// the transitions to the subscribed listeners at the end of each step.
type Events struct {
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 64),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		*e = NewEvents()
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContacts marks the pairs of the resolved contacts as active for this step
func (e *Events) recordContacts(contacts []Contact) {
	for _, c := range contacts {
		e.currentActivePairs[makePairKey(c.HandleA, c.HandleB)] = true
	}
}

// forget drops every tracked pair involving h, without emitting an exit
func (e *Events) forget(h actor.Handle) {
	for pair := range e.previousActivePairs {
		if pair.bodyA == h || pair.bodyB == h {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == h || pair.bodyB == h {
			delete(e.currentActivePairs, pair)
		}
	}
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit.
// Events are buffered in ascending pair order.
func (e *Events) processCollisionEvents() {
	current := sortedPairs(e.currentActivePairs)
	for _, pair := range current {
		if e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	for _, pair := range sortedPairs(e.previousActivePairs) {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func sortedPairs(set map[pairKey]bool) []pairKey {
	pairs := make([]pairKey, 0, len(set))
	for pair := range set {
		pairs = append(pairs, pair)
	}
	slices.SortFunc(pairs, pairKey.compare)
	return pairs
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
