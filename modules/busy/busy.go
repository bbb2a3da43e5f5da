package busy

import (
	"context"
	"log"
	"sync"
)

// Kind - which per-entity set an ID belongs to
type Kind string

const (
	KindScene     Kind = "scene"
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
)

// Snapshot - immutable view of everything currently busy. Maps are never
// mutated after publication; every state change builds fresh ones.
type Snapshot struct {
	Global     map[string]bool `json:"global"`
	Scenes     map[string]bool `json:"scenes"`
	Characters map[string]bool `json:"characters"`
	Locations  map[string]bool `json:"locations"`
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Global:     map[string]bool{},
		Scenes:     map[string]bool{},
		Characters: map[string]bool{},
		Locations:  map[string]bool{},
	}
}

// Tracker records in-flight asynchronous operations per entity ID plus named
// global flags for app-wide operations. Observers receive copy-on-write
// snapshots; errors from scoped operations go to the sink exactly once.
type Tracker struct {
	mu       sync.RWMutex
	snap     Snapshot
	onChange func(Snapshot)
	sink     func(error)
}

// New - tracker with an error sink for scoped operations and an optional
// change callback for UI broadcast. Nil callbacks are replaced with defaults.
func New(sink func(error), onChange func(Snapshot)) *Tracker {
	if sink == nil {
		sink = func(err error) { log.Printf("⚠️  Unhandled operation error: %v", err) }
	}
	if onChange == nil {
		onChange = func(Snapshot) {}
	}
	return &Tracker{
		snap:     emptySnapshot(),
		onChange: onChange,
		sink:     sink,
	}
}

// Snapshot - current state; safe to retain, never mutated afterwards
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// SetBusy marks an entity ID busy in its kind's set
func (t *Tracker) SetBusy(kind Kind, id string) {
	t.update(func(s *Snapshot) bool {
		set := s.kindSet(kind)
		if set[id] {
			return false
		}
		next := copySet(set)
		next[id] = true
		s.setKindSet(kind, next)
		return true
	})
}

// ClearBusy removes an entity ID from its kind's set. Clearing an absent ID is
// a no-op, never an error.
func (t *Tracker) ClearBusy(kind Kind, id string) {
	t.update(func(s *Snapshot) bool {
		set := s.kindSet(kind)
		if !set[id] {
			return false
		}
		next := copySet(set)
		delete(next, id)
		s.setKindSet(kind, next)
		return true
	})
}

// SetGlobalBusy raises a named app-wide flag
func (t *Tracker) SetGlobalBusy(key string) {
	t.update(func(s *Snapshot) bool {
		if s.Global[key] {
			return false
		}
		next := copySet(s.Global)
		next[key] = true
		s.Global = next
		return true
	})
}

// ClearGlobalBusy lowers a named app-wide flag; idempotent
func (t *Tracker) ClearGlobalBusy(key string) {
	t.update(func(s *Snapshot) bool {
		if !s.Global[key] {
			return false
		}
		next := copySet(s.Global)
		delete(next, key)
		s.Global = next
		return true
	})
}

// IsBusy - true when the ID appears in any of the three per-entity sets.
// Entity IDs are globally unique, so checking across kinds is safe.
func (t *Tracker) IsBusy(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Scenes[id] || t.snap.Characters[id] || t.snap.Locations[id]
}

// IsGlobalBusy - exact-key query of a global flag
func (t *Tracker) IsGlobalBusy(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.Global[key]
}

// WithBusy wraps a single-entity async operation: mark busy, run, forward any
// error to the sink without rethrowing into the caller's control flow, and
// always clear the busy mark. The error is also returned so batch drivers can
// count failures; the sink remains the user-facing channel.
func (t *Tracker) WithBusy(ctx context.Context, kind Kind, id string, fn func(context.Context) error) error {
	return t.run(ctx, kind, id, fn, true)
}

// WithBusyQuiet is WithBusy for items inside a batch: the error is logged and
// returned for counting, but kept away from the sink so the batch driver owns
// the single user-facing summary.
func (t *Tracker) WithBusyQuiet(ctx context.Context, kind Kind, id string, fn func(context.Context) error) error {
	return t.run(ctx, kind, id, fn, false)
}

func (t *Tracker) run(ctx context.Context, kind Kind, id string, fn func(context.Context) error, sink bool) error {
	t.SetBusy(kind, id)
	defer t.ClearBusy(kind, id)

	err := fn(ctx)
	if err != nil {
		if sink {
			t.sink(err)
		} else {
			log.Printf("⚠️  %s %s failed: %v", kind, id, err)
		}
	}
	return err
}

// update applies a mutation against a scratch copy of the snapshot header and
// publishes it when the mutation reports a change
func (t *Tracker) update(mutate func(*Snapshot) bool) {
	t.mu.Lock()
	next := t.snap
	changed := mutate(&next)
	if changed {
		t.snap = next
	}
	t.mu.Unlock()

	if changed {
		t.onChange(next)
	}
}

func (s *Snapshot) kindSet(kind Kind) map[string]bool {
	switch kind {
	case KindCharacter:
		return s.Characters
	case KindLocation:
		return s.Locations
	default:
		return s.Scenes
	}
}

func (s *Snapshot) setKindSet(kind Kind, set map[string]bool) {
	switch kind {
	case KindCharacter:
		s.Characters = set
	case KindLocation:
		s.Locations = set
	default:
		s.Scenes = set
	}
}

func copySet(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
