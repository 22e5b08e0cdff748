package core

import (
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"sort"
	"sync"
)

// Assigns is a thread-safe store for component state. Every Set is recorded
// by a ChangeTracker so the router can skip renders when nothing changed.
type Assigns struct {
	data    map[string]any
	tracker *ChangeTracker
	mu      sync.RWMutex
}

// NewAssigns creates a new assigns store.
func NewAssigns() *Assigns {
	return &Assigns{
		data:    make(map[string]any),
		tracker: NewChangeTracker(),
	}
}

// Get retrieves a value from the store.
func (a *Assigns) Get(key string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[key]
}

// GetString retrieves a string value.
func (a *Assigns) GetString(key string) string {
	if v, ok := a.Get(key).(string); ok {
		return v
	}
	return ""
}

// GetInt retrieves an int value.
func (a *Assigns) GetInt(key string) int {
	if v, ok := a.Get(key).(int); ok {
		return v
	}
	return 0
}

// Set stores a value and tracks the change.
func (a *Assigns) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data[key] = value
	a.tracker.Track(key, value)
}

// Data returns a shallow copy of all data.
func (a *Assigns) Data() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]any, len(a.data))
	for k, v := range a.data {
		result[k] = v
	}
	return result
}

// Tracker returns the change tracker.
func (a *Assigns) Tracker() *ChangeTracker {
	return a.tracker
}

// ChangeTracker records which fields changed value since the last
// GetChanged call. Writing the same value again is not a change.
type ChangeTracker struct {
	hashes  map[string]uint64
	changed map[string]bool
	version uint64
	mu      sync.RWMutex
}

// NewChangeTracker creates a new change tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		hashes:  make(map[string]uint64),
		changed: make(map[string]bool),
	}
}

// Track registers a write to field.
func (ct *ChangeTracker) Track(field string, value any) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	h := hashValue(value)
	if prev, ok := ct.hashes[field]; !ok || prev != h {
		ct.changed[field] = true
	}
	ct.hashes[field] = h
}

// GetChanged returns the changed fields, sorted, and clears them.
func (ct *ChangeTracker) GetChanged() []string {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	changed := make([]string, 0, len(ct.changed))
	for field := range ct.changed {
		changed = append(changed, field)
	}
	sort.Strings(changed)

	ct.changed = make(map[string]bool)
	ct.version++

	return changed
}

// HasChanges returns true if there are pending changes.
func (ct *ChangeTracker) HasChanges() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.changed) > 0
}

// Version counts how many times changes were collected.
func (ct *ChangeTracker) Version() uint64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.version
}

// Reset clears all tracking state.
func (ct *ChangeTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.hashes = make(map[string]uint64)
	ct.changed = make(map[string]bool)
	ct.version = 0
}

// hashValue calculates a fast hash of any value.
func hashValue(v any) uint64 {
	h := fnv.New64a()

	switch val := v.(type) {
	case nil:
		h.Write([]byte{0})
	case string:
		h.Write([]byte(val))
	case int:
		binary.Write(h, binary.LittleEndian, int64(val))
	case int64:
		binary.Write(h, binary.LittleEndian, val)
	case uint64:
		binary.Write(h, binary.LittleEndian, val)
	case float64:
		binary.Write(h, binary.LittleEndian, val)
	case bool:
		if val {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case []string:
		for _, s := range val {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
	default:
		data, _ := json.Marshal(val)
		h.Write(data)
	}

	return h.Sum64()
}
