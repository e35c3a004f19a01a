package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
)

// Replica is a session's local view of an owner's search areas. Pushed
// events are upserts keyed by area id, so duplicates and reordering are
// harmless; snapshots and polls replace the whole view.
type Replica struct {
	mu      sync.RWMutex
	areas   map[uuid.UUID]area.SearchArea
	version uint64
	// upserted maps an area id to the version of its last push
	upserted map[uuid.UUID]uint64
}

func NewReplica() *Replica {
	return &Replica{
		areas:    make(map[uuid.UUID]area.SearchArea),
		upserted: make(map[uuid.UUID]uint64),
	}
}

// Upsert stores a, replacing any area with the same id
func (r *Replica) Upsert(a area.SearchArea) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version++
	r.areas[a.ID] = a
	r.upserted[a.ID] = r.version
}

// Version increases with every Upsert. Take it before starting a fetch and
// pass it to ReplaceSince.
func (r *Replica) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Replace discards buffered state in favour of an authoritative list
func (r *Replica) Replace(areas []area.SearchArea) {
	r.ReplaceSince(areas, ^uint64(0))
}

// ReplaceSince installs areas fetched when the replica was at version since.
// Areas pushed after that point and missing from the list are kept.
func (r *Replica) ReplaceSince(areas []area.SearchArea, since uint64) {
	next := make(map[uuid.UUID]area.SearchArea, len(areas))
	for _, a := range areas {
		next[a.ID] = a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	upserted := make(map[uuid.UUID]uint64)
	for id, v := range r.upserted {
		if v <= since {
			continue
		}
		if _, ok := next[id]; !ok {
			next[id] = r.areas[id]
		}
		upserted[id] = v
	}
	r.areas = next
	r.upserted = upserted
}

// Apply decodes one websocket frame. Unknown event types are ignored.
func (r *Replica) Apply(frame []byte) error {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	switch msg.Type {
	case EventAreaCreated:
		var a area.SearchArea
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.Upsert(a)
	case EventAreasSnapshot:
		var snap Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		r.Replace(snap.Items)
	}
	return nil
}

// Areas returns the view ordered by week then generation
func (r *Replica) Areas() []area.SearchArea {
	r.mu.RLock()
	out := make([]area.SearchArea, 0, len(r.areas))
	for _, a := range r.areas {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekID != out[j].WeekID {
			return out[i].WeekID < out[j].WeekID
		}
		return out[i].GenerationIndex < out[j].GenerationIndex
	})
	return out
}

func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.areas)
}
