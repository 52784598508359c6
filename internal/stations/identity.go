package stations

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// ErrUnusableNativeID is returned when the native policy meets a missing or
// non-numeric station id
var ErrUnusableNativeID = errors.New("unusable native station id")

// Key identifies a physical station under a synthetic-id policy.
// Coordinates are already rounded; Name is empty under the rounded
// coordinate policy unless the record had no coordinates at all.
type Key struct {
	Name      string
	Lat       float64
	Lng       float64
	HasCoords bool
}

func (k Key) String() string {
	if !k.HasCoords {
		return fmt.Sprintf("%q", k.Name)
	}
	if k.Name == "" {
		return fmt.Sprintf("(%g, %g)", k.Lat, k.Lng)
	}
	return fmt.Sprintf("%q (%g, %g)", k.Name, k.Lat, k.Lng)
}

// Entry is a single key → id assignment
type Entry struct {
	Key Key
	ID  int64
}

// IdentityMap assigns integer ids to station keys. Iteration follows
// insertion order so that assignment is reproducible for ordered input.
type IdentityMap struct {
	ids   map[Key]int64
	order []Key
	max   int64
}

// NewIdentityMap builds a map, optionally seeded with existing entries
func NewIdentityMap(entries ...Entry) *IdentityMap {
	m := &IdentityMap{ids: make(map[Key]int64, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.ID)
	}
	return m
}

// Lookup returns the id for a key
func (m *IdentityMap) Lookup(k Key) (int64, bool) {
	id, ok := m.ids[k]
	return id, ok
}

// Set assigns id to k, replacing any previous assignment
func (m *IdentityMap) Set(k Key, id int64) {
	if _, ok := m.ids[k]; !ok {
		m.order = append(m.order, k)
	}
	m.ids[k] = id
	if id > m.max {
		m.max = id
	}
}

// Len is the number of keys
func (m *IdentityMap) Len() int { return len(m.order) }

// Max is the largest id handed out so far, 0 for an empty map
func (m *IdentityMap) Max() int64 { return m.max }

// Entries returns the assignments in insertion order
func (m *IdentityMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, Entry{Key: k, ID: m.ids[k]})
	}
	return out
}

// Clone returns an independent copy
func (m *IdentityMap) Clone() *IdentityMap {
	return NewIdentityMap(m.Entries()...)
}

// Equal reports whether both maps hold the same assignments in the same order
func (m *IdentityMap) Equal(o *IdentityMap) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, k := range m.order {
		if o.order[i] != k || o.ids[k] != m.ids[k] {
			return false
		}
	}
	return true
}

// Names returns id → station name for keys that carry a name. The first
// name seen for an id wins.
func (m *IdentityMap) Names() map[int64]string {
	names := make(map[int64]string)
	for _, k := range m.order {
		if k.Name == "" {
			continue
		}
		id := m.ids[k]
		if _, ok := names[id]; !ok {
			names[id] = k.Name
		}
	}
	return names
}

// Resolved is one trip side with its station identity decided
type Resolved struct {
	Key       Key
	Time      time.Time
	StationID int64
}

// KeyFor derives the identity key of a trip side under a synthetic policy
func KeyFor(v trips.View, policy Policy, decimalPlaces int) Key {
	var k Key
	if v.HasCoordinates() {
		k.Lat = Round(*v.Lat, decimalPlaces)
		k.Lng = Round(*v.Lng, decimalPlaces)
		k.HasCoords = true
	}
	if policy == PolicyNameCoordinateMixed || !k.HasCoords {
		k.Name = v.Name
	}
	return k
}

// Round rounds v half away from zero to the given number of decimal places
func Round(v float64, decimalPlaces int) float64 {
	if decimalPlaces < 0 {
		return v
	}
	p := math.Pow(10, float64(decimalPlaces))
	return math.Round(v*p) / p
}

// Allocator hands out synthetic ids for both scenarios of a run. A key
// already known to either seed keeps its id, and a new key on either side
// gets an id above everything both seeds hold.
type Allocator struct {
	ids  map[Key]int64
	next int64
}

// NewAllocator registers the keys of the given seeds. Earlier seeds win
// when two of them disagree on a key.
func NewAllocator(seeds ...*IdentityMap) *Allocator {
	a := &Allocator{ids: make(map[Key]int64)}
	for _, seed := range seeds {
		if seed == nil {
			continue
		}
		for _, e := range seed.Entries() {
			if _, ok := a.ids[e.Key]; !ok {
				a.ids[e.Key] = e.ID
			}
		}
		a.next = max(a.next, seed.Max())
	}
	return a
}

// Assign returns the id already registered for k or the next free one
func (a *Allocator) Assign(k Key) int64 {
	if id, ok := a.ids[k]; ok {
		return id
	}
	a.next++
	a.ids[k] = a.next
	return a.next
}

// AssignSyntheticIDs resolves the station of every record for one scenario.
//
// Under the synthetic policies a key missing from seed takes its id from
// alloc, so both scenarios of a run draw from one sequence and never hand
// out an id the other side has persisted. A nil alloc allocates from seed
// alone. The seed is never modified. Under the native policy the raw id is
// parsed and the returned map is keyed by its canonical decimal form.
func AssignSyntheticIDs(records []trips.Record, scenario trips.Scenario, policy Policy, decimalPlaces int, seed *IdentityMap, alloc *Allocator) ([]Resolved, *IdentityMap, error) {
	m := NewIdentityMap()
	if seed != nil {
		m = seed.Clone()
	}
	if alloc == nil {
		alloc = NewAllocator(m)
	}

	resolved := make([]Resolved, 0, len(records))
	for i, r := range records {
		v := r.View(scenario)

		var k Key
		switch policy {
		case PolicyNative:
			id, err := strconv.ParseInt(v.StationID, 10, 64)
			if err != nil || IsInvalidID(v.StationID) {
				return nil, nil, fmt.Errorf("record %d %s station id %q: %w", i, scenario, v.StationID, ErrUnusableNativeID)
			}
			k = Key{Name: strconv.FormatInt(id, 10)}
			m.Set(k, id)
		case PolicyRoundedCoordinate, PolicyNameCoordinateMixed:
			k = KeyFor(v, policy, decimalPlaces)
			if _, ok := m.Lookup(k); !ok {
				m.Set(k, alloc.Assign(k))
			}
		default:
			return nil, nil, fmt.Errorf("cannot assign station ids under %s", policy)
		}

		id, _ := m.Lookup(k)
		resolved = append(resolved, Resolved{Key: k, Time: v.Time, StationID: id})
	}

	log.Printf("Stations: %s resolved %d records to %d stations using %s ids",
		scenario.DisplayName(), len(resolved), m.Len(), policy)

	return resolved, m, nil
}

// Relabel applies a (reconciled) map to resolved records, producing the
// station trips the aggregator consumes
func Relabel(resolved []Resolved, m *IdentityMap) ([]trips.StationTrip, error) {
	out := make([]trips.StationTrip, len(resolved))
	for i, r := range resolved {
		id, ok := m.Lookup(r.Key)
		if !ok {
			return nil, fmt.Errorf("station %s has no id after reconciliation: %w", r.Key, ErrMapReconciliation)
		}
		out[i] = trips.StationTrip{Time: r.Time, StationID: id}
	}
	return out, nil
}
