package stations

import (
	"errors"
	"fmt"
	"log"
)

// ErrMapReconciliation marks a broken invariant between the start and end maps
var ErrMapReconciliation = errors.New("station map reconciliation failed")

// MapReconciliationError describes the first inconsistency Verify found
type MapReconciliationError struct {
	Key     Key
	StartID int64
	EndID   int64
	Reason  string
}

func (e *MapReconciliationError) Error() string {
	return fmt.Sprintf("station %s: %s (start=%d, end=%d)", e.Key, e.Reason, e.StartID, e.EndID)
}

func (e *MapReconciliationError) Is(target error) bool {
	return target == ErrMapReconciliation
}

// ReconcileMaps merges the departure and arrival maps so that a key present
// in both resolves to one id. The start map wins on common keys and is
// returned unchanged. Keys seen only at the end keep their id unless start
// already uses it for another station, in which case they are moved to a
// fresh id above both maps. Neither input is modified, and reconciling an
// already reconciled pair returns equal maps.
func ReconcileMaps(start, end *IdentityMap) (*IdentityMap, *IdentityMap, error) {
	startOut := start.Clone()
	endOut := NewIdentityMap()

	startIDs := make(map[int64]bool, start.Len())
	for _, e := range start.Entries() {
		startIDs[e.ID] = true
	}

	next := max(start.Max(), end.Max())
	taken := make(map[int64]bool, end.Len())
	common, moved := 0, 0

	for _, e := range end.Entries() {
		id, ok := start.Lookup(e.Key)
		switch {
		case ok:
			common++
		case startIDs[e.ID] || taken[e.ID]:
			next++
			id = next
			moved++
		default:
			id = e.ID
		}
		endOut.Set(e.Key, id)
		taken[id] = true
	}

	log.Printf("Stations: reconciled %d common stations, moved %d arrival-only stations to new ids", common, moved)

	if err := Verify(startOut, endOut); err != nil {
		return nil, nil, err
	}
	return startOut, endOut, nil
}

// Verify checks that common keys agree and that neither map hands the same
// id to two keys
func Verify(start, end *IdentityMap) error {
	for _, e := range end.Entries() {
		if id, ok := start.Lookup(e.Key); ok && id != e.ID {
			return &MapReconciliationError{Key: e.Key, StartID: id, EndID: e.ID, Reason: "conflicting ids"}
		}
	}

	if err := checkInjective(start, func(k Key, a, b int64) *MapReconciliationError {
		return &MapReconciliationError{Key: k, StartID: a, EndID: b, Reason: "id shared by two departure stations"}
	}); err != nil {
		return err
	}

	// An end id may only coincide with a start id when both name the same key
	startByID := make(map[int64]Key, start.Len())
	for _, e := range start.Entries() {
		startByID[e.ID] = e.Key
	}
	for _, e := range end.Entries() {
		if k, ok := startByID[e.ID]; ok && k != e.Key {
			return &MapReconciliationError{Key: e.Key, StartID: e.ID, EndID: e.ID, Reason: "id already used by departure station " + k.String()}
		}
	}

	return checkInjective(end, func(k Key, a, b int64) *MapReconciliationError {
		return &MapReconciliationError{Key: k, StartID: a, EndID: b, Reason: "id shared by two arrival stations"}
	})
}

func checkInjective(m *IdentityMap, fail func(Key, int64, int64) *MapReconciliationError) error {
	seen := make(map[int64]Key, m.Len())
	for _, e := range m.Entries() {
		if _, ok := seen[e.ID]; ok {
			return fail(e.Key, e.ID, e.ID)
		}
		seen[e.ID] = e.Key
	}
	return nil
}
