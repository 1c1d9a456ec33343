package estimation

import (
	"fmt"
	"strconv"

	"github.com/ChristopherRabotin/gmat"
)

// Record is the published name of a state element.
type Record struct {
	Owner   string
	Element string
}

// PrepareStateInfoToPublish returns the published name of every state element, in state order.
// The element names are the ones PrepareStateDataToPublish expects.
func (sm *StateManager) PrepareStateInfoToPublish() ([]Record, error) {
	records := make([]Record, len(sm.stateMap))
	for i, item := range sm.stateMap {
		rec, err := publishedName(item)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// publishedName maps a state element to its owner and element name.
func publishedName(item StateElement) (Record, error) {
	idx := item.Subelement - 1
	if item.ElementName == gmat.ParamCartesianState {
		switch {
		case item.Object.IsOfType(gmat.FormationObject):
			members, err := item.Object.StringArrayParameter(gmat.ParamMemberList)
			if err != nil {
				return Record{}, err
			}
			member := idx / 6
			if member >= len(members) {
				return Record{}, fmt.Errorf("%w: %s has no member #%d", gmat.ErrInvalidArgument, item.ObjectName, member)
			}
			return Record{members[member], members[member] + "." + gmat.CartesianSuffixes[idx%6]}, nil
		case item.Object.IsOfType(gmat.SpacecraftObject):
			if idx >= len(gmat.CartesianSuffixes) {
				return Record{}, fmt.Errorf("%w: %s", gmat.ErrInvalidArgument, item)
			}
			return Record{item.ObjectName, item.ObjectName + "." + gmat.CartesianSuffixes[idx]}, nil
		}
	}
	name := item.ObjectName + "." + item.ElementName
	if item.Length > 1 {
		name += "." + strconv.Itoa(item.Subelement)
	}
	return Record{item.ObjectName, name}, nil
}

// PrepareStateDataToPublish writes each state value into out, at the index of its published name
// in names. Values whose name is not listed are skipped, and the number of skipped values is
// returned. out must be at least as long as names.
func (sm *StateManager) PrepareStateDataToPublish(names []string, out []float64) (skipped int, err error) {
	if len(out) < len(names) {
		sm.metrics.capacityViolation()
		return 0, fmt.Errorf("%w: %d names but room for %d values", gmat.ErrCapacity, len(names), len(out))
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	// out is only written once every name resolved.
	staged := append([]float64(nil), out[:len(names)]...)
	for i, item := range sm.stateMap {
		rec, err := publishedName(item)
		if err != nil {
			return 0, err
		}
		pos, found := index[rec.Element]
		if !found {
			skipped++
			continue
		}
		staged[pos] = sm.state[i]
	}
	copy(out, staged)
	sm.metrics.publishCycle(skipped)
	if skipped > 0 {
		sm.logger.Log("level", "debug", "publish", "partial", "skipped", skipped)
	}
	return skipped, nil
}

// ElementNames returns the element names of the records.
func ElementNames(records []Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Element
	}
	return names
}
