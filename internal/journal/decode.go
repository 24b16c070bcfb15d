package journal

import (
	"encoding/json"
	"fmt"
)

// Decode parses one journal line. Lines for events the body tree does not
// consume return (nil, nil). FSSSignalDiscovered lines decode to a single
// entry SignalList; the Reader merges consecutive ones.
func Decode(line []byte) (Event, error) {
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	var ev Event
	switch h.Event {
	case "Scan":
		ev = &Scan{}
	case "ScanBaryCentre":
		ev = &ScanBaryCentre{}
	case "FSSDiscoveryScan":
		ev = &FSSDiscoveryScan{}
	case "FSSAllBodiesFound":
		ev = &FSSAllBodiesFound{}
	case "CodexEntry":
		ev = &CodexEntry{}
	case "ScanOrganic":
		ev = &ScanOrganic{}
	case "SAASignalsFound", "FSSBodySignals":
		ev = &BodySignals{}
	case "SAAScanComplete":
		ev = &SAAScanComplete{}
	case "Touchdown":
		ev = &Touchdown{}
	case "ApproachSettlement":
		ev = &ApproachSettlement{}
	case "Docked":
		ev = &Docked{}
	case "FSDJump", "Location", "CarrierJump":
		ev = &Location{}
	case "FSSSignalDiscovered":
		var s FSSSignal
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", h.Event, err)
		}
		return &SignalList{Header: h, SystemAddress: s.SystemAddress, Signals: []FSSSignal{s}}, nil
	default:
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", h.Event, err)
	}
	return ev, nil
}
