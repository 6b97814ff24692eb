package domain

// CanTransition reports whether a gate may move from one status to another.
//
//	pending     -> in_progress | complete | skipped
//	in_progress -> complete | skipped
//
// Terminal states have no outgoing transitions.
func CanTransition(from, to GateStatus) bool {
	switch from {
	case GateStatusPending:
		return to == GateStatusInProgress || to == GateStatusComplete || to == GateStatusSkipped
	case GateStatusInProgress:
		return to == GateStatusComplete || to == GateStatusSkipped
	default:
		return false
	}
}

// StatusAfterMetadataWrite is the status a gate holds after autosave. The
// first write opens a pending gate; every other status is left alone.
func StatusAfterMetadataWrite(current GateStatus) GateStatus {
	if current == GateStatusPending {
		return GateStatusInProgress
	}
	return current
}

// EnsureResolvable returns ErrGateAlreadyResolved when the gate is terminal.
func EnsureResolvable(g *Gate) error {
	if g.Status.IsTerminal() {
		return ErrGateAlreadyResolved
	}
	return nil
}
