package validation

import "fieldgate_backend/internal/gates/domain"

const errScopeRoomRequired = "At least one room must be listed in Scope"

// ScopeValidator requires at least one non-blank room in the scope. Whether
// those rooms were photographed is a cross-gate concern.
type ScopeValidator struct{}

func (ScopeValidator) Validate(in Input) Result {
	res := Valid()
	if len(ScopeRooms(in.Gate)) == 0 {
		res.addError(errScopeRoomRequired)
	}
	return res
}

// ScopeRooms returns the trimmed, non-blank rooms of a Scope gate.
func ScopeRooms(g *domain.Gate) []string {
	scope, ok := g.Metadata.(*domain.ScopeMetadata)
	if !ok || scope == nil {
		return nil
	}
	rooms := make([]string, 0, len(scope.Rooms))
	for _, room := range scope.Rooms {
		if name := trimmed(room); name != "" {
			rooms = append(rooms, name)
		}
	}
	return rooms
}
