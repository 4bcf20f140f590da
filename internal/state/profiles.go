package state

import "github.com/thomaskoefod/conduit/pkg/models"

// ProfilesState holds the single profile being viewed.
type ProfilesState struct {
	Lifecycle
	Profile *models.Profile
}

func (s ProfilesState) Reduce(a Action) ProfilesState {
	switch a.Op {
	case OpFetchProfile, OpToggleFollow:
		if s.transition(a) {
			if p, ok := a.Payload.(models.Profile); ok {
				s.Profile = &p
			}
		}

	case OpClearProfile:
		s.Profile = nil

	case OpProfilesClearError:
		s.Error = ""
	}
	return s
}
