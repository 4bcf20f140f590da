package state

import "github.com/thomaskoefod/conduit/pkg/models"

// AuthState is the session: who is signed in and whether the server agrees.
type AuthState struct {
	Lifecycle
	User            *models.User
	IsAuthenticated bool
}

func (s AuthState) Reduce(a Action) AuthState {
	switch a.Op {
	case OpRegister, OpLogin:
		if a.Phase == Requested {
			s.Error = ""
		}
		if s.transition(a) {
			s.setUser(a.Payload)
		}

	case OpFetchCurrentUser:
		// A failed bootstrap means there is no session; it is not an error to display.
		if a.Phase == Failed {
			s.Status = StatusFailed
			s.User = nil
			s.IsAuthenticated = false
			return s
		}
		if s.transition(a) {
			s.setUser(a.Payload)
		}

	case OpUpdateUser:
		if s.transition(a) {
			if u, ok := a.Payload.(*models.User); ok && u != nil {
				s.User = u
			}
		}

	case OpLogout:
		if s.transition(a) {
			s.User = nil
			s.IsAuthenticated = false
			s.Status = StatusIdle
		}

	case OpAuthClearError:
		s.Error = ""
	}
	return s
}

func (s *AuthState) setUser(payload any) {
	u, ok := payload.(*models.User)
	if !ok || u == nil {
		return
	}
	s.User = u
	s.IsAuthenticated = true
}
