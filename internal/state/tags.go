package state

type TagsState struct {
	Lifecycle
	Tags []string
}

func (s TagsState) Reduce(a Action) TagsState {
	switch a.Op {
	case OpFetchTags:
		if s.transition(a) {
			if tags, ok := a.Payload.([]string); ok {
				s.Tags = append([]string(nil), tags...)
			}
		}

	case OpTagsClearError:
		s.Error = ""
	}
	return s
}
