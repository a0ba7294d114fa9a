// internal/favicon/state.go
package favicon

// State is what a lookup page shows. Values are never mutated; every
// transition returns a new State.
type State struct {
	Input   string
	Links   LinkSet
	Err     error
	Loading bool
}

// Deriver builds a link set from raw input.
type Deriver func(input string) (LinkSet, error)

// Edit replaces the input text.
func (s State) Edit(input string) State {
	s.Input = input
	return s
}

// Begin marks a lookup as in flight. It is a no-op while another lookup is
// already loading.
func (s State) Begin() State {
	if s.Loading {
		return s
	}
	s.Loading = true
	s.Err = nil
	return s
}

// Finish ends the in-flight lookup with its outcome. A failed lookup keeps
// the previous link set; a successful one replaces it whole.
func (s State) Finish(links LinkSet, err error) State {
	s.Loading = false
	if err != nil {
		s.Err = err
		return s
	}
	s.Err = nil
	s.Links = links
	return s
}

// Submit runs a full lookup of the current input. Submissions while loading
// are ignored.
func (s State) Submit(derive Deriver) State {
	if s.Loading {
		return s
	}
	if s.Input == "" {
		return s.Fail(ErrMissingInput)
	}
	next := s.Begin()
	links, err := derive(next.Input)
	return next.Finish(links, err)
}

// Fail records err without touching the link set.
func (s State) Fail(err error) State {
	s.Err = err
	return s
}

// Dismiss clears the visible error.
func (s State) Dismiss() State {
	s.Err = nil
	return s
}

// Snapshot is the wire form of a State.
type Snapshot struct {
	Input   string         `json:"input"`
	Target  string         `json:"target,omitempty"`
	Links   map[int]string `json:"links"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Loading bool           `json:"loading"`
}

// Snapshot renders s for a client.
func (s State) Snapshot() Snapshot {
	links := make(map[int]string, len(s.Links.Links))
	for size, link := range s.Links.Links {
		links[size] = link
	}
	return Snapshot{
		Input:   s.Input,
		Target:  s.Links.Target,
		Links:   links,
		Error:   Message(s.Err),
		Code:    Code(s.Err),
		Loading: s.Loading,
	}
}
