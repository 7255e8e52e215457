package reachfunc

import "go/token"

// Function represents one analyzed function in a reachability report.
type Function struct {
	Name      string         `json:"name"`
	Position  token.Position `json:"position"`
	Package   string         `json:"package"`
	Reachable bool           `json:"reachable"`
	Entry     bool           `json:"entry,omitempty"`
	Root      string         `json:"root,omitempty"`
	External  bool           `json:"external,omitempty"`
}
